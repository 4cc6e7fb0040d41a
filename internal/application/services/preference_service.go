package services

import (
	"fmt"

	"github.com/fady17/garagehub-go/internal/domain/location"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/anonymous"
)

// PreferenceService manages the stored location preference of an
// anonymous identity.
type PreferenceService struct {
	repo        *anonymous.Repository
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(repo *anonymous.Repository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *PreferenceService {
	return &PreferenceService{
		repo:        repo,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetPreference returns the stored preference, or nil when none exists.
func (s *PreferenceService) GetPreference(anonID string) (*anonymous.StoredPreference, error) {
	marker := s.perfTracker.StartOperation("preference:get")
	defer marker.Complete()

	pref, err := s.repo.GetLocationPreference(anonID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}

	marker.SetSuccess(true)
	return pref, nil
}

// SavePreference validates and upserts the location preference.
func (s *PreferenceService) SavePreference(anonID string, pref *location.Preference) error {
	marker := s.perfTracker.StartOperation("preference:save")
	defer marker.Complete()

	if !pref.InRange() {
		return fmt.Errorf("coordinates out of range: %f, %f", pref.Latitude, pref.Longitude)
	}

	if err := s.repo.UpsertLocationPreference(anonID, pref); err != nil {
		marker.SetError(err)
		s.logger.Location().Error("Failed to save preference",
			"anonId", logging.SanitizeID(anonID), "error", err.Error())
		return fmt.Errorf("failed to save preference: %w", err)
	}

	marker.SetSuccess(true)
	s.logger.Location().Debug("Saved location preference",
		"anonId", logging.SanitizeID(anonID), "source", string(pref.Source))
	return nil
}
