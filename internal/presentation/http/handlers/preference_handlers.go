package handlers

import (
	"net/http"
	"time"

	"github.com/fady17/garagehub-go/internal/application/services"
	"github.com/fady17/garagehub-go/internal/domain/location"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// PreferenceHandlers handles anonymous location preference endpoints
type PreferenceHandlers struct {
	prefService *services.PreferenceService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewPreferenceHandlers creates preference handlers with injected dependencies
func NewPreferenceHandlers(prefService *services.PreferenceService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *PreferenceHandlers {
	return &PreferenceHandlers{
		prefService: prefService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

type preferencePayload struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Source    string   `json:"source" binding:"required"`
}

// GetLocationPreference handles GET /api/anonymous/preferences/location.
// Responds 204 when no preference has been saved for the identity.
func (h *PreferenceHandlers) GetLocationPreference(c *gin.Context) {
	marker := h.perfTracker.StartOperation("http:get-preference")
	defer marker.Complete()

	anonID := c.GetString(middleware.ContextAnonIDKey)

	pref, err := h.prefService.GetPreference(anonID)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preference"})
		return
	}
	if pref == nil {
		marker.SetSuccess(true)
		c.Status(http.StatusNoContent)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"lastKnownLatitude":         pref.Latitude,
		"lastKnownLongitude":        pref.Longitude,
		"lastKnownLocationAccuracy": pref.Accuracy,
		"locationSource":            pref.Source,
		"lastSetAtUtc":              pref.LastSetAt.UTC().Format(time.RFC3339),
	})
}

// PutLocationPreference handles PUT /api/anonymous/preferences/location
func (h *PreferenceHandlers) PutLocationPreference(c *gin.Context) {
	marker := h.perfTracker.StartOperation("http:put-preference")
	defer marker.Complete()

	anonID := c.GetString(middleware.ContextAnonIDKey)

	var payload preferencePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preference payload"})
		return
	}

	pref := location.NewPreference(payload.Latitude, payload.Longitude, payload.Accuracy, location.Source(payload.Source))
	if err := h.prefService.SavePreference(anonID, pref); err != nil {
		marker.SetError(err)
		if !pref.InRange() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preference"})
		return
	}

	marker.SetSuccess(true)
	c.Status(http.StatusNoContent)
}
