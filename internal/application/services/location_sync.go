package services

import (
	"context"
	"sync"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/location"
	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/geo"
	"github.com/fady17/garagehub-go/internal/infrastructure/httpclient"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
)

// StatusSource reports the identity collaborator's current session
// status. The sync layer consults it immediately before every
// preference write, not just at the start of an operation, because the
// status can flip while a location fix is in flight.
type StatusSource interface {
	CurrentStatus() session.Status
}

// PreferenceClient is the backend surface for anonymous preference
// load/save, authorized by the anonymous token.
type PreferenceClient interface {
	LoadLocationPreference(ctx context.Context, token string) (*httpclient.PreferenceResponse, error)
	SaveLocationPreference(ctx context.Context, token string, payload httpclient.PreferencePayload) error
}

// LocationPreferenceSync acquires the visitor's location (throttled and
// timed out) and persists it as an anonymous preference while the
// visitor is not authenticated.
type LocationPreferenceSync struct {
	locator     geo.Locator
	api         PreferenceClient
	sessions    *SessionManager
	status      StatusSource
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker

	throttle       time.Duration
	acquireTimeout time.Duration
	onError        func(*geo.Error)
	now            func() time.Time

	mu               sync.Mutex
	lastAttemptStart time.Time
	inFlight         bool
	current          *location.Preference
	lastError        *geo.Error
	bootLoaded       bool

	saveWG sync.WaitGroup
}

// NewLocationPreferenceSync creates the location sync service. onError
// may be nil; when provided it receives every classified acquisition
// failure.
func NewLocationPreferenceSync(locator geo.Locator, api PreferenceClient, sessions *SessionManager, status StatusSource, throttle, acquireTimeout time.Duration, onError func(*geo.Error), logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *LocationPreferenceSync {
	return &LocationPreferenceSync{
		locator:        locator,
		api:            api,
		sessions:       sessions,
		status:         status,
		logger:         logger,
		perfTracker:    perfTracker,
		throttle:       throttle,
		acquireTimeout: acquireTimeout,
		onError:        onError,
		now:            time.Now,
	}
}

// SetClock overrides the service's clock. Tests only.
func (s *LocationPreferenceSync) SetClock(now func() time.Time) {
	s.now = now
}

// Current returns the most recent location value, or nil.
func (s *LocationPreferenceSync) Current() *location.Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// LastError returns the persistent acquisition error, if any. Permission
// denials never set it: a visitor declining location is a normal,
// frequent outcome, not an error state.
func (s *LocationPreferenceSync) LastError() *geo.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// AttemptLocation requests a position fix. A call within the throttle
// window of the previous attempt's start, or while another attempt is
// in flight, returns the last known location immediately without
// touching the locator. Acquisition is bounded by the configured
// timeout. On success the fix becomes the current location and, when
// the visitor is not authenticated, is persisted asynchronously as the
// anonymous preference.
func (s *LocationPreferenceSync) AttemptLocation(ctx context.Context) *location.Preference {
	s.mu.Lock()
	if s.inFlight || s.now().Sub(s.lastAttemptStart) < s.throttle {
		last := s.current
		s.mu.Unlock()
		return last
	}
	s.lastAttemptStart = s.now()
	s.inFlight = true
	s.mu.Unlock()

	marker := s.perfTracker.StartOperation("location:acquire")
	defer marker.Complete()

	acquireCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	fix, err := s.locator.Locate(acquireCtx)

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()

	if err != nil {
		gerr := geo.Classify(err)
		marker.SetError(gerr)
		s.reportError(gerr)
		return nil
	}

	pref := location.NewPreference(fix.Latitude, fix.Longitude, fix.Accuracy, s.locator.Kind())

	s.mu.Lock()
	s.current = pref
	s.lastError = nil
	s.mu.Unlock()

	marker.SetSuccess(true)
	s.logger.Location().Info("Location acquired", "source", string(pref.Source))

	// Fire-and-forget: persistence failure never affects the fix
	// returned to the caller.
	s.saveWG.Add(1)
	go func() {
		defer s.saveWG.Done()
		s.persistIfAnonymous(pref)
	}()

	return pref
}

func (s *LocationPreferenceSync) reportError(gerr *geo.Error) {
	if gerr.Code != geo.PermissionDenied {
		s.mu.Lock()
		s.lastError = gerr
		s.mu.Unlock()
		s.logger.Location().Warn("Location acquisition failed", "code", string(gerr.Code), "error", gerr.Message)
	} else {
		s.logger.Location().Debug("Location permission denied")
	}

	if s.onError != nil {
		s.onError(gerr)
	}
}

// persistIfAnonymous saves the preference for the anonymous identity.
// The session status is checked immediately before the write: no write
// path in this service may hit the anonymous preference endpoint once
// the visitor is authenticated.
func (s *LocationPreferenceSync) persistIfAnonymous(pref *location.Preference) {
	if s.status.CurrentStatus() != session.StatusUnauthenticated {
		s.logger.Location().Debug("Skipping preference save, visitor not anonymous")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := s.sessions.GetValidToken(ctx)
	if err != nil || token == "" {
		s.logger.Location().Warn("No anonymous token available for preference save")
		return
	}

	// Re-check: the status can change while the token fetch suspends.
	if s.status.CurrentStatus() != session.StatusUnauthenticated {
		s.logger.Location().Debug("Visitor authenticated during save, dropping preference write")
		return
	}

	payload := httpclient.PreferencePayload{
		Latitude:  pref.Latitude,
		Longitude: pref.Longitude,
		Accuracy:  pref.Accuracy,
		Source:    string(pref.Source),
	}
	if err := s.api.SaveLocationPreference(ctx, token, payload); err != nil {
		s.logger.Location().Warn("Preference save failed", "error", err.Error())
	}
}

// LoadSavedPreference seeds the current location from the saved
// anonymous preference. Runs at most once, and only while the visitor
// is unauthenticated; it never overwrites a location that is already
// set.
func (s *LocationPreferenceSync) LoadSavedPreference(ctx context.Context) *location.Preference {
	if s.status.CurrentStatus() != session.StatusUnauthenticated {
		return nil
	}

	s.mu.Lock()
	if s.bootLoaded {
		s.mu.Unlock()
		return nil
	}
	s.bootLoaded = true
	s.mu.Unlock()

	token, err := s.sessions.GetValidToken(ctx)
	if err != nil || token == "" {
		s.logger.Location().Debug("No anonymous token for preference load")
		return nil
	}

	saved, err := s.api.LoadLocationPreference(ctx, token)
	if err != nil {
		s.logger.Location().Warn("Preference load failed", "error", err.Error())
		return nil
	}
	if saved == nil {
		return nil
	}

	pref := &location.Preference{
		Latitude:  saved.LastKnownLatitude,
		Longitude: saved.LastKnownLongitude,
		Accuracy:  saved.LastKnownLocationAccuracy,
		Source:    location.SourcePreferenceLoaded,
		Timestamp: saved.LastSetAtUtc,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		// A live fix arrived first; the loaded value never replaces it.
		return nil
	}
	s.current = pref
	s.logger.Location().Info("Seeded location from saved preference")
	return pref
}

// WaitForPendingSaves blocks until in-flight preference writes settle.
// Tests only.
func (s *LocationPreferenceSync) WaitForPendingSaves() {
	s.saveWG.Wait()
}
