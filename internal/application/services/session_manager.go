// Package services provides application-level orchestration services
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/kv"
	"github.com/fady17/garagehub-go/internal/infrastructure/security"
	"golang.org/x/sync/singleflight"
)

// TokenFetcher requests fresh anonymous session tokens from the backend.
type TokenFetcher interface {
	CreateAnonymousSession(ctx context.Context) (string, error)
}

// SessionManager owns the single source of truth for the anonymous
// bearer token: lazy one-time initialization from persistent storage,
// expiry-aware validity, single-flight network refresh, and clear/reset
// on logout. One instance is shared by every consumer; it is
// constructed once at the application root and passed by injection.
type SessionManager struct {
	store       kv.Store
	storageKey  string
	api         TokenFetcher
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	buffer      time.Duration
	now         func() time.Time

	mu           sync.Mutex
	currentToken string
	claims       *session.AnonymousClaims
	initialized  bool

	initFlight  singleflight.Group
	fetchFlight singleflight.Group
}

// NewSessionManager creates the anonymous session manager.
func NewSessionManager(store kv.Store, storageKey string, api TokenFetcher, buffer time.Duration, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SessionManager {
	return &SessionManager{
		store:       store,
		storageKey:  storageKey,
		api:         api,
		logger:      logger,
		perfTracker: perfTracker,
		buffer:      buffer,
		now:         time.Now,
	}
}

// SetClock overrides the manager's clock. Tests only.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}

// EnsureInitialized loads any persisted token on first call, refreshing
// it when expired or corrupt. Concurrent callers share one
// initialization; once it has settled the call is a no-op forever.
func (m *SessionManager) EnsureInitialized(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	_, err, _ := m.initFlight.Do("init", func() (any, error) {
		err := m.initialize(ctx)

		// Initialization settles exactly once, success or failure;
		// a failed first fetch leaves the manager tokenless and later
		// accesses go through the refresh path instead.
		m.mu.Lock()
		m.initialized = true
		m.mu.Unlock()

		return nil, err
	})
	return err
}

func (m *SessionManager) initialize(ctx context.Context) error {
	marker := m.perfTracker.StartOperation("session:initialize")
	defer marker.Complete()

	stored, found, err := m.store.Get(m.storageKey)
	if err != nil {
		m.logger.Session().Warn("Failed to read persisted token, fetching fresh", "error", err.Error())
	}

	if found && err == nil {
		claims := security.DecodeUnverifiedClaims(stored)
		if claims != nil && !claims.ExpiresWithin(m.now(), m.buffer) {
			m.mu.Lock()
			m.currentToken = stored
			m.claims = claims
			m.mu.Unlock()

			marker.SetSuccess(true)
			m.logger.Session().Info("Restored anonymous session from storage", "anonId", logging.SanitizeID(claims.AnonID))
			return nil
		}

		// Expired or corrupt: discard before fetching a replacement.
		m.logger.Session().Info("Persisted token expired or undecodable, replacing")
		if err := m.clear(); err != nil {
			m.logger.Session().Warn("Failed to clear stale token", "error", err.Error())
		}
	}

	token, err := m.FetchAndStore(ctx)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("initial token fetch failed: %w", err)
	}

	marker.SetSuccess(token != "")
	return nil
}

// GetValidToken returns the cached token when it is decodable and not
// within the expiry buffer; otherwise it performs a single-flight
// refresh and returns that result. An empty token with a nil error
// never occurs: failure to produce a token is reported as an error and
// callers treat it as "operate without anonymous identity this round".
func (m *SessionManager) GetValidToken(ctx context.Context) (string, error) {
	if err := m.EnsureInitialized(ctx); err != nil {
		// Fall through: the refresh below is the retry path.
		m.logger.Session().Debug("Initialization failed, attempting refresh", "error", err.Error())
	}

	m.mu.Lock()
	if m.claims != nil && !m.claims.ExpiresWithin(m.now(), m.buffer) {
		token := m.currentToken
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	return m.FetchAndStore(ctx)
}

// FetchAndStore unconditionally requests a new token, persists it, and
// updates in-memory state. It is globally single-flight per manager:
// N simultaneous callers produce exactly one network call and all
// receive the same outcome. On any failure prior state is left intact.
func (m *SessionManager) FetchAndStore(ctx context.Context) (string, error) {
	result, err, _ := m.fetchFlight.Do("fetch", func() (any, error) {
		marker := m.perfTracker.StartOperation("session:fetch_token")
		defer marker.Complete()

		token, err := m.api.CreateAnonymousSession(ctx)
		if err != nil {
			marker.SetError(err)
			m.logger.Session().Warn("Anonymous session fetch failed", "error", err.Error())
			return "", fmt.Errorf("anonymous session fetch failed: %w", err)
		}

		claims := security.DecodeUnverifiedClaims(token)
		if claims == nil {
			marker.SetSuccess(false)
			m.logger.Session().Warn("Backend returned undecodable token")
			return "", fmt.Errorf("backend returned undecodable token")
		}

		if err := m.store.Set(m.storageKey, token); err != nil {
			// In-memory state still advances; the next boot falls back
			// to a fresh fetch.
			m.logger.Session().Warn("Failed to persist anonymous token", "error", err.Error())
		}

		m.mu.Lock()
		m.currentToken = token
		m.claims = claims
		m.mu.Unlock()

		marker.SetSuccess(true)
		m.logger.Session().Info("Anonymous session established", "anonId", logging.SanitizeID(claims.AnonID), "jti", claims.Jti)
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// ClearSession removes the persisted token and resets in-memory state.
// It does not fetch a replacement.
func (m *SessionManager) ClearSession() error {
	return m.clear()
}

func (m *SessionManager) clear() error {
	err := m.store.Remove(m.storageKey)

	m.mu.Lock()
	m.currentToken = ""
	m.claims = nil
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to remove persisted token: %w", err)
	}

	m.logger.Session().Info("Anonymous session cleared")
	return nil
}

// HandleLogout discards the current anonymous identity and establishes
// a new, unrelated one. This is the only operation that intentionally
// breaks identity continuity.
func (m *SessionManager) HandleLogout(ctx context.Context) (string, error) {
	if err := m.ClearSession(); err != nil {
		m.logger.Session().Warn("Clear during logout failed", "error", err.Error())
	}
	return m.FetchAndStore(ctx)
}

// AnonymousID returns the stable identity key of the current valid
// token. A decoded-but-expired token never yields an id.
func (m *SessionManager) AnonymousID(ctx context.Context) (string, error) {
	if _, err := m.GetValidToken(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims == nil {
		return "", fmt.Errorf("no anonymous session")
	}
	return m.claims.AnonID, nil
}

// Claims returns a copy of the current decoded claims, or nil when no
// well-formed token is cached. Read-only accessor for debug surfaces.
func (m *SessionManager) Claims() *session.AnonymousClaims {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims == nil {
		return nil
	}
	copied := *m.claims
	return &copied
}
