package services

import (
	"context"
	"sync"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/httpclient"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
)

// UserCredential holds the authenticated user's bearer token for the
// lifetime of the login.
type UserCredential struct {
	mu    sync.RWMutex
	token string
}

func NewUserCredential() *UserCredential {
	return &UserCredential{}
}

func (c *UserCredential) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *UserCredential) Clear() {
	c.Set("")
}

func (c *UserCredential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIMergeClient binds the backend merge call to the stored user
// credential.
type APIMergeClient struct {
	api  *httpclient.Client
	cred *UserCredential
}

func NewAPIMergeClient(api *httpclient.Client, cred *UserCredential) *APIMergeClient {
	return &APIMergeClient{api: api, cred: cred}
}

func (m *APIMergeClient) MergeAnonymousData(ctx context.Context, anonToken string) (*httpclient.MergeResult, error) {
	return m.api.MergeAnonymousData(ctx, m.cred.Token(), anonToken)
}

// APICartRefresher reloads the cart for whichever identity currently
// owns it: the user when authenticated, the anonymous session
// otherwise.
type APICartRefresher struct {
	api      *httpclient.Client
	sessions *SessionManager
	status   StatusSource
	cred     *UserCredential
	logger   *logging.ChanneledLogger
}

func NewAPICartRefresher(api *httpclient.Client, sessions *SessionManager, status StatusSource, cred *UserCredential, logger *logging.ChanneledLogger) *APICartRefresher {
	return &APICartRefresher{
		api:      api,
		sessions: sessions,
		status:   status,
		cred:     cred,
		logger:   logger,
	}
}

func (r *APICartRefresher) FetchCart(ctx context.Context) error {
	if r.status.CurrentStatus() == session.StatusAuthenticated {
		items, err := r.api.FetchUserCart(ctx, r.cred.Token())
		if err != nil {
			return err
		}
		r.logger.HTTP().Debug("Refreshed user cart", "items", len(items))
		return nil
	}

	token, err := r.sessions.GetValidToken(ctx)
	if err != nil {
		return err
	}
	items, err := r.api.FetchAnonymousCart(ctx, token)
	if err != nil {
		return err
	}
	r.logger.HTTP().Debug("Refreshed anonymous cart", "items", len(items))
	return nil
}
