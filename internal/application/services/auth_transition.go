package services

import (
	"context"
	"sync"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/httpclient"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
)

// CartRefresher is the external cart collaborator. After a merge or a
// logout the coordinator asks it to refetch, which resolves to the
// authenticated user's cart or the fresh anonymous cart respectively.
type CartRefresher interface {
	FetchCart(ctx context.Context) error
}

// MergeClient calls the backend merge endpoint with the anonymous
// token. Implementations carry the authenticated user's own credential.
type MergeClient interface {
	MergeAnonymousData(ctx context.Context, anonToken string) (*httpclient.MergeResult, error)
}

// AuthTransitionCoordinator observes the identity collaborator's
// session status and reacts to edges only: merge-on-login and
// reset-on-logout. Steady-state observations of the same status are
// no-ops, so re-delivered status values never re-trigger a merge.
type AuthTransitionCoordinator struct {
	sessions    *SessionManager
	merger      MergeClient
	cart        CartRefresher
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker

	mu       sync.Mutex
	previous session.Status
}

// NewAuthTransitionCoordinator creates the coordinator. The previous
// status starts at loading, matching an identity provider that has not
// yet resolved.
func NewAuthTransitionCoordinator(sessions *SessionManager, merger MergeClient, cart CartRefresher, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthTransitionCoordinator {
	return &AuthTransitionCoordinator{
		sessions:    sessions,
		merger:      merger,
		cart:        cart,
		logger:      logger,
		perfTracker: perfTracker,
		previous:    session.StatusLoading,
	}
}

// HandleStatusChange records the observed status and acts when the
// change forms a login or logout edge.
func (c *AuthTransitionCoordinator) HandleStatusChange(ctx context.Context, current session.Status) {
	c.mu.Lock()
	edge := session.Edge{Previous: c.previous, Current: current}
	c.previous = current
	c.mu.Unlock()

	switch {
	case edge.IsLogin():
		c.handleLogin(ctx)
	case edge.IsLogout():
		c.handleLogout(ctx)
	}
}

// Watch consumes a status stream until it closes or the context ends.
func (c *AuthTransitionCoordinator) Watch(ctx context.Context, updates <-chan session.Status) {
	for {
		select {
		case status, ok := <-updates:
			if !ok {
				return
			}
			c.HandleStatusChange(ctx, status)
		case <-ctx.Done():
			return
		}
	}
}

// handleLogin merges the anonymous identity's data into the newly
// authenticated account. Ordering is strict: the merge must settle
// before the anonymous session is cleared, and the clear must complete
// before the cart refetch, or the refetch could observe the anonymous
// identity instead of the merged one.
func (c *AuthTransitionCoordinator) handleLogin(ctx context.Context) {
	marker := c.perfTracker.StartOperation("merge:login")
	defer marker.Complete()

	token, err := c.sessions.GetValidToken(ctx)
	if err != nil || token == "" {
		// Nothing to merge; the cart refetch resolves to the user's cart.
		c.logger.Merge().Info("No anonymous session at login, skipping merge")
		if err := c.cart.FetchCart(ctx); err != nil {
			c.logger.Merge().Warn("Cart refetch failed", "error", err.Error())
		}
		marker.SetSuccess(true)
		return
	}

	result, err := c.merger.MergeAnonymousData(ctx, token)
	if err != nil {
		// Preserve the anonymous session and its cart for a retry on a
		// future authenticated session.
		marker.SetError(err)
		c.logger.Merge().Warn("Merge call failed, anonymous session preserved", "error", err.Error())
		return
	}
	if !result.Success {
		marker.SetSuccess(false)
		c.logger.Merge().Warn("Merge rejected, anonymous session preserved", "message", result.Message)
		return
	}

	if err := c.sessions.ClearSession(); err != nil {
		c.logger.Merge().Warn("Failed to clear anonymous session after merge", "error", err.Error())
	}

	if err := c.cart.FetchCart(ctx); err != nil {
		c.logger.Merge().Warn("Cart refetch after merge failed", "error", err.Error())
	}

	marker.SetSuccess(true)
	if result.Details != nil {
		c.logger.Merge().Info("Anonymous data merged",
			"cartItemsMerged", result.Details.CartItemsMerged,
			"cartItemsSkipped", result.Details.CartItemsSkippedOrConflicted,
			"preferencesMerged", result.Details.PreferencesMerged,
		)
	} else {
		c.logger.Merge().Info("Anonymous data merged")
	}
}

// handleLogout discards the authenticated association: a new unrelated
// anonymous identity is established and the cart refetch resolves to
// its (empty) cart.
func (c *AuthTransitionCoordinator) handleLogout(ctx context.Context) {
	marker := c.perfTracker.StartOperation("merge:logout")
	defer marker.Complete()

	if _, err := c.sessions.HandleLogout(ctx); err != nil {
		c.logger.Auth().Warn("Failed to establish new anonymous session at logout", "error", err.Error())
	}

	if err := c.cart.FetchCart(ctx); err != nil {
		c.logger.Auth().Warn("Cart refetch after logout failed", "error", err.Error())
	}

	marker.SetSuccess(true)
}
