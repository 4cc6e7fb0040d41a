package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/httpclient"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callRecorder captures the order of collaborator calls and whether the
// anonymous session was still present when each fired.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeMerger struct {
	recorder *callRecorder
	result   *httpclient.MergeResult
	err      error
	tokens   []string
}

func (m *fakeMerger) MergeAnonymousData(ctx context.Context, anonToken string) (*httpclient.MergeResult, error) {
	m.recorder.record("merge")
	m.tokens = append(m.tokens, anonToken)
	return m.result, m.err
}

type fakeCart struct {
	recorder *callRecorder
	sessions *SessionManager

	mu                  sync.Mutex
	sessionClearAtFetch []bool
}

func (c *fakeCart) FetchCart(ctx context.Context) error {
	c.recorder.record("fetchCart")
	c.mu.Lock()
	c.sessionClearAtFetch = append(c.sessionClearAtFetch, c.sessions.Claims() == nil)
	c.mu.Unlock()
	return nil
}

func newCoordinatorFixture(t *testing.T, mergeResult *httpclient.MergeResult, mergeErr error) (*AuthTransitionCoordinator, *SessionManager, *fakeMerger, *fakeCart, *callRecorder) {
	t.Helper()
	recorder := &callRecorder{}
	mgr, _ := newTestManager(t, &countingFetcher{})
	merger := &fakeMerger{recorder: recorder, result: mergeResult, err: mergeErr}
	cart := &fakeCart{recorder: recorder, sessions: mgr}
	coord := NewAuthTransitionCoordinator(mgr, merger, cart, newTestLogger(t), performance.NewTracker())
	return coord, mgr, merger, cart, recorder
}

func TestLoginMergesThenClearsThenRefetches(t *testing.T) {
	coord, mgr, merger, cart, recorder := newCoordinatorFixture(t,
		&httpclient.MergeResult{Success: true, Details: &httpclient.MergeDetails{CartItemsMerged: 2}}, nil)

	// Establish an anonymous session first.
	token, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)

	coord.HandleStatusChange(context.Background(), session.StatusUnauthenticated)
	coord.HandleStatusChange(context.Background(), session.StatusAuthenticated)

	assert.Equal(t, []string{"merge", "fetchCart"}, recorder.snapshot())
	assert.Equal(t, []string{token}, merger.tokens, "merge must receive the anonymous token")
	require.Len(t, cart.sessionClearAtFetch, 1)
	assert.True(t, cart.sessionClearAtFetch[0], "anonymous session must be cleared before the cart refetch")
	assert.Nil(t, mgr.Claims())
}

func TestLoginMergeFailurePreservesAnonymousSession(t *testing.T) {
	coord, mgr, _, _, recorder := newCoordinatorFixture(t, nil, fmt.Errorf("backend down"))

	token, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)

	coord.HandleStatusChange(context.Background(), session.StatusUnauthenticated)
	coord.HandleStatusChange(context.Background(), session.StatusAuthenticated)

	assert.Equal(t, []string{"merge"}, recorder.snapshot(), "no clear and no refetch on merge failure")
	assert.NotNil(t, mgr.Claims(), "anonymous session must survive a failed merge")

	current, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, current)
}

func TestLoginMergeRejectionPreservesAnonymousSession(t *testing.T) {
	coord, mgr, _, _, recorder := newCoordinatorFixture(t,
		&httpclient.MergeResult{Success: false, Message: "conflict"}, nil)

	_, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)

	coord.HandleStatusChange(context.Background(), session.StatusUnauthenticated)
	coord.HandleStatusChange(context.Background(), session.StatusAuthenticated)

	assert.Equal(t, []string{"merge"}, recorder.snapshot())
	assert.NotNil(t, mgr.Claims())
}

func TestRepeatedStatusIsNotAnEdge(t *testing.T) {
	coord, mgr, _, _, recorder := newCoordinatorFixture(t,
		&httpclient.MergeResult{Success: true}, nil)

	_, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)

	coord.HandleStatusChange(context.Background(), session.StatusUnauthenticated)
	coord.HandleStatusChange(context.Background(), session.StatusAuthenticated)
	coord.HandleStatusChange(context.Background(), session.StatusAuthenticated)
	coord.HandleStatusChange(context.Background(), session.StatusAuthenticated)

	calls := recorder.snapshot()
	mergeCount := 0
	for _, c := range calls {
		if c == "merge" {
			mergeCount++
		}
	}
	assert.Equal(t, 1, mergeCount, "steady-state redeliveries must not re-merge")
}

func TestLoadingToAuthenticatedCountsAsLogin(t *testing.T) {
	coord, mgr, _, _, recorder := newCoordinatorFixture(t,
		&httpclient.MergeResult{Success: true}, nil)

	_, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)

	// previous starts at loading; first observation is authenticated.
	coord.HandleStatusChange(context.Background(), session.StatusAuthenticated)

	assert.Contains(t, recorder.snapshot(), "merge")
}

func TestLogoutEstablishesNewIdentityAndRefetches(t *testing.T) {
	coord, mgr, _, _, recorder := newCoordinatorFixture(t,
		&httpclient.MergeResult{Success: true}, nil)

	_, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	before, err := mgr.AnonymousID(context.Background())
	require.NoError(t, err)

	coord.HandleStatusChange(context.Background(), session.StatusAuthenticated)
	coord.HandleStatusChange(context.Background(), session.StatusUnauthenticated)

	after, err := mgr.AnonymousID(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "logout must break identity continuity")
	assert.Equal(t, "fetchCart", recorder.snapshot()[len(recorder.snapshot())-1])
}

func TestLoadingTransitionsAreInert(t *testing.T) {
	coord, _, _, _, recorder := newCoordinatorFixture(t,
		&httpclient.MergeResult{Success: true}, nil)

	coord.HandleStatusChange(context.Background(), session.StatusLoading)
	coord.HandleStatusChange(context.Background(), session.StatusUnauthenticated)
	coord.HandleStatusChange(context.Background(), session.StatusLoading)

	assert.Empty(t, recorder.snapshot())
}

func TestWatchConsumesStatusStream(t *testing.T) {
	coord, mgr, _, _, recorder := newCoordinatorFixture(t,
		&httpclient.MergeResult{Success: true}, nil)

	_, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)

	updates := make(chan session.Status)
	done := make(chan struct{})
	go func() {
		coord.Watch(context.Background(), updates)
		close(done)
	}()

	updates <- session.StatusUnauthenticated
	updates <- session.StatusAuthenticated
	close(updates)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not exit on channel close")
	}

	assert.Equal(t, []string{"merge", "fetchCart"}, recorder.snapshot())
}
