package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = slog.LevelError
	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

// makeToken builds a structurally valid compact token with the given
// payload. The signature is garbage, which is fine: the storefront
// never verifies it.
func makeToken(t *testing.T, anonID string, exp time.Time) string {
	t.Helper()
	payload, err := json.Marshal(session.AnonymousClaims{
		Jti:     "01JTESTJTI",
		Iat:     time.Now().Unix(),
		Exp:     exp.Unix(),
		Iss:     "garagehub",
		Aud:     "garagehub-storefront",
		SubType: session.SubTypeAnonymousSession,
		AnonID:  anonID,
	})
	require.NoError(t, err)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

// countingFetcher mints a fresh decodable token per call.
type countingFetcher struct {
	calls atomic.Int64
	fail  bool
	delay time.Duration
	seq   atomic.Int64
}

func (f *countingFetcher) CreateAnonymousSession(ctx context.Context) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail {
		return "", fmt.Errorf("backend unavailable")
	}
	n := f.seq.Add(1)
	payload, _ := json.Marshal(session.AnonymousClaims{
		Jti:     fmt.Sprintf("jti-%d", n),
		Exp:     time.Now().Add(24 * time.Hour).Unix(),
		SubType: session.SubTypeAnonymousSession,
		AnonID:  fmt.Sprintf("anon-%d", n),
	})
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig", nil
}

func newTestManager(t *testing.T, fetcher TokenFetcher) (*SessionManager, kv.Store) {
	t.Helper()
	store := kv.NewMemoryStore()
	mgr := NewSessionManager(store, "anonymousSessionToken", fetcher, 60*time.Second, newTestLogger(t), performance.NewTracker())
	return mgr, store
}

func TestSessionManagerRestoresValidPersistedToken(t *testing.T) {
	fetcher := &countingFetcher{}
	mgr, store := newTestManager(t, fetcher)

	persisted := makeToken(t, "anon-persisted", time.Now().Add(time.Hour))
	require.NoError(t, store.Set("anonymousSessionToken", persisted))

	token, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, persisted, token)
	assert.Equal(t, int64(0), fetcher.calls.Load(), "valid persisted token must not trigger a fetch")

	anonID, err := mgr.AnonymousID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anon-persisted", anonID)
}

func TestSessionManagerReplacesExpiredPersistedToken(t *testing.T) {
	fetcher := &countingFetcher{}
	mgr, store := newTestManager(t, fetcher)

	expired := makeToken(t, "anon-old", time.Now().Add(-time.Hour))
	require.NoError(t, store.Set("anonymousSessionToken", expired))

	token, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, expired, token)
	assert.Equal(t, int64(1), fetcher.calls.Load())

	stored, found, err := store.Get("anonymousSessionToken")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, token, stored, "replacement token must be persisted")
}

func TestSessionManagerTreatsCorruptTokenAsExpired(t *testing.T) {
	for _, corrupt := range []string{"not.a.token", "garbage", "a.!!!.c", ""} {
		fetcher := &countingFetcher{}
		mgr, store := newTestManager(t, fetcher)
		require.NoError(t, store.Set("anonymousSessionToken", corrupt))

		token, err := mgr.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, int64(1), fetcher.calls.Load())
	}
}

func TestSessionManagerExpiryBuffer(t *testing.T) {
	fetcher := &countingFetcher{}
	mgr, store := newTestManager(t, fetcher)

	now := time.Now()
	mgr.SetClock(func() time.Time { return now })

	// 61s of headroom: outside the buffer, still valid.
	fresh := makeToken(t, "anon-fresh", now.Add(61*time.Second))
	require.NoError(t, store.Set("anonymousSessionToken", fresh))
	token, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.Equal(t, int64(0), fetcher.calls.Load())
}

func TestSessionManagerExpiryBufferBoundary(t *testing.T) {
	fetcher := &countingFetcher{}
	mgr, store := newTestManager(t, fetcher)

	now := time.Now()
	mgr.SetClock(func() time.Time { return now })

	// 59s of headroom: inside the buffer, counts as expired.
	nearlyExpired := makeToken(t, "anon-near", now.Add(59*time.Second))
	require.NoError(t, store.Set("anonymousSessionToken", nearlyExpired))
	token, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, nearlyExpired, token)
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestSessionManagerSingleFlightFetch(t *testing.T) {
	fetcher := &countingFetcher{delay: 50 * time.Millisecond}
	mgr, _ := newTestManager(t, fetcher)

	const callers = 10
	tokens := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := mgr.GetValidToken(context.Background())
			require.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetcher.calls.Load(), "concurrent callers must share one fetch")
	for i := 1; i < callers; i++ {
		assert.Equal(t, tokens[0], tokens[i])
	}
}

func TestSessionManagerFetchFailureLeavesStateIntact(t *testing.T) {
	fetcher := &countingFetcher{fail: true}
	mgr, _ := newTestManager(t, fetcher)

	_, err := mgr.GetValidToken(context.Background())
	require.Error(t, err)
	assert.Nil(t, mgr.Claims())

	// Recovery: the backend comes back and the next access succeeds.
	fetcher.fail = false
	token, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSessionManagerClearThenFetchYieldsNewIdentity(t *testing.T) {
	fetcher := &countingFetcher{}
	mgr, store := newTestManager(t, fetcher)

	first, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	firstID, err := mgr.AnonymousID(context.Background())
	require.NoError(t, err)

	require.NoError(t, mgr.ClearSession())
	assert.Nil(t, mgr.Claims())
	_, found, err := store.Get("anonymousSessionToken")
	require.NoError(t, err)
	assert.False(t, found, "clear must remove the persisted token")

	second, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	secondID, err := mgr.AnonymousID(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, firstID, secondID, "cleared identity must never be reused")
}

func TestSessionManagerHandleLogout(t *testing.T) {
	fetcher := &countingFetcher{}
	mgr, _ := newTestManager(t, fetcher)

	_, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	before, err := mgr.AnonymousID(context.Background())
	require.NoError(t, err)

	token, err := mgr.HandleLogout(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	after, err := mgr.AnonymousID(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

// failingStore always errors on Set; persistence failure must not stop
// the in-memory session from advancing.
type failingStore struct{ kv.Store }

func (f *failingStore) Set(key, value string) error {
	return fmt.Errorf("disk full")
}

func TestSessionManagerToleratesStoreWriteFailure(t *testing.T) {
	fetcher := &countingFetcher{}
	store := &failingStore{Store: kv.NewMemoryStore()}
	mgr := NewSessionManager(store, "anonymousSessionToken", fetcher, 60*time.Second, newTestLogger(t), performance.NewTracker())

	token, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotNil(t, mgr.Claims())
}
