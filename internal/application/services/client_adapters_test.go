package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	path       string
	authHeader string
	anonHeader string
	body       map[string]any
}

type recordingBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (b *recordingBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			path:       r.URL.Path,
			authHeader: r.Header.Get("Authorization"),
			anonHeader: r.Header.Get(httpclient.AnonymousTokenHeader),
		}
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&rec.body)
		}
		b.mu.Lock()
		b.requests = append(b.requests, rec)
		b.mu.Unlock()

		switch r.URL.Path {
		case "/api/users/me/merge-anonymous-data":
			json.NewEncoder(w).Encode(httpclient.MergeResult{Success: true, Message: "merged"})
		default:
			json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
		}
	})
}

func (b *recordingBackend) recorded() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedRequest(nil), b.requests...)
}

func TestUserCredentialLifecycle(t *testing.T) {
	cred := NewUserCredential()
	assert.Empty(t, cred.Token())

	cred.Set("bearer-abc")
	assert.Equal(t, "bearer-abc", cred.Token())

	cred.Clear()
	assert.Empty(t, cred.Token())
}

func TestMergeClientSendsStoredCredential(t *testing.T) {
	backend := &recordingBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	cred := NewUserCredential()
	cred.Set("user-bearer-token")
	merger := NewAPIMergeClient(httpclient.New(srv.URL, newTestLogger(t)), cred)

	anonToken := makeToken(t, "anon-merge", time.Now().Add(time.Hour))
	result, err := merger.MergeAnonymousData(context.Background(), anonToken)
	require.NoError(t, err)
	assert.True(t, result.Success)

	reqs := backend.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/users/me/merge-anonymous-data", reqs[0].path)
	assert.Equal(t, "Bearer user-bearer-token", reqs[0].authHeader)
	assert.Equal(t, anonToken, reqs[0].body["anonymousSessionToken"])
}

func TestCartRefresherUsesUserCartWhenAuthenticated(t *testing.T) {
	backend := &recordingBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	mgr, _ := newTestManager(t, &countingFetcher{})
	status := session.NewStatusHolder()
	status.Set(session.StatusAuthenticated)
	cred := NewUserCredential()
	cred.Set("user-bearer-token")

	refresher := NewAPICartRefresher(httpclient.New(srv.URL, newTestLogger(t)), mgr, status, cred, newTestLogger(t))
	require.NoError(t, refresher.FetchCart(context.Background()))

	reqs := backend.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/users/me/cart", reqs[0].path)
	assert.Equal(t, "Bearer user-bearer-token", reqs[0].authHeader)
	assert.Empty(t, reqs[0].anonHeader)
}

func TestCartRefresherUsesAnonymousCartOtherwise(t *testing.T) {
	backend := &recordingBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	fetcher := &countingFetcher{}
	mgr, _ := newTestManager(t, fetcher)
	status := session.NewStatusHolder()
	status.Set(session.StatusUnauthenticated)

	refresher := NewAPICartRefresher(httpclient.New(srv.URL, newTestLogger(t)), mgr, status, NewUserCredential(), newTestLogger(t))
	require.NoError(t, refresher.FetchCart(context.Background()))

	sessionToken, err := mgr.GetValidToken(context.Background())
	require.NoError(t, err)

	reqs := backend.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/anonymous/cart", reqs[0].path)
	assert.Equal(t, sessionToken, reqs[0].anonHeader)
	assert.Empty(t, reqs[0].authHeader)
}
