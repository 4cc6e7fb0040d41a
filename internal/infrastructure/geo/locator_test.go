package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLocatorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latitude":30.0444,"longitude":31.2357,"accuracy":5000}`))
	}))
	defer srv.Close()

	l := NewIPLocator(srv.URL, srv.Client())
	fix, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30.0444, fix.Latitude)
	assert.Equal(t, 31.2357, fix.Longitude)
	require.NotNil(t, fix.Accuracy)
	assert.Equal(t, 5000.0, *fix.Accuracy)
	assert.Equal(t, location.SourceIPGeolocation, l.Kind())
}

func TestIPLocatorUnsupportedWithoutEndpoint(t *testing.T) {
	l := NewIPLocator("", nil)
	_, err := l.Locate(context.Background())
	var geoErr *Error
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, Unsupported, geoErr.Code)
}

func TestIPLocatorPermissionDenied(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		l := NewIPLocator(srv.URL, srv.Client())
		_, err := l.Locate(context.Background())
		var geoErr *Error
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, PermissionDenied, geoErr.Code)
		srv.Close()
	}
}

func TestIPLocatorMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	l := NewIPLocator(srv.URL, srv.Client())
	_, err := l.Locate(context.Background())
	var geoErr *Error
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, PositionUnavailable, geoErr.Code)
}

func TestIPLocatorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	l := NewIPLocator(srv.URL, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := l.Locate(ctx)
	var geoErr *Error
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, Timeout, geoErr.Code)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Timeout, Classify(context.DeadlineExceeded).Code)
	assert.Equal(t, PositionUnavailable, Classify(errors.New("boom")).Code)
	assert.Equal(t, PermissionDenied, Classify(&Error{Code: PermissionDenied}).Code)
}
