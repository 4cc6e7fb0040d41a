// Package geo provides location acquisition for the storefront core.
// Locator abstracts the position source; the shipped implementation
// resolves approximate coordinates from an IP-geolocation endpoint.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fady17/garagehub-go/internal/domain/location"
)

// ErrorCode classifies acquisition failures.
type ErrorCode string

const (
	PermissionDenied    ErrorCode = "PermissionDenied"
	PositionUnavailable ErrorCode = "PositionUnavailable"
	Timeout             ErrorCode = "Timeout"
	Unsupported         ErrorCode = "Unsupported"
)

// Error is a classified geolocation failure.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("geolocation failed (%s): %s", e.Code, e.Message)
}

// Classify maps an arbitrary acquisition error to a geo.Error.
// Context deadline expiry becomes Timeout; anything unrecognized is
// PositionUnavailable.
func Classify(err error) *Error {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: Timeout, Message: "location acquisition timed out"}
	}
	return &Error{Code: PositionUnavailable, Message: err.Error()}
}

// Fix is one acquired position.
type Fix struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
}

// Locator acquires the visitor's position. Kind reports how fixes from
// this locator should be labeled when persisted.
type Locator interface {
	Locate(ctx context.Context) (*Fix, error)
	Kind() location.Source
}

// IPLocator resolves an approximate position from an IP-geolocation
// HTTP endpoint.
type IPLocator struct {
	endpoint   string
	httpClient *http.Client
}

// NewIPLocator creates an IP-based locator. An empty endpoint produces
// a locator that reports Unsupported, matching a runtime with no
// geolocation capability.
func NewIPLocator(endpoint string, httpClient *http.Client) *IPLocator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &IPLocator{endpoint: endpoint, httpClient: httpClient}
}

// Kind labels IP-derived fixes.
func (l *IPLocator) Kind() location.Source {
	return location.SourceIPGeolocation
}

type ipLocateResponse struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Locate queries the configured endpoint for the caller's position.
func (l *IPLocator) Locate(ctx context.Context) (*Fix, error) {
	if l.endpoint == "" {
		return nil, &Error{Code: Unsupported, Message: "no geolocation endpoint configured"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return nil, &Error{Code: PositionUnavailable, Message: err.Error()}
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, &Error{Code: Timeout, Message: "location acquisition timed out"}
		}
		return nil, &Error{Code: PositionUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return nil, &Error{Code: PermissionDenied, Message: fmt.Sprintf("endpoint refused request with status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Code: PositionUnavailable, Message: fmt.Sprintf("endpoint returned status %d", resp.StatusCode)}
	}

	var body ipLocateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Code: PositionUnavailable, Message: "malformed geolocation response"}
	}

	return &Fix{Latitude: body.Latitude, Longitude: body.Longitude, Accuracy: body.Accuracy}, nil
}
