// Package httpclient provides the typed API client the storefront core
// uses to reach the GarageHub backend. Anonymous-scoped calls carry the
// X-Anonymous-Token header; the merge call additionally carries the
// authenticated user's bearer token.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/pkg/config"
)

// AnonymousTokenHeader authenticates anonymous-scoped calls.
const AnonymousTokenHeader = "X-Anonymous-Token"

// Client is a typed HTTP client for the backend contracts.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.ChanneledLogger
}

// New creates an API client for the given base URL.
func New(baseURL string, logger *logging.ChanneledLogger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: config.ClientHTTPTimeout,
		},
		logger: logger,
	}
}

// NewWithHTTPClient creates an API client with a caller-supplied
// http.Client, used by tests.
func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger *logging.ChanneledLogger) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

type createSessionResponse struct {
	AnonymousSessionToken string `json:"anonymousSessionToken"`
}

// CreateAnonymousSession requests a fresh anonymous session token.
func (c *Client) CreateAnonymousSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/anonymous/sessions", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build session request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("session request returned status %d", resp.StatusCode)
	}

	var body createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode session response: %w", err)
	}
	if body.AnonymousSessionToken == "" {
		return "", fmt.Errorf("session response missing token")
	}

	return body.AnonymousSessionToken, nil
}

// PreferencePayload is the request body for saving a location preference.
type PreferencePayload struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Source    string   `json:"source"`
}

// PreferenceResponse is the stored preference as returned by the backend.
type PreferenceResponse struct {
	LastKnownLatitude         float64   `json:"lastKnownLatitude"`
	LastKnownLongitude        float64   `json:"lastKnownLongitude"`
	LastKnownLocationAccuracy *float64  `json:"lastKnownLocationAccuracy,omitempty"`
	LocationSource            *string   `json:"locationSource,omitempty"`
	LastSetAtUtc              time.Time `json:"lastSetAtUtc"`
}

// LoadLocationPreference fetches the saved anonymous preference.
// Returns nil without error when no preference has been saved.
func (c *Client) LoadLocationPreference(ctx context.Context, token string) (*PreferenceResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/anonymous/preferences/location", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build preference request: %w", err)
	}
	req.Header.Set(AnonymousTokenHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preference load failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("preference load returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read preference response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}

	var pref PreferenceResponse
	if err := json.Unmarshal(raw, &pref); err != nil {
		return nil, fmt.Errorf("failed to decode preference response: %w", err)
	}

	return &pref, nil
}

// SaveLocationPreference persists a location preference for the
// anonymous identity behind token.
func (c *Client) SaveLocationPreference(ctx context.Context, token string, payload PreferencePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode preference payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/anonymous/preferences/location", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build preference save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AnonymousTokenHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("preference save failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("preference save returned status %d", resp.StatusCode)
	}
	return nil
}

// CartLine is one cart line as returned by the backend.
type CartLine struct {
	ProductSKU string  `json:"productSku"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
}

type cartResponse struct {
	Items []CartLine `json:"items"`
}

// FetchAnonymousCart loads the cart owned by the anonymous identity.
func (c *Client) FetchAnonymousCart(ctx context.Context, token string) ([]CartLine, error) {
	return c.fetchCart(ctx, c.baseURL+"/api/anonymous/cart", AnonymousTokenHeader, token)
}

// FetchUserCart loads the authenticated user's cart.
func (c *Client) FetchUserCart(ctx context.Context, userToken string) ([]CartLine, error) {
	return c.fetchCart(ctx, c.baseURL+"/api/users/me/cart", "Authorization", "Bearer "+userToken)
}

func (c *Client) fetchCart(ctx context.Context, url, header, value string) ([]CartLine, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cart request: %w", err)
	}
	req.Header.Set(header, value)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cart fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cart fetch returned status %d", resp.StatusCode)
	}

	var body cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode cart response: %w", err)
	}
	return body.Items, nil
}

// MergeDetails reports what a merge reconciled.
type MergeDetails struct {
	CartItemsMerged              int `json:"cartItemsMerged"`
	CartItemsSkippedOrConflicted int `json:"cartItemsSkippedOrConflicted,omitempty"`
	PreferencesMerged            int `json:"preferencesMerged"`
}

// MergeResult is the backend's report of an anonymous-to-user merge.
type MergeResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Details *MergeDetails `json:"details,omitempty"`
}

type mergeRequest struct {
	AnonymousSessionToken string `json:"anonymousSessionToken"`
}

// MergeAnonymousData asks the backend to reconcile the anonymous
// identity's data into the authenticated user's account.
func (c *Client) MergeAnonymousData(ctx context.Context, userToken, anonToken string) (*MergeResult, error) {
	body, err := json.Marshal(mergeRequest{AnonymousSessionToken: anonToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode merge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/users/me/merge-anonymous-data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build merge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userToken != "" {
		req.Header.Set("Authorization", "Bearer "+userToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("merge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("merge request returned status %d", resp.StatusCode)
	}

	var result MergeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode merge response: %w", err)
	}

	return &result, nil
}
