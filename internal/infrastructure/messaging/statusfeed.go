// Package messaging connects the storefront core to the identity
// provider's session-status stream. The provider pushes status events
// over a websocket; StatusFeed turns them into a channel of Status
// values the auth-transition coordinator consumes.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
)

// statusEvent is one message on the identity provider's stream.
type statusEvent struct {
	Status string `json:"status"`
}

// StatusFeed subscribes to the identity provider's session-status stream.
type StatusFeed struct {
	url     string
	logger  *logging.ChanneledLogger
	updates chan session.Status
}

// NewStatusFeed creates a feed for the given websocket URL.
func NewStatusFeed(url string, logger *logging.ChanneledLogger) *StatusFeed {
	return &StatusFeed{
		url:     url,
		logger:  logger,
		updates: make(chan session.Status, 8),
	}
}

// Updates returns the channel of observed status values. The channel is
// closed when Run returns.
func (f *StatusFeed) Updates() <-chan session.Status {
	return f.updates
}

// Run dials the stream and forwards status events until the context is
// canceled or the connection drops. The caller owns reconnection policy.
func (f *StatusFeed) Run(ctx context.Context) error {
	defer close(f.updates)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial status feed: %w", err)
	}
	defer conn.Close()

	f.logger.Auth().Info("Session status feed connected", "url", f.url)

	// Unblock ReadMessage when the context ends. The done channel
	// releases the watcher when Run returns first, so reconnect
	// attempts do not stack goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("status feed read failed: %w", err)
		}

		var event statusEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			f.logger.Auth().Warn("Discarding malformed status event", "error", err.Error())
			continue
		}

		status := session.Status(event.Status)
		switch status {
		case session.StatusLoading, session.StatusAuthenticated, session.StatusUnauthenticated:
		default:
			f.logger.Auth().Warn("Discarding unknown session status", "status", event.Status)
			continue
		}

		select {
		case f.updates <- status:
		case <-ctx.Done():
			return nil
		}
	}
}
