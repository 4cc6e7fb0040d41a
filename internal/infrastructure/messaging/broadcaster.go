package messaging

import (
	"encoding/json"
	"sync"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
)

// StatusClient represents a single connected status feed subscriber.
type StatusClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

type statusMessage struct {
	Status session.Status `json:"status"`
}

// StatusBroadcaster fans session status changes out to every connected
// feed subscriber. New subscribers receive the current status on
// registration so they never have to wait for the next transition.
type StatusBroadcaster struct {
	clients    map[*StatusClient]bool
	register   chan *StatusClient
	unregister chan *StatusClient
	publish    chan session.Status
	logger     *logging.ChanneledLogger

	mu      sync.RWMutex
	current session.Status
}

// NewStatusBroadcaster creates a new broadcaster instance.
func NewStatusBroadcaster(logger *logging.ChanneledLogger) *StatusBroadcaster {
	return &StatusBroadcaster{
		clients:    make(map[*StatusClient]bool),
		register:   make(chan *StatusClient),
		unregister: make(chan *StatusClient),
		publish:    make(chan session.Status, 8),
		logger:     logger,
		current:    session.StatusUnauthenticated,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *StatusBroadcaster) Run() {
	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			current := b.current
			b.mu.Unlock()
			b.logger.HTTP().Debug("Status feed client registered")

			if message, err := json.Marshal(statusMessage{Status: current}); err == nil {
				select {
				case client.Send <- message:
				default:
				}
			}

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			b.logger.HTTP().Debug("Status feed client unregistered")

		case status := <-b.publish:
			b.mu.Lock()
			b.current = status
			b.mu.Unlock()

			message, err := json.Marshal(statusMessage{Status: status})
			if err != nil {
				b.logger.HTTP().Error("Failed to marshal status message", "error", err.Error())
				continue
			}

			b.mu.RLock()
			for client := range b.clients {
				select {
				case client.Send <- message:
				default:
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Register queues a client for registration.
func (b *StatusBroadcaster) Register(client *StatusClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *StatusBroadcaster) Unregister(client *StatusClient) {
	b.unregister <- client
}

// Publish announces a session status change to all subscribers.
func (b *StatusBroadcaster) Publish(status session.Status) {
	b.publish <- status
}

// Current returns the last published status.
func (b *StatusBroadcaster) Current() session.Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}
