package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrHubStopped is returned by Send once Run has returned.
var ErrHubStopped = errors.New("notification hub stopped")

// Hub maintains the set of active clients keyed by recipient and delivers
// messages to every connection of a recipient.
type Hub struct {
	// Registered clients organized by recipient key
	clients map[string]map[*Client]bool

	// Outbound messages waiting for delivery
	deliver chan *Envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for concurrent access to clients map
	mu sync.RWMutex

	logger zerolog.Logger
}

// Envelope is one payload addressed to a recipient key such as "student:12".
type Envelope struct {
	Recipient string
	Data      []byte
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		deliver:    make(chan *Envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and deliveries until ctx is cancelled, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.deliver:
			h.deliverMessage(env)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	close(h.done)
	for recipient, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, recipient)
	}
	h.logger.Info().Msg("Notification hub stopped")
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.recipient]; !ok {
		h.clients[client.recipient] = make(map[*Client]bool)
	}
	h.clients[client.recipient][client] = true

	h.logger.Info().
		Str("recipient", client.recipient).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.recipient]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.recipient)
	}

	h.logger.Info().
		Str("recipient", client.recipient).
		Msg("Client unregistered")
}

// deliverMessage sends to every connection of the recipient. Clients with a
// full buffer are dropped.
func (h *Hub) deliverMessage(env *Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[env.Recipient]
	if !ok {
		h.logger.Debug().
			Str("recipient", env.Recipient).
			Msg("No connected clients for recipient")
		return
	}

	for client := range clients {
		select {
		case client.send <- env.Data:
		default:
			h.removeLocked(client)
		}
	}

	h.logger.Debug().
		Str("recipient", env.Recipient).
		Int("clientCount", len(clients)).
		Msg("Message delivered")
}

// Send queues data for every connection of recipient.
func (h *Hub) Send(ctx context.Context, recipient string, data []byte) error {
	select {
	case h.deliver <- &Envelope{Recipient: recipient, Data: data}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of open connections of a recipient
func (h *Hub) ClientCount(recipient string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[recipient])
}
