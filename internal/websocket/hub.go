package websocket

import (
	"context"
	"sync"

	"order-cancellation-be/internal/pkg/logger"
	"order-cancellation-be/pkg/eventbus"

	"github.com/google/uuid"
)

// Hub fans pipeline events out to connected operator dashboards. Every
// frame is an event envelope straight off the internal bus; clients are
// read-only listeners.
type Hub struct {
	// Registered clients, one per connection.
	clients map[uuid.UUID]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Internal event bus feeding the live feed.
	bus *eventbus.Bus

	logger logger.ILogger
}

func NewHub(bus *eventbus.Bus, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]*Client),
		bus:        bus,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.bus != nil {
		go h.relayBusEvents()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID})
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount reports how many dashboards are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// relayBusEvents drains the fan-in subscription and broadcasts every
// envelope. Runs for the life of the process.
func (h *Hub) relayBusEvents() {
	msgs, err := h.bus.SubscribeAll(context.Background())
	if err != nil {
		h.logger.Error("Hub", "Failed to subscribe to event bus", map[string]interface{}{"error": err.Error()})
		return
	}

	for msg := range msgs {
		h.Broadcast(msg.Payload)
		msg.Ack()
	}
}

// Broadcast sends one frame to every connected client. A client whose send
// buffer is full just misses the frame; its pumps tear the connection down
// if it is actually dead.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping frame", map[string]interface{}{"client_id": client.ID})
		}
	}
}
