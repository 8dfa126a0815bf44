package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Delivery targets one member; every open connection for that member
// receives the payload.
type Delivery struct {
	TargetUserID uuid.UUID
	Payload      []byte
}

// Hub tracks active member connections and fans realtime events out to
// them. Comment and message change events from the backing store are pushed
// through here to the members they concern.
type Hub struct {
	// Registered clients. Maps user ID to a set of active connections.
	Clients map[uuid.UUID]map[*Client]bool

	// Channel for sending events to specific members.
	SendDirect chan *Delivery

	// Channel for sending events to every connected member. Used for
	// comment changes, which any viewer of the photo may care about.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	logger *slog.Logger

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		SendDirect: make(chan *Delivery),
		Broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[uuid.UUID]map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	h.logger.Info("websocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.UserID]; !ok {
				h.Clients[client.UserID] = make(map[*Client]bool)
			}
			h.Clients[client.UserID][client] = true
			h.logger.Debug("websocket client registered",
				"user", client.UserID, "connections", len(h.Clients[client.UserID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if userClients, ok := h.Clients[client.UserID]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					if len(userClients) == 0 {
						delete(h.Clients, client.UserID)
					}
					h.logger.Debug("websocket client unregistered",
						"user", client.UserID, "remaining", len(userClients))
				}
			}
			h.mu.Unlock()

		case delivery := <-h.SendDirect:
			h.mu.RLock()
			for client := range h.Clients[delivery.TargetUserID] {
				select {
				case client.Send <- delivery.Payload:
				default:
					h.logger.Warn("send buffer full, dropping event", "user", client.UserID)
				}
			}
			h.mu.RUnlock()

		case payload := <-h.Broadcast:
			h.mu.RLock()
			for _, userClients := range h.Clients {
				for client := range userClients {
					select {
					case client.Send <- payload:
					default:
						h.logger.Warn("send buffer full, dropping event", "user", client.UserID)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Push queues an event for one member's connections. Safe to call from any
// goroutine.
func (h *Hub) Push(targetUserID uuid.UUID, payload []byte) {
	h.SendDirect <- &Delivery{TargetUserID: targetUserID, Payload: payload}
}

// PushAll queues an event for every connected member.
func (h *Hub) PushAll(payload []byte) {
	h.Broadcast <- payload
}
