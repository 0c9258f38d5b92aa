package websocket

import (
	"encoding/json"
	"sync"
)

const (
	EventPurchase  = "purchase"
	EventInventory = "inventory"
	EventCredits   = "credits"
)

// InventoryUpdate is pushed to a forum user's open sockets after a commit.
type InventoryUpdate struct {
	UserID        int64  `json:"user_id"`
	Event         string `json:"event"`
	Credits       string `json:"credits,omitempty"`
	TransactionID *int64 `json:"transaction_id,omitempty"`
}

// Hub tracks sockets per external forum user id.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	origins map[string]struct{}
}

func NewHub(allowedOrigins []string) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
	}
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		origins: origins,
	}
}

func (h *Hub) Register(userID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastInventory never blocks; slow clients miss updates.
func (h *Hub) BroadcastInventory(update InventoryUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[update.UserID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

func (h *Hub) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	if _, ok := h.origins["*"]; ok {
		return true
	}
	_, ok := h.origins[origin]
	return ok
}
