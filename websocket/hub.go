package websocket

import (
	"database/sql"
	"encoding/json"
	"sync"

	"quickchat/service"
)

// Hub tracks every connected socket grouped into per-user rooms. A user's
// room holds all of their active connections; emitting to the room reaches
// each one. Delivery is fire-and-forget: with no connected socket the event
// is dropped, never queued.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	db       *sql.DB
	messages *service.MessageService
}

// Event is the wire frame for both directions.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type clientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Bind wires the storage handles the relay protocol needs. Called once at
// startup, after the services are constructed with the hub as their notifier.
func (h *Hub) Bind(db *sql.DB, messages *service.MessageService) {
	h.db = db
	h.messages = messages
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if h.rooms[client.UserID] == nil {
				h.rooms[client.UserID] = make(map[*Client]bool)
			}
			h.rooms[client.UserID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			var lastConn bool
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				if h.rooms[client.UserID] != nil {
					delete(h.rooms[client.UserID], client)
					if len(h.rooms[client.UserID]) == 0 {
						delete(h.rooms, client.UserID)
						lastConn = true
					}
				}
				close(client.Send)
			}
			h.mu.Unlock()

			if lastConn {
				// Off the hub goroutine: the broadcast reads the database and
				// re-enters EmitToUser, which must never block Run.
				go h.broadcastPresence(client.UserID, false)
			}
		}
	}
}

// EmitToUser implements service.Notifier.
func (h *Hub) EmitToUser(userID, event string, data interface{}) {
	payload, err := json.Marshal(&Event{Event: event, Data: data})
	if err != nil {
		return
	}

	// The room map is iterated under the read lock; Run mutates it under the
	// write lock. Stale clients are kicked with a non-blocking send so a full
	// buffer can never wedge the caller, whichever goroutine it is.
	var stale []*Client
	h.mu.RLock()
	for client := range h.rooms[userID] {
		select {
		case client.Send <- payload:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		select {
		case h.unregister <- client:
		default:
		}
	}
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}

// broadcastPresence fans a user-status-change out to the user's friends.
// Presence is advisory: it reflects socket connectivity or a client
// assertion, nothing stronger.
func (h *Hub) broadcastPresence(userID string, online bool) {
	if h.db == nil {
		return
	}

	rows, err := h.db.Query(
		"SELECT IF(user_lo = ?, user_hi, user_lo) FROM friendships WHERE user_lo = ? OR user_hi = ?",
		userID, userID, userID,
	)
	if err != nil {
		return
	}
	defer rows.Close()

	data := map[string]interface{}{"user_id": userID, "online": online}
	for rows.Next() {
		var friendID string
		if err := rows.Scan(&friendID); err == nil {
			h.EmitToUser(friendID, "user-status-change", data)
		}
	}
}
