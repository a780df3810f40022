// Package ws is the session gateway: one websocket per signed-in
// client, room membership per conversation, and fan-out of realtime
// events.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-server/internal/models"
	"chat-server/internal/observability"
)

// client is one registered websocket session. Writes are serialized
// through writeMu; gorilla connections do not allow concurrent writers.
type client struct {
	conn    *websocket.Conn
	info    ConnInfo
	writeMu sync.Mutex
}

func (c *client) send(event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub tracks active sessions and their conversation rooms.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[int64]map[*client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[int64]map[*client]bool),
	}
}

// Register adds a session to the hub.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[info.ConnID] = &client{conn: conn, info: info}
}

// Unregister drops a session and its room memberships.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cl, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for convID, members := range h.rooms {
		delete(members, cl)
		if len(members) == 0 {
			delete(h.rooms, convID)
		}
	}
}

// Join subscribes a session to a conversation room.
func (h *Hub) Join(connID string, convID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cl, ok := h.clients[connID]
	if !ok {
		return
	}
	if _, ok := h.rooms[convID]; !ok {
		h.rooms[convID] = make(map[*client]bool)
	}
	h.rooms[convID][cl] = true
}

// Leave unsubscribes a session from a conversation room.
func (h *Hub) Leave(connID string, convID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cl, ok := h.clients[connID]
	if !ok {
		return
	}
	if members, ok := h.rooms[convID]; ok {
		delete(members, cl)
		if len(members) == 0 {
			delete(h.rooms, convID)
		}
	}
}

// Broadcast sends an event to every session in a conversation room.
func (h *Hub) Broadcast(convID int64, event models.Event) {
	h.BroadcastExcept(convID, 0, event)
}

// BroadcastExcept sends an event to every session in a room except the
// one bound to excludeUserID.
func (h *Hub) BroadcastExcept(convID, excludeUserID int64, event models.Event) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[convID]))
	for cl := range h.rooms[convID] {
		if excludeUserID != 0 && cl.info.UserID == excludeUserID {
			continue
		}
		members = append(members, cl)
	}
	h.mu.RUnlock()

	for _, cl := range members {
		h.deliver(cl, event)
	}
}

// SendToConn sends an event to a single session.
func (h *Hub) SendToConn(connID string, event models.Event) {
	h.mu.RLock()
	cl, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(cl, event)
}

// SendToAll sends an event to every registered session.
func (h *Hub) SendToAll(event models.Event) {
	h.mu.RLock()
	all := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		all = append(all, cl)
	}
	h.mu.RUnlock()

	for _, cl := range all {
		h.deliver(cl, event)
	}
}

func (h *Hub) deliver(cl *client, event models.Event) {
	if err := cl.send(event); err != nil {
		log.Printf("websocket write error: %v", err)
		cl.conn.Close()
		h.Unregister(cl.info.ConnID)
		h.publishWSError(cl.info, err)
	}
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	_ = observability.Publish(context.Background(), observability.RouteSessions, observability.Envelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
	})
	observability.IncWSEvent("ws_error")
}
