package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"group-service/internal/models"
	"group-service/internal/observability"
	"group-service/internal/registry"
)

// client pairs a connection with its metadata and a write lock; gorilla
// connections allow only one concurrent writer.
type client struct {
	info ConnInfo
	mu   sync.Mutex
}

// Hub maintains one room per active group. It implements
// registry.RoomNotifier so membership changes reach live connections.
type Hub struct {
	rooms map[int]map[*websocket.Conn]*client
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]map[*websocket.Conn]*client)}
}

// Add registers a connection in a group's room.
func (h *Hub) Add(groupID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[groupID]; !ok {
		h.rooms[groupID] = make(map[*websocket.Conn]*client)
	}
	h.rooms[groupID][conn] = &client{info: info}
}

// Remove unregisters a connection. Safe to call twice; empty rooms are
// dropped.
func (h *Hub) Remove(groupID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[groupID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, groupID)
		}
	}
}

// Broadcast delivers an event to every connection in a room, the sender's
// included. Connections that fail to write are closed and dropped without
// blocking delivery to the rest of the room.
func (h *Hub) Broadcast(groupID int, event models.RoomEvent) {
	for conn, cl := range h.snapshot(groupID) {
		h.write(groupID, conn, cl, event)
	}
	observability.IncWSEvent(event.Event)
}

// SendTo delivers an event to a single connection, used for per-sender
// error frames.
func (h *Hub) SendTo(groupID int, conn *websocket.Conn, event models.RoomEvent) {
	h.mu.RLock()
	cl, ok := h.rooms[groupID][conn]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.write(groupID, conn, cl, event)
}

// MemberRemoved implements registry.RoomNotifier. Kicked and banned users
// get a room event naming the reason before their connections close;
// voluntary departures are closed silently.
func (h *Hub) MemberRemoved(groupID, userID int, reason registry.RemovalReason) {
	var event *models.RoomEvent
	switch reason {
	case registry.ReasonKicked:
		event = &models.RoomEvent{Event: models.RoomEventKicked, Reason: string(reason)}
	case registry.ReasonBanned:
		event = &models.RoomEvent{Event: models.RoomEventBanned, Reason: string(reason)}
	}

	for conn, cl := range h.snapshot(groupID) {
		if cl.info.UserID != userID {
			continue
		}
		if event != nil {
			h.write(groupID, conn, cl, *event)
			observability.IncWSEvent(event.Event)
		}
		conn.Close()
		h.Remove(groupID, conn)
	}
}

// GroupDeleted implements registry.RoomNotifier: the room is torn down and
// every connection receives a close event first.
func (h *Hub) GroupDeleted(groupID int) {
	event := models.RoomEvent{Event: models.RoomEventGroupDeleted, Reason: string(registry.ReasonGroupDeleted)}
	for conn, cl := range h.snapshot(groupID) {
		h.write(groupID, conn, cl, event)
		conn.Close()
	}
	observability.IncWSEvent(models.RoomEventGroupDeleted)

	h.mu.Lock()
	delete(h.rooms, groupID)
	h.mu.Unlock()
}

// IsUserOnline reports whether the user holds any live connection.
func (h *Hub) IsUserOnline(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.rooms {
		for _, cl := range conns {
			if cl.info.UserID == userID {
				return true
			}
		}
	}
	return false
}

func (h *Hub) snapshot(groupID int) map[*websocket.Conn]*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make(map[*websocket.Conn]*client, len(h.rooms[groupID]))
	for conn, cl := range h.rooms[groupID] {
		conns[conn] = cl
	}
	return conns
}

func (h *Hub) write(groupID int, conn *websocket.Conn, cl *client, event models.RoomEvent) {
	payload, _ := json.Marshal(event)

	cl.mu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, payload)
	cl.mu.Unlock()
	if err != nil {
		log.Printf("websocket write error: %v", err)
		conn.Close()
		h.Remove(groupID, conn)
		h.publishWSError(groupID, cl.info, err)
	}
}

func (h *Hub) publishWSError(groupID int, info ConnInfo, err error) {
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), roomRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   lifecyclePayload(groupID, info, "ws_error", time.Since(info.ConnectedAt), err.Error()),
	}, headers)
	observability.IncWSEvent("ws_error")
}

const roomRoutingKey = "ws_events.rooms"

func lifecyclePayload(groupID int, info ConnInfo, event string, connected time.Duration, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"group_id":    groupID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": connected.Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
