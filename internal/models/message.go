package models

import "time"

// Message is an immutable, append-only chat message. Seq is assigned at
// persistence time and is strictly monotonic within a group; it resolves
// cross-sender ordering by server receipt order.
type Message struct {
	ID        int       `db:"id" json:"id"`
	GroupID   int       `db:"group_id" json:"eventGroupId"`
	Seq       int       `db:"seq" json:"seq"`
	SenderID  int       `db:"sender_id" json:"senderId"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// MessageView decorates a message with read-time sender state. SenderBanned
// and SenderLeft are derived by joining against live group state, never
// stored per message.
type MessageView struct {
	Message
	SenderUsername string `json:"senderUsername"`
	SenderBanned   bool   `json:"senderBanned"`
	SenderLeft     bool   `json:"senderLeft"`
}

// Room event names pushed to websocket clients.
const (
	RoomEventMessage      = "message"
	RoomEventKicked       = "kicked"
	RoomEventBanned       = "banned"
	RoomEventGroupDeleted = "group_deleted"
	RoomEventError        = "error"
)

// RoomEvent is emitted over websocket connections for group rooms.
type RoomEvent struct {
	Event   string       `json:"event"`
	Message *MessageView `json:"data,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}

// ClientFrame is an inbound websocket frame. The only event clients may send
// is "sendMessage"; the senderId field is legacy and ignored when the
// connection carries a verified token.
type ClientFrame struct {
	Event string          `json:"event"`
	Data  SendMessageData `json:"data"`
}

// SendMessageData is the payload of a sendMessage frame.
type SendMessageData struct {
	EventGroupID int    `json:"eventGroupId"`
	SenderID     int    `json:"senderId"`
	Content      string `json:"content"`
}
