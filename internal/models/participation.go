package models

import "time"

// EventParticipation records a user's intent to attend an external event.
// Unique per (user, event); owned by the participation ledger.
type EventParticipation struct {
	UserID    int       `db:"user_id" json:"userId"`
	EventID   string    `db:"event_id" json:"eventId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
