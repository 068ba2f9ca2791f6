package ws

import "time"

// ConnInfo is the per-connection metadata captured at handshake time.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
