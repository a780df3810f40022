package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo identifies one websocket session. UserID is zero for
// anonymous sessions.
type ConnInfo struct {
	ConnID      string
	UserID      int64
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
