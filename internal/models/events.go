package models

// Realtime event types.
const (
	EventNewMessage       = "new_message"
	EventMessageDelivered = "message_delivered"
	EventMessageUpdated   = "message_updated"
	EventAllRead          = "all_read"
	EventUserTyping       = "user_typing"
	EventOnlineUsers      = "online_users"
	EventError            = "error"
)

// Event is broadcast through websockets.
type Event struct {
	Type           string   `json:"type"`
	Message        *Message `json:"message,omitempty"`
	MessageID      int64    `json:"message_id,omitempty"`
	ConversationID int64    `json:"conversation_id,omitempty"`
	UserID         int64    `json:"user_id,omitempty"`
	UserIDs        []int64  `json:"user_ids,omitempty"`
	IsTyping       bool     `json:"is_typing,omitempty"`
	Error          string   `json:"error,omitempty"`
}
