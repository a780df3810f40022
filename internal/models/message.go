package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

// Message type tags.
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeAudio  = "audio"
	MessageTypeVideo  = "video"
	MessageTypeSystem = "system"
)

// Delivery status values. Meaningful for one-to-one conversations only;
// group unread state lives in ReadBy.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Reaction is a single per-user emoji reaction. A user has at most one
// reaction per message.
type Reaction struct {
	Emoji    string `json:"emoji"`
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

// ReactionList stores reactions as a JSONB column.
type ReactionList []Reaction

func (r ReactionList) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

func (r *ReactionList) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("reactions: unsupported scan type")
	}
	return json.Unmarshal(data, r)
}

// Message is one entry in a conversation. SenderID is nil for system
// messages. SenderName and SenderAvatar are joined from the users table
// on read and never written back.
type Message struct {
	ID              int64         `db:"id" json:"id"`
	ConversationID  int64         `db:"conversation_id" json:"conversation_id"`
	SenderID        *int64        `db:"sender_id" json:"sender_id,omitempty"`
	SenderName      string        `db:"sender_name" json:"sender_name,omitempty"`
	SenderAvatar    string        `db:"sender_avatar" json:"sender_avatar,omitempty"`
	Content         string        `db:"content" json:"content"`
	MessageType     string        `db:"message_type" json:"message_type"`
	FileURL         string        `db:"file_url" json:"file_url,omitempty"`
	FileType        string        `db:"file_type" json:"file_type,omitempty"`
	FileName        string        `db:"file_name" json:"file_name,omitempty"`
	Status          string        `db:"status" json:"status"`
	IsEdited        bool          `db:"is_edited" json:"is_edited"`
	DeletedAt       *time.Time    `db:"deleted_at" json:"deleted_at,omitempty"`
	ReplyTo         *int64        `db:"reply_to" json:"reply_to,omitempty"`
	ReplySnippet    string        `db:"reply_snippet" json:"reply_snippet,omitempty"`
	ReplySenderName string        `db:"reply_sender_name" json:"reply_sender_name,omitempty"`
	ReadBy          pq.Int64Array `db:"read_by" json:"read_by"`
	Reactions       ReactionList  `db:"reactions" json:"reactions"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// SentBy reports whether the message was sent by the given user.
// System messages have no sender and match nobody.
func (m Message) SentBy(userID int64) bool {
	return m.SenderID != nil && *m.SenderID == userID
}

// FileRef describes an uploaded attachment as returned by the blob store.
type FileRef struct {
	URL  string `json:"file_url"`
	Type string `json:"file_type"`
	Name string `json:"file_name"`
}

// ReplyRef carries the denormalized reply context a client sends along
// with a new message, avoiding a join when rendering the reply preview.
type ReplyRef struct {
	MessageID  int64  `json:"message_id"`
	Snippet    string `json:"snippet"`
	SenderName string `json:"sender_name"`
}
