package models

import (
	"time"

	"github.com/lib/pq"
)

// Conversation is either a one-to-one chat (exactly two participants,
// empty admin set) or a group chat. For group chats the admin set is a
// non-empty subset of the participants whenever participants exist.
type Conversation struct {
	ID              int64         `db:"id" json:"id"`
	Participants    pq.Int64Array `db:"participants" json:"participants"`
	IsGroupChat     bool          `db:"is_group_chat" json:"is_group_chat"`
	GroupName       string        `db:"group_name" json:"group_name,omitempty"`
	GroupPictureURL string        `db:"group_picture_url" json:"group_picture_url,omitempty"`
	Admins          pq.Int64Array `db:"admins" json:"admins"`
	LastMessageID   *int64        `db:"last_message_id" json:"last_message_id,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c Conversation) HasParticipant(userID int64) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// HasAdmin reports whether the user is a group admin.
func (c Conversation) HasAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the counterpart in a one-to-one conversation.
func (c Conversation) OtherParticipant(userID int64) (int64, bool) {
	for _, id := range c.Participants {
		if id != userID {
			return id, true
		}
	}
	return 0, false
}

// ConversationSummary is the list view of a conversation for one user.
type ConversationSummary struct {
	Conversation
	UnreadCount int64    `json:"unread_count"`
	LastMessage *Message `json:"last_message,omitempty"`
}
