package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-server/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

const conversationColumns = `id, participants, is_group_chat, group_name, group_picture_url,
    admins, last_message_id, created_at, updated_at`

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv models.Conversation) (models.Conversation, error)
	Get(ctx context.Context, convID int64) (models.Conversation, error)
	FindOneToOne(ctx context.Context, userA, userB int64) (models.Conversation, error)
	Save(ctx context.Context, conv models.Conversation) error
	SetLastMessage(ctx context.Context, convID, messageID int64) error
	Delete(ctx context.Context, convID int64) error
	ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error)
	ListAll(ctx context.Context) ([]models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create stores a new conversation.
func (r *ConversationRepo) Create(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	var created models.Conversation
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO conversations (participants, is_group_chat, group_name, group_picture_url, admins)
         VALUES ($1, $2, $3, $4, $5) RETURNING `+conversationColumns,
		conv.Participants, conv.IsGroupChat, conv.GroupName, conv.GroupPictureURL, conv.Admins)
	return created, err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, convID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, convID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// FindOneToOne looks up the one-to-one conversation for a pair of users.
// Participants of one-to-one conversations are stored sorted, so the pair
// forms a canonical key.
func (r *ConversationRepo) FindOneToOne(ctx context.Context, userA, userB int64) (models.Conversation, error) {
	if userA > userB {
		userA, userB = userB, userA
	}
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations
         WHERE is_group_chat=FALSE AND participants=$1`,
		pq.Int64Array{userA, userB})
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// Save updates the conversation's membership and group fields.
func (r *ConversationRepo) Save(ctx context.Context, conv models.Conversation) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET participants=$2, admins=$3, group_name=$4, group_picture_url=$5, updated_at=NOW()
         WHERE id=$1`,
		conv.ID, conv.Participants, conv.Admins, conv.GroupName, conv.GroupPictureURL)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// SetLastMessage points the conversation at its most recent message.
func (r *ConversationRepo) SetLastMessage(ctx context.Context, convID, messageID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET last_message_id=$2, updated_at=NOW() WHERE id=$1`, convID, messageID)
	return err
}

// Delete removes a conversation; its messages cascade at the schema level.
func (r *ConversationRepo) Delete(ctx context.Context, convID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, convID)
	return err
}

// ListForUser returns the user's conversations, most recently active first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs,
		`SELECT `+conversationColumns+` FROM conversations
         WHERE participants @> $1 ORDER BY updated_at DESC`,
		pq.Int64Array{userID})
	return convs, err
}

// ListAll returns every conversation, most recently active first.
func (r *ConversationRepo) ListAll(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs,
		`SELECT `+conversationColumns+` FROM conversations ORDER BY updated_at DESC`)
	return convs, err
}
