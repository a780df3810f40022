package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-server/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// selectMessage joins sender details so callers can render without an
// extra lookup. Sender columns are empty for system messages.
const selectMessage = `SELECT m.id, m.conversation_id, m.sender_id,
    COALESCE(u.full_name, '') AS sender_name,
    COALESCE(u.avatar_url, '') AS sender_avatar,
    m.content, m.message_type, m.file_url, m.file_type, m.file_name, m.status,
    m.is_edited, m.deleted_at, m.reply_to, m.reply_snippet, m.reply_sender_name,
    m.read_by, m.reactions, m.created_at
    FROM messages m LEFT JOIN users u ON u.id = m.sender_id`

// MessageRepository abstracts message persistence.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	Get(ctx context.Context, messageID int64) (models.Message, error)
	ListPage(ctx context.Context, convID int64, page, limit int) ([]models.Message, error)
	ListForConversation(ctx context.Context, convID int64) ([]models.Message, error)
	Search(ctx context.Context, convID int64, query string) ([]models.Message, error)
	Save(ctx context.Context, msg models.Message) error
	UpdateStatus(ctx context.Context, messageID int64, status string) error
	MarkConversationRead(ctx context.Context, convID, readerID int64) (int64, error)
	AddReadBy(ctx context.Context, convID, userID int64) (int64, error)
	CountUnread(ctx context.Context, convID, userID int64) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message and returns it with sender details attached.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	var id int64
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content, message_type, file_url, file_type,
             file_name, status, reply_to, reply_snippet, reply_sender_name, read_by, reactions)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		msg.ConversationID, msg.SenderID, msg.Content, msg.MessageType, msg.FileURL, msg.FileType,
		msg.FileName, msg.Status, msg.ReplyTo, msg.ReplySnippet, msg.ReplySenderName,
		msg.ReadBy, msg.Reactions).Scan(&id)
	if err != nil {
		return models.Message{}, err
	}
	return r.Get(ctx, id)
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, selectMessage+` WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListPage returns one page of a conversation's messages, newest first.
func (r *MessageRepo) ListPage(ctx context.Context, convID int64, page, limit int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 30
	}
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		selectMessage+` WHERE m.conversation_id=$1 ORDER BY m.created_at DESC LIMIT $2 OFFSET $3`,
		convID, limit, (page-1)*limit)
	return msgs, err
}

// ListForConversation returns every message oldest-first, for admin viewing.
func (r *MessageRepo) ListForConversation(ctx context.Context, convID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		selectMessage+` WHERE m.conversation_id=$1 ORDER BY m.created_at ASC`, convID)
	return msgs, err
}

// Search finds non-deleted messages matching the query, newest first.
func (r *MessageRepo) Search(ctx context.Context, convID int64, query string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		selectMessage+` WHERE m.conversation_id=$1 AND m.deleted_at IS NULL AND m.content ILIKE '%' || $2 || '%'
         ORDER BY m.created_at DESC`,
		convID, query)
	return msgs, err
}

// Save updates a message's mutable fields in place.
func (r *MessageRepo) Save(ctx context.Context, msg models.Message) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content=$2, file_url=$3, file_type=$4, file_name=$5, status=$6,
             is_edited=$7, deleted_at=$8, read_by=$9, reactions=$10
         WHERE id=$1`,
		msg.ID, msg.Content, msg.FileURL, msg.FileType, msg.FileName, msg.Status,
		msg.IsEdited, msg.DeletedAt, msg.ReadBy, msg.Reactions)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// UpdateStatus advances a message's delivery status.
func (r *MessageRepo) UpdateStatus(ctx context.Context, messageID int64, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$2 WHERE id=$1`, messageID, status)
	return err
}

// MarkConversationRead marks every message in the conversation that was
// not sent by the reader and is not already read: status becomes read and
// the reader joins read_by. Both updates are idempotent; the row count of
// the first call is the number of newly read messages.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, convID, readerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status='read',
             read_by = CASE WHEN $2 = ANY(read_by) THEN read_by ELSE array_append(read_by, $2) END
         WHERE conversation_id=$1 AND sender_id IS DISTINCT FROM $2 AND status <> 'read'`,
		convID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AddReadBy appends the user to read_by on every message they have not
// read yet, without touching delivery status. Used by the REST catch-up.
func (r *MessageRepo) AddReadBy(ctx context.Context, convID, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read_by = array_append(read_by, $2)
         WHERE conversation_id=$1 AND NOT ($2 = ANY(read_by))`,
		convID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUnread counts messages the user has neither sent nor read.
func (r *MessageRepo) CountUnread(ctx context.Context, convID, userID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages
         WHERE conversation_id=$1 AND NOT ($2 = ANY(read_by)) AND sender_id IS DISTINCT FROM $2`,
		convID, userID)
	return count, err
}
