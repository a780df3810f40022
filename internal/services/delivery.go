package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"

	"chat-server/internal/models"
	"chat-server/internal/repositories"
	"chat-server/internal/storage"
)

// Tombstone contents written over deleted and moderated messages.
const (
	DeletedByUserContent  = "This message was deleted"
	DeletedByAdminContent = "This message was removed by an administrator."
)

// PresenceLookup is the slice of the presence registry the delivery
// engine needs: whether a user has an active session.
type PresenceLookup interface {
	SessionFor(userID int64) (string, bool)
}

// DeliveryService moves messages through the pipeline: submission with
// delivery status, edits, deletions and history reads.
type DeliveryService struct {
	convs    repositories.ConversationRepository
	msgs     repositories.MessageRepository
	presence PresenceLookup
	blobs    storage.BlobStore
}

// NewDeliveryService constructs a DeliveryService.
func NewDeliveryService(convs repositories.ConversationRepository, msgs repositories.MessageRepository,
	presence PresenceLookup, blobs storage.BlobStore) *DeliveryService {
	return &DeliveryService{convs: convs, msgs: msgs, presence: presence, blobs: blobs}
}

// SubmitInput is one message submission.
type SubmitInput struct {
	ConversationID int64
	Content        string
	MessageType    string
	File           *models.FileRef
	Reply          *models.ReplyRef
}

// Submit persists a message and fans it out. In a one-to-one
// conversation the message starts as delivered when the counterpart has
// an active session at send time, otherwise sent; the status is never
// upgraded retroactively on reconnect.
func (s *DeliveryService) Submit(ctx context.Context, senderID int64, in SubmitInput) (models.Message, []Effect, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && in.File == nil {
		return models.Message{}, nil, fmt.Errorf("%w: empty message", ErrValidation)
	}
	msgType := in.MessageType
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	switch msgType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeAudio, models.MessageTypeVideo:
	default:
		return models.Message{}, nil, fmt.Errorf("%w: unknown message type %q", ErrValidation, msgType)
	}
	conv, err := s.participantConversation(ctx, senderID, in.ConversationID)
	if err != nil {
		return models.Message{}, nil, err
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       &senderID,
		Content:        content,
		MessageType:    msgType,
		Status:         models.StatusSent,
		ReadBy:         pq.Int64Array{senderID},
	}
	if in.File != nil {
		msg.FileURL = in.File.URL
		msg.FileType = in.File.Type
		msg.FileName = in.File.Name
	}
	if in.Reply != nil {
		msg.ReplyTo = &in.Reply.MessageID
		msg.ReplySnippet = in.Reply.Snippet
		msg.ReplySenderName = in.Reply.SenderName
	}
	created, err := s.msgs.Create(ctx, msg)
	if err != nil {
		return models.Message{}, nil, err
	}
	if err := s.convs.SetLastMessage(ctx, conv.ID, created.ID); err != nil {
		return models.Message{}, nil, err
	}

	// The room broadcast always carries the message as persisted, with
	// status sent; the delivered upgrade is a second write issued after
	// it, acknowledged to the sender only.
	roomMsg := created
	effects := []Effect{broadcast(conv.ID, models.Event{Type: models.EventNewMessage, Message: &roomMsg})}

	if !conv.IsGroupChat {
		if other, ok := conv.OtherParticipant(senderID); ok {
			if _, online := s.presence.SessionFor(other); online {
				if err := s.msgs.UpdateStatus(ctx, created.ID, models.StatusDelivered); err != nil {
					return models.Message{}, nil, err
				}
				created.Status = models.StatusDelivered
				effects = append(effects, notify(senderID, models.Event{
					Type:           models.EventMessageDelivered,
					MessageID:      created.ID,
					ConversationID: conv.ID,
				}))
			}
		}
	}
	return created, effects, nil
}

// Edit rewrites a message's text. Only the sender may edit, and only
// text messages that are still present.
func (s *DeliveryService) Edit(ctx context.Context, userID, messageID int64, content string) (models.Message, []Effect, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, nil, fmt.Errorf("%w: empty message", ErrValidation)
	}
	msg, err := s.msgs.Get(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, nil, fmt.Errorf("%w: message %d", ErrNotFound, messageID)
	}
	if err != nil {
		return models.Message{}, nil, err
	}
	if !msg.SentBy(userID) {
		return models.Message{}, nil, fmt.Errorf("%w: only the sender can edit", ErrForbidden)
	}
	if msg.DeletedAt != nil {
		return models.Message{}, nil, fmt.Errorf("%w: message was deleted", ErrConflict)
	}
	if msg.MessageType != models.MessageTypeText {
		return models.Message{}, nil, fmt.Errorf("%w: only text messages can be edited", ErrValidation)
	}
	msg.Content = content
	msg.IsEdited = true
	if err := s.msgs.Save(ctx, msg); err != nil {
		return models.Message{}, nil, err
	}
	return msg, []Effect{broadcast(msg.ConversationID, models.Event{Type: models.EventMessageUpdated, Message: &msg})}, nil
}

// Delete tombstones the sender's own message and removes its
// attachment best-effort.
func (s *DeliveryService) Delete(ctx context.Context, userID, messageID int64) (models.Message, []Effect, error) {
	msg, err := s.msgs.Get(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, nil, fmt.Errorf("%w: message %d", ErrNotFound, messageID)
	}
	if err != nil {
		return models.Message{}, nil, err
	}
	if !msg.SentBy(userID) {
		return models.Message{}, nil, fmt.Errorf("%w: only the sender can delete", ErrForbidden)
	}
	return s.tombstone(ctx, msg, DeletedByUserContent)
}

// Moderate tombstones any message on behalf of a platform
// administrator. Authorization happens at the handler.
func (s *DeliveryService) Moderate(ctx context.Context, messageID int64) (models.Message, []Effect, error) {
	msg, err := s.msgs.Get(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, nil, fmt.Errorf("%w: message %d", ErrNotFound, messageID)
	}
	if err != nil {
		return models.Message{}, nil, err
	}
	return s.tombstone(ctx, msg, DeletedByAdminContent)
}

// History returns a page of a conversation's live messages,
// newest-first, for a participant.
func (s *DeliveryService) History(ctx context.Context, userID, convID int64, page, limit int) ([]models.Message, error) {
	if _, err := s.participantConversation(ctx, userID, convID); err != nil {
		return nil, err
	}
	return s.msgs.ListPage(ctx, convID, page, limit)
}

// Search finds live messages in a conversation matching the query.
func (s *DeliveryService) Search(ctx context.Context, userID, convID int64, query string) ([]models.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", ErrValidation)
	}
	if _, err := s.participantConversation(ctx, userID, convID); err != nil {
		return nil, err
	}
	return s.msgs.Search(ctx, convID, query)
}

func (s *DeliveryService) tombstone(ctx context.Context, msg models.Message, content string) (models.Message, []Effect, error) {
	if msg.DeletedAt != nil {
		return models.Message{}, nil, fmt.Errorf("%w: message already deleted", ErrConflict)
	}
	fileURL := msg.FileURL
	now := nowFunc()
	msg.Content = content
	msg.MessageType = models.MessageTypeText
	msg.FileURL = ""
	msg.FileType = ""
	msg.FileName = ""
	msg.Reactions = nil
	msg.DeletedAt = &now
	if err := s.msgs.Save(ctx, msg); err != nil {
		return models.Message{}, nil, err
	}
	if fileURL != "" && s.blobs != nil {
		if err := s.blobs.Remove(ctx, fileURL); err != nil {
			log.Printf("remove attachment for message %d: %v", msg.ID, err)
		}
	}
	return msg, []Effect{broadcast(msg.ConversationID, models.Event{Type: models.EventMessageUpdated, Message: &msg})}, nil
}

func (s *DeliveryService) participantConversation(ctx context.Context, userID, convID int64) (models.Conversation, error) {
	conv, err := s.convs.Get(ctx, convID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, fmt.Errorf("%w: conversation %d", ErrNotFound, convID)
	}
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.HasParticipant(userID) {
		return models.Conversation{}, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	return conv, nil
}
