package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-server/internal/models"
	"chat-server/internal/repositories"
)

var nowFunc = time.Now

// NotifierService handles read receipts, reactions and typing
// indicators.
type NotifierService struct {
	convs repositories.ConversationRepository
	msgs  repositories.MessageRepository
	users repositories.UserRepository
}

// NewNotifierService constructs a NotifierService.
func NewNotifierService(convs repositories.ConversationRepository, msgs repositories.MessageRepository,
	users repositories.UserRepository) *NotifierService {
	return &NotifierService{convs: convs, msgs: msgs, users: users}
}

// MarkRead marks every message in the conversation not sent by the
// reader as read. Repeat calls are no-ops and emit nothing. The read
// receipt goes to the one-to-one counterpart's session directly, so
// they get it even when not subscribed to the room; group reads stay
// silent.
func (s *NotifierService) MarkRead(ctx context.Context, userID, convID int64) ([]Effect, error) {
	conv, err := s.memberConversation(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	affected, err := s.msgs.MarkConversationRead(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	if affected == 0 || conv.IsGroupChat {
		return nil, nil
	}
	other, ok := conv.OtherParticipant(userID)
	if !ok {
		return nil, nil
	}
	return []Effect{notify(other, models.Event{
		Type:           models.EventAllRead,
		ConversationID: convID,
		UserID:         userID,
	})}, nil
}

// AcknowledgeRead is the REST catch-up variant: it records the reader
// in read_by without advancing delivery status or emitting events, so a
// client syncing over HTTP does not fire receipts for the other side.
func (s *NotifierService) AcknowledgeRead(ctx context.Context, userID, convID int64) error {
	if _, err := s.memberConversation(ctx, userID, convID); err != nil {
		return err
	}
	_, err := s.msgs.AddReadBy(ctx, convID, userID)
	return err
}

// React toggles the user's reaction on a message: same emoji removes
// it, a different emoji replaces it, no prior reaction appends one.
func (s *NotifierService) React(ctx context.Context, userID, messageID int64, emoji string) (models.Message, []Effect, error) {
	if emoji == "" {
		return models.Message{}, nil, fmt.Errorf("%w: emoji required", ErrValidation)
	}
	msg, err := s.msgs.Get(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, nil, fmt.Errorf("%w: message %d", ErrNotFound, messageID)
	}
	if err != nil {
		return models.Message{}, nil, err
	}
	conv, err := s.memberConversation(ctx, userID, msg.ConversationID)
	if err != nil {
		return models.Message{}, nil, err
	}
	if msg.DeletedAt != nil {
		return models.Message{}, nil, fmt.Errorf("%w: message was deleted", ErrConflict)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.Message{}, nil, err
	}

	next := make(models.ReactionList, 0, len(msg.Reactions)+1)
	replaced := false
	removed := false
	for _, r := range msg.Reactions {
		if r.UserID != userID {
			next = append(next, r)
			continue
		}
		if r.Emoji == emoji {
			removed = true
			continue
		}
		next = append(next, models.Reaction{Emoji: emoji, UserID: userID, UserName: user.FullName})
		replaced = true
	}
	if !replaced && !removed {
		next = append(next, models.Reaction{Emoji: emoji, UserID: userID, UserName: user.FullName})
	}
	msg.Reactions = next
	if err := s.msgs.Save(ctx, msg); err != nil {
		return models.Message{}, nil, err
	}
	return msg, []Effect{broadcast(conv.ID, models.Event{Type: models.EventMessageUpdated, Message: &msg})}, nil
}

// Typing produces the typing indicator fan-out for the conversation,
// excluding the typist.
func (s *NotifierService) Typing(ctx context.Context, userID, convID int64, isTyping bool) ([]Effect, error) {
	if _, err := s.memberConversation(ctx, userID, convID); err != nil {
		return nil, err
	}
	return []Effect{broadcastExcept(convID, userID, models.Event{
		Type:           models.EventUserTyping,
		ConversationID: convID,
		UserID:         userID,
		IsTyping:       isTyping,
	})}, nil
}

func (s *NotifierService) memberConversation(ctx context.Context, userID, convID int64) (models.Conversation, error) {
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
