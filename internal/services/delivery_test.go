package services

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-server/internal/mocks"
	"chat-server/internal/models"
)

type presenceStub struct {
	online map[int64]string
}

func (p presenceStub) SessionFor(userID int64) (string, bool) {
	connID, ok := p.online[userID]
	return connID, ok
}

func int64Ptr(v int64) *int64 { return &v }

func TestSubmitDeliveredWhenCounterpartOnline(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewDeliveryService(convRepo, msgRepo, presenceStub{online: map[int64]string{2: "c2"}}, nil)

	conv := models.Conversation{ID: 3, Participants: pq.Int64Array{1, 2}}
	convRepo.On("Get", mock.Anything, int64(3)).Return(conv, nil).Once()
	msgRepo.On("Create", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Status == models.StatusSent && msg.Content == "hi" &&
			len(msg.ReadBy) == 1 && msg.ReadBy[0] == 1
	})).Return(models.Message{ID: 11, ConversationID: 3, SenderID: int64Ptr(1), Status: models.StatusSent}, nil).Once()
	convRepo.On("SetLastMessage", mock.Anything, int64(3), int64(11)).Return(nil).Once()
	msgRepo.On("UpdateStatus", mock.Anything, int64(11), models.StatusDelivered).Return(nil).Once()

	sent, effects, err := svc.Submit(context.Background(), 1, SubmitInput{ConversationID: 3, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, sent.Status)
	require.Len(t, effects, 2)
	assert.Equal(t, models.EventNewMessage, effects[0].Event.Type)
	// The initial persist and the room broadcast stay at sent; only the
	// follow-up write and the sender ack carry delivered.
	assert.Equal(t, models.StatusSent, effects[0].Event.Message.Status)
	assert.Equal(t, int64(1), effects[1].UserID)
	assert.Equal(t, models.EventMessageDelivered, effects[1].Event.Type)
	msgRepo.AssertExpectations(t)
}

func TestSubmitSentWhenCounterpartOffline(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewDeliveryService(convRepo, msgRepo, presenceStub{}, nil)

	conv := models.Conversation{ID: 3, Participants: pq.Int64Array{1, 2}}
	convRepo.On("Get", mock.Anything, int64(3)).Return(conv, nil).Once()
	msgRepo.On("Create", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Status == models.StatusSent
	})).Return(models.Message{ID: 12, ConversationID: 3, Status: models.StatusSent}, nil).Once()
	convRepo.On("SetLastMessage", mock.Anything, int64(3), int64(12)).Return(nil).Once()

	sent, effects, err := svc.Submit(context.Background(), 1, SubmitInput{ConversationID: 3, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, sent.Status)
	assert.Len(t, effects, 1)
	msgRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitGroupAlwaysSent(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewDeliveryService(convRepo, msgRepo, presenceStub{online: map[int64]string{2: "c2", 3: "c3"}}, nil)

	conv := models.Conversation{ID: 4, IsGroupChat: true, Participants: pq.Int64Array{1, 2, 3}, Admins: pq.Int64Array{1}}
	convRepo.On("Get", mock.Anything, int64(4)).Return(conv, nil).Once()
	msgRepo.On("Create", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Status == models.StatusSent
	})).Return(models.Message{ID: 13, ConversationID: 4, Status: models.StatusSent}, nil).Once()
	convRepo.On("SetLastMessage", mock.Anything, int64(4), int64(13)).Return(nil).Once()

	_, _, err := svc.Submit(context.Background(), 1, SubmitInput{ConversationID: 4, Content: "hi"})
	require.NoError(t, err)
	msgRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	msgRepo.AssertExpectations(t)
}

func TestSubmitRejectsEmptyAndNonParticipant(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	svc := NewDeliveryService(convRepo, new(mocks.MessageRepositoryMock), presenceStub{}, nil)

	_, _, err := svc.Submit(context.Background(), 1, SubmitInput{ConversationID: 3})
	assert.ErrorIs(t, err, ErrValidation)

	conv := models.Conversation{ID: 3, Participants: pq.Int64Array{2, 5}}
	convRepo.On("Get", mock.Anything, int64(3)).Return(conv, nil).Once()
	_, _, err = svc.Submit(context.Background(), 1, SubmitInput{ConversationID: 3, Content: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEditOnlyBySender(t *testing.T) {
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewDeliveryService(new(mocks.ConversationRepositoryMock), msgRepo, presenceStub{}, nil)

	msg := models.Message{ID: 5, ConversationID: 3, SenderID: int64Ptr(2), MessageType: models.MessageTypeText}
	msgRepo.On("Get", mock.Anything, int64(5)).Return(msg, nil).Once()

	_, _, err := svc.Edit(context.Background(), 1, 5, "new text")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEditMarksEdited(t *testing.T) {
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewDeliveryService(new(mocks.ConversationRepositoryMock), msgRepo, presenceStub{}, nil)

	msg := models.Message{ID: 5, ConversationID: 3, SenderID: int64Ptr(1), MessageType: models.MessageTypeText, Content: "old"}
	msgRepo.On("Get", mock.Anything, int64(5)).Return(msg, nil).Once()
	msgRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved models.Message) bool {
		return saved.IsEdited && saved.Content == "new text"
	})).Return(nil).Once()

	updated, effects, err := svc.Edit(context.Background(), 1, 5, "new text")
	require.NoError(t, err)
	assert.True(t, updated.IsEdited)
	require.Len(t, effects, 1)
	assert.Equal(t, models.EventMessageUpdated, effects[0].Event.Type)
	msgRepo.AssertExpectations(t)
}

func TestDeleteTombstonesAndRemovesAttachment(t *testing.T) {
	msgRepo := new(mocks.MessageRepositoryMock)
	blobs := new(mocks.BlobStoreMock)
	svc := NewDeliveryService(new(mocks.ConversationRepositoryMock), msgRepo, presenceStub{}, blobs)

	msg := models.Message{
		ID:             5,
		ConversationID: 3,
		SenderID:       int64Ptr(1),
		MessageType:    models.MessageTypeImage,
		FileURL:        "http://blobs/x.png",
	}
	msgRepo.On("Get", mock.Anything, int64(5)).Return(msg, nil).Once()
	msgRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved models.Message) bool {
		return saved.DeletedAt != nil && saved.Content == DeletedByUserContent && saved.FileURL == ""
	})).Return(nil).Once()
	blobs.On("Remove", mock.Anything, "http://blobs/x.png").Return(nil).Once()

	deleted, _, err := svc.Delete(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, DeletedByUserContent, deleted.Content)
	blobs.AssertExpectations(t)
}

func TestDeleteAlreadyDeletedConflict(t *testing.T) {
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewDeliveryService(new(mocks.ConversationRepositoryMock), msgRepo, presenceStub{}, nil)

	now := time.Now()
	msg := models.Message{ID: 5, SenderID: int64Ptr(1), DeletedAt: &now}
	msgRepo.On("Get", mock.Anything, int64(5)).Return(msg, nil).Once()

	_, _, err := svc.Delete(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestModerateOverwritesContent(t *testing.T) {
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewDeliveryService(new(mocks.ConversationRepositoryMock), msgRepo, presenceStub{}, nil)

	msg := models.Message{
		ID:             5,
		ConversationID: 3,
		SenderID:       int64Ptr(2),
		Content:        "spam",
		Reactions:      models.ReactionList{{UserID: 1, Emoji: "👍"}},
	}
	msgRepo.On("Get", mock.Anything, int64(5)).Return(msg, nil).Once()
	msgRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved models.Message) bool {
		return saved.Content == DeletedByAdminContent && saved.DeletedAt != nil && len(saved.Reactions) == 0
	})).Return(nil).Once()

	moderated, effects, err := svc.Moderate(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, DeletedByAdminContent, moderated.Content)
	assert.Empty(t, moderated.Reactions)
	require.Len(t, effects, 1)
	assert.Equal(t, models.EventMessageUpdated, effects[0].Event.Type)
}
