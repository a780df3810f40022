package services

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-server/internal/mocks"
	"chat-server/internal/models"
)

func notifierFixture() (*NotifierService, *mocks.ConversationRepositoryMock, *mocks.MessageRepositoryMock, *mocks.UserRepositoryMock) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	return NewNotifierService(convRepo, msgRepo, userRepo), convRepo, msgRepo, userRepo
}

func memberConv() models.Conversation {
	return models.Conversation{ID: 3, Participants: pq.Int64Array{1, 2}}
}

func TestMarkReadEmitsOnce(t *testing.T) {
	svc, convRepo, msgRepo, _ := notifierFixture()

	convRepo.On("Get", mock.Anything, int64(3)).Return(memberConv(), nil).Twice()
	msgRepo.On("MarkConversationRead", mock.Anything, int64(3), int64(1)).Return(int64(4), nil).Once()
	msgRepo.On("MarkConversationRead", mock.Anything, int64(3), int64(1)).Return(int64(0), nil).Once()

	effects, err := svc.MarkRead(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, models.EventAllRead, effects[0].Event.Type)
	// Delivered to the counterpart's session, not the room.
	assert.Equal(t, int64(2), effects[0].UserID)
	assert.Zero(t, effects[0].ConversationID)

	// Second call finds nothing unread and stays silent.
	effects, err = svc.MarkRead(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Empty(t, effects)
	msgRepo.AssertExpectations(t)
}

func TestMarkReadSilentInGroups(t *testing.T) {
	svc, convRepo, msgRepo, _ := notifierFixture()

	group := models.Conversation{ID: 7, IsGroupChat: true, Participants: pq.Int64Array{1, 2, 3}, Admins: pq.Int64Array{1}}
	convRepo.On("Get", mock.Anything, int64(7)).Return(group, nil).Once()
	msgRepo.On("MarkConversationRead", mock.Anything, int64(7), int64(1)).Return(int64(3), nil).Once()

	effects, err := svc.MarkRead(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Empty(t, effects)
}

func TestReactAppendsReplacesAndToggles(t *testing.T) {
	svc, convRepo, msgRepo, userRepo := notifierFixture()

	base := models.Message{ID: 5, ConversationID: 3, SenderID: int64Ptr(2)}
	convRepo.On("Get", mock.Anything, int64(3)).Return(memberConv(), nil)
	userRepo.On("GetByID", mock.Anything, int64(1)).Return(models.User{ID: 1, FullName: "Alice"}, nil)

	// Append: no prior reaction from the user.
	msgRepo.On("Get", mock.Anything, int64(5)).Return(base, nil).Once()
	msgRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved models.Message) bool {
		return len(saved.Reactions) == 1 && saved.Reactions[0].Emoji == "👍"
	})).Return(nil).Once()
	_, _, err := svc.React(context.Background(), 1, 5, "👍")
	require.NoError(t, err)

	// Replace: different emoji from the same user.
	withReaction := base
	withReaction.Reactions = models.ReactionList{{Emoji: "👍", UserID: 1, UserName: "Alice"}}
	msgRepo.On("Get", mock.Anything, int64(5)).Return(withReaction, nil).Once()
	msgRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved models.Message) bool {
		return len(saved.Reactions) == 1 && saved.Reactions[0].Emoji == "❤️"
	})).Return(nil).Once()
	_, _, err = svc.React(context.Background(), 1, 5, "❤️")
	require.NoError(t, err)

	// Toggle off: same emoji removes the reaction.
	msgRepo.On("Get", mock.Anything, int64(5)).Return(withReaction, nil).Once()
	msgRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved models.Message) bool {
		return len(saved.Reactions) == 0
	})).Return(nil).Once()
	_, _, err = svc.React(context.Background(), 1, 5, "👍")
	require.NoError(t, err)

	msgRepo.AssertExpectations(t)
}

func TestReactKeepsOtherUsersReactions(t *testing.T) {
	svc, convRepo, msgRepo, userRepo := notifierFixture()

	msg := models.Message{
		ID:             5,
		ConversationID: 3,
		SenderID:       int64Ptr(2),
		Reactions:      models.ReactionList{{Emoji: "😀", UserID: 2, UserName: "Bob"}},
	}
	convRepo.On("Get", mock.Anything, int64(3)).Return(memberConv(), nil).Once()
	userRepo.On("GetByID", mock.Anything, int64(1)).Return(models.User{ID: 1, FullName: "Alice"}, nil).Once()
	msgRepo.On("Get", mock.Anything, int64(5)).Return(msg, nil).Once()
	msgRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved models.Message) bool {
		return len(saved.Reactions) == 2
	})).Return(nil).Once()

	updated, _, err := svc.React(context.Background(), 1, 5, "👍")
	require.NoError(t, err)
	assert.Len(t, updated.Reactions, 2)
}

func TestTypingExcludesTypist(t *testing.T) {
	svc, convRepo, _, _ := notifierFixture()

	convRepo.On("Get", mock.Anything, int64(3)).Return(memberConv(), nil).Once()

	effects, err := svc.Typing(context.Background(), 1, 3, true)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, models.EventUserTyping, effects[0].Event.Type)
	assert.Equal(t, int64(1), effects[0].ExcludeUserID)
	assert.True(t, effects[0].Event.IsTyping)
}

func TestAcknowledgeReadStaysSilent(t *testing.T) {
	svc, convRepo, msgRepo, _ := notifierFixture()

	convRepo.On("Get", mock.Anything, int64(3)).Return(memberConv(), nil).Once()
	msgRepo.On("AddReadBy", mock.Anything, int64(3), int64(1)).Return(int64(2), nil).Once()

	err := svc.AcknowledgeRead(context.Background(), 1, 3)
	require.NoError(t, err)
	msgRepo.AssertExpectations(t)
}
