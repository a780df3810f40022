package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-server/internal/mocks"
	"chat-server/internal/models"
	"chat-server/internal/presence"
	"chat-server/internal/repositories"
	"chat-server/internal/services"
	"chat-server/internal/ws"
)

type convFixture struct {
	convRepo *mocks.ConversationRepositoryMock
	userRepo *mocks.UserRepositoryMock
	msgRepo  *mocks.MessageRepositoryMock
	router   *gin.Engine
}

func setupConvRouter(t *testing.T) convFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	convRepo := new(mocks.ConversationRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)

	membership := services.NewMembershipService(convRepo, userRepo, msgRepo, nil)
	notifier := services.NewNotifierService(convRepo, msgRepo, userRepo)
	emitter := ws.NewEmitter(ws.NewHub(), presence.NewRegistry())
	handler := NewConversationHandler(membership, notifier, emitter)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", int64(1))
		c.Next()
	})
	r.GET("/conversations", handler.List)
	r.POST("/conversations/one-to-one", handler.StartOneToOne)
	r.POST("/conversations/group", handler.CreateGroup)
	r.POST("/conversations/:conversation_id/leave", handler.Leave)
	r.DELETE("/conversations/:conversation_id/admins/:user_id", handler.Demote)
	r.POST("/conversations/:conversation_id/read", handler.MarkRead)
	return convFixture{convRepo: convRepo, userRepo: userRepo, msgRepo: msgRepo, router: r}
}

func TestListConversationsWithUnreadCounts(t *testing.T) {
	f := setupConvRouter(t)

	lastID := int64(12)
	f.convRepo.On("ListForUser", mock.Anything, int64(1)).Return([]models.Conversation{
		{ID: 3, Participants: pq.Int64Array{1, 2}, LastMessageID: &lastID},
	}, nil).Once()
	f.msgRepo.On("CountUnread", mock.Anything, int64(3), int64(1)).Return(int64(4), nil).Once()
	f.msgRepo.On("Get", mock.Anything, int64(12)).Return(models.Message{ID: 12, Content: "hey"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, int64(4), resp.Conversations[0].UnreadCount)
	require.NotNil(t, resp.Conversations[0].LastMessage)
	assert.Equal(t, "hey", resp.Conversations[0].LastMessage.Content)
}

func TestStartOneToOneExistingReturns200(t *testing.T) {
	f := setupConvRouter(t)

	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(models.User{ID: 2}, nil).Once()
	f.convRepo.On("FindOneToOne", mock.Anything, int64(1), int64(2)).
		Return(models.Conversation{ID: 9, Participants: pq.Int64Array{1, 2}}, nil).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/one-to-one", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStartOneToOneNewReturns201(t *testing.T) {
	f := setupConvRouter(t)

	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(models.User{ID: 2}, nil).Once()
	f.convRepo.On("FindOneToOne", mock.Anything, int64(1), int64(2)).
		Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()
	f.convRepo.On("Create", mock.Anything, mock.Anything).
		Return(models.Conversation{ID: 10, Participants: pq.Int64Array{1, 2}}, nil).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/one-to-one", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestDemoteLastAdminReturnsConflict(t *testing.T) {
	f := setupConvRouter(t)

	f.convRepo.On("Get", mock.Anything, int64(7)).Return(models.Conversation{
		ID:           7,
		IsGroupChat:  true,
		Participants: pq.Int64Array{1, 2},
		Admins:       pq.Int64Array{1},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/7/admins/1", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLeaveNonParticipantForbidden(t *testing.T) {
	f := setupConvRouter(t)

	f.convRepo.On("Get", mock.Anything, int64(7)).Return(models.Conversation{
		ID:           7,
		IsGroupChat:  true,
		Participants: pq.Int64Array{2, 3},
		Admins:       pq.Int64Array{2},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/7/leave", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkReadCatchUp(t *testing.T) {
	f := setupConvRouter(t)

	f.convRepo.On("Get", mock.Anything, int64(3)).Return(models.Conversation{
		ID:           3,
		Participants: pq.Int64Array{1, 2},
	}, nil).Once()
	f.msgRepo.On("AddReadBy", mock.Anything, int64(3), int64(1)).Return(int64(5), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/3/read", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	f.msgRepo.AssertExpectations(t)
}
