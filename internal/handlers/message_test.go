package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-server/internal/mocks"
	"chat-server/internal/models"
	"chat-server/internal/presence"
	"chat-server/internal/services"
	"chat-server/internal/ws"
)

type messageFixture struct {
	convRepo *mocks.ConversationRepositoryMock
	msgRepo  *mocks.MessageRepositoryMock
	router   *gin.Engine
}

func setupMessageRouter(t *testing.T) messageFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)

	registry := presence.NewRegistry()
	delivery := services.NewDeliveryService(convRepo, msgRepo, registry, nil)
	notifier := services.NewNotifierService(convRepo, msgRepo, userRepo)
	emitter := ws.NewEmitter(ws.NewHub(), registry)
	handler := NewMessageHandler(delivery, notifier, nil, emitter)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", int64(1))
		c.Next()
	})
	r.GET("/conversations/:conversation_id/messages", handler.History)
	r.POST("/conversations/:conversation_id/messages", handler.Send)
	r.PUT("/messages/:message_id", handler.Edit)
	r.DELETE("/messages/:message_id", handler.Delete)
	r.POST("/uploads", handler.UploadFile)
	return messageFixture{convRepo: convRepo, msgRepo: msgRepo, router: r}
}

func TestHistoryDefaultsPaging(t *testing.T) {
	f := setupMessageRouter(t)

	f.convRepo.On("Get", mock.Anything, int64(3)).
		Return(models.Conversation{ID: 3, Participants: pq.Int64Array{1, 2}}, nil).Once()
	f.msgRepo.On("ListPage", mock.Anything, int64(3), 1, 30).
		Return([]models.Message{{ID: 7, Content: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/3/messages", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	f.msgRepo.AssertExpectations(t)
}

func TestSendMessageOverHTTP(t *testing.T) {
	f := setupMessageRouter(t)

	f.convRepo.On("Get", mock.Anything, int64(3)).
		Return(models.Conversation{ID: 3, Participants: pq.Int64Array{1, 2}}, nil).Once()
	f.msgRepo.On("Create", mock.Anything, mock.Anything).
		Return(models.Message{ID: 8, ConversationID: 3, Content: "hello"}, nil).Once()
	f.convRepo.On("SetLastMessage", mock.Anything, int64(3), int64(8)).Return(nil).Once()

	body := bytes.NewBufferString(`{"content":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/3/messages", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestEditSomeoneElsesMessageForbidden(t *testing.T) {
	f := setupMessageRouter(t)

	sender := int64(2)
	f.msgRepo.On("Get", mock.Anything, int64(5)).Return(models.Message{
		ID:          5,
		SenderID:    &sender,
		MessageType: models.MessageTypeText,
	}, nil).Once()

	body := bytes.NewBufferString(`{"content":"hijack"}`)
	req := httptest.NewRequest(http.MethodPut, "/messages/5", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadWithoutStorageUnavailable(t *testing.T) {
	f := setupMessageRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/uploads", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
