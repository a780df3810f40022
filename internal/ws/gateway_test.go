package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-server/internal/auth"
	"chat-server/internal/mocks"
	"chat-server/internal/models"
	"chat-server/internal/presence"
)

func gatewayServer(t *testing.T, verifier *mocks.TokenVerifierMock, users *mocks.UserRepositoryMock) (*httptest.Server, *presence.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	registry := presence.NewRegistry()
	gw := NewGateway(hub, registry, NewEmitter(hub, registry), verifier, users, nil, nil, nil)
	router := gin.New()
	router.GET("/ws", gw.Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, registry
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event models.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestHandshakeWithoutTokenServedButNotPresent(t *testing.T) {
	verifier := new(mocks.TokenVerifierMock)
	srv, registry := gatewayServer(t, verifier, new(mocks.UserRepositoryMock))

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Empty(t, registry.OnlineUsers())

	// User-scoped events on an anonymous session are refused.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"mark_read","conversation_id":1}`)))
	event := readEvent(t, conn)
	assert.Equal(t, models.EventError, event.Type)
	verifier.AssertNotCalled(t, "VerifyToken", mock.Anything, mock.Anything)
}

func TestHandshakeWithTokenBindsPresence(t *testing.T) {
	verifier := new(mocks.TokenVerifierMock)
	verifier.On("VerifyToken", mock.Anything, "tok").Return(auth.Identity{UserID: 7}, nil).Once()
	users := new(mocks.UserRepositoryMock)
	users.On("UpdateLastSeen", mock.Anything, int64(7), mock.Anything).Return(nil).Maybe()
	srv, registry := gatewayServer(t, verifier, users)

	header := http.Header{"Authorization": []string{"Bearer tok"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer conn.Close()

	event := readEvent(t, conn)
	assert.Equal(t, models.EventOnlineUsers, event.Type)
	assert.Equal(t, []int64{7}, event.UserIDs)
	assert.Equal(t, []int64{7}, registry.OnlineUsers())
}
