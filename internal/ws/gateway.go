package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-server/internal/auth"
	"chat-server/internal/models"
	"chat-server/internal/observability"
	"chat-server/internal/presence"
	"chat-server/internal/repositories"
	"chat-server/internal/services"
)

// Gateway upgrades authenticated clients to a websocket session and
// routes their inbound events to the engines.
type Gateway struct {
	hub        *Hub
	registry   *presence.Registry
	emitter    *Emitter
	verifier   auth.TokenVerifier
	users      repositories.UserRepository
	membership *services.MembershipService
	delivery   *services.DeliveryService
	notifier   *services.NotifierService
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, registry *presence.Registry, emitter *Emitter, verifier auth.TokenVerifier,
	users repositories.UserRepository, membership *services.MembershipService,
	delivery *services.DeliveryService, notifier *services.NotifierService) *Gateway {
	return &Gateway{
		hub:        hub,
		registry:   registry,
		emitter:    emitter,
		verifier:   verifier,
		users:      users,
		membership: membership,
		delivery:   delivery,
		notifier:   notifier,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundEvent is the envelope clients send over the socket.
type inboundEvent struct {
	Type           string           `json:"type"`
	ConversationID int64            `json:"conversation_id,omitempty"`
	MessageID      int64            `json:"message_id,omitempty"`
	Content        string           `json:"content,omitempty"`
	MessageType    string           `json:"message_type,omitempty"`
	File           *models.FileRef  `json:"file,omitempty"`
	Reply          *models.ReplyRef `json:"reply,omitempty"`
	Emoji          string           `json:"emoji,omitempty"`
}

// Handle upgrades the connection and runs the session read loop until
// the client disconnects. Anonymous connections (no valid token) are
// served but never bound to presence; user-scoped events on them are
// rejected in route.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-server/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}
	identity, err := g.validateToken(c.Request.Context(), token)
	if err != nil {
		identity = auth.Identity{}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	meta := observability.MetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.UserID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	g.hub.Register(conn, info)
	if info.UserID != 0 {
		g.registry.Bind(info.ConnID, info.UserID)
		g.hub.SendToAll(models.Event{Type: models.EventOnlineUsers, UserIDs: g.registry.OnlineUsers()})
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.Publish(ctx, observability.RouteSessions, observability.Envelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   sessionPayload(info, "ws_connect", 0, ""),
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
	})

	go g.readLoop(ctx, conn, info)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		g.disconnect(ctx, conn, info, closeReason)
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				_ = observability.Publish(ctx, observability.RouteSessions, observability.Envelope{
					EventType: "ws_events",
					EventName: "ws_error",
					Payload:   sessionPayload(info, "ws_error", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
					RequestID: info.RequestID,
					TraceID:   info.TraceID,
				})
			}
			return
		}
		g.route(ctx, info, data)
	}
}

// route dispatches one inbound event. Failures are reported to the
// originating session only.
func (g *Gateway) route(ctx context.Context, info ConnInfo, data []byte) {
	var event inboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		g.sendError(info.ConnID, "malformed event")
		return
	}
	observability.IncWSEvent(event.Type)

	if info.UserID == 0 {
		g.sendError(info.ConnID, "authentication required")
		return
	}

	switch event.Type {
	case "join_room":
		if _, err := g.membership.Get(ctx, info.UserID, event.ConversationID); err != nil {
			g.sendError(info.ConnID, "cannot join conversation")
			return
		}
		g.hub.Join(info.ConnID, event.ConversationID)
	case "leave_room":
		g.hub.Leave(info.ConnID, event.ConversationID)
	case "send_message":
		_, effects, err := g.delivery.Submit(ctx, info.UserID, services.SubmitInput{
			ConversationID: event.ConversationID,
			Content:        event.Content,
			MessageType:    event.MessageType,
			File:           event.File,
			Reply:          event.Reply,
		})
		if err != nil {
			g.sendError(info.ConnID, "could not send message")
			return
		}
		g.emitter.Emit(effects)
	case "mark_read":
		effects, err := g.notifier.MarkRead(ctx, info.UserID, event.ConversationID)
		if err != nil {
			g.sendError(info.ConnID, "could not mark as read")
			return
		}
		g.emitter.Emit(effects)
	case "react":
		_, effects, err := g.notifier.React(ctx, info.UserID, event.MessageID, event.Emoji)
		if err != nil {
			g.sendError(info.ConnID, "could not react")
			return
		}
		g.emitter.Emit(effects)
	case "typing", "stop_typing":
		effects, err := g.notifier.Typing(ctx, info.UserID, event.ConversationID, event.Type == "typing")
		if err != nil {
			g.sendError(info.ConnID, "could not send typing state")
			return
		}
		g.emitter.Emit(effects)
	default:
		g.sendError(info.ConnID, "unknown event type")
	}
}

func (g *Gateway) disconnect(ctx context.Context, conn *websocket.Conn, info ConnInfo, reason string) {
	g.hub.Unregister(info.ConnID)
	if userID, ok := g.registry.Unbind(info.ConnID); ok {
		if err := g.users.UpdateLastSeen(ctx, userID, time.Now()); err != nil {
			log.Printf("update last seen for user %d: %v", userID, err)
		}
		g.hub.SendToAll(models.Event{Type: models.EventOnlineUsers, UserIDs: g.registry.OnlineUsers()})
	}
	observability.DecWSActive()
	observability.IncWSEvent("ws_disconnect")
	_ = observability.Publish(ctx, observability.RouteSessions, observability.Envelope{
		EventType: "ws_events",
		EventName: "ws_disconnect",
		Payload:   sessionPayload(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), reason),
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
	})
	conn.Close()
}

func (g *Gateway) sendError(connID, message string) {
	g.hub.SendToConn(connID, models.Event{Type: models.EventError, Error: message})
}

func (g *Gateway) validateToken(ctx context.Context, header string) (auth.Identity, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return g.verifier.VerifyToken(ctx, parts[1])
	}
	return auth.Identity{}, auth.ErrInvalidToken
}

func sessionPayload(info ConnInfo, event string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
