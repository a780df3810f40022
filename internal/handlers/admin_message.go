package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/internal/middleware"
	"chat-server/internal/models"
	"chat-server/internal/repositories"
	"chat-server/internal/services"
	"chat-server/internal/telemetry"
	"chat-server/internal/ws"
)

// ModerationHandler lets administrators remove messages platform-wide.
type ModerationHandler struct {
	delivery *services.DeliveryService
	users    repositories.UserRepository
	recorder *telemetry.ActivityRecorder
	emitter  *ws.Emitter
}

// NewModerationHandler builds a ModerationHandler.
func NewModerationHandler(delivery *services.DeliveryService, users repositories.UserRepository,
	recorder *telemetry.ActivityRecorder, emitter *ws.Emitter) *ModerationHandler {
	return &ModerationHandler{delivery: delivery, users: users, recorder: recorder, emitter: emitter}
}

// DeleteMessage tombstones any message and records the action.
func (h *ModerationHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := idParam(c, "message_id")
	if !ok {
		return
	}
	msg, effects, err := h.delivery.Moderate(c.Request.Context(), messageID)
	if err != nil {
		serviceError(c, err)
		return
	}
	h.emitter.Emit(effects)

	adminID := middleware.UserID(c)
	adminName := ""
	if admin, err := h.users.GetByID(c.Request.Context(), adminID); err == nil {
		adminName = admin.FullName
	}
	h.recorder.Record(c.Request.Context(), models.ActivityLog{
		AdminID:    adminID,
		AdminName:  adminName,
		Action:     models.ActionDeletedMessage,
		TargetType: "message",
		TargetID:   messageID,
		TargetName: msg.SenderName,
	}, requestIDFromContext(c))

	c.JSON(http.StatusOK, gin.H{"message": msg})
}
