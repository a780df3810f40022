package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/internal/middleware"
	"chat-server/internal/services"
	"chat-server/internal/ws"
)

// ConversationHandler serves conversation lifecycle and membership
// endpoints.
type ConversationHandler struct {
	membership *services.MembershipService
	notifier   *services.NotifierService
	emitter    *ws.Emitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(membership *services.MembershipService, notifier *services.NotifierService, emitter *ws.Emitter) *ConversationHandler {
	return &ConversationHandler{membership: membership, notifier: notifier, emitter: emitter}
}

// List returns the user's conversations with unread counts and last
// messages, most recent activity first.
func (h *ConversationHandler) List(c *gin.Context) {
	summaries, err := h.membership.ListSummaries(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// Get returns one conversation the user participates in.
func (h *ConversationHandler) Get(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	conv, err := h.membership.Get(c.Request.Context(), middleware.UserID(c), convID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// StartOneToOne returns the direct conversation with another user,
// creating it on first contact.
func (h *ConversationHandler) StartOneToOne(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, created, err := h.membership.GetOrCreateOneToOne(c.Request.Context(), middleware.UserID(c), req.UserID)
	if err != nil {
		serviceError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv})
}

// CreateGroup creates a group chat with the caller as sole admin.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string  `json:"name" binding:"required"`
		MemberIDs []int64 `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.membership.CreateGroup(c.Request.Context(), middleware.UserID(c), req.Name, req.MemberIDs)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// Rename changes a group's name.
func (h *ConversationHandler) Rename(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.membership.RenameGroup(c.Request.Context(), middleware.UserID(c), convID, req.Name)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// SetPicture swaps a group's picture.
func (h *ConversationHandler) SetPicture(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.membership.SetGroupPicture(c.Request.Context(), middleware.UserID(c), convID, req.URL)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// AddMember adds a user to a group.
func (h *ConversationHandler) AddMember(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, effects, err := h.membership.AddMember(c.Request.Context(), middleware.UserID(c), convID, req.UserID)
	if err != nil {
		serviceError(c, err)
		return
	}
	h.emitter.Emit(effects)
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// RemoveMember removes a non-admin member from a group.
func (h *ConversationHandler) RemoveMember(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	memberID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	conv, deleted, effects, err := h.membership.RemoveMember(c.Request.Context(), middleware.UserID(c), convID, memberID)
	if err != nil {
		serviceError(c, err)
		return
	}
	h.emitter.Emit(effects)
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "deleted": deleted})
}

// Leave removes the caller from a group.
func (h *ConversationHandler) Leave(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	deleted, effects, err := h.membership.Leave(c.Request.Context(), middleware.UserID(c), convID)
	if err != nil {
		serviceError(c, err)
		return
	}
	h.emitter.Emit(effects)
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Promote grants admin to a group member.
func (h *ConversationHandler) Promote(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.membership.Promote(c.Request.Context(), middleware.UserID(c), convID, req.UserID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// Demote revokes admin from a group member.
func (h *ConversationHandler) Demote(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	conv, err := h.membership.Demote(c.Request.Context(), middleware.UserID(c), convID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// MarkRead records the caller in read_by for the whole conversation.
// This is the HTTP catch-up path; it never fires receipt events.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	if err := h.notifier.AcknowledgeRead(c.Request.Context(), middleware.UserID(c), convID); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
