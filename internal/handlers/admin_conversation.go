package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/internal/repositories"
)

// AdminConversationHandler gives administrators a read view over all
// conversations for moderation.
type AdminConversationHandler struct {
	convs repositories.ConversationRepository
	msgs  repositories.MessageRepository
}

// NewAdminConversationHandler builds an AdminConversationHandler.
func NewAdminConversationHandler(convs repositories.ConversationRepository, msgs repositories.MessageRepository) *AdminConversationHandler {
	return &AdminConversationHandler{convs: convs, msgs: msgs}
}

// ListConversations returns every conversation on the platform.
func (h *AdminConversationHandler) ListConversations(c *gin.Context) {
	convs, err := h.convs.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// ListMessages returns a conversation's full message history,
// oldest first, including tombstoned entries.
func (h *AdminConversationHandler) ListMessages(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	if _, err := h.convs.Get(c.Request.Context(), convID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	msgs, err := h.msgs.ListForConversation(c.Request.Context(), convID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
