package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/internal/middleware"
	"chat-server/internal/models"
	"chat-server/internal/services"
	"chat-server/internal/storage"
	"chat-server/internal/ws"
)

// MessageHandler serves the message pipeline over HTTP.
type MessageHandler struct {
	delivery *services.DeliveryService
	notifier *services.NotifierService
	blobs    storage.BlobStore
	emitter  *ws.Emitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(delivery *services.DeliveryService, notifier *services.NotifierService,
	blobs storage.BlobStore, emitter *ws.Emitter) *MessageHandler {
	return &MessageHandler{delivery: delivery, notifier: notifier, blobs: blobs, emitter: emitter}
}

// History returns a page of a conversation's messages, newest first.
func (h *MessageHandler) History(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 30)
	msgs, err := h.delivery.History(c.Request.Context(), middleware.UserID(c), convID, page, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "page": page})
}

// Search finds messages in a conversation matching a query.
func (h *MessageHandler) Search(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	msgs, err := h.delivery.Search(c.Request.Context(), middleware.UserID(c), convID, c.Query("q"))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Send submits a message over HTTP. The websocket path is preferred;
// this exists for clients without a socket.
func (h *MessageHandler) Send(c *gin.Context) {
	convID, ok := idParam(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		Content     string           `json:"content"`
		MessageType string           `json:"message_type"`
		File        *models.FileRef  `json:"file"`
		Reply       *models.ReplyRef `json:"reply"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, effects, err := h.delivery.Submit(c.Request.Context(), middleware.UserID(c), services.SubmitInput{
		ConversationID: convID,
		Content:        req.Content,
		MessageType:    req.MessageType,
		File:           req.File,
		Reply:          req.Reply,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	h.emitter.Emit(effects)
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Edit rewrites the caller's own message.
func (h *MessageHandler) Edit(c *gin.Context) {
	messageID, ok := idParam(c, "message_id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, effects, err := h.delivery.Edit(c.Request.Context(), middleware.UserID(c), messageID, req.Content)
	if err != nil {
		serviceError(c, err)
		return
	}
	h.emitter.Emit(effects)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// Delete tombstones the caller's own message.
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, ok := idParam(c, "message_id")
	if !ok {
		return
	}
	msg, effects, err := h.delivery.Delete(c.Request.Context(), middleware.UserID(c), messageID)
	if err != nil {
		serviceError(c, err)
		return
	}
	h.emitter.Emit(effects)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// React toggles the caller's emoji reaction on a message.
func (h *MessageHandler) React(c *gin.Context) {
	messageID, ok := idParam(c, "message_id")
	if !ok {
		return
	}
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, effects, err := h.notifier.React(c.Request.Context(), middleware.UserID(c), messageID, req.Emoji)
	if err != nil {
		serviceError(c, err)
		return
	}
	h.emitter.Emit(effects)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// UploadFile stores an attachment and returns its reference for a
// later send.
func (h *MessageHandler) UploadFile(c *gin.Context) {
	if h.blobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage not configured"})
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	kind, err := storage.KindForContentType(contentType)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type"})
		return
	}
	if header.Size > storage.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	url, err := h.blobs.Put(c.Request.Context(), storage.ObjectKey(header.Filename), contentType, header.Size, file)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store file"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file": models.FileRef{URL: url, Type: kind, Name: header.Filename}})
}
