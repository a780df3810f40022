package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-server/internal/middleware"
	"chat-server/internal/repositories"
	"chat-server/internal/storage"
)

// UserHandler serves the signed-in user surface.
type UserHandler struct {
	users repositories.UserRepository
	blobs storage.BlobStore
}

// NewUserHandler builds a UserHandler. blobs may be nil when file
// storage is not configured.
func NewUserHandler(users repositories.UserRepository, blobs storage.BlobStore) *UserHandler {
	return &UserHandler{users: users, blobs: blobs}
}

// ListUsers returns every other active user, for starting conversations.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListOthers(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.UserID(c))
	if errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe edits the authenticated user's own display name and avatar.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if name := strings.TrimSpace(req.FullName); name != "" {
		user.FullName = name
	}
	oldAvatar := ""
	if req.AvatarURL != "" && req.AvatarURL != user.AvatarURL {
		oldAvatar = user.AvatarURL
		user.AvatarURL = req.AvatarURL
	}
	if err := h.users.Save(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}
	if oldAvatar != "" && h.blobs != nil {
		if err := h.blobs.Remove(c.Request.Context(), oldAvatar); err != nil {
			log.Printf("remove old avatar for user %d: %v", user.ID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
