package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chat-server/internal/auth"
	"chat-server/internal/middleware"
	"chat-server/internal/models"
	"chat-server/internal/repositories"
	"chat-server/internal/telemetry"
)

// AdminUserHandler serves the administrator user-management surface.
type AdminUserHandler struct {
	users    repositories.UserRepository
	recorder *telemetry.ActivityRecorder
}

// NewAdminUserHandler builds an AdminUserHandler.
func NewAdminUserHandler(users repositories.UserRepository, recorder *telemetry.ActivityRecorder) *AdminUserHandler {
	return &AdminUserHandler{users: users, recorder: recorder}
}

// Export streams every user account as a CSV download.
func (h *AdminUserHandler) Export(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export users"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="users.csv"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "full_name", "email", "is_admin", "is_banned", "created_at", "last_seen", "deleted_at"})
	for _, u := range users {
		deletedAt := ""
		if u.DeletedAt != nil {
			deletedAt = u.DeletedAt.Format(time.RFC3339)
		}
		_ = w.Write([]string{
			strconv.FormatInt(u.ID, 10),
			u.FullName,
			u.Email,
			strconv.FormatBool(u.IsAdmin),
			strconv.FormatBool(u.IsBanned),
			u.CreatedAt.Format(time.RFC3339),
			u.LastSeen.Format(time.RFC3339),
			deletedAt,
		})
	}
	w.Flush()
}

// ListUsers returns active users, paginated.
func (h *AdminUserHandler) ListUsers(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)
	users, totalPages, err := h.users.ListActivePage(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "page": page, "total_pages": totalPages})
}

// ListBanned returns currently banned users.
func (h *AdminUserHandler) ListBanned(c *gin.Context) {
	users, err := h.users.ListBanned(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ListDeleted returns deactivated users still inside the retention
// window.
func (h *AdminUserHandler) ListDeleted(c *gin.Context) {
	users, err := h.users.ListDeleted(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser provisions an account on a user's behalf.
func (h *AdminUserHandler) CreateUser(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := h.users.GetByEmail(c.Request.Context(), email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check email"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}
	adminID := middleware.UserID(c)
	user, err := h.users.Create(c.Request.Context(), models.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
		CreatedBy:    &adminID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	h.record(c, models.ActionCreatedUser, user.ID, user.FullName, "")
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// EditUser updates another user's profile fields.
func (h *AdminUserHandler) EditUser(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	var req struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
		IsAdmin   *bool  `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	var changed []string
	if name := strings.TrimSpace(req.FullName); name != "" && name != user.FullName {
		user.FullName = name
		changed = append(changed, "full_name")
	}
	if req.AvatarURL != "" && req.AvatarURL != user.AvatarURL {
		user.AvatarURL = req.AvatarURL
		changed = append(changed, "avatar_url")
	}
	if req.IsAdmin != nil && *req.IsAdmin != user.IsAdmin {
		user.IsAdmin = *req.IsAdmin
		changed = append(changed, "is_admin")
	}
	if len(changed) == 0 {
		c.JSON(http.StatusOK, gin.H{"user": user})
		return
	}
	if err := h.users.Save(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update user"})
		return
	}

	h.record(c, models.ActionEditedUser, user.ID, user.FullName, "changed: "+strings.Join(changed, ", "))
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Deactivate soft-deletes a user. The account is purged for good by
// the retention sweep after seven days unless restored.
func (h *AdminUserHandler) Deactivate(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	target, err := h.loadTarget(c, userID)
	if err != nil {
		return
	}
	if err := h.users.SoftDelete(c.Request.Context(), userID, middleware.UserID(c)); err != nil {
		h.writeUserError(c, err)
		return
	}
	h.record(c, models.ActionDeactivated, userID, target.FullName, "")
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// Restore brings a soft-deleted user back.
func (h *AdminUserHandler) Restore(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	target, err := h.loadTarget(c, userID)
	if err != nil {
		return
	}
	if err := h.users.Restore(c.Request.Context(), userID); err != nil {
		h.writeUserError(c, err)
		return
	}
	h.record(c, models.ActionRestoredUser, userID, target.FullName, "")
	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}

// HardDelete removes a user permanently, without waiting for the
// retention sweep.
func (h *AdminUserHandler) HardDelete(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	target, err := h.loadTarget(c, userID)
	if err != nil {
		return
	}
	if err := h.users.HardDelete(c.Request.Context(), userID); err != nil {
		h.writeUserError(c, err)
		return
	}
	h.record(c, models.ActionHardDeleted, userID, target.FullName, "")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Ban blocks a user from signing in, permanently or until an expiry.
func (h *AdminUserHandler) Ban(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	var req struct {
		Reason    string     `json:"reason" binding:"required"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := h.loadTarget(c, userID)
	if err != nil {
		return
	}
	if err := h.users.Ban(c.Request.Context(), userID, req.Reason, req.ExpiresAt, middleware.UserID(c)); err != nil {
		h.writeUserError(c, err)
		return
	}
	details := "reason: " + req.Reason
	if req.ExpiresAt != nil {
		details = fmt.Sprintf("%s, until %s", details, req.ExpiresAt.UTC().Format(time.RFC3339))
	}
	h.record(c, models.ActionBannedUser, userID, target.FullName, details)
	c.JSON(http.StatusOK, gin.H{"status": "banned"})
}

// Unban lifts a ban.
func (h *AdminUserHandler) Unban(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	target, err := h.loadTarget(c, userID)
	if err != nil {
		return
	}
	if err := h.users.Unban(c.Request.Context(), userID); err != nil {
		h.writeUserError(c, err)
		return
	}
	h.record(c, models.ActionUnbannedUser, userID, target.FullName, "")
	c.JSON(http.StatusOK, gin.H{"status": "unbanned"})
}

func (h *AdminUserHandler) loadTarget(c *gin.Context, userID int64) (models.User, error) {
	target, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.writeUserError(c, err)
		return models.User{}, err
	}
	return target, nil
}

func (h *AdminUserHandler) writeUserError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "user operation failed"})
}

func (h *AdminUserHandler) record(c *gin.Context, action string, targetID int64, targetName, details string) {
	adminID := middleware.UserID(c)
	adminName := ""
	if admin, err := h.users.GetByID(c.Request.Context(), adminID); err == nil {
		adminName = admin.FullName
	}
	h.recorder.Record(c.Request.Context(), models.ActivityLog{
		AdminID:    adminID,
		AdminName:  adminName,
		Action:     action,
		TargetType: "user",
		TargetID:   targetID,
		TargetName: targetName,
		Details:    details,
	}, requestIDFromContext(c))
}
