package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/internal/repositories"
)

// ActivityLogHandler serves the admin activity log.
type ActivityLogHandler struct {
	logs repositories.ActivityLogRepository
}

// NewActivityLogHandler builds an ActivityLogHandler.
func NewActivityLogHandler(logs repositories.ActivityLogRepository) *ActivityLogHandler {
	return &ActivityLogHandler{logs: logs}
}

// List returns activity records newest-first, optionally filtered by a
// search term over admin name, action and target name.
func (h *ActivityLogHandler) List(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 15)
	entries, totalPages, err := h.logs.ListPage(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activity log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries, "page": page, "total_pages": totalPages})
}

// Recent returns the latest few activity records for the dashboard.
func (h *ActivityLogHandler) Recent(c *gin.Context) {
	entries, err := h.logs.Recent(c.Request.Context(), intQuery(c, "limit", 5))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activity log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
