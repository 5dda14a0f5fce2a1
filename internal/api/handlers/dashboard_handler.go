package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// DashboardHandler serves the console landing page counters and the
// notification feed.
type DashboardHandler struct {
	dashboardService    services.IDashboardService
	notificationService services.INotificationService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService services.IDashboardService, notificationService services.INotificationService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService:    dashboardService,
		notificationService: notificationService,
	}
}

// GetSummary handles GET /v1/admin/dashboard.
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// ListNotifications handles GET /v1/admin/notifications.
func (h *DashboardHandler) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	var limit int64
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = l
	}

	notifications, err := h.notificationService.List(c.Request.Context(), unreadOnly, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notifications})
}

// MarkNotificationRead handles POST /v1/admin/notifications/:id/read.
func (h *DashboardHandler) MarkNotificationRead(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID format"})
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"read": true}})
}

// MarkAllNotificationsRead handles POST /v1/admin/notifications/read-all.
func (h *DashboardHandler) MarkAllNotificationsRead(c *gin.Context) {
	if err := h.notificationService.MarkAllRead(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"read": true}})
}
