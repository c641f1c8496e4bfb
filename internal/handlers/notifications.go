package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/service"
)

type notificationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Priority  string `json:"priority"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

func toNotificationResponses(notifications []models.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      string(n.Type),
			Priority:  string(n.Priority),
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return out
}

func (h HandlerSet) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notifService.ListOwn(c.Request.Context(), currentUser(c), unreadOnly, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": toNotificationResponses(notifications)})
}

func (h HandlerSet) UnreadCount(c *gin.Context) {
	count, err := h.notifService.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h HandlerSet) MarkNotificationRead(c *gin.Context) {
	if err := h.notifService.MarkRead(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) MarkAllNotificationsRead(c *gin.Context) {
	count, err := h.notifService.MarkAllRead(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": count})
}

type sendNotificationRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
}

func (h HandlerSet) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	n, err := h.notifService.Send(c.Request.Context(), currentUser(c), service.SendNotificationInput{
		UserID:   req.UserID,
		Title:    req.Title,
		Message:  req.Message,
		Type:     models.NotificationType(req.Type),
		Priority: models.NotificationPriority(req.Priority),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notification_id": n.ID})
}

type broadcastRequest struct {
	Role     string `json:"role" binding:"required"`
	Region   string `json:"region"`
	Title    string `json:"title" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
}

func (h HandlerSet) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	count, err := h.notifService.Broadcast(c.Request.Context(), currentUser(c), domain.Role(req.Role), req.Region, service.SendNotificationInput{
		Title:    req.Title,
		Message:  req.Message,
		Type:     models.NotificationType(req.Type),
		Priority: models.NotificationPriority(req.Priority),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipients": count})
}
