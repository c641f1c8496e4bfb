package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
)

func (h HandlerSet) SystemStatus(c *gin.Context) {
	status, err := h.adminService.SystemStatus(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h HandlerSet) RunCleanup(c *gin.Context) {
	report, err := h.adminService.Cleanup(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h HandlerSet) CreateBackup(c *gin.Context) {
	key, err := h.adminService.Backup(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (h HandlerSet) ListBackups(c *gin.Context) {
	keys, err := h.adminService.Backups(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": keys})
}

func (h HandlerSet) AuditLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := models.AuditFilter{
		ActorID:      c.Query("actor_id"),
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
		Limit:        limit,
		Offset:       offset,
	}
	if since := c.Query("since"); since != "" {
		t, err := domain.ParseDate(since)
		if err != nil {
			h.fail(c, err)
			return
		}
		filter.Since = &t
	}
	if until := c.Query("until"); until != "" {
		t, err := domain.ParseDate(until)
		if err != nil {
			h.fail(c, err)
			return
		}
		filter.Until = &t
	}

	records, err := h.adminService.AuditLog(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": toAuditResponses(records)})
}

type auditResponse struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *string        `json:"resource_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	Timestamp    string         `json:"timestamp"`
}

func toAuditResponses(records []models.AuditRecord) []auditResponse {
	out := make([]auditResponse, 0, len(records))
	for _, record := range records {
		out = append(out, auditResponse{
			ID:           record.ID,
			ActorID:      record.ActorID,
			Action:       record.Action,
			ResourceType: record.ResourceType,
			ResourceID:   record.ResourceID,
			Metadata:     record.Metadata,
			IPAddress:    record.IPAddress,
			Timestamp:    record.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return out
}

func (h HandlerSet) SystemActivity(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	summary, err := h.adminService.SystemActivity(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h HandlerSet) ActorActivity(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	summary, err := h.adminService.ActorActivity(c.Request.Context(), c.Param("id"), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type bulkCycleResetRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

func (h HandlerSet) BulkResetCycles(c *gin.Context) {
	var req bulkCycleResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	result, err := h.adminService.BulkResetCycles(c.Request.Context(), currentUser(c), req.UserIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type bulkLevelRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
	Level   *int     `json:"level" binding:"required"`
}

func (h HandlerSet) BulkSetLevel(c *gin.Context) {
	var req bulkLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	result, err := h.adminService.BulkSetLevel(c.Request.Context(), currentUser(c), req.UserIDs, *req.Level)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HandlerSet) ForceLogout(c *gin.Context) {
	count, err := h.adminService.ForceLogout(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": count})
}
