package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/service"
)

type submitEntryRequest struct {
	Date       string             `json:"date" binding:"required"`
	Categories domain.CategoryMap `json:"categories" binding:"required"`
	Status     string             `json:"status"`
	Comment    string             `json:"comment"`
}

func (h HandlerSet) SubmitEntry(c *gin.Context) {
	var req submitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	result, err := h.entryService.Submit(c.Request.Context(), currentUser(c), service.SubmitEntryInput{
		Date:       req.Date,
		Categories: req.Categories,
		Status:     models.EntryStatus(req.Status),
		Comment:    req.Comment,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"entry":           toEntryResponse(result.Entry),
		"created":         result.Created,
		"zikr_violated":   result.ZikrViolated,
		"cycle_restarted": result.CycleRestarted,
		"cycle_progress":  result.CycleProgress,
	})
}

func (h HandlerSet) GetEntry(c *gin.Context) {
	entry, err := h.entryService.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": toEntryResponse(entry)})
}

func (h HandlerSet) ListEntries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.entryService.List(c.Request.Context(), currentUser(c), service.ListEntriesInput{
		UserID: c.Query("user_id"),
		Status: c.Query("status"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": toEntryResponses(entries)})
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h HandlerSet) CommentEntry(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	entry, err := h.entryService.Comment(c.Request.Context(), currentUser(c), c.Param("id"), service.CommentInput{
		Text: req.Text,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": toEntryResponse(entry)})
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) SetEntryStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	entry, err := h.entryService.SetStatus(c.Request.Context(), currentUser(c), c.Param("id"), models.EntryStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": toEntryResponse(entry)})
}

func (h HandlerSet) DeleteEntry(c *gin.Context) {
	if err := h.entryService.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
