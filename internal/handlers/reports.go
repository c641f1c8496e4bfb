package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasbiaat/api/internal/domain"
)

func (h HandlerSet) WeeklyReport(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	report, err := h.reportService.Weekly(c.Request.Context(), currentUser(c), c.Query("user_id"), offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h HandlerSet) MonthlyReport(c *gin.Context) {
	report, err := h.reportService.Monthly(c.Request.Context(), currentUser(c), c.Query("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h HandlerSet) CustomReport(c *gin.Context) {
	from, err := domain.ParseDate(c.Query("from"))
	if err != nil {
		h.fail(c, err)
		return
	}
	to, err := domain.ParseDate(c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}

	report, err := h.reportService.ForUser(c.Request.Context(), currentUser(c), c.Query("user_id"), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h HandlerSet) GroupOverview(c *gin.Context) {
	members, err := h.reportService.GroupOverview(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h HandlerSet) Analytics(c *gin.Context) {
	analytics, err := h.reportService.Analytics(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}
