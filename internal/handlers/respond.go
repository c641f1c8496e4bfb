package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h HandlerSet) fail(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	message := err.Error()
	if kind == domain.KindInternal {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		message = "internal server error"
	}

	c.JSON(status, gin.H{
		"error":   string(kind),
		"message": message,
	})
}

func currentUser(c *gin.Context) models.User {
	userVal, _ := c.Get("current_user")
	user, _ := userVal.(models.User)
	return user
}

type userResponse struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Phone          string                  `json:"phone"`
	Email          *string                 `json:"email,omitempty"`
	Role           string                  `json:"role"`
	Region         *string                 `json:"region,omitempty"`
	MurabiID       *string                 `json:"murabi_id,omitempty"`
	MasoolID       *string                 `json:"masool_id,omitempty"`
	SheikhID       *string                 `json:"sheikh_id,omitempty"`
	Level          int                     `json:"level"`
	LevelStartDate *string                 `json:"level_start_date,omitempty"`
	CycleDays      int                     `json:"cycle_days,omitempty"`
	Settings       domain.PracticeSettings `json:"settings"`
	IsActive       bool                    `json:"is_active"`
}

func toUserResponse(user models.User) userResponse {
	resp := userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Phone:     user.Phone,
		Email:     user.Email,
		Role:      string(user.Role),
		Region:    user.Region,
		MurabiID:  user.MurabiID,
		MasoolID:  user.MasoolID,
		SheikhID:  user.SheikhID,
		Level:     user.Level,
		CycleDays: user.CycleDays,
		Settings:  user.Settings,
		IsActive:  user.IsActive,
	}
	if user.LevelStartDate != nil {
		s := user.LevelStartDate.Format(domain.DateLayout)
		resp.LevelStartDate = &s
	}
	return resp
}

func toUserResponses(users []models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}
	return out
}

type entryResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	MurabiID      *string             `json:"murabi_id,omitempty"`
	Date          string              `json:"date"`
	LevelAtEntry  int                 `json:"level_at_entry"`
	Categories    domain.CategoryMap  `json:"categories"`
	ZikrCompleted bool                `json:"zikr_completed"`
	ZikrViolated  bool                `json:"zikr_violated"`
	Status        string              `json:"status"`
	Comments      []models.Comment    `json:"comments,omitempty"`
	Audit         []models.EntryAudit `json:"audit,omitempty"`
}

func toEntryResponse(entry models.Entry) entryResponse {
	return entryResponse{
		ID:            entry.ID,
		UserID:        entry.UserID,
		MurabiID:      entry.MurabiID,
		Date:          entry.Date.Format(domain.DateLayout),
		LevelAtEntry:  entry.LevelAtEntry,
		Categories:    entry.Categories,
		ZikrCompleted: entry.ZikrCompleted,
		ZikrViolated:  entry.ZikrViolated,
		Status:        string(entry.Status),
		Comments:      entry.Comments,
		Audit:         entry.Audit,
	}
}

func toEntryResponses(entries []models.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryResponse(entry))
	}
	return out
}
