package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/service"
)

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
	Region   string `json:"region"`
	MurabiID string `json:"murabi_id"`
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	user, err := h.userService.Create(c.Request.Context(), currentUser(c), service.CreateUserInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Region:   req.Region,
		MurabiID: req.MurabiID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	users, err := h.userService.List(c.Request.Context(), currentUser(c), service.ListUsersInput{
		Role:   c.Query("role"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": toUserResponses(users)})
}

func (h HandlerSet) ListChildren(c *gin.Context) {
	children, err := h.userService.Children(c.Request.Context(), currentUser(c), c.Query("parent_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": toUserResponses(children)})
}

type updateUserRequest struct {
	Name     *string                  `json:"name"`
	Email    *string                  `json:"email"`
	Region   *string                  `json:"region"`
	Settings *domain.PracticeSettings `json:"settings"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	user, err := h.userService.Update(c.Request.Context(), currentUser(c), c.Param("id"), service.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Region:   req.Region,
		Settings: req.Settings,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

type setLevelRequest struct {
	Level int `json:"level" binding:"min=0,max=6"`
}

func (h HandlerSet) SetLevel(c *gin.Context) {
	var req setLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	user, err := h.userService.SetLevel(c.Request.Context(), currentUser(c), c.Param("id"), req.Level)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h HandlerSet) ResetCycle(c *gin.Context) {
	user, err := h.userService.ResetCycle(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h HandlerSet) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	if err := h.userService.SetActive(c.Request.Context(), currentUser(c), c.Param("id"), *req.Active); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type levelResponse struct {
	Level          int      `json:"level"`
	NameUrdu       string   `json:"name_urdu"`
	Description    string   `json:"description"`
	RequiredFields []string `json:"required_fields"`
}

func (h HandlerSet) Progress(c *gin.Context) {
	progress, level, err := h.userService.Progress(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cycle_progress": progress,
		"level": levelResponse{
			Level:          level.Level,
			NameUrdu:       level.NameUrdu,
			Description:    level.Description,
			RequiredFields: level.RequiredFields,
		},
	})
}

func (h HandlerSet) ListLevels(c *gin.Context) {
	levels, err := h.userService.Levels(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]levelResponse, 0, len(levels))
	for _, level := range levels {
		out = append(out, levelResponse{
			Level:          level.Level,
			NameUrdu:       level.NameUrdu,
			Description:    level.Description,
			RequiredFields: level.RequiredFields,
		})
	}
	c.JSON(http.StatusOK, gin.H{"levels": out})
}
