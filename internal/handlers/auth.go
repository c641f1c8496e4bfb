package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tasbiaat/api/internal/security"
	"tasbiaat/api/internal/service"
)

type loginRequest struct {
	// Identifier is a phone number or email address.
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	DeviceName string `json:"device_name"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		DeviceName: req.DeviceName,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	})
}

func accessClaims(c *gin.Context) security.AccessClaims {
	claimsVal, _ := c.Get("access_claims")
	claims, _ := claimsVal.(security.AccessClaims)
	return claims
}

func (h HandlerSet) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(currentUser(c))})
}

func (h HandlerSet) Refresh(c *gin.Context) {
	result, err := h.authService.Refresh(c.Request.Context(), currentUser(c), accessClaims(c).TokenID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), currentUser(c), accessClaims(c).TokenID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) LogoutAll(c *gin.Context) {
	count, err := h.authService.LogoutAll(c.Request.Context(), currentUser(c), accessClaims(c).TokenID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": count})
}

type sessionResponse struct {
	ID           string    `json:"id"`
	DeviceName   string    `json:"device_name,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	Current      bool      `json:"current"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	sessions, err := h.authService.Sessions(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	currentTokenID := accessClaims(c).TokenID
	out := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, sessionResponse{
			ID:           session.ID,
			DeviceName:   session.DeviceName,
			IPAddress:    session.IPAddress,
			LastActivity: session.LastActivity,
			ExpiresAt:    session.ExpiresAt,
			Current:      session.TokenID == currentTokenID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), currentUser(c), service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		KeepTokenID:     accessClaims(c).TokenID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
