package delivery

import (
	"net/http"

	"projectflow-backend/internal/auth/usecase"
	"projectflow-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves the caller's profile and push registrations
type AuthHandler struct {
	authUsecase usecase.AuthUsecase
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authUsecase usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{authUsecase: authUsecase}
}

// RegisterTokenRequest represents the request body for registering an FCM token
type RegisterTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// Me returns the caller's profile
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.authUsecase.GetProfile(c.Request.Context(), c.GetString(ContextUserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateMe edits the caller's display name or avatar
// PUT /api/me
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req usecase.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	profile, err := h.authUsecase.UpdateProfile(c.Request.Context(), c.GetString(ContextUserID), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RegisterFCMToken stores a device token for push notifications
// POST /api/fcm/register
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	if err := h.authUsecase.RegisterDeviceToken(c.Request.Context(), c.GetString(ContextUserID), req.Token, req.DeviceInfo); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token registered successfully"})
}

// UnregisterFCMToken removes one of the caller's device tokens
// DELETE /api/fcm/:token
func (h *AuthHandler) UnregisterFCMToken(c *gin.Context) {
	if err := h.authUsecase.UnregisterDeviceToken(c.Request.Context(), c.GetString(ContextUserID), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token unregistered successfully"})
}
