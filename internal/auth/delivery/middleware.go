package delivery

import (
	"strings"

	"projectflow-backend/internal/auth/usecase"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID  = "userID"
	ContextProfile = "profile"
)

// AuthMiddleware resolves the caller from the Authorization header.
func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return authenticate(authUsecase, false)
}

// StreamAuthMiddleware also accepts the token as ?token=, for SSE clients
// that cannot set headers. Use it only on stream routes.
func StreamAuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return authenticate(authUsecase, true)
}

func authenticate(authUsecase usecase.AuthUsecase, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c, allowQuery)
		if err != nil {
			response.Error(c, err)
			return
		}

		profile, err := authUsecase.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(ContextUserID, profile.ID)
		c.Set(ContextProfile, profile)
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); allowQuery && token != "" {
			return token, nil
		}
		return "", apperror.Unauthenticated("authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", apperror.Unauthenticated("invalid authorization header format")
	}
	return parts[1], nil
}
