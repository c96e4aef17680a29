// Package response renders use-case errors as JSON bodies.
package response

import (
	"projectflow-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Error writes {"error", "kind"} with the status matching err's kind.
func Error(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= 500 {
		log.WithError(err).Errorf("[HTTP] %s %s failed", c.Request.Method, c.FullPath())
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"kind":  apperror.KindOf(err),
	})
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(c *gin.Context, err error) {
	Error(c, apperror.Validation("%v", err))
}
