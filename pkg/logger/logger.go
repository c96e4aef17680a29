// Package logger configures the process-wide logrus logger.
package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// Setup applies the configured level and output format.
func Setup(level, format string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)

	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// GormLevel maps the logrus level onto gorm's SQL logger verbosity.
func GormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug", "trace":
		return gormlogger.Info
	case "warn", "warning":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

// GinMiddleware logs one line per request through logrus.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("[HTTP] request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("[HTTP] request rejected")
		default:
			entry.Debug("[HTTP] request served")
		}
	}
}
