package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ZapLogger writes one access line per request. Server errors log at error,
// client errors at warn, everything else at debug.
func ZapLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Int("size", max(c.Writer.Size(), 0)),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("status request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("status request", fields...)
		default:
			l.Debug("status request", fields...)
		}
	}
}
