// middleware/logger.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/util"
)

const RequestIDHeader = "X-Request-ID"

// Logger is a middleware that logs incoming HTTP requests. It reuses the
// caller's X-Request-ID or assigns a new one.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		reqLog := logger.WithContext(zap.String("requestID", requestID))

		c.Next()

		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if actor, ok := util.GetActorFromContext(c); ok {
			fields = append(fields, zap.String("actor", actor.URN))
		}

		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				reqLog.Error("Request error", append(fields, zap.String("error", e))...)
			}
			return
		}
		reqLog.Info("Request processed", fields...)
	}
}
