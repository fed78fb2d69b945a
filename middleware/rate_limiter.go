// middleware/rate_limiter.go

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/authz/db"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/util"
)

// LimitFunc reports whether one more request for key fits in the window.
type LimitFunc func(ctx context.Context, key string, limit int, per time.Duration) (bool, error)

// RateLimiter limits requests per actor, or per client IP before
// authentication, with the redis sliding window.
func RateLimiter(limit int, per time.Duration) gin.HandlerFunc {
	return NewRateLimiter(db.RateLimit, limit, per)
}

// NewRateLimiter builds the middleware on an arbitrary LimitFunc. When the
// limiter itself fails the request is let through.
func NewRateLimiter(check LimitFunc, limit int, per time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actor, ok := util.GetActorFromContext(c); ok {
			key = "actor:" + actor.URN
		}

		allowed, err := check(c.Request.Context(), key, limit, per)
		if err != nil {
			logger.Error("Rate limiting failed, allowing request", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Duration", per.String())

		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", limit),
				zap.Duration("per", per))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
