// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
)

// ActorContextKey is the gin context key holding the authenticated actor.
const ActorContextKey = "actor"

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// GetActorFromContext returns the actor set by the authentication
// middleware.
func GetActorFromContext(c *gin.Context) (pdp_model.Actor, bool) {
	value, exists := c.Get(ActorContextKey)
	if !exists {
		return pdp_model.Actor{}, false
	}
	actor, ok := value.(pdp_model.Actor)
	if !ok || actor.URN == "" {
		return pdp_model.Actor{}, false
	}
	return actor, true
}
