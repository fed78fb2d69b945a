// middleware/actor_auth.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authz/service"
	"github.com/dev-mohitbeniwal/echo/authz/util"
)

// ActorClaims carries the caller's corp user URN in sub and its resolved
// group URNs.
type ActorClaims struct {
	Groups []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

// ActorAuth verifies the HS256 bearer token and stores the actor in the gin
// context.
func ActorAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			logger.Warn("No Authorization token provided", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := parseActorToken(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			logger.Warn("Rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(util.ActorContextKey, pdp_model.Actor{URN: claims.Subject, Groups: claims.Groups})
		c.Next()
	}
}

func parseActorToken(tokenString string, secret []byte) (*ActorClaims, error) {
	claims := &ActorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// IssueActorToken signs a token for actorURN. It backs the admin tooling and
// tests; production tokens come from the identity provider.
func IssueActorToken(secret []byte, actorURN string, groups []string, claims jwt.RegisteredClaims) (string, error) {
	if actorURN == "" {
		return "", fmt.Errorf("actor urn required")
	}
	claims.Subject = actorURN
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ActorClaims{Groups: groups, RegisteredClaims: claims})
	return token.SignedString(secret)
}

// RequirePrivilege lets the request through only if the authorizer permits
// the actor the platform privilege.
func RequirePrivilege(authz service.IAuthorizationService, privilege string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := util.GetActorFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		decision, err := authz.Authorize(c.Request.Context(), pdp_model.NewAuthorizationRequest(actor, privilege, nil))
		if err != nil {
			util.RespondWithError(c, http.StatusInternalServerError, "Authorization failed", err)
			c.Abort()
			return
		}
		if !decision.Permitted {
			logger.Warn("Privilege denied",
				zap.String("actor", actor.URN),
				zap.String("privilege", privilege))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// RequireManagePolicies guards policy administration.
func RequireManagePolicies(authz service.IAuthorizationService) gin.HandlerFunc {
	return RequirePrivilege(authz, model.PrivilegeManagePolicies)
}
