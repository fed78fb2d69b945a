// router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo/authz/controller"
	"github.com/dev-mohitbeniwal/echo/authz/middleware"
	"github.com/dev-mohitbeniwal/echo/authz/service"
)

type Options struct {
	JWTSecret         []byte
	RateLimitRequests int
	RateLimitDuration time.Duration
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// RateLimiter replaces the redis limiter; tests use it.
	RateLimiter middleware.LimitFunc
}

func SetupRouter(
	controllers *controller.Controllers,
	authz service.IAuthorizationService,
	opts Options,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": authz.Mode()})
	})
	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	limiter := middleware.RateLimiter(opts.RateLimitRequests, opts.RateLimitDuration)
	if opts.RateLimiter != nil {
		limiter = middleware.NewRateLimiter(opts.RateLimiter, opts.RateLimitRequests, opts.RateLimitDuration)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.ActorAuth(opts.JWTSecret))
	api.Use(limiter)

	adminGuard := middleware.RequireManagePolicies(authz)
	controllers.Policy.RegisterRoutes(api, adminGuard)
	controllers.Authorization.RegisterRoutes(api, adminGuard)

	return router
}
