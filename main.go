package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-mohitbeniwal/echo/authz/audit"
	"github.com/dev-mohitbeniwal/echo/authz/config"
	"github.com/dev-mohitbeniwal/echo/authz/controller"
	"github.com/dev-mohitbeniwal/echo/authz/dao"
	"github.com/dev-mohitbeniwal/echo/authz/db"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/authorizer"
	pdp_dao "github.com/dev-mohitbeniwal/echo/authz/pdp/dao"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authz/router"
	"github.com/dev-mohitbeniwal/echo/authz/service"
	"github.com/dev-mohitbeniwal/echo/authz/telemetry"
	"github.com/dev-mohitbeniwal/echo/authz/util"
)

const bootstrapLock = "policy-bootstrap"

func main() {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	if err := config.BindFlags(flags); err != nil {
		log.Fatalf("Failed to bind flags: %v", err)
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	mode, err := pdp_model.ParseMode(config.GetString("authorization.mode"), config.GetBool("authorization.unsafeAllowPermissive"))
	if err != nil {
		logger.Fatal("Invalid authorization mode", zap.Error(err))
	}
	jwtSecret := config.GetString("auth.jwtSecret")
	if jwtSecret == "" {
		logger.Fatal("auth.jwtSecret must be set")
	}

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	var metricsHandler http.Handler
	if config.GetBool("metrics.enabled") {
		handler, shutdownMetrics, err := telemetry.InitPrometheus()
		if err != nil {
			logger.Fatal("Failed to initialize metrics", zap.Error(err))
		}
		metricsHandler = handler
		defer shutdownMetrics(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)

	systemActor := config.GetString("authorization.systemActor")
	manager := authorizer.NewAuthorizationManager(
		pdp_dao.NewPolicyRetrievalDAO(db.Neo4jDriver),
		engine.NewPolicyEngine(),
		authorizer.Config{
			Mode:            mode,
			RefreshDelay:    config.GetDuration("authorization.refreshDelay"),
			RefreshInterval: config.GetDuration("authorization.refreshInterval"),
			PageSize:        config.GetInt("authorization.pageSize"),
			SystemActor:     systemActor,
		},
	)
	manager.Start(ctx)
	defer manager.Stop()

	instanceID := uuid.NewString()
	channel := config.GetString("redis.invalidationChannel")
	cacheService := util.NewCacheService()

	services, err := service.InitializeServices(service.Dependencies{
		PolicyRepo:      dao.NewPolicyDAO(db.Neo4jDriver, auditService),
		Authorizer:      manager,
		AuditService:    auditService,
		ValidationUtil:  util.NewValidationUtil(),
		CacheService:    cacheService,
		NotificationSvc: util.NewNotificationService(),
		EventBus:        eventBus,
		Broadcaster:     util.NewRedisBroadcaster(instanceID, channel),
		Resolver:        dao.NewActorDAO(db.Neo4jDriver),
		AllowPermissive: config.GetBool("authorization.unsafeAllowPermissive"),
	})
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	if file := config.GetString("policies.bootstrapFile"); file != "" {
		bootstrapPolicies(ctx, services.Policy, file, systemActor)
	}

	gin.SetMode(gin.ReleaseMode)
	httpRouter := router.SetupRouter(controller.InitializeControllers(services), services.Authorization, router.Options{
		JWTSecret:         []byte(jwtSecret),
		RateLimitRequests: config.GetInt("ratelimit.requests"),
		RateLimitDuration: config.GetDuration("ratelimit.window"),
		MetricsHandler:    metricsHandler,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: httpRouter,
	}

	listener := service.NewInvalidationListener(instanceID, manager, cacheService)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server",
			zap.String("port", config.GetString("server.port")),
			zap.String("instanceID", instanceID))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Without the subscription this instance still converges on the
		// scheduled refresh.
		if err := db.SubscribeInvalidations(gctx, channel, listener.Handle); err != nil {
			logger.Error("Policy invalidation subscription ended", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		eventBus.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		return
	}
	logger.Info("Server exiting")
}

// bootstrapPolicies seeds the store from file. A redis lock keeps concurrent
// boots from racing on the same policies.
func bootstrapPolicies(ctx context.Context, policies service.IPolicyService, file, actor string) {
	seeds, err := service.LoadBootstrapPolicies(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("No bootstrap policy file, skipping", zap.String("file", file))
			return
		}
		logger.Fatal("Failed to load bootstrap policies", zap.Error(err), zap.String("file", file))
	}

	locked, err := db.LockResource(ctx, bootstrapLock, time.Minute)
	if err != nil || !locked {
		logger.Info("Policy bootstrap running elsewhere, skipping", zap.Error(err))
		return
	}
	defer func() {
		if err := db.UnlockResource(context.WithoutCancel(ctx), bootstrapLock); err != nil {
			logger.Warn("Failed to release bootstrap lock", zap.Error(err))
		}
	}()

	if _, err := service.BootstrapPolicies(ctx, policies, seeds, actor); err != nil {
		logger.Error("Policy bootstrap incomplete", zap.Error(err))
	}
}
