package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dszwed/wp-blueprints/internal/config"
	"github.com/dszwed/wp-blueprints/internal/database"
	"github.com/dszwed/wp-blueprints/internal/handlers"
	"github.com/dszwed/wp-blueprints/internal/logger"
	"github.com/dszwed/wp-blueprints/internal/metrics"
	"github.com/dszwed/wp-blueprints/internal/middleware"
	"github.com/dszwed/wp-blueprints/internal/repository"
	"github.com/dszwed/wp-blueprints/internal/router"
	"github.com/dszwed/wp-blueprints/internal/services"
	"github.com/dszwed/wp-blueprints/internal/validation"
	"github.com/dszwed/wp-blueprints/internal/versions"
	"github.com/gin-gonic/gin"
)

// repositories bundles the storage backend chosen at startup
type repositories struct {
	blueprints repository.BlueprintRepository
	statistics repository.StatisticsRepository
	users      repository.UserRepository
	closer     io.Closer
}

func main() {

	ctx := context.Background()

	// Load application configuration
	cfg := config.New()
	logger.Init(cfg.LogLevel)
	logger.Info("Configuration loaded successfully")

	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := versions.Load()
	if err != nil {
		logger.Fatalf("Failed to load version catalog: %v", err)
	}
	logger.Infof("Version catalog loaded: %d PHP, %d WordPress versions", catalog.PHP.Len(), catalog.WordPress.Len())

	m := metrics.New()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	if repos.closer != nil {
		defer repos.closer.Close()
	}

	// Statistics are applied by background workers
	recorder := services.NewStatisticsRecorder(repos.statistics, cfg.StatsQueueSize, cfg.StatsWorkers, m)
	recorder.Start(ctx)
	logger.Infof("Statistics workers started: %d workers, queue size %d", cfg.StatsWorkers, cfg.StatsQueueSize)

	blueprintService := services.NewBlueprintService(
		repos.blueprints,
		repos.users,
		recorder,
		validation.New(catalog),
		m,
	)

	var verifier middleware.TokenVerifier = middleware.UnverifiedParser{}
	if cfg.VerifiesTokens() {
		verifier = middleware.NewAuth0Verifier(&middleware.Auth0Config{
			Domain:   cfg.Auth0Domain,
			Audience: cfg.Auth0Audience,
		})
		logger.Infof("Verifying Auth0 tokens for tenant %s", cfg.Auth0Domain)
	} else {
		logger.GetLogger().Warn("AUTH0_DOMAIN is not set, bearer tokens are accepted without signature checks")
	}

	// Setup router
	r := router.Setup(
		handlers.NewHealthHandler(catalog),
		handlers.NewBlueprintHandler(blueprintService, catalog),
		router.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			Verifier:       verifier,
			CreateLimiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
				Limit:  cfg.CreateRateLimit,
				Window: cfg.CreateRateWindow,
			}, m),
			Metrics: m,
		},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	// Drain pending statistics before closing storage
	if err := recorder.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Statistics workers did not finish in time")
	}
	logger.Info("All workers stopped")
}

// openRepositories builds the repositories for the configured storage driver
func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.StorageDriver {
	case config.StorageBolt:
		store, err := database.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		logger.Infof("Using bolt storage at %s", cfg.BoltPath)
		return &repositories{
			blueprints: repository.NewBoltBlueprintRepository(store),
			statistics: repository.NewBoltStatisticsRepository(store),
			users:      repository.NewBoltUserRepository(store),
			closer:     store,
		}, nil

	default:
		dbConfig := database.NewConfig(cfg)
		logger.Infof("Initializing DynamoDB client in region: %s", dbConfig.Region)

		client, err := database.NewClient(ctx, dbConfig)
		if err != nil {
			return nil, err
		}
		logger.Info("DynamoDB client initialized successfully")

		return &repositories{
			blueprints: repository.NewBlueprintRepository(database.NewBlueprintOperations(client)),
			statistics: repository.NewStatisticsRepository(database.NewStatisticsOperations(client)),
			users:      repository.NewUserRepository(database.NewUserOperations(client)),
		}, nil
	}
}
