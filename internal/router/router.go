package router

import (
	"github.com/dszwed/wp-blueprints/internal/handlers"
	"github.com/dszwed/wp-blueprints/internal/metrics"
	"github.com/dszwed/wp-blueprints/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Options carries the cross-cutting pieces the router wires around handlers
type Options struct {
	AllowedOrigins []string
	Verifier       middleware.TokenVerifier
	CreateLimiter  *middleware.RateLimiter
	Metrics        *metrics.Metrics
}

// Setup configures and returns the application router
func Setup(
	healthHandler *handlers.HealthHandler,
	blueprintHandler *handlers.BlueprintHandler,
	opts Options,
) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery())

	// Request metrics, then CORS so preflights never reach the identity check
	router.Use(metrics.Middleware(opts.Metrics))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.Identify(opts.Verifier))

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// Playground fetches blueprints by this short URL
	router.GET("/blueprint/:id", blueprintHandler.Playground)

	// API v1 routes
	v1 := router.Group("/api/v1")

	v1.GET("/health", healthHandler.Check)
	v1.GET("/versions", healthHandler.Versions)

	create := []gin.HandlerFunc{blueprintHandler.Create}
	if opts.CreateLimiter != nil {
		create = append([]gin.HandlerFunc{opts.CreateLimiter.Middleware()}, create...)
	}

	blueprints := v1.Group("/blueprints")
	{
		blueprints.GET("", blueprintHandler.List)
		blueprints.POST("", create...)
		blueprints.GET("/:id", blueprintHandler.Get)
		blueprints.PATCH("/:id", blueprintHandler.Update)
		blueprints.DELETE("/:id", blueprintHandler.Delete)
		blueprints.GET("/:id/playground", blueprintHandler.Playground)
		blueprints.POST("/:id/runs", blueprintHandler.RecordRun)
	}

	me := v1.Group("/me", middleware.RequireUser())
	{
		me.GET("/blueprints", blueprintHandler.Mine)
	}

	return router
}
