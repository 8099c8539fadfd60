package api

import (
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/meetscribe/scribe-api/api/health"
	"github.com/meetscribe/scribe-api/api/progress"
	"github.com/meetscribe/scribe-api/api/sessions"
	"github.com/meetscribe/scribe-api/api/types"
	"github.com/meetscribe/scribe-api/api/version"
	_ "github.com/meetscribe/scribe-api/docs/swagger"
	"github.com/meetscribe/scribe-api/pkg/config"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	engine.NoRoute(NotFoundHandler())

	// API v1 routes
	v1 := engine.Group("/api/v1")

	rateLimitEnabled := true
	if cfg, err := config.GetConfig(); err == nil {
		rateLimitEnabled = cfg.RateLimiting.Enabled
	}

	// Session creation fans out remote work, so it gets a tighter limit
	// (5 req/s, burst of 10)
	sessionGroup := v1.Group("/sessions")
	if rateLimitEnabled {
		sessionGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 5, 10))
	}
	sessions.RegisterRoutes(sessionGroup, deps)

	// Progress polling and streaming (20 req/s, burst of 40)
	progressGroup := v1.Group("/progress")
	if rateLimitEnabled {
		progressGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 20, 40))
	}
	progress.RegisterRoutes(progressGroup, deps)

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
