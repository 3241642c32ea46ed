// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"adminkit/internal/domain/admin"
	"adminkit/internal/infrastructure/http/v1/handlers"
	"adminkit/internal/infrastructure/http/v1/middleware"
	"adminkit/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Admin assembles the entity views
	Admin *admin.Service

	// Database is pinged by the readiness probe
	Database handlers.Database

	// History serves the audit trail; nil disables the history route
	History handlers.HistoryReader

	// Logger for request logging
	Logger *logger.Logger

	// AdminEnabled mounts the entity routes under Admin's base path
	AdminEnabled bool

	// AllowedOrigins enables CORS for browser clients on other origins
	AllowedOrigins []string

	// Debug switches gin to debug mode
	Debug bool

	AppName string
	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Trace(cfg.Logger))
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(cfg.AllowedOrigins))
	}

	if cfg.Database != nil {
		healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.AppName, cfg.Version)
		health := router.Group("/health")
		{
			health.GET("/live", healthHandler.Live)
			health.GET("/ready", healthHandler.Ready)
			health.GET("/info", healthHandler.Info)
		}
	}

	if cfg.AdminEnabled && cfg.Admin != nil {
		registerAdminRoutes(router, cfg)
	}

	return router
}

func registerAdminRoutes(router *gin.Engine, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	adminHandler := handlers.NewAdminHandler(baseHandler, cfg.Admin, cfg.History)
	RegisterEntityRoutes(router.Group(cfg.Admin.Settings().BasePath), adminHandler)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
		MaxAge:        12 * time.Hour,
	})
}
