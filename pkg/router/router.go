package router

import (
	"strings"
	"time"

	chatapi "chat-aggregator/backend/chat/api"
	"chat-aggregator/backend/pkg/config"
	"chat-aggregator/backend/pkg/di"
	"chat-aggregator/backend/pkg/errors"
	"chat-aggregator/backend/pkg/logger"
	"chat-aggregator/backend/pkg/middleware"
	sessionapi "chat-aggregator/backend/session/api"

	"github.com/gin-gonic/gin"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(middleware.RequestIDMiddleware())

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Create rate limiter with default options
	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	// Cap request bodies before any handler reads them
	if cfg.Security.MaxBodySize > 0 {
		engine.Use(middleware.BodySizeLimitMiddleware(cfg.Security.MaxBodySize))
	}

	// Start the websocket hub
	go container.Hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	r.setupHealthRoutes()

	sessionHandler := sessionapi.NewSessionHandler(r.Container.SessionService)
	chatHandler := chatapi.NewChatHandler(r.Container.TurnService, r.Container.Registry)

	// API version 1 routes
	v1 := r.Engine.Group("/api/v1")
	{
		sessionHandler.RegisterRoutes(v1)
		chatHandler.RegisterRoutes(v1)
	}

	// WebSocket route for turn progress
	r.Engine.GET("/ws", r.Container.Hub.ServeWs)
}

// Enhance CORS middleware to explicitly allow WebSocket-specific headers
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed := resolveOrigin(allowedOrigins, origin); allowed != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowed)
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// resolveOrigin returns the Access-Control-Allow-Origin value for a request
// origin, or empty when the origin is not in the configured allow list. A "*"
// entry reflects the caller's origin when present.
func resolveOrigin(allowed []string, origin string) string {
	for _, entry := range allowed {
		if entry == "*" {
			if origin != "" {
				return origin
			}
			return "*"
		}
		if strings.EqualFold(entry, origin) {
			return origin
		}
	}
	return ""
}
