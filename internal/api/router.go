package api

import (
	"github.com/askfolio/askfolio/internal/api/admin"
	"github.com/askfolio/askfolio/internal/api/assistant"
	"github.com/askfolio/askfolio/internal/api/middleware"
	"github.com/askfolio/askfolio/internal/service"
	"github.com/gin-gonic/gin"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey          string
	AllowOrigins    []string
	RateLimit       bool
	RequestsPerHour int
}

// SetupRouter sets up the Gin router
func SetupRouter(
	chatService *service.ChatService,
	assistantService *service.AssistantService,
	adminService *service.AdminService,
	ingestService *service.IngestService,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Assistant API (public)
	assistantHandler := assistant.NewHandler(chatService, assistantService)
	assistantGroup := r.Group("/api/assistant")
	if cfg.RateLimit {
		assistantGroup.Use(middleware.RateLimit(cfg.RequestsPerHour))
	}
	assistantHandler.RegisterRoutes(assistantGroup)

	// Admin API (requires API key)
	adminHandler := admin.NewHandler(adminService, ingestService)
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.Auth(cfg.APIKey))
	adminHandler.RegisterRoutes(adminGroup)

	return r
}
