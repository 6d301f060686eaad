package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	health_module "github.com/ethanbaker/eva/internal/api/modules/health"
	transcription_module "github.com/ethanbaker/eva/internal/api/modules/transcription"
	"github.com/ethanbaker/eva/internal/chat"
	"github.com/ethanbaker/eva/internal/session"
	"github.com/ethanbaker/eva/pkg/utils"
)

// Start runs the HTTP ingest API. External capture pipelines push
// transcriptions here and poll session status, the same surface the bot
// exposes in-channel.
func Start(cfg *utils.Config, registry *session.Registry, exporter *session.Exporter, chatProvider chat.Provider) error {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "5000")

	// Add app level settings/routes
	engine := gin.Default()

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	transcription_module.RegisterRoutes(baseGroup)
	transcription_module.Init(registry, exporter, chatProvider)

	// Then after performing initial setup, start the server
	return engine.Run(":" + port)
}
