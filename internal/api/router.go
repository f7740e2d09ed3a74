package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wattanaa/ecopoint/internal/api/handlers"
	"github.com/wattanaa/ecopoint/internal/api/ws"
	"github.com/wattanaa/ecopoint/internal/auth"
	"github.com/wattanaa/ecopoint/internal/config"
	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/queue"
	"github.com/wattanaa/ecopoint/internal/scan"
	"github.com/wattanaa/ecopoint/internal/storage"
)

type RouterConfig struct {
	AdminKey string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
	Registry *scan.Registry
	Ledger   *loyalty.Ledger
	Vision   config.VisionConfig
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")

	// WebSocket (live scan updates)
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Users
	userH := handlers.NewUserHandler(cfg.DB, cfg.Ledger)
	v1.POST("/login", userH.Login)
	v1.GET("/users/:id", userH.Get)
	v1.PATCH("/users/:id", userH.Update)
	v1.GET("/users/:id/history", userH.History)
	v1.POST("/users/:id/redeem", userH.Redeem)
	v1.GET("/leaderboard", userH.Leaderboard)

	// Rewards catalog
	rewardH := handlers.NewRewardHandler(cfg.DB)
	v1.GET("/rewards", rewardH.List)
	v1.GET("/rewards/:id", rewardH.Get)

	// Scan sessions
	sessionH := handlers.NewSessionHandler(cfg.DB, cfg.Producer, cfg.Registry, cfg.Ledger, cfg.Vision)
	v1.POST("/sessions", sessionH.Create)
	v1.GET("/sessions/:id", sessionH.Get)
	v1.POST("/sessions/:id/stop", sessionH.Stop)
	v1.POST("/sessions/:id/confirm", sessionH.Confirm)

	// Settings (read side is public so the app can show rates and tiers)
	settingsH := handlers.NewSettingsHandler(cfg.DB, cfg.Ledger)
	v1.GET("/settings", settingsH.Get)

	// Admin surface
	admin := v1.Group("/admin")
	admin.Use(auth.AdminKeyMiddleware(cfg.AdminKey))
	admin.GET("/users", userH.List)
	admin.PATCH("/users/:id", userH.AdminUpdate)
	admin.DELETE("/users/:id", userH.Delete)
	admin.POST("/rewards", rewardH.Create)
	admin.PUT("/rewards/:id", rewardH.Update)
	admin.DELETE("/rewards/:id", rewardH.Delete)
	admin.PUT("/settings", settingsH.Update)

	return r
}
