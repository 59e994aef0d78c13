package router

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/handlers"
	"github.com/pandeptwidyaop/homelab-remote/internal/middleware"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

// Services bundles what the HTTP layer dispatches to.
type Services struct {
	Auth       *services.AuthService
	Controller *services.ServiceController
	Poller     *services.StatusPoller
	Backups    *services.BackupService
	Audit      *services.AuditService
	Power      *services.PowerService
}

func New(cfg *config.Config, svc Services) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	// ClientIP decides who is local, so forwarded headers are never trusted.
	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("[Router] Failed to reset trusted proxies: %v", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.DefaultBodyLimit())

	limiter := middleware.NewRateLimiter(30, time.Minute)
	gate := []gin.HandlerFunc{limiter.Middleware(), middleware.RemoteAuth(svc.Auth)}

	serviceHandler := handlers.NewServiceHandler(svc.Controller, svc.Poller, svc.Auth.ServerIP())
	systemHandler := handlers.NewSystemHandler(svc.Power, cfg)
	authHandler := handlers.NewAuthHandler(svc.Auth)
	backupHandler := handlers.NewBackupHandler(svc.Backups)
	auditHandler := handlers.NewAuditHandler(svc.Audit)
	streamHandler := handlers.NewStreamHandler(svc.Poller)
	versionHandler := handlers.NewVersionHandler()

	r.GET("/service-status", serviceHandler.Status)
	r.POST("/verify-password", limiter.Middleware(), authHandler.VerifyPassword)

	legacy := r.Group("", gate...)
	{
		legacy.POST("/start/:service", serviceHandler.Start)
		legacy.POST("/stop/:service", serviceHandler.Stop)
		legacy.POST("/start-all", serviceHandler.StartAll)
		legacy.POST("/stop-all", serviceHandler.StopAll)
		legacy.POST("/shutdown", systemHandler.Shutdown)
	}

	api := r.Group("/api")
	{
		api.GET("/version", versionHandler.Get)
		api.GET("/services", serviceHandler.List)
		api.GET("/services/:id", serviceHandler.Get)
		api.GET("/services/:id/events", serviceHandler.Events)
		api.GET("/system/metrics", systemHandler.Metrics)
		api.GET("/backups", backupHandler.List)
		api.GET("/backups/runs", backupHandler.Runs)
		api.GET("/backups/runs/:id", backupHandler.GetRun)
		api.GET("/ws/status", streamHandler.WebSocket)
		api.GET("/status/stream", streamHandler.Stream)

		protected := api.Group("", gate...)
		{
			protected.POST("/services/:id/start", serviceHandler.APIStart)
			protected.POST("/services/:id/stop", serviceHandler.APIStop)
			protected.POST("/backups/run", backupHandler.RunAll)
			protected.POST("/backups/:name/run", backupHandler.Run)
			protected.GET("/audit", auditHandler.List)
		}
	}

	// Static routes above take priority over this single-segment match.
	r.GET("/:service", serviceHandler.Redirect)

	return r
}
