package api

import (
	"net/http"

	"decisionlog-backend/internal/engagement/delivery"
	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, engagementHandler *delivery.EngagementHandler, cfg *config.Config, limiter delivery.RateLimiter) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Cron triggers (shared bearer secret)
		cron := api.Group("/cron")
		if limiter != nil {
			cron.Use(delivery.RateLimitMiddleware(limiter, "cron"))
		}
		cron.Use(delivery.CronAuthMiddleware(cfg.CronSecret))
		{
			for _, category := range domain.AllCategories() {
				path := "/" + category.Slug()
				cron.GET(path, engagementHandler.RunCategory(category))
				cron.POST(path, engagementHandler.RunCategory(category))
			}
			cron.GET("/health-snapshots", engagementHandler.RefreshHealthSnapshots)
			cron.POST("/health-snapshots", engagementHandler.RefreshHealthSnapshots)
		}

		// Per-user snapshot, called by the CRUD service after an outcome save
		health := api.Group("/health")
		if limiter != nil {
			health.Use(delivery.RateLimitMiddleware(limiter, "health"))
		}
		health.Use(delivery.CronAuthMiddleware(cfg.CronSecret))
		{
			health.POST("/:userId/snapshot", engagementHandler.SnapshotUser)
		}
	}
}
