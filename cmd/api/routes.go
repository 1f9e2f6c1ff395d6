package main

import (
	"database/sql"
	"time"

	"leadflow-platform/internal/httpapi"
	"leadflow-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, db *sql.DB, rdb *redis.Client) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: production deployments should validate provider signatures here.
	r.POST("/webhooks/delivery", h.DeliveryCallback)

	v1 := r.Group("/v1")
	{
		leads := v1.Group("/leads")
		{
			leads.POST("", h.IntakeLead)
			leads.GET("/:lead_id", h.GetLead)
			leads.POST("/:lead_id/messages", h.InboundMessage)
			leads.POST("/:lead_id/switch", h.SwitchChannel)
			leads.GET("/:lead_id/communications", h.ListCommunications)
		}

		campaigns := v1.Group("/campaigns")
		{
			campaigns.GET("/:campaign_id/summary", h.CampaignSummary)
		}
	}
}
