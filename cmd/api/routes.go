package main

import (
	"database/sql"
	"net/http"
	"time"

	"ivr-engine/internal/config"
	"ivr-engine/internal/webhook"
	"ivr-engine/pkg/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type registerDeps struct {
	cfg     config.Config
	db      *sql.DB
	webhook *webhook.Handler
	ops     *webhook.OpsHandler
	authMW  gin.HandlerFunc
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, d registerDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks: shared-secret auth plus a per-IP delivery cap.
	rl := webhook.NewRateLimiter(rate.Limit(d.cfg.Webhook.RateLimitPerSecond), d.cfg.Webhook.RateLimitBurst)
	hooks := r.Group("/webhooks")
	hooks.Use(rl.Middleware())
	hooks.Use(webhook.RequireSharedSecret(d.cfg.Webhook.SharedSecret))
	{
		hooks.POST("/voice", d.webhook.HandleEvent)
	}

	// Operator endpoints: token auth, read only. Tokens are minted out of
	// band; the engine itself has no login surface.
	v1 := r.Group("/v1")
	v1.Use(d.authMW)
	{
		v1.GET("/menus/:menu_id/tree", d.ops.MenuTree)
		v1.GET("/calls/:call_id", d.ops.GetCall)
	}
}
