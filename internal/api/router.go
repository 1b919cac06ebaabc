package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"dispenser-tracker-backend/config"
	"dispenser-tracker-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(h.log))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	responses := mw.NewResponseCache(cfg.CacheTTL)
	caching := responses.Cache()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(rateLimiter, responses.Invalidate())
	{
		api.GET("/dispensers", caching, h.ListDispensers)
		api.POST("/dispensers", h.CreateDispenser)
		api.GET("/dispensers/:id", caching, h.GetDispenser)
		api.PUT("/dispensers/:id", h.UpdateDispenser)
		api.DELETE("/dispensers/:id", h.DeleteDispenser)
		api.POST("/dispensers/:id/assign-schedule", h.AssignSchedule)
		api.POST("/dispensers/:id/refill", h.RecordRefill)
		// projections depend on the clock, so they are never cached
		api.GET("/dispensers/:id/usage-calculation", h.GetUsageCalculation)

		api.GET("/refill-logs", caching, h.ListRefillLogs)

		api.GET("/schedules", caching, h.ListSchedules)
		api.POST("/schedules", h.CreateSchedule)
		api.GET("/schedules/:id", caching, h.GetSchedule)
		api.PUT("/schedules/:id", h.UpdateSchedule)
		api.DELETE("/schedules/:id", h.DeleteSchedule)

		api.GET("/clients", caching, h.ListClients)
		api.GET("/clients/summary", caching, h.GetClientSummary)
		api.POST("/clients", h.CreateClient)
		api.GET("/clients/:id", caching, h.GetClient)
		api.PUT("/clients/:id", h.UpdateClient)
		api.DELETE("/clients/:id", h.DeleteClient)

		api.GET("/technician-assignments", h.ListAssignments)
		api.POST("/technician-assignments", h.CreateAssignment)
		api.POST("/technician-assignments/:id/complete", h.CompleteAssignment)
		api.DELETE("/technician-assignments/:id", h.DeleteAssignment)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
