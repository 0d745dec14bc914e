// Package web exposes the plan store and scheduling engine over a JSON REST
// API.
package web

import (
	"fmt"
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"billplan/db/db"
	"billplan/mq/mq"
)

// ServiceConfig carries the settings the serve command resolves from flags
// and environment.
type ServiceConfig struct {
	Port   string
	IsDev  bool
	MqMode mq.Mode
	UseMem bool
}

func CorsConfig() cors.Config {
	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConf.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	corsConf.AllowCredentials = true
	corsConf.MaxAge = 1 * 3600 // 1 hour
	return corsConf
}

func setupMiddlewares(r *gin.Engine) {
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(cors.New(CorsConfig()))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(secure.New(secure.Config{
		STSSeconds:           31536000, // 1 year
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		ReferrerPolicy:       "strict-origin-when-cross-origin",
	}))
}

func setupRoutes(r *gin.Engine, h *planHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/plans", h.createPlan)
		api.GET("/plans/:id", h.getPlan)
		api.PUT("/plans/:id/range", h.updatePlanRange)
		api.DELETE("/plans/:id", h.deletePlan)

		api.POST("/plans/:id/bills", h.createBill)
		api.GET("/plans/:id/bills", h.listBills)
		api.PUT("/plans/:id/bills/:billId", h.updateBill)
		api.DELETE("/plans/:id/bills/:billId", h.deleteBill)

		api.POST("/plans/:id/bills/:billId/payments", h.appendPayment)
		// "last" reverts the newest payment; anything else is a zero-based index
		api.DELETE("/plans/:id/bills/:billId/payments/:index", h.removePayment)

		api.PUT("/plans/:id/income/:date", h.setIncome)
		api.DELETE("/plans/:id/income/:date", h.removeIncome)

		api.GET("/plans/:id/schedule", h.getSchedule)
		api.POST("/plans/:id/recompute", h.recomputePlan)
		api.GET("/plans/:id/events", h.streamScheduleEvents)
	}
}

// Serve runs the HTTP server until it fails or the process stops.
func Serve(cfg ServiceConfig, store db.PlanDBWrapper, queues mq.PlanMessageQueueWrapper) error {
	if cfg.IsDev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	setupMiddlewares(r)
	setupRoutes(r, newPlanHandler(store, queues))

	addr := fmt.Sprintf(":%s", cfg.Port)
	slog.Info("listening", "addr", addr, "mq", cfg.MqMode, "mem", cfg.UseMem)
	return r.Run(addr)
}
