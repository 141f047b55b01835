package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/traceroot-ai/sim/internal/api/v1"
	"github.com/traceroot-ai/sim/internal/rest/middleware"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Usage   *v1.UsageHandler
	Webhook *v1.WebhookHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	// Webhooks bypass the v1 group; the provider is configured with this
	// exact path.
	router.POST("/webhooks/stripe", handlers.Webhook.HandleStripeWebhook)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	users := router.Group("/users")
	{
		users.GET("/:id/usage", handlers.Usage.GetUserUsage)
		users.GET("/:id/overage", handlers.Usage.GetUserOverage)
		users.PUT("/:id/usage-limit", handlers.Usage.UpdateUserUsageLimit)
	}

	organizations := router.Group("/organizations")
	{
		organizations.GET("/:id/overage", handlers.Usage.GetOrganizationOverage)
		organizations.PUT("/:id/usage-limit", handlers.Usage.UpdateOrganizationUsageLimit)
	}
}
