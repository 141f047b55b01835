package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/traceroot-ai/sim/internal/api"
	v1 "github.com/traceroot-ai/sim/internal/api/v1"
	"github.com/traceroot-ai/sim/internal/cache"
	"github.com/traceroot-ai/sim/internal/config"
	"github.com/traceroot-ai/sim/internal/domain/payment"
	stripeintegration "github.com/traceroot-ai/sim/internal/integration/stripe"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/postgres"
	"github.com/traceroot-ai/sim/internal/repository"
	"github.com/traceroot-ai/sim/internal/sentry"
	"github.com/traceroot-ai/sim/internal/service"
	"github.com/traceroot-ai/sim/internal/types"
	"github.com/traceroot-ai/sim/internal/validator"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewService,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,

			// Repositories
			repository.NewRepositories,

			// Stripe integration
			stripeintegration.NewClient,
			provideStripeProvider,

			// Services
			provideServiceParams,
			service.NewOverageService,
			service.NewUsageLimitService,
			service.NewSettlementService,

			// Webhook processing
			stripeintegration.NewWebhookProcessor,

			// API
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)
	app.Run()
}

func provideStripeProvider(client *stripeintegration.Client, c cache.Cache, log *logger.Logger) payment.Provider {
	return stripeintegration.NewProvider(client, c, log)
}

func provideServiceParams(
	log *logger.Logger,
	cfg *config.Configuration,
	db *postgres.DB,
	sentrySvc *sentry.Service,
	repos *repository.Repositories,
	provider payment.Provider,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:          log,
		Config:          cfg,
		DB:              db,
		Sentry:          sentrySvc,
		SubRepo:         repos.Subscription,
		UsageRepo:       repos.Usage,
		OrgRepo:         repos.Organization,
		PaymentProvider: provider,
	}
}

func provideHandlers(
	log *logger.Logger,
	usageLimitService service.UsageLimitService,
	overageService service.OverageService,
	processor *stripeintegration.WebhookProcessor,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(log),
		Usage:   v1.NewUsageHandler(usageLimitService, overageService, log),
		Webhook: v1.NewWebhookHandler(processor, log),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration) *gin.Engine {
	if cfg.Deployment.Mode == types.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			db.Close()
			return nil
		},
	})
}
