package service

import (
	"context"

	"github.com/traceroot-ai/sim/internal/config"
	"github.com/traceroot-ai/sim/internal/domain/organization"
	"github.com/traceroot-ai/sim/internal/domain/payment"
	"github.com/traceroot-ai/sim/internal/domain/subscription"
	"github.com/traceroot-ai/sim/internal/domain/usage"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/sentry"
)

// TxRunner runs a function inside a transaction holding a per-key advisory
// lock. The postgres client implements it; tests substitute an in-memory
// runner.
type TxRunner interface {
	WithLockedTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ServiceParams bundles common dependencies passed to all services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     TxRunner
	Sentry *sentry.Service

	SubRepo   subscription.Repository
	UsageRepo usage.Repository
	OrgRepo   organization.Repository

	PaymentProvider payment.Provider
}
