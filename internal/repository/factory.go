package repository

import (
	"github.com/traceroot-ai/sim/internal/domain/organization"
	"github.com/traceroot-ai/sim/internal/domain/subscription"
	"github.com/traceroot-ai/sim/internal/domain/usage"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/postgres"
)

// Repositories bundles all persistence implementations
type Repositories struct {
	Subscription subscription.Repository
	Usage        usage.Repository
	Organization organization.Repository
}

func NewRepositories(db *postgres.DB, logger *logger.Logger) *Repositories {
	return &Repositories{
		Subscription: NewSubscriptionRepository(db, logger),
		Usage:        NewUsageRepository(db, logger),
		Organization: NewOrganizationRepository(db, logger),
	}
}
