package service

import (
	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/config"
	"github.com/traceroot-ai/sim/internal/domain/subscription"
	"github.com/traceroot-ai/sim/internal/types"
)

// PricingService maps a subscription to its price book entries. All methods
// are pure; defaults come from configuration and malformed metadata always
// falls back rather than failing.
type PricingService interface {
	// BasePrice is the per-seat (team/enterprise) or flat (pro) dollar
	// amount already covered by the base subscription charge.
	BasePrice(plan types.PlanTier, sub *subscription.Subscription) decimal.Decimal

	// SubscriptionAllowance is the total usage already paid for by the base
	// charge: basePrice x seats for pooled plans, basePrice for pro, the
	// configured free allowance otherwise.
	SubscriptionAllowance(sub *subscription.Subscription) decimal.Decimal

	// PerUserMinimumLimit is the floor below which a usage cap may not be
	// set. Pooled plans have no true per-user floor, so the pooled
	// allowance is attributed individually.
	PerUserMinimumLimit(sub *subscription.Subscription) decimal.Decimal

	// CanEditUsageLimit is true only for active paid subscriptions;
	// free-tier subjects may never self-adjust their cap.
	CanEditUsageLimit(sub *subscription.Subscription) bool
}

type pricingService struct {
	billing config.BillingConfig
}

func NewPricingService(cfg *config.Configuration) PricingService {
	return &pricingService{billing: cfg.Billing}
}

func (s *pricingService) BasePrice(plan types.PlanTier, sub *subscription.Subscription) decimal.Decimal {
	switch plan {
	case types.PlanTierPro:
		return s.billing.ProBase()
	case types.PlanTierTeam:
		return s.billing.TeamSeat()
	case types.PlanTierEnterprise:
		if sub != nil {
			if override, ok := sub.PerSeatPriceOverride(); ok {
				return override
			}
		}
		return s.billing.EnterpriseDefaultSeat()
	default:
		return decimal.Zero
	}
}

func (s *pricingService) SubscriptionAllowance(sub *subscription.Subscription) decimal.Decimal {
	if sub == nil || !sub.Plan.IsPaid() {
		return s.billing.FreeAllowance()
	}

	base := s.BasePrice(sub.Plan, sub)
	if sub.IsPooled() {
		return base.Mul(decimal.NewFromInt(sub.LicensedSeats()))
	}
	return base
}

func (s *pricingService) PerUserMinimumLimit(sub *subscription.Subscription) decimal.Decimal {
	if sub == nil || !sub.Plan.IsPaid() {
		return s.billing.FreeAllowance()
	}

	base := s.BasePrice(sub.Plan, sub)
	if sub.IsPooled() {
		// No per-user floor on pooled plans; attribute the pooled allowance.
		return base.Mul(decimal.NewFromInt(sub.LicensedSeats()))
	}
	return base
}

func (s *pricingService) CanEditUsageLimit(sub *subscription.Subscription) bool {
	return sub != nil && sub.IsActive() && sub.Plan.IsPaid()
}
