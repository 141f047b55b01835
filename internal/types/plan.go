package types

import (
	ierr "github.com/traceroot-ai/sim/internal/errors"
)

// PlanTier is the pricing tier a subscription is billed on
type PlanTier string

const (
	PlanTierFree       PlanTier = "free"
	PlanTierPro        PlanTier = "pro"
	PlanTierTeam       PlanTier = "team"
	PlanTierEnterprise PlanTier = "enterprise"
)

// Priority orders plan tiers for the selection policy: when a subject has
// multiple active subscriptions the highest-priority plan governs billing.
func (p PlanTier) Priority() int {
	switch p {
	case PlanTierEnterprise:
		return 4
	case PlanTierTeam:
		return 3
	case PlanTierPro:
		return 2
	case PlanTierFree:
		return 1
	default:
		return 0
	}
}

// IsPooled returns true for plans whose member usage is aggregated against
// one shared allowance.
func (p PlanTier) IsPooled() bool {
	return p == PlanTierTeam || p == PlanTierEnterprise
}

// IsPaid returns true for plans that carry a base subscription charge.
func (p PlanTier) IsPaid() bool {
	return p == PlanTierPro || p == PlanTierTeam || p == PlanTierEnterprise
}

func (p PlanTier) String() string {
	return string(p)
}

func (p PlanTier) Validate() error {
	switch p {
	case PlanTierFree, PlanTierPro, PlanTierTeam, PlanTierEnterprise:
		return nil
	default:
		return ierr.NewError("invalid plan tier").
			WithHintf("plan tier must be one of free, pro, team, enterprise, got %s", p).
			Mark(ierr.ErrValidation)
	}
}
