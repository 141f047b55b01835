package usage

import (
	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/types"
)

// Counter is the per-user running total of consumed cost within the current
// billing period.
type Counter struct {
	// UserID is the subject the counter belongs to
	UserID string `db:"user_id" json:"user_id"`

	// CurrentPeriodCost is the accumulated cost for the period in progress.
	// It only grows within a period and is zeroed at a verified rollover.
	CurrentPeriodCost decimal.Decimal `db:"current_period_cost" json:"current_period_cost"`

	// LastPeriodCost retains the previous period's total for display
	LastPeriodCost decimal.Decimal `db:"last_period_cost" json:"last_period_cost"`

	// UsageLimit is the subject's self-serve usage cap
	UsageLimit decimal.Decimal `db:"usage_limit" json:"usage_limit"`

	// BillingBlocked denies further usage pending payment resolution
	BillingBlocked bool `db:"billing_blocked" json:"billing_blocked"`

	types.BaseModel
}
