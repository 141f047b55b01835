package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/types"
)

// UserOverageResult is the billable overage of an individual subscription at
// a point in time.
type UserOverageResult struct {
	UserID        string          `json:"user_id"`
	Plan          types.PlanTier  `json:"plan"`
	BasePrice     decimal.Decimal `json:"base_price"`
	ActualUsage   decimal.Decimal `json:"actual_usage"`
	OverageAmount decimal.Decimal `json:"overage_amount"`
}

// MemberUsage is one member's share of a pooled subscription's usage,
// retained on the result for auditability.
type MemberUsage struct {
	UserID            string          `json:"user_id"`
	CurrentPeriodCost decimal.Decimal `json:"current_period_cost"`
}

// OrganizationOverageResult is the billable overage of a pooled subscription
// at a point in time.
type OrganizationOverageResult struct {
	OrganizationID         string          `json:"organization_id"`
	Plan                   types.PlanTier  `json:"plan"`
	LicensedSeats          int64           `json:"licensed_seats"`
	BaseSubscriptionAmount decimal.Decimal `json:"base_subscription_amount"`
	TotalUsage             decimal.Decimal `json:"total_usage"`
	TotalOverage           decimal.Decimal `json:"total_overage"`
	Members                []*MemberUsage  `json:"members"`
}

// UsageDataResponse is the per-user usage view served to dashboards
type UsageDataResponse struct {
	UserID             string          `json:"user_id"`
	CurrentUsage       decimal.Decimal `json:"current_usage"`
	Limit              decimal.Decimal `json:"limit"`
	LastPeriodCost     decimal.Decimal `json:"last_period_cost"`
	BillingPeriodStart *time.Time      `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time      `json:"billing_period_end,omitempty"`
	BillingBlocked     bool            `json:"billing_blocked"`
}

// UpdateUsageLimitRequest asks to change a usage cap
type UpdateUsageLimitRequest struct {
	Limit decimal.Decimal `json:"limit" validate:"required"`
}
