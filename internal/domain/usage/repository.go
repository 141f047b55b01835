package usage

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Get(ctx context.Context, userID string) (*Counter, error)
	Upsert(ctx context.Context, counter *Counter) error

	// Increment adds amount to the current-period cost. Amounts are
	// non-negative; the counter never decreases within a period.
	Increment(ctx context.Context, userID string, amount decimal.Decimal) error

	// ResetPeriod moves the current-period cost into LastPeriodCost and
	// zeroes the counter. It must be idempotent: a second reset in a row
	// leaves LastPeriodCost at the value captured by the first one.
	ResetPeriod(ctx context.Context, userID string) error

	SetBlocked(ctx context.Context, userID string, blocked bool) error
	SetLimit(ctx context.Context, userID string, limit decimal.Decimal) error
}
