package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/domain/usage"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/postgres"
	"github.com/traceroot-ai/sim/internal/types"
)

type usageRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewUsageRepository(db *postgres.DB, logger *logger.Logger) usage.Repository {
	return &usageRepository{db: db, logger: logger}
}

func (r *usageRepository) Get(ctx context.Context, userID string) (*usage.Counter, error) {
	query := `SELECT * FROM usage_counters WHERE user_id = $1 AND status != $2`

	var counter usage.Counter
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &counter, query, userID, types.StatusDeleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("usage counter for user %s not found", userID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get usage counter").
			Mark(ierr.ErrDatabase)
	}
	return &counter, nil
}

func (r *usageRepository) Upsert(ctx context.Context, counter *usage.Counter) error {
	query := `
		INSERT INTO usage_counters (
			user_id, current_period_cost, last_period_cost, usage_limit,
			billing_blocked, status, created_at, updated_at
		) VALUES (
			:user_id, :current_period_cost, :last_period_cost, :usage_limit,
			:billing_blocked, :status, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			current_period_cost = EXCLUDED.current_period_cost,
			last_period_cost = EXCLUDED.last_period_cost,
			usage_limit = EXCLUDED.usage_limit,
			billing_blocked = EXCLUDED.billing_blocked,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, counter); err != nil {
		return ierr.WithError(err).
			WithHint("failed to upsert usage counter").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *usageRepository) Increment(ctx context.Context, userID string, amount decimal.Decimal) error {
	query := `
		INSERT INTO usage_counters (
			user_id, current_period_cost, last_period_cost, usage_limit,
			billing_blocked, status, created_at, updated_at
		) VALUES ($1, $2, 0, 0, false, 'active', NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			current_period_cost = usage_counters.current_period_cost + EXCLUDED.current_period_cost,
			updated_at = NOW()`

	q := r.db.GetQuerier(ctx)
	if _, err := q.ExecContext(ctx, query, userID, amount); err != nil {
		return ierr.WithError(err).
			WithHint("failed to increment usage counter").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// ResetPeriod archives the running total and zeroes it. The non-zero guard
// makes redelivered rollover events no-ops: a second reset in the same period
// matches no rows and leaves last_period_cost intact.
func (r *usageRepository) ResetPeriod(ctx context.Context, userID string) error {
	query := `
		UPDATE usage_counters SET
			last_period_cost = current_period_cost,
			current_period_cost = 0,
			updated_at = NOW()
		WHERE user_id = $1 AND current_period_cost <> 0`

	q := r.db.GetQuerier(ctx)
	if _, err := q.ExecContext(ctx, query, userID); err != nil {
		return ierr.WithError(err).
			WithHint("failed to reset usage counter").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *usageRepository) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	query := `
		INSERT INTO usage_counters (
			user_id, current_period_cost, last_period_cost, usage_limit,
			billing_blocked, status, created_at, updated_at
		) VALUES ($1, 0, 0, 0, $2, 'active', NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			billing_blocked = EXCLUDED.billing_blocked,
			updated_at = NOW()`

	q := r.db.GetQuerier(ctx)
	if _, err := q.ExecContext(ctx, query, userID, blocked); err != nil {
		return ierr.WithError(err).
			WithHint("failed to update billing block").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *usageRepository) SetLimit(ctx context.Context, userID string, limit decimal.Decimal) error {
	query := `
		INSERT INTO usage_counters (
			user_id, current_period_cost, last_period_cost, usage_limit,
			billing_blocked, status, created_at, updated_at
		) VALUES ($1, 0, 0, $2, false, 'active', NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			usage_limit = EXCLUDED.usage_limit,
			updated_at = NOW()`

	q := r.db.GetQuerier(ctx)
	if _, err := q.ExecContext(ctx, query, userID, limit); err != nil {
		return ierr.WithError(err).
			WithHint("failed to update usage limit").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
