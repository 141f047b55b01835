package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/traceroot-ai/sim/internal/domain/subscription"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/postgres"
	"github.com/traceroot-ai/sim/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, provider_subscription_id, provider_customer_id, plan,
			reference_type, reference_id, seats, subscription_status,
			current_period_start, current_period_end, metadata,
			status, created_at, updated_at
		) VALUES (
			:id, :provider_subscription_id, :provider_customer_id, :plan,
			:reference_type, :reference_id, :seats, :subscription_status,
			:current_period_start, :current_period_end, :metadata,
			:status, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE id = $1 AND status != $2`

	var sub subscription.Subscription
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &sub, query, id, types.StatusDeleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("subscription %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE provider_subscription_id = $1 AND status != $2`

	var sub subscription.Subscription
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &sub, query, providerSubscriptionID, types.StatusDeleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("subscription for provider id %s not found", providerSubscriptionID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get subscription by provider id").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListActiveByReference(ctx context.Context, referenceType types.ReferenceType, referenceID string) ([]*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE reference_type = $1
		  AND reference_id = $2
		  AND subscription_status = $3
		  AND status != $4
		ORDER BY created_at DESC`

	subs := make([]*subscription.Subscription, 0)
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &subs, query,
		referenceType, referenceID, types.SubscriptionStatusActive, types.StatusDeleted); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			plan = :plan,
			seats = :seats,
			subscription_status = :subscription_status,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			metadata = :metadata,
			updated_at = :updated_at
		WHERE id = :id AND status != 'deleted'`

	result, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("subscription not found").
			WithHintf("subscription %s not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
