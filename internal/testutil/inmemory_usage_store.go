package testutil

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/domain/usage"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/types"
)

// InMemoryUsageStore implements usage.Repository
type InMemoryUsageStore struct {
	*InMemoryStore[*usage.Counter]
}

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{
		InMemoryStore: NewInMemoryStore[*usage.Counter](),
	}
}

func (s *InMemoryUsageStore) Get(ctx context.Context, userID string) (*usage.Counter, error) {
	counter, err := s.InMemoryStore.Get(ctx, userID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("usage counter for user %s not found", userID).
			Mark(ierr.ErrNotFound)
	}
	copied := *counter
	return &copied, nil
}

func (s *InMemoryUsageStore) Upsert(ctx context.Context, counter *usage.Counter) error {
	copied := *counter
	s.InMemoryStore.Upsert(ctx, counter.UserID, &copied)
	return nil
}

func (s *InMemoryUsageStore) Increment(ctx context.Context, userID string, amount decimal.Decimal) error {
	counter, err := s.InMemoryStore.Get(ctx, userID)
	if err != nil {
		counter = &usage.Counter{
			UserID:            userID,
			CurrentPeriodCost: decimal.Zero,
			LastPeriodCost:    decimal.Zero,
			UsageLimit:        decimal.Zero,
			BaseModel:         types.GetDefaultBaseModel(),
		}
	}
	counter.CurrentPeriodCost = counter.CurrentPeriodCost.Add(amount)
	s.InMemoryStore.Upsert(ctx, userID, counter)
	return nil
}

func (s *InMemoryUsageStore) ResetPeriod(ctx context.Context, userID string) error {
	counter, err := s.InMemoryStore.Get(ctx, userID)
	if err != nil {
		return nil
	}
	// Matches the SQL guard: a second reset in the same period is a no-op.
	if counter.CurrentPeriodCost.IsZero() {
		return nil
	}
	counter.LastPeriodCost = counter.CurrentPeriodCost
	counter.CurrentPeriodCost = decimal.Zero
	s.InMemoryStore.Upsert(ctx, userID, counter)
	return nil
}

func (s *InMemoryUsageStore) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	counter, err := s.InMemoryStore.Get(ctx, userID)
	if err != nil {
		counter = &usage.Counter{
			UserID:    userID,
			BaseModel: types.GetDefaultBaseModel(),
		}
	}
	counter.BillingBlocked = blocked
	s.InMemoryStore.Upsert(ctx, userID, counter)
	return nil
}

func (s *InMemoryUsageStore) SetLimit(ctx context.Context, userID string, limit decimal.Decimal) error {
	counter, err := s.InMemoryStore.Get(ctx, userID)
	if err != nil {
		counter = &usage.Counter{
			UserID:    userID,
			BaseModel: types.GetDefaultBaseModel(),
		}
	}
	counter.UsageLimit = limit
	s.InMemoryStore.Upsert(ctx, userID, counter)
	return nil
}
