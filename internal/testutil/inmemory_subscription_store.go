package testutil

import (
	"context"

	"github.com/traceroot-ai/sim/internal/domain/subscription"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if err := s.InMemoryStore.Create(ctx, sub.ID, sub); err != nil {
		return ierr.WithError(err).
			WithHint("subscription already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("subscription %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (s *InMemorySubscriptionStore) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*subscription.Subscription, error) {
	subs, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.ProviderSubscriptionID == providerSubscriptionID && sub.Status != types.StatusDeleted
	}, nil)
	if len(subs) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHintf("subscription for provider id %s not found", providerSubscriptionID).
			Mark(ierr.ErrNotFound)
	}
	return subs[0], nil
}

func (s *InMemorySubscriptionStore) ListActiveByReference(ctx context.Context, referenceType types.ReferenceType, referenceID string) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.ReferenceType == referenceType &&
			sub.ReferenceID == referenceID &&
			sub.SubscriptionStatus == types.SubscriptionStatusActive &&
			sub.Status != types.StatusDeleted
	}, func(i, j *subscription.Subscription) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if err := s.InMemoryStore.Update(ctx, sub.ID, sub); err != nil {
		return ierr.WithError(err).
			WithHintf("subscription %s not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
