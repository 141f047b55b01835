package subscription

import (
	"context"

	"github.com/traceroot-ai/sim/internal/types"
)

type Repository interface {
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (*Subscription, error)
	ListActiveByReference(ctx context.Context, referenceType types.ReferenceType, referenceID string) ([]*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error
}
