package organization

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id string) (*Organization, error)
	AddMember(ctx context.Context, member *Member) error
	ListMembers(ctx context.Context, organizationID string) ([]*Member, error)
	SetUsageLimit(ctx context.Context, organizationID string, limit decimal.Decimal) error
}
