package organization

import (
	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/types"
)

// Organization is a pooled-billing subject: usage of all members accrues
// against one shared allowance.
type Organization struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	// UsageLimit is the organization-wide usage cap set by admins
	UsageLimit decimal.Decimal `db:"usage_limit" json:"usage_limit"`

	types.BaseModel
}

// Member links a user to an organization
type Member struct {
	OrganizationID string `db:"organization_id" json:"organization_id"`
	UserID         string `db:"user_id" json:"user_id"`
	Role           string `db:"role" json:"role"`

	types.BaseModel
}
