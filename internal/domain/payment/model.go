package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/types"
)

// InvoiceStatus mirrors the provider's invoice lifecycle status
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// Invoice is the provider-neutral view of a remote invoice, as delivered by
// webhooks or returned by provider calls.
type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	BillingReason  types.BillingReason
	Status         InvoiceStatus
	AttemptCount   int64
	Total          decimal.Decimal
	Currency       string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Metadata       types.Metadata
}

// IsOverageBilling reports whether this invoice is one of our overage
// billing artifacts, identified by the metadata tag set at creation time.
func (i *Invoice) IsOverageBilling() bool {
	if i.Metadata == nil {
		return false
	}
	return i.Metadata[types.MetadataKeyOverageBilling] == types.MetadataValueTrue
}

// BillingPeriodTag returns the billing period tag stamped on the artifact.
func (i *Invoice) BillingPeriodTag() string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[types.MetadataKeyBillingPeriodStart]
}

// InvoiceItem is a line item attached to a remote invoice
type InvoiceItem struct {
	ID         string
	InvoiceID  string
	CustomerID string
	Amount     decimal.Decimal
	Currency   string
	Metadata   types.Metadata
}

// Customer is the provider-neutral view of a remote customer
type Customer struct {
	ID    string
	Email string
}

// SubscriptionEvent is the provider-neutral payload of a subscription
// lifecycle webhook.
type SubscriptionEvent struct {
	ProviderSubscriptionID string
	Status                 types.SubscriptionStatus
	Seats                  int64
	PeriodStart            time.Time
	PeriodEnd              time.Time
}
