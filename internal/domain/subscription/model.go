package subscription

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/types"
)

// MetadataKeyPerSeatPrice is the subscription metadata key carrying a custom
// negotiated per-seat price for enterprise contracts.
const MetadataKeyPerSeatPrice = "perSeatPrice"

// Subscription represents a payment-provider subscription bound to either an
// individual account or an organization.
type Subscription struct {
	// ID is the unique identifier for the subscription in our system
	ID string `db:"id" json:"id"`

	// ProviderSubscriptionID is the identifier of this subscription in the
	// payment provider's system
	ProviderSubscriptionID string `db:"provider_subscription_id" json:"provider_subscription_id"`

	// ProviderCustomerID is the identifier of the paying customer in the
	// payment provider's system
	ProviderCustomerID string `db:"provider_customer_id" json:"provider_customer_id"`

	// Plan is the pricing tier this subscription is billed on
	Plan types.PlanTier `db:"plan" json:"plan"`

	// ReferenceType says whether the subscription belongs to a user or an
	// organization
	ReferenceType types.ReferenceType `db:"reference_type" json:"reference_type"`

	// ReferenceID is the user or organization the subscription governs
	ReferenceID string `db:"reference_id" json:"reference_id"`

	// Seats is the licensed seat count the provider is charging for. This is
	// authoritative over the live member count.
	Seats int64 `db:"seats" json:"seats"`

	// SubscriptionStatus is the provider lifecycle status
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	// CurrentPeriodStart is the start of the billing period currently accruing usage
	CurrentPeriodStart time.Time `db:"current_period_start" json:"current_period_start"`

	// CurrentPeriodEnd is the end of the billing period currently accruing usage
	CurrentPeriodEnd time.Time `db:"current_period_end" json:"current_period_end"`

	// Metadata carries free-form provider metadata, e.g. a custom enterprise
	// per-seat price
	Metadata types.Metadata `db:"metadata" json:"metadata"`

	types.BaseModel
}

// IsActive reports whether the subscription currently governs billing.
func (s *Subscription) IsActive() bool {
	return s.SubscriptionStatus == types.SubscriptionStatusActive
}

// IsPooled reports whether usage across members is aggregated against one
// shared allowance.
func (s *Subscription) IsPooled() bool {
	return s.Plan.IsPooled()
}

// LicensedSeats returns the seat count, defaulting to 1 when unset.
func (s *Subscription) LicensedSeats() int64 {
	if s.Seats < 1 {
		return 1
	}
	return s.Seats
}

// PerSeatPriceOverride parses the optional enterprise per-seat price from
// metadata. Malformed or non-positive values are treated as absent so the
// caller falls back to the configured default.
func (s *Subscription) PerSeatPriceOverride() (decimal.Decimal, bool) {
	if s.Metadata == nil {
		return decimal.Zero, false
	}
	raw, ok := s.Metadata[MetadataKeyPerSeatPrice]
	if !ok || raw == "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// HighestPriority returns the subscription that governs billing when a
// subject has several active ones: the highest-priority plan wins
// (enterprise > team > pro > free).
func HighestPriority(subs []*Subscription) *Subscription {
	var best *Subscription
	for _, sub := range subs {
		if sub == nil || !sub.IsActive() {
			continue
		}
		if best == nil || sub.Plan.Priority() > best.Plan.Priority() {
			best = sub
		}
	}
	return best
}
