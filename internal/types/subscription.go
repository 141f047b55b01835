package types

// SubscriptionStatus mirrors the payment provider's subscription lifecycle status
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled  SubscriptionStatus = "cancelled"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
)

// ReferenceType identifies the kind of subject a subscription is bound to
type ReferenceType string

const (
	ReferenceTypeUser         ReferenceType = "user"
	ReferenceTypeOrganization ReferenceType = "organization"
)

func (r ReferenceType) String() string {
	return string(r)
}
