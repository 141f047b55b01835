package types

import (
	"fmt"
	"time"
)

// WebhookEventType enumerates the payment provider webhook events the
// settlement orchestrator reacts to
type WebhookEventType string

const (
	WebhookEventTypeSubscriptionUpdated     WebhookEventType = "customer.subscription.updated"
	WebhookEventTypeInvoiceCreated          WebhookEventType = "invoice.created"
	WebhookEventTypeInvoiceFinalized        WebhookEventType = "invoice.finalized"
	WebhookEventTypeInvoicePaymentSucceeded WebhookEventType = "invoice.payment_succeeded"
	WebhookEventTypeInvoicePaymentFailed    WebhookEventType = "invoice.payment_failed"
)

// BillingReason is the provider's reason for generating an invoice
type BillingReason string

const (
	BillingReasonSubscriptionCycle  BillingReason = "subscription_cycle"
	BillingReasonSubscriptionCreate BillingReason = "subscription_create"
	BillingReasonManual             BillingReason = "manual"
)

// Metadata keys stamped on overage billing artifacts. Idempotency is derived
// from these tags, not from webhook event IDs.
const (
	MetadataKeyOverageBilling     = "overage_billing"
	MetadataKeyBillingPeriodStart = "billing_period_start"
	MetadataKeyReferenceType      = "reference_type"
	MetadataKeyReferenceID        = "reference_id"
	MetadataKeySubscriptionID     = "subscription_id"

	MetadataValueTrue = "true"
)

// SettlementOutcome is the explicit result of a webhook handler. Retry means
// the caller should return a non-2xx response so the provider redelivers the
// event; handled and skipped both acknowledge it.
type SettlementOutcome string

const (
	SettlementOutcomeHandled SettlementOutcome = "handled"
	SettlementOutcomeSkipped SettlementOutcome = "skipped"
	SettlementOutcomeRetry   SettlementOutcome = "retry"
)

// ShouldRetry reports whether the provider should redeliver the event.
func (o SettlementOutcome) ShouldRetry() bool {
	return o == SettlementOutcomeRetry
}

// OverageIdempotencyKey builds the deterministic idempotency key for the
// overage billing artifact of a (customer, subscription, period) triple.
func OverageIdempotencyKey(customerID, subscriptionID string, periodStart time.Time) string {
	return fmt.Sprintf("overage-%s-%s-%d", customerID, subscriptionID, periodStart.UTC().Unix())
}

// BillingPeriodTag formats a period start for artifact metadata comparison.
func BillingPeriodTag(periodStart time.Time) string {
	return periodStart.UTC().Format(time.RFC3339)
}
