package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/domain/organization"
	"github.com/traceroot-ai/sim/internal/domain/payment"
	"github.com/traceroot-ai/sim/internal/domain/subscription"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/types"
)

const defaultCurrency = "usd"

// SettlementService reacts to payment-provider lifecycle events: it computes
// overage at period rollover, creates the remote billing artifact exactly
// once per (subscription, period), and settles local state once the provider
// confirms payment.
//
// Every handler is idempotent; the provider delivers events at least once and
// out of order. A handler returns SettlementOutcomeRetry only on paths where
// redelivery can make progress. Overage-attach failures on the eager
// invoice.created/invoice.finalized paths are logged and swallowed so a
// broken attach never blocks the subscription renewal itself.
type SettlementService interface {
	HandleSubscriptionUpdated(ctx context.Context, ev *payment.SubscriptionEvent) (types.SettlementOutcome, error)
	HandleInvoiceCreated(ctx context.Context, inv *payment.Invoice) (types.SettlementOutcome, error)
	HandleInvoiceFinalized(ctx context.Context, inv *payment.Invoice) (types.SettlementOutcome, error)
	HandleInvoicePaymentSucceeded(ctx context.Context, inv *payment.Invoice) (types.SettlementOutcome, error)
	HandleInvoicePaymentFailed(ctx context.Context, inv *payment.Invoice) (types.SettlementOutcome, error)
}

type settlementService struct {
	ServiceParams
	pricing PricingService
	overage OverageService
}

func NewSettlementService(params ServiceParams) SettlementService {
	return &settlementService{
		ServiceParams: params,
		pricing:       NewPricingService(params.Config),
		overage:       NewOverageService(params),
	}
}

// HandleSubscriptionUpdated refreshes local period bounds and status from the
// provider's view. Overwriting is safe, no idempotency guard needed.
func (s *settlementService) HandleSubscriptionUpdated(ctx context.Context, ev *payment.SubscriptionEvent) (types.SettlementOutcome, error) {
	sub, err := s.SubRepo.GetByProviderID(ctx, ev.ProviderSubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Infow("no local subscription for provider subscription, nothing to do",
				"provider_subscription_id", ev.ProviderSubscriptionID)
			return types.SettlementOutcomeSkipped, nil
		}
		return types.SettlementOutcomeRetry, ierr.WithError(err).
			WithHint("failed to load subscription").
			Mark(ierr.ErrDatabase)
	}

	sub.SubscriptionStatus = ev.Status
	if !ev.PeriodStart.IsZero() {
		sub.CurrentPeriodStart = ev.PeriodStart
	}
	if !ev.PeriodEnd.IsZero() {
		sub.CurrentPeriodEnd = ev.PeriodEnd
	}
	if ev.Seats > 0 {
		sub.Seats = ev.Seats
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return types.SettlementOutcomeRetry, ierr.WithError(err).
			WithHint("failed to update subscription").
			Mark(ierr.ErrDatabase)
	}

	s.Logger.Infow("refreshed subscription from provider",
		"subscription_id", sub.ID,
		"status", sub.SubscriptionStatus,
		"period_start", sub.CurrentPeriodStart,
		"period_end", sub.CurrentPeriodEnd,
	)
	return types.SettlementOutcomeHandled, nil
}

// HandleInvoiceCreated attaches the ending period's overage as a line item on
// the renewal invoice before it locks, then resets usage counters for the new
// period. The reset here is intentional even though payment has not been
// confirmed yet: the renewal invoice already carries the overage line, so the
// consumed amount is accounted for.
func (s *settlementService) HandleInvoiceCreated(ctx context.Context, inv *payment.Invoice) (types.SettlementOutcome, error) {
	if inv.SubscriptionID == "" || inv.BillingReason != types.BillingReasonSubscriptionCycle {
		return types.SettlementOutcomeSkipped, nil
	}

	sub, err := s.SubRepo.GetByProviderID(ctx, inv.SubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Infow("no local subscription for renewal invoice, nothing to do",
				"invoice_id", inv.ID,
				"provider_subscription_id", inv.SubscriptionID)
			return types.SettlementOutcomeSkipped, nil
		}
		s.reportSwallowed(err, "invoice.created: subscription lookup failed", inv.ID)
		return types.SettlementOutcomeHandled, nil
	}

	overageAmount, err := s.computeOverage(ctx, sub)
	if err != nil {
		// Without a computed amount there is nothing safe to reset either;
		// the finalized hook gets another chance at this period.
		s.reportSwallowed(err, "invoice.created: overage computation failed", inv.ID)
		return types.SettlementOutcomeHandled, nil
	}

	periodStart := s.endingPeriodStart(inv, sub)

	if overageAmount.IsPositive() {
		_, err = s.PaymentProvider.CreateInvoiceItem(ctx, &payment.CreateInvoiceItemParams{
			CustomerID:  inv.CustomerID,
			InvoiceID:   inv.ID,
			Amount:      overageAmount,
			Currency:    invoiceCurrency(inv),
			Description: "Usage overage for previous billing period",
			Metadata:    s.overageMetadata(sub, periodStart),
		})
		if err != nil {
			// The renewal must go through regardless; the finalized hook
			// will bill the overage on a separate invoice.
			s.reportSwallowed(err, "invoice.created: failed to attach overage line item", inv.ID)
			return types.SettlementOutcomeHandled, nil
		}
		s.Logger.Infow("attached overage line item to renewal invoice",
			"invoice_id", inv.ID,
			"subscription_id", sub.ID,
			"overage_amount", overageAmount.String(),
		)
	}

	if err := s.resetUsageCounters(ctx, sub); err != nil {
		s.reportSwallowed(err, "invoice.created: failed to reset usage counters", inv.ID)
	}

	return types.SettlementOutcomeHandled, nil
}

// HandleInvoiceFinalized is the fallback billing path: when the overage was
// not (or could not be) attached to the renewal invoice, it creates a
// separate overage invoice, guarded by the period tag and a deterministic
// idempotency key so at most one artifact exists per (subscription, period).
func (s *settlementService) HandleInvoiceFinalized(ctx context.Context, inv *payment.Invoice) (types.SettlementOutcome, error) {
	if inv.SubscriptionID == "" || inv.BillingReason != types.BillingReasonSubscriptionCycle {
		return types.SettlementOutcomeSkipped, nil
	}

	sub, err := s.SubRepo.GetByProviderID(ctx, inv.SubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return types.SettlementOutcomeSkipped, nil
		}
		s.reportSwallowed(err, "invoice.finalized: subscription lookup failed", inv.ID)
		return types.SettlementOutcomeHandled, nil
	}

	overageAmount, err := s.computeOverage(ctx, sub)
	if err != nil {
		s.reportSwallowed(err, "invoice.finalized: overage computation failed", inv.ID)
		return types.SettlementOutcomeHandled, nil
	}
	if !overageAmount.IsPositive() {
		return types.SettlementOutcomeHandled, nil
	}

	periodStart := s.endingPeriodStart(inv, sub)
	periodTag := types.BillingPeriodTag(periodStart)

	exists, err := s.overageArtifactExists(ctx, inv.CustomerID, periodStart, periodTag)
	if err != nil {
		s.reportSwallowed(err, "invoice.finalized: duplicate artifact check failed", inv.ID)
		return types.SettlementOutcomeHandled, nil
	}
	if exists {
		s.Logger.Infow("overage already billed for period, charging nothing",
			"customer_id", inv.CustomerID,
			"subscription_id", sub.ID,
			"billing_period", periodTag,
		)
		return types.SettlementOutcomeHandled, nil
	}

	if err := s.createOverageInvoice(ctx, inv, sub, overageAmount, periodStart); err != nil {
		s.reportSwallowed(err, "invoice.finalized: failed to create overage invoice", inv.ID)
	}
	return types.SettlementOutcomeHandled, nil
}

// HandleInvoicePaymentSucceeded settles local state once the provider
// confirms a charge. A paid overage invoice needs no state change (counters
// were already reset when the renewal was billed). A paid cycle invoice
// unblocks previously blocked subjects and resets their counters; the
// blocked check keeps this from double-resetting what the created hook
// already zeroed.
func (s *settlementService) HandleInvoicePaymentSucceeded(ctx context.Context, inv *payment.Invoice) (types.SettlementOutcome, error) {
	if inv.IsOverageBilling() {
		s.Logger.Infow("overage invoice settled",
			"invoice_id", inv.ID,
			"customer_id", inv.CustomerID,
			"billing_period", inv.BillingPeriodTag(),
			"total", inv.Total.String(),
		)
		return types.SettlementOutcomeHandled, nil
	}

	if inv.SubscriptionID == "" || inv.BillingReason != types.BillingReasonSubscriptionCycle {
		return types.SettlementOutcomeSkipped, nil
	}

	sub, err := s.SubRepo.GetByProviderID(ctx, inv.SubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return types.SettlementOutcomeSkipped, nil
		}
		return types.SettlementOutcomeRetry, ierr.WithError(err).
			WithHint("failed to load subscription").
			Mark(ierr.ErrDatabase)
	}

	userIDs, err := s.affectedUserIDs(ctx, sub)
	if err != nil {
		return types.SettlementOutcomeRetry, err
	}

	for _, userID := range userIDs {
		counter, err := s.UsageRepo.Get(ctx, userID)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return types.SettlementOutcomeRetry, ierr.WithError(err).
				WithHint("failed to read usage counter").
				Mark(ierr.ErrDatabase)
		}
		if !counter.BillingBlocked {
			continue
		}

		if err := s.UsageRepo.ResetPeriod(ctx, userID); err != nil {
			return types.SettlementOutcomeRetry, ierr.WithError(err).
				WithHint("failed to reset usage counter").
				Mark(ierr.ErrDatabase)
		}
		if err := s.UsageRepo.SetBlocked(ctx, userID, false); err != nil {
			return types.SettlementOutcomeRetry, ierr.WithError(err).
				WithHint("failed to unblock user").
				Mark(ierr.ErrDatabase)
		}
		s.Logger.Infow("unblocked user after successful payment",
			"user_id", userID,
			"invoice_id", inv.ID,
		)
	}

	return types.SettlementOutcomeHandled, nil
}

// HandleInvoicePaymentFailed blocks all subjects sharing the subscription
// once the provider has exhausted its early retry attempts on an overage
// invoice. Re-marking blocked subjects is a no-op.
func (s *settlementService) HandleInvoicePaymentFailed(ctx context.Context, inv *payment.Invoice) (types.SettlementOutcome, error) {
	if !inv.IsOverageBilling() {
		return types.SettlementOutcomeSkipped, nil
	}

	threshold := s.Config.Billing.PaymentFailureBlockThreshold
	if inv.AttemptCount < threshold {
		s.Logger.Infow("overage invoice payment failed, below block threshold",
			"invoice_id", inv.ID,
			"attempt_count", inv.AttemptCount,
			"threshold", threshold,
		)
		return types.SettlementOutcomeHandled, nil
	}

	userIDs, err := s.subjectsFromArtifact(ctx, inv)
	if err != nil {
		return types.SettlementOutcomeRetry, err
	}
	if len(userIDs) == 0 {
		s.Logger.Warnw("overage invoice carries no resolvable subjects",
			"invoice_id", inv.ID,
			"metadata", inv.Metadata,
		)
		return types.SettlementOutcomeSkipped, nil
	}

	for _, userID := range userIDs {
		if err := s.UsageRepo.SetBlocked(ctx, userID, true); err != nil {
			return types.SettlementOutcomeRetry, ierr.WithError(err).
				WithHint("failed to block user").
				Mark(ierr.ErrDatabase)
		}
	}

	s.Logger.Warnw("billing blocked subjects after repeated payment failure",
		"invoice_id", inv.ID,
		"attempt_count", inv.AttemptCount,
		"user_count", len(userIDs),
	)
	return types.SettlementOutcomeHandled, nil
}

// computeOverage dispatches to the individual or pooled calculator based on
// the subscription's reference type.
func (s *settlementService) computeOverage(ctx context.Context, sub *subscription.Subscription) (decimal.Decimal, error) {
	if sub.ReferenceType == types.ReferenceTypeOrganization {
		result, err := s.overage.CalculateOrganizationOverage(ctx, sub.ReferenceID)
		if err != nil {
			return decimal.Zero, err
		}
		return result.TotalOverage, nil
	}

	result, err := s.overage.CalculateUserOverage(ctx, sub.ReferenceID)
	if err != nil {
		return decimal.Zero, err
	}
	return result.OverageAmount, nil
}

// affectedUserIDs resolves every subject whose counter is governed by the
// subscription.
func (s *settlementService) affectedUserIDs(ctx context.Context, sub *subscription.Subscription) ([]string, error) {
	if sub.ReferenceType != types.ReferenceTypeOrganization {
		return []string{sub.ReferenceID}, nil
	}

	members, err := s.OrgRepo.ListMembers(ctx, sub.ReferenceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list organization members").
			Mark(ierr.ErrDatabase)
	}
	return lo.Map(members, func(m *organization.Member, _ int) string { return m.UserID }), nil
}

// subjectsFromArtifact resolves the blocked subjects from the reference tags
// we stamped on the overage artifact at creation time.
func (s *settlementService) subjectsFromArtifact(ctx context.Context, inv *payment.Invoice) ([]string, error) {
	refType := types.ReferenceType(inv.Metadata[types.MetadataKeyReferenceType])
	refID := inv.Metadata[types.MetadataKeyReferenceID]
	if refID == "" {
		return nil, nil
	}

	if refType == types.ReferenceTypeOrganization {
		members, err := s.OrgRepo.ListMembers(ctx, refID)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to list organization members").
				Mark(ierr.ErrDatabase)
		}
		return lo.Map(members, func(m *organization.Member, _ int) string { return m.UserID }), nil
	}
	return []string{refID}, nil
}

// resetUsageCounters zeroes every affected counter under a per-subscription
// advisory lock so concurrent redeliveries cannot interleave the
// read-compute-reset sequence.
func (s *settlementService) resetUsageCounters(ctx context.Context, sub *subscription.Subscription) error {
	userIDs, err := s.affectedUserIDs(ctx, sub)
	if err != nil {
		return err
	}

	return s.DB.WithLockedTx(ctx, sub.ID, func(ctx context.Context) error {
		for _, userID := range userIDs {
			if err := s.UsageRepo.ResetPeriod(ctx, userID); err != nil {
				return err
			}
		}
		return nil
	})
}

// overageArtifactExists checks for a non-voided overage invoice tagged with
// the same billing period.
func (s *settlementService) overageArtifactExists(ctx context.Context, customerID string, periodStart time.Time, periodTag string) (bool, error) {
	invoices, err := s.PaymentProvider.ListInvoices(ctx, &payment.ListInvoicesParams{
		CustomerID:   customerID,
		CreatedAfter: periodStart,
	})
	if err != nil {
		return false, err
	}

	for _, existing := range invoices {
		if existing.IsOverageBilling() &&
			existing.BillingPeriodTag() == periodTag &&
			existing.Status != payment.InvoiceStatusVoid {
			return true, nil
		}
	}
	return false, nil
}

// createOverageInvoice creates, populates, finalizes and attempts to pay the
// standalone overage invoice. Payment failure is left to the provider's
// dunning cycle; the artifact itself already exists by then.
func (s *settlementService) createOverageInvoice(ctx context.Context, renewal *payment.Invoice, sub *subscription.Subscription, amount decimal.Decimal, periodStart time.Time) error {
	metadata := s.overageMetadata(sub, periodStart)

	created, err := s.PaymentProvider.CreateInvoice(ctx, &payment.CreateInvoiceParams{
		CustomerID:     renewal.CustomerID,
		Currency:       invoiceCurrency(renewal),
		Description:    "Usage overage charges",
		Metadata:       metadata,
		IdempotencyKey: types.OverageIdempotencyKey(renewal.CustomerID, sub.ProviderSubscriptionID, periodStart),
		AutoAdvance:    true,
	})
	if err != nil {
		return err
	}

	if _, err := s.PaymentProvider.CreateInvoiceItem(ctx, &payment.CreateInvoiceItemParams{
		CustomerID:  renewal.CustomerID,
		InvoiceID:   created.ID,
		Amount:      amount,
		Currency:    invoiceCurrency(renewal),
		Description: "Usage overage for previous billing period",
		Metadata:    metadata,
	}); err != nil {
		return err
	}

	if _, err := s.PaymentProvider.FinalizeInvoice(ctx, created.ID); err != nil {
		return err
	}

	if _, err := s.PaymentProvider.PayInvoice(ctx, created.ID); err != nil {
		s.Logger.Warnw("overage invoice created but immediate payment failed, provider dunning takes over",
			"invoice_id", created.ID,
			"error", err,
		)
	}

	s.Logger.Infow("created standalone overage invoice",
		"invoice_id", created.ID,
		"customer_id", renewal.CustomerID,
		"subscription_id", sub.ID,
		"amount", amount.String(),
		"billing_period", types.BillingPeriodTag(periodStart),
	)
	return nil
}

func (s *settlementService) overageMetadata(sub *subscription.Subscription, periodStart time.Time) types.Metadata {
	return types.Metadata{
		types.MetadataKeyOverageBilling:     types.MetadataValueTrue,
		types.MetadataKeyBillingPeriodStart: types.BillingPeriodTag(periodStart),
		types.MetadataKeyReferenceType:      sub.ReferenceType.String(),
		types.MetadataKeyReferenceID:        sub.ReferenceID,
		types.MetadataKeySubscriptionID:     sub.ProviderSubscriptionID,
	}
}

// endingPeriodStart is the start of the period whose usage is being billed:
// the invoice's own period when present, the local subscription's otherwise.
func (s *settlementService) endingPeriodStart(inv *payment.Invoice, sub *subscription.Subscription) time.Time {
	if !inv.PeriodStart.IsZero() {
		return inv.PeriodStart
	}
	return sub.CurrentPeriodStart
}

// reportSwallowed logs and reports a failure that must not bubble past the
// settlement boundary.
func (s *settlementService) reportSwallowed(err error, msg string, invoiceID string) {
	s.Logger.Errorw(msg, "invoice_id", invoiceID, "error", err)
	if s.Sentry != nil {
		s.Sentry.CaptureException(err)
	}
}

func invoiceCurrency(inv *payment.Invoice) string {
	if inv.Currency != "" {
		return inv.Currency
	}
	return defaultCurrency
}
