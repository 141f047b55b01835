package stripe

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/traceroot-ai/sim/internal/domain/payment"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/service"
	"github.com/traceroot-ai/sim/internal/types"
)

// WebhookProcessor verifies inbound Stripe webhook payloads and dispatches
// them to the settlement orchestrator.
type WebhookProcessor struct {
	client     *Client
	settlement service.SettlementService
	logger     *logger.Logger
}

func NewWebhookProcessor(client *Client, settlement service.SettlementService, logger *logger.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		client:     client,
		settlement: settlement,
		logger:     logger,
	}
}

// ParseEvent verifies the webhook signature and returns the decoded event,
// ignoring API version mismatch so minor provider upgrades do not break
// delivery.
func (w *WebhookProcessor) ParseEvent(payload []byte, signature string) (*stripe.Event, error) {
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.client.WebhookSecret(), options)
	if err != nil {
		w.logger.Errorw("stripe webhook verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

// ProcessEvent routes a verified event to its handler. Unrecognized event
// types are acknowledged without action.
func (w *WebhookProcessor) ProcessEvent(ctx context.Context, event *stripe.Event) (types.SettlementOutcome, error) {
	ctx = types.SetEventID(ctx, event.ID)

	w.logger.Debugw("processing stripe webhook event",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	switch types.WebhookEventType(event.Type) {
	case types.WebhookEventTypeSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return types.SettlementOutcomeSkipped, w.malformedPayload(event, err)
		}
		return w.settlement.HandleSubscriptionUpdated(ctx, FromStripeSubscription(&sub))

	case types.WebhookEventTypeInvoiceCreated:
		inv, err := w.decodeInvoice(event)
		if err != nil {
			return types.SettlementOutcomeSkipped, err
		}
		return w.settlement.HandleInvoiceCreated(ctx, inv)

	case types.WebhookEventTypeInvoiceFinalized:
		inv, err := w.decodeInvoice(event)
		if err != nil {
			return types.SettlementOutcomeSkipped, err
		}
		return w.settlement.HandleInvoiceFinalized(ctx, inv)

	case types.WebhookEventTypeInvoicePaymentSucceeded:
		inv, err := w.decodeInvoice(event)
		if err != nil {
			return types.SettlementOutcomeSkipped, err
		}
		return w.settlement.HandleInvoicePaymentSucceeded(ctx, inv)

	case types.WebhookEventTypeInvoicePaymentFailed:
		inv, err := w.decodeInvoice(event)
		if err != nil {
			return types.SettlementOutcomeSkipped, err
		}
		return w.settlement.HandleInvoicePaymentFailed(ctx, inv)

	default:
		w.logger.Debugw("ignoring unhandled stripe event type",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return types.SettlementOutcomeSkipped, nil
	}
}

func (w *WebhookProcessor) decodeInvoice(event *stripe.Event) (*payment.Invoice, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return nil, w.malformedPayload(event, err)
	}
	return fromStripeInvoice(&inv), nil
}

func (w *WebhookProcessor) malformedPayload(event *stripe.Event, err error) error {
	w.logger.Errorw("failed to decode stripe event payload",
		"event_id", event.ID,
		"event_type", event.Type,
		"error", err,
	)
	return ierr.WithError(err).
		WithHint("malformed webhook payload").
		Mark(ierr.ErrValidation)
}
