package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/integration/stripe"
	"github.com/traceroot-ai/sim/internal/logger"
)

// WebhookHandler receives payment provider webhooks. Verified events are
// dispatched to the settlement orchestrator; the HTTP status tells the
// provider whether to redeliver.
type WebhookHandler struct {
	processor *stripe.WebhookProcessor
	logger    *logger.Logger
}

func NewWebhookHandler(processor *stripe.WebhookProcessor, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    logger,
	}
}

// HandleStripeWebhook verifies and processes a Stripe webhook delivery.
// A 2xx acknowledges the event; any other status makes Stripe redeliver it.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	event, err := h.processor.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.Error(err)
		return
	}

	outcome, err := h.processor.ProcessEvent(c.Request.Context(), event)
	if outcome.ShouldRetry() {
		h.logger.Warnw("webhook processing failed, requesting redelivery",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"received": false,
			"outcome":  string(outcome),
		})
		return
	}
	if err != nil {
		// Non-retryable failures are acknowledged so the provider stops
		// redelivering a payload we can never process.
		h.logger.Errorw("webhook acknowledged despite processing error",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"outcome":  string(outcome),
	})
}
