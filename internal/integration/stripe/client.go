package stripe

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/traceroot-ai/sim/internal/config"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/logger"
)

// Client handles Stripe API client setup and configuration
type Client struct {
	cfg    config.StripeConfig
	logger *logger.Logger
}

// NewClient creates a new Stripe client wrapper from static configuration
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		cfg:    cfg.Stripe,
		logger: logger,
	}
}

// GetStripeClient returns a configured Stripe API client
func (c *Client) GetStripeClient() (*stripe.Client, error) {
	if c.cfg.SecretKey == "" {
		return nil, ierr.NewError("stripe secret key not configured").
			WithHint("set SIM_STRIPE_SECRETKEY or stripe.secret_key in config").
			Mark(ierr.ErrValidation)
	}
	return stripe.NewClient(c.cfg.SecretKey, nil), nil
}

// WebhookSecret returns the endpoint signing secret used to verify inbound
// webhook payloads.
func (c *Client) WebhookSecret() string {
	return c.cfg.WebhookSecret
}
