package stripe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stripe/stripe-go/v82"
	"github.com/traceroot-ai/sim/internal/cache"
	"github.com/traceroot-ai/sim/internal/domain/payment"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/types"
)

const (
	customerCacheTTL = 15 * time.Minute
	payRetryMax      = 3
	invoiceListLimit = 100
)

// Provider implements payment.Provider on top of the Stripe API.
type Provider struct {
	client *Client
	cache  cache.Cache
	logger *logger.Logger
}

func NewProvider(client *Client, cache cache.Cache, logger *logger.Logger) payment.Provider {
	return &Provider{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

func (p *Provider) CreateInvoiceItem(ctx context.Context, params *payment.CreateInvoiceItemParams) (*payment.InvoiceItem, error) {
	stripeClient, err := p.client.GetStripeClient()
	if err != nil {
		return nil, err
	}

	itemParams := &stripe.InvoiceItemCreateParams{
		Customer:    stripe.String(params.CustomerID),
		Currency:    stripe.String(strings.ToLower(params.Currency)),
		Description: stripe.String(params.Description),
		Amount:      stripe.Int64(types.ToMinorUnits(params.Amount)),
		Metadata:    params.Metadata,
	}
	if params.InvoiceID != "" {
		itemParams.Invoice = stripe.String(params.InvoiceID)
	}

	item, err := stripeClient.V1InvoiceItems.Create(ctx, itemParams)
	if err != nil {
		p.logger.Errorw("failed to create Stripe invoice item",
			"error", err,
			"customer_id", params.CustomerID,
			"invoice_id", params.InvoiceID)
		return nil, ierr.NewError("failed to create invoice item").
			WithHint("Unable to create line item in Stripe").
			WithReportableDetails(map[string]interface{}{
				"customer_id": params.CustomerID,
				"invoice_id":  params.InvoiceID,
				"error":       err.Error(),
			}).
			Mark(ierr.ErrIntegration)
	}

	p.logger.Debugw("created Stripe invoice item",
		"stripe_item_id", item.ID,
		"customer_id", params.CustomerID,
		"amount", params.Amount.String())

	return fromStripeInvoiceItem(item), nil
}

func (p *Provider) CreateInvoice(ctx context.Context, params *payment.CreateInvoiceParams) (*payment.Invoice, error) {
	stripeClient, err := p.client.GetStripeClient()
	if err != nil {
		return nil, err
	}

	invoiceParams := &stripe.InvoiceCreateParams{
		Customer:         stripe.String(params.CustomerID),
		Currency:         stripe.String(strings.ToLower(params.Currency)),
		AutoAdvance:      stripe.Bool(params.AutoAdvance),
		Description:      stripe.String(params.Description),
		Metadata:         params.Metadata,
		CollectionMethod: stripe.String(string(stripe.InvoiceCollectionMethodChargeAutomatically)),
	}
	if params.IdempotencyKey != "" {
		invoiceParams.SetIdempotencyKey(params.IdempotencyKey)
	}

	inv, err := stripeClient.V1Invoices.Create(ctx, invoiceParams)
	if err != nil {
		p.logger.Errorw("failed to create Stripe invoice",
			"error", err,
			"customer_id", params.CustomerID,
			"idempotency_key", params.IdempotencyKey)
		return nil, ierr.NewError("failed to create invoice").
			WithHint("Unable to create draft invoice in Stripe").
			WithReportableDetails(map[string]interface{}{
				"customer_id": params.CustomerID,
				"error":       err.Error(),
			}).
			Mark(ierr.ErrIntegration)
	}

	p.logger.Infow("created Stripe invoice",
		"stripe_invoice_id", inv.ID,
		"customer_id", params.CustomerID)

	return fromStripeInvoice(inv), nil
}

func (p *Provider) FinalizeInvoice(ctx context.Context, invoiceID string) (*payment.Invoice, error) {
	stripeClient, err := p.client.GetStripeClient()
	if err != nil {
		return nil, err
	}

	finalized, err := stripeClient.V1Invoices.FinalizeInvoice(ctx, invoiceID, &stripe.InvoiceFinalizeInvoiceParams{
		AutoAdvance: stripe.Bool(true),
	})
	if err != nil {
		p.logger.Errorw("failed to finalize Stripe invoice",
			"error", err,
			"stripe_invoice_id", invoiceID)
		return nil, ierr.NewError("failed to finalize invoice").
			WithHint("Unable to finalize invoice in Stripe").
			WithReportableDetails(map[string]interface{}{
				"stripe_invoice_id": invoiceID,
				"error":             err.Error(),
			}).
			Mark(ierr.ErrIntegration)
	}

	return fromStripeInvoice(finalized), nil
}

// PayInvoice attempts the charge with a short exponential backoff; transient
// API failures are common right after finalization.
func (p *Provider) PayInvoice(ctx context.Context, invoiceID string) (*payment.Invoice, error) {
	stripeClient, err := p.client.GetStripeClient()
	if err != nil {
		return nil, err
	}

	var paid *stripe.Invoice
	operation := func() error {
		var payErr error
		paid, payErr = stripeClient.V1Invoices.Pay(ctx, invoiceID, &stripe.InvoicePayParams{})
		if payErr != nil {
			// Card declines are final; only network/API errors are worth
			// retrying.
			var stripeErr *stripe.Error
			if errors.As(payErr, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
				return backoff.Permanent(payErr)
			}
			return payErr
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), payRetryMax),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		p.logger.Errorw("failed to pay Stripe invoice",
			"error", err,
			"stripe_invoice_id", invoiceID)
		return nil, ierr.NewError("failed to pay invoice").
			WithHint("Unable to collect payment for invoice").
			WithReportableDetails(map[string]interface{}{
				"stripe_invoice_id": invoiceID,
				"error":             err.Error(),
			}).
			Mark(ierr.ErrIntegration)
	}

	return fromStripeInvoice(paid), nil
}

func (p *Provider) ListInvoices(ctx context.Context, params *payment.ListInvoicesParams) ([]*payment.Invoice, error) {
	stripeClient, err := p.client.GetStripeClient()
	if err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = invoiceListLimit
	}

	listParams := &stripe.InvoiceListParams{
		Customer: stripe.String(params.CustomerID),
	}
	listParams.Limit = stripe.Int64(limit)
	if !params.CreatedAfter.IsZero() {
		listParams.CreatedRange = &stripe.RangeQueryParams{
			GreaterThanOrEqual: params.CreatedAfter.Unix(),
		}
	}

	invoices := make([]*payment.Invoice, 0)
	for inv, err := range stripeClient.V1Invoices.List(ctx, listParams) {
		if err != nil {
			p.logger.Errorw("failed to list Stripe invoices",
				"error", err,
				"customer_id", params.CustomerID)
			return nil, ierr.NewError("failed to list invoices").
				WithHint("Unable to list invoices from Stripe").
				WithReportableDetails(map[string]interface{}{
					"customer_id": params.CustomerID,
					"error":       err.Error(),
				}).
				Mark(ierr.ErrIntegration)
		}
		invoices = append(invoices, fromStripeInvoice(inv))
	}

	return invoices, nil
}

func (p *Provider) GetCustomer(ctx context.Context, customerID string) (*payment.Customer, error) {
	cacheKey := cache.GenerateKey(cache.PrefixCustomer, customerID)
	if cached, found := p.cache.Get(ctx, cacheKey); found {
		if customer, ok := cached.(*payment.Customer); ok {
			return customer, nil
		}
	}

	stripeClient, err := p.client.GetStripeClient()
	if err != nil {
		return nil, err
	}

	stripeCustomer, err := stripeClient.V1Customers.Retrieve(ctx, customerID, nil)
	if err != nil {
		p.logger.Errorw("failed to retrieve Stripe customer",
			"error", err,
			"customer_id", customerID)
		return nil, ierr.NewError("failed to retrieve customer").
			WithHint("Unable to retrieve customer from Stripe").
			WithReportableDetails(map[string]interface{}{
				"customer_id": customerID,
				"error":       err.Error(),
			}).
			Mark(ierr.ErrIntegration)
	}

	customer := &payment.Customer{
		ID:    stripeCustomer.ID,
		Email: stripeCustomer.Email,
	}
	p.cache.Set(ctx, cacheKey, customer, customerCacheTTL)

	return customer, nil
}

func (p *Provider) UpdateCustomerEmail(ctx context.Context, customerID string, email string) error {
	stripeClient, err := p.client.GetStripeClient()
	if err != nil {
		return err
	}

	_, err = stripeClient.V1Customers.Update(ctx, customerID, &stripe.CustomerUpdateParams{
		Email: stripe.String(email),
	})
	if err != nil {
		p.logger.Errorw("failed to update Stripe customer email",
			"error", err,
			"customer_id", customerID)
		return ierr.NewError("failed to update customer").
			WithHint("Unable to update customer in Stripe").
			WithReportableDetails(map[string]interface{}{
				"customer_id": customerID,
				"error":       err.Error(),
			}).
			Mark(ierr.ErrIntegration)
	}

	p.cache.Delete(ctx, cache.GenerateKey(cache.PrefixCustomer, customerID))
	return nil
}

// fromStripeInvoice maps a Stripe invoice to the provider-neutral view.
func fromStripeInvoice(inv *stripe.Invoice) *payment.Invoice {
	if inv == nil {
		return nil
	}

	out := &payment.Invoice{
		ID:            inv.ID,
		BillingReason: types.BillingReason(inv.BillingReason),
		Status:        payment.InvoiceStatus(inv.Status),
		AttemptCount:  inv.AttemptCount,
		Total:         types.FromMinorUnits(inv.Total),
		Currency:      string(inv.Currency),
		Metadata:      types.Metadata(inv.Metadata),
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil && inv.Parent.SubscriptionDetails.Subscription != nil {
		out.SubscriptionID = inv.Parent.SubscriptionDetails.Subscription.ID
	}
	if inv.PeriodStart > 0 {
		out.PeriodStart = time.Unix(inv.PeriodStart, 0).UTC()
	}
	if inv.PeriodEnd > 0 {
		out.PeriodEnd = time.Unix(inv.PeriodEnd, 0).UTC()
	}
	return out
}

func fromStripeInvoiceItem(item *stripe.InvoiceItem) *payment.InvoiceItem {
	if item == nil {
		return nil
	}

	out := &payment.InvoiceItem{
		ID:       item.ID,
		Amount:   types.FromMinorUnits(item.Amount),
		Currency: string(item.Currency),
		Metadata: types.Metadata(item.Metadata),
	}
	if item.Customer != nil {
		out.CustomerID = item.Customer.ID
	}
	if item.Invoice != nil {
		out.InvoiceID = item.Invoice.ID
	}
	return out
}

// FromStripeSubscription maps a subscription webhook payload to the
// provider-neutral event. Period bounds live on the subscription item since
// the basil API release.
func FromStripeSubscription(sub *stripe.Subscription) *payment.SubscriptionEvent {
	ev := &payment.SubscriptionEvent{
		ProviderSubscriptionID: sub.ID,
		Status:                 fromStripeSubscriptionStatus(sub.Status),
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		ev.Seats = item.Quantity
		if item.CurrentPeriodStart > 0 {
			ev.PeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		}
		if item.CurrentPeriodEnd > 0 {
			ev.PeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		}
	}
	return ev
}

func fromStripeSubscriptionStatus(status stripe.SubscriptionStatus) types.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return types.SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return types.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return types.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return types.SubscriptionStatusCancelled
	case stripe.SubscriptionStatusUnpaid:
		return types.SubscriptionStatusUnpaid
	default:
		return types.SubscriptionStatusIncomplete
	}
}
