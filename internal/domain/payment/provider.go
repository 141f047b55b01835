package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/types"
)

// CreateInvoiceItemParams creates a pending line item, optionally attached to
// an existing invoice.
type CreateInvoiceItemParams struct {
	CustomerID  string
	InvoiceID   string // attach to this invoice when set
	Amount      decimal.Decimal
	Currency    string
	Description string
	Metadata    types.Metadata
}

// CreateInvoiceParams creates a draft invoice. IdempotencyKey must be
// deterministic for the (customer, subscription, period) triple so provider
// retries cannot mint duplicate artifacts.
type CreateInvoiceParams struct {
	CustomerID     string
	Currency       string
	Description    string
	Metadata       types.Metadata
	IdempotencyKey string
	AutoAdvance    bool
}

// ListInvoicesParams filters remote invoices by customer and creation time
type ListInvoicesParams struct {
	CustomerID   string
	CreatedAfter time.Time
	Limit        int64
}

// Provider is the remote payment system. Implementations must be safe for
// concurrent use.
type Provider interface {
	CreateInvoiceItem(ctx context.Context, params *CreateInvoiceItemParams) (*InvoiceItem, error)
	CreateInvoice(ctx context.Context, params *CreateInvoiceParams) (*Invoice, error)
	FinalizeInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
	PayInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
	ListInvoices(ctx context.Context, params *ListInvoicesParams) ([]*Invoice, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	UpdateCustomerEmail(ctx context.Context, customerID string, email string) error
}
