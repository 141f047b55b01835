package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/traceroot-ai/sim/internal/domain/payment"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/types"
)

// FakePaymentProvider implements payment.Provider in memory, recording every
// call and honoring idempotency keys the way the real provider does.
type FakePaymentProvider struct {
	mu sync.Mutex

	invoices    map[string]*payment.Invoice
	byIdemKey   map[string]string // idempotency key -> invoice ID
	items       map[string][]*payment.InvoiceItem
	customers   map[string]*payment.Customer
	idSeq       int
	createdAt   map[string]time.Time
	PaidIDs     []string
	FinalizedID []string

	// Failure injection
	FailCreateItem    error
	FailCreateInvoice error
	FailFinalize      error
	FailPay           error
	FailList          error
}

func NewFakePaymentProvider() *FakePaymentProvider {
	return &FakePaymentProvider{
		invoices:  make(map[string]*payment.Invoice),
		byIdemKey: make(map[string]string),
		items:     make(map[string][]*payment.InvoiceItem),
		customers: make(map[string]*payment.Customer),
		createdAt: make(map[string]time.Time),
	}
}

func (f *FakePaymentProvider) nextID(prefix string) string {
	f.idSeq++
	return types.GenerateUUIDWithPrefix(prefix)
}

// SeedInvoice registers an existing remote invoice, e.g. a prior overage
// artifact, for list-based duplicate checks.
func (f *FakePaymentProvider) SeedInvoice(inv *payment.Invoice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[inv.ID] = inv
	f.createdAt[inv.ID] = time.Now().UTC()
}

// SeedCustomer registers a remote customer.
func (f *FakePaymentProvider) SeedCustomer(c *payment.Customer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers[c.ID] = c
}

// Items returns the line items attached to an invoice.
func (f *FakePaymentProvider) Items(invoiceID string) []*payment.InvoiceItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[invoiceID]
}

// Invoices returns all invoices the provider knows about.
func (f *FakePaymentProvider) Invoices() []*payment.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*payment.Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		out = append(out, inv)
	}
	return out
}

func (f *FakePaymentProvider) CreateInvoiceItem(ctx context.Context, params *payment.CreateInvoiceItemParams) (*payment.InvoiceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreateItem != nil {
		return nil, f.FailCreateItem
	}

	item := &payment.InvoiceItem{
		ID:         f.nextID("ii"),
		InvoiceID:  params.InvoiceID,
		CustomerID: params.CustomerID,
		Amount:     params.Amount,
		Currency:   params.Currency,
		Metadata:   params.Metadata,
	}
	f.items[params.InvoiceID] = append(f.items[params.InvoiceID], item)

	if inv, ok := f.invoices[params.InvoiceID]; ok {
		inv.Total = inv.Total.Add(params.Amount)
	}
	return item, nil
}

func (f *FakePaymentProvider) CreateInvoice(ctx context.Context, params *payment.CreateInvoiceParams) (*payment.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreateInvoice != nil {
		return nil, f.FailCreateInvoice
	}

	if params.IdempotencyKey != "" {
		if existingID, ok := f.byIdemKey[params.IdempotencyKey]; ok {
			return f.invoices[existingID], nil
		}
	}

	inv := &payment.Invoice{
		ID:            f.nextID("in"),
		CustomerID:    params.CustomerID,
		BillingReason: types.BillingReasonManual,
		Status:        payment.InvoiceStatusDraft,
		Total:         decimal.Zero,
		Currency:      params.Currency,
		Metadata:      params.Metadata,
	}
	f.invoices[inv.ID] = inv
	f.createdAt[inv.ID] = time.Now().UTC()
	if params.IdempotencyKey != "" {
		f.byIdemKey[params.IdempotencyKey] = inv.ID
	}
	return inv, nil
}

func (f *FakePaymentProvider) FinalizeInvoice(ctx context.Context, invoiceID string) (*payment.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailFinalize != nil {
		return nil, f.FailFinalize
	}

	inv, ok := f.invoices[invoiceID]
	if !ok {
		return nil, ierr.NewError("invoice not found").Mark(ierr.ErrNotFound)
	}
	inv.Status = payment.InvoiceStatusOpen
	f.FinalizedID = append(f.FinalizedID, invoiceID)
	return inv, nil
}

func (f *FakePaymentProvider) PayInvoice(ctx context.Context, invoiceID string) (*payment.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailPay != nil {
		return nil, f.FailPay
	}

	inv, ok := f.invoices[invoiceID]
	if !ok {
		return nil, ierr.NewError("invoice not found").Mark(ierr.ErrNotFound)
	}
	inv.Status = payment.InvoiceStatusPaid
	f.PaidIDs = append(f.PaidIDs, invoiceID)
	return inv, nil
}

func (f *FakePaymentProvider) ListInvoices(ctx context.Context, params *payment.ListInvoicesParams) ([]*payment.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailList != nil {
		return nil, f.FailList
	}

	result := make([]*payment.Invoice, 0)
	for id, inv := range f.invoices {
		if inv.CustomerID != params.CustomerID {
			continue
		}
		if !params.CreatedAfter.IsZero() && f.createdAt[id].Before(params.CreatedAfter) {
			continue
		}
		result = append(result, inv)
	}
	return result, nil
}

func (f *FakePaymentProvider) GetCustomer(ctx context.Context, customerID string) (*payment.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.customers[customerID]
	if !ok {
		return nil, ierr.NewError("customer not found").
			WithHintf("customer %s not found", customerID).
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (f *FakePaymentProvider) UpdateCustomerEmail(ctx context.Context, customerID string, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.customers[customerID]
	if !ok {
		return ierr.NewError("customer not found").Mark(ierr.ErrNotFound)
	}
	c.Email = email
	return nil
}
