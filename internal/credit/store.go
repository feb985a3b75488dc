// internal/credit/store.go
package credit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clubledger/internal/ledger"
)

// Store runs fn inside one storage transaction. fn's error rolls everything back.
//
//go:generate mockgen -destination=mocks/mock_store.go -source=store.go
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the locked view of a member's invoices and payments.
type Tx interface {
	// LockInvoice returns the invoice with its current allocated amount.
	LockInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error)
	// LockOpenInvoices returns pending and overdue invoices, oldest due date first.
	LockOpenInvoices(ctx context.Context, memberID uuid.UUID) ([]ledger.Invoice, error)
	// LockPaymentBalances returns the member's payments with their allocations, oldest first.
	LockPaymentBalances(ctx context.Context, memberID uuid.UUID) ([]ledger.PaymentBalance, error)
	// InsertLink adds amount to the (payment, invoice) allocation.
	InsertLink(ctx context.Context, link ledger.Link) error
	MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, at time.Time) error
}
