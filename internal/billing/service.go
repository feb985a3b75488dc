// internal/billing/service.go
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

// Service generates and manages member invoices.
type Service interface {
	Preview(ctx context.Context, period ledger.Period, memberIDs []uuid.UUID, today time.Time) (*Session, error)
	Commit(ctx context.Context, session *Session, selected []uuid.UUID, progress ProgressFunc) (*CommitSummary, error)
	RetryFailed(ctx context.Context, session *Session, today time.Time) (*Session, error)
	RefreshOverdue(ctx context.Context, today time.Time) (int, error)
	IssueEntryFee(ctx context.Context, memberID uuid.UUID, total decimal.Decimal, installments int, first ledger.Period) ([]ledger.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]ledger.Invoice, error)
	Config(ctx context.Context) Config
}

// InvoiceFilter narrows ListInvoices. Zero fields match everything.
type InvoiceFilter struct {
	MemberID uuid.UUID
	Status   ledger.InvoiceStatus
	Period   ledger.Period
}

// Store is the storage collaborator the generator reads and writes through.
type Store interface {
	ListMembers(ctx context.Context, status membership.Status) ([]membership.Member, error)
	ListVessels(ctx context.Context, memberID uuid.UUID) ([]membership.Vessel, error)
	ListVisits(ctx context.Context, memberID uuid.UUID, from, to time.Time, status membership.VisitStatus) ([]membership.Visit, error)
	MarkVisitBilled(ctx context.Context, visitID, invoiceID uuid.UUID, at time.Time) error

	// ListOpenInvoices returns pending and overdue invoices of a member due before dueBefore.
	ListOpenInvoices(ctx context.Context, memberID uuid.UUID, dueBefore time.Time) ([]ledger.Invoice, error)
	// InvoicedMembers maps each given member that already holds an invoice of kind for
	// period (installment 0) to that invoice's number.
	InvoicedMembers(ctx context.Context, period ledger.Period, kind ledger.InvoiceKind, memberIDs []uuid.UUID) (map[uuid.UUID]string, error)
	// CreateInvoice inserts the invoice and its lines as one unit. A uniqueness
	// violation is reported as *errs.ConflictError.
	CreateInvoice(ctx context.Context, inv *ledger.Invoice) error
	// MarkOverdue moves pending invoices due before cutoff to overdue.
	MarkOverdue(ctx context.Context, cutoff time.Time) (int, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]ledger.Invoice, error)
}

// CreditApplier settles a fresh invoice from the member's existing credit.
type CreditApplier interface {
	Apply(ctx context.Context, invoiceID, memberID uuid.UUID) (*ledger.CreditApplication, error)
}

// Notifier tells a member about an issued invoice.
type Notifier interface {
	InvoiceIssued(ctx context.Context, member membership.Member, inv *ledger.Invoice) error
}

// InvoiceIssuedEvent is journaled for every invoice written.
type InvoiceIssuedEvent struct {
	InvoiceID   uuid.UUID          `json:"invoice_id"`
	MemberID    uuid.UUID          `json:"member_id"`
	Number      string             `json:"number"`
	Kind        ledger.InvoiceKind `json:"kind"`
	Period      string             `json:"period"`
	Total       decimal.Decimal    `json:"total"`
	SessionID   *uuid.UUID         `json:"session_id,omitempty"`
	Installment int                `json:"installment,omitempty"`
}
