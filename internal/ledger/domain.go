// internal/ledger/domain.go
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus follows pending -> paid or pending -> overdue -> paid.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoicePaid    InvoiceStatus = "paid"
)

// InvoiceKind distinguishes monthly dues from entry-fee installments.
type InvoiceKind string

const (
	KindPeriodic InvoiceKind = "periodic"
	KindEntryFee InvoiceKind = "entry_fee"
)

// LineCategory groups line items into the invoice breakdown columns.
type LineCategory string

const (
	CategoryDues     LineCategory = "dues"
	CategoryMooring  LineCategory = "mooring"
	CategoryVisits   LineCategory = "visits"
	CategoryOther    LineCategory = "other"
	CategoryInterest LineCategory = "interest"
)

// Invoice is a member's billing document ("coupon") for one period.
type Invoice struct {
	ID          uuid.UUID       `json:"id"`
	MemberID    uuid.UUID       `json:"member_id"`
	Number      string          `json:"number"`
	Kind        InvoiceKind     `json:"kind"`
	Period      Period          `json:"period"`
	Installment int             `json:"installment,omitempty"`
	DueDate     time.Time       `json:"due_date"`
	Status      InvoiceStatus   `json:"status"`
	Dues        decimal.Decimal `json:"dues"`
	Mooring     decimal.Decimal `json:"mooring"`
	Visits      decimal.Decimal `json:"visits"`
	Other       decimal.Decimal `json:"other"`
	Interest    decimal.Decimal `json:"interest"`
	Total       decimal.Decimal `json:"total"`
	Allocated   decimal.Decimal `json:"allocated"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Lines       []LineItem      `json:"lines,omitempty"`
}

// Balance is the amount still owed on the invoice.
func (inv *Invoice) Balance() decimal.Decimal {
	b := inv.Total.Sub(inv.Allocated)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// Open reports whether the invoice can still receive payments or accrue interest.
func (inv *Invoice) Open() bool {
	return inv.Status == InvoicePending || inv.Status == InvoiceOverdue
}

// LineItem is one priced row of an invoice.
type LineItem struct {
	ID              uuid.UUID        `json:"id"`
	InvoiceID       uuid.UUID        `json:"invoice_id"`
	Position        int              `json:"position"`
	Category        LineCategory     `json:"category"`
	Description     string           `json:"description"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	VesselID        *uuid.UUID       `json:"vessel_id,omitempty"`
	VisitID         *uuid.UUID       `json:"visit_id,omitempty"`
	SourceInvoiceID *uuid.UUID       `json:"source_invoice_id,omitempty"`
	DaysLate        int              `json:"days_late,omitempty"`
}

// PaymentMethod is how the club received the money.
type PaymentMethod string

const (
	MethodTransfer PaymentMethod = "transfer"
	MethodCash     PaymentMethod = "cash"
	MethodCheck    PaymentMethod = "check"
	MethodCard     PaymentMethod = "card"
	MethodDeposit  PaymentMethod = "deposit"
)

// PaymentStatus tracks reconciliation against the bank statement.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentReconciled PaymentStatus = "reconciled"
)

// Payment is money received from a member.
type Payment struct {
	ID                uuid.UUID       `json:"id"`
	MemberID          uuid.UUID       `json:"member_id"`
	Date              time.Time       `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Method            PaymentMethod   `json:"method"`
	Reference         string          `json:"reference,omitempty"`
	Status            PaymentStatus   `json:"status"`
	BankTransactionID *uuid.UUID      `json:"bank_transaction_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Link allocates part of a payment to an invoice.
type Link struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentBalance is a payment together with what has already been allocated from it.
type PaymentBalance struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Allocated decimal.Decimal `json:"allocated"`
}

// Remaining is the unallocated part of the payment.
func (p PaymentBalance) Remaining() decimal.Decimal {
	r := p.Amount.Sub(p.Allocated)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// CreditApplication is the outcome of applying credit to one invoice.
type CreditApplication struct {
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	MemberID        uuid.UUID       `json:"member_id"`
	Applied         decimal.Decimal `json:"applied"`
	InvoicePaid     bool            `json:"invoice_paid"`
	RemainingCredit decimal.Decimal `json:"remaining_credit"`
	Links           []Link          `json:"links,omitempty"`
}
