// internal/credit/applier.go
package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
)

// CreditAppliedEvent is journaled on the invoice when credit lands on it.
type CreditAppliedEvent struct {
	MemberID uuid.UUID       `json:"member_id"`
	Applied  decimal.Decimal `json:"applied"`
	Paid     bool            `json:"paid"`
	Links    []ledger.Link   `json:"links"`
}

// Applier moves unallocated payment credit onto invoices.
type Applier struct {
	store   Store
	journal audit.Recorder
	log     *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func NewApplier(store Store, journal audit.Recorder, log *zap.Logger) *Applier {
	if journal == nil {
		journal = audit.Discard
	}
	return &Applier{
		store:   store,
		journal: journal,
		log:     log.Named("credit"),
		tracer:  otel.Tracer("clubledger/credit"),
		now:     time.Now,
	}
}

// Apply allocates up to min(credit, balance) of the member's credit to one invoice and marks
// it paid when fully covered. Running it again finds no credit or no balance and applies nothing.
func (a *Applier) Apply(ctx context.Context, invoiceID, memberID uuid.UUID) (*ledger.CreditApplication, error) {
	ctx, span := a.tracer.Start(ctx, "credit.apply",
		trace.WithAttributes(
			attribute.String("invoice.id", invoiceID.String()),
			attribute.String("member.id", memberID.String()),
		),
	)
	defer span.End()

	var result *ledger.CreditApplication
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		inv, err := tx.LockInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if inv.MemberID != memberID {
			return errs.Invalid("member_id", "invoice %s does not belong to member %s", inv.Number, memberID)
		}
		balances, err := tx.LockPaymentBalances(ctx, memberID)
		if err != nil {
			return fmt.Errorf("failed to lock payments: %w", err)
		}
		result, err = a.allocate(ctx, tx, inv, balances)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, errs.Dependency("apply credit", err)
	}

	span.SetAttributes(
		attribute.String("applied", result.Applied.String()),
		attribute.Bool("invoice.paid", result.InvoicePaid),
	)
	a.journalApplication(ctx, result)
	return result, nil
}

// Settle applies the member's credit to every open invoice, oldest due date first.
func (a *Applier) Settle(ctx context.Context, memberID uuid.UUID) ([]ledger.CreditApplication, error) {
	ctx, span := a.tracer.Start(ctx, "credit.settle",
		trace.WithAttributes(attribute.String("member.id", memberID.String())),
	)
	defer span.End()

	var results []ledger.CreditApplication
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		results = nil
		invoices, err := tx.LockOpenInvoices(ctx, memberID)
		if err != nil {
			return fmt.Errorf("failed to lock open invoices: %w", err)
		}
		balances, err := tx.LockPaymentBalances(ctx, memberID)
		if err != nil {
			return fmt.Errorf("failed to lock payments: %w", err)
		}
		for i := range invoices {
			if !creditOf(balances).IsPositive() {
				break
			}
			app, err := a.allocate(ctx, tx, &invoices[i], balances)
			if err != nil {
				return err
			}
			if app.Applied.IsPositive() {
				results = append(results, *app)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, errs.Dependency("settle credit", err)
	}

	for i := range results {
		a.journalApplication(ctx, &results[i])
	}
	span.SetAttributes(attribute.Int("invoices.touched", len(results)))
	return results, nil
}

// Balance returns the member's unallocated credit.
func (a *Applier) Balance(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	credit := decimal.Zero
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		balances, err := tx.LockPaymentBalances(ctx, memberID)
		if err != nil {
			return fmt.Errorf("failed to read payments: %w", err)
		}
		credit = creditOf(balances)
		return nil
	})
	if err != nil {
		return decimal.Zero, errs.Dependency("credit balance", err)
	}
	return credit, nil
}

// allocate consumes balances in order against inv. balances is updated in place so a caller
// can carry it across several invoices in the same transaction.
func (a *Applier) allocate(ctx context.Context, tx Tx, inv *ledger.Invoice, balances []ledger.PaymentBalance) (*ledger.CreditApplication, error) {
	app := &ledger.CreditApplication{
		InvoiceID: inv.ID,
		MemberID:  inv.MemberID,
		Applied:   decimal.Zero,
	}
	if !inv.Open() {
		app.InvoicePaid = inv.Status == ledger.InvoicePaid
		app.RemainingCredit = creditOf(balances)
		return app, nil
	}

	now := a.now().UTC()
	need := inv.Balance()
	for i := range balances {
		if !need.IsPositive() {
			break
		}
		remaining := balances[i].Remaining()
		if !remaining.IsPositive() {
			continue
		}
		amount := decimal.Min(remaining, need)
		link := ledger.Link{PaymentID: balances[i].PaymentID, InvoiceID: inv.ID, Amount: amount, CreatedAt: now}
		if err := tx.InsertLink(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to link payment %s: %w", balances[i].PaymentID, err)
		}
		balances[i].Allocated = balances[i].Allocated.Add(amount)
		need = need.Sub(amount)
		app.Applied = app.Applied.Add(amount)
		app.Links = append(app.Links, link)
	}

	inv.Allocated = inv.Allocated.Add(app.Applied)
	if !inv.Balance().IsPositive() {
		if err := tx.MarkInvoicePaid(ctx, inv.ID, now); err != nil {
			return nil, fmt.Errorf("failed to mark invoice %s paid: %w", inv.Number, err)
		}
		inv.Status = ledger.InvoicePaid
		inv.PaidAt = &now
		app.InvoicePaid = true
	}
	app.RemainingCredit = creditOf(balances)
	return app, nil
}

func (a *Applier) journalApplication(ctx context.Context, app *ledger.CreditApplication) {
	if !app.Applied.IsPositive() {
		return
	}
	event := CreditAppliedEvent{MemberID: app.MemberID, Applied: app.Applied, Paid: app.InvoicePaid, Links: app.Links}
	if err := a.journal.Record(ctx, app.InvoiceID, audit.AggregateInvoice, "CreditApplied", event); err != nil {
		a.log.Warn("journal append failed", zap.String("invoice_id", app.InvoiceID.String()), zap.Error(err))
	}
}

func creditOf(balances []ledger.PaymentBalance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.Remaining())
	}
	return total
}
