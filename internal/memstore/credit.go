// internal/memstore/credit.go
package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/credit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
)

// WithinTx serializes credit work under the store lock and restores invoices and links
// when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(tx credit.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoices := make(map[uuid.UUID]ledger.Invoice, len(s.invoices))
	for k, v := range s.invoices {
		invoices[k] = v
	}
	links := make(map[linkKey]ledger.Link, len(s.links))
	for k, v := range s.links {
		links[k] = v
	}

	if err := fn(&memTx{s: s}); err != nil {
		s.invoices = invoices
		s.links = links
		return err
	}
	return nil
}

// memTx runs with Store.mu held.
type memTx struct {
	s *Store
}

func (t *memTx) LockInvoice(_ context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	inv, ok := t.s.invoices[id]
	if !ok {
		return nil, errs.NotFound("invoice", id.String())
	}
	inv.Lines = nil
	return &inv, nil
}

func (t *memTx) LockOpenInvoices(_ context.Context, memberID uuid.UUID) ([]ledger.Invoice, error) {
	return t.s.openInvoicesLocked(memberID), nil
}

func (t *memTx) LockPaymentBalances(_ context.Context, memberID uuid.UUID) ([]ledger.PaymentBalance, error) {
	var ps []ledger.Payment
	for _, p := range t.s.payments {
		if p.MemberID == memberID {
			ps = append(ps, p)
		}
	}
	sortPayments(ps)

	allocated := map[uuid.UUID]decimal.Decimal{}
	for k, l := range t.s.links {
		allocated[k.payment] = allocated[k.payment].Add(l.Amount)
	}
	out := make([]ledger.PaymentBalance, 0, len(ps))
	for _, p := range ps {
		out = append(out, ledger.PaymentBalance{
			PaymentID: p.ID,
			Date:      p.Date,
			Amount:    p.Amount,
			Allocated: allocated[p.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (t *memTx) InsertLink(_ context.Context, link ledger.Link) error {
	inv, ok := t.s.invoices[link.InvoiceID]
	if !ok {
		return errs.NotFound("invoice", link.InvoiceID.String())
	}
	if _, ok := t.s.payments[link.PaymentID]; !ok {
		return errs.NotFound("payment", link.PaymentID.String())
	}
	key := linkKey{payment: link.PaymentID, invoice: link.InvoiceID}
	if existing, ok := t.s.links[key]; ok {
		existing.Amount = existing.Amount.Add(link.Amount)
		t.s.links[key] = existing
	} else {
		t.s.links[key] = link
	}
	inv.Allocated = inv.Allocated.Add(link.Amount)
	t.s.invoices[link.InvoiceID] = inv
	return nil
}

func (t *memTx) MarkInvoicePaid(_ context.Context, invoiceID uuid.UUID, at time.Time) error {
	inv, ok := t.s.invoices[invoiceID]
	if !ok {
		return errs.NotFound("invoice", invoiceID.String())
	}
	inv.Status = ledger.InvoicePaid
	inv.PaidAt = &at
	t.s.invoices[invoiceID] = inv
	return nil
}
