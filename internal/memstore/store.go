// internal/memstore/store.go
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clubledger/internal/billing"
	"clubledger/internal/credit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
	"clubledger/internal/payments"
	"clubledger/internal/reconciliation"
)

type linkKey struct {
	payment uuid.UUID
	invoice uuid.UUID
}

// Store keeps every aggregate in process memory. It backs the same interfaces as the
// postgres store and enforces the same uniqueness rules.
type Store struct {
	mu           sync.Mutex
	members      map[uuid.UUID]membership.Member
	vessels      map[uuid.UUID]membership.Vessel
	visits       map[uuid.UUID]membership.Visit
	invoices     map[uuid.UUID]ledger.Invoice
	payments     map[uuid.UUID]ledger.Payment
	links        map[linkKey]ledger.Link
	transactions map[uuid.UUID]reconciliation.BankTransaction
	fingerprints map[string]uuid.UUID
	config       billing.StoredConfig
	now          func() time.Time
}

var (
	_ membership.Repository  = (*Store)(nil)
	_ billing.Store          = (*Store)(nil)
	_ billing.ConfigProvider = (*Store)(nil)
	_ credit.Store           = (*Store)(nil)
	_ payments.Store         = (*Store)(nil)
	_ reconciliation.Store   = (*Store)(nil)
)

func New() *Store {
	return &Store{
		members:      map[uuid.UUID]membership.Member{},
		vessels:      map[uuid.UUID]membership.Vessel{},
		visits:       map[uuid.UUID]membership.Visit{},
		invoices:     map[uuid.UUID]ledger.Invoice{},
		payments:     map[uuid.UUID]ledger.Payment{},
		links:        map[linkKey]ledger.Link{},
		transactions: map[uuid.UUID]reconciliation.BankTransaction{},
		fingerprints: map[string]uuid.UUID{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Members

func (s *Store) CreateMember(_ context.Context, m *membership.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.Number == m.Number {
			return &errs.ConflictError{Resource: "member", Key: fmt.Sprintf("number %d", m.Number), Reason: "number taken", ExistingID: existing.ID.String()}
		}
		if existing.NationalID == m.NationalID {
			return &errs.ConflictError{Resource: "member", Key: "national_id " + m.NationalID, Reason: "already registered", ExistingID: existing.ID.String()}
		}
	}
	s.members[m.ID] = *m
	return nil
}

func (s *Store) GetMember(_ context.Context, id uuid.UUID) (*membership.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, errs.NotFound("member", id.String())
	}
	return &m, nil
}

func (s *Store) ListMembers(_ context.Context, status membership.Status) ([]membership.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]membership.Member, 0, len(s.members))
	for _, m := range s.members {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) CreateVessel(_ context.Context, v *membership.Vessel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[v.MemberID]; !ok {
		return errs.NotFound("member", v.MemberID.String())
	}
	s.vessels[v.ID] = *v
	return nil
}

func (s *Store) ListVessels(_ context.Context, memberID uuid.UUID) ([]membership.Vessel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []membership.Vessel
	for _, v := range s.vessels {
		if v.MemberID == memberID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) CreateVisit(_ context.Context, v *membership.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[v.MemberID]; !ok {
		return errs.NotFound("member", v.MemberID.String())
	}
	s.visits[v.ID] = *v
	return nil
}

// ListVisits filters by date range (zero bounds are open, to is inclusive) and status.
func (s *Store) ListVisits(_ context.Context, memberID uuid.UUID, from, to time.Time, status membership.VisitStatus) ([]membership.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []membership.Visit
	for _, v := range s.visits {
		if v.MemberID != memberID || (status != "" && v.Status != status) || !inRange(v.Date, from, to) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) MarkVisitBilled(_ context.Context, visitID, invoiceID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[visitID]
	if !ok {
		return errs.NotFound("visit", visitID.String())
	}
	if err := v.Bill(invoiceID, at); err != nil {
		return err
	}
	s.visits[visitID] = v
	return nil
}

// Billing configuration

func (s *Store) BillingConfig(context.Context) (*billing.StoredConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.config
	return &cfg, nil
}

// SetBillingConfig replaces the stored configuration row.
func (s *Store) SetBillingConfig(_ context.Context, cfg billing.StoredConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	return nil
}

// Invoices

func (s *Store) CreateInvoice(_ context.Context, inv *ledger.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invoices {
		if existing.Number == inv.Number {
			return &errs.ConflictError{Resource: "invoice", Key: "number " + inv.Number, Reason: "number taken", ExistingID: existing.Number}
		}
		if existing.MemberID == inv.MemberID && existing.Kind == inv.Kind &&
			existing.Period == inv.Period && existing.Installment == inv.Installment {
			return &errs.ConflictError{
				Resource:   "invoice",
				Key:        fmt.Sprintf("member %s period %s installment %d", inv.MemberID, inv.Period, inv.Installment),
				Reason:     "already invoiced",
				ExistingID: existing.Number,
			}
		}
	}
	stored := *inv
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	stored.Lines = append([]ledger.LineItem(nil), inv.Lines...)
	s.invoices[inv.ID] = stored
	return nil
}

func (s *Store) GetInvoice(_ context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, errs.NotFound("invoice", id.String())
	}
	inv.Lines = append([]ledger.LineItem(nil), inv.Lines...)
	return &inv, nil
}

func (s *Store) ListInvoices(_ context.Context, filter billing.InvoiceFilter) ([]ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Invoice
	for _, inv := range s.invoices {
		if filter.MemberID != uuid.Nil && inv.MemberID != filter.MemberID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if !filter.Period.IsZero() && inv.Period != filter.Period {
			continue
		}
		inv.Lines = append([]ledger.LineItem(nil), inv.Lines...)
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) ListOpenInvoices(_ context.Context, memberID uuid.UUID, dueBefore time.Time) ([]ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.openInvoicesLocked(memberID)
	kept := out[:0]
	for _, inv := range out {
		if inv.DueDate.Before(dueBefore) {
			kept = append(kept, inv)
		}
	}
	return kept, nil
}

func (s *Store) InvoicedMembers(_ context.Context, period ledger.Period, kind ledger.InvoiceKind, memberIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(memberIDs))
	for _, id := range memberIDs {
		wanted[id] = true
	}
	out := map[uuid.UUID]string{}
	for _, inv := range s.invoices {
		if wanted[inv.MemberID] && inv.Period == period && inv.Kind == kind && inv.Installment == 0 {
			out[inv.MemberID] = inv.Number
		}
	}
	return out, nil
}

func (s *Store) MarkOverdue(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, inv := range s.invoices {
		if inv.Status == ledger.InvoicePending && inv.DueDate.Before(cutoff) {
			inv.Status = ledger.InvoiceOverdue
			s.invoices[id] = inv
			n++
		}
	}
	return n, nil
}

func (s *Store) openInvoicesLocked(memberID uuid.UUID) []ledger.Invoice {
	var out []ledger.Invoice
	for _, inv := range s.invoices {
		if inv.MemberID == memberID && inv.Open() {
			inv.Lines = nil
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// Payments

func (s *Store) CreatePayment(_ context.Context, p *ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; ok {
		return &errs.ConflictError{Resource: "payment", Key: p.ID.String(), Reason: "already stored", ExistingID: p.ID.String()}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.payments[p.ID] = *p
	return nil
}

func (s *Store) ListPayments(_ context.Context, memberID uuid.UUID) ([]ledger.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Payment
	for _, p := range s.payments {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	sortPayments(out)
	return out, nil
}

func sortPayments(ps []ledger.Payment) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].Date.Equal(ps[j].Date) {
			return ps[i].Date.Before(ps[j].Date)
		}
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID.String() < ps[j].ID.String()
	})
}

// Bank transactions

func (s *Store) KnownReferences(context.Context) (map[uuid.UUID][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID][]string{}
	for _, p := range s.payments {
		if p.Reference != "" {
			out[p.MemberID] = append(out[p.MemberID], p.Reference)
		}
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out, nil
}

func (s *Store) CreateBankTransactions(_ context.Context, txs []*reconciliation.BankTransaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, tx := range txs {
		if _, ok := s.fingerprints[tx.Fingerprint]; ok {
			continue
		}
		s.fingerprints[tx.Fingerprint] = tx.ID
		s.transactions[tx.ID] = *tx
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListBankTransactions(_ context.Context, status reconciliation.Status, from, to time.Time) ([]reconciliation.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reconciliation.BankTransaction
	for _, tx := range s.transactions {
		if (status == "" || tx.Status == status) && inRange(tx.Date, from, to) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out, nil
}

func (s *Store) GetBankTransaction(_ context.Context, id uuid.UUID) (*reconciliation.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, errs.NotFound("bank transaction", id.String())
	}
	return &tx, nil
}

func (s *Store) UpdateBankTransaction(_ context.Context, tx *reconciliation.BankTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; !ok {
		return errs.NotFound("bank transaction", tx.ID.String())
	}
	s.transactions[tx.ID] = *tx
	return nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
