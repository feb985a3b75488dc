// internal/billing/implementation.go
package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

const DefaultWorkers = 4

// service implements the Service interface.
type service struct {
	store    Store
	config   *ConfigLoader
	credit   CreditApplier
	notifier Notifier
	journal  audit.Recorder
	log      *zap.Logger
	tracer   trace.Tracer
	metrics  *batchMetrics
	workers  int
	now      func() time.Time
}

// Option customizes the billing service.
type Option func(*service)

func WithWorkers(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithNotifier(n Notifier) Option { return func(s *service) { s.notifier = n } }

func WithJournal(j audit.Recorder) Option { return func(s *service) { s.journal = j } }

func WithMeterProvider(p metric.MeterProvider) Option {
	return func(s *service) { s.metrics = newBatchMetrics(p) }
}

func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

// NewService creates a new billing service instance.
func NewService(store Store, config *ConfigLoader, credit CreditApplier, log *zap.Logger, opts ...Option) Service {
	s := &service{
		store:   store,
		config:  config,
		credit:  credit,
		journal: audit.Discard,
		log:     log.Named("billing"),
		tracer:  otel.Tracer("clubledger/billing"),
		workers: DefaultWorkers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newBatchMetrics(nil)
	}
	return s
}

func (s *service) Config(ctx context.Context) Config {
	return s.config.Load(ctx)
}

// Preview prices every requested member without writing anything. An empty memberIDs
// previews every active member.
func (s *service) Preview(ctx context.Context, period ledger.Period, memberIDs []uuid.UUID, today time.Time) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "billing.preview",
		trace.WithAttributes(
			attribute.String("period", period.String()),
			attribute.Int("requested", len(memberIDs)),
		),
	)
	defer span.End()

	if period.IsZero() {
		return nil, errs.Invalid("period", "missing period")
	}
	if today.IsZero() {
		today = s.now()
	}

	members, skipped, err := s.resolveMembers(ctx, memberIDs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	existing, err := s.store.InvoicedMembers(ctx, period, ledger.KindPeriodic, ids)
	if err != nil {
		return nil, errs.Dependency("failed to check existing invoices", err)
	}

	cfg := s.config.Load(ctx)
	calc := NewFeeCalculator(cfg)
	accrual := NewInterestAccrual(cfg)

	previews := make([]MemberPreview, 0, len(members))
	for _, m := range members {
		b, err := s.priceMember(ctx, calc, accrual, m, period, today)
		if errors.Is(err, errs.ErrValidation) {
			skipped = append(skipped, SkippedMember{MemberID: m.ID, Number: m.Number, Reason: err.Error()})
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		previews = append(previews, MemberPreview{Member: m, Breakdown: b, ExistingInvoice: existing[m.ID]})
	}

	session := newSession(period, today, cfg, previews, skipped)
	span.SetAttributes(
		attribute.String("session.id", session.ID.String()),
		attribute.Int("previewed", len(previews)),
		attribute.Int("skipped", len(skipped)),
	)
	return session, nil
}

func (s *service) resolveMembers(ctx context.Context, ids []uuid.UUID) ([]membership.Member, []SkippedMember, error) {
	if len(ids) == 0 {
		members, err := s.store.ListMembers(ctx, membership.StatusActive)
		if err != nil {
			return nil, nil, errs.Dependency("failed to list active members", err)
		}
		return members, nil, nil
	}

	all, err := s.store.ListMembers(ctx, "")
	if err != nil {
		return nil, nil, errs.Dependency("failed to list members", err)
	}
	byID := make(map[uuid.UUID]membership.Member, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	var members []membership.Member
	var skipped []SkippedMember
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		m, ok := byID[id]
		switch {
		case !ok:
			skipped = append(skipped, SkippedMember{MemberID: id, Reason: "unknown member"})
		case m.Status != membership.StatusActive:
			skipped = append(skipped, SkippedMember{MemberID: id, Number: m.Number, Reason: fmt.Sprintf("member is %s", m.Status)})
		default:
			members = append(members, m)
		}
	}
	return members, skipped, nil
}

func (s *service) priceMember(ctx context.Context, calc *FeeCalculator, accrual InterestAccrual, m membership.Member, period ledger.Period, today time.Time) (*Breakdown, error) {
	vessels, err := s.store.ListVessels(ctx, m.ID)
	if err != nil {
		return nil, errs.Dependency(fmt.Sprintf("failed to list vessels of member %d", m.Number), err)
	}
	visits, err := s.store.ListVisits(ctx, m.ID, period.Start(), period.End(), membership.VisitPending)
	if err != nil {
		return nil, errs.Dependency(fmt.Sprintf("failed to list visits of member %d", m.Number), err)
	}
	open, err := s.store.ListOpenInvoices(ctx, m.ID, ledger.Day(today))
	if err != nil {
		return nil, errs.Dependency(fmt.Sprintf("failed to list open invoices of member %d", m.Number), err)
	}

	b, err := calc.Calculate(m, period, vessels, visits)
	if err != nil {
		return nil, err
	}
	b.AddLines(accrual.Accrue(open, today)...)
	return b, nil
}

// RetryFailed previews again only the members that failed or were skipped in the
// session's last commit.
func (s *service) RetryFailed(ctx context.Context, session *Session, today time.Time) (*Session, error) {
	summary := session.Summary()
	if summary == nil {
		return nil, errs.Invalid("session", "session %s has not been committed", session.ID)
	}
	ids := summary.RetryableMembers()
	if len(ids) == 0 {
		return nil, errs.Invalid("session", "session %s has nothing to retry", session.ID)
	}
	s.log.Info("retrying failed members",
		zap.String("session_id", session.ID.String()),
		zap.Int("members", len(ids)),
	)
	return s.Preview(ctx, session.Period, ids, today)
}

// RefreshOverdue marks pending invoices overdue once their grace window has passed.
func (s *service) RefreshOverdue(ctx context.Context, today time.Time) (int, error) {
	cfg := s.config.Load(ctx)
	cutoff := ledger.Day(today).AddDate(0, 0, -cfg.GraceDays)
	n, err := s.store.MarkOverdue(ctx, cutoff)
	if err != nil {
		return 0, errs.Dependency("failed to mark overdue invoices", err)
	}
	if n > 0 {
		s.log.Info("invoices moved to overdue", zap.Int("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// IssueEntryFee splits total into monthly installment invoices starting at first.
// Installments share the member's periodic numbering with a -C{n} suffix.
func (s *service) IssueEntryFee(ctx context.Context, memberID uuid.UUID, total decimal.Decimal, installments int, first ledger.Period) ([]ledger.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "billing.entry_fee",
		trace.WithAttributes(
			attribute.String("member.id", memberID.String()),
			attribute.Int("installments", installments),
		),
	)
	defer span.End()

	if !total.IsPositive() {
		return nil, errs.Invalid("total", "must be positive, got %s", total)
	}
	if installments < 1 || installments > 12 {
		return nil, errs.Invalid("installments", "%d outside 1..12", installments)
	}
	if first.IsZero() {
		return nil, errs.Invalid("period", "missing first period")
	}

	member, err := s.findMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	cfg := s.config.Load(ctx)
	amounts := SplitInstallments(total, installments, cfg.CurrencyPlaces)

	var issued []ledger.Invoice
	period := first
	for n, amount := range amounts {
		installment := n + 1
		unit := amount
		inv := &ledger.Invoice{
			ID:          uuid.New(),
			MemberID:    member.ID,
			Number:      EntryFeeNumber(period, member.Number, installment),
			Kind:        ledger.KindEntryFee,
			Period:      period,
			Installment: installment,
			DueDate:     period.DueDate(cfg.DueDay),
			Status:      ledger.InvoicePending,
			Allocated:   decimal.Zero,
			CreatedAt:   s.now().UTC(),
			Lines: []ledger.LineItem{{
				ID:          uuid.New(),
				Position:    1,
				Category:    ledger.CategoryOther,
				Description: fmt.Sprintf("Entry fee installment %d/%d", installment, installments),
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   &unit,
				Subtotal:    amount,
			}},
		}
		ledger.ApplyTotals(inv)

		if err := s.store.CreateInvoice(ctx, inv); err != nil {
			span.RecordError(err)
			return issued, fmt.Errorf("failed to create entry fee installment %d: %w", installment, errs.Dependency("create invoice", err))
		}
		s.afterInvoice(ctx, *member, inv, nil)
		issued = append(issued, *inv)
		period = period.Next()
	}
	return issued, nil
}

// SplitInstallments divides total into n rounded parts; the last part absorbs the remainder.
func SplitInstallments(total decimal.Decimal, n int, places int32) []decimal.Decimal {
	part := total.Div(decimal.NewFromInt(int64(n))).RoundDown(places)
	out := make([]decimal.Decimal, n)
	sum := decimal.Zero
	for i := 0; i < n-1; i++ {
		out[i] = part
		sum = sum.Add(part)
	}
	out[n-1] = total.Sub(sum)
	return out
}

func (s *service) findMember(ctx context.Context, id uuid.UUID) (*membership.Member, error) {
	members, err := s.store.ListMembers(ctx, "")
	if err != nil {
		return nil, errs.Dependency("failed to list members", err)
	}
	for i := range members {
		if members[i].ID == id {
			return &members[i], nil
		}
	}
	return nil, errs.NotFound("member", id.String())
}

// afterInvoice runs the post-write steps of a created invoice. None of them can undo it.
func (s *service) afterInvoice(ctx context.Context, member membership.Member, inv *ledger.Invoice, sessionID *uuid.UUID) *ledger.CreditApplication {
	log := s.log.With(zap.String("member_id", member.ID.String()), zap.String("invoice", inv.Number))

	event := InvoiceIssuedEvent{
		InvoiceID:   inv.ID,
		MemberID:    member.ID,
		Number:      inv.Number,
		Kind:        inv.Kind,
		Period:      inv.Period.String(),
		Total:       inv.Total,
		SessionID:   sessionID,
		Installment: inv.Installment,
	}
	if err := s.journal.Record(ctx, inv.ID, audit.AggregateInvoice, "InvoiceIssued", event); err != nil {
		log.Warn("journal append failed", zap.Error(err))
	}

	var applied *ledger.CreditApplication
	if s.credit != nil {
		app, err := s.credit.Apply(ctx, inv.ID, member.ID)
		if err != nil {
			log.Error("credit application failed", zap.Error(err))
		} else {
			applied = app
			if app.Applied.IsPositive() {
				inv.Allocated = inv.Allocated.Add(app.Applied)
				if app.InvoicePaid {
					inv.Status = ledger.InvoicePaid
				}
			}
		}
	}

	if s.notifier != nil {
		if err := s.notifier.InvoiceIssued(ctx, member, inv); err != nil {
			log.Warn("invoice notification failed", zap.Error(err))
		}
	}
	return applied
}

func (s *service) GetInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (s *service) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]ledger.Invoice, error) {
	invoices, err := s.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	sort.SliceStable(invoices, func(i, j int) bool { return invoices[i].Number < invoices[j].Number })
	return invoices, nil
}
