// internal/billing/batch.go
package billing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"clubledger/internal/errs"
	"clubledger/internal/ledger"
)

const visitLinkConcurrency = 8

type commitJob struct {
	preview MemberPreview
}

// Commit writes the frozen breakdowns of the selected members. It rejects the whole batch
// before any write when a member already holds an invoice for the period; otherwise each
// member succeeds or fails on its own. A cancelled ctx stops dispatching new members and
// reports them skipped; invoices already written stay.
func (s *service) Commit(ctx context.Context, session *Session, selected []uuid.UUID, progress ProgressFunc) (*CommitSummary, error) {
	ctx, span := s.tracer.Start(ctx, "billing.commit",
		trace.WithAttributes(
			attribute.String("session.id", session.ID.String()),
			attribute.String("period", session.Period.String()),
		),
	)
	defer span.End()

	if len(selected) == 0 {
		selected = session.Selected()
	} else if err := session.Select(selected); err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, errs.Invalid("member_ids", "no members selected")
	}

	jobs := make([]commitJob, 0, len(selected))
	for _, id := range selected {
		p, ok := session.Preview(id)
		if !ok {
			return nil, errs.Invalid("member_ids", "member %s is not part of session %s", id, session.ID)
		}
		jobs = append(jobs, commitJob{preview: p})
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].preview.Member.Number < jobs[j].preview.Member.Number
	})

	// Step 1: precondition, before any write.
	if err := s.checkNotInvoiced(ctx, session.Period, jobs); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := session.beginCommit(); err != nil {
		return nil, err
	}

	started := s.now()
	summary := &CommitSummary{
		SessionID: session.ID,
		Period:    session.Period,
		Invoiced:  decimal.Zero,
		StartedAt: started.UTC(),
	}

	// Step 2: bounded worker pool, one aggregation loop.
	results := s.runWorkers(ctx, session, jobs)
	total := len(jobs)
	current := 0
	for r := range results {
		current++
		switch r.Outcome {
		case OutcomeCreated:
			summary.Succeeded = append(summary.Succeeded, r)
			summary.Invoiced = summary.Invoiced.Add(r.Total)
		case OutcomeFailed:
			summary.Failed = append(summary.Failed, r)
			s.log.Error("member invoice failed",
				zap.String("member_id", r.MemberID.String()),
				zap.Int("member_number", r.MemberNumber),
				zap.Error(r.Err),
			)
		case OutcomeSkipped:
			summary.Skipped = append(summary.Skipped, r)
		}
		p := Progress{Current: current, Total: total, Message: fmt.Sprintf("member %04d %s", r.MemberNumber, r.Outcome)}
		session.setProgress(p)
		if progress != nil {
			progress(p)
		}
	}
	summary.Cancelled = ctx.Err() != nil

	byNumber := func(rs []MemberResult) {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].MemberNumber < rs[j].MemberNumber })
	}
	byNumber(summary.Succeeded)
	byNumber(summary.Failed)
	byNumber(summary.Skipped)

	// Step 3: link billed visits once all invoices exist.
	summary.VisitFailure = s.linkVisits(context.WithoutCancel(ctx), summary.Succeeded)

	took := s.now().Sub(started)
	summary.Duration = took
	session.endCommit(summary)
	s.metrics.record(ctx, session.Period.String(), summary, took)

	span.SetAttributes(
		attribute.Int("succeeded", len(summary.Succeeded)),
		attribute.Int("failed", len(summary.Failed)),
		attribute.Int("skipped", len(summary.Skipped)),
		attribute.Bool("cancelled", summary.Cancelled),
	)
	s.log.Info("batch committed",
		zap.String("session_id", session.ID.String()),
		zap.String("period", session.Period.String()),
		zap.Int("succeeded", len(summary.Succeeded)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Duration("took", took),
	)
	return summary, nil
}

func (s *service) checkNotInvoiced(ctx context.Context, period ledger.Period, jobs []commitJob) error {
	ids := make([]uuid.UUID, len(jobs))
	for i, j := range jobs {
		ids[i] = j.preview.Member.ID
	}
	existing, err := s.store.InvoicedMembers(ctx, period, ledger.KindPeriodic, ids)
	if err != nil {
		return errs.Dependency("failed to check existing invoices", err)
	}
	if len(existing) == 0 {
		return nil
	}

	pe := &PreconditionError{Period: period}
	for _, j := range jobs {
		number, ok := existing[j.preview.Member.ID]
		if !ok {
			continue
		}
		pe.Conflicts = append(pe.Conflicts, &errs.ConflictError{
			Resource:   "invoice",
			Key:        fmt.Sprintf("member %04d period %s", j.preview.Member.Number, period),
			Reason:     "already invoiced",
			ExistingID: number,
		})
	}
	return pe
}

// runWorkers fans jobs out to a bounded pool. The returned channel is closed once every
// job has produced exactly one result.
func (s *service) runWorkers(ctx context.Context, session *Session, jobs []commitJob) <-chan MemberResult {
	workers := s.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan commitJob)
	results := make(chan MemberResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				if ctx.Err() != nil {
					results <- skippedResult(job, "batch cancelled")
					continue
				}
				results <- s.commitMember(context.WithoutCancel(ctx), session, job)
			}
		}()
	}

	go func() {
		defer func() {
			close(queue)
			wg.Wait()
			close(results)
		}()
		for i, job := range jobs {
			select {
			case <-ctx.Done():
				for _, rest := range jobs[i:] {
					results <- skippedResult(rest, "batch cancelled")
				}
				return
			case queue <- job:
			}
		}
	}()

	return results
}

func skippedResult(job commitJob, reason string) MemberResult {
	return MemberResult{
		MemberID:     job.preview.Member.ID,
		MemberNumber: job.preview.Member.Number,
		Outcome:      OutcomeSkipped,
		Total:        job.preview.Breakdown.Total,
		Reason:       reason,
	}
}

func (s *service) commitMember(ctx context.Context, session *Session, job commitJob) MemberResult {
	m := job.preview.Member
	b := job.preview.Breakdown

	ctx, span := s.tracer.Start(ctx, "billing.commit_member",
		trace.WithAttributes(
			attribute.String("member.id", m.ID.String()),
			attribute.Int("member.number", m.Number),
		),
	)
	defer span.End()

	result := MemberResult{MemberID: m.ID, MemberNumber: m.Number, Total: b.Total}

	inv := &ledger.Invoice{
		ID:        uuid.New(),
		MemberID:  m.ID,
		Number:    InvoiceNumber(session.Period, m.Number),
		Kind:      ledger.KindPeriodic,
		Period:    session.Period,
		DueDate:   session.Period.DueDate(session.Config.DueDay),
		Status:    ledger.InvoicePending,
		Allocated: decimal.Zero,
		CreatedAt: s.now().UTC(),
		Lines:     make([]ledger.LineItem, len(b.Lines)),
	}
	for i, l := range b.Lines {
		l.ID = uuid.New()
		l.InvoiceID = inv.ID
		l.Position = i + 1
		inv.Lines[i] = l
	}
	ledger.ApplyTotals(inv)

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		span.RecordError(err)
		result.Outcome = OutcomeFailed
		result.Err = errs.Dependency(fmt.Sprintf("failed to create invoice %s", inv.Number), err)
		result.Reason = result.Err.Error()
		return result
	}
	span.AddEvent("invoice.created", trace.WithAttributes(attribute.String("invoice.number", inv.Number)))

	sessionID := session.ID
	result.Credit = s.afterInvoice(ctx, m, inv, &sessionID)
	result.Outcome = OutcomeCreated
	result.InvoiceID = inv.ID
	result.InvoiceNumber = inv.Number
	result.visitIDs = b.VisitIDs
	return result
}

// linkVisits marks every billed visit with its invoice using a bounded set of concurrent writes.
func (s *service) linkVisits(ctx context.Context, created []MemberResult) []VisitLinkFailure {
	type link struct {
		visit, invoice uuid.UUID
	}
	var links []link
	for _, r := range created {
		for _, v := range r.visitIDs {
			links = append(links, link{visit: v, invoice: r.InvoiceID})
		}
	}
	if len(links) == 0 {
		return nil
	}

	at := s.now().UTC()
	sem := make(chan struct{}, visitLinkConcurrency)
	var (
		mu       sync.Mutex
		failures []VisitLinkFailure
		wg       sync.WaitGroup
	)
	for _, l := range links {
		wg.Add(1)
		sem <- struct{}{}
		go func(l link) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := s.store.MarkVisitBilled(ctx, l.visit, l.invoice, at); err != nil {
				s.log.Warn("visit link failed",
					zap.String("visit_id", l.visit.String()),
					zap.String("invoice_id", l.invoice.String()),
					zap.Error(err),
				)
				mu.Lock()
				failures = append(failures, VisitLinkFailure{VisitID: l.visit, InvoiceID: l.invoice, Reason: err.Error()})
				mu.Unlock()
			}
		}(l)
	}
	wg.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].VisitID.String() < failures[j].VisitID.String() })
	return failures
}

