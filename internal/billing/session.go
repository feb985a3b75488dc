// internal/billing/session.go
package billing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/errs"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

// MemberPreview is one member's frozen breakdown inside a session.
type MemberPreview struct {
	Member          membership.Member `json:"member"`
	Breakdown       *Breakdown        `json:"breakdown"`
	ExistingInvoice string            `json:"existing_invoice,omitempty"`
}

// SkippedMember was requested but cannot be billed.
type SkippedMember struct {
	MemberID uuid.UUID `json:"member_id"`
	Number   int       `json:"number,omitempty"`
	Reason   string    `json:"reason"`
}

// Progress is a monotonic (current, total, message) triple.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// ProgressFunc receives progress updates from a single goroutine.
type ProgressFunc func(Progress)

// Session holds everything an operator approved for one batch: the period, the day the
// preview was computed, the frozen breakdowns, the selection and the commit outcome.
type Session struct {
	ID        uuid.UUID       `json:"id"`
	Period    ledger.Period   `json:"period"`
	Today     time.Time       `json:"today"`
	CreatedAt time.Time       `json:"created_at"`
	Config    Config          `json:"config"`
	Previews  []MemberPreview `json:"previews"`
	Skipped   []SkippedMember `json:"skipped,omitempty"`

	mu         sync.Mutex
	index      map[uuid.UUID]int
	selected   map[uuid.UUID]bool
	progress   Progress
	summary    *CommitSummary
	committing bool
}

func newSession(period ledger.Period, today time.Time, cfg Config, previews []MemberPreview, skipped []SkippedMember) *Session {
	sort.SliceStable(previews, func(i, j int) bool {
		return previews[i].Member.Number < previews[j].Member.Number
	})
	s := &Session{
		ID:        uuid.New(),
		Period:    period,
		Today:     ledger.Day(today),
		CreatedAt: time.Now().UTC(),
		Config:    cfg,
		Previews:  previews,
		Skipped:   skipped,
		index:     make(map[uuid.UUID]int, len(previews)),
		selected:  make(map[uuid.UUID]bool, len(previews)),
	}
	for i, p := range previews {
		s.index[p.Member.ID] = i
		if p.ExistingInvoice == "" {
			s.selected[p.Member.ID] = true
		}
	}
	return s
}

// Preview returns the frozen preview of a member.
func (s *Session) Preview(memberID uuid.UUID) (MemberPreview, bool) {
	i, ok := s.index[memberID]
	if !ok {
		return MemberPreview{}, false
	}
	return s.Previews[i], true
}

// Select replaces the selection. Every id must belong to the session.
func (s *Session) Select(ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := s.index[id]; !ok {
			return errs.Invalid("member_ids", "member %s is not part of session %s", id, s.ID)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		s.selected[id] = true
	}
	return nil
}

// Selected returns the selected member ids in member-number order.
func (s *Session) Selected() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(s.selected))
	for _, p := range s.Previews {
		if s.selected[p.Member.ID] {
			out = append(out, p.Member.ID)
		}
	}
	return out
}

// Total is the sum of the selected breakdowns.
func (s *Session) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range s.Selected() {
		p, _ := s.Preview(id)
		total = total.Add(p.Breakdown.Total)
	}
	return total
}

// Progress returns the last reported progress.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Summary returns the outcome of the last commit, nil before any commit.
func (s *Session) Summary() *CommitSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Session) beginCommit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return &errs.ConflictError{Resource: "session", Key: s.ID.String(), Reason: "commit already in progress"}
	}
	s.committing = true
	s.progress = Progress{}
	return nil
}

func (s *Session) setProgress(p Progress) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

func (s *Session) endCommit(summary *CommitSummary) {
	s.mu.Lock()
	s.summary = summary
	s.committing = false
	s.mu.Unlock()
}

// Outcome of one member inside a commit.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// MemberResult reports what happened to one selected member.
type MemberResult struct {
	MemberID      uuid.UUID                 `json:"member_id"`
	MemberNumber  int                       `json:"member_number"`
	Outcome       Outcome                   `json:"outcome"`
	InvoiceID     uuid.UUID                 `json:"invoice_id,omitempty"`
	InvoiceNumber string                    `json:"invoice_number,omitempty"`
	Total         decimal.Decimal           `json:"total"`
	Credit        *ledger.CreditApplication `json:"credit,omitempty"`
	Reason        string                    `json:"reason,omitempty"`
	Err           error                     `json:"-"`

	visitIDs []uuid.UUID
}

// VisitLinkFailure is a visit that could not be marked billed after its invoice was written.
type VisitLinkFailure struct {
	VisitID   uuid.UUID `json:"visit_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
	Reason    string    `json:"reason"`
}

// CommitSummary is the structured outcome of a batch commit.
type CommitSummary struct {
	SessionID    uuid.UUID          `json:"session_id"`
	Period       ledger.Period      `json:"period"`
	Succeeded    []MemberResult     `json:"succeeded"`
	Failed       []MemberResult     `json:"failed"`
	Skipped      []MemberResult     `json:"skipped"`
	VisitFailure []VisitLinkFailure `json:"visit_failures,omitempty"`
	Invoiced     decimal.Decimal    `json:"invoiced"`
	Cancelled    bool               `json:"cancelled"`
	StartedAt    time.Time          `json:"started_at"`
	Duration     time.Duration      `json:"duration"`
}

// RetryableMembers lists the members that failed or were skipped.
func (c *CommitSummary) RetryableMembers() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(c.Failed)+len(c.Skipped))
	for _, r := range c.Failed {
		out = append(out, r.MemberID)
	}
	for _, r := range c.Skipped {
		out = append(out, r.MemberID)
	}
	return out
}

// PreconditionError rejects a commit before any write because some selected members
// already hold an invoice for the period.
type PreconditionError struct {
	Period    ledger.Period
	Conflicts []*errs.ConflictError
}

func (e *PreconditionError) Error() string {
	keys := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		keys = append(keys, c.Key)
	}
	return fmt.Sprintf("period %s already invoiced for %d member(s): %s", e.Period, len(e.Conflicts), strings.Join(keys, ", "))
}

func (e *PreconditionError) Is(target error) bool { return target == errs.ErrConflict }

func (e *PreconditionError) Unwrap() []error {
	out := make([]error, len(e.Conflicts))
	for i, c := range e.Conflicts {
		out[i] = c
	}
	return out
}

// AsPrecondition extracts a PreconditionError from err.
func AsPrecondition(err error) (*PreconditionError, bool) {
	var pe *PreconditionError
	ok := errors.As(err, &pe)
	return pe, ok
}
