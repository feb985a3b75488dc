// internal/billing/handler.go
package billing

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"clubledger/internal/errs"
	"clubledger/internal/httpx"
	"clubledger/internal/ledger"
)

type Handler struct {
	service  Service
	sessions *SessionRegistry
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewHandler serves batches and invoices. limiter guards the write-heavy batch endpoints.
func NewHandler(service Service, sessions *SessionRegistry, limiter *rate.Limiter, log *zap.Logger) *Handler {
	return &Handler{service: service, sessions: sessions, limiter: limiter, log: log.Named("billing.http")}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/config", h.handleConfig)
	r.Post("/batches/preview", h.handlePreview)
	r.Get("/batches/{id}", h.handleGetSession)
	r.Put("/batches/{id}/selection", h.handleSelect)
	r.With(httpx.RateLimit(h.limiter)).Post("/batches/{id}/commit", h.handleCommit)
	r.Post("/batches/{id}/retry", h.handleRetry)
	r.Get("/invoices", h.handleListInvoices)
	r.Get("/invoices/{id}", h.handleGetInvoice)
	r.Post("/invoices/overdue", h.handleRefreshOverdue)
	r.With(httpx.RateLimit(h.limiter)).Post("/members/{id}/entry-fee", h.handleEntryFee)
	return r
}

// SessionView is the wire form of a preview session.
type SessionView struct {
	*Session
	Selected []uuid.UUID     `json:"selected"`
	Total    decimal.Decimal `json:"total"`
	Progress Progress        `json:"progress"`
	Summary  *CommitSummary  `json:"summary,omitempty"`
}

func viewOf(s *Session) SessionView {
	return SessionView{Session: s, Selected: s.Selected(), Total: s.Total(), Progress: s.Progress(), Summary: s.Summary()}
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Config(r.Context()))
}

type previewRequest struct {
	Month     int         `json:"month" validate:"min=1,max=12"`
	Year      int         `json:"year" validate:"min=2000,max=2999"`
	MemberIDs []uuid.UUID `json:"member_ids"`
	Today     string      `json:"today" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	period, err := ledger.NewPeriod(req.Month, req.Year)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	var today time.Time
	if req.Today != "" {
		today, _ = time.Parse(time.DateOnly, req.Today)
	}

	session, err := h.service.Preview(r.Context(), period, req.MemberIDs, today)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	h.sessions.Put(session)
	httpx.JSON(w, http.StatusCreated, viewOf(session))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return nil, false
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		httpx.Error(w, h.log, errs.NotFound("session", id.String()))
		return nil, false
	}
	return s, true
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(s))
}

type selectionRequest struct {
	MemberIDs []uuid.UUID `json:"member_ids"`
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	if err := s.Select(req.MemberIDs); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Commit(r.Context(), s, nil, nil)
	if pe, ok := AsPrecondition(err); ok {
		httpx.ErrorWithDetail(w, h.log, err, pe.Conflicts)
		return
	}
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	retry, err := h.service.RetryFailed(r.Context(), s, time.Time{})
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	h.sessions.Put(retry)
	httpx.JSON(w, http.StatusCreated, viewOf(retry))
}

func (h *Handler) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter InvoiceFilter
	if s := q.Get("member_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			httpx.Error(w, h.log, errs.Invalid("member_id", "not a valid id"))
			return
		}
		filter.MemberID = id
	}
	filter.Status = ledger.InvoiceStatus(q.Get("status"))
	if s := q.Get("period"); s != "" {
		t, err := time.Parse("2006-01", s)
		if err != nil {
			httpx.Error(w, h.log, errs.Invalid("period", "expected YYYY-MM"))
			return
		}
		filter.Period = ledger.PeriodOf(t)
	}

	invoices, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) handleRefreshOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.RefreshOverdue(r.Context(), time.Now())
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"overdue": n})
}

type entryFeeRequest struct {
	Total        decimal.Decimal `json:"total"`
	Installments int             `json:"installments" validate:"min=1,max=12"`
	Month        int             `json:"month" validate:"min=1,max=12"`
	Year         int             `json:"year" validate:"min=2000,max=2999"`
}

func (h *Handler) handleEntryFee(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	var req entryFeeRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	period, err := ledger.NewPeriod(req.Month, req.Year)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	invoices, err := h.service.IssueEntryFee(r.Context(), id, req.Total, req.Installments, period)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoices)
}
