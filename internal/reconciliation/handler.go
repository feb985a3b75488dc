// internal/reconciliation/handler.go
package reconciliation

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"clubledger/internal/errs"
	"clubledger/internal/httpx"
	"clubledger/internal/ledger"
	"clubledger/internal/payments"
)

// MaxStatementBytes bounds an uploaded statement.
const MaxStatementBytes = 8 << 20

type Handler struct {
	service Service
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewHandler(service Service, limiter *rate.Limiter, log *zap.Logger) *Handler {
	return &Handler{service: service, limiter: limiter, log: log.Named("reconciliation.http")}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(httpx.RateLimit(h.limiter)).Post("/statements", h.handleImport)
	r.Post("/transactions/match", h.handleMatch)
	r.Get("/transactions", h.handleList)
	r.Get("/transactions/{id}", h.handleGet)
	r.Post("/transactions/{id}/confirm", h.handleConfirm)
	return r
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ImportStatement(r.Context(), http.MaxBytesReader(w, r.Body, MaxStatementBytes))
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, report)
}

func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	report, err := h.service.MatchPending(r.Context(), from, to)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	txs, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")), from, to)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	tx, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

type confirmRequest struct {
	MemberID *uuid.UUID `json:"member_id"`
	Method   string     `json:"method" validate:"omitempty,oneof=transfer cash check card deposit"`
	Override bool       `json:"override"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	var req confirmRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}

	tx, err := h.service.Confirm(r.Context(), ConfirmRequest{
		TransactionID: id,
		MemberID:      req.MemberID,
		Method:        ledger.PaymentMethod(req.Method),
		Override:      req.Override,
	})
	var warning *payments.WarningError
	if errors.As(err, &warning) {
		httpx.JSON(w, http.StatusConflict, httpx.ErrorBody{Error: err.Error(), Kind: "override_required", Detail: warning.Verdict})
		return
	}
	if errors.Is(err, errs.ErrConflict) && tx != nil {
		httpx.ErrorWithDetail(w, h.log, err, tx)
		return
	}
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

func dateRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return from, to, errs.Invalid("from", "expected YYYY-MM-DD")
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return from, to, errs.Invalid("to", "expected YYYY-MM-DD")
		}
		to = t
	}
	return from, to, nil
}
