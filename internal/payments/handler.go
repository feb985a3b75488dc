// internal/payments/handler.go
package payments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"clubledger/internal/httpx"
	"clubledger/internal/ledger"
)

// CreditService exposes member credit to the HTTP layer.
type CreditService interface {
	Balance(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error)
	Settler
}

type Handler struct {
	recorder *Recorder
	credit   CreditService
	log      *zap.Logger
}

func NewHandler(recorder *Recorder, credit CreditService, log *zap.Logger) *Handler {
	return &Handler{recorder: recorder, credit: credit, log: log.Named("payments.http")}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/payments", h.handleRecord)
	r.Post("/payments/check", h.handleCheck)
	r.Get("/members/{id}/payments", h.handleList)
	r.Get("/members/{id}/credit", h.handleCredit)
	r.Post("/members/{id}/settle", h.handleSettle)
	return r
}

type paymentRequest struct {
	MemberID  uuid.UUID       `json:"member_id" validate:"required"`
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required"`
	Reference string          `json:"reference"`
	Override  bool            `json:"override"`
}

func (req paymentRequest) params() ledger.PaymentParams {
	date, _ := time.Parse(time.DateOnly, req.Date)
	return ledger.PaymentParams{
		MemberID:  req.MemberID,
		Date:      date,
		Amount:    req.Amount,
		Method:    ledger.PaymentMethod(req.Method),
		Reference: req.Reference,
	}
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}

	receipt, err := h.recorder.Record(r.Context(), req.params(), req.Override)
	var warning *WarningError
	if errors.As(err, &warning) {
		httpx.JSON(w, http.StatusConflict, httpx.ErrorBody{Error: err.Error(), Kind: "override_required", Detail: warning.Verdict})
		return
	}
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	verdict, err := h.recorder.Check(r.Context(), req.params())
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, verdict)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	payments, err := h.recorder.List(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) handleCredit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	balance, err := h.credit.Balance(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"member_id": id, "credit": balance})
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	apps, err := h.credit.Settle(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, apps)
}
