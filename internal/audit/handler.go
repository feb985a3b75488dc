// internal/audit/handler.go
package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clubledger/internal/errs"
	"clubledger/internal/httpx"
)

// Handler exposes the journal read side.
type Handler struct {
	journal *Journal
	log     *zap.Logger
}

func NewHandler(journal *Journal, log *zap.Logger) *Handler {
	return &Handler{journal: journal, log: log.Named("audit.http")}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/journal", h.handleTail)
	r.Get("/journal/{id}", h.handleHistory)
	return r
}

func (h *Handler) handleTail(w http.ResponseWriter, r *http.Request) {
	after, err := intQuery(r, "after")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	events, err := h.journal.Tail(r.Context(), int64(after), limit)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	if events == nil {
		events = []Event{}
	}
	httpx.JSON(w, http.StatusOK, events)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	events, err := h.journal.History(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	if events == nil {
		events = []Event{}
	}
	httpx.JSON(w, http.StatusOK, events)
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.Invalid(name, "must be a non-negative integer")
	}
	return n, nil
}
