// internal/membership/handler.go
package membership

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"clubledger/internal/errs"
	"clubledger/internal/httpx"
)

type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log.Named("membership.http")}
}

// Routes mounts the membership endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/members", h.handleRegisterMember)
	r.Get("/members", h.handleListMembers)
	r.Get("/members/{id}", h.handleGetMember)
	r.Post("/members/{id}/vessels", h.handleAddVessel)
	r.Get("/members/{id}/vessels", h.handleListVessels)
	r.Post("/members/{id}/visits", h.handleRecordVisit)
	r.Get("/members/{id}/visits", h.handleListVisits)
	return r
}

type registerRequest struct {
	Number     int    `json:"number" validate:"gt=0"`
	NationalID string `json:"national_id" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Status     string `json:"status" validate:"omitempty,oneof=active inactive pending"`
}

func (h *Handler) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}

	member, err := h.service.RegisterMember(r.Context(), MemberParams{
		Number:     req.Number,
		NationalID: req.NationalID,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Status:     Status(req.Status),
	})
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, member)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, members)
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

type vesselRequest struct {
	Name         string          `json:"name" validate:"required"`
	Category     string          `json:"category" validate:"required"`
	LengthFeet   decimal.Decimal `json:"length_feet"`
	LengthMeters decimal.Decimal `json:"length_meters"`
}

func (h *Handler) handleAddVessel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	var req vesselRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}

	vessel, err := h.service.AddVessel(r.Context(), VesselParams{
		MemberID:     id,
		Name:         req.Name,
		Category:     VesselCategory(req.Category),
		LengthFeet:   req.LengthFeet,
		LengthMeters: req.LengthMeters,
	})
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vessel)
}

func (h *Handler) handleListVessels(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	vessels, err := h.service.ListVessels(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vessels)
}

type visitRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Visitors int    `json:"visitors" validate:"gt=0"`
}

func (h *Handler) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	var req visitRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	date, _ := time.Parse(time.DateOnly, req.Date)

	visit, err := h.service.RecordVisit(r.Context(), id, date, req.Visitors)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, visit)
}

func (h *Handler) handleListVisits(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	visits, err := h.service.ListVisits(r.Context(), id, from, to)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, visits)
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
