// internal/membership/domain.go
package membership

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/errs"
)

var ErrVisitAlreadyBilled = errors.New("visit already billed")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Status is the membership lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

// Member represents a club member.
type Member struct {
	ID         uuid.UUID `json:"id"`
	Number     int       `json:"number"`
	NationalID string    `json:"national_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Status     Status    `json:"status"`
	JoinedAt   time.Time `json:"joined_at"`
}

// MemberParams are the required fields of a Member.
type MemberParams struct {
	ID         uuid.UUID `json:"id"`
	Number     int       `json:"number" validate:"gt=0,lt=10000"`
	NationalID string    `json:"national_id" validate:"required"`
	Email      string    `json:"email" validate:"required,email"`
	FirstName  string    `json:"first_name" validate:"required"`
	LastName   string    `json:"last_name" validate:"required"`
	Status     Status    `json:"status" validate:"required,oneof=active inactive pending"`
	JoinedAt   time.Time `json:"joined_at" validate:"required"`
}

// NewMember validates params and builds a Member.
func NewMember(p MemberParams) (*Member, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if err := validate.Struct(p); err != nil {
		return nil, validationError(err)
	}
	nid := NormalizeNationalID(p.NationalID)
	if nid == "" {
		return nil, errs.Invalid("national_id", "no digits in %q", p.NationalID)
	}
	return &Member{
		ID:         p.ID,
		Number:     p.Number,
		NationalID: nid,
		Email:      p.Email,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Status:     p.Status,
		JoinedAt:   p.JoinedAt,
	}, nil
}

// FullName is "first last".
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Surname is the first token of LastName (paternal surname).
func (m Member) Surname() string {
	fields := strings.Fields(m.LastName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// GivenNames are the tokens of FirstName.
func (m Member) GivenNames() []string {
	return strings.Fields(m.FirstName)
}

// NormalizeNationalID drops separators so "12.345.678-k" and "12345678K" compare equal.
func NormalizeNationalID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= '0' && r <= '9') || r == 'K' {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}

// VesselCategory drives the mooring pricing tier.
type VesselCategory string

const (
	CategoryCruiser   VesselCategory = "cruiser"
	CategorySailboat  VesselCategory = "sailboat"
	CategoryMotorboat VesselCategory = "motorboat"
	CategoryDinghy    VesselCategory = "dinghy"
	CategoryOptimist  VesselCategory = "optimist"
	CategoryJetSki    VesselCategory = "jet_ski"
	CategoryATV       VesselCategory = "atv"
	CategoryWindsurf  VesselCategory = "windsurf"
	CategoryKayak     VesselCategory = "kayak"
	CategoryCanoe     VesselCategory = "canoe"
)

var feetPerMeter = decimal.RequireFromString("3.28084")

// Vessel belongs to exactly one member.
type Vessel struct {
	ID           uuid.UUID       `json:"id"`
	MemberID     uuid.UUID       `json:"member_id"`
	Name         string          `json:"name"`
	Category     VesselCategory  `json:"category"`
	LengthFeet   decimal.Decimal `json:"length_feet"`
	LengthMeters decimal.Decimal `json:"length_meters"`
}

// VesselParams are the required fields of a Vessel.
type VesselParams struct {
	ID           uuid.UUID       `json:"id"`
	MemberID     uuid.UUID       `json:"member_id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Category     VesselCategory  `json:"category" validate:"required"`
	LengthFeet   decimal.Decimal `json:"length_feet" validate:"-"`
	LengthMeters decimal.Decimal `json:"length_meters" validate:"-"`
}

// NewVessel validates params and builds a Vessel.
func NewVessel(p VesselParams) (*Vessel, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := validate.Struct(p); err != nil {
		return nil, validationError(err)
	}
	if p.LengthFeet.IsNegative() || p.LengthMeters.IsNegative() {
		return nil, errs.Invalid("length", "must not be negative")
	}
	return &Vessel{
		ID:           p.ID,
		MemberID:     p.MemberID,
		Name:         strings.TrimSpace(p.Name),
		Category:     VesselCategory(strings.ToLower(strings.TrimSpace(string(p.Category)))),
		LengthFeet:   p.LengthFeet,
		LengthMeters: p.LengthMeters,
	}, nil
}

// Feet returns the length in feet, converting from meters when feet is unset.
func (v Vessel) Feet() decimal.Decimal {
	if v.LengthFeet.IsPositive() {
		return v.LengthFeet
	}
	return v.LengthMeters.Mul(feetPerMeter)
}

// VisitStatus is pending until the visit lands on an invoice.
type VisitStatus string

const (
	VisitPending VisitStatus = "pending"
	VisitBilled  VisitStatus = "billed"
)

// Visit is a guest visit charged to a member.
type Visit struct {
	ID           uuid.UUID       `json:"id"`
	MemberID     uuid.UUID       `json:"member_id"`
	Date         time.Time       `json:"date"`
	VisitorCount int             `json:"visitor_count"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Total        decimal.Decimal `json:"total"`
	Status       VisitStatus     `json:"status"`
	InvoiceID    *uuid.UUID      `json:"invoice_id,omitempty"`
	BilledAt     *time.Time      `json:"billed_at,omitempty"`
}

// VisitParams are the required fields of a Visit.
type VisitParams struct {
	ID           uuid.UUID       `validate:"-"`
	MemberID     uuid.UUID       `validate:"required"`
	Date         time.Time       `validate:"required"`
	VisitorCount int             `validate:"gt=0"`
	UnitCost     decimal.Decimal `validate:"-"`
}

// NewVisit freezes the unit cost and computes the total.
func NewVisit(p VisitParams) (*Visit, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := validate.Struct(p); err != nil {
		return nil, validationError(err)
	}
	if p.UnitCost.IsNegative() {
		return nil, errs.Invalid("unit_cost", "must not be negative")
	}
	return &Visit{
		ID:           p.ID,
		MemberID:     p.MemberID,
		Date:         p.Date,
		VisitorCount: p.VisitorCount,
		UnitCost:     p.UnitCost,
		Total:        p.UnitCost.Mul(decimal.NewFromInt(int64(p.VisitorCount))),
		Status:       VisitPending,
	}, nil
}

// Bill links the visit to an invoice. It succeeds only once.
func (v *Visit) Bill(invoiceID uuid.UUID, at time.Time) error {
	if v.Status == VisitBilled {
		return fmt.Errorf("visit %s: %w", v.ID, ErrVisitAlreadyBilled)
	}
	v.Status = VisitBilled
	v.InvoiceID = &invoiceID
	v.BilledAt = &at
	return nil
}

// MemberRegisteredEvent is journaled when a member joins.
type MemberRegisteredEvent struct {
	ID     uuid.UUID `json:"id"`
	Number int       `json:"number"`
	Email  string    `json:"email"`
}

// VisitRecordedEvent is journaled when a visit is recorded.
type VisitRecordedEvent struct {
	ID       uuid.UUID       `json:"id"`
	MemberID uuid.UUID       `json:"member_id"`
	Visitors int             `json:"visitors"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errs.Invalid(strings.ToLower(fe.Field()), "failed %q rule", fe.Tag())
	}
	return errs.Invalid("", "%v", err)
}
