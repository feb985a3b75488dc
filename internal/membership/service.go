// internal/membership/service.go
package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the interface for the membership service.
type Service interface {
	RegisterMember(ctx context.Context, p MemberParams) (*Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	ListMembers(ctx context.Context, status Status) ([]Member, error)
	AddVessel(ctx context.Context, p VesselParams) (*Vessel, error)
	ListVessels(ctx context.Context, memberID uuid.UUID) ([]Vessel, error)
	RecordVisit(ctx context.Context, memberID uuid.UUID, date time.Time, visitors int) (*Visit, error)
	ListVisits(ctx context.Context, memberID uuid.UUID, from, to time.Time) ([]Visit, error)
}

// Repository is the storage collaborator for members, vessels and visits.
// A zero status or time bound means "any".
type Repository interface {
	CreateMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	ListMembers(ctx context.Context, status Status) ([]Member, error)
	CreateVessel(ctx context.Context, v *Vessel) error
	ListVessels(ctx context.Context, memberID uuid.UUID) ([]Vessel, error)
	CreateVisit(ctx context.Context, v *Visit) error
	ListVisits(ctx context.Context, memberID uuid.UUID, from, to time.Time, status VisitStatus) ([]Visit, error)
	MarkVisitBilled(ctx context.Context, visitID, invoiceID uuid.UUID, at time.Time) error
}

// VisitCoster supplies the per-visitor cost in force when a visit is recorded.
type VisitCoster interface {
	VisitCost(ctx context.Context) decimal.Decimal
}
