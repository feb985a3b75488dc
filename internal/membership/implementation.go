// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/errs"
)

// service implements the Service interface.
type service struct {
	repo    Repository
	costs   VisitCoster
	journal audit.Recorder
	log     *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a new membership service instance.
func NewService(repo Repository, costs VisitCoster, journal audit.Recorder, log *zap.Logger) Service {
	if journal == nil {
		journal = audit.Discard
	}
	return &service{
		repo:    repo,
		costs:   costs,
		journal: journal,
		log:     log.Named("membership"),
		tracer:  otel.Tracer("clubledger/membership"),
		now:     time.Now,
	}
}

// RegisterMember validates and stores a new member.
func (s *service) RegisterMember(ctx context.Context, p MemberParams) (*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.register")
	defer span.End()

	if p.JoinedAt.IsZero() {
		p.JoinedAt = s.now().UTC()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	m, err := NewMember(p)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("member.number", m.Number))

	if err := s.repo.CreateMember(ctx, m); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	event := MemberRegisteredEvent{ID: m.ID, Number: m.Number, Email: m.Email}
	if err := s.journal.Record(ctx, m.ID, audit.AggregateMember, "MemberRegistered", event); err != nil {
		s.log.Warn("journal append failed", zap.String("member_id", m.ID.String()), zap.Error(err))
	}
	return m, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (s *service) ListMembers(ctx context.Context, status Status) ([]Member, error) {
	members, err := s.repo.ListMembers(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// AddVessel registers a vessel for an existing member.
func (s *service) AddVessel(ctx context.Context, p VesselParams) (*Vessel, error) {
	v, err := NewVessel(p)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetMember(ctx, v.MemberID); err != nil {
		return nil, fmt.Errorf("failed to get vessel owner: %w", err)
	}
	if err := s.repo.CreateVessel(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create vessel: %w", err)
	}
	return v, nil
}

func (s *service) ListVessels(ctx context.Context, memberID uuid.UUID) ([]Vessel, error) {
	vessels, err := s.repo.ListVessels(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vessels: %w", err)
	}
	return vessels, nil
}

// RecordVisit stores a pending visit priced at the visit cost in force today.
func (s *service) RecordVisit(ctx context.Context, memberID uuid.UUID, date time.Time, visitors int) (*Visit, error) {
	ctx, span := s.tracer.Start(ctx, "membership.record_visit",
		trace.WithAttributes(
			attribute.String("member.id", memberID.String()),
			attribute.Int("visitors", visitors),
		),
	)
	defer span.End()

	m, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if m.Status != StatusActive {
		return nil, errs.Invalid("member_id", "member %d is %s", m.Number, m.Status)
	}

	v, err := NewVisit(VisitParams{
		MemberID:     memberID,
		Date:         date,
		VisitorCount: visitors,
		UnitCost:     s.costs.VisitCost(ctx),
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateVisit(ctx, v); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	event := VisitRecordedEvent{ID: v.ID, MemberID: memberID, Visitors: visitors, UnitCost: v.UnitCost}
	if err := s.journal.Record(ctx, memberID, audit.AggregateMember, "VisitRecorded", event); err != nil {
		s.log.Warn("journal append failed", zap.String("member_id", memberID.String()), zap.Error(err))
	}
	return v, nil
}

func (s *service) ListVisits(ctx context.Context, memberID uuid.UUID, from, to time.Time) ([]Visit, error) {
	visits, err := s.repo.ListVisits(ctx, memberID, from, to, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}
