// internal/postgres/members.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clubledger/internal/errs"
	"clubledger/internal/membership"
)

func (s *Store) CreateMember(ctx context.Context, m *membership.Member) error {
	ctx, span := s.tracer.Start(ctx, "postgres.create_member",
		trace.WithAttributes(attribute.Int("member.number", m.Number)))
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, number, national_id, email, first_name, last_name, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.Number, m.NationalID, m.Email, m.FirstName, m.LastName, m.Status, m.JoinedAt)
	if pqErr, ok := isUniqueViolation(err); ok {
		conflict := &errs.ConflictError{Resource: "member", Key: fmt.Sprintf("number %d", m.Number), Reason: "number taken"}
		if pqErr.Constraint == "members_national_id_key" {
			conflict.Key, conflict.Reason = "national_id "+m.NationalID, "already registered"
			_ = s.db.QueryRowContext(ctx, `SELECT id FROM members WHERE national_id = $1`, m.NationalID).Scan(&conflict.ExistingID)
		} else {
			_ = s.db.QueryRowContext(ctx, `SELECT id FROM members WHERE number = $1`, m.Number).Scan(&conflict.ExistingID)
		}
		return conflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

const memberColumns = `id, number, national_id, email, first_name, last_name, status, joined_at`

func scanMember(row scanner) (membership.Member, error) {
	var m membership.Member
	err := row.Scan(&m.ID, &m.Number, &m.NationalID, &m.Email, &m.FirstName, &m.LastName, &m.Status, &m.JoinedAt)
	return m, err
}

func (s *Store) GetMember(ctx context.Context, id uuid.UUID) (*membership.Member, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.get_member",
		trace.WithAttributes(attribute.String("member.id", id.String())))
	defer span.End()

	m, err := scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("member", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

func (s *Store) ListMembers(ctx context.Context, status membership.Status) ([]membership.Member, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.list_members",
		trace.WithAttributes(attribute.String("member.status", string(status))))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE ($1 = '' OR status = $1)
		ORDER BY number
	`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []membership.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateVessel(ctx context.Context, v *membership.Vessel) error {
	ctx, span := s.tracer.Start(ctx, "postgres.create_vessel",
		trace.WithAttributes(attribute.String("member.id", v.MemberID.String())))
	defer span.End()

	if err := s.memberExists(ctx, v.MemberID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vessels (id, member_id, name, category, length_feet, length_meters)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, v.ID, v.MemberID, v.Name, v.Category, v.LengthFeet, v.LengthMeters)
	if err != nil {
		return fmt.Errorf("failed to insert vessel: %w", err)
	}
	return nil
}

func (s *Store) ListVessels(ctx context.Context, memberID uuid.UUID) ([]membership.Vessel, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.list_vessels",
		trace.WithAttributes(attribute.String("member.id", memberID.String())))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, name, category, length_feet, length_meters
		FROM vessels
		WHERE member_id = $1
		ORDER BY name, id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vessels: %w", err)
	}
	defer rows.Close()

	var out []membership.Vessel
	for rows.Next() {
		var v membership.Vessel
		if err := rows.Scan(&v.ID, &v.MemberID, &v.Name, &v.Category, &v.LengthFeet, &v.LengthMeters); err != nil {
			return nil, fmt.Errorf("failed to scan vessel: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) CreateVisit(ctx context.Context, v *membership.Visit) error {
	ctx, span := s.tracer.Start(ctx, "postgres.create_visit",
		trace.WithAttributes(attribute.String("member.id", v.MemberID.String())))
	defer span.End()

	if err := s.memberExists(ctx, v.MemberID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (id, member_id, visit_date, visitor_count, unit_cost, total, status, invoice_id, billed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, v.ID, v.MemberID, v.Date, v.VisitorCount, v.UnitCost, v.Total, v.Status, v.InvoiceID, v.BilledAt)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// ListVisits filters by an inclusive date range (zero bounds are open) and status.
func (s *Store) ListVisits(ctx context.Context, memberID uuid.UUID, from, to time.Time, status membership.VisitStatus) ([]membership.Visit, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.list_visits",
		trace.WithAttributes(attribute.String("member.id", memberID.String())))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, visit_date, visitor_count, unit_cost, total, status, invoice_id, billed_at
		FROM visits
		WHERE member_id = $1
		  AND ($2::date IS NULL OR visit_date >= $2::date)
		  AND ($3::date IS NULL OR visit_date <= $3::date)
		  AND ($4 = '' OR status = $4)
		ORDER BY visit_date, id
	`, memberID, nullTime(from), nullTime(to), status)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	var out []membership.Visit
	for rows.Next() {
		var (
			v        membership.Visit
			invoice  uuid.NullUUID
			billedAt sql.NullTime
		)
		if err := rows.Scan(&v.ID, &v.MemberID, &v.Date, &v.VisitorCount, &v.UnitCost, &v.Total, &v.Status, &invoice, &billedAt); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		v.InvoiceID = uuidPtr(invoice)
		v.BilledAt = timePtr(billedAt)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) MarkVisitBilled(ctx context.Context, visitID, invoiceID uuid.UUID, at time.Time) error {
	ctx, span := s.tracer.Start(ctx, "postgres.mark_visit_billed",
		trace.WithAttributes(
			attribute.String("visit.id", visitID.String()),
			attribute.String("invoice.id", invoiceID.String()),
		))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE visits SET status = 'billed', invoice_id = $2, billed_at = $3
		WHERE id = $1 AND status = 'pending'
	`, visitID, invoiceID, at)
	if err != nil {
		return fmt.Errorf("failed to mark visit billed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM visits WHERE id = $1)`, visitID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check visit: %w", err)
	}
	if !exists {
		return errs.NotFound("visit", visitID.String())
	}
	return fmt.Errorf("visit %s: %w", visitID, membership.ErrVisitAlreadyBilled)
}

func (s *Store) memberExists(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check member: %w", err)
	}
	if !exists {
		return errs.NotFound("member", id.String())
	}
	return nil
}
