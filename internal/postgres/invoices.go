// internal/postgres/invoices.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clubledger/internal/billing"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
)

const invoiceColumns = `
	i.id, i.member_id, i.number, i.kind, i.period_year, i.period_month, i.installment, i.due_date,
	i.status, i.dues, i.mooring, i.visits, i.other, i.interest, i.total,
	COALESCE((SELECT SUM(l.amount) FROM payment_links l WHERE l.invoice_id = i.id), 0),
	i.paid_at, i.created_at`

type scanner interface{ Scan(...any) error }

func scanInvoice(row scanner) (ledger.Invoice, error) {
	var (
		inv    ledger.Invoice
		month  int
		paidAt sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.MemberID, &inv.Number, &inv.Kind, &inv.Period.Year, &month, &inv.Installment, &inv.DueDate,
		&inv.Status, &inv.Dues, &inv.Mooring, &inv.Visits, &inv.Other, &inv.Interest, &inv.Total,
		&inv.Allocated, &paidAt, &inv.CreatedAt)
	inv.Period.Month = time.Month(month)
	inv.PaidAt = timePtr(paidAt)
	return inv, err
}

func (s *Store) CreateInvoice(ctx context.Context, inv *ledger.Invoice) error {
	ctx, span := s.tracer.Start(ctx, "postgres.create_invoice",
		trace.WithAttributes(
			attribute.String("invoice.number", inv.Number),
			attribute.String("member.id", inv.MemberID.String()),
		))
	defer span.End()

	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, member_id, number, kind, period_year, period_month, installment, due_date,
			status, dues, mooring, visits, other, interest, total, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, inv.ID, inv.MemberID, inv.Number, inv.Kind, inv.Period.Year, int(inv.Period.Month), inv.Installment, inv.DueDate,
		inv.Status, inv.Dues, inv.Mooring, inv.Visits, inv.Other, inv.Interest, inv.Total, inv.PaidAt, inv.CreatedAt)
	if pqErr, ok := isUniqueViolation(err); ok {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return s.invoiceConflict(ctx, inv, pqErr)
	}
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invoice_lines (id, invoice_id, position, category, description, quantity, unit_price,
			subtotal, vessel_id, visit_id, source_invoice_id, days_late)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range inv.Lines {
		l := &inv.Lines[i]
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.InvoiceID = inv.ID
		var unitPrice decimal.NullDecimal
		if l.UnitPrice != nil {
			unitPrice = decimal.NewNullDecimal(*l.UnitPrice)
		}
		if _, err := stmt.ExecContext(ctx, l.ID, inv.ID, l.Position, l.Category, l.Description, l.Quantity, unitPrice,
			l.Subtotal, l.VesselID, l.VisitID, l.SourceInvoiceID, l.DaysLate); err != nil {
			return fmt.Errorf("failed to insert invoice line %d: %w", l.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) invoiceConflict(ctx context.Context, inv *ledger.Invoice, pqErr *pq.Error) error {
	conflict := &errs.ConflictError{Resource: "invoice"}
	if pqErr.Constraint == "invoices_number_key" {
		conflict.Key, conflict.Reason, conflict.ExistingID = "number "+inv.Number, "number taken", inv.Number
		return conflict
	}
	conflict.Key = fmt.Sprintf("member %s period %s installment %d", inv.MemberID, inv.Period, inv.Installment)
	conflict.Reason = "already invoiced"
	_ = s.db.QueryRowContext(ctx, `
		SELECT number FROM invoices
		WHERE member_id = $1 AND kind = $2 AND period_year = $3 AND period_month = $4 AND installment = $5
	`, inv.MemberID, inv.Kind, inv.Period.Year, int(inv.Period.Month), inv.Installment).Scan(&conflict.ExistingID)
	return conflict
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.get_invoice",
		trace.WithAttributes(attribute.String("invoice.id", id.String())))
	defer span.End()

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("invoice", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	invoices := []ledger.Invoice{inv}
	if err := s.loadLines(ctx, invoices); err != nil {
		return nil, err
	}
	return &invoices[0], nil
}

func (s *Store) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]ledger.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.list_invoices")
	defer span.End()

	var member uuid.NullUUID
	if filter.MemberID != uuid.Nil {
		member = uuid.NullUUID{UUID: filter.MemberID, Valid: true}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		WHERE ($1::uuid IS NULL OR i.member_id = $1::uuid)
		  AND ($2 = '' OR i.status = $2)
		  AND ($3 = 0 OR (i.period_year = $3 AND i.period_month = $4))
		ORDER BY i.number
	`, member, filter.Status, filter.Period.Year, int(filter.Period.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	invoices, err := collectInvoices(rows)
	if err != nil {
		return nil, err
	}
	if err := s.loadLines(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListOpenInvoices returns pending and overdue invoices due strictly before dueBefore, oldest first.
func (s *Store) ListOpenInvoices(ctx context.Context, memberID uuid.UUID, dueBefore time.Time) ([]ledger.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.list_open_invoices",
		trace.WithAttributes(attribute.String("member.id", memberID.String())))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		WHERE i.member_id = $1 AND i.status IN ('pending', 'overdue') AND i.due_date < $2
		ORDER BY i.due_date, i.number
	`, memberID, dueBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}
	return collectInvoices(rows)
}

func (s *Store) InvoicedMembers(ctx context.Context, period ledger.Period, kind ledger.InvoiceKind, memberIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.invoiced_members",
		trace.WithAttributes(
			attribute.String("period", period.String()),
			attribute.Int("member.count", len(memberIDs)),
		))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, number
		FROM invoices
		WHERE period_year = $1 AND period_month = $2 AND kind = $3 AND installment = 0
		  AND member_id = ANY($4::uuid[])
	`, period.Year, int(period.Month), kind, pq.Array(uuidStrings(memberIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to query invoiced members: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID]string{}
	for rows.Next() {
		var (
			id     uuid.UUID
			number string
		)
		if err := rows.Scan(&id, &number); err != nil {
			return nil, fmt.Errorf("failed to scan invoiced member: %w", err)
		}
		out[id] = number
	}
	return out, rows.Err()
}

func (s *Store) MarkOverdue(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.mark_overdue",
		trace.WithAttributes(attribute.String("cutoff", cutoff.Format(time.DateOnly))))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET status = 'overdue'
		WHERE status = 'pending' AND due_date < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue: %w", err)
	}
	span.SetAttributes(attribute.Int64("invoice.count", n))
	return int(n), nil
}

func collectInvoices(rows *sql.Rows) ([]ledger.Invoice, error) {
	defer rows.Close()
	var out []ledger.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) loadLines(ctx context.Context, invoices []ledger.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]int, len(invoices))
	ids := make([]uuid.UUID, len(invoices))
	for i, inv := range invoices {
		index[inv.ID] = i
		ids[i] = inv.ID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, position, category, description, quantity, unit_price,
			subtotal, vessel_id, visit_id, source_invoice_id, days_late
		FROM invoice_lines
		WHERE invoice_id = ANY($1::uuid[])
		ORDER BY invoice_id, position
	`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to load invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l                       ledger.LineItem
			unitPrice               decimal.NullDecimal
			vessel, visit, sourceID uuid.NullUUID
		)
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Position, &l.Category, &l.Description, &l.Quantity, &unitPrice,
			&l.Subtotal, &vessel, &visit, &sourceID, &l.DaysLate); err != nil {
			return fmt.Errorf("failed to scan invoice line: %w", err)
		}
		if unitPrice.Valid {
			p := unitPrice.Decimal
			l.UnitPrice = &p
		}
		l.VesselID, l.VisitID, l.SourceInvoiceID = uuidPtr(vessel), uuidPtr(visit), uuidPtr(sourceID)
		inv := &invoices[index[l.InvoiceID]]
		inv.Lines = append(inv.Lines, l)
	}
	return rows.Err()
}

// Billing configuration

func (s *Store) BillingConfig(ctx context.Context) (*billing.StoredConfig, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.billing_config")
	defer span.End()

	var (
		baseDue, mooring, visit, rate, storage, smallCraft, smallMotor, smallMotorMax decimal.NullDecimal
		grace, dueDay                                                                 sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT base_due, mooring_per_foot, visit_cost, grace_days, monthly_interest_rate, due_day,
			storage_fee, small_craft_fee, small_motorboat_fee, small_motorboat_max_feet
		FROM billing_config
		WHERE id
	`).Scan(&baseDue, &mooring, &visit, &grace, &rate, &dueDay, &storage, &smallCraft, &smallMotor, &smallMotorMax)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read billing config: %w", err)
	}
	return &billing.StoredConfig{
		BaseDue:               decimalPtr(baseDue),
		MooringPerFoot:        decimalPtr(mooring),
		VisitCost:             decimalPtr(visit),
		GraceDays:             intPtr(grace),
		MonthlyInterestRate:   decimalPtr(rate),
		DueDay:                intPtr(dueDay),
		StorageFee:            decimalPtr(storage),
		SmallCraftFee:         decimalPtr(smallCraft),
		SmallMotorboatFee:     decimalPtr(smallMotor),
		SmallMotorboatMaxFeet: decimalPtr(smallMotorMax),
	}, nil
}

// SetBillingConfig replaces the stored configuration row.
func (s *Store) SetBillingConfig(ctx context.Context, cfg billing.StoredConfig) error {
	ctx, span := s.tracer.Start(ctx, "postgres.set_billing_config")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO billing_config (id, base_due, mooring_per_foot, visit_cost, grace_days, monthly_interest_rate,
			due_day, storage_fee, small_craft_fee, small_motorboat_fee, small_motorboat_max_feet)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			base_due = EXCLUDED.base_due,
			mooring_per_foot = EXCLUDED.mooring_per_foot,
			visit_cost = EXCLUDED.visit_cost,
			grace_days = EXCLUDED.grace_days,
			monthly_interest_rate = EXCLUDED.monthly_interest_rate,
			due_day = EXCLUDED.due_day,
			storage_fee = EXCLUDED.storage_fee,
			small_craft_fee = EXCLUDED.small_craft_fee,
			small_motorboat_fee = EXCLUDED.small_motorboat_fee,
			small_motorboat_max_feet = EXCLUDED.small_motorboat_max_feet
	`, nullDecimal(cfg.BaseDue), nullDecimal(cfg.MooringPerFoot), nullDecimal(cfg.VisitCost), nullInt(cfg.GraceDays),
		nullDecimal(cfg.MonthlyInterestRate), nullInt(cfg.DueDay), nullDecimal(cfg.StorageFee), nullDecimal(cfg.SmallCraftFee),
		nullDecimal(cfg.SmallMotorboatFee), nullDecimal(cfg.SmallMotorboatMaxFeet))
	if err != nil {
		return fmt.Errorf("failed to store billing config: %w", err)
	}
	return nil
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
