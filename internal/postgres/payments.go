// internal/postgres/payments.go
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
	"clubledger/internal/ledger"
	"clubledger/internal/reconciliation"
)

func (s *Store) CreatePayment(ctx context.Context, p *ledger.Payment) error {
	ctx, span := s.tracer.Start(ctx, "postgres.create_payment",
		trace.WithAttributes(
			attribute.String("payment.id", p.ID.String()),
			attribute.String("member.id", p.MemberID.String()),
		))
	defer span.End()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, member_id, payment_date, amount, method, reference, status, bank_transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.MemberID, p.Date, p.Amount, p.Method, p.Reference, p.Status, p.BankTransactionID, p.CreatedAt)
	if _, ok := isUniqueViolation(err); ok {
		return &errs.ConflictError{Resource: "payment", Key: p.ID.String(), Reason: "already stored", ExistingID: p.ID.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, memberID uuid.UUID) ([]ledger.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.list_payments",
		trace.WithAttributes(attribute.String("member.id", memberID.String())))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, payment_date, amount, method, reference, status, bank_transaction_id, created_at
		FROM payments
		WHERE member_id = $1
		ORDER BY payment_date, created_at, id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []ledger.Payment
	for rows.Next() {
		var (
			p      ledger.Payment
			bankTx uuid.NullUUID
		)
		if err := rows.Scan(&p.ID, &p.MemberID, &p.Date, &p.Amount, &p.Method, &p.Reference, &p.Status, &bankTx, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.BankTransactionID = uuidPtr(bankTx)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Bank transactions

func (s *Store) KnownReferences(ctx context.Context) (map[uuid.UUID][]string, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.known_references")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT member_id, reference
		FROM payments
		WHERE reference <> ''
		ORDER BY member_id, reference
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment references: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]string{}
	for rows.Next() {
		var (
			member uuid.UUID
			ref    string
		)
		if err := rows.Scan(&member, &ref); err != nil {
			return nil, fmt.Errorf("failed to scan payment reference: %w", err)
		}
		out[member] = append(out[member], ref)
	}
	return out, rows.Err()
}

// CreateBankTransactions inserts txs, skipping fingerprints already stored, and returns how many were new.
func (s *Store) CreateBankTransactions(ctx context.Context, txs []*reconciliation.BankTransaction) (int, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.create_bank_transactions",
		trace.WithAttributes(attribute.Int("transaction.count", len(txs))))
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bank_transactions (id, fingerprint, tx_date, amount, description, reference, national_id,
			surname, given_name, status, tier, confidence, member_id, payment_id, reason, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (fingerprint) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, bt := range txs {
		res, err := stmt.ExecContext(ctx, bt.ID, bt.Fingerprint, bt.Date, bt.Amount, bt.Description, bt.Reference, bt.NationalID,
			bt.Surname, bt.GivenName, bt.Status, bt.Tier, bt.Confidence, bt.MemberID, bt.PaymentID, bt.Reason, bt.ImportedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to insert bank transaction: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	span.SetAttributes(attribute.Int("transaction.inserted", inserted))
	return inserted, nil
}

const bankTransactionColumns = `id, fingerprint, tx_date, amount, description, reference, national_id,
	surname, given_name, status, tier, confidence, member_id, payment_id, reason, imported_at`

func scanBankTransaction(row scanner) (reconciliation.BankTransaction, error) {
	var (
		bt              reconciliation.BankTransaction
		member, payment uuid.NullUUID
	)
	err := row.Scan(&bt.ID, &bt.Fingerprint, &bt.Date, &bt.Amount, &bt.Description, &bt.Reference, &bt.NationalID,
		&bt.Surname, &bt.GivenName, &bt.Status, &bt.Tier, &bt.Confidence, &member, &payment, &bt.Reason, &bt.ImportedAt)
	bt.MemberID, bt.PaymentID = uuidPtr(member), uuidPtr(payment)
	return bt, err
}

func (s *Store) ListBankTransactions(ctx context.Context, status reconciliation.Status, from, to time.Time) ([]reconciliation.BankTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.list_bank_transactions",
		trace.WithAttributes(attribute.String("transaction.status", string(status))))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bankTransactionColumns+`
		FROM bank_transactions
		WHERE ($1 = '' OR status = $1)
		  AND ($2::date IS NULL OR tx_date >= $2::date)
		  AND ($3::date IS NULL OR tx_date <= $3::date)
		ORDER BY tx_date, imported_at, id
	`, status, nullTime(from), nullTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list bank transactions: %w", err)
	}
	defer rows.Close()

	var out []reconciliation.BankTransaction
	for rows.Next() {
		bt, err := scanBankTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank transaction: %w", err)
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

func (s *Store) GetBankTransaction(ctx context.Context, id uuid.UUID) (*reconciliation.BankTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.get_bank_transaction",
		trace.WithAttributes(attribute.String("transaction.id", id.String())))
	defer span.End()

	bt, err := scanBankTransaction(s.db.QueryRowContext(ctx, `SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("bank transaction", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank transaction: %w", err)
	}
	return &bt, nil
}

// UpdateBankTransaction stores the matching outcome and status of bt.
func (s *Store) UpdateBankTransaction(ctx context.Context, bt *reconciliation.BankTransaction) error {
	ctx, span := s.tracer.Start(ctx, "postgres.update_bank_transaction",
		trace.WithAttributes(
			attribute.String("transaction.id", bt.ID.String()),
			attribute.String("transaction.status", string(bt.Status)),
		))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE bank_transactions
		SET status = $2, tier = $3, confidence = $4, member_id = $5, payment_id = $6, reason = $7
		WHERE id = $1
	`, bt.ID, bt.Status, bt.Tier, bt.Confidence, bt.MemberID, bt.PaymentID, bt.Reason)
	if err != nil {
		return fmt.Errorf("failed to update bank transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("bank transaction", bt.ID.String())
	}
	return nil
}
