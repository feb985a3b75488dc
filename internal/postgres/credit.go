// internal/postgres/credit.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clubledger/internal/credit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
)

// WithinTx runs fn in a read-committed transaction. Rows are locked with SELECT ... FOR UPDATE
// before their balances are read, so concurrent appliers for one member serialize.
func (s *Store) WithinTx(ctx context.Context, fn func(tx credit.Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "postgres.credit_tx")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	if _, err := t.tx.ExecContext(ctx, `SELECT id FROM invoices WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, fmt.Errorf("failed to lock invoice: %w", err)
	}
	inv, err := scanInvoice(t.tx.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("invoice", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice: %w", err)
	}
	return &inv, nil
}

func (t *pgTx) LockOpenInvoices(ctx context.Context, memberID uuid.UUID) ([]ledger.Invoice, error) {
	if _, err := t.tx.ExecContext(ctx, `
		SELECT id FROM invoices
		WHERE member_id = $1 AND status IN ('pending', 'overdue')
		FOR UPDATE
	`, memberID); err != nil {
		return nil, fmt.Errorf("failed to lock open invoices: %w", err)
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		WHERE i.member_id = $1 AND i.status IN ('pending', 'overdue')
		ORDER BY i.due_date, i.number
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to read open invoices: %w", err)
	}
	return collectInvoices(rows)
}

func (t *pgTx) LockPaymentBalances(ctx context.Context, memberID uuid.UUID) ([]ledger.PaymentBalance, error) {
	if _, err := t.tx.ExecContext(ctx, `SELECT id FROM payments WHERE member_id = $1 FOR UPDATE`, memberID); err != nil {
		return nil, fmt.Errorf("failed to lock payments: %w", err)
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT p.id, p.payment_date, p.amount,
			COALESCE((SELECT SUM(l.amount) FROM payment_links l WHERE l.payment_id = p.id), 0)
		FROM payments p
		WHERE p.member_id = $1
		ORDER BY p.payment_date, p.created_at, p.id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment balances: %w", err)
	}
	defer rows.Close()

	var out []ledger.PaymentBalance
	for rows.Next() {
		var b ledger.PaymentBalance
		if err := rows.Scan(&b.PaymentID, &b.Date, &b.Amount, &b.Allocated); err != nil {
			return nil, fmt.Errorf("failed to scan payment balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertLink(ctx context.Context, link ledger.Link) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payment_links (payment_id, invoice_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (payment_id, invoice_id) DO UPDATE SET amount = payment_links.amount + EXCLUDED.amount
	`, link.PaymentID, link.InvoiceID, link.Amount, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment link: %w", err)
	}
	return nil
}

func (t *pgTx) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE invoices SET status = 'paid', paid_at = $2 WHERE id = $1`, invoiceID, at)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	return nil
}
