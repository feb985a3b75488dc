// internal/reconciliation/service.go
package reconciliation

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"clubledger/internal/ledger"
	"clubledger/internal/membership"
	"clubledger/internal/payments"
)

// Service imports bank statements, suggests members and confirms payments.
type Service interface {
	ImportStatement(ctx context.Context, r io.Reader) (*ImportReport, error)
	MatchPending(ctx context.Context, from, to time.Time) (*MatchReport, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*BankTransaction, error)
	List(ctx context.Context, status Status, from, to time.Time) ([]BankTransaction, error)
	Get(ctx context.Context, id uuid.UUID) (*BankTransaction, error)
}

// Store is the storage collaborator for bank transactions.
//
//go:generate mockgen -destination=mocks/mock_store.go -source=service.go
type Store interface {
	ListMembers(ctx context.Context, status membership.Status) ([]membership.Member, error)
	// KnownReferences maps members to the bank references of their past payments.
	KnownReferences(ctx context.Context) (map[uuid.UUID][]string, error)
	// CreateBankTransactions inserts new lines and ignores fingerprints already stored.
	CreateBankTransactions(ctx context.Context, txs []*BankTransaction) (int, error)
	ListBankTransactions(ctx context.Context, status Status, from, to time.Time) ([]BankTransaction, error)
	GetBankTransaction(ctx context.Context, id uuid.UUID) (*BankTransaction, error)
	UpdateBankTransaction(ctx context.Context, tx *BankTransaction) error
}

// PaymentRecorder records a payment through the duplicate gate.
type PaymentRecorder interface {
	Record(ctx context.Context, params ledger.PaymentParams, override bool) (*payments.Receipt, error)
}

// ImportReport summarizes a statement import.
type ImportReport struct {
	Parsed   int             `json:"parsed"`
	Inserted int             `json:"inserted"`
	Repeated int             `json:"repeated"`
	Skipped  []StatementLine `json:"skipped,omitempty"`
}

// MatchReport summarizes a matching run.
type MatchReport struct {
	Matched int          `json:"matched"`
	ByTier  map[Tier]int `json:"by_tier"`
}

// ConfirmRequest accepts or overrides the suggested member of a transaction.
type ConfirmRequest struct {
	TransactionID uuid.UUID            `json:"transaction_id" validate:"required"`
	MemberID      *uuid.UUID           `json:"member_id"`
	Method        ledger.PaymentMethod `json:"method"`
	Override      bool                 `json:"override"`
}
