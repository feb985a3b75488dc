// internal/payments/store.go
package payments

import (
	"context"

	"github.com/google/uuid"

	"clubledger/internal/ledger"
)

// Store persists payments.
//
//go:generate mockgen -destination=mocks/mock_store.go -source=store.go
type Store interface {
	ListPayments(ctx context.Context, memberID uuid.UUID) ([]ledger.Payment, error)
	CreatePayment(ctx context.Context, p *ledger.Payment) error
}

// Settler applies a member's credit to open invoices.
type Settler interface {
	Settle(ctx context.Context, memberID uuid.UUID) ([]ledger.CreditApplication, error)
}
