// internal/ledger/payment.go
package ledger

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PaymentParams carries the fields needed to build a Payment.
type PaymentParams struct {
	ID                uuid.UUID       `validate:"required"`
	MemberID          uuid.UUID       `validate:"required"`
	Date              time.Time       `validate:"required"`
	Amount            decimal.Decimal `validate:"-"`
	Method            PaymentMethod   `validate:"required,oneof=transfer cash check card deposit"`
	Reference         string          `validate:"max=64"`
	BankTransactionID *uuid.UUID      `validate:"-"`
}

// NewPayment validates params. Payments born from a bank transaction are already reconciled.
func NewPayment(p PaymentParams) (*Payment, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := validate.Struct(p); err != nil {
		return nil, validationError(err)
	}
	if !p.Amount.IsPositive() {
		return nil, errs.Invalid("amount", "must be positive, got %s", p.Amount)
	}
	status := PaymentPending
	if p.BankTransactionID != nil {
		status = PaymentReconciled
	}
	return &Payment{
		ID:                p.ID,
		MemberID:          p.MemberID,
		Date:              Day(p.Date),
		Amount:            p.Amount,
		Method:            p.Method,
		Reference:         NormalizeReference(p.Reference),
		Status:            status,
		BankTransactionID: p.BankTransactionID,
	}, nil
}

// NormalizeReference strips spacing and leading zeros so bank and manual references compare equal.
func NormalizeReference(ref string) string {
	ref = strings.ToUpper(strings.Join(strings.Fields(ref), ""))
	trimmed := strings.TrimLeft(ref, "0")
	if trimmed == "" && ref != "" {
		return "0"
	}
	return trimmed
}

func validationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return errs.Invalid(strings.ToLower(fe.Field()), "failed %q rule", fe.Tag())
	}
	return errs.Invalid("", "%v", err)
}
