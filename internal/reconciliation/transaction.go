// internal/reconciliation/transaction.go
package reconciliation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/errs"
	"clubledger/internal/ledger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Status is the lifecycle of an imported bank transaction.
type Status string

const (
	StatusImported          Status = "imported"
	StatusMatched           Status = "matched"
	StatusProcessed         Status = "processed"
	StatusAlreadyRegistered Status = "already_registered"
)

// BankTransaction is one credit line of a bank statement.
type BankTransaction struct {
	ID          uuid.UUID       `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	NationalID  string          `json:"national_id,omitempty"`
	Surname     string          `json:"surname,omitempty"`
	GivenName   string          `json:"given_name,omitempty"`
	Status      Status          `json:"status"`
	Tier        Tier            `json:"tier,omitempty"`
	Confidence  int             `json:"confidence"`
	MemberID    *uuid.UUID      `json:"member_id,omitempty"`
	PaymentID   *uuid.UUID      `json:"payment_id,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	ImportedAt  time.Time       `json:"imported_at"`
}

// TransactionParams are the raw statement fields.
type TransactionParams struct {
	Date        time.Time       `validate:"required"`
	Amount      decimal.Decimal `validate:"-"`
	Description string          `validate:"required,max=500"`
	Reference   string          `validate:"max=64"`
	Occurrence  int             `validate:"gte=0"`
}

// NewBankTransaction validates params and extracts identifiers from the description.
func NewBankTransaction(p TransactionParams) (*BankTransaction, error) {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, errs.Invalid(strings.ToLower(verrs[0].Field()), "failed %q rule", verrs[0].Tag())
		}
		return nil, errs.Invalid("", "%v", err)
	}
	if !p.Amount.IsPositive() {
		return nil, errs.Invalid("amount", "must be positive, got %s", p.Amount)
	}

	ids := ExtractIdentifiers(p.Description)
	tx := &BankTransaction{
		ID:          uuid.New(),
		Date:        ledger.Day(p.Date),
		Amount:      p.Amount,
		Description: strings.TrimSpace(p.Description),
		Reference:   ledger.NormalizeReference(p.Reference),
		Status:      StatusImported,
		Tier:        TierF,
		ImportedAt:  time.Now().UTC(),
	}
	if tx.Reference == "" && len(ids.References) > 0 {
		tx.Reference = ids.References[0]
	}
	if len(ids.NationalIDs) > 0 {
		tx.NationalID = ids.NationalIDs[0]
	}
	tx.Fingerprint = fingerprint(tx, p.Occurrence)
	return tx, nil
}

// fingerprint identifies a statement line across re-imports of the same file.
func fingerprint(tx *BankTransaction, occurrence int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%d",
		tx.Date.Format("2006-01-02"), tx.Amount.String(), tx.Description, tx.Reference, occurrence)))
	return hex.EncodeToString(sum[:])
}

// Confirmable reports whether a payment can still be recorded from this transaction.
func (t *BankTransaction) Confirmable() bool {
	return t.Status == StatusImported || t.Status == StatusMatched
}
