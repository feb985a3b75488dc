// internal/billing/numbering.go
package billing

import (
	"fmt"

	"clubledger/internal/ledger"
)

// InvoiceNumber formats a periodic invoice number: {YYYY}{MM}-{member:04}.
func InvoiceNumber(period ledger.Period, memberNumber int) string {
	return fmt.Sprintf("%04d%02d-%04d", period.Year, int(period.Month), memberNumber)
}

// EntryFeeNumber formats an entry-fee installment number: {YYYY}{MM}-{member:04}-C{n}.
func EntryFeeNumber(period ledger.Period, memberNumber, installment int) string {
	return fmt.Sprintf("%s-C%d", InvoiceNumber(period, memberNumber), installment)
}
