// internal/billing/interest.go
package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/ledger"
)

var daysPerMonth = decimal.NewFromInt(30)

// InterestAccrual computes simple daily late interest after a grace window.
type InterestAccrual struct {
	GraceDays   int
	MonthlyRate decimal.Decimal
	Places      int32
}

func NewInterestAccrual(cfg Config) InterestAccrual {
	return InterestAccrual{GraceDays: cfg.GraceDays, MonthlyRate: cfg.MonthlyInterestRate, Places: cfg.CurrencyPlaces}
}

// DaysLate is calendar days since due minus the grace days. Non-positive means no interest.
func (a InterestAccrual) DaysLate(due, today time.Time) int {
	return ledger.DaysBetween(due, today) - a.GraceDays
}

// Interest is balance × (monthly rate / 30) × daysLate, rounded once.
func (a InterestAccrual) Interest(balance decimal.Decimal, daysLate int) decimal.Decimal {
	if daysLate <= 0 || !balance.IsPositive() {
		return decimal.Zero
	}
	raw := balance.Mul(a.MonthlyRate).Mul(decimal.NewFromInt(int64(daysLate))).Div(daysPerMonth)
	return ledger.Round(raw, a.Places)
}

// Accrue returns one interest line per open invoice whose due date is before today and whose
// grace window has elapsed. Lines come out ordered by due date, then invoice number.
func (a InterestAccrual) Accrue(open []ledger.Invoice, today time.Time) []ledger.LineItem {
	today = ledger.Day(today)
	candidates := make([]ledger.Invoice, 0, len(open))
	for _, inv := range open {
		if !inv.Open() || !ledger.Day(inv.DueDate).Before(today) {
			continue
		}
		candidates = append(candidates, inv)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].DueDate.Equal(candidates[j].DueDate) {
			return candidates[i].DueDate.Before(candidates[j].DueDate)
		}
		return candidates[i].Number < candidates[j].Number
	})

	var lines []ledger.LineItem
	for _, inv := range candidates {
		days := a.DaysLate(inv.DueDate, today)
		if days <= 0 {
			continue
		}
		amount := a.Interest(inv.Balance(), days)
		if !amount.IsPositive() {
			continue
		}
		source := inv.ID
		lines = append(lines, ledger.LineItem{
			ID:              uuid.New(),
			Category:        ledger.CategoryInterest,
			Description:     fmt.Sprintf("Late interest on %s (%d days)", inv.Number, days),
			Quantity:        decimal.NewFromInt(int64(days)),
			Subtotal:        amount,
			SourceInvoiceID: &source,
			DaysLate:        days,
		})
	}
	return lines
}
