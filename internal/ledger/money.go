// internal/ledger/money.go
package ledger

import "github.com/shopspring/decimal"

// Round rounds an amount to the currency unit (places decimals, half away from zero).
func Round(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// SumSubtotals adds the line subtotals; it never rounds.
func SumSubtotals(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// CategoryTotals splits line subtotals by category.
func CategoryTotals(lines []LineItem) map[LineCategory]decimal.Decimal {
	out := map[LineCategory]decimal.Decimal{
		CategoryDues:     decimal.Zero,
		CategoryMooring:  decimal.Zero,
		CategoryVisits:   decimal.Zero,
		CategoryOther:    decimal.Zero,
		CategoryInterest: decimal.Zero,
	}
	for _, l := range lines {
		out[l.Category] = out[l.Category].Add(l.Subtotal)
	}
	return out
}

// ApplyTotals fills the breakdown columns and total of inv from its lines.
func ApplyTotals(inv *Invoice) {
	totals := CategoryTotals(inv.Lines)
	inv.Dues = totals[CategoryDues]
	inv.Mooring = totals[CategoryMooring]
	inv.Visits = totals[CategoryVisits]
	inv.Other = totals[CategoryOther]
	inv.Interest = totals[CategoryInterest]
	inv.Total = SumSubtotals(inv.Lines)
}
