// internal/ledger/period.go
package ledger

import (
	"fmt"
	"time"

	"clubledger/internal/errs"
)

// Period is a monthly billing cycle key.
type Period struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

// NewPeriod validates a (month, year) pair.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, errs.Invalid("period.month", "month %d outside 1..12", month)
	}
	if year < 2000 || year > 2999 {
		return Period{}, errs.Invalid("period.year", "year %d outside 2000..2999", year)
	}
	return Period{Month: time.Month(month), Year: year}, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period was never set.
func (p Period) IsZero() bool { return p.Month == 0 && p.Year == 0 }

// Start is the first instant of the period, in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant after the period (exclusive bound).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains compares calendar dates, ignoring the location of t.
func (p Period) Contains(t time.Time) bool {
	y, m, _ := t.Date()
	return y == p.Year && m == p.Month
}

// Next returns the following month.
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// DueDate places day inside the period, clamped to the month length.
func (p Period) DueDate(day int) time.Time {
	last := p.End().AddDate(0, 0, -1).Day()
	if day < 1 {
		day = 1
	}
	if day > last {
		day = last
	}
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
