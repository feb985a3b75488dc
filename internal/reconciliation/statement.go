// internal/reconciliation/statement.go
package reconciliation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"clubledger/internal/errs"
)

var (
	reDottedThousands = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d+)?$`)
	dateLayouts       = []string{"2006-01-02", "02/01/2006", "02-01-2006"}
)

// StatementLine is a rejected or skipped row of an imported statement.
type StatementLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParsedStatement is the outcome of reading a bank CSV.
type ParsedStatement struct {
	Transactions []*BankTransaction `json:"transactions"`
	Skipped      []StatementLine    `json:"skipped,omitempty"`
}

// ParseStatement reads a bank CSV with a header naming date, amount, description and
// optionally reference. Debits and zero amounts are skipped; malformed rows are rejected.
func ParseStatement(r io.Reader) (*ParsedStatement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errs.Invalid("statement", "failed to read header: %v", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"date", "amount", "description"} {
		if _, ok := cols[required]; !ok {
			return nil, errs.Invalid("statement", "missing %q column", required)
		}
	}
	refCol, hasRef := cols["reference"]

	out := &ParsedStatement{}
	occurrences := map[string]int{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, errs.Invalid("statement", "line %d: %v", line, err)
		}
		field := func(i int) string {
			if i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		date, err := parseDate(field(cols["date"]))
		if err != nil {
			return nil, errs.Invalid("statement", "line %d: %v", line, err)
		}
		amount, err := ParseAmount(field(cols["amount"]))
		if err != nil {
			return nil, errs.Invalid("statement", "line %d: %v", line, err)
		}
		if !amount.IsPositive() {
			out.Skipped = append(out.Skipped, StatementLine{Line: line, Reason: "not a credit"})
			continue
		}
		ref := ""
		if hasRef {
			ref = field(refCol)
		}

		key := fmt.Sprintf("%s|%s|%s|%s", date.Format("2006-01-02"), amount, field(cols["description"]), ref)
		tx, err := NewBankTransaction(TransactionParams{
			Date:        date,
			Amount:      amount,
			Description: field(cols["description"]),
			Reference:   ref,
			Occurrence:  occurrences[key],
		})
		if err != nil {
			out.Skipped = append(out.Skipped, StatementLine{Line: line, Reason: err.Error()})
			continue
		}
		occurrences[key]++
		out.Transactions = append(out.Transactions, tx)
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount accepts "28000", "28000.50", "28.000" and "28.000,50".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer("$", "", " ", "").Replace(s)
	if reDottedThousands.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unrecognized amount %q", s)
	}
	return d, nil
}
