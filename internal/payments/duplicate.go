// internal/payments/duplicate.go
package payments

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"clubledger/internal/ledger"
)

// Confidence grades how likely a candidate repeats an existing payment.
type Confidence string

const (
	ConfidenceNone   Confidence = ""
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Verdict is the duplicate check outcome. High blocks; medium and low need an override.
type Verdict struct {
	IsDuplicate       bool       `json:"is_duplicate"`
	Confidence        Confidence `json:"confidence,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	ExistingPaymentID *uuid.UUID `json:"existing_payment_id,omitempty"`
}

// Blocks reports whether the write must be refused outright.
func (v Verdict) Blocks() bool { return v.Confidence == ConfidenceHigh }

// NeedsOverride reports whether the operator must confirm the write.
func (v Verdict) NeedsOverride() bool {
	return v.Confidence == ConfidenceMedium || v.Confidence == ConfidenceLow
}

const DefaultWindowDays = 3

// DuplicateDetector compares a candidate payment with the member's existing payments.
type DuplicateDetector struct {
	WindowDays int
}

func NewDuplicateDetector(windowDays int) DuplicateDetector {
	if windowDays < 0 {
		windowDays = DefaultWindowDays
	}
	return DuplicateDetector{WindowDays: windowDays}
}

// Check returns the strongest match. Among equally strong matches the oldest existing
// payment wins, then the lowest id.
func (d DuplicateDetector) Check(candidate ledger.Payment, existing []ledger.Payment) Verdict {
	pool := append([]ledger.Payment(nil), existing...)
	sort.SliceStable(pool, func(i, j int) bool {
		if !pool[i].Date.Equal(pool[j].Date) {
			return pool[i].Date.Before(pool[j].Date)
		}
		return pool[i].ID.String() < pool[j].ID.String()
	})

	best := Verdict{}
	for _, p := range pool {
		if p.ID == candidate.ID || p.MemberID != candidate.MemberID {
			continue
		}
		c, reason := d.compare(candidate, p)
		if c.rank() > best.Confidence.rank() {
			id := p.ID
			best = Verdict{IsDuplicate: true, Confidence: c, Reason: reason, ExistingPaymentID: &id}
			if c == ConfidenceHigh {
				break
			}
		}
	}
	return best
}

func (d DuplicateDetector) compare(candidate, existing ledger.Payment) (Confidence, string) {
	candRef := ledger.NormalizeReference(candidate.Reference)
	existRef := ledger.NormalizeReference(existing.Reference)

	if candRef != "" && candRef == existRef {
		return ConfidenceHigh, fmt.Sprintf("reference %s already recorded", candRef)
	}
	if !candidate.Amount.Equal(existing.Amount) {
		return ConfidenceNone, ""
	}
	// Two different bank references are two different transfers.
	if candRef != "" && existRef != "" {
		return ConfidenceNone, ""
	}

	days := ledger.DaysBetween(existing.Date, candidate.Date)
	if days == 0 && candRef == "" && existRef == "" && candidate.Method == existing.Method {
		return ConfidenceMedium, fmt.Sprintf("same date, amount and method as payment of %s", existing.Date.Format("2006-01-02"))
	}
	if days < 0 {
		days = -days
	}
	if days <= d.WindowDays {
		return ConfidenceLow, fmt.Sprintf("same amount %d day(s) from payment of %s", days, existing.Date.Format("2006-01-02"))
	}
	return ConfidenceNone, ""
}
