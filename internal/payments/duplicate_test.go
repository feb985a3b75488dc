package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"clubledger/internal/ledger"
)

var march4 = time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

func payment(member uuid.UUID, date time.Time, amount int64, method ledger.PaymentMethod, ref string) ledger.Payment {
	return ledger.Payment{
		ID:        uuid.New(),
		MemberID:  member,
		Date:      date,
		Amount:    decimal.NewFromInt(amount),
		Method:    method,
		Reference: ref,
	}
}

func TestDuplicateDetectorTiers(t *testing.T) {
	member := uuid.New()
	det := NewDuplicateDetector(DefaultWindowDays)

	tests := []struct {
		name      string
		candidate ledger.Payment
		existing  ledger.Payment
		want      Confidence
	}{
		{
			name:      "same reference",
			candidate: payment(member, march4, 28000, ledger.MethodTransfer, "778812"),
			existing:  payment(member, march4.AddDate(0, 0, -20), 15000, ledger.MethodDeposit, "00778812"),
			want:      ConfidenceHigh,
		},
		{
			name:      "same date amount method without references",
			candidate: payment(member, march4, 28000, ledger.MethodCash, ""),
			existing:  payment(member, march4, 28000, ledger.MethodCash, ""),
			want:      ConfidenceMedium,
		},
		{
			name:      "same amount two days apart",
			candidate: payment(member, march4, 28000, ledger.MethodCash, ""),
			existing:  payment(member, march4.AddDate(0, 0, -2), 28000, ledger.MethodCash, ""),
			want:      ConfidenceLow,
		},
		{
			name:      "same amount outside window",
			candidate: payment(member, march4, 28000, ledger.MethodCash, ""),
			existing:  payment(member, march4.AddDate(0, 0, -4), 28000, ledger.MethodCash, ""),
			want:      ConfidenceNone,
		},
		{
			name:      "different references are different transfers",
			candidate: payment(member, march4, 28000, ledger.MethodTransfer, "1001"),
			existing:  payment(member, march4, 28000, ledger.MethodTransfer, "1002"),
			want:      ConfidenceNone,
		},
		{
			name:      "other member",
			candidate: payment(member, march4, 28000, ledger.MethodTransfer, "1001"),
			existing:  payment(uuid.New(), march4, 28000, ledger.MethodTransfer, "1001"),
			want:      ConfidenceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := det.Check(tt.candidate, []ledger.Payment{tt.existing})
			assert.Equal(t, tt.want, v.Confidence)
			assert.Equal(t, tt.want != ConfidenceNone, v.IsDuplicate)
			if v.IsDuplicate {
				require.NotNil(t, v.ExistingPaymentID)
				assert.Equal(t, tt.existing.ID, *v.ExistingPaymentID)
			}
		})
	}
}

func TestDuplicateDetectorPrefersStrongestMatch(t *testing.T) {
	member := uuid.New()
	low := payment(member, march4.AddDate(0, 0, -1), 28000, ledger.MethodCash, "")
	high := payment(member, march4.AddDate(0, 0, -30), 9000, ledger.MethodTransfer, "5555")
	candidate := payment(member, march4, 28000, ledger.MethodTransfer, "5555")

	v := NewDuplicateDetector(3).Check(candidate, []ledger.Payment{low, high})
	assert.Equal(t, ConfidenceHigh, v.Confidence)
	assert.Equal(t, high.ID, *v.ExistingPaymentID)
	assert.True(t, v.Blocks())
}

func TestIdenticalPaymentsAreAlwaysHigh(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		member := uuid.New()
		date := march4.AddDate(0, 0, rapid.IntRange(-400, 400).Draw(t, "offset"))
		amount := rapid.Int64Range(1, 10_000_000).Draw(t, "amount")
		ref := rapid.StringMatching(`[0-9A-Z]{1,12}`).Draw(t, "ref")
		method := rapid.SampledFrom([]ledger.PaymentMethod{ledger.MethodTransfer, ledger.MethodCash, ledger.MethodCheck}).Draw(t, "method")

		a := payment(member, date, amount, method, ref)
		b := payment(member, date, amount, method, ref)
		v := NewDuplicateDetector(DefaultWindowDays).Check(a, []ledger.Payment{b})
		if !v.IsDuplicate || v.Confidence != ConfidenceHigh {
			t.Fatalf("identical payments graded %q", v.Confidence)
		}
	})
}

func TestOneDayApartWithoutReferenceIsAtMostMedium(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		member := uuid.New()
		amount := rapid.Int64Range(1, 10_000_000).Draw(t, "amount")
		shift := rapid.SampledFrom([]int{-1, 1}).Draw(t, "shift")

		a := payment(member, march4, amount, ledger.MethodCash, "")
		b := payment(member, march4.AddDate(0, 0, shift), amount, ledger.MethodCash, "")
		v := NewDuplicateDetector(DefaultWindowDays).Check(a, []ledger.Payment{b})
		if v.Confidence.rank() > ConfidenceMedium.rank() {
			t.Fatalf("got %q, want at most medium", v.Confidence)
		}
	})
}
