package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubledger/internal/errs"
)

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(3, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", p.String())
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), p.End())

	_, err = NewPeriod(13, 2025)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, err = NewPeriod(1, 1999)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestPeriodDueDateClampsToMonthLength(t *testing.T) {
	feb := Period{Month: time.February, Year: 2025}
	assert.Equal(t, 28, feb.DueDate(31).Day())
	assert.Equal(t, 15, feb.DueDate(15).Day())
	assert.Equal(t, 1, feb.DueDate(0).Day())
}

func TestPeriodContainsIgnoresLocation(t *testing.T) {
	santiago := time.FixedZone("CLT", -3*3600)
	p := Period{Month: time.March, Year: 2025}
	assert.True(t, p.Contains(time.Date(2025, 3, 31, 23, 0, 0, 0, santiago)))
	assert.False(t, p.Contains(time.Date(2025, 4, 1, 0, 30, 0, 0, santiago)))
	assert.Equal(t, Period{Month: time.January, Year: 2026}, Period{Month: time.December, Year: 2025}.Next())
}

func TestDaysBetween(t *testing.T) {
	due := time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)
	today := time.Date(2025, 3, 25, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, DaysBetween(due, today))
	assert.Equal(t, -10, DaysBetween(today, due))
}

func TestApplyTotals(t *testing.T) {
	inv := &Invoice{Lines: []LineItem{
		{Category: CategoryDues, Subtotal: decimal.NewFromInt(28000)},
		{Category: CategoryMooring, Subtotal: decimal.NewFromInt(84000)},
		{Category: CategoryInterest, Subtotal: decimal.NewFromInt(375)},
	}}
	ApplyTotals(inv)

	assert.True(t, inv.Total.Equal(decimal.NewFromInt(112375)))
	assert.True(t, inv.Mooring.Equal(decimal.NewFromInt(84000)))
	assert.True(t, inv.Visits.IsZero())
	assert.True(t, inv.Total.Equal(SumSubtotals(inv.Lines)))
}

func TestInvoiceBalance(t *testing.T) {
	inv := Invoice{Total: decimal.NewFromInt(15000), Allocated: decimal.NewFromInt(20000)}
	assert.True(t, inv.Balance().IsZero())
	inv.Allocated = decimal.NewFromInt(5000)
	assert.True(t, inv.Balance().Equal(decimal.NewFromInt(10000)))
}

func TestNewPayment(t *testing.T) {
	member := uuid.New()
	p, err := NewPayment(PaymentParams{
		MemberID:  member,
		Date:      time.Date(2025, 3, 4, 15, 4, 0, 0, time.UTC),
		Amount:    decimal.NewFromInt(20000),
		Method:    MethodTransfer,
		Reference: " 000 1234 ",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "1234", p.Reference)
	assert.Equal(t, PaymentPending, p.Status)
	assert.Equal(t, 0, p.Date.Hour())

	_, err = NewPayment(PaymentParams{MemberID: member, Date: time.Now(), Amount: decimal.Zero, Method: MethodCash})
	assert.True(t, errors.Is(err, errs.ErrValidation))

	_, err = NewPayment(PaymentParams{MemberID: member, Date: time.Now(), Amount: decimal.NewFromInt(1), Method: "barter"})
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "method", ve.Field)

	_, err = NewPayment(PaymentParams{Date: time.Now(), Amount: decimal.NewFromInt(1), Method: MethodCash})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}
