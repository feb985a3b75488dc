package payments_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"clubledger/internal/audit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
	"clubledger/internal/payments"
	mock_payments "clubledger/internal/payments/mocks"
)

func params(member uuid.UUID, amount int64, ref string) ledger.PaymentParams {
	return ledger.PaymentParams{
		MemberID:  member,
		Date:      time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.NewFromInt(amount),
		Method:    ledger.MethodTransfer,
		Reference: ref,
	}
}

func TestRecordBlocksHighConfidenceDuplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	store := mock_payments.NewMockStore(ctrl)
	store.EXPECT().ListPayments(gomock.Any(), member).Return([]ledger.Payment{
		{ID: uuid.New(), MemberID: member, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(28000), Reference: "4411"},
	}, nil)

	rec := payments.NewRecorder(store, payments.NewDuplicateDetector(3), nil, nil, zap.NewNop())
	_, err := rec.Record(context.Background(), params(member, 28000, "4411"), true)

	var conflict *errs.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "payment", conflict.Resource)
}

func TestRecordRequiresOverrideForWarnings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	existing := []ledger.Payment{
		{ID: uuid.New(), MemberID: member, Date: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(28000), Method: ledger.MethodTransfer},
	}
	store := mock_payments.NewMockStore(ctrl)
	store.EXPECT().ListPayments(gomock.Any(), member).Return(existing, nil).Times(2)
	store.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return(nil)
	settler := mock_payments.NewMockSettler(ctrl)
	settler.EXPECT().Settle(gomock.Any(), member).Return(nil, nil)

	core, logs := observer.New(zap.WarnLevel)
	rec := payments.NewRecorder(store, payments.NewDuplicateDetector(3), settler, nil, zap.New(core))

	_, err := rec.Record(context.Background(), params(member, 28000, ""), false)
	assert.True(t, errors.Is(err, payments.ErrOverrideRequired))

	receipt, err := rec.Record(context.Background(), params(member, 28000, ""), true)
	require.NoError(t, err)
	assert.True(t, receipt.Overridden)
	assert.Equal(t, payments.ConfidenceLow, receipt.Verdict.Confidence)
	assert.Equal(t, 1, logs.FilterMessage("duplicate warning overridden").Len())
}

func TestRecordSettlesCreditAndJournals(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	invoice := uuid.New()
	store := mock_payments.NewMockStore(ctrl)
	store.EXPECT().ListPayments(gomock.Any(), member).Return(nil, nil)
	store.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *ledger.Payment) error {
		assert.Equal(t, ledger.PaymentPending, p.Status)
		assert.Equal(t, "9001", p.Reference)
		return nil
	})
	settler := mock_payments.NewMockSettler(ctrl)
	settler.EXPECT().Settle(gomock.Any(), member).Return([]ledger.CreditApplication{
		{InvoiceID: invoice, MemberID: member, Applied: decimal.NewFromInt(28000), InvoicePaid: true},
	}, nil)

	journal := audit.NewJournal(audit.NewMemoryStore())
	rec := payments.NewRecorder(store, payments.NewDuplicateDetector(3), settler, journal, zap.NewNop())

	receipt, err := rec.Record(context.Background(), params(member, 28000, "0009001"), false)
	require.NoError(t, err)
	require.Len(t, receipt.Applications, 1)
	assert.True(t, receipt.Applications[0].InvoicePaid)

	events, err := journal.History(context.Background(), receipt.Payment.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "PaymentRecorded", events[0].EventType)
}

func TestRecordKeepsPaymentWhenSettlementFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	store := mock_payments.NewMockStore(ctrl)
	store.EXPECT().ListPayments(gomock.Any(), member).Return(nil, nil)
	store.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return(nil)
	settler := mock_payments.NewMockSettler(ctrl)
	settler.EXPECT().Settle(gomock.Any(), member).Return(nil, errors.New("lock timeout"))

	core, logs := observer.New(zap.ErrorLevel)
	rec := payments.NewRecorder(store, payments.NewDuplicateDetector(3), settler, nil, zap.New(core))

	receipt, err := rec.Record(context.Background(), params(member, 5000, ""), false)
	require.NoError(t, err)
	assert.NotNil(t, receipt.Payment)
	assert.Equal(t, 1, logs.FilterMessage("credit settlement failed").Len())
}

func TestRecordValidatesBeforeReading(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := payments.NewRecorder(mock_payments.NewMockStore(ctrl), payments.NewDuplicateDetector(3), nil, nil, zap.NewNop())
	_, err := rec.Record(context.Background(), params(uuid.New(), -1, ""), false)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}
