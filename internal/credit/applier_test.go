package credit_test

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

	"clubledger/internal/credit"
	mock_credit "clubledger/internal/credit/mocks"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func runTx(tx credit.Tx) func(context.Context, func(credit.Tx) error) error {
	return func(_ context.Context, fn func(credit.Tx) error) error { return fn(tx) }
}

func TestApplyCoversInvoiceAndLeavesRemainder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	payment := uuid.New()
	inv := &ledger.Invoice{ID: uuid.New(), MemberID: member, Number: "202503-0007", Status: ledger.InvoicePending, Total: d(15000), Allocated: decimal.Zero}

	tx := mock_credit.NewMockTx(ctrl)
	store := mock_credit.NewMockStore(ctrl)
	store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	tx.EXPECT().LockInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	tx.EXPECT().LockPaymentBalances(gomock.Any(), member).Return([]ledger.PaymentBalance{
		{PaymentID: payment, Amount: d(20000), Allocated: decimal.Zero},
	}, nil)
	tx.EXPECT().InsertLink(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, l ledger.Link) error {
		assert.Equal(t, payment, l.PaymentID)
		assert.True(t, l.Amount.Equal(d(15000)))
		return nil
	})
	tx.EXPECT().MarkInvoicePaid(gomock.Any(), inv.ID, gomock.Any()).Return(nil)

	app, err := credit.NewApplier(store, nil, zap.NewNop()).Apply(context.Background(), inv.ID, member)
	require.NoError(t, err)
	assert.True(t, app.Applied.Equal(d(15000)))
	assert.True(t, app.InvoicePaid)
	assert.True(t, app.RemainingCredit.Equal(d(5000)))
	assert.Len(t, app.Links, 1)
}

func TestApplyPartialCreditSpansPaymentsOldestFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	older, newer := uuid.New(), uuid.New()
	inv := &ledger.Invoice{ID: uuid.New(), MemberID: member, Status: ledger.InvoiceOverdue, Total: d(50000), Allocated: d(10000)}

	tx := mock_credit.NewMockTx(ctrl)
	store := mock_credit.NewMockStore(ctrl)
	store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	tx.EXPECT().LockInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	tx.EXPECT().LockPaymentBalances(gomock.Any(), member).Return([]ledger.PaymentBalance{
		{PaymentID: older, Amount: d(12000), Allocated: d(2000)},
		{PaymentID: newer, Amount: d(8000), Allocated: decimal.Zero},
	}, nil)
	gomock.InOrder(
		tx.EXPECT().InsertLink(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, l ledger.Link) error {
			assert.Equal(t, older, l.PaymentID)
			assert.True(t, l.Amount.Equal(d(10000)))
			return nil
		}),
		tx.EXPECT().InsertLink(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, l ledger.Link) error {
			assert.Equal(t, newer, l.PaymentID)
			assert.True(t, l.Amount.Equal(d(8000)))
			return nil
		}),
	)

	app, err := credit.NewApplier(store, nil, zap.NewNop()).Apply(context.Background(), inv.ID, member)
	require.NoError(t, err)
	assert.True(t, app.Applied.Equal(d(18000)))
	assert.False(t, app.InvoicePaid)
	assert.True(t, app.RemainingCredit.IsZero())
}

func TestApplyOnPaidInvoiceIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	inv := &ledger.Invoice{ID: uuid.New(), MemberID: member, Status: ledger.InvoicePaid, Total: d(15000), Allocated: d(15000)}

	tx := mock_credit.NewMockTx(ctrl)
	store := mock_credit.NewMockStore(ctrl)
	store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	tx.EXPECT().LockInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	tx.EXPECT().LockPaymentBalances(gomock.Any(), member).Return([]ledger.PaymentBalance{
		{PaymentID: uuid.New(), Amount: d(20000), Allocated: d(15000)},
	}, nil)

	app, err := credit.NewApplier(store, nil, zap.NewNop()).Apply(context.Background(), inv.ID, member)
	require.NoError(t, err)
	assert.True(t, app.Applied.IsZero())
	assert.True(t, app.InvoicePaid)
	assert.True(t, app.RemainingCredit.Equal(d(5000)))
}

func TestApplyRejectsForeignInvoice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inv := &ledger.Invoice{ID: uuid.New(), MemberID: uuid.New(), Status: ledger.InvoicePending, Total: d(100)}
	tx := mock_credit.NewMockTx(ctrl)
	store := mock_credit.NewMockStore(ctrl)
	store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	tx.EXPECT().LockInvoice(gomock.Any(), inv.ID).Return(inv, nil)

	_, err := credit.NewApplier(store, nil, zap.NewNop()).Apply(context.Background(), inv.ID, uuid.New())
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestApplyWrapsStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_credit.NewMockStore(ctrl)
	store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := credit.NewApplier(store, nil, zap.NewNop()).Apply(context.Background(), uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, errs.ErrDependency))
}

func TestSettleWalksOpenInvoicesUntilCreditRunsOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	payment := uuid.New()
	jan := ledger.Invoice{ID: uuid.New(), MemberID: member, Status: ledger.InvoiceOverdue, Total: d(30000), DueDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)}
	feb := ledger.Invoice{ID: uuid.New(), MemberID: member, Status: ledger.InvoicePending, Total: d(30000), DueDate: time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)}
	mar := ledger.Invoice{ID: uuid.New(), MemberID: member, Status: ledger.InvoicePending, Total: d(30000), DueDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}

	tx := mock_credit.NewMockTx(ctrl)
	store := mock_credit.NewMockStore(ctrl)
	store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	tx.EXPECT().LockOpenInvoices(gomock.Any(), member).Return([]ledger.Invoice{jan, feb, mar}, nil)
	tx.EXPECT().LockPaymentBalances(gomock.Any(), member).Return([]ledger.PaymentBalance{
		{PaymentID: payment, Amount: d(45000), Allocated: decimal.Zero},
	}, nil)
	tx.EXPECT().InsertLink(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	tx.EXPECT().MarkInvoicePaid(gomock.Any(), jan.ID, gomock.Any()).Return(nil)

	apps, err := credit.NewApplier(store, nil, zap.NewNop()).Settle(context.Background(), member)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.True(t, apps[0].InvoicePaid)
	assert.Equal(t, feb.ID, apps[1].InvoiceID)
	assert.True(t, apps[1].Applied.Equal(d(15000)))
	assert.False(t, apps[1].InvoicePaid)
}

func TestBalanceSumsRemaining(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	member := uuid.New()
	tx := mock_credit.NewMockTx(ctrl)
	store := mock_credit.NewMockStore(ctrl)
	store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	tx.EXPECT().LockPaymentBalances(gomock.Any(), member).Return([]ledger.PaymentBalance{
		{Amount: d(20000), Allocated: d(15000)},
		{Amount: d(1000), Allocated: d(1000)},
	}, nil)

	bal, err := credit.NewApplier(store, nil, zap.NewNop()).Balance(context.Background(), member)
	require.NoError(t, err)
	assert.True(t, bal.Equal(d(5000)))
}
