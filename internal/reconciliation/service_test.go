package reconciliation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
	"clubledger/internal/payments"
	"clubledger/internal/reconciliation"
	mock_reconciliation "clubledger/internal/reconciliation/mocks"
)

type fixture struct {
	store    *mock_reconciliation.MockStore
	payments *mock_reconciliation.MockPaymentRecorder
	journal  *audit.Journal
	service  reconciliation.Service
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &fixture{
		store:    mock_reconciliation.NewMockStore(ctrl),
		payments: mock_reconciliation.NewMockPaymentRecorder(ctrl),
		journal:  audit.NewJournal(audit.NewMemoryStore()),
	}
	f.service = reconciliation.NewService(f.store, f.payments, f.journal, zap.NewNop())
	return f
}

func matchedTx(member uuid.UUID) *reconciliation.BankTransaction {
	return &reconciliation.BankTransaction{
		ID:          uuid.New(),
		Date:        time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(28000),
		Description: "TRANSF JUAN MUNOZ",
		Reference:   "4411",
		Status:      reconciliation.StatusMatched,
		Tier:        reconciliation.TierC,
		Confidence:  reconciliation.ConfidenceFullName,
		MemberID:    &member,
	}
}

func TestImportStatementReportsRepeatedLines(t *testing.T) {
	f := newFixture(t)
	csv := "date,amount,description\n2025-03-04,28000,TRANSF A\n2025-03-05,15000,TRANSF B\n2025-03-05,-100,COMISION\n"

	f.store.EXPECT().CreateBankTransactions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, txs []*reconciliation.BankTransaction) (int, error) {
			require.Len(t, txs, 2)
			return 1, nil
		})

	report, err := f.service.ImportStatement(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Repeated)
	assert.Len(t, report.Skipped, 1)
}

func TestImportStatementWrapsStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.EXPECT().CreateBankTransactions(gomock.Any(), gomock.Any()).Return(0, errors.New("connection reset"))

	_, err := f.service.ImportStatement(context.Background(), strings.NewReader("date,amount,description\n2025-03-04,1,X\n"))
	assert.True(t, errors.Is(err, errs.ErrDependency))
}

func TestMatchPendingUpdatesEveryTransaction(t *testing.T) {
	f := newFixture(t)
	member := membership.Member{ID: uuid.New(), Number: 7, NationalID: "123456785", FirstName: "Juan", LastName: "Muñoz", Status: membership.StatusActive}
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	f.store.EXPECT().ListBankTransactions(gomock.Any(), reconciliation.StatusImported, from, to).Return([]reconciliation.BankTransaction{
		{ID: uuid.New(), Description: "TRANSF JUAN MUNOZ", Amount: decimal.NewFromInt(28000), Status: reconciliation.StatusImported},
		{ID: uuid.New(), Description: "ABONO", Amount: decimal.NewFromInt(100), Status: reconciliation.StatusImported},
	}, nil)
	f.store.EXPECT().ListMembers(gomock.Any(), membership.StatusActive).Return([]membership.Member{member}, nil)
	f.store.EXPECT().KnownReferences(gomock.Any()).Return(map[uuid.UUID][]string{}, nil)

	var updated []reconciliation.BankTransaction
	f.store.EXPECT().UpdateBankTransaction(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(_ context.Context, tx *reconciliation.BankTransaction) error {
			updated = append(updated, *tx)
			return nil
		})

	report, err := f.service.MatchPending(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.ByTier[reconciliation.TierC])
	assert.Equal(t, 1, report.ByTier[reconciliation.TierF])

	require.Len(t, updated, 2)
	assert.Equal(t, reconciliation.StatusMatched, updated[0].Status)
	assert.Equal(t, member.ID, *updated[0].MemberID)
	assert.Equal(t, reconciliation.StatusImported, updated[1].Status)
	assert.Nil(t, updated[1].MemberID)
}

func TestConfirmRecordsPayment(t *testing.T) {
	f := newFixture(t)
	member := uuid.New()
	tx := matchedTx(member)
	paymentID := uuid.New()

	f.store.EXPECT().GetBankTransaction(gomock.Any(), tx.ID).Return(tx, nil)
	f.payments.EXPECT().Record(gomock.Any(), gomock.Any(), false).
		DoAndReturn(func(_ context.Context, p ledger.PaymentParams, _ bool) (*payments.Receipt, error) {
			assert.Equal(t, member, p.MemberID)
			assert.Equal(t, ledger.MethodTransfer, p.Method)
			assert.Equal(t, "4411", p.Reference)
			require.NotNil(t, p.BankTransactionID)
			assert.Equal(t, tx.ID, *p.BankTransactionID)
			return &payments.Receipt{Payment: &ledger.Payment{ID: paymentID, MemberID: member}}, nil
		})
	f.store.EXPECT().UpdateBankTransaction(gomock.Any(), tx).Return(nil)

	got, err := f.service.Confirm(context.Background(), reconciliation.ConfirmRequest{TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Equal(t, reconciliation.StatusProcessed, got.Status)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, paymentID, *got.PaymentID)

	history, err := f.journal.History(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "BankTransactionConfirmed", history[0].EventType)
}

func TestConfirmMarksHighDuplicateAlreadyRegistered(t *testing.T) {
	f := newFixture(t)
	tx := matchedTx(uuid.New())
	existing := uuid.New()

	f.store.EXPECT().GetBankTransaction(gomock.Any(), tx.ID).Return(tx, nil)
	f.payments.EXPECT().Record(gomock.Any(), gomock.Any(), false).Return(nil, &errs.ConflictError{
		Resource: "payment", Key: "4411", Reason: "same bank reference", ExistingID: existing.String(),
	})
	f.store.EXPECT().UpdateBankTransaction(gomock.Any(), tx).Return(nil)

	got, err := f.service.Confirm(context.Background(), reconciliation.ConfirmRequest{TransactionID: tx.ID})
	assert.True(t, errors.Is(err, errs.ErrConflict))
	require.NotNil(t, got)
	assert.Equal(t, reconciliation.StatusAlreadyRegistered, got.Status)
	assert.Nil(t, got.PaymentID)
}

func TestConfirmSurfacesDuplicateWarning(t *testing.T) {
	f := newFixture(t)
	tx := matchedTx(uuid.New())

	f.store.EXPECT().GetBankTransaction(gomock.Any(), tx.ID).Return(tx, nil)
	f.payments.EXPECT().Record(gomock.Any(), gomock.Any(), false).
		Return(nil, &payments.WarningError{Verdict: payments.Verdict{IsDuplicate: true, Confidence: payments.ConfidenceMedium}})

	_, err := f.service.Confirm(context.Background(), reconciliation.ConfirmRequest{TransactionID: tx.ID})
	assert.True(t, errors.Is(err, payments.ErrOverrideRequired))
	assert.Equal(t, reconciliation.StatusMatched, tx.Status)
}

func TestConfirmManualMemberOverridesSuggestion(t *testing.T) {
	f := newFixture(t)
	tx := matchedTx(uuid.New())
	chosen := uuid.New()

	f.store.EXPECT().GetBankTransaction(gomock.Any(), tx.ID).Return(tx, nil)
	f.payments.EXPECT().Record(gomock.Any(), gomock.Any(), true).
		DoAndReturn(func(_ context.Context, p ledger.PaymentParams, _ bool) (*payments.Receipt, error) {
			assert.Equal(t, chosen, p.MemberID)
			assert.Equal(t, ledger.MethodDeposit, p.Method)
			return &payments.Receipt{Payment: &ledger.Payment{ID: uuid.New(), MemberID: chosen}}, nil
		})
	f.store.EXPECT().UpdateBankTransaction(gomock.Any(), tx).Return(nil)

	got, err := f.service.Confirm(context.Background(), reconciliation.ConfirmRequest{
		TransactionID: tx.ID, MemberID: &chosen, Method: ledger.MethodDeposit, Override: true,
	})
	require.NoError(t, err)
	assert.Equal(t, chosen, *got.MemberID)
}

func TestConfirmRejectsUnusableTransactions(t *testing.T) {
	f := newFixture(t)

	processed := matchedTx(uuid.New())
	processed.Status = reconciliation.StatusProcessed
	f.store.EXPECT().GetBankTransaction(gomock.Any(), processed.ID).Return(processed, nil)
	_, err := f.service.Confirm(context.Background(), reconciliation.ConfirmRequest{TransactionID: processed.ID})
	assert.True(t, errors.Is(err, errs.ErrConflict))

	unmatched := matchedTx(uuid.New())
	unmatched.MemberID = nil
	unmatched.Status = reconciliation.StatusImported
	f.store.EXPECT().GetBankTransaction(gomock.Any(), unmatched.ID).Return(unmatched, nil)
	_, err = f.service.Confirm(context.Background(), reconciliation.ConfirmRequest{TransactionID: unmatched.ID})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}
