// internal/reconciliation/implementation.go
package reconciliation

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

// TransactionConfirmedEvent is journaled when a bank line becomes a payment.
type TransactionConfirmedEvent struct {
	MemberID  uuid.UUID `json:"member_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Amount    string    `json:"amount"`
	Tier      Tier      `json:"tier"`
	Manual    bool      `json:"manual"`
}

type service struct {
	store    Store
	payments PaymentRecorder
	matcher  Matcher
	journal  audit.Recorder
	log      *zap.Logger
	tracer   trace.Tracer
}

func NewService(store Store, payments PaymentRecorder, journal audit.Recorder, log *zap.Logger) Service {
	if journal == nil {
		journal = audit.Discard
	}
	return &service{
		store:    store,
		payments: payments,
		journal:  journal,
		log:      log.Named("reconciliation"),
		tracer:   otel.Tracer("clubledger/reconciliation"),
	}
}

func (s *service) ImportStatement(ctx context.Context, r io.Reader) (*ImportReport, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.import")
	defer span.End()

	parsed, err := ParseStatement(r)
	if err != nil {
		return nil, err
	}
	inserted, err := s.store.CreateBankTransactions(ctx, parsed.Transactions)
	if err != nil {
		span.RecordError(err)
		return nil, errs.Dependency("store bank transactions", err)
	}

	report := &ImportReport{
		Parsed:   len(parsed.Transactions),
		Inserted: inserted,
		Repeated: len(parsed.Transactions) - inserted,
		Skipped:  parsed.Skipped,
	}
	span.SetAttributes(
		attribute.Int("statement.parsed", report.Parsed),
		attribute.Int("statement.inserted", report.Inserted),
	)
	s.log.Info("statement imported",
		zap.Int("parsed", report.Parsed),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func (s *service) MatchPending(ctx context.Context, from, to time.Time) (*MatchReport, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.match")
	defer span.End()

	txs, err := s.store.ListBankTransactions(ctx, StatusImported, from, to)
	if err != nil {
		return nil, errs.Dependency("list bank transactions", err)
	}
	members, err := s.store.ListMembers(ctx, membership.StatusActive)
	if err != nil {
		return nil, errs.Dependency("list members", err)
	}
	refs, err := s.store.KnownReferences(ctx)
	if err != nil {
		return nil, errs.Dependency("load known references", err)
	}
	roster := NewRoster(members, refs)

	report := &MatchReport{ByTier: map[Tier]int{}}
	for i := range txs {
		tx := &txs[i]
		res := s.matcher.Match(*tx, roster)
		tx.Tier = res.Tier
		tx.Confidence = res.Confidence
		tx.Reason = res.Reason
		tx.MemberID = res.MemberID
		if res.MemberID != nil {
			tx.Status = StatusMatched
			report.Matched++
		}
		report.ByTier[res.Tier]++
		if err := s.store.UpdateBankTransaction(ctx, tx); err != nil {
			span.RecordError(err)
			return report, errs.Dependency("update bank transaction", err)
		}
	}

	span.SetAttributes(attribute.Int("transactions", len(txs)), attribute.Int("matched", report.Matched))
	s.log.Info("matching finished", zap.Int("transactions", len(txs)), zap.Int("matched", report.Matched))
	return report, nil
}

// Confirm records the transaction as a payment for the requested member, or the suggested
// one when none is given. A transaction the duplicate gate refuses outright is marked
// already_registered and the conflict is returned alongside it.
func (s *service) Confirm(ctx context.Context, req ConfirmRequest) (*BankTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.confirm",
		trace.WithAttributes(attribute.String("transaction.id", req.TransactionID.String())),
	)
	defer span.End()

	tx, err := s.store.GetBankTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, errs.Dependency("get bank transaction", err)
	}
	if !tx.Confirmable() {
		return nil, &errs.ConflictError{
			Resource: "bank_transaction",
			Key:      tx.ID.String(),
			Reason:   "transaction is " + string(tx.Status),
		}
	}

	memberID := tx.MemberID
	manual := false
	if req.MemberID != nil {
		manual = tx.MemberID == nil || *tx.MemberID != *req.MemberID
		memberID = req.MemberID
	}
	if memberID == nil {
		return nil, errs.Invalid("member_id", "transaction has no suggested member")
	}
	method := req.Method
	if method == "" {
		method = ledger.MethodTransfer
	}

	receipt, err := s.payments.Record(ctx, ledger.PaymentParams{
		MemberID:          *memberID,
		Date:              tx.Date,
		Amount:            tx.Amount,
		Method:            method,
		Reference:         tx.Reference,
		BankTransactionID: &tx.ID,
	}, req.Override)

	var conflict *errs.ConflictError
	if errors.As(err, &conflict) {
		tx.Status = StatusAlreadyRegistered
		tx.Reason = conflict.Reason
		tx.MemberID = memberID
		if uerr := s.store.UpdateBankTransaction(ctx, tx); uerr != nil {
			return nil, errs.Dependency("update bank transaction", uerr)
		}
		s.log.Info("transaction already registered",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("existing_payment", conflict.ExistingID),
		)
		return tx, err
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tx.Status = StatusProcessed
	tx.MemberID = memberID
	tx.PaymentID = &receipt.Payment.ID
	if err := s.store.UpdateBankTransaction(ctx, tx); err != nil {
		span.RecordError(err)
		return nil, errs.Dependency("update bank transaction", err)
	}

	event := TransactionConfirmedEvent{
		MemberID:  *memberID,
		PaymentID: receipt.Payment.ID,
		Amount:    tx.Amount.String(),
		Tier:      tx.Tier,
		Manual:    manual,
	}
	if err := s.journal.Record(ctx, tx.ID, audit.AggregateTransaction, "BankTransactionConfirmed", event); err != nil {
		s.log.Warn("journal append failed", zap.String("transaction_id", tx.ID.String()), zap.Error(err))
	}
	return tx, nil
}

func (s *service) List(ctx context.Context, status Status, from, to time.Time) ([]BankTransaction, error) {
	txs, err := s.store.ListBankTransactions(ctx, status, from, to)
	if err != nil {
		return nil, errs.Dependency("list bank transactions", err)
	}
	return txs, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BankTransaction, error) {
	tx, err := s.store.GetBankTransaction(ctx, id)
	if err != nil {
		return nil, errs.Dependency("get bank transaction", err)
	}
	return tx, nil
}
