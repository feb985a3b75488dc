// internal/payments/recorder.go
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/errs"
	"clubledger/internal/ledger"
)

var ErrOverrideRequired = errors.New("possible duplicate payment: override required")

// WarningError carries a medium or low duplicate verdict the operator has not overridden.
type WarningError struct {
	Verdict Verdict
}

func (e *WarningError) Error() string {
	return fmt.Sprintf("%s duplicate: %s", e.Verdict.Confidence, e.Verdict.Reason)
}

func (e *WarningError) Is(target error) bool { return target == ErrOverrideRequired }

// Receipt is the result of recording a payment.
type Receipt struct {
	Payment      *ledger.Payment            `json:"payment"`
	Verdict      Verdict                    `json:"verdict"`
	Overridden   bool                       `json:"overridden"`
	Applications []ledger.CreditApplication `json:"applications,omitempty"`
}

// PaymentRecordedEvent is journaled for every stored payment.
type PaymentRecordedEvent struct {
	MemberID   uuid.UUID  `json:"member_id"`
	Amount     string     `json:"amount"`
	Method     string     `json:"method"`
	Reference  string     `json:"reference,omitempty"`
	Overridden Confidence `json:"overridden,omitempty"`
}

// Recorder gates payment writes behind the duplicate detector.
type Recorder struct {
	store      Store
	detector   DuplicateDetector
	settler    Settler
	journal    audit.Recorder
	log        *zap.Logger
	tracer     trace.Tracer
	duplicates metric.Int64Counter
}

func NewRecorder(store Store, detector DuplicateDetector, settler Settler, journal audit.Recorder, log *zap.Logger) *Recorder {
	if journal == nil {
		journal = audit.Discard
	}
	counter, _ := otel.Meter("clubledger/payments").Int64Counter("payments.duplicates")
	return &Recorder{
		store:      store,
		detector:   detector,
		settler:    settler,
		journal:    journal,
		log:        log.Named("payments"),
		tracer:     otel.Tracer("clubledger/payments"),
		duplicates: counter,
	}
}

// Check runs the duplicate detector without writing.
func (r *Recorder) Check(ctx context.Context, params ledger.PaymentParams) (Verdict, error) {
	candidate, err := ledger.NewPayment(params)
	if err != nil {
		return Verdict{}, err
	}
	existing, err := r.store.ListPayments(ctx, candidate.MemberID)
	if err != nil {
		return Verdict{}, errs.Dependency("list payments", err)
	}
	return r.detector.Check(*candidate, existing), nil
}

// Record stores a payment. High-confidence duplicates are refused with *errs.ConflictError;
// medium and low ones are refused with *WarningError unless override is set. After the write
// the member's credit is settled against open invoices.
func (r *Recorder) Record(ctx context.Context, params ledger.PaymentParams, override bool) (*Receipt, error) {
	ctx, span := r.tracer.Start(ctx, "payments.record",
		trace.WithAttributes(
			attribute.String("member.id", params.MemberID.String()),
			attribute.Bool("override", override),
		),
	)
	defer span.End()

	candidate, err := ledger.NewPayment(params)
	if err != nil {
		return nil, err
	}
	existing, err := r.store.ListPayments(ctx, candidate.MemberID)
	if err != nil {
		span.RecordError(err)
		return nil, errs.Dependency("list payments", err)
	}

	verdict := r.detector.Check(*candidate, existing)
	if verdict.IsDuplicate {
		span.SetAttributes(attribute.String("duplicate.confidence", string(verdict.Confidence)))
		if r.duplicates != nil {
			r.duplicates.Add(ctx, 1, metric.WithAttributes(attribute.String("confidence", string(verdict.Confidence))))
		}
	}
	if verdict.Blocks() {
		existingID := ""
		if verdict.ExistingPaymentID != nil {
			existingID = verdict.ExistingPaymentID.String()
		}
		return nil, &errs.ConflictError{Resource: "payment", Key: candidate.Reference, Reason: verdict.Reason, ExistingID: existingID}
	}
	if verdict.NeedsOverride() && !override {
		return nil, &WarningError{Verdict: verdict}
	}

	if err := r.store.CreatePayment(ctx, candidate); err != nil {
		span.RecordError(err)
		return nil, errs.Dependency("create payment", err)
	}

	receipt := &Receipt{Payment: candidate, Verdict: verdict, Overridden: verdict.NeedsOverride()}
	log := r.log.With(zap.String("member_id", candidate.MemberID.String()), zap.String("payment_id", candidate.ID.String()))
	if receipt.Overridden {
		log.Warn("duplicate warning overridden",
			zap.String("confidence", string(verdict.Confidence)),
			zap.String("reason", verdict.Reason),
		)
	}

	event := PaymentRecordedEvent{
		MemberID:  candidate.MemberID,
		Amount:    candidate.Amount.String(),
		Method:    string(candidate.Method),
		Reference: candidate.Reference,
	}
	if receipt.Overridden {
		event.Overridden = verdict.Confidence
	}
	if err := r.journal.Record(ctx, candidate.ID, audit.AggregatePayment, "PaymentRecorded", event); err != nil {
		log.Warn("journal append failed", zap.Error(err))
	}

	if r.settler != nil {
		apps, err := r.settler.Settle(ctx, candidate.MemberID)
		if err != nil {
			log.Error("credit settlement failed", zap.Error(err))
		}
		receipt.Applications = apps
	}
	return receipt, nil
}

// List returns a member's payments.
func (r *Recorder) List(ctx context.Context, memberID uuid.UUID) ([]ledger.Payment, error) {
	payments, err := r.store.ListPayments(ctx, memberID)
	if err != nil {
		return nil, errs.Dependency("list payments", err)
	}
	return payments, nil
}
