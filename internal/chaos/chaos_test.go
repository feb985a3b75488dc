package chaos_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/billing"
	"clubledger/internal/chaos"
	"clubledger/internal/credit"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
	"clubledger/internal/memstore"
)

var march = ledger.Period{Month: time.March, Year: 2025}

func newTarget(t *testing.T, members int, seed int64) (chaos.BatchTarget, []uuid.UUID) {
	t.Helper()
	log := zap.NewNop()
	mem := memstore.New()
	loader := billing.NewConfigLoader(mem, log)
	faulty := chaos.NewFaultyBillingStore(mem, seed)
	svc := billing.NewService(faulty, loader, credit.NewApplier(mem, audit.Discard, log), log)
	registry := membership.NewService(mem, loader, audit.Discard, log)

	ids := make([]uuid.UUID, 0, members)
	for i := 1; i <= members; i++ {
		m, err := registry.RegisterMember(context.Background(), membership.MemberParams{
			Number:     i,
			NationalID: fmt.Sprintf("%d.111.111-1", i),
			Email:      "socio@example.com",
			FirstName:  "Ana",
			LastName:   "Rojas",
		})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	return chaos.BatchTarget{
		Billing: svc,
		Store:   faulty,
		Period:  march,
		Today:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Members: members,
	}, ids
}

func TestPartialBatchFailureHypothesisHolds(t *testing.T) {
	target, ids := newTarget(t, 5, 1)
	engine := chaos.NewEngine(zap.NewNop())

	result, err := engine.Run(context.Background(), chaos.PartialBatchFailure(target, ids[1:3]))
	require.NoError(t, err)
	assert.True(t, result.SteadyStateValid)
	assert.True(t, result.HypothesisHeld, "failed assertions: %v", result.Failed)
	assert.Equal(t, 2.0, result.Observations["failed_members"])
	assert.Equal(t, 5.0, result.Observations["invoiced_members"])
	assert.Equal(t, 0.0, result.Observations["duplicate_invoices"])
	assert.Equal(t, 2, target.Store.Injected())
}

func TestFlakyStorageRecovers(t *testing.T) {
	target, _ := newTarget(t, 6, 42)
	engine := chaos.NewEngine(zap.NewNop())

	result, err := engine.Run(context.Background(), chaos.FlakyStorage(target, 0.5))
	require.NoError(t, err)
	assert.True(t, result.HypothesisHeld, "failed assertions: %v", result.Failed)
	assert.Equal(t, 6.0, result.Observations["invoiced_members"])
}

func TestSteadyStateViolationAbortsBeforeInjection(t *testing.T) {
	target, ids := newTarget(t, 2, 1)
	ctx := context.Background()
	session, err := target.Billing.Preview(ctx, march, nil, target.Today)
	require.NoError(t, err)
	_, err = target.Billing.Commit(ctx, session, nil, nil)
	require.NoError(t, err)

	engine := chaos.NewEngine(zap.NewNop())
	result, err := engine.Run(ctx, chaos.PartialBatchFailure(target, ids))
	assert.True(t, errors.Is(err, chaos.ErrSteadyStateInvalid))
	assert.False(t, result.SteadyStateValid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "period_invoices", result.Violations[0].Metric)
	assert.Equal(t, 0, target.Store.Injected())
}

func TestRollbackRunsWhenWorkloadFails(t *testing.T) {
	var rolledBack bool
	engine := chaos.NewEngine(zap.NewNop())
	result, err := engine.Run(context.Background(), chaos.Experiment{
		Name:     "workload-error",
		Workload: func(context.Context) error { return errors.New("boom") },
		Rollback: []chaos.Action{{Type: "heal", Target: "test", Execute: func(context.Context) error {
			rolledBack = true
			return nil
		}}},
	})
	require.NoError(t, err)
	assert.True(t, rolledBack)
	assert.False(t, result.HypothesisHeld)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "workload", result.Errors[0].Component)
}

func TestThresholdHolds(t *testing.T) {
	cases := []struct {
		op    string
		value float64
		want  bool
	}{
		{">", 2, true}, {">", 1, false}, {"<", 0, true}, {">=", 1, true},
		{"<=", 1, true}, {"==", 1, true}, {"==", 2, false}, {"!=", 2, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, chaos.Threshold{Operator: tc.op, Value: 1}.Holds(tc.value), "%s %v", tc.op, tc.value)
	}
}

func TestFaultyStoreLatencyHonorsContext(t *testing.T) {
	mem := memstore.New()
	faulty := chaos.NewFaultyBillingStore(mem, 1)
	faulty.Latency(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := faulty.CreateInvoice(ctx, &ledger.Invoice{ID: uuid.New(), MemberID: uuid.New(), Number: "202503-0001"})
	assert.True(t, errors.Is(err, context.Canceled))

	faulty.Reset()
	faulty.FailMembers(uuid.Nil)
	err = faulty.CreateInvoice(context.Background(), &ledger.Invoice{ID: uuid.New(), MemberID: uuid.Nil, Number: "202503-0002"})
	assert.True(t, errors.Is(err, chaos.ErrInjected))
}
