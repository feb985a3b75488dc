// cmd/chaos/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/billing"
	"clubledger/internal/chaos"
	"clubledger/internal/credit"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
	"clubledger/internal/memstore"
	"clubledger/internal/telemetry"
)

// Runs the billing game day against an in-memory ledger and exits non-zero when any
// hypothesis fails.
func main() {
	members := flag.Int("members", 20, "members to register before each experiment")
	faulted := flag.Int("faulted", 3, "members whose invoice write fails in the partial failure experiment")
	flakiness := flag.Float64("flaky-rate", 0.3, "failure probability in the flaky storage experiment")
	seed := flag.Int64("seed", time.Now().UnixNano(), "fault injection seed")
	flag.Parse()

	logger, err := telemetry.NewLogger("info", true)
	if err != nil {
		log.Fatalf("chaos: %v", err)
	}
	defer logger.Sync()

	if *faulted > *members {
		logger.Fatal("faulted members exceed registered members", zap.Int("faulted", *faulted), zap.Int("members", *members))
	}

	ctx := context.Background()
	engine := chaos.NewEngine(logger)
	experiments := []func() (chaos.Experiment, error){
		func() (chaos.Experiment, error) {
			target, ids, err := newTarget(ctx, *members, *seed, logger)
			if err != nil {
				return chaos.Experiment{}, err
			}
			return chaos.PartialBatchFailure(target, ids[:*faulted]), nil
		},
		func() (chaos.Experiment, error) {
			target, _, err := newTarget(ctx, *members, *seed, logger)
			if err != nil {
				return chaos.Experiment{}, err
			}
			return chaos.FlakyStorage(target, *flakiness), nil
		},
	}

	failed := 0
	for _, build := range experiments {
		exp, err := build()
		if err != nil {
			logger.Fatal("failed to prepare experiment", zap.Error(err))
		}
		result, err := engine.Run(ctx, exp)
		if err != nil {
			logger.Error("experiment aborted", zap.String("experiment", exp.Name), zap.Error(err))
			failed++
			continue
		}
		fields := []zap.Field{
			zap.String("experiment", result.Experiment),
			zap.Bool("hypothesis_held", result.HypothesisHeld),
			zap.Duration("duration", result.Duration),
			zap.Any("observations", result.Observations),
		}
		if !result.HypothesisHeld {
			failed++
			logger.Error("hypothesis rejected", append(fields, zap.Strings("failed", result.Failed))...)
			continue
		}
		logger.Info("hypothesis held", fields...)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d experiments failed\n", failed, len(experiments))
		os.Exit(1)
	}
}

func newTarget(ctx context.Context, members int, seed int64, log *zap.Logger) (chaos.BatchTarget, []uuid.UUID, error) {
	mem := memstore.New()
	loader := billing.NewConfigLoader(mem, log)
	faulty := chaos.NewFaultyBillingStore(mem, seed)
	svc := billing.NewService(faulty, loader, credit.NewApplier(mem, audit.Discard, log), log)
	registry := membership.NewService(mem, loader, audit.Discard, log)

	ids := make([]uuid.UUID, 0, members)
	for i := 1; i <= members; i++ {
		m, err := registry.RegisterMember(ctx, membership.MemberParams{
			Number:     i,
			NationalID: fmt.Sprintf("%d.000.000-%d", 10+i, i%10),
			Email:      fmt.Sprintf("socio%d@example.com", i),
			FirstName:  "Socio",
			LastName:   fmt.Sprintf("Numero %d", i),
		})
		if err != nil {
			return chaos.BatchTarget{}, nil, err
		}
		ids = append(ids, m.ID)
	}

	today := time.Now().UTC()
	return chaos.BatchTarget{
		Billing: svc,
		Store:   faulty,
		Period:  ledger.PeriodOf(today),
		Today:   today,
		Members: members,
	}, ids, nil
}
