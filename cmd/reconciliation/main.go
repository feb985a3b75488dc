// cmd/reconciliation/main.go
package main

import (
	"context"
	"log"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"clubledger/internal/audit"
	"clubledger/internal/credit"
	"clubledger/internal/payments"
	"clubledger/internal/postgres"
	"clubledger/internal/reconciliation"
	"clubledger/internal/server"
)

func main() {
	ctx := context.Background()
	rt, err := server.Bootstrap(ctx, "reconciliation")
	if err != nil {
		log.Fatalf("reconciliation: %v", err)
	}
	defer rt.Close()

	if err := run(ctx, rt); err != nil {
		rt.Log.Fatal("reconciliation service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, rt *server.Runtime) error {
	db, err := postgres.Open(ctx, rt.Config.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		return err
	}

	store := postgres.NewStore(db)
	journal := audit.NewJournal(audit.NewPostgresStore(db))
	applier := credit.NewApplier(store, journal, rt.Log)
	recorder := payments.NewRecorder(store, payments.NewDuplicateDetector(payments.DefaultWindowDays), applier, journal, rt.Log)
	svc := reconciliation.NewService(store, recorder, journal, rt.Log)

	limiter := rate.NewLimiter(rate.Limit(rt.Config.RateLimit.RPS), rt.Config.RateLimit.Burst)
	r := server.NewRouter(rt.Log)
	if err := server.Merge(r, reconciliation.NewHandler(svc, limiter, rt.Log).Routes()); err != nil {
		return err
	}
	return rt.Serve(ctx, r)
}
