// cmd/billing/main.go
package main

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"clubledger/internal/audit"
	"clubledger/internal/billing"
	"clubledger/internal/credit"
	"clubledger/internal/notify"
	"clubledger/internal/payments"
	"clubledger/internal/postgres"
	"clubledger/internal/server"
)

const (
	sessionTTL    = 30 * time.Minute
	sweepInterval = time.Hour
)

func main() {
	ctx := context.Background()
	rt, err := server.Bootstrap(ctx, "billing")
	if err != nil {
		log.Fatalf("billing: %v", err)
	}
	defer rt.Close()

	if err := run(ctx, rt); err != nil {
		rt.Log.Fatal("billing service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, rt *server.Runtime) error {
	cfg := rt.Config
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
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

	opts := []billing.Option{
		billing.WithJournal(journal),
		billing.WithWorkers(cfg.Batch.Workers),
		billing.WithMeterProvider(otel.GetMeterProvider()),
	}
	if cfg.SMTPEnabled() {
		opts = append(opts, billing.WithNotifier(notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, rt.Log)))
	} else {
		rt.Log.Info("SMTP_HOST not set, invoice e-mails disabled")
	}
	svc := billing.NewService(store, billing.NewConfigLoader(store, rt.Log), applier, rt.Log, opts...)
	recorder := payments.NewRecorder(store, payments.NewDuplicateDetector(payments.DefaultWindowDays), applier, journal, rt.Log)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go billing.RunOverdueSweep(sweepCtx, svc, sweepInterval, time.Now, rt.Log)

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	r := server.NewRouter(rt.Log)
	err = server.Merge(r,
		billing.NewHandler(svc, billing.NewSessionRegistry(sessionTTL), limiter, rt.Log).Routes(),
		payments.NewHandler(recorder, applier, rt.Log).Routes(),
		audit.NewHandler(journal, rt.Log).Routes(),
	)
	if err != nil {
		return err
	}
	return rt.Serve(ctx, r)
}
