// cmd/membership/main.go
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/billing"
	"clubledger/internal/membership"
	"clubledger/internal/postgres"
	"clubledger/internal/server"
)

func main() {
	ctx := context.Background()
	rt, err := server.Bootstrap(ctx, "membership")
	if err != nil {
		log.Fatalf("membership: %v", err)
	}
	defer rt.Close()

	if err := run(ctx, rt); err != nil {
		rt.Log.Fatal("membership service stopped", zap.Error(err))
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
	costs := billing.NewConfigLoader(store, rt.Log)
	svc := membership.NewService(store, costs, journal, rt.Log)

	r := server.NewRouter(rt.Log)
	if err := server.Merge(r, membership.NewHandler(svc, rt.Log).Routes()); err != nil {
		return err
	}
	return rt.Serve(ctx, r)
}
