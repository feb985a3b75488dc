// internal/audit/postgres.go
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const eventColumns = `id, aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at`

// PostgresStore is the journal backed by the billing_events table.
// The (aggregate_id, version) unique key is the only concurrency guard.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a journal store on db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("clubledger/audit"),
	}
}

func (s *PostgresStore) Append(ctx context.Context, e Event) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "audit.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", e.AggregateID.String()),
			attribute.String("aggregate.type", e.AggregateType),
			attribute.String("event.type", e.EventType),
			attribute.Int("event.version", e.Version),
		),
	)
	defer span.End()

	if e.Version < 1 {
		return 0, ErrInvalidVersion
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal metadata: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO billing_events (aggregate_id, aggregate_type, event_type, event_data, metadata, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.AggregateID, e.AggregateType, e.EventType, []byte(e.EventData), metadata, e.Version).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
			return 0, ErrConcurrencyConflict
		}
		return 0, fmt.Errorf("insert event: %w", err)
	}
	span.SetAttributes(attribute.Int64("event.id", id))
	return id, nil
}

func (s *PostgresStore) Version(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM billing_events WHERE aggregate_id = $1`,
		aggregateID,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("query version: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) History(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := s.tracer.Start(ctx, "audit.history",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM billing_events WHERE aggregate_id = $1 ORDER BY version`,
		aggregateID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

func (s *PostgresStore) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM billing_events WHERE id > $1 ORDER BY id LIMIT $2`,
		after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal tail: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var data, metadata []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &data, &metadata, &e.Version, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.EventData = json.RawMessage(data)
		if len(metadata) > 0 && string(metadata) != "null" {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for event %d: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
