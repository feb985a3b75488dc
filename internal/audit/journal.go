// internal/audit/journal.go
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Aggregate types written by the billing core.
const (
	AggregateMember      = "member"
	AggregateInvoice     = "invoice"
	AggregatePayment     = "payment"
	AggregateTransaction = "bank_transaction"
)

// Event is one journal entry for an aggregate.
type Event struct {
	ID            int64             `json:"id"`
	AggregateID   uuid.UUID         `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	EventType     string            `json:"event_type"`
	EventData     json.RawMessage   `json:"event_data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Store is an append-only event log with optimistic versioning per aggregate.
// Append fails with ErrConcurrencyConflict unless e.Version is exactly one past
// the aggregate's current version.
type Store interface {
	Append(ctx context.Context, e Event) (int64, error)
	Version(ctx context.Context, aggregateID uuid.UUID) (int, error)
	History(ctx context.Context, aggregateID uuid.UUID) ([]Event, error)
	Since(ctx context.Context, after int64, limit int) ([]Event, error)
}

// Recorder is what domain services use to journal a fact.
type Recorder interface {
	Record(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, payload any) error
}

// Journal appends single events on top of a Store.
type Journal struct {
	store   Store
	retries int
}

// NewJournal wraps store. Version races are retried a few times before giving up.
func NewJournal(store Store) *Journal {
	return &Journal{store: store, retries: 3}
}

// Record marshals payload and appends it as the next version of the aggregate.
func (j *Journal) Record(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	var lastErr error
	for attempt := 0; attempt <= j.retries; attempt++ {
		version, err := j.store.Version(ctx, aggregateID)
		if err != nil {
			return fmt.Errorf("failed to read journal version: %w", err)
		}
		event := Event{
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			EventType:     eventType,
			EventData:     data,
			Version:       version + 1,
		}
		_, lastErr = j.store.Append(ctx, event)
		if !errors.Is(lastErr, ErrConcurrencyConflict) {
			break
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to append %s: %w", eventType, lastErr)
	}
	return nil
}

// History returns every event recorded for an aggregate.
func (j *Journal) History(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	return j.store.History(ctx, aggregateID)
}

// Tail returns up to limit events with an id greater than after.
func (j *Journal) Tail(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return j.store.Since(ctx, after, limit)
}

type discard struct{}

func (discard) Record(context.Context, uuid.UUID, string, string, any) error { return nil }

// Discard drops every event.
var Discard Recorder = discard{}
