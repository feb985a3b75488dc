// internal/chaos/faults.go
package chaos

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"clubledger/internal/billing"
	"clubledger/internal/ledger"
)

var ErrInjected = errors.New("chaos: injected storage failure")

// FaultyBillingStore wraps a billing.Store and fails invoice creation for chosen members,
// or at a seeded rate, optionally after a delay. Every other method passes through.
type FaultyBillingStore struct {
	billing.Store

	mu       sync.Mutex
	failFor  map[uuid.UUID]bool
	rate     float64
	latency  time.Duration
	rng      *rand.Rand
	injected int
}

func NewFaultyBillingStore(inner billing.Store, seed int64) *FaultyBillingStore {
	return &FaultyBillingStore{
		Store:   inner,
		failFor: map[uuid.UUID]bool{},
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// FailMembers makes invoice creation fail for ids until Reset.
func (f *FaultyBillingStore) FailMembers(ids ...uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.failFor[id] = true
	}
}

// FailRate fails each invoice creation with probability rate in [0, 1].
func (f *FaultyBillingStore) FailRate(rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = rate
}

// Latency delays every invoice creation by d.
func (f *FaultyBillingStore) Latency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// Reset removes every fault. The injected counter is kept.
func (f *FaultyBillingStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor = map[uuid.UUID]bool{}
	f.rate = 0
	f.latency = 0
}

// Injected is the number of failures returned so far.
func (f *FaultyBillingStore) Injected() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.injected
}

func (f *FaultyBillingStore) CreateInvoice(ctx context.Context, inv *ledger.Invoice) error {
	f.mu.Lock()
	latency := f.latency
	fail := f.failFor[inv.MemberID] || (f.rate > 0 && f.rng.Float64() < f.rate)
	if fail {
		f.injected++
	}
	f.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return ErrInjected
	}
	return f.Store.CreateInvoice(ctx, inv)
}
