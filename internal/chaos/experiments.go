// internal/chaos/experiments.go
package chaos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clubledger/internal/billing"
	"clubledger/internal/ledger"
)

// BatchTarget is the billing run an experiment disturbs.
type BatchTarget struct {
	Billing billing.Service
	Store   *FaultyBillingStore
	Period  ledger.Period
	Today   time.Time
	// Members is the number of active members the batch should invoice.
	Members int
}

// PartialBatchFailure fails the invoice write of the faulted members during a commit and
// checks that no other member is affected and that a retry completes the batch.
func PartialBatchFailure(t BatchTarget, faulted []uuid.UUID) Experiment {
	return batchExperiment(t,
		"partial-batch-failure",
		"Storage failures for some members leave the rest of the batch invoiced, and a retry invoices the rest exactly once",
		Action{
			Type:   "fail-invoice-write",
			Target: "billing-store",
			Execute: func(context.Context) error {
				t.Store.FailMembers(faulted...)
				return nil
			},
		},
		func(failed int) bool { return failed == len(faulted) },
	)
}

// FlakyStorage fails invoice writes at a seeded rate.
func FlakyStorage(t BatchTarget, rate float64) Experiment {
	var before int
	return batchExperiment(t,
		"flaky-storage",
		"Randomly failing invoice writes are reported per member and recovered by a retry",
		Action{
			Type:   "fail-rate",
			Target: "billing-store",
			Execute: func(context.Context) error {
				before = t.Store.Injected()
				t.Store.FailRate(rate)
				return nil
			},
		},
		func(failed int) bool { return failed == t.Store.Injected()-before },
	)
}

func batchExperiment(t BatchTarget, name, hypothesis string, inject Action, failedOK func(int) bool) Experiment {
	var (
		session *billing.Session
		first   *billing.CommitSummary
	)
	return Experiment{
		Name:       name,
		Hypothesis: hypothesis,
		SteadyState: []Probe{{
			Name:      "period_invoices",
			Query:     func(ctx context.Context) (float64, error) { n, _, err := t.periodInvoices(ctx); return float64(n), err },
			Threshold: Threshold{Operator: "==", Value: 0},
		}},
		Method: []Action{inject},
		Workload: func(ctx context.Context) error {
			var err error
			session, err = t.Billing.Preview(ctx, t.Period, nil, t.Today)
			if err != nil {
				return fmt.Errorf("preview: %w", err)
			}
			first, err = t.Billing.Commit(ctx, session, nil, nil)
			if err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			return nil
		},
		Rollback: []Action{{
			Type:   "heal",
			Target: "billing-store",
			Execute: func(context.Context) error {
				t.Store.Reset()
				return nil
			},
		}},
		Recovery: []Action{{
			Type:   "retry-failed",
			Target: "billing",
			Execute: func(ctx context.Context) error {
				if session == nil || first == nil || len(first.RetryableMembers()) == 0 {
					return nil
				}
				retry, err := t.Billing.RetryFailed(ctx, session, t.Today)
				if err != nil {
					return fmt.Errorf("retry preview: %w", err)
				}
				if _, err := t.Billing.Commit(ctx, retry, nil, nil); err != nil {
					return fmt.Errorf("retry commit: %w", err)
				}
				return nil
			},
		}},
		Observe: []Probe{
			{
				Name: "failed_members",
				Query: func(context.Context) (float64, error) {
					if first == nil {
						return -1, nil
					}
					return float64(len(first.Failed)), nil
				},
			},
			{
				Name: "invoiced_members",
				Query: func(ctx context.Context) (float64, error) {
					_, members, err := t.periodInvoices(ctx)
					return float64(members), err
				},
			},
			{
				Name: "duplicate_invoices",
				Query: func(ctx context.Context) (float64, error) {
					n, members, err := t.periodInvoices(ctx)
					return float64(n - members), err
				},
			},
		},
		Assertions: []Assertion{
			{Metric: "failed_members", Condition: func(v float64) bool { return failedOK(int(v)) }, Message: "only faulted members fail"},
			{Metric: "invoiced_members", Condition: func(v float64) bool { return int(v) == t.Members }, Message: "retry invoices every member"},
			{Metric: "duplicate_invoices", Condition: func(v float64) bool { return v == 0 }, Message: "no member is invoiced twice"},
		},
	}
}

// periodInvoices counts periodic invoices for the target period and the distinct members holding them.
func (t BatchTarget) periodInvoices(ctx context.Context) (int, int, error) {
	invoices, err := t.Billing.ListInvoices(ctx, billing.InvoiceFilter{Period: t.Period})
	if err != nil {
		return 0, 0, err
	}
	members := map[uuid.UUID]bool{}
	n := 0
	for _, inv := range invoices {
		if inv.Kind != ledger.KindPeriodic {
			continue
		}
		n++
		members[inv.MemberID] = true
	}
	return n, len(members), nil
}
