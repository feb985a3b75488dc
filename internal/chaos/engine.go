// internal/chaos/engine.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrSteadyStateInvalid = errors.New("steady state invalid")

// Experiment defines a chaos engineering test.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Probe
	Method      []Action
	// Workload runs while the faults are active.
	Workload func(context.Context) error
	Rollback []Action
	// Recovery runs after rollback, before the final probes are sampled.
	Recovery   []Action
	Observe    []Probe
	Assertions []Assertion
}

// Probe measures one property of the system.
type Probe struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Holds reports whether value satisfies the threshold.
func (t Threshold) Holds(value float64) bool {
	switch t.Operator {
	case ">":
		return value > t.Value
	case "<":
		return value < t.Value
	case ">=":
		return value >= t.Value
	case "<=":
		return value <= t.Value
	case "==":
		return value == t.Value
	default:
		return false
	}
}

// Action is a fault injection, rollback or recovery step.
type Action struct {
	Type    string
	Target  string
	Execute func(context.Context) error
}

// Assertion validates an observed probe value once the experiment ends.
type Assertion struct {
	Metric    string
	Condition func(float64) bool
	Message   string
}

// Result captures one experiment execution.
type Result struct {
	Experiment       string             `json:"experiment"`
	StartTime        time.Time          `json:"start_time"`
	EndTime          time.Time          `json:"end_time"`
	Duration         time.Duration      `json:"duration"`
	SteadyStateValid bool               `json:"steady_state_valid"`
	HypothesisHeld   bool               `json:"hypothesis_held"`
	Violations       []Violation        `json:"violations,omitempty"`
	Observations     map[string]float64 `json:"observations"`
	Failed           []string           `json:"failed_assertions,omitempty"`
	Errors           []ErrorEvent       `json:"errors,omitempty"`
}

type Violation struct {
	Metric   string  `json:"metric"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// Engine orchestrates chaos experiments.
type Engine struct {
	tracer trace.Tracer
	log    *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	return &Engine{
		tracer: otel.Tracer("clubledger/chaos"),
		log:    log.Named("chaos"),
	}
}

// Run validates steady state, injects faults, runs the workload, rolls back, recovers
// and evaluates the assertions. Rollback runs even when the workload fails.
func (e *Engine) Run(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)))
	defer span.End()

	result := &Result{
		Experiment:   exp.Name,
		StartTime:    time.Now(),
		Observations: map[string]float64{},
	}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	span.AddEvent("validating_steady_state")
	if violations := e.sample(ctx, exp.SteadyState, nil); len(violations) > 0 {
		result.Violations = violations
		return result, fmt.Errorf("experiment %q: %w", exp.Name, ErrSteadyStateInvalid)
	}
	result.SteadyStateValid = true

	span.AddEvent("injecting_chaos")
	e.execute(ctx, exp.Method, result)

	if exp.Workload != nil {
		span.AddEvent("running_workload")
		if err := exp.Workload(ctx); err != nil {
			span.RecordError(err)
			result.Errors = append(result.Errors, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: "workload"})
		}
	}

	span.AddEvent("rolling_back")
	e.execute(ctx, exp.Rollback, result)

	span.AddEvent("recovering")
	e.execute(ctx, exp.Recovery, result)

	span.AddEvent("validating_assertions")
	result.Violations = append(result.Violations, e.sample(ctx, exp.Observe, result.Observations)...)
	result.HypothesisHeld = len(result.Errors) == 0
	for _, a := range exp.Assertions {
		value, ok := result.Observations[a.Metric]
		if !ok || !a.Condition(value) {
			result.HypothesisHeld = false
			result.Failed = append(result.Failed, a.Message)
		}
	}

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	e.log.Info("experiment finished",
		zap.String("experiment", exp.Name),
		zap.Bool("hypothesis_held", result.HypothesisHeld),
		zap.Strings("failed_assertions", result.Failed),
	)
	return result, nil
}

func (e *Engine) execute(ctx context.Context, actions []Action, result *Result) {
	for _, action := range actions {
		if err := action.Execute(ctx); err != nil {
			result.Errors = append(result.Errors, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: action.Target})
			e.log.Warn("chaos action failed", zap.String("type", action.Type), zap.String("target", action.Target), zap.Error(err))
		}
	}
}

// sample queries every probe, recording values into observations when it is non-nil.
func (e *Engine) sample(ctx context.Context, probes []Probe, observations map[string]float64) []Violation {
	var violations []Violation
	for _, p := range probes {
		value, err := p.Query(ctx)
		if err != nil {
			e.log.Warn("probe failed", zap.String("probe", p.Name), zap.Error(err))
			violations = append(violations, Violation{Metric: p.Name, Expected: p.Threshold.Value, Actual: -1})
			continue
		}
		if observations != nil {
			observations[p.Name] = value
		}
		if p.Threshold.Operator != "" && !p.Threshold.Holds(value) {
			violations = append(violations, Violation{Metric: p.Name, Expected: p.Threshold.Value, Actual: value})
		}
	}
	return violations
}
