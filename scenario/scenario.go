// Package scenario runs named, zero-argument checks strictly in declaration
// order.
//
// A scenario failing, skipping, or panicking never prevents later scenarios
// from running. The runner is independent of any test framework; go test,
// the tz-oracle CLI, or another shell can drive it.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lattice-substrate/tz-oracle/metrics"
	"github.com/lattice-substrate/tz-oracle/tzerr"
)

const tracerName = "github.com/lattice-substrate/tz-oracle/scenario"

// Status is the final state of one scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ErrSkipped marks a scenario whose prerequisites are unavailable.
var ErrSkipped = errors.New("scenario skipped")

// Skip returns an error that makes the runner record a skip.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// Scenario is one named check.
type Scenario struct {
	Name string
	Run  func() error
}

// Result is the outcome of one scenario.
type Result struct {
	Name     string
	Status   Status
	Err      error
	Duration time.Duration
}

// Summary aggregates a run.
type Summary struct {
	Results []Result
	Passed  int
	Failed  int
	Skipped int
}

// OK reports whether no scenario failed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Failures returns the failed results in run order.
func (s Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Runner executes scenarios sequentially.
type Runner struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Now     func() time.Time
}

// Run executes every scenario in order and returns the summary.
func (r *Runner) Run(scenarios []Scenario) Summary {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := r.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	summary := Summary{Results: make([]Result, 0, len(scenarios))}
	for _, s := range scenarios {
		_, span := tracer.Start(context.Background(), s.Name)
		start := now()
		err := invoke(s)
		res := Result{Name: s.Name, Err: err, Duration: now().Sub(start)}

		switch {
		case err == nil:
			res.Status = StatusPassed
			summary.Passed++
		case errors.Is(err, ErrSkipped):
			res.Status = StatusSkipped
			res.Err = nil
			summary.Skipped++
		default:
			res.Status = StatusFailed
			summary.Failed++
			span.RecordError(err)
			span.SetStatus(codes.Error, string(tzerr.ClassOf(err)))
		}
		span.SetAttributes(attribute.String("scenario.status", string(res.Status)))
		span.End()
		r.Metrics.ObserveScenario(string(res.Status), res.Duration)

		if res.Status == StatusFailed {
			logger.Error("scenario failed",
				"scenario", s.Name,
				"class", string(tzerr.ClassOf(err)),
				"duration", res.Duration,
				"error", err)
		} else {
			logger.Debug("scenario finished", "scenario", s.Name, "status", string(res.Status), "duration", res.Duration)
		}
		summary.Results = append(summary.Results, res)
	}
	return summary
}

func invoke(s Scenario) (err error) {
	if s.Run == nil {
		return tzerr.Newf(tzerr.InternalError, "scenario %q has no body", s.Name)
	}
	defer func() {
		if p := recover(); p != nil {
			err = tzerr.Newf(tzerr.ScenarioPanic, "panic: %v", p)
		}
	}()
	return s.Run()
}
