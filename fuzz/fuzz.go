// Package fuzz bounds aggregate disagreement between the resolver under test
// and the reference geocoder over random inhabited coordinates.
//
// Independently maintained boundary datasets disagree at a low baseline
// rate, so the validator records every disagreement and fails once, at the
// end, only when the mismatch percentage exceeds the configured budget.
package fuzz

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/metrics"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/scenario"
	"github.com/lattice-substrate/tz-oracle/tzerr"
	"github.com/lattice-substrate/tz-oracle/zoneeq"
)

// Defaults for a full run.
const (
	DefaultSamples          = 50_000
	DefaultThresholdPercent = 8
	DefaultMismatchLimit    = 10
	DefaultSeed             = 1
)

// ScenarioName is the name of the fuzz scenario.
const ScenarioName = "should match random inhabited locations"

// Config tunes a fuzz run.
type Config struct {
	// Samples is the number of coordinates drawn before the inhabited filter.
	Samples int
	// ThresholdPercent is the largest mismatch percentage that still passes.
	ThresholdPercent int
	// MismatchLimit caps the records included in a failure report.
	MismatchLimit int
	Seed          uint64
}

// DefaultConfig returns the full-run configuration.
func DefaultConfig() Config {
	return Config{
		Samples:          DefaultSamples,
		ThresholdPercent: DefaultThresholdPercent,
		MismatchLimit:    DefaultMismatchLimit,
		Seed:             DefaultSeed,
	}
}

// Validate checks config bounds.
func (c Config) Validate() error {
	if c.Samples < 1 {
		return fmt.Errorf("fuzz samples must be >= 1")
	}
	if c.ThresholdPercent < 0 || c.ThresholdPercent > 100 {
		return fmt.Errorf("fuzz threshold_percent must be within [0,100]")
	}
	if c.MismatchLimit < 0 {
		return fmt.Errorf("fuzz mismatch_limit cannot be negative")
	}
	return nil
}

// MismatchRecord is one disagreement, with coordinates rounded to three
// decimals.
type MismatchRecord struct {
	Latitude  string `json:"lat"`
	Longitude string `json:"lon"`
	Error     string `json:"error"`
}

// Result summarizes a fuzz run.
type Result struct {
	Samples         int              `json:"samples"`
	Inhabited       int              `json:"inhabited"`
	Matches         int              `json:"matches"`
	Mismatches      []MismatchRecord `json:"-"`
	MismatchCount   int              `json:"mismatch_count"`
	MismatchPercent int              `json:"mismatch_percent"`
}

// FirstMismatches returns at most n records in sample order.
func (r Result) FirstMismatches(n int) []MismatchRecord {
	if n > len(r.Mismatches) {
		n = len(r.Mismatches)
	}
	if n <= 0 {
		return nil
	}
	return append([]MismatchRecord(nil), r.Mismatches[:n]...)
}

// MismatchPercent is round(100 * mismatches / matches), rounding halves up.
// The denominator is the number of successful comparisons; with no matches
// any mismatch counts as 100 percent.
func MismatchPercent(mismatches, matches int) int {
	if mismatches == 0 {
		return 0
	}
	if matches == 0 {
		return 100
	}
	return int(math.Floor(100*float64(mismatches)/float64(matches) + 0.5))
}

// BudgetExceeded is the single failure a fuzz run raises.
type BudgetExceeded struct {
	Percent   int
	Threshold int
	Matches   int
	Count     int
	First     []MismatchRecord
}

func (e *BudgetExceeded) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "too many mismatches: %d%% exceeds budget %d%% (%d mismatches, %d matches)",
		e.Percent, e.Threshold, e.Count, e.Matches)
	if len(e.First) > 0 {
		fmt.Fprintf(&b, "; first %d:", len(e.First))
		for _, m := range e.First {
			fmt.Fprintf(&b, " [%s, %s: %s]", m.Latitude, m.Longitude, m.Error)
		}
	}
	return b.String()
}

// FailureClass implements tzerr classification.
func (e *BudgetExceeded) FailureClass() tzerr.FailureClass {
	return tzerr.ErrorBudgetExceeded
}

// Validator runs the statistical comparison.
type Validator struct {
	Config     Config
	Resolver   ports.Resolver
	Reference  ports.Reference
	Inhabited  ports.Inhabited
	Comparator *zoneeq.Comparator
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Scenario wraps Run as a scenario, skipped unless both the reference
// geocoder and the inhabited oracle are available.
func (v *Validator) Scenario(caps ports.Capabilities, record func(Result)) scenario.Scenario {
	return scenario.Scenario{
		Name: ScenarioName,
		Run: func() error {
			if !caps.ReferenceResolverAvailable || !caps.InhabitedOracleAvailable {
				return scenario.Skip("reference geocoder or inhabited oracle unavailable")
			}
			res, err := v.Run()
			if record != nil {
				record(res)
			}
			return err
		},
	}
}

// Run draws Config.Samples coordinates, compares every inhabited one, and
// returns the result together with a *BudgetExceeded when the mismatch
// percentage is over budget.
func (v *Validator) Run() (Result, error) {
	if err := v.Config.Validate(); err != nil {
		return Result{}, tzerr.Wrap(tzerr.InternalError, "fuzz config", err)
	}
	if v.Resolver == nil || v.Reference == nil || v.Inhabited == nil || v.Comparator == nil {
		return Result{}, tzerr.New(tzerr.InternalError, "fuzz validator requires resolver, reference, inhabited oracle and comparator")
	}
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sampler := coord.NewSampler(v.Config.Seed, coord.WorldBound)
	res := Result{Samples: v.Config.Samples}
	for i := 0; i < v.Config.Samples; i++ {
		c := sampler.Next()
		if !v.Inhabited(c.Latitude, c.Longitude) {
			v.Metrics.IncFuzzSample(metrics.OutcomeUninhabited)
			continue
		}
		res.Inhabited++
		if err := v.compare(c); err != nil {
			lat, lon := c.Rounded()
			res.Mismatches = append(res.Mismatches, MismatchRecord{Latitude: lat, Longitude: lon, Error: err.Error()})
			v.Metrics.IncFuzzSample(metrics.OutcomeMismatch)
			continue
		}
		res.Matches++
		v.Metrics.IncFuzzSample(metrics.OutcomeMatch)
	}
	res.MismatchCount = len(res.Mismatches)
	res.MismatchPercent = MismatchPercent(res.MismatchCount, res.Matches)
	v.Metrics.SetFuzzMismatchPercent(res.MismatchPercent)

	first := res.FirstMismatches(v.Config.MismatchLimit)
	logger.Info("fuzz run complete",
		"samples", res.Samples,
		"inhabited", res.Inhabited,
		"matches", res.Matches,
		"mismatches", res.MismatchCount,
		"percent_mismatch", res.MismatchPercent,
		"threshold_percent", v.Config.ThresholdPercent,
		"first_mismatches", first)

	if res.MismatchPercent > v.Config.ThresholdPercent {
		return res, &BudgetExceeded{
			Percent:   res.MismatchPercent,
			Threshold: v.Config.ThresholdPercent,
			Matches:   res.Matches,
			Count:     res.MismatchCount,
			First:     first,
		}
	}
	return res, nil
}

func (v *Validator) compare(c coord.Coordinate) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	zone, err := v.Resolver(c.Latitude, c.Longitude)
	if err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	candidates, err := v.Reference(c.Latitude, c.Longitude)
	if err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	return v.Comparator.AnyEquivalent(zone, candidates...)
}
