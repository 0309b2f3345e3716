// Package oracle assembles the full regression and accuracy suite for a
// coordinate-to-timezone resolver.
//
// Every collaborator is injected through Suite. Scenarios run in a fixed
// order: dataset cases (exact, then reference), pole collapse, string-input
// parity, profiling phases, the fuzz run, and finally invalid inputs.
package oracle

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/lattice-substrate/tz-oracle/dataset"
	"github.com/lattice-substrate/tz-oracle/fuzz"
	"github.com/lattice-substrate/tz-oracle/invalidinput"
	"github.com/lattice-substrate/tz-oracle/metrics"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/profiler"
	"github.com/lattice-substrate/tz-oracle/regression"
	"github.com/lattice-substrate/tz-oracle/scenario"
	"github.com/lattice-substrate/tz-oracle/tzerr"
	"github.com/lattice-substrate/tz-oracle/zoneeq"
)

// Suite is one configured oracle run.
type Suite struct {
	Resolver     ports.Resolver
	Reference    ports.Reference
	Inhabited    ports.Inhabited
	Capabilities ports.Capabilities

	// Offsets defaults to zoneeq.TZDataOffsets and Instants to
	// zoneeq.DefaultInstants.
	Offsets  zoneeq.OffsetOracle
	Instants *zoneeq.ReferenceInstants

	// Cases defaults to the embedded dataset.
	Cases []dataset.TestCase

	Fuzz           fuzz.Config
	Profile        profiler.Config
	DisableFuzz    bool
	DisableProfile bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Now     func() time.Time
}

// Outcome is everything a run produced.
type Outcome struct {
	Summary  scenario.Summary
	Instants zoneeq.ReferenceInstants
	Fuzz     *fuzz.Result
	Profile  []profiler.Measurement
}

// Validate checks that every declared capability has its collaborator.
func (s *Suite) Validate() error {
	if s.Resolver == nil {
		return tzerr.New(tzerr.InternalError, "suite requires a resolver")
	}
	if s.Capabilities.ReferenceResolverAvailable && s.Reference == nil {
		return tzerr.New(tzerr.InternalError, "reference capability declared without a reference geocoder")
	}
	if s.Capabilities.InhabitedOracleAvailable && s.Inhabited == nil {
		return tzerr.New(tzerr.InternalError, "inhabited capability declared without an inhabited oracle")
	}
	if !s.DisableFuzz {
		if err := s.fuzzConfig().Validate(); err != nil {
			return tzerr.Wrap(tzerr.InternalError, "fuzz config", err)
		}
	}
	if !s.DisableProfile {
		if err := s.profileConfig().Validate(); err != nil {
			return tzerr.Wrap(tzerr.InternalError, "profile config", err)
		}
	}
	return nil
}

// Scenarios validates the suite and returns its scenarios in run order.
// Fuzz and profiling results are written into out as the scenarios run.
func (s *Suite) Scenarios(out *Outcome) ([]scenario.Scenario, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		out = &Outcome{}
	}
	cmp := s.comparator()
	out.Instants = cmp.Instants()

	cases := s.Cases
	if cases == nil {
		var err error
		cases, err = dataset.Cases()
		if err != nil {
			return nil, tzerr.Wrap(tzerr.InternalError, "load dataset", err)
		}
	}

	reg := &regression.Runner{
		Resolver:     s.Resolver,
		Reference:    s.Reference,
		Comparator:   cmp,
		Capabilities: s.Capabilities,
	}
	var all []scenario.Scenario
	all = append(all, reg.Scenarios(cases)...)
	all = append(all, reg.PoleScenarios()...)
	all = append(all, reg.ParityScenarios(cases)...)

	if !s.DisableProfile {
		p, err := profiler.New(s.profileConfig(), s.Resolver, s.Reference,
			profiler.WithLogger(s.logger()), profiler.WithMetrics(s.Metrics))
		if err != nil {
			return nil, tzerr.Wrap(tzerr.InternalError, "profiler", err)
		}
		all = append(all, p.Scenarios(s.Capabilities, func(m profiler.Measurement) {
			out.Profile = append(out.Profile, m)
		})...)
	}

	if !s.DisableFuzz {
		v := &fuzz.Validator{
			Config:     s.fuzzConfig(),
			Resolver:   s.Resolver,
			Reference:  s.Reference,
			Inhabited:  s.Inhabited,
			Comparator: cmp,
			Logger:     s.logger(),
			Metrics:    s.Metrics,
		}
		all = append(all, v.Scenario(s.Capabilities, func(r fuzz.Result) {
			out.Fuzz = &r
		}))
	}

	all = append(all, invalidinput.Scenarios(s.Resolver, invalidinput.Inputs)...)
	return all, nil
}

// Run executes the suite. The returned error is non-nil only when the suite
// could not be assembled; scenario failures are reported in the summary.
func (s *Suite) Run() (*Outcome, error) {
	out := &Outcome{}
	scenarios, err := s.Scenarios(out)
	if err != nil {
		return nil, err
	}
	runner := &scenario.Runner{Logger: s.logger(), Metrics: s.Metrics, Tracer: s.Tracer, Now: s.Now}
	out.Summary = runner.Run(scenarios)
	s.logger().Info("suite complete",
		"passed", out.Summary.Passed,
		"failed", out.Summary.Failed,
		"skipped", out.Summary.Skipped)
	return out, nil
}

func (s *Suite) comparator() *zoneeq.Comparator {
	offsets := s.Offsets
	if offsets == nil {
		offsets = zoneeq.NewTZDataOffsets()
	}
	instants := zoneeq.DefaultInstants
	if s.Instants != nil {
		instants = *s.Instants
	}
	return zoneeq.New(offsets, instants)
}

func (s *Suite) fuzzConfig() fuzz.Config {
	if s.Fuzz == (fuzz.Config{}) {
		return fuzz.DefaultConfig()
	}
	return s.Fuzz
}

func (s *Suite) profileConfig() profiler.Config {
	if s.Profile == (profiler.Config{}) {
		return profiler.DefaultConfig()
	}
	return s.Profile
}

func (s *Suite) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
