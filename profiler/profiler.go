// Package profiler measures mean per-call latency of the resolver under test
// and the reference geocoder. It is observational: its scenarios never fail.
//
// One coordinate list is generated up front and reused by every phase, so
// the cold and warm phases see an identical input sequence.
package profiler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/metrics"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/scenario"
)

// Defaults for a full run.
const (
	DefaultIterations = 50_000
	DefaultWarmup     = 100
	DefaultSeed       = 2
)

// Targets.
const (
	TargetNoop      = "noop"
	TargetResolver  = "resolver"
	TargetReference = "reference"
)

// Phases.
const (
	PhaseBaseline = "baseline"
	PhaseWarmup   = "warmup"
	PhaseCold     = "cold"
	PhaseWarm     = "warm"
)

// Config tunes a profiling run.
type Config struct {
	Iterations int
	Warmup     int
	Seed       uint64
}

// DefaultConfig returns the full-run configuration.
func DefaultConfig() Config {
	return Config{Iterations: DefaultIterations, Warmup: DefaultWarmup, Seed: DefaultSeed}
}

// Validate checks config bounds.
func (c Config) Validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("profile iterations must be >= 1")
	}
	if c.Warmup < 0 || c.Warmup > c.Iterations {
		return fmt.Errorf("profile warmup must be within [0,iterations]")
	}
	return nil
}

// Measurement is the outcome of one phase.
type Measurement struct {
	Target    string        `json:"target"`
	Phase     string        `json:"phase"`
	Calls     int           `json:"calls"`
	Errors    int           `json:"errors"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	MsPerCall float64       `json:"ms_per_call"`
}

// Profiler times resolver calls over a fixed coordinate list.
type Profiler struct {
	config    Config
	resolver  ports.Resolver
	reference ports.Reference
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	locs      []coord.Coordinate
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Profiler) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(p *Profiler) { p.metrics = m } }

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option { return func(p *Profiler) { p.now = now } }

// New validates cfg and generates the coordinate list once.
func New(cfg Config, resolver ports.Resolver, reference ports.Reference, opts ...Option) (*Profiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, fmt.Errorf("profiler requires a resolver")
	}
	p := &Profiler{
		config:    cfg,
		resolver:  resolver,
		reference: reference,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.locs = coord.NewSampler(cfg.Seed, coord.WorldBound).Take(cfg.Iterations)
	return p, nil
}

// Coordinates returns the shared input list. Callers must not modify it.
func (p *Profiler) Coordinates() []coord.Coordinate {
	return p.locs
}

// Scenarios returns the profiling phases in order: baseline, warmups, cold
// runs, then warm runs. Reference phases are skipped when the reference
// geocoder is unavailable. record, when non-nil, receives each measurement.
func (p *Profiler) Scenarios(caps ports.Capabilities, record func(Measurement)) []scenario.Scenario {
	type step struct {
		name   string
		target string
		phase  string
		n      int
	}
	steps := []step{
		{"speed test for no-op", TargetNoop, PhaseBaseline, p.config.Iterations},
		{"speed test for reference (warmup)", TargetReference, PhaseWarmup, p.config.Warmup},
		{"speed test for resolver (warmup)", TargetResolver, PhaseWarmup, p.config.Warmup},
		{"speed test for reference", TargetReference, PhaseCold, p.config.Iterations},
		{"speed test for resolver", TargetResolver, PhaseCold, p.config.Iterations},
		{"speed test for reference (cached)", TargetReference, PhaseWarm, p.config.Iterations},
		{"speed test for resolver (cached)", TargetResolver, PhaseWarm, p.config.Iterations},
	}
	out := make([]scenario.Scenario, 0, len(steps))
	for _, s := range steps {
		out = append(out, scenario.Scenario{
			Name: s.name,
			Run: func() error {
				if s.target == TargetReference && (!caps.ReferenceResolverAvailable || p.reference == nil) {
					return scenario.Skip("reference geocoder unavailable")
				}
				m := p.Measure(s.target, s.phase, s.n)
				if record != nil {
					record(m)
				}
				return nil
			},
		})
	}
	return out
}

// Measure times n calls of target over the first n coordinates.
func (p *Profiler) Measure(target, phase string, n int) Measurement {
	if n > len(p.locs) {
		n = len(p.locs)
	}
	call := p.callFor(target)
	m := Measurement{Target: target, Phase: phase, Calls: n}

	start := p.now()
	for _, c := range p.locs[:n] {
		if err := call(c); err != nil {
			m.Errors++
		}
	}
	m.Elapsed = p.now().Sub(start)
	if n > 0 {
		m.MsPerCall = float64(m.Elapsed) / float64(time.Millisecond) / float64(n)
	}

	p.metrics.SetProfile(target, phase, m.MsPerCall)
	p.logger.Info(fmt.Sprintf("%.6fms per iteration", m.MsPerCall),
		"target", target,
		"phase", phase,
		"calls", n,
		"errors", m.Errors,
		"elapsed", m.Elapsed)
	return m
}

// callFor returns the timed call for target. A panicking collaborator counts
// as an error for that call.
func (p *Profiler) callFor(target string) func(coord.Coordinate) error {
	call := p.rawCall(target)
	return func(c coord.Coordinate) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return call(c)
	}
}

func (p *Profiler) rawCall(target string) func(coord.Coordinate) error {
	switch target {
	case TargetResolver:
		return func(c coord.Coordinate) error {
			_, err := p.resolver(c.Latitude, c.Longitude)
			return err
		}
	case TargetReference:
		return func(c coord.Coordinate) error {
			if p.reference == nil {
				return fmt.Errorf("reference geocoder unavailable")
			}
			_, err := p.reference(c.Latitude, c.Longitude)
			return err
		}
	default:
		return func(coord.Coordinate) error { return nil }
	}
}
