package profiler_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/metrics"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/profiler"
	"github.com/lattice-substrate/tz-oracle/scenario"
)

// steppingClock advances one millisecond per reading.
func steppingClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestColdAndWarmPhasesSeeIdenticalInput(t *testing.T) {
	var calls [][]coord.Coordinate
	var current []coord.Coordinate
	resolver := func(args ...any) (string, error) {
		c, err := coord.Parse(args...)
		if err != nil {
			return "", err
		}
		current = append(current, c)
		return "Etc/GMT", nil
	}
	cfg := profiler.Config{Iterations: 200, Warmup: 10, Seed: 42}
	p, err := profiler.New(cfg, resolver, nil, profiler.WithLogger(quietLogger()), profiler.WithClock(steppingClock()))
	require.NoError(t, err)

	for _, phase := range []string{profiler.PhaseCold, profiler.PhaseWarm} {
		current = nil
		m := p.Measure(profiler.TargetResolver, phase, cfg.Iterations)
		assert.Equal(t, 200, m.Calls)
		assert.Zero(t, m.Errors)
		calls = append(calls, current)
	}
	require.Len(t, calls[0], 200)
	assert.Equal(t, calls[0], calls[1])
	assert.Equal(t, p.Coordinates(), calls[0])
}

func TestInputIsDeterministicAcrossProfilers(t *testing.T) {
	noop := func(...any) (string, error) { return "", nil }
	cfg := profiler.Config{Iterations: 50, Warmup: 5, Seed: 9}
	a, err := profiler.New(cfg, noop, nil)
	require.NoError(t, err)
	b, err := profiler.New(cfg, noop, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Coordinates(), b.Coordinates())
}

func TestMeasureReportsMillisecondsPerCall(t *testing.T) {
	m := metrics.New()
	failing := func(...any) (string, error) { return "", errors.New("no tile") }
	p, err := profiler.New(profiler.Config{Iterations: 4, Warmup: 1, Seed: 1}, failing, nil,
		profiler.WithLogger(quietLogger()), profiler.WithClock(steppingClock()), profiler.WithMetrics(m))
	require.NoError(t, err)

	got := p.Measure(profiler.TargetResolver, profiler.PhaseCold, 4)
	assert.Equal(t, time.Millisecond, got.Elapsed)
	assert.InDelta(t, 0.25, got.MsPerCall, 1e-9)
	assert.Equal(t, 4, got.Errors)

	n, err := testutil.GatherAndCount(m.Registry(), "tzoracle_profile_ms_per_call")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScenariosNeverFail(t *testing.T) {
	resolver := func(...any) (string, error) { return "", errors.New("broken") }
	reference := func(lat, lon float64) ([]string, error) { return []string{"Etc/GMT"}, nil }
	p, err := profiler.New(profiler.Config{Iterations: 20, Warmup: 5, Seed: 3}, resolver, reference,
		profiler.WithLogger(quietLogger()))
	require.NoError(t, err)

	var measured []profiler.Measurement
	scenarios := p.Scenarios(ports.Capabilities{ReferenceResolverAvailable: true}, func(m profiler.Measurement) {
		measured = append(measured, m)
	})
	require.Len(t, scenarios, 7)
	assert.Equal(t, "speed test for no-op", scenarios[0].Name)
	assert.Equal(t, "speed test for resolver (cached)", scenarios[6].Name)

	summary := (&scenario.Runner{Logger: quietLogger()}).Run(scenarios)
	assert.Equal(t, 7, summary.Passed)
	require.Len(t, measured, 7)
	assert.Equal(t, 5, measured[1].Calls)
	assert.Equal(t, profiler.PhaseWarmup, measured[2].Phase)
	assert.Equal(t, 20, measured[4].Errors)
}

func TestScenariosNeverFailOnPanickingCollaborators(t *testing.T) {
	resolver := func(...any) (string, error) { panic("boom") }
	reference := func(lat, lon float64) ([]string, error) { panic("boom") }
	p, err := profiler.New(profiler.Config{Iterations: 10, Warmup: 2, Seed: 3}, resolver, reference,
		profiler.WithLogger(quietLogger()))
	require.NoError(t, err)

	var measured []profiler.Measurement
	scenarios := p.Scenarios(ports.Capabilities{ReferenceResolverAvailable: true}, func(m profiler.Measurement) {
		measured = append(measured, m)
	})
	summary := (&scenario.Runner{Logger: quietLogger()}).Run(scenarios)
	assert.Equal(t, 7, summary.Passed, "failures: %v", summary.Failures())
	assert.Zero(t, summary.Failed)
	require.Len(t, measured, 7)
	assert.Zero(t, measured[0].Errors)
	assert.Equal(t, 2, measured[1].Errors)
	assert.Equal(t, 2, measured[2].Errors)
	assert.Equal(t, 10, measured[3].Errors)
	assert.Equal(t, 10, measured[6].Errors)
}

func TestWithNilLoggerKeepsDefault(t *testing.T) {
	noop := func(...any) (string, error) { return "Etc/GMT", nil }
	p, err := profiler.New(profiler.Config{Iterations: 3, Warmup: 1, Seed: 3}, noop, nil, profiler.WithLogger(nil))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m := p.Measure(profiler.TargetResolver, profiler.PhaseCold, 3)
		assert.Equal(t, 3, m.Calls)
	})
}

func TestReferencePhasesSkipWithoutCapability(t *testing.T) {
	noop := func(...any) (string, error) { return "Etc/GMT", nil }
	p, err := profiler.New(profiler.Config{Iterations: 5, Warmup: 1, Seed: 3}, noop, nil,
		profiler.WithLogger(quietLogger()))
	require.NoError(t, err)
	summary := (&scenario.Runner{Logger: quietLogger()}).Run(p.Scenarios(ports.Capabilities{}, nil))
	assert.Equal(t, 4, summary.Passed)
	assert.Equal(t, 3, summary.Skipped)
}

func TestNewRejectsBadConfig(t *testing.T) {
	noop := func(...any) (string, error) { return "", nil }
	_, err := profiler.New(profiler.Config{Iterations: 0}, noop, nil)
	assert.Error(t, err)
	_, err = profiler.New(profiler.Config{Iterations: 5, Warmup: 6}, noop, nil)
	assert.Error(t, err)
	_, err = profiler.New(profiler.DefaultConfig(), nil, nil)
	assert.Error(t, err)
}
