package fuzz_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/fuzz"
	"github.com/lattice-substrate/tz-oracle/metrics"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/scenario"
	"github.com/lattice-substrate/tz-oracle/tzerr"
	"github.com/lattice-substrate/tz-oracle/zoneeq"
)

func TestMismatchPercent(t *testing.T) {
	cases := []struct {
		mismatches, matches, want int
	}{
		{0, 0, 0},
		{0, 100, 0},
		{5, 0, 100},
		{1, 2, 50},
		{1, 200, 1},
		{1, 201, 0},
		{8, 100, 8},
		{17, 200, 9},
		{3, 1, 300},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, fuzz.MismatchPercent(tc.mismatches, tc.matches),
			"MismatchPercent(%d, %d)", tc.mismatches, tc.matches)
	}
}

// Land is everything between 60S and 60N.
func temperate(lat, _ float64) bool { return lat > -60 && lat < 60 }

func constResolver(zone string) ports.Resolver {
	return func(args ...any) (string, error) {
		if _, err := coord.Parse(args...); err != nil {
			return "", err
		}
		return zone, nil
	}
}

// referenceDisagreeingEastOf returns an inequivalent zone east of lon.
func referenceDisagreeingEastOf(lon float64) ports.Reference {
	return func(lat, l float64) ([]string, error) {
		if l > lon {
			return []string{"Etc/GMT-5,Etc/GMT-6"}, nil
		}
		return []string{"Etc/GMT-9", "Etc/GMT"}, nil
	}
}

func newValidator(samples int, ref ports.Reference) *fuzz.Validator {
	cfg := fuzz.DefaultConfig()
	cfg.Samples = samples
	return &fuzz.Validator{
		Config:     cfg,
		Resolver:   constResolver("Etc/GMT"),
		Reference:  ref,
		Inhabited:  temperate,
		Comparator: zoneeq.NewDefault(),
		Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Metrics:    metrics.New(),
	}
}

func TestRunWithinBudget(t *testing.T) {
	v := newValidator(5000, referenceDisagreeingEastOf(170))
	res, err := v.Run()
	require.NoError(t, err)

	assert.Equal(t, 5000, res.Samples)
	assert.Greater(t, res.Inhabited, 3000)
	assert.Less(t, res.Inhabited, 3700)
	assert.Equal(t, res.Inhabited, res.Matches+res.MismatchCount)
	assert.Positive(t, res.MismatchCount)
	assert.LessOrEqual(t, res.MismatchPercent, 8)

	n, err := testutil.GatherAndCount(v.Metrics.Registry(), "tzoracle_fuzz_samples_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRunOverBudgetReportsOnce(t *testing.T) {
	v := newValidator(5000, referenceDisagreeingEastOf(140))
	res, err := v.Run()
	require.Error(t, err)

	var budget *fuzz.BudgetExceeded
	require.True(t, errors.As(err, &budget))
	assert.Equal(t, tzerr.ErrorBudgetExceeded, tzerr.ClassOf(err))
	assert.Greater(t, budget.Percent, 8)
	assert.Equal(t, res.MismatchPercent, budget.Percent)
	assert.Len(t, budget.First, fuzz.DefaultMismatchLimit)
	assert.Equal(t, res.Mismatches[:fuzz.DefaultMismatchLimit], budget.First)
	assert.Contains(t, err.Error(), "too many mismatches")
	assert.Contains(t, err.Error(), "first 10:")

	for _, m := range res.Mismatches {
		assert.Regexp(t, `^-?\d+\.\d{3}$`, m.Latitude)
		assert.Regexp(t, `^-?\d+\.\d{3}$`, m.Longitude)
		assert.Contains(t, m.Error, "Etc/GMT-5")
		assert.Contains(t, m.Error, "Etc/GMT-6")
	}
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	a, errA := newValidator(2000, referenceDisagreeingEastOf(140)).Run()
	b, errB := newValidator(2000, referenceDisagreeingEastOf(140)).Run()
	require.Equal(t, errA == nil, errB == nil)
	assert.Equal(t, a, b)
}

func TestResolverAndReferenceErrorsAreRecorded(t *testing.T) {
	v := newValidator(500, func(lat, lon float64) ([]string, error) {
		if lon < 0 {
			return nil, errors.New("no polygon")
		}
		return []string{"Etc/GMT"}, nil
	})
	v.Resolver = func(args ...any) (string, error) {
		c, err := coord.Parse(args...)
		if err != nil {
			return "", err
		}
		if c.Latitude > 50 {
			return "", errors.New("tile missing")
		}
		return "Etc/GMT", nil
	}
	v.Config.ThresholdPercent = 50
	v.Config.MismatchLimit = 3

	res, err := v.Run()
	require.Error(t, err)
	var budget *fuzz.BudgetExceeded
	require.True(t, errors.As(err, &budget))
	assert.Len(t, budget.First, 3)

	var sawResolver, sawReference bool
	for _, m := range res.Mismatches {
		if m.Error == "resolver: tile missing" {
			sawResolver = true
		}
		if m.Error == "reference: no polygon" {
			sawReference = true
		}
	}
	assert.True(t, sawResolver)
	assert.True(t, sawReference)
}

func TestRunRejectsBadConfig(t *testing.T) {
	v := newValidator(0, referenceDisagreeingEastOf(170))
	_, err := v.Run()
	require.Error(t, err)
	assert.Equal(t, tzerr.InternalError, tzerr.ClassOf(err))

	v = newValidator(10, nil)
	_, err = v.Run()
	require.Error(t, err)
}

func TestScenarioSkipsWithoutCapabilities(t *testing.T) {
	v := newValidator(10, referenceDisagreeingEastOf(180))
	var recorded bool
	s := v.Scenario(ports.Capabilities{ReferenceResolverAvailable: true}, func(fuzz.Result) { recorded = true })
	assert.Equal(t, fuzz.ScenarioName, s.Name)
	assert.True(t, errors.Is(s.Run(), scenario.ErrSkipped))
	assert.False(t, recorded)

	s = v.Scenario(ports.Capabilities{ReferenceResolverAvailable: true, InhabitedOracleAvailable: true}, func(fuzz.Result) { recorded = true })
	require.NoError(t, s.Run())
	assert.True(t, recorded)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, fuzz.DefaultConfig().Validate())
	bad := []fuzz.Config{
		{Samples: 0, ThresholdPercent: 8},
		{Samples: 1, ThresholdPercent: -1},
		{Samples: 1, ThresholdPercent: 101},
		{Samples: 1, ThresholdPercent: 8, MismatchLimit: -1},
	}
	for _, c := range bad {
		assert.Error(t, c.Validate(), "%+v", c)
	}
}
