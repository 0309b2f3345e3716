// Package regression replays the curated dataset against the resolver under
// test and, when available, the reference geocoder.
//
// The resolver must reproduce each expected zone exactly: the dataset records
// ground truth for the resolver's own versioned boundary data. The reference
// geocoder is held to offset equivalence instead, since its data may diverge
// at edges.
package regression

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/dataset"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/scenario"
	"github.com/lattice-substrate/tz-oracle/tzerr"
	"github.com/lattice-substrate/tz-oracle/zoneeq"
)

// ExactMismatch reports a resolver result that differs from the dataset.
type ExactMismatch struct {
	Args     string
	Expected string
	Actual   string
}

func (e *ExactMismatch) Error() string {
	return fmt.Sprintf("expected %q to equal %q given %s", e.Actual, e.Expected, e.Args)
}

// FailureClass implements tzerr classification.
func (e *ExactMismatch) FailureClass() tzerr.FailureClass {
	return tzerr.AssertionMismatch
}

// Runner builds dataset scenarios.
type Runner struct {
	Resolver     ports.Resolver
	Reference    ports.Reference
	Comparator   *zoneeq.Comparator
	Capabilities ports.Capabilities
}

// Scenarios returns, for each case in order, the exact-match scenario
// followed by the reference scenario when the reference geocoder is
// available.
func (r *Runner) Scenarios(cases []dataset.TestCase) []scenario.Scenario {
	out := make([]scenario.Scenario, 0, 2*len(cases))
	for _, tc := range cases {
		out = append(out, scenario.Scenario{
			Name: fmt.Sprintf("should return %q given %s", tc.ExpectedZone, tc.Args()),
			Run:  func() error { return r.CheckExact(tc) },
		})
		if r.Capabilities.ReferenceResolverAvailable {
			out = append(out, scenario.Scenario{
				Name: "should match the reference zone given " + tc.Args(),
				Run:  func() error { return r.CheckReference(tc) },
			})
		}
	}
	return out
}

// CheckExact resolves tc.Input and requires string identity with the
// expected zone.
func (r *Runner) CheckExact(tc dataset.TestCase) error {
	actual, err := r.Resolver(tc.Input...)
	if err != nil {
		return tzerr.Wrap(tzerr.AssertionMismatch, "resolver rejected "+tc.Args(), err)
	}
	if actual != tc.ExpectedZone {
		return &ExactMismatch{Args: tc.Args(), Expected: tc.ExpectedZone, Actual: actual}
	}
	return nil
}

// CheckReference requires the reference candidates to be equivalent to one
// of the case's accepted cross-reference zones.
func (r *Runner) CheckReference(tc dataset.TestCase) error {
	if r.Reference == nil {
		return scenario.Skip("reference geocoder unavailable")
	}
	c, err := tc.Coordinate()
	if err != nil {
		return tzerr.Wrap(tzerr.InternalError, "dataset coordinate "+tc.Args(), err)
	}
	candidates, err := r.Reference(c.Latitude, c.Longitude)
	if err != nil {
		return tzerr.Wrap(tzerr.ZoneResolution, "reference geocoder failed at "+tc.Args(), err)
	}

	var errs []error
	for _, want := range tc.CrossRef() {
		err := r.Comparator.AnyEquivalent(want, candidates...)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("reference %v vs %s: %w", candidates, want, err))
	}
	return errors.Join(errs...)
}

// PoleScenarios checks that latitude 90 collapses to a single zone at every
// pole longitude. Either identifier in dataset.PoleZones is accepted.
func (r *Runner) PoleScenarios() []scenario.Scenario {
	out := make([]scenario.Scenario, 0, len(dataset.PoleLongitudes))
	for _, lon := range dataset.PoleLongitudes {
		out = append(out, scenario.Scenario{
			Name: "should collapse the north pole at longitude " + strconv.FormatFloat(lon, 'f', -1, 64),
			Run:  func() error { return r.CheckPole(lon) },
		})
	}
	return out
}

// CheckPole resolves (PoleLatitude, lon) and requires a pole zone.
func (r *Runner) CheckPole(lon float64) error {
	args := []any{dataset.PoleLatitude, lon}
	zone, err := r.Resolver(args...)
	if err != nil {
		return tzerr.Wrap(tzerr.AssertionMismatch, "resolver rejected "+coord.FormatArgs(args), err)
	}
	if !slices.Contains(dataset.PoleZones, zone) {
		return tzerr.Newf(tzerr.AssertionMismatch, "expected one of %v at %s, got %q",
			dataset.PoleZones, coord.FormatArgs(args), zone)
	}
	return nil
}

// ParityScenarios checks that each string-typed case resolves identically
// when supplied as numbers.
func (r *Runner) ParityScenarios(cases []dataset.TestCase) []scenario.Scenario {
	var out []scenario.Scenario
	for _, tc := range cases {
		if !tc.StringTyped() {
			continue
		}
		out = append(out, scenario.Scenario{
			Name: "should resolve string and numeric input identically given " + tc.Args(),
			Run:  func() error { return r.CheckParity(tc) },
		})
	}
	return out
}

// CheckParity compares the string-typed and numeric forms of tc.
func (r *Runner) CheckParity(tc dataset.TestCase) error {
	c, err := tc.Coordinate()
	if err != nil {
		return tzerr.Wrap(tzerr.InternalError, "dataset coordinate "+tc.Args(), err)
	}
	fromStrings, err := r.Resolver(tc.Input...)
	if err != nil {
		return tzerr.Wrap(tzerr.AssertionMismatch, "resolver rejected "+tc.Args(), err)
	}
	fromNumbers, err := r.Resolver(c.Latitude, c.Longitude)
	if err != nil {
		return tzerr.Wrap(tzerr.AssertionMismatch, "resolver rejected "+c.String(), err)
	}
	if fromStrings != fromNumbers {
		return tzerr.Newf(tzerr.AssertionMismatch, "string input gave %q but numeric input gave %q for %s",
			fromStrings, fromNumbers, tc.Args())
	}
	return nil
}
