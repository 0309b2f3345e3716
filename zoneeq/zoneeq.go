// Package zoneeq decides whether two zone identifiers denote the same observed
// offset policy.
//
// Independently maintained boundary datasets name the same wall-clock
// behaviour differently (regional splits that share history, Etc/GMT±N
// stand-ins for named zones). Two identifiers are equivalent when they are
// the same string, or when both resolve and agree on their UTC offset at a
// standard-time instant and at a daylight-time instant.
package zoneeq

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lattice-substrate/tz-oracle/tzerr"
)

// ReferenceInstants is the pair of UTC instants offsets are compared at.
// Standard falls in northern winter and Daylight in northern summer, so the
// pair separates DST policies in both hemispheres.
type ReferenceInstants struct {
	Standard time.Time
	Daylight time.Time
}

// DefaultInstants is the process-wide reference pair.
var DefaultInstants = ReferenceInstants{
	Standard: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
	Daylight: time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC),
}

// Offsets is a zone's UTC offset in minutes at both reference instants.
type Offsets struct {
	Standard int
	Daylight int
}

// Comparator implements zone equivalence over an OffsetOracle.
type Comparator struct {
	offsets  OffsetOracle
	instants ReferenceInstants
}

// New returns a Comparator using offsets at the given instants.
func New(offsets OffsetOracle, instants ReferenceInstants) *Comparator {
	return &Comparator{offsets: offsets, instants: instants}
}

// NewDefault returns a Comparator over the runtime tz database at
// DefaultInstants.
func NewDefault() *Comparator {
	return New(NewTZDataOffsets(), DefaultInstants)
}

// Instants returns the reference pair in use.
func (c *Comparator) Instants() ReferenceInstants {
	return c.instants
}

// OffsetsOf resolves zone at both reference instants.
func (c *Comparator) OffsetsOf(zone string) (Offsets, error) {
	std, err := c.offsets.OffsetMinutes(zone, c.instants.Standard)
	if err != nil {
		return Offsets{}, err
	}
	dst, err := c.offsets.OffsetMinutes(zone, c.instants.Daylight)
	if err != nil {
		return Offsets{}, err
	}
	return Offsets{Standard: std, Daylight: dst}, nil
}

// Check returns nil when a and b are equivalent. A pair that resolves but
// disagrees yields an *OffsetMismatch; an unresolvable identifier yields a
// ZONE_RESOLUTION error naming the side that failed.
func (c *Comparator) Check(a, b string) error {
	if a == b {
		return nil
	}
	oa, err := c.OffsetsOf(a)
	if err != nil {
		return fmt.Errorf("a: %w", err)
	}
	ob, err := c.OffsetsOf(b)
	if err != nil {
		return fmt.Errorf("b: %w", err)
	}
	if oa != ob {
		return &OffsetMismatch{A: a, B: b, OffsetsA: oa, OffsetsB: ob}
	}
	return nil
}

// Equivalent reports whether a and b denote the same offset policy. It
// returns an error only when an identifier cannot be resolved.
func (c *Comparator) Equivalent(a, b string) (bool, error) {
	err := c.Check(a, b)
	if err == nil {
		return true, nil
	}
	var mismatch *OffsetMismatch
	if errors.As(err, &mismatch) {
		return false, nil
	}
	return false, err
}

// AnyEquivalent returns nil when primary is equivalent to any flattened
// candidate. A candidate may hold several comma-separated identifiers. When
// nothing matches, the returned *AggregateError carries every comparison
// failure in candidate order.
func (c *Comparator) AnyEquivalent(primary string, candidates ...string) error {
	flat := Flatten(candidates...)
	agg := &AggregateError{Primary: primary, Candidates: flat}
	for _, cand := range flat {
		err := c.Check(primary, cand)
		if err == nil {
			return nil
		}
		agg.Errs = append(agg.Errs, err)
	}
	return agg
}

// Flatten splits comma-joined candidates into individual identifiers,
// dropping blanks.
func Flatten(candidates ...string) []string {
	out := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		for _, part := range strings.Split(cand, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// OffsetMismatch reports two resolvable zones with different offsets.
type OffsetMismatch struct {
	A, B     string
	OffsetsA Offsets
	OffsetsB Offsets
}

// StandardDelta is B's standard-time offset minus A's, in minutes.
func (m *OffsetMismatch) StandardDelta() int {
	return m.OffsetsB.Standard - m.OffsetsA.Standard
}

// DaylightDelta is B's daylight-time offset minus A's, in minutes.
func (m *OffsetMismatch) DaylightDelta() int {
	return m.OffsetsB.Daylight - m.OffsetsA.Daylight
}

func (m *OffsetMismatch) Error() string {
	var parts []string
	if m.OffsetsA.Standard != m.OffsetsB.Standard {
		parts = append(parts, fmt.Sprintf("expected %s(%d) to have the same standard-time offset as %s(%d)",
			m.A, m.OffsetsA.Standard, m.B, m.OffsetsB.Standard))
	}
	if m.OffsetsA.Daylight != m.OffsetsB.Daylight {
		parts = append(parts, fmt.Sprintf("expected %s(%d) to have the same daylight-savings-time offset as %s(%d)",
			m.A, m.OffsetsA.Daylight, m.B, m.OffsetsB.Daylight))
	}
	return strings.Join(parts, "; ") +
		fmt.Sprintf(" (delta standard=%+d daylight=%+d)", m.StandardDelta(), m.DaylightDelta())
}

// FailureClass implements tzerr classification.
func (m *OffsetMismatch) FailureClass() tzerr.FailureClass {
	return tzerr.AssertionMismatch
}

// AggregateError collects every failed comparison of an AnyEquivalent call.
type AggregateError struct {
	Primary    string
	Candidates []string
	Errs       []error
}

func (e *AggregateError) Error() string {
	if len(e.Errs) == 0 {
		return fmt.Sprintf("no candidate zones to compare with %s", e.Primary)
	}
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ": ")
}

// Unwrap exposes the individual comparison failures.
func (e *AggregateError) Unwrap() []error {
	return e.Errs
}

// FailureClass is ASSERTION_MISMATCH when any candidate resolved and
// disagreed, and ZONE_RESOLUTION when every failure was a resolution gap.
func (e *AggregateError) FailureClass() tzerr.FailureClass {
	for _, err := range e.Errs {
		var mismatch *OffsetMismatch
		if errors.As(err, &mismatch) {
			return tzerr.AssertionMismatch
		}
	}
	if len(e.Errs) == 0 {
		return tzerr.AssertionMismatch
	}
	return tzerr.ZoneResolution
}
