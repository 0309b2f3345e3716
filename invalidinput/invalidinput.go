// Package invalidinput pins the resolver's error contract for malformed
// input: every rejected input fails with the message "invalid coordinates".
package invalidinput

import (
	"fmt"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/ports"
	"github.com/lattice-substrate/tz-oracle/scenario"
	"github.com/lattice-substrate/tz-oracle/tzerr"
)

// Point is a structured coordinate, passed where two scalars are expected.
type Point struct {
	Lat float64
	Lon float64
}

// Inputs is the fixed list of malformed resolver arguments.
var Inputs = [][]any{
	{100, 10},
	{10, 190},
	{"hello", 10},
	{10, "hello"},
	{nil, nil},
	{Point{Lat: 10, Lon: 10}},
}

// Scenarios returns one scenario per entry in inputs.
func Scenarios(resolve ports.Resolver, inputs [][]any) []scenario.Scenario {
	out := make([]scenario.Scenario, 0, len(inputs))
	for _, args := range inputs {
		out = append(out, scenario.Scenario{
			Name: "should fail given " + coord.FormatArgs(args),
			Run:  func() error { return Check(resolve, args...) },
		})
	}
	return out
}

// Check invokes resolve and requires an error whose message is exactly
// coord.ErrInvalidCoordinates' message. A panic counts as a wrong error.
func Check(resolve ports.Resolver, args ...any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = tzerr.Newf(tzerr.AssertionMismatch, "resolver panicked given %s: %v", coord.FormatArgs(args), p)
		}
	}()
	zone, resolveErr := resolve(args...)
	if resolveErr == nil {
		return tzerr.Newf(tzerr.AssertionMismatch,
			"expected an error given %s, but the resolver returned %q", coord.FormatArgs(args), zone)
	}
	if resolveErr.Error() != coord.ErrInvalidCoordinates.Error() {
		return tzerr.Wrap(tzerr.AssertionMismatch,
			fmt.Sprintf("expected %q given %s", coord.ErrInvalidCoordinates.Error(), coord.FormatArgs(args)), resolveErr)
	}
	return nil
}
