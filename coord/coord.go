// Package coord models the geographic coordinates fed to a resolver.
//
// Resolvers accept loosely typed input: numbers of any Go numeric kind or
// numeric strings. Parse is the single place that decides whether such input
// denotes a valid coordinate; everything else in the module works on the
// parsed Coordinate.
package coord

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/lattice-substrate/tz-oracle/tzerr"
)

// ErrInvalidCoordinates is the error a conforming resolver returns for any
// malformed input. Its message is part of the resolver contract and must
// stay exactly "invalid coordinates", so the class travels through
// FailureClass instead of a message prefix.
var ErrInvalidCoordinates error = invalidCoordinatesError{}

type invalidCoordinatesError struct{}

func (invalidCoordinatesError) Error() string { return "invalid coordinates" }

// FailureClass implements tzerr classification.
func (invalidCoordinatesError) FailureClass() tzerr.FailureClass {
	return tzerr.InvalidCoordinates
}

// WorldBound is the closed latitude/longitude domain, in orb's lon/lat order.
var WorldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// Coordinate is a validated latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Point returns the coordinate as an orb point (lon, lat).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// Valid reports whether both components are finite and inside WorldBound.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return WorldBound.Contains(c.Point())
}

// Rounded returns latitude and longitude formatted with three decimals.
func (c Coordinate) Rounded() (lat string, lon string) {
	return strconv.FormatFloat(c.Latitude, 'f', 3, 64), strconv.FormatFloat(c.Longitude, 'f', 3, 64)
}

func (c Coordinate) String() string {
	return FormatArgs([]any{c.Latitude, c.Longitude})
}

// Parse converts loosely typed resolver arguments into a Coordinate.
// It expects exactly two scalar arguments, latitude first.
func Parse(args ...any) (Coordinate, error) {
	if len(args) != 2 {
		return Coordinate{}, ErrInvalidCoordinates
	}
	lat, ok := toFloat(args[0])
	if !ok {
		return Coordinate{}, ErrInvalidCoordinates
	}
	lon, ok := toFloat(args[1])
	if !ok {
		return Coordinate{}, ErrInvalidCoordinates
	}
	c := Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return Coordinate{}, ErrInvalidCoordinates
	}
	return c, nil
}

//nolint:gocyclo,cyclop // one case per accepted Go numeric kind.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FormatArgs renders resolver arguments for scenario names and diagnostics.
// Floats use the shortest representation that round-trips and strings are
// quoted, so numeric and string-typed inputs render differently.
func FormatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatArg(a)
	}
	return strings.Join(parts, ", ")
}

func formatArg(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case string:
		return strconv.Quote(x)
	default:
		return fmt.Sprintf("%+v", x)
	}
}
