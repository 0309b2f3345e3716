// Package latlongtz adapts github.com/bradfitz/latlong as the resolver under
// test.
//
// latlong only covers land and territorial waters. Open ocean resolves to the
// nautical zone for the longitude (Etc/GMT+N west of Greenwich, Etc/GMT-N
// east of it) and both poles resolve to Etc/GMT.
package latlongtz

import (
	"errors"
	"fmt"
	"math"

	"github.com/bradfitz/latlong"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/tzerr"
)

// Name identifies this resolver in reports.
const Name = "latlong"

const tablesMissing = "tables not generated yet"

// Resolve implements ports.Resolver.
func Resolve(args ...any) (string, error) {
	c, err := coord.Parse(args...)
	if err != nil {
		return "", err
	}
	return Lookup(c)
}

// Lookup resolves an already validated coordinate.
func Lookup(c coord.Coordinate) (string, error) {
	if !c.Valid() {
		return "", coord.ErrInvalidCoordinates
	}
	if math.Abs(c.Latitude) == 90 {
		return "Etc/GMT", nil
	}
	lon := c.Longitude
	if lon == 180 {
		lon = -180
	}
	zone := latlong.LookupZoneName(c.Latitude, lon)
	switch zone {
	case tablesMissing:
		return "", tzerr.Wrap(tzerr.ZoneResolution, "latlong lookup", errors.New(zone))
	case "":
		return Nautical(c.Longitude), nil
	}
	return zone, nil
}

// Nautical returns the Etc/GMT zone whose 15 degree band contains lon.
// Etc names invert the sign: UTC+3 is Etc/GMT-3.
func Nautical(lon float64) string {
	hours := int(math.Floor(lon/15 + 0.5))
	switch {
	case hours == 0:
		return "Etc/GMT"
	case hours > 0:
		return fmt.Sprintf("Etc/GMT-%d", hours)
	default:
		return fmt.Sprintf("Etc/GMT+%d", -hours)
	}
}
