// Package landmask classifies coordinates as inhabited land using the
// bradfitz/latlong zone tables: a coordinate is inhabited when latlong maps it
// to a named zone.
package landmask

import (
	"github.com/bradfitz/latlong"

	"github.com/lattice-substrate/tz-oracle/coord"
)

// Inhabited implements ports.Inhabited.
func Inhabited(lat, lon float64) bool {
	c := coord.Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return false
	}
	if lon == 180 {
		lon = -180
	}
	switch latlong.LookupZoneName(lat, lon) {
	case "", "tables not generated yet":
		return false
	}
	return true
}
