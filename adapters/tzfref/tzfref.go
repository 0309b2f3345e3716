// Package tzfref adapts github.com/ringsaturn/tzf as the reference geocoder.
package tzfref

import (
	"errors"
	"fmt"

	"github.com/ringsaturn/tzf"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/tzerr"
)

// Name identifies this geocoder in reports.
const Name = "tzf"

// Finder is the subset of tzf.F the adapter uses.
type Finder interface {
	GetTimezoneNames(lng float64, lat float64) ([]string, error)
}

// Reference answers coordinate lookups with every zone tzf reports.
type Reference struct {
	finder Finder
}

// New loads tzf's default finder. Loading takes a noticeable amount of time
// and memory; build one Reference per process.
func New() (*Reference, error) {
	f, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, tzerr.Wrap(tzerr.InternalError, "load tzf finder", err)
	}
	return NewWithFinder(f), nil
}

// NewWithFinder wraps an existing finder.
func NewWithFinder(f Finder) *Reference {
	return &Reference{finder: f}
}

// Lookup implements ports.Reference.
func (r *Reference) Lookup(lat, lon float64) ([]string, error) {
	c := coord.Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return nil, coord.ErrInvalidCoordinates
	}
	names, err := r.finder.GetTimezoneNames(lon, lat)
	if err != nil {
		return nil, tzerr.Wrap(tzerr.ZoneResolution, fmt.Sprintf("tzf lookup %s", c), err)
	}
	if len(names) == 0 {
		return nil, tzerr.Wrap(tzerr.ZoneResolution, fmt.Sprintf("tzf lookup %s", c), errors.New("no zone"))
	}
	return names, nil
}
