package zoneeq

import (
	"fmt"
	"time"

	"github.com/lattice-substrate/tz-oracle/tzerr"
)

// OffsetOracle reports the UTC offset a zone observes at an instant.
type OffsetOracle interface {
	OffsetMinutes(zone string, at time.Time) (int, error)
}

// OffsetFunc adapts a plain function to OffsetOracle.
type OffsetFunc func(zone string, at time.Time) (int, error)

// OffsetMinutes calls f.
func (f OffsetFunc) OffsetMinutes(zone string, at time.Time) (int, error) {
	return f(zone, at)
}

// TZDataOffsets answers offsets from the Go runtime's IANA database.
// Binaries that must not depend on the host zoneinfo import time/tzdata.
//
// Loaded locations are memoized. A TZDataOffsets is not safe for concurrent
// use; the oracle drives it from a single goroutine.
type TZDataOffsets struct {
	locations map[string]*time.Location
}

// NewTZDataOffsets returns an empty-cache TZDataOffsets.
func NewTZDataOffsets() *TZDataOffsets {
	return &TZDataOffsets{locations: make(map[string]*time.Location)}
}

// OffsetMinutes implements OffsetOracle.
func (o *TZDataOffsets) OffsetMinutes(zone string, at time.Time) (int, error) {
	loc, err := o.location(zone)
	if err != nil {
		return 0, err
	}
	_, seconds := at.In(loc).Zone()
	return seconds / 60, nil
}

func (o *TZDataOffsets) location(zone string) (*time.Location, error) {
	if loc, ok := o.locations[zone]; ok {
		return loc, nil
	}
	// LoadLocation maps "" to UTC and "Local" to the host zone; neither is an
	// identifier a resolver may return.
	if zone == "" || zone == "Local" {
		return nil, tzerr.Newf(tzerr.ZoneResolution, "unknown zone %q", zone)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, tzerr.Wrap(tzerr.ZoneResolution, fmt.Sprintf("unknown zone %q", zone), err)
	}
	if o.locations == nil {
		o.locations = make(map[string]*time.Location)
	}
	o.locations[zone] = loc
	return loc, nil
}
