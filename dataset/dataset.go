// Package dataset holds the curated regression table of coordinate to zone
// cases.
//
// The table is embedded from cases.csv. Each row records how the coordinate
// was supplied (numbers or strings), the zone the resolver under test must
// return verbatim, and optionally the zones a reference geocoder is allowed
// to be equivalent to when its boundary data legitimately diverges.
package dataset

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/tzerr"
)

//go:embed cases.csv
var casesCSV []byte

// Pole collapse: the resolver returns one zone at latitude 90 whatever the
// longitude. The reference geocoder names that point differently, so either
// identifier in PoleZones is accepted.
var (
	PoleLatitude   = 90.0
	PoleLongitudes = []float64{-180, -90, 0, 90, 180}
	PoleZones      = []string{"Etc/GMT", "Etc/GMT-12"}
)

const (
	kindNumeric = "num"
	kindString  = "str"
)

var header = []string{"kind", "latitude", "longitude", "expected", "cross_ref"}

// TestCase is one regression row.
type TestCase struct {
	// Input holds the resolver arguments as supplied: two float64 values or
	// two numeric strings.
	Input        []any
	ExpectedZone string
	// ExpectedCrossRef lists the zones the reference result may be
	// equivalent to. Empty means ExpectedZone.
	ExpectedCrossRef []string
}

// CrossRef returns the accepted reference zones, defaulting to ExpectedZone.
func (tc TestCase) CrossRef() []string {
	if len(tc.ExpectedCrossRef) == 0 {
		return []string{tc.ExpectedZone}
	}
	return tc.ExpectedCrossRef
}

// StringTyped reports whether the case supplies its coordinate as strings.
func (tc TestCase) StringTyped() bool {
	for _, in := range tc.Input {
		if _, ok := in.(string); ok {
			return true
		}
	}
	return false
}

// Coordinate parses the case input.
func (tc TestCase) Coordinate() (coord.Coordinate, error) {
	return coord.Parse(tc.Input...)
}

// Args renders the input for scenario names.
func (tc TestCase) Args() string {
	return coord.FormatArgs(tc.Input)
}

var (
	loadOnce sync.Once
	loaded   []TestCase
	errLoad  error
)

// Cases returns the embedded regression table in file order. The slice is
// shared; callers must not modify it.
func Cases() ([]TestCase, error) {
	loadOnce.Do(func() {
		loaded, errLoad = Parse(bytes.NewReader(casesCSV))
	})
	return loaded, errLoad
}

// Load reads a regression table from path. An unreadable file is an
// INTERNAL_IO failure; a malformed table is a CLI_USAGE failure.
func Load(path string) ([]TestCase, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied table path
	if err != nil {
		return nil, tzerr.Wrap(tzerr.InternalIO, "open dataset", err)
	}
	defer f.Close()
	cases, err := Parse(f)
	if err != nil {
		return nil, tzerr.Wrap(tzerr.CLIUsage, path, err)
	}
	return cases, nil
}

// Parse decodes a regression table.
//
//nolint:gocyclo,cyclop // row validation is kept explicit so table errors point at the offending line.
func Parse(r io.Reader) ([]TestCase, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	if strings.Join(first, ",") != strings.Join(header, ",") {
		return nil, fmt.Errorf("dataset header mismatch: got %q", strings.Join(first, ","))
	}

	var cases []TestCase
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		line, _ := cr.FieldPos(0)
		tc, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("dataset line %d: %w", line, err)
		}
		cases = append(cases, tc)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	return cases, nil
}

func parseRecord(rec []string) (TestCase, error) {
	kind, latText, lonText, expected, crossRef := rec[0], rec[1], rec[2], rec[3], rec[4]
	if expected == "" {
		return TestCase{}, fmt.Errorf("expected zone is required")
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return TestCase{}, fmt.Errorf("latitude %q: %w", latText, err)
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return TestCase{}, fmt.Errorf("longitude %q: %w", lonText, err)
	}

	tc := TestCase{ExpectedZone: expected}
	switch kind {
	case kindNumeric:
		tc.Input = []any{lat, lon}
	case kindString:
		tc.Input = []any{latText, lonText}
	default:
		return TestCase{}, fmt.Errorf("unknown kind %q", kind)
	}
	if _, err := tc.Coordinate(); err != nil {
		return TestCase{}, fmt.Errorf("coordinate %s: %w", tc.Args(), err)
	}
	if crossRef != "" {
		for _, alt := range strings.Split(crossRef, "|") {
			if alt = strings.TrimSpace(alt); alt != "" {
				tc.ExpectedCrossRef = append(tc.ExpectedCrossRef, alt)
			}
		}
	}
	return tc, nil
}

// Stats summarizes a table.
type Stats struct {
	Cases         int
	StringTyped   int
	WithCrossRef  int
	DistinctZones int
	Zones         []string
}

// Summarize computes Stats for cases.
func Summarize(cases []TestCase) Stats {
	s := Stats{Cases: len(cases)}
	zones := make(map[string]struct{})
	for _, tc := range cases {
		if tc.StringTyped() {
			s.StringTyped++
		}
		if len(tc.ExpectedCrossRef) > 0 {
			s.WithCrossRef++
		}
		zones[tc.ExpectedZone] = struct{}{}
	}
	s.Zones = make([]string, 0, len(zones))
	for z := range zones {
		s.Zones = append(s.Zones, z)
	}
	sort.Strings(s.Zones)
	s.DistinctZones = len(s.Zones)
	return s
}
