package tzfref

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/tzerr"
)

type fakeFinder struct {
	names []string
	err   error
	calls [][2]float64
}

func (f *fakeFinder) GetTimezoneNames(lng, lat float64) ([]string, error) {
	f.calls = append(f.calls, [2]float64{lng, lat})
	return f.names, f.err
}

func TestLookupPassesLongitudeFirst(t *testing.T) {
	f := &fakeFinder{names: []string{"Europe/Berlin"}}
	r := NewWithFinder(f)

	got, err := r.Lookup(52.5, 13.4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Europe/Berlin"}, got)
	require.Len(t, f.calls, 1)
	assert.Equal(t, [2]float64{13.4, 52.5}, f.calls[0])
}

func TestLookupErrors(t *testing.T) {
	tests := []struct {
		name  string
		f     *fakeFinder
		lat   float64
		lon   float64
		class tzerr.FailureClass
	}{
		{name: "finder_error", f: &fakeFinder{err: errors.New("boom")}, lat: 1, lon: 1, class: tzerr.ZoneResolution},
		{name: "empty", f: &fakeFinder{}, lat: 1, lon: 1, class: tzerr.ZoneResolution},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWithFinder(tc.f).Lookup(tc.lat, tc.lon)
			require.Error(t, err)
			assert.Equal(t, tc.class, tzerr.ClassOf(err))
		})
	}
}

func TestLookupRejectsInvalidCoordinates(t *testing.T) {
	f := &fakeFinder{names: []string{"UTC"}}
	_, err := NewWithFinder(f).Lookup(95, 0)
	require.ErrorIs(t, err, coord.ErrInvalidCoordinates)
	assert.Empty(t, f.calls)
}

var (
	defaultOnce sync.Once
	defaultRef  *Reference
	defaultErr  error
)

func loadDefault(t *testing.T) *Reference {
	t.Helper()
	if testing.Short() {
		t.Skip("tzf finder load skipped in -short mode")
	}
	defaultOnce.Do(func() { defaultRef, defaultErr = New() })
	require.NoError(t, defaultErr)
	return defaultRef
}

func TestDefaultFinderCities(t *testing.T) {
	r := loadDefault(t)
	tests := []struct {
		lat, lon float64
		want     string
	}{
		{lat: 52.517, lon: 13.389, want: "Europe/Berlin"},
		{lat: 35.6895, lon: 139.6917, want: "Asia/Tokyo"},
		{lat: 40.7128, lon: -74.006, want: "America/New_York"},
	}
	for _, tc := range tests {
		got, err := r.Lookup(tc.lat, tc.lon)
		require.NoError(t, err)
		assert.Contains(t, got, tc.want)
	}
}
