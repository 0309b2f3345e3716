package latlongtz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/tz-oracle/coord"
	"github.com/lattice-substrate/tz-oracle/invalidinput"
)

func TestResolveCities(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "berlin", args: []any{52.517, 13.389}, want: "Europe/Berlin"},
		{name: "tokyo", args: []any{35.6895, 139.6917}, want: "Asia/Tokyo"},
		{name: "string_input", args: []any{"52.517", "13.389"}, want: "Europe/Berlin"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveOpenOceanFallsBackToNautical(t *testing.T) {
	got, err := Resolve(-40.0, -120.0)
	require.NoError(t, err)
	assert.Equal(t, "Etc/GMT+8", got)
}

func TestResolvePoles(t *testing.T) {
	for _, lon := range []float64{-180, -90, 0, 90, 180} {
		got, err := Resolve(90.0, lon)
		require.NoError(t, err)
		assert.Equal(t, "Etc/GMT", got)
	}
}

func TestResolveRejectsInvalidInputs(t *testing.T) {
	for _, args := range invalidinput.Inputs {
		_, err := Resolve(args...)
		require.Error(t, err, "args %v", args)
		assert.Equal(t, "invalid coordinates", err.Error())
	}
	require.NoError(t, invalidinput.Check(Resolve, 100, 10))
}

func TestLookupRejectsOutOfRange(t *testing.T) {
	_, err := Lookup(coord.Coordinate{Latitude: 91, Longitude: 0})
	require.ErrorIs(t, err, coord.ErrInvalidCoordinates)
}

func TestNautical(t *testing.T) {
	tests := []struct {
		lon  float64
		want string
	}{
		{lon: 0, want: "Etc/GMT"},
		{lon: 7.4, want: "Etc/GMT"},
		{lon: 7.5, want: "Etc/GMT-1"},
		{lon: -7.5, want: "Etc/GMT"},
		{lon: -7.6, want: "Etc/GMT+1"},
		{lon: 180, want: "Etc/GMT-12"},
		{lon: -180, want: "Etc/GMT+12"},
		{lon: -120, want: "Etc/GMT+8"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Nautical(tc.lon), "lon %v", tc.lon)
	}
}
