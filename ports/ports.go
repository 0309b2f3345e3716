// Package ports defines the narrow interfaces the oracle consumes from its
// external collaborators. The oracle never looks these up ambiently; callers
// inject them.
package ports

// Resolver is the resolver under test. It accepts loosely typed arguments
// (numbers or numeric strings, latitude first) and must fail with an error
// whose message is exactly "invalid coordinates" for malformed input.
type Resolver func(args ...any) (string, error)

// Reference is the independently maintained reference geocoder. It may
// return several candidate zones for a boundary point, and a single
// candidate may itself be a comma-joined list.
type Reference func(lat, lon float64) ([]string, error)

// Inhabited classifies a coordinate as populated land.
type Inhabited func(lat, lon float64) bool

// Capabilities declares which optional collaborators are usable in this
// environment. Checks that need a missing collaborator are skipped, or
// omitted when they are per-case.
type Capabilities struct {
	ReferenceResolverAvailable bool
	InhabitedOracleAvailable   bool
}
