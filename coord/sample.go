package coord

import (
	"math/rand/v2"

	"github.com/paulmach/orb"
)

// Sampler draws coordinates uniformly and independently in latitude and
// longitude over a bound. The draw is not area weighted, so high latitudes are
// over-represented relative to their surface area.
type Sampler struct {
	bound orb.Bound
	rng   *rand.Rand
}

// NewSampler returns a deterministic sampler over bound for the given seed.
func NewSampler(seed uint64, bound orb.Bound) *Sampler {
	return &Sampler{
		bound: bound,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next draws one coordinate.
func (s *Sampler) Next() Coordinate {
	lat := s.bound.Min[1] + s.rng.Float64()*(s.bound.Max[1]-s.bound.Min[1])
	lon := s.bound.Min[0] + s.rng.Float64()*(s.bound.Max[0]-s.bound.Min[0])
	return Coordinate{Latitude: lat, Longitude: lon}
}

// Take draws n coordinates.
func (s *Sampler) Take(n int) []Coordinate {
	if n <= 0 {
		return nil
	}
	out := make([]Coordinate, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}
