package engine

import (
	"math/rand/v2"
)

// NewFlight builds a fresh flight: x uniform in [margin, width-margin], y at the
// start height, a small rightward drift, nose up, playing. Nothing of a previous
// flight carries over.
//
// A viewport too narrow for the margins pins x to the margin instead of failing.
func NewFlight(viewportWidth float64, p Physics, rng *rand.Rand) State {
	x := p.Margin
	if span := viewportWidth - 2*p.Margin; span > 0 {
		if rng == nil {
			x += rand.Float64() * span
		} else {
			x += rng.Float64() * span
		}
	}

	return State{
		Ship: Ship{
			Position: Vec2{X: x, Y: p.StartY},
			Velocity: Vec2{X: p.InitialDrift, Y: 0},
			Angle:    0,
		},
		Phase: Playing,
		Tick:  0,
	}
}

// NewRand returns a deterministic source for a seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
