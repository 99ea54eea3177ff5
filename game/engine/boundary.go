package engine

import "math"

// CeilingRestitution is the share of vertical speed kept after hitting the ceiling
const CeilingRestitution = 0.5

// ApplyBoundaries wraps the ship horizontally and bounces it off the ceiling.
//
// Horizontal wrap is a teleport to the opposite edge: x becomes exactly -margin
// or width+margin, so any overshoot past the edge is dropped, and velocity is
// untouched. The ceiling clamp keeps half the vertical speed and always
// redirects it downward. There is no floor;
// leaving the bottom of the viewport is left to collision and landing logic.
func ApplyBoundaries(ship Ship, viewportWidth, margin float64) Ship {
	next := ship

	if next.Position.X < -margin {
		next.Position.X = viewportWidth + margin
	} else if next.Position.X > viewportWidth+margin {
		next.Position.X = -margin
	}

	if next.Position.Y < -margin {
		next.Position.Y = -margin
		next.Velocity.Y = math.Abs(next.Velocity.Y) * CeilingRestitution
	}

	return next
}
