package engine

// Bounds returns the ship's bounding box as a landing-zone-shaped rectangle
func Bounds(ship Ship, width, height float64) LandingZone {
	return LandingZone{
		Top:    ship.Position.Y,
		Bottom: ship.Position.Y + height,
		Left:   ship.Position.X,
		Right:  ship.Position.X + width,
	}
}

// Overlaps is the axis-aligned overlap test between two rectangles.
// Touching edges count as overlap.
func (z LandingZone) Overlaps(other LandingZone) bool {
	vertical := z.Bottom >= other.Top && z.Top <= other.Bottom
	horizontal := z.Right >= other.Left && z.Left <= other.Right
	return vertical && horizontal
}

// Valid reports whether the zone has non-negative extent on both axes
func (z LandingZone) Valid() bool {
	return z.Bottom >= z.Top && z.Right >= z.Left
}

// Collides tests the ship's bounding box against the landing zone.
// A nil zone means the host has not supplied one yet, which never collides.
func Collides(ship Ship, width, height float64, zone *LandingZone) bool {
	if zone == nil {
		return false
	}
	return Bounds(ship, width, height).Overlaps(*zone)
}
