package engine

import "math"

// Altitude returns the distance from the ship's bottom edge to the top of the
// zone. Negative means the ship is already below the pad surface.
func Altitude(ship Ship, p Physics, zone LandingZone) float64 {
	return zone.Top - (ship.Position.Y + p.ShipHeight)
}

// HorizontalOffset returns the signed distance from the ship's center to the
// zone's center, measured the short way around the wrapping axis
func HorizontalOffset(ship Ship, p Physics, zone LandingZone, viewportWidth float64) float64 {
	target := (zone.Left+zone.Right)/2 - p.ShipWidth/2
	return wrapDelta(target-ship.Position.X, viewportWidth+2*p.Margin)
}

// OverPad reports whether the ship's horizontal extent overlaps the zone
func OverPad(ship Ship, p Physics, zone LandingZone) bool {
	return ship.Position.X+p.ShipWidth >= zone.Left && ship.Position.X <= zone.Right
}

// BrakingDistance is how far the ship falls while an upright full burn slows it
// from its current vertical speed to the landing limit. It is +Inf when thrust
// cannot overcome gravity.
func BrakingDistance(ship Ship, p Physics) float64 {
	vy := ship.Velocity.Y
	if vy <= p.MaxLandingSpeedV {
		return 0
	}
	decel := p.ThrustPower - p.Gravity
	if decel <= 0 {
		return math.Inf(1)
	}
	return (vy*vy - p.MaxLandingSpeedV*p.MaxLandingSpeedV) / (2 * decel)
}

// AnalyzeDescentRisk assesses how dangerous the current approach is
func AnalyzeDescentRisk(ship Ship, p Physics, zone LandingZone, ok bool) string {
	if !ok {
		return "WARNING: Landing zone unavailable"
	}

	altitude := Altitude(ship, p, zone)
	if altitude < 0 {
		return "CRITICAL: Below the pad surface"
	}

	braking := BrakingDistance(ship, p)
	switch {
	case braking >= altitude:
		return "DANGER: Too fast to stop before the pad, thrust now!"
	case braking >= altitude/2:
		return "CAUTION: Descent rate high, start braking"
	case !SafeAngle(ship.Angle, p.MaxLandingAngleDeg) && altitude < 100:
		return "CAUTION: Level the ship before touchdown"
	case math.Abs(ship.Velocity.X) >= p.MaxLandingSpeedH:
		return "CAUTION: Horizontal drift too fast for landing"
	}

	return "SAFE: Approach under control"
}
