package engine

import (
	"math"
)

// Autopilot is a simple bang-bang controller that flies a ship onto the landing
// zone. It is used by the headless simulate command, the profile analyzer and
// end-to-end tests; it only ever emits the same commands a player could.
type Autopilot struct {
	Physics Physics

	// MaxTilt bounds the bank angle used for horizontal corrections, in degrees
	MaxTilt float64
	// FinalApproach is the height above the pad below which the ship stays upright
	FinalApproach float64
	// AlignTolerance is how far off the pad center the ship may be before it
	// stops descending and hovers
	AlignTolerance float64
	// TouchdownSpeed is the vertical speed targeted at contact
	TouchdownSpeed float64
	// MaxDescentSpeed caps the vertical speed far from the pad
	MaxDescentSpeed float64
}

// NewAutopilot returns an autopilot tuned for the given physics
func NewAutopilot(p Physics) *Autopilot {
	return &Autopilot{
		Physics:         p,
		MaxTilt:         25,
		FinalApproach:   60,
		AlignTolerance:  30,
		TouchdownSpeed:  math.Min(0.6, p.MaxLandingSpeedV/2),
		MaxDescentSpeed: 3,
	}
}

// Commands decides the commands for the next tick
func (a *Autopilot) Commands(st State, geo GeometryProvider) Commands {
	var cmds Commands
	if st.Phase.Terminal() {
		return cmds
	}

	p := a.Physics
	ship := st.Ship

	zone, ok := LandingZone{}, false
	width := 0.0
	if geo != nil {
		zone, ok = geo.LandingZone()
		width = geo.ViewportWidth()
	}

	targetTilt := 0.0
	desiredVY := a.TouchdownSpeed

	if ok {
		errX := HorizontalOffset(ship, p, zone, width)
		altitude := Altitude(ship, p, zone)

		// Brake with a fraction of the spare thrust so the profile stays reachable
		brake := 0.4 * (p.ThrustPower*math.Cos(a.MaxTilt*math.Pi/180) - p.Gravity)
		if brake > 0 && altitude > 0 {
			desiredVY = math.Min(a.MaxDescentSpeed, a.TouchdownSpeed+math.Sqrt(2*brake*altitude))
		}

		if altitude > a.FinalApproach {
			if math.Abs(errX) > a.AlignTolerance {
				desiredVY = math.Min(desiredVY, a.TouchdownSpeed)
			}
			desiredVX := clamp(errX*0.02, -2, 2)
			targetTilt = clamp((desiredVX-ship.Velocity.X)*40, -a.MaxTilt, a.MaxTilt)
		}
	}

	tiltErr := targetTilt - signedAngle(ship.Angle)
	switch {
	case tiltErr > p.RotationSpeed/2:
		cmds.RotateRight = true
	case tiltErr < -p.RotationSpeed/2:
		cmds.RotateLeft = true
	}

	cmds.Thrust = ship.Velocity.Y > desiredVY && math.Abs(signedAngle(ship.Angle)) < 60
	return cmds
}

// Fly runs the autopilot against the engine until the flight ends or maxTicks
// elapse, returning the ticks flown
func (a *Autopilot) Fly(e *GameEngine, maxTicks int) int {
	flown := 0
	for flown < maxTicks && !e.IsTerminal() {
		e.Tick(a.Commands(e.GetState(), e))
		flown++
	}
	return flown
}

// signedAngle maps an angle in degrees to (-180, 180]
func signedAngle(angle float64) float64 {
	a := NormalizeAngle(angle)
	if a > 180 {
		a -= 360
	}
	return a
}

// wrapDelta returns the shortest signed distance on a wrapping axis of the given period
func wrapDelta(d, period float64) float64 {
	if period <= 0 {
		return d
	}
	d = math.Mod(d, period)
	if d > period/2 {
		d -= period
	} else if d < -period/2 {
		d += period
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
