package engine

// GeometryProvider supplies the host-owned geometry, read fresh every tick.
// LandingZone returns false while the host cannot resolve the zone.
type GeometryProvider interface {
	LandingZone() (LandingZone, bool)
	ViewportWidth() float64
}

// StaticGeometry is a GeometryProvider backed by plain values
type StaticGeometry struct {
	Viewport Viewport     `json:"viewport"`
	Zone     *LandingZone `json:"landing_zone,omitempty"`
}

// LandingZone implements GeometryProvider
func (g StaticGeometry) LandingZone() (LandingZone, bool) {
	if g.Zone == nil {
		return LandingZone{}, false
	}
	return *g.Zone, true
}

// ViewportWidth implements GeometryProvider
func (g StaticGeometry) ViewportWidth() float64 {
	return g.Viewport.Width
}

// Step runs one tick of the simulation state machine and returns the committed
// state together with the landing assessment made during the tick.
//
//	playing --no collision--> playing
//	playing --collision, success--> landed
//	playing --collision, failure--> crashed
//	landed/crashed --tick--> unchanged
//
// Terminal phases return st untouched. Collisions are judged on the velocity the
// ship carried into the tick. Step never fails.
func Step(st State, cmds Commands, geo GeometryProvider, p Physics) (State, Touchdown) {
	if st.Phase.Terminal() {
		return st, Touchdown{Verdict: NoJudgment}
	}

	entryVelocity := st.Ship.Velocity

	width := 0.0
	var zone *LandingZone
	if geo != nil {
		width = geo.ViewportWidth()
		if z, ok := geo.LandingZone(); ok {
			zone = &z
		}
	}

	ship := Integrate(st.Ship, cmds, p)
	ship = ApplyBoundaries(ship, width, p.Margin)

	collided := Collides(ship, p.ShipWidth, p.ShipHeight, zone)
	td := Assess(entryVelocity, ship.Angle, collided, p)

	next := State{
		Ship:  ship,
		Phase: Playing,
		Tick:  st.Tick + 1,
	}
	switch td.Verdict {
	case Success:
		next.Phase = Landed
	case Failure:
		next.Phase = Crashed
	}

	return next, td
}
