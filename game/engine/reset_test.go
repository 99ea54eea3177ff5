package engine

import "testing"

func TestNewFlightRange(t *testing.T) {
	p := DefaultPhysics()
	rng := NewRand(7)

	for i := 0; i < 500; i++ {
		st := NewFlight(1280, p, rng)
		x := st.Ship.Position.X
		if x < p.Margin || x > 1280-p.Margin {
			t.Fatalf("Expected x in [%v, %v], got %v", p.Margin, 1280-p.Margin, x)
		}
		if st.Phase != Playing || st.Tick != 0 {
			t.Fatalf("Expected fresh playing flight, got %s tick %d", st.Phase, st.Tick)
		}
		if st.Ship.Position.Y != p.StartY || st.Ship.Velocity != (Vec2{X: p.InitialDrift}) || st.Ship.Angle != 0 {
			t.Fatalf("Expected default start conditions, got %+v", st.Ship)
		}
	}
}

func TestNewFlightDegenerateViewport(t *testing.T) {
	p := DefaultPhysics()
	for _, width := range []float64{0, -100, 2 * p.Margin} {
		st := NewFlight(width, p, NewRand(1))
		if st.Ship.Position.X != p.Margin {
			t.Errorf("Width %v: expected x pinned to margin, got %v", width, st.Ship.Position.X)
		}
	}
}

func TestNewFlightSeeded(t *testing.T) {
	a := NewFlight(1280, DefaultPhysics(), NewRand(42))
	b := NewFlight(1280, DefaultPhysics(), NewRand(42))
	if a != b {
		t.Errorf("Expected same seed to give same flight, got %+v and %+v", a, b)
	}
}

func TestNewFlightNilRand(t *testing.T) {
	st := NewFlight(1280, DefaultPhysics(), nil)
	if st.Ship.Position.X < 20 || st.Ship.Position.X > 1260 {
		t.Errorf("Expected x in range, got %v", st.Ship.Position.X)
	}
}
