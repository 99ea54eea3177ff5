package engine

import (
	"testing"
)

func createTestConfig() *GameConfig {
	config := DefaultGameConfig()
	config.Name = "engine-test"
	config.Seed = 1234
	return config
}

// landingEngine puts the ship right above the pad with the given entry velocity
func landingEngine(t *testing.T, vy float64) *GameEngine {
	t.Helper()
	e, err := NewEngine(createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	e.state = approachState(0.1, vy, 0)
	return e
}

func TestNewEngine(t *testing.T) {
	config := createTestConfig()
	e, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create new engine: %v", err)
	}

	if e.Phase() != Playing || e.IsTerminal() {
		t.Errorf("Expected playing initially, got %s", e.Phase())
	}
	x := e.GetState().Ship.Position.X
	if x < 20 || x > 1260 {
		t.Errorf("Expected start x in range, got %v", x)
	}
	if e.GetConfig() != config {
		t.Error("Expected engine to keep its config")
	}
	if len(e.GetFlightHistory()) != 0 || e.GetLastFlight() != nil {
		t.Error("Expected empty history")
	}
}

func TestNewEngineInvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.Physics.Gravity = -1
	if _, err := NewEngine(config); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestNewEngineSeedIsReproducible(t *testing.T) {
	a, _ := NewEngine(createTestConfig())
	b, _ := NewEngine(createTestConfig())
	if a.GetState() != b.GetState() {
		t.Errorf("Expected equal seeds to give equal starts, got %+v and %+v", a.GetState(), b.GetState())
	}

	a.Reset()
	b.Reset()
	if a.GetState() != b.GetState() {
		t.Error("Expected equal seeds to give equal resets")
	}
}

func TestEngineLandingRecordsFlight(t *testing.T) {
	e := landingEngine(t, 1.0)

	td := e.Tick(Commands{})
	if td.Verdict != Success {
		t.Fatalf("Expected success, got %+v", td)
	}

	snap := e.Snapshot()
	if snap.Phase != Landed || snap.Message != e.GetConfig().Messages.Landed {
		t.Errorf("Expected landed snapshot with message, got %+v", snap)
	}
	if snap.Touchdown == nil || snap.Touchdown.Verdict != Success {
		t.Errorf("Expected touchdown in snapshot, got %+v", snap.Touchdown)
	}

	last := e.GetLastFlight()
	if last == nil {
		t.Fatal("Expected a recorded flight")
	}
	if last.Number != 1 || last.Phase != Landed || last.ID == "" {
		t.Errorf("Unexpected flight record: %+v", last)
	}
}

func TestEngineTerminalTickIsNoop(t *testing.T) {
	e := landingEngine(t, 2.5)
	e.Tick(Commands{})
	if e.Phase() != Crashed {
		t.Fatalf("Expected crash, got %s", e.Phase())
	}

	before := e.GetState()
	for i := 0; i < 10; i++ {
		if td := e.Tick(Commands{Thrust: true, RotateRight: true}); td.Verdict != NoJudgment {
			t.Errorf("Expected no judgment after crash, got %s", td.Verdict)
		}
	}
	if e.GetState() != before {
		t.Errorf("Expected frozen state, got %+v", e.GetState())
	}
	if len(e.GetFlightHistory()) != 1 {
		t.Errorf("Expected one recorded flight, got %d", len(e.GetFlightHistory()))
	}
}

func TestEngineResetFromAnyPhase(t *testing.T) {
	e := landingEngine(t, 2.5)
	e.Tick(Commands{})

	snap := e.Reset()
	if snap.Phase != Playing || snap.Tick != 0 {
		t.Errorf("Expected fresh flight after reset, got %+v", snap)
	}
	if snap.Touchdown != nil {
		t.Error("Expected touchdown cleared by reset")
	}
	if snap.Message != e.GetConfig().Messages.Welcome {
		t.Errorf("Expected welcome message, got %q", snap.Message)
	}
	if len(e.GetFlightHistory()) != 1 {
		t.Error("Expected history to survive reset")
	}

	e.RunTicks(Commands{Thrust: true}, 5)
	snap = e.Reset()
	if snap.Tick != 0 || snap.Phase != Playing {
		t.Errorf("Expected reset mid-flight to start over, got %+v", snap)
	}
}

func TestEngineSetGeometry(t *testing.T) {
	e := NewEngineWithDefaults()

	if err := e.SetGeometry(StaticGeometry{Viewport: Viewport{Width: 800, Height: 600}}); err != nil {
		t.Fatalf("Failed to set geometry: %v", err)
	}
	if _, ok := e.LandingZone(); ok {
		t.Error("Expected zone to be unavailable")
	}
	if e.ViewportWidth() != 800 {
		t.Errorf("Expected width 800, got %v", e.ViewportWidth())
	}
	if e.Snapshot().LandingZone != nil {
		t.Error("Expected snapshot without zone")
	}

	bad := StaticGeometry{Viewport: Viewport{Width: 800, Height: 600}, Zone: &LandingZone{Left: 10, Right: 0}}
	if err := e.SetGeometry(bad); err == nil {
		t.Error("Expected error for inverted zone")
	}

	zone := &LandingZone{Top: 500, Bottom: 520, Left: 100, Right: 200}
	if err := e.SetGeometry(StaticGeometry{Viewport: Viewport{Width: 800, Height: 600}, Zone: zone}); err != nil {
		t.Fatalf("Failed to set geometry: %v", err)
	}
	zone.Left = -999
	if got, _ := e.LandingZone(); got.Left != 100 {
		t.Error("Expected geometry to be copied")
	}

	for i := 0; i < 50; i++ {
		e.Reset()
		if x := e.GetState().Ship.Position.X; x < 20 || x > 780 {
			t.Fatalf("Expected reset to use the new width, got x %v", x)
		}
	}
}

func TestEngineRunTicksStopsAtTerminal(t *testing.T) {
	e := landingEngine(t, 1.0)
	if n := e.RunTicks(Commands{}, 100); n != 1 {
		t.Errorf("Expected to stop after the landing tick, ran %d", n)
	}
}

func TestEngineHistoryAcrossFlights(t *testing.T) {
	e := landingEngine(t, 1.0)
	e.Tick(Commands{})
	e.Reset()
	e.state = approachState(0.1, 3, 0)
	e.Tick(Commands{})

	history := e.GetFlightHistory()
	if len(history) != 2 {
		t.Fatalf("Expected 2 flights, got %d", len(history))
	}
	if history[0].Phase != Landed || history[1].Phase != Crashed {
		t.Errorf("Unexpected phases: %s, %s", history[0].Phase, history[1].Phase)
	}
	if history[1].Number != 2 || history[0].ID == history[1].ID {
		t.Errorf("Expected distinct numbered flights, got %+v", history)
	}
}
