package engine

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Engine provides the main interface for simulation operations
type Engine interface {
	// Simulation state
	GetState() State
	Snapshot() *Snapshot
	Phase() Phase
	IsTerminal() bool

	// Tick advances the simulation by one step with the given commands
	Tick(cmds Commands) Touchdown
	// Reset discards the current flight and starts a fresh randomized one
	Reset() *Snapshot

	// Geometry feed
	SetGeometry(geo StaticGeometry) error
	Geometry() StaticGeometry

	// Configuration
	GetConfig() *GameConfig

	// History
	GetFlightHistory() []FlightRecord
	GetLastFlight() *FlightRecord
}

// GameEngine implements Engine. It owns the simulation state and the geometry
// most recently supplied by the host; it is not safe for concurrent use.
type GameEngine struct {
	state         State
	config        *GameConfig
	geometry      StaticGeometry
	rng           *rand.Rand
	lastTouchdown *Touchdown
	thrustTicks   uint64
	history       []FlightRecord
}

// NewEngine creates a new engine flying the provided profile. A profile seed of
// zero draws a random seed.
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return NewEngineWithRand(config, NewRand(seed))
}

// NewEngineWithRand creates a new engine with an explicit randomness source
func NewEngineWithRand(config *GameConfig, rng *rand.Rand) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: config,
		geometry: StaticGeometry{
			Viewport: config.Viewport,
			Zone:     cloneZone(config.LandingZone),
		},
		rng:     rng,
		history: []FlightRecord{},
	}
	e.state = NewFlight(e.geometry.Viewport.Width, config.Physics, e.rng)
	return e, nil
}

// NewEngineWithDefaults creates an engine flying the built-in classic profile
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultGameConfig())
	if err != nil {
		panic(fmt.Sprintf("default game config is invalid: %v", err))
	}
	return e
}

// GetState returns the current simulation state
func (e *GameEngine) GetState() State {
	return e.state
}

// Phase returns the current phase
func (e *GameEngine) Phase() Phase {
	return e.state.Phase
}

// IsTerminal returns whether the flight has landed or crashed
func (e *GameEngine) IsTerminal() bool {
	return e.state.Phase.Terminal()
}

// Snapshot returns the read-only view renderers consume
func (e *GameEngine) Snapshot() *Snapshot {
	ship := e.state.Ship
	snap := &Snapshot{
		Position:    ship.Position,
		Velocity:    ship.Velocity,
		Angle:       ship.Angle,
		Thrusting:   ship.Thrusting,
		Phase:       e.state.Phase,
		Tick:        e.state.Tick,
		ConfigName:  e.config.Name,
		LandingZone: cloneZone(e.geometry.Zone),
	}
	if e.lastTouchdown != nil {
		td := *e.lastTouchdown
		snap.Touchdown = &td
	}

	switch e.state.Phase {
	case Landed:
		snap.Message = e.config.Messages.Landed
	case Crashed:
		snap.Message = e.config.Messages.Crashed
	default:
		snap.Message = e.config.Messages.Welcome
	}
	return snap
}

// Tick advances one step. Ticks in a terminal phase are no-ops.
func (e *GameEngine) Tick(cmds Commands) Touchdown {
	if e.state.Phase.Terminal() {
		return Touchdown{Verdict: NoJudgment}
	}

	next, td := Step(e.state, cmds, e, e.config.Physics)
	e.state = next

	if next.Ship.Thrusting {
		e.thrustTicks++
	}

	if td.Verdict != NoJudgment {
		e.lastTouchdown = &td
		e.recordFlight(td)
	}

	return td
}

// Reset discards the current flight entirely and starts a new one using the
// current viewport width. It is legal in every phase.
func (e *GameEngine) Reset() *Snapshot {
	e.state = NewFlight(e.geometry.Viewport.Width, e.config.Physics, e.rng)
	e.lastTouchdown = nil
	e.thrustTicks = 0
	return e.Snapshot()
}

// LandingZone implements GeometryProvider over the host-supplied geometry
func (e *GameEngine) LandingZone() (LandingZone, bool) {
	return e.geometry.LandingZone()
}

// ViewportWidth implements GeometryProvider over the host-supplied geometry
func (e *GameEngine) ViewportWidth() float64 {
	return e.geometry.ViewportWidth()
}

// SetGeometry replaces the host geometry used from the next tick on.
// A nil zone marks the landing zone as unavailable.
func (e *GameEngine) SetGeometry(geo StaticGeometry) error {
	if !finite(geo.Viewport.Width) || !finite(geo.Viewport.Height) {
		return fmt.Errorf("viewport must be finite")
	}
	if geo.Zone != nil {
		if err := ValidateLandingZone(*geo.Zone); err != nil {
			return err
		}
	}
	e.geometry = StaticGeometry{Viewport: geo.Viewport, Zone: cloneZone(geo.Zone)}
	return nil
}

// Geometry returns a copy of the current host geometry
func (e *GameEngine) Geometry() StaticGeometry {
	return StaticGeometry{Viewport: e.geometry.Viewport, Zone: cloneZone(e.geometry.Zone)}
}

// GetConfig returns the profile this engine flies
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// GetFlightHistory returns every completed flight, across resets
func (e *GameEngine) GetFlightHistory() []FlightRecord {
	return e.history
}

// GetLastFlight returns the most recent completed flight, or nil if none
func (e *GameEngine) GetLastFlight() *FlightRecord {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// RunTicks advances up to n ticks with the same commands, stopping early when
// the flight ends. It returns the number of ticks executed.
func (e *GameEngine) RunTicks(cmds Commands, n int) int {
	executed := 0
	for i := 0; i < n; i++ {
		if e.IsTerminal() {
			break
		}
		e.Tick(cmds)
		executed++
	}
	return executed
}

func (e *GameEngine) recordFlight(td Touchdown) {
	e.history = append(e.history, FlightRecord{
		ID:          uuid.NewString(),
		Number:      len(e.history) + 1,
		Phase:       e.state.Phase,
		Touchdown:   td,
		Ticks:       e.state.Tick,
		ThrustTicks: e.thrustTicks,
		Timestamp:   time.Now().Unix(),
	})
}

func cloneZone(z *LandingZone) *LandingZone {
	if z == nil {
		return nil
	}
	c := *z
	return &c
}
