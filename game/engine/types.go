package engine

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Phase is the current member of the simulation's finite state machine
type Phase string

const (
	Playing Phase = "playing"
	Landed  Phase = "landed"
	Crashed Phase = "crashed"

	// Validation constants
	MaxStepTicks       = 600
	MaxTickRateHz      = 240
	MinViewportWidth   = 1
	MaxTelemetryFrames = 3600
)

// Terminal reports whether the phase freezes the simulation until reset
func (p Phase) Terminal() bool {
	return p == Landed || p == Crashed
}

// Vec2 is a 2D vector in viewport pixels
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (v Vec2) vec() r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }

func fromR2(v r2.Vec) Vec2 { return Vec2{X: v.X, Y: v.Y} }

// Ship is the simulated craft. Position is its top-left reference point.
type Ship struct {
	Position  Vec2    `json:"position"`
	Velocity  Vec2    `json:"velocity"`
	Angle     float64 `json:"angle"` // degrees, never range-reduced
	Thrusting bool    `json:"thrusting"`
}

// LandingZone is the host-supplied target rectangle, in the ship's coordinate space
type LandingZone struct {
	Top    float64 `json:"top" yaml:"top"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
	Right  float64 `json:"right" yaml:"right"`
}

// Viewport is the host's visible area
type Viewport struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Commands is the per-tick command set produced by the decoder.
// ResetRequested is carried only so callers can route it out-of-band; Step ignores it.
type Commands struct {
	RotateLeft     bool `json:"rotate_left"`
	RotateRight    bool `json:"rotate_right"`
	Thrust         bool `json:"thrust"`
	ResetRequested bool `json:"reset_requested,omitempty"`
}

// State is the complete simulation value passed into and returned from Step
type State struct {
	Ship  Ship   `json:"ship"`
	Phase Phase  `json:"phase"`
	Tick  uint64 `json:"tick"`
}

// Physics holds the constants fixed for the lifetime of a flight
type Physics struct {
	Gravity            float64 `json:"gravity" yaml:"gravity"`
	ThrustPower        float64 `json:"thrust_power" yaml:"thrust_power"`
	RotationSpeed      float64 `json:"rotation_speed" yaml:"rotation_speed"`
	MaxLandingSpeedV   float64 `json:"max_landing_speed_v" yaml:"max_landing_speed_v"`
	MaxLandingSpeedH   float64 `json:"max_landing_speed_h" yaml:"max_landing_speed_h"`
	MaxLandingAngleDeg float64 `json:"max_landing_angle_deg" yaml:"max_landing_angle_deg"`
	Margin             float64 `json:"margin" yaml:"margin"`
	ShipWidth          float64 `json:"ship_width" yaml:"ship_width"`
	ShipHeight         float64 `json:"ship_height" yaml:"ship_height"`
	StartY             float64 `json:"start_y" yaml:"start_y"`
	InitialDrift       float64 `json:"initial_drift" yaml:"initial_drift"`
}

// DefaultPhysics returns the constants of the built-in classic profile
func DefaultPhysics() Physics {
	return Physics{
		Gravity:            0.05,
		ThrustPower:        0.12,
		RotationSpeed:      3,
		MaxLandingSpeedV:   1.5,
		MaxLandingSpeedH:   1.5,
		MaxLandingAngleDeg: 8,
		Margin:             20,
		ShipWidth:          20,
		ShipHeight:         30,
		StartY:             50,
		InitialDrift:       0.5,
	}
}

// Snapshot is the read-only per-tick output handed to renderers
type Snapshot struct {
	Position   Vec2    `json:"position"`
	Velocity   Vec2    `json:"velocity"`
	Angle      float64 `json:"angle"`
	Thrusting  bool    `json:"thrusting"`
	Phase      Phase   `json:"phase"`
	Tick       uint64  `json:"tick"`
	Message    string  `json:"message,omitempty"`
	ConfigName string  `json:"config_name,omitempty"`

	// LandingZone is the zone currently supplied by the host, nil when unavailable
	LandingZone *LandingZone `json:"landing_zone,omitempty"`
	Touchdown   *Touchdown   `json:"touchdown,omitempty"`

	// Risk is an advisory descent assessment filled in by the host, not the engine
	Risk string `json:"risk,omitempty"`
}

// FlightRecord is one completed flight (landing or crash) in a session's history
type FlightRecord struct {
	ID          string    `json:"id"`
	Number      int       `json:"number"`
	Phase       Phase     `json:"phase"`
	Touchdown   Touchdown `json:"touchdown"`
	Ticks       uint64    `json:"ticks"`
	ThrustTicks uint64    `json:"thrust_ticks"`
	Timestamp   int64     `json:"timestamp"`
}
