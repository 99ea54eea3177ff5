package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GameMessages are the texts shown for each phase
type GameMessages struct {
	Welcome string `json:"welcome" yaml:"welcome"`
	Landed  string `json:"landed" yaml:"landed"`
	Crashed string `json:"crashed" yaml:"crashed"`
}

// GameConfig is a physics profile: the constants a session flies with, plus the
// default geometry used until the host supplies its own
type GameConfig struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Physics     Physics      `json:"physics" yaml:"physics"`
	Viewport    Viewport     `json:"viewport" yaml:"viewport"`
	LandingZone *LandingZone `json:"landing_zone,omitempty" yaml:"landing_zone,omitempty"`
	TickRateHz  int          `json:"tick_rate_hz" yaml:"tick_rate_hz"`
	Seed        uint64       `json:"seed,omitempty" yaml:"seed,omitempty"` // 0 means a random seed per session
	Messages    GameMessages `json:"messages" yaml:"messages"`
}

// DefaultGameConfig returns the built-in classic profile
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Moon-like gravity over a 1280x720 viewport with a pad near the bottom",
		Physics:     DefaultPhysics(),
		Viewport:    Viewport{Width: 1280, Height: 720},
		LandingZone: &LandingZone{Top: 640, Bottom: 660, Left: 560, Right: 720},
		TickRateHz:  60,
		Messages: GameMessages{
			Welcome: "Land gently on the pad: arrows or WASD to fly, R to restart.",
			Landed:  "The Eagle has landed!",
			Crashed: "Crashed! Press R to try again.",
		},
	}
}

// ValidateGameConfig validates a physics profile for correctness and flyability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	p := config.Physics
	positive := []struct {
		name  string
		value float64
	}{
		{"physics.gravity", p.Gravity},
		{"physics.thrust_power", p.ThrustPower},
		{"physics.rotation_speed", p.RotationSpeed},
		{"physics.max_landing_speed_v", p.MaxLandingSpeedV},
		{"physics.max_landing_speed_h", p.MaxLandingSpeedH},
		{"physics.max_landing_angle_deg", p.MaxLandingAngleDeg},
		{"physics.ship_width", p.ShipWidth},
		{"physics.ship_height", p.ShipHeight},
	}
	for _, f := range positive {
		if !finite(f.value) || f.value <= 0 {
			return fmt.Errorf("config validation: %s must be a positive finite number, got %v", f.name, f.value)
		}
	}
	if p.MaxLandingAngleDeg > 180 {
		return fmt.Errorf("config validation: physics.max_landing_angle_deg must be at most 180, got %v", p.MaxLandingAngleDeg)
	}
	if !finite(p.Margin) || p.Margin < 0 {
		return fmt.Errorf("config validation: physics.margin must be a non-negative finite number, got %v", p.Margin)
	}
	if !finite(p.StartY) || !finite(p.InitialDrift) {
		return fmt.Errorf("config validation: physics.start_y and physics.initial_drift must be finite")
	}

	if !finite(config.Viewport.Width) || config.Viewport.Width < MinViewportWidth {
		return fmt.Errorf("config validation: viewport.width must be at least %d, got %v", MinViewportWidth, config.Viewport.Width)
	}
	if !finite(config.Viewport.Height) || config.Viewport.Height <= 0 {
		return fmt.Errorf("config validation: viewport.height must be positive, got %v", config.Viewport.Height)
	}

	if config.TickRateHz < 1 || config.TickRateHz > MaxTickRateHz {
		return fmt.Errorf("config validation: tick_rate_hz must be between 1 and %d, got %d", MaxTickRateHz, config.TickRateHz)
	}

	if z := config.LandingZone; z != nil {
		if err := ValidateLandingZone(*z); err != nil {
			return fmt.Errorf("config validation: %v", err)
		}
	}

	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}

	return nil
}

// ValidateLandingZone checks a host-supplied zone
func ValidateLandingZone(z LandingZone) error {
	for _, v := range []float64{z.Top, z.Bottom, z.Left, z.Right} {
		if !finite(v) {
			return fmt.Errorf("landing_zone must have finite edges")
		}
	}
	if !z.Valid() {
		return fmt.Errorf("landing_zone must satisfy top <= bottom and left <= right, got %+v", z)
	}
	return nil
}

// ParseGameConfig decodes a profile; format is chosen by file extension
// (.yaml/.yml use YAML, anything else JSON)
func ParseGameConfig(filename string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}
	return &config, nil
}

// LoadGameConfig loads and validates a profile from a JSON or YAML file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseGameConfig(filename, data)
	if err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
