package engine

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultGameConfigIsValid(t *testing.T) {
	if err := ValidateGameConfig(DefaultGameConfig()); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}
}

func TestValidateGameConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *GameConfig)
		wantErr string
	}{
		{"missing name", func(c *GameConfig) { c.Name = "" }, "name is required"},
		{"missing description", func(c *GameConfig) { c.Description = "" }, "description is required"},
		{"zero gravity", func(c *GameConfig) { c.Physics.Gravity = 0 }, "physics.gravity"},
		{"NaN thrust", func(c *GameConfig) { c.Physics.ThrustPower = math.NaN() }, "physics.thrust_power"},
		{"angle too wide", func(c *GameConfig) { c.Physics.MaxLandingAngleDeg = 200 }, "max_landing_angle_deg"},
		{"negative margin", func(c *GameConfig) { c.Physics.Margin = -1 }, "physics.margin"},
		{"infinite start", func(c *GameConfig) { c.Physics.StartY = math.Inf(1) }, "start_y"},
		{"tiny viewport", func(c *GameConfig) { c.Viewport.Width = 0 }, "viewport.width"},
		{"flat viewport", func(c *GameConfig) { c.Viewport.Height = 0 }, "viewport.height"},
		{"tick rate too high", func(c *GameConfig) { c.TickRateHz = MaxTickRateHz + 1 }, "tick_rate_hz"},
		{"tick rate zero", func(c *GameConfig) { c.TickRateHz = 0 }, "tick_rate_hz"},
		{"inverted zone", func(c *GameConfig) { c.LandingZone = &LandingZone{Top: 10, Bottom: 0} }, "landing_zone"},
		{"missing welcome", func(c *GameConfig) { c.Messages.Welcome = "" }, "messages.welcome"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := DefaultGameConfig()
			test.mutate(config)

			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Expected error containing %q, got %v", test.wantErr, err)
			}
		})
	}
}

func TestValidateGameConfigNil(t *testing.T) {
	if err := ValidateGameConfig(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestValidateGameConfigWithoutZone(t *testing.T) {
	config := DefaultGameConfig()
	config.LandingZone = nil
	if err := ValidateGameConfig(config); err != nil {
		t.Errorf("Expected profile without a zone to be valid, got %v", err)
	}
}

func TestParseGameConfigYAML(t *testing.T) {
	data := []byte(`
name: mars
description: Heavier gravity
physics:
  gravity: 0.09
  thrust_power: 0.2
  rotation_speed: 4
  max_landing_speed_v: 1.2
  max_landing_speed_h: 1
  max_landing_angle_deg: 6
  margin: 20
  ship_width: 20
  ship_height: 30
  start_y: 40
  initial_drift: -0.3
viewport:
  width: 800
  height: 600
landing_zone:
  top: 520
  bottom: 540
  left: 300
  right: 420
tick_rate_hz: 30
seed: 99
messages:
  welcome: Welcome to Mars
`)

	config, err := ParseGameConfig("mars.yaml", data)
	if err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}
	if err := ValidateGameConfig(config); err != nil {
		t.Fatalf("Expected parsed YAML to be valid, got %v", err)
	}
	if config.Physics.Gravity != 0.09 || config.Physics.InitialDrift != -0.3 {
		t.Errorf("Expected physics from YAML, got %+v", config.Physics)
	}
	if config.LandingZone == nil || config.LandingZone.Right != 420 {
		t.Errorf("Expected landing zone from YAML, got %+v", config.LandingZone)
	}
	if config.Seed != 99 || config.TickRateHz != 30 {
		t.Errorf("Expected seed 99 and 30 Hz, got %d and %d", config.Seed, config.TickRateHz)
	}
}

func TestParseGameConfigInvalid(t *testing.T) {
	if _, err := ParseGameConfig("bad.json", []byte("{not json")); err == nil {
		t.Error("Expected JSON parse error")
	}
	if _, err := ParseGameConfig("bad.yml", []byte("name: [unterminated")); err == nil {
		t.Error("Expected YAML parse error")
	}
}

func TestLoadGameConfig(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "classic.json")
	data := `{
		"name": "file",
		"description": "Loaded from disk",
		"physics": {"gravity": 0.05, "thrust_power": 0.12, "rotation_speed": 3,
			"max_landing_speed_v": 1.5, "max_landing_speed_h": 1.5, "max_landing_angle_deg": 8,
			"margin": 20, "ship_width": 20, "ship_height": 30, "start_y": 50, "initial_drift": 0.5},
		"viewport": {"width": 1280, "height": 720},
		"tick_rate_hz": 60,
		"messages": {"welcome": "hi", "landed": "yay", "crashed": "boom"}
	}`
	if err := os.WriteFile(valid, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadGameConfig(valid)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.Name != "file" || config.LandingZone != nil {
		t.Errorf("Unexpected config: %+v", config)
	}

	if _, err := LoadGameConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"name": "x"}`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadGameConfig(invalid); err == nil {
		t.Error("Expected validation error for incomplete config")
	}
}
