package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/lunar-lander/game/engine"
)

func writeJSON(t *testing.T, dir, name string, cfg *engine.GameConfig) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func hasMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeJSON(t, t.TempDir(), "classic.json", engine.DefaultGameConfig())

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, but got errors: %v", result.Errors)
	}
	if result.File != "classic.json" {
		t.Errorf("Expected file name classic.json, got %s", result.File)
	}
	if !hasMessage(result.Info, "Reachability: autopilot landed 3/3") {
		t.Errorf("Expected reachability info, got %v", result.Info)
	}
	if !hasMessage(result.Info, "Thrust/Gravity: 2.40") {
		t.Errorf("Expected thrust ratio info, got %v", result.Info)
	}
}

func TestValidateConfig_YAML(t *testing.T) {
	data, err := yaml.Marshal(engine.DefaultGameConfig())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "classic.yaml")
	os.WriteFile(path, data, 0644)

	if result := validateConfig(path); !result.Valid {
		t.Errorf("Expected valid YAML profile, got errors: %v", result.Errors)
	}
}

func TestValidateConfig_HostSuppliedZone(t *testing.T) {
	cfg := engine.DefaultGameConfig()
	cfg.LandingZone = nil
	path := writeJSON(t, t.TempDir(), "nozone.json", cfg)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, got errors: %v", result.Errors)
	}
	if !hasMessage(result.Info, "supplied by the host") {
		t.Errorf("Expected host zone note, got %v", result.Info)
	}
	if hasMessage(result.Info, "Reachability") {
		t.Error("Reachability needs a zone and should be skipped")
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*engine.GameConfig)
		want   string
	}{
		{"underpowered", func(c *engine.GameConfig) { c.Physics.ThrustPower = 0.05 }, "must exceed gravity"},
		{"zone outside viewport", func(c *engine.GameConfig) { c.LandingZone.Right = 1400 }, "outside the"},
		{"zone too narrow", func(c *engine.GameConfig) { c.LandingZone.Left, c.LandingZone.Right = 600, 610 }, "narrower than the"},
		{"start below pad", func(c *engine.GameConfig) { c.Physics.StartY = 620 }, "at or below the pad"},
		{"engine rejects", func(c *engine.GameConfig) { c.Physics.Gravity = -1 }, "physics.gravity"},
		{"missing name", func(c *engine.GameConfig) { c.Name = "" }, "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := engine.DefaultGameConfig()
			tt.modify(cfg)
			path := writeJSON(t, t.TempDir(), "profile.json", cfg)

			result := validateConfig(path)
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if !hasMessage(result.Errors, tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidateConfig_Unreachable(t *testing.T) {
	// No flight reaches the pad this quickly
	defer func(ticks int) { reachabilityTicks = ticks }(reachabilityTicks)
	reachabilityTicks = 10

	path := writeJSON(t, t.TempDir(), "classic.json", engine.DefaultGameConfig())

	result := validateConfig(path)
	if result.Valid {
		t.Fatal("Expected the autopilot to fail")
	}
	if !hasMessage(result.Errors, "Reachability failure: autopilot landed 0/3") {
		t.Errorf("Expected reachability failure, got %v", result.Errors)
	}
}

func TestValidateConfig_BadFiles(t *testing.T) {
	dir := t.TempDir()

	result := validateConfig(filepath.Join(dir, "missing.json"))
	if result.Valid || !hasMessage(result.Errors, "Failed to read file") {
		t.Errorf("Expected read failure, got %v", result.Errors)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{invalid"), 0644)
	result = validateConfig(bad)
	if result.Valid || !hasMessage(result.Errors, "Invalid JSON") {
		t.Errorf("Expected JSON failure, got %v", result.Errors)
	}

	badYAML := filepath.Join(dir, "bad.yml")
	os.WriteFile(badYAML, []byte("physics: [unterminated"), 0644)
	result = validateConfig(badYAML)
	if result.Valid || !hasMessage(result.Errors, "Invalid YAML") {
		t.Errorf("Expected YAML failure, got %v", result.Errors)
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "classic.json", engine.DefaultGameConfig())

	var buf bytes.Buffer
	ok, err := validateDir(&buf, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("Expected all profiles valid:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "All configurations are valid") {
		t.Errorf("Unexpected report:\n%s", buf.String())
	}

	broken := engine.DefaultGameConfig()
	broken.Physics.ThrustPower = 0.01
	writeJSON(t, dir, "broken.json", broken)

	buf.Reset()
	ok, _ = validateDir(&buf, dir)
	if ok {
		t.Error("Expected validation to fail with a broken profile")
	}
	out := buf.String()
	if !strings.Contains(out, "❌ INVALID") || !strings.Contains(out, "Some configurations have errors") {
		t.Errorf("Unexpected report:\n%s", out)
	}
}

func TestProfileFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.json", "c.yml", "notes.txt"} {
		os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644)
	}

	files, err := profileFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 || filepath.Base(files[0]) != "a.json" || filepath.Base(files[2]) != "c.yml" {
		t.Errorf("Unexpected files: %v", files)
	}
}
