// Command validate checks the physics profiles in a configs directory. For each
// JSON or YAML file it checks:
//   - the file parses and passes the engine's profile validation
//   - thrust can overcome gravity
//   - the landing zone lies inside the viewport and is wide enough for the ship
//   - the ship starts above the pad
//   - the autopilot can land the profile from at least one of a few seeds
//
// It exits with a non-zero status if any profile is invalid.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/lunar-lander/game/engine"
)

// reachabilitySeeds is how many autopilot flights a profile gets to prove it is landable
const reachabilitySeeds = 3

// reachabilityTicks bounds each reachability flight
var reachabilityTicks = 20000

// ValidationResult captures the outcome of validating a single file.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) note(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single profile file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	cfg, err := engine.ParseGameConfig(filePath, data)
	if err != nil {
		result.fail("Invalid %s: %v", formatName(filePath), err)
		return result
	}

	if err := engine.ValidateGameConfig(cfg); err != nil {
		result.fail("%v", err)
		return result
	}

	validateFlyability(cfg, &result)

	// Reachability only makes sense once the geometry checks pass
	if result.Valid && cfg.LandingZone != nil {
		validateReachability(cfg, &result)
	}

	if result.Valid {
		p := cfg.Physics
		result.note("✓ Name: %s", cfg.Name)
		result.note("✓ Viewport: %.0fx%.0f @ %d Hz", cfg.Viewport.Width, cfg.Viewport.Height, cfg.TickRateHz)
		result.note("✓ Thrust/Gravity: %.2f", p.ThrustPower/p.Gravity)
		if z := cfg.LandingZone; z != nil {
			result.note("✓ Pad: x %.0f..%.0f at y %.0f", z.Left, z.Right, z.Top)
		} else {
			result.note("✓ Pad: supplied by the host")
		}
	}

	return result
}

// validateFlyability checks the geometric and physical constraints that make a
// profile landable at all
func validateFlyability(cfg *engine.GameConfig, result *ValidationResult) {
	p := cfg.Physics

	if p.ThrustPower <= p.Gravity {
		result.fail("thrust_power (%.3f) must exceed gravity (%.3f)", p.ThrustPower, p.Gravity)
	}

	if 2*p.Margin >= cfg.Viewport.Width {
		result.note("Viewport is narrower than both margins; ships always spawn at x=%.0f", p.Margin)
	}

	z := cfg.LandingZone
	if z == nil {
		return
	}

	if z.Left < 0 || z.Right > cfg.Viewport.Width || z.Top < 0 || z.Bottom > cfg.Viewport.Height {
		result.fail("Landing zone %+v extends outside the %.0fx%.0f viewport", *z, cfg.Viewport.Width, cfg.Viewport.Height)
	}

	if width := z.Right - z.Left; width < p.ShipWidth {
		result.fail("Landing zone is %.0f px wide, narrower than the %.0f px ship", width, p.ShipWidth)
	}

	if p.StartY+p.ShipHeight >= z.Top {
		result.fail("Ship starts at y=%.0f, already at or below the pad top %.0f", p.StartY, z.Top)
	}
}

// validateReachability flies the autopilot from a few seeds and requires at
// least one landing
func validateReachability(cfg *engine.GameConfig, result *ValidationResult) {
	pilot := engine.NewAutopilot(cfg.Physics)

	landed := 0
	for seed := uint64(1); seed <= reachabilitySeeds; seed++ {
		e, err := engine.NewEngineWithRand(cfg, engine.NewRand(seed))
		if err != nil {
			result.fail("Failed to create engine: %v", err)
			return
		}
		pilot.Fly(e, reachabilityTicks)
		if e.Phase() == engine.Landed {
			landed++
		}
	}

	if landed == 0 {
		result.fail("Reachability failure: autopilot landed 0/%d flights", reachabilitySeeds)
		return
	}
	result.note("✓ Reachability: autopilot landed %d/%d flights", landed, reachabilitySeeds)
}

func formatName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "YAML"
	default:
		return "JSON"
	}
}

// profileFiles lists the JSON and YAML files in dir, sorted by name
func profileFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// validateDir validates every profile in dir, printing a concise report. It
// returns false if any profile is invalid.
func validateDir(w io.Writer, dir string) (bool, error) {
	files, err := profileFiles(dir)
	if err != nil {
		return false, fmt.Errorf("finding config files: %w", err)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, e := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+e)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid, nil
}

// main validates ../configs by default, or the directory given as argument
func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate physics profiles",
		ArgsUsage: "[config-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "../configs"
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}

			ok, err := validateDir(os.Stdout, dir)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
