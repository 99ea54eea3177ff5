// Command analyze prints quick, human-readable heuristics about the physics
// profiles in a configs directory. For each profile it reports the
// thrust-to-gravity ratio, the speed of an uncontrolled fall onto the pad, the
// altitude a full burn needs to recover from it, how much room the pad leaves
// the ship, and how often the autopilot lands across a handful of seeds.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/wricardo/lunar-lander/game/engine"
)

// maxAnalysisTicks bounds every simulated flight
const maxAnalysisTicks = 20000

// ProfileAnalysis holds the heuristics computed for one profile
type ProfileAnalysis struct {
	File    string
	Name    string
	HasZone bool

	ThrustToGravity float64
	DropHeight      float64
	PadClearance    float64

	FreeFallTicks      uint64
	FreeFallImpactVY   float64
	FreeFallSurvivable bool
	BrakingDistance    float64

	AutopilotFlights  int
	AutopilotLandings int
	MeanLandingTicks  float64
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Print flyability heuristics for physics profiles",
		ArgsUsage: "[config-dir]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "seeds", Value: 5, Usage: "Autopilot flights per profile"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "configs"
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}
			return analyzeDir(os.Stdout, dir, int(cmd.Int("seeds")))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// profileFiles lists the JSON and YAML files in dir, sorted by name
func profileFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func analyzeDir(w io.Writer, dir string, seeds int) error {
	files, err := profileFiles(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	if len(files) == 0 {
		fmt.Fprintf(w, "No profiles found in %s\n", dir)
		return nil
	}

	for _, file := range files {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", filepath.Base(file))

		cfg, err := engine.LoadGameConfig(file)
		if err != nil {
			fmt.Fprintf(w, "Error loading profile: %v\n", err)
			continue
		}

		a := analyzeProfile(cfg, seeds)
		a.File = filepath.Base(file)
		printAnalysis(w, cfg, a)
	}
	return nil
}

func analyzeProfile(cfg *engine.GameConfig, seeds int) ProfileAnalysis {
	p := cfg.Physics
	a := ProfileAnalysis{
		Name:            cfg.Name,
		ThrustToGravity: p.ThrustPower / p.Gravity,
		HasZone:         cfg.LandingZone != nil,
	}

	if !a.HasZone {
		return a
	}

	zone := *cfg.LandingZone
	a.DropHeight = zone.Top - (p.StartY + p.ShipHeight)
	a.PadClearance = (zone.Right - zone.Left) - p.ShipWidth

	ticks, td, ok := freeFall(cfg)
	if ok {
		a.FreeFallTicks = ticks
		a.FreeFallImpactVY = td.VelocityY
		a.FreeFallSurvivable = td.Verdict == engine.Success
		a.BrakingDistance = engine.BrakingDistance(engine.Ship{Velocity: engine.Vec2{Y: td.VelocityY}}, p)
	}

	var landingTicks []float64
	pilot := engine.NewAutopilot(p)
	for seed := 1; seed <= seeds; seed++ {
		e, err := engine.NewEngineWithRand(cfg, engine.NewRand(uint64(seed)))
		if err != nil {
			break
		}
		pilot.Fly(e, maxAnalysisTicks)
		a.AutopilotFlights++
		if e.Phase() == engine.Landed {
			a.AutopilotLandings++
			landingTicks = append(landingTicks, float64(e.GetState().Tick))
		}
	}
	if len(landingTicks) > 0 {
		a.MeanLandingTicks = stat.Mean(landingTicks, nil)
	}

	return a
}

// freeFall drops an upright ship with no drift onto a pad stretched across the
// whole viewport and returns the judged contact
func freeFall(cfg *engine.GameConfig) (uint64, engine.Touchdown, bool) {
	p := cfg.Physics
	p.InitialDrift = 0

	zone := *cfg.LandingZone
	zone.Left = math.Inf(-1)
	zone.Right = math.Inf(1)
	geo := engine.StaticGeometry{Viewport: cfg.Viewport, Zone: &zone}

	st := engine.NewFlight(cfg.Viewport.Width, p, engine.NewRand(1))
	for st.Tick < maxAnalysisTicks {
		var td engine.Touchdown
		st, td = engine.Step(st, engine.Commands{}, geo, p)
		if td.Verdict != engine.NoJudgment {
			return st.Tick, td, true
		}
	}
	return 0, engine.Touchdown{}, false
}

func printAnalysis(w io.Writer, cfg *engine.GameConfig, a ProfileAnalysis) {
	p := cfg.Physics

	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Viewport: %.0f x %.0f @ %d Hz\n", cfg.Viewport.Width, cfg.Viewport.Height, cfg.TickRateHz)
	fmt.Fprintf(w, "Gravity: %.3f | Thrust: %.3f | Thrust/Gravity: %.2f\n", p.Gravity, p.ThrustPower, a.ThrustToGravity)
	fmt.Fprintf(w, "Landing limits: vy < %.2f, |vx| < %.2f, angle within %.1f°\n",
		p.MaxLandingSpeedV, p.MaxLandingSpeedH, p.MaxLandingAngleDeg)

	if a.ThrustToGravity <= 1 {
		fmt.Fprintf(w, "⚠️  CRITICAL: thrust cannot overcome gravity, every descent ends in a crash\n")
	}

	if !a.HasZone {
		fmt.Fprintf(w, "No landing zone in profile; the host must supply one\n")
		return
	}

	fmt.Fprintf(w, "Drop height: %.0f px | Pad clearance: %.0f px\n", a.DropHeight, a.PadClearance)
	if a.PadClearance < 0 {
		fmt.Fprintf(w, "⚠️  WARNING: pad is narrower than the ship\n")
	}

	if a.FreeFallTicks > 0 {
		fmt.Fprintf(w, "Free fall: contact after %d ticks at vy %.3f\n", a.FreeFallTicks, a.FreeFallImpactVY)
		if a.FreeFallSurvivable {
			fmt.Fprintf(w, "⚠️  WARNING: an uncontrolled fall lands safely\n")
		} else if math.IsInf(a.BrakingDistance, 1) {
			fmt.Fprintf(w, "Braking from free fall: impossible\n")
		} else {
			fmt.Fprintf(w, "Braking from free fall needs %.0f px of full burn\n", a.BrakingDistance)
		}
	}

	fmt.Fprintf(w, "Autopilot: landed %d/%d", a.AutopilotLandings, a.AutopilotFlights)
	if a.AutopilotLandings > 0 {
		fmt.Fprintf(w, " (mean %.0f ticks)", a.MeanLandingTicks)
	}
	fmt.Fprintln(w)

	if a.AutopilotFlights > 0 && a.AutopilotLandings == 0 {
		fmt.Fprintf(w, "⚠️  WARNING: the autopilot never landed this profile\n")
	} else {
		fmt.Fprintf(w, "✅ Profile is flyable\n")
	}
}
