// Package engine provides the flight physics for the lunar lander game.
//
// The engine package implements the simulation core:
//   - Key decoding into per-tick commands
//   - Gravity, rotation and thrust integration
//   - Horizontal wrap and ceiling bounce
//   - Ship/landing-zone collision and landing judgment
//   - The playing/landed/crashed state machine and reset
//   - Physics profile loading and validation
//
// Core Types:
//
// Step is a pure function from (State, Commands, geometry, Physics) to the next
// State. GameEngine wraps it with the geometry most recently supplied by the
// host, a seeded random source for resets and the session's flight history.
// Geometry is read through the GeometryProvider interface every tick, so the
// host may resize or move the landing zone between ticks.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	td := gameEngine.Tick(engine.Decode([]string{"ArrowUp"}))
//	snap := gameEngine.Snapshot()
//
// Game Rules:
//
// Gravity pulls the ship down every tick. Thrust pushes along the ship's nose,
// which the player rotates. Touching the landing zone ends the flight: it is a
// landing when vertical speed, horizontal speed and tilt are all inside the
// profile's limits, otherwise a crash. Leaving the screen sideways wraps to the
// other edge; hitting the ceiling bounces the ship down.
package engine
