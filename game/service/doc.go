// Package service provides the use-case layer of the lunar lander server.
//
// The service package implements:
//   - Multi-session flight management
//   - Step mode: a bounded batch of ticks with fixed held keys
//   - Real-time mode: a fixed-rate loop fed by the held-key snapshot
//   - Host feeds for held keys, key presses and landing-zone geometry
//   - Flight history and per-flight telemetry
//
// Core Interfaces:
//
// GameService is the main service interface shared by the REST, WebSocket and
// MCP transports. SessionManager stores sessions; ConfigManager loads physics
// profiles. Hooks let the host broadcast snapshots and record metrics without
// this package importing either.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Step(ctx, info.ID, service.StepRequest{
//		Keys:  []string{"ArrowUp"},
//		Ticks: 30,
//	})
//
// Concurrency:
//
// Every engine access happens under the owning session's lock, so a real-time
// loop and HTTP requests never tick the same session at once. Step mode is
// refused while a real-time loop owns the session.
package service
