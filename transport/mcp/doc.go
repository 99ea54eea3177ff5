// Package mcp exposes the lunar lander to AI agents over the Model Context Protocol.
//
// The Client is an MCP server whose tools forward to the REST API, so agents fly
// the same sessions that browsers and scripts see:
//   - create_session, list_sessions, get_session: session management
//   - game_state: ship position, velocity, angle, phase and landing zone
//   - step: hold a set of keys for a number of ticks (step mode)
//   - reset_game: start a new flight, keeping the flight history
//   - set_geometry: report the viewport and landing zone, as a renderer would
//   - flight_history: completed flights with touchdown statistics
//   - list_configs: available physics profiles
//   - game_instructions: rules, controls and landing limits
//
// Transport Modes:
//
// The server runs over stdio (the "mcp" command) or behind the /mcp HTTP
// endpoint that "serve" mounts next to the REST API.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
