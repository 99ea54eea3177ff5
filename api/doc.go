// Package api provides the HTTP REST API for the lunar lander server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "mars"}, optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session and stop its real-time loop
//
// Simulation:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/step - Run ticks with held keys ({"keys": ["ArrowUp"], "ticks": 30, "reset": false})
//   - POST /api/sessions/{id}/reset - Start a new flight
//   - POST /api/sessions/{id}/realtime - Start the fixed-rate loop
//   - DELETE /api/sessions/{id}/realtime - Stop the fixed-rate loop
//
// Host Feeds:
//   - PUT /api/sessions/{id}/input - Replace held keys ({"keys": ["ArrowUp", "a"]})
//   - POST /api/sessions/{id}/key - Key event ({"key": "ArrowUp", "down": true})
//   - PUT /api/sessions/{id}/geometry - Viewport and landing zone
//
// Records:
//   - GET /api/sessions/{id}/history - Completed flights (?page=&limit=&order=)
//   - GET /api/sessions/{id}/telemetry - Current flight frames as CSV, or JSON with ?format=json
//
// Configuration:
//   - GET /api/configs - List physics profiles
//   - GET /api/configs/{name} - Get a profile
//   - POST /api/configs - Save a profile
//
// Operations:
//   - GET /healthz - Liveness
//   - GET /metrics - Prometheus metrics
//   - GET /ws?session={id} - WebSocket upgrade
//
// Error Handling:
//
// Errors are returned as JSON with the HTTP status repeated in the body:
//
//	{
//	  "error": "session not found: session not found",
//	  "code": 404
//	}
//
// Unknown sessions and profiles map to 404, invalid profiles and geometry to 400,
// and step requests against a session in real-time mode to 409.
package api
