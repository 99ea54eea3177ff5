// Package websocket provides the WebSocket transport for the lunar lander server.
//
// The websocket package implements:
//   - Per-session snapshot broadcasting
//   - Host input over the same socket (held keys, key events, geometry, reset)
//   - Connection lifecycle management
//
// Architecture:
//
// A central Hub owns every connection. Each client has a read goroutine that
// forwards input to the InputHandler and a write goroutine that drains its send
// queue. Only the Hub's Run goroutine touches the client registry.
//
// Message Protocol:
//
// Outgoing messages are JSON objects, one per text frame:
//
//	{"session_id": "a1b2", "event": "state_update", "snapshot": {...}}
//
// Incoming messages carry a type:
//
//	{"type": "keys", "keys": ["ArrowUp", "ArrowLeft"]}
//	{"type": "keydown", "key": "ArrowUp"}
//	{"type": "keyup", "key": "ArrowUp"}
//	{"type": "geometry", "geometry": {"viewport": {...}, "landing_zone": {...}}}
//	{"type": "reset"}
//	{"type": "realtime", "enabled": true}
//
// Rejected input is answered with an "error" event sent to that client only.
//
// Usage:
//
//	hub := websocket.NewHub(gameService)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Broadcasting never blocks the simulation: when the hub falls behind, new
// snapshots are dropped and slow clients are disconnected.
package websocket
