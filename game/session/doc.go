// Package session provides in-memory session management for the lunar lander server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short case-insensitive session IDs
//   - Idle session expiry, which also stops real-time loops
//
// Each session owns its own engine, key tracker and telemetry recorder, so
// sessions never share simulation state. Nothing is written to disk; a
// restart starts from an empty manager.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
//	removed := manager.CleanupExpiredSessions(time.Hour)
package session
