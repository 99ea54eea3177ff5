// Package config manages the physics profiles sessions fly with.
//
// Profiles are JSON or YAML files in the configs directory. Each one carries the
// physics constants (gravity, thrust, rotation speed, landing limits, ship size),
// the default viewport and landing zone used until a host supplies its own, the
// real-time tick rate and the phase messages.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := manager.LoadConfig("mars")
//	profiles, err := manager.ListConfigs()
//
// The classic profile is built in, so a server started with an empty directory
// still has a default.
package config
