package service

import (
	"time"

	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/game/telemetry"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string                `json:"id"`
	ConfigName     string                `json:"config_name"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	Snapshot       *engine.Snapshot      `json:"snapshot"`
	Geometry       engine.StaticGeometry `json:"geometry"`
	Realtime       bool                  `json:"realtime"`
	Flights        int                   `json:"flights"`
	GameConfig     *engine.GameConfig    `json:"game_config"`
}

// StepRequest asks for a number of ticks with a fixed set of held keys
type StepRequest struct {
	Keys  []string `json:"keys"`
	Ticks int      `json:"ticks"`
	Reset bool     `json:"reset"`
}

// StepResult contains the result of a step operation
type StepResult struct {
	// Summary
	TicksRequested int             `json:"ticks_requested"`
	TicksExecuted  int             `json:"ticks_executed"`
	Commands       engine.Commands `json:"commands"`
	Truncated      bool            `json:"truncated,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	StoppedReason  string          `json:"stopped_reason,omitempty"` // landed|crashed|cancelled
	StoppedOnTick  int             `json:"stopped_on_tick,omitempty"`

	// Start/end snapshot
	Start *engine.Snapshot `json:"start"`
	End   *engine.Snapshot `json:"end"`

	// Outcome of a collision during this call, if any
	Verdict   engine.Verdict    `json:"verdict"`
	Touchdown *engine.Touchdown `json:"touchdown,omitempty"`

	Events []GameEvent `json:"events"`
}

// GameEvent represents an event that occurred during a flight
type GameEvent struct {
	Type      string    `json:"type"` // "reset", "landed", "crashed", "geometry"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Tick      uint64    `json:"tick"`
}

// HistoryOptions configures flight history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated flight history
type HistoryResponse struct {
	Flights      []engine.FlightRecord  `json:"flights"`
	TotalFlights int                    `json:"total_flights"`
	Page         int                    `json:"page"`
	PageSize     int                    `json:"page_size"`
	TotalPages   int                    `json:"total_pages"`
	HasNext      bool                   `json:"has_next"`
	HasPrevious  bool                   `json:"has_previous"`
	Stats        telemetry.HistoryStats `json:"stats"`
}

// TelemetryReport contains the recorded frames of the current flight
type TelemetryReport struct {
	SessionID string                `json:"session_id"`
	Frames    []telemetry.Frame     `json:"frames"`
	Stats     telemetry.FlightStats `json:"stats"`
}

// ConfigInfo provides information about a physics profile
type ConfigInfo struct {
	Filename    string  `json:"filename"`
	ConfigID    string  `json:"config_id"` // The identifier to use for session creation
	Name        string  `json:"name"`      // Display name
	Description string  `json:"description"`
	Gravity     float64 `json:"gravity"`
	ThrustPower float64 `json:"thrust_power"`
	TickRateHz  int     `json:"tick_rate_hz"`
}
