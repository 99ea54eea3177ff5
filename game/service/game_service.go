package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/game/telemetry"
)

var (
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrRealtimeActive  = errors.New("session is running in real-time mode")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Simulation
	Step(ctx context.Context, sessionID string, req StepRequest) (*StepResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	StartRealtime(ctx context.Context, sessionID string) error
	StopRealtime(ctx context.Context, sessionID string) error

	// Host feeds
	SetInput(ctx context.Context, sessionID string, keys []string) (*engine.Snapshot, error)
	PressKey(ctx context.Context, sessionID, key string, down bool) (*engine.Snapshot, error)
	SetGeometry(ctx context.Context, sessionID string, geo engine.StaticGeometry) (*engine.Snapshot, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetFlightHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetTelemetry(ctx context.Context, sessionID string) (*TelemetryReport, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles physics profile loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Hooks lets the host observe the simulation without the service knowing about
// transports or metrics. Any field may be nil.
type Hooks struct {
	// OnSnapshot is called after every committed change a renderer should see
	OnSnapshot func(sessionID string, snap *engine.Snapshot)
	// OnTicks is called after a batch of ticks ran in the given mode ("step" or "realtime")
	OnTicks func(mode string, ticks int, elapsed time.Duration)
	// OnFlightEnded is called once per landing or crash
	OnFlightEnded func(sessionID string, record engine.FlightRecord)
}

// Session represents an active game session. Its engine, key tracker and
// recorder are guarded by the session lock. The access time is atomic so the
// session manager can touch it without the session lock.
type Session struct {
	ID        string
	Engine    *engine.GameEngine
	Config    *engine.GameConfig
	Keys      *engine.KeyTracker
	Recorder  *telemetry.Recorder
	CreatedAt time.Time

	lastAccessed atomic.Int64 // unix nanoseconds
	mu           sync.Mutex
	rtMu         sync.Mutex
	rtCancel     context.CancelFunc
}

// NewSession wraps an engine into a session and records its starting frame
func NewSession(id string, eng *engine.GameEngine, config *engine.GameConfig) *Session {
	now := time.Now()
	s := &Session{
		ID:        id,
		Engine:    eng,
		Config:    config,
		Keys:      engine.NewKeyTracker(),
		Recorder:  telemetry.NewRecorder(engine.MaxTelemetryFrames),
		CreatedAt: now,
	}
	s.SetLastAccessed(now)
	s.Recorder.Record(eng.GetState())
	return s
}

// Touch marks the session as accessed now
func (s *Session) Touch() { s.SetLastAccessed(time.Now()) }

// SetLastAccessed sets the access time used for idle expiry
func (s *Session) SetLastAccessed(t time.Time) { s.lastAccessed.Store(t.UnixNano()) }

// LastAccessed returns when the session was last accessed
func (s *Session) LastAccessed() time.Time { return time.Unix(0, s.lastAccessed.Load()) }

// Lock acquires the session lock
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock
func (s *Session) Unlock() { s.mu.Unlock() }

// Realtime reports whether a real-time loop is driving the session
func (s *Session) Realtime() bool {
	s.rtMu.Lock()
	defer s.rtMu.Unlock()
	return s.rtCancel != nil
}

// AttachRealtime registers the cancel func of a new real-time loop. It returns
// false when a loop is already running.
func (s *Session) AttachRealtime(cancel context.CancelFunc) bool {
	s.rtMu.Lock()
	defer s.rtMu.Unlock()
	if s.rtCancel != nil {
		return false
	}
	s.rtCancel = cancel
	return true
}

// StopRealtime cancels the real-time loop if one is running. It returns whether
// a loop was stopped.
func (s *Session) StopRealtime() bool {
	s.rtMu.Lock()
	defer s.rtMu.Unlock()
	if s.rtCancel == nil {
		return false
	}
	s.rtCancel()
	s.rtCancel = nil
	return true
}

// resetFlight starts a new flight and clears the recorder. Callers hold the lock.
func (s *Session) resetFlight() *engine.Snapshot {
	snap := s.Engine.Reset()
	s.Recorder.Reset()
	s.Recorder.Record(s.Engine.GetState())
	return snap
}
