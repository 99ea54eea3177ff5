package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/lunar-lander/game/clock"
	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/game/telemetry"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	hooks    Hooks
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return NewGameServiceWithHooks(sessions, configs, Hooks{})
}

// NewGameServiceWithHooks creates a game service that reports snapshots, ticks
// and finished flights to hooks
func NewGameServiceWithHooks(sessions SessionManager, configs ConfigManager, hooks Hooks) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		hooks:    hooks,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	slog.Info("session created", "session", session.ID, "config", configID)

	session.Lock()
	defer session.Unlock()
	info := s.sessionInfo(session)
	info.ConfigName = configID
	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	session.Lock()
	defer session.Unlock()
	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		result = append(result, s.sessionInfo(sess))
		sess.Unlock()
	}

	return result, nil
}

// DeleteSession stops any real-time loop and removes the session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, err := s.sessions.Get(sessionID); err == nil {
		sess.StopRealtime()
	}

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}

	slog.Info("session deleted", "session", sessionID)
	return nil
}

// Step advances a session a bounded number of ticks with the same held keys
func (s *gameServiceImpl) Step(ctx context.Context, sessionID string, req StepRequest) (*StepResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	// Loops attach under the session lock, so none can start until this step returns
	if sess.Realtime() {
		return nil, fmt.Errorf("step %s: %w", sessionID, ErrRealtimeActive)
	}

	cmds := engine.Decode(req.Keys)
	result := &StepResult{
		TicksRequested: req.Ticks,
		Commands:       cmds,
		Verdict:        engine.NoJudgment,
		Events:         make([]GameEvent, 0),
	}

	// A held reset key is a reset request, routed out-of-band like the explicit flag
	if req.Reset || cmds.ResetRequested {
		snap := sess.resetFlight()
		result.Events = append(result.Events, GameEvent{
			Type:      "reset",
			Message:   snap.Message,
			Timestamp: time.Now(),
		})
	}
	cmds.ResetRequested = false

	ticks := req.Ticks
	if ticks <= 0 {
		ticks = 1
	}
	if ticks > engine.MaxStepTicks {
		result.Truncated = true
		result.Limit = engine.MaxStepTicks
		ticks = engine.MaxStepTicks
	}

	result.Start = s.snapshot(sess)

	started := time.Now()
	for i := 0; i < ticks; i++ {
		if sess.Engine.IsTerminal() {
			result.StoppedReason = string(sess.Engine.Phase())
			result.StoppedOnTick = result.TicksExecuted + 1
			break
		}
		if ctx.Err() != nil {
			result.StoppedReason = "cancelled"
			result.StoppedOnTick = result.TicksExecuted + 1
			break
		}

		td := s.tick(sess, cmds)
		result.TicksExecuted++

		if td.Verdict != engine.NoJudgment {
			result.Verdict = td.Verdict
			result.Touchdown = &td
			result.Events = append(result.Events, s.flightEvent(sess))
		}
	}

	if s.hooks.OnTicks != nil && result.TicksExecuted > 0 {
		s.hooks.OnTicks("step", result.TicksExecuted, time.Since(started))
	}

	result.End = s.snapshot(sess)
	s.publish(sess.ID, result.End)
	return result, nil
}

// Reset discards the current flight and starts a new one
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	sess.resetFlight()
	snap := s.snapshot(sess)
	sess.Unlock()

	slog.Debug("flight reset", "session", sess.ID)
	s.publish(sess.ID, snap)
	return snap, nil
}

// StartRealtime starts a fixed-rate loop ticking the session with its held keys.
// Starting an already running session is a no-op.
func (s *gameServiceImpl) StartRealtime(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	// The loop outlives the request that started it
	runCtx, cancel := context.WithCancel(context.Background())
	sess.Lock()
	attached := sess.AttachRealtime(cancel)
	sess.Unlock()
	if !attached {
		cancel()
		return nil
	}

	loop := clock.New(sess.Config.TickRateHz)
	slog.Info("realtime started", "session", sess.ID, "tick_rate_hz", sess.Config.TickRateHz)

	go func() {
		loop.Run(runCtx, func() bool {
			s.realtimeTick(sess)
			return true
		})
		slog.Info("realtime stopped", "session", sess.ID, "dropped_ticks", loop.Dropped())
	}()

	return nil
}

// StopRealtime stops the session's real-time loop, if any
func (s *gameServiceImpl) StopRealtime(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	sess.StopRealtime()
	return nil
}

// realtimeTick runs one loop tick. Terminal phases are not ticked, so a landed
// or crashed session stays quiet until the player resets.
func (s *gameServiceImpl) realtimeTick(sess *Session) {
	sess.Lock()
	if sess.Engine.IsTerminal() {
		sess.Unlock()
		return
	}

	started := time.Now()
	td := s.tick(sess, sess.Keys.Commands())
	if td.Verdict != engine.NoJudgment {
		slog.Info("flight ended", "session", sess.ID, "phase", sess.Engine.Phase(), "tick", sess.Engine.GetState().Tick)
	}
	snap := s.snapshot(sess)
	sess.Unlock()

	if s.hooks.OnTicks != nil {
		s.hooks.OnTicks("realtime", 1, time.Since(started))
	}
	s.publish(sess.ID, snap)
}

// SetInput replaces the held-key snapshot. A newly held reset key resets the flight.
func (s *gameServiceImpl) SetInput(ctx context.Context, sessionID string, keys []string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	reset := sess.Keys.Set(keys)
	if reset {
		sess.resetFlight()
	}
	snap := s.snapshot(sess)
	sess.Unlock()

	if reset {
		s.publish(sess.ID, snap)
	}
	return snap, nil
}

// PressKey records a single key-down or key-up event
func (s *gameServiceImpl) PressKey(ctx context.Context, sessionID, key string, down bool) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	reset := false
	if down {
		reset = sess.Keys.Press(key)
	} else {
		sess.Keys.Release(key)
	}
	if reset {
		sess.resetFlight()
	}
	snap := s.snapshot(sess)
	sess.Unlock()

	if reset {
		s.publish(sess.ID, snap)
	}
	return snap, nil
}

// SetGeometry replaces the host-supplied viewport and landing zone
func (s *gameServiceImpl) SetGeometry(ctx context.Context, sessionID string, geo engine.StaticGeometry) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	if err := sess.Engine.SetGeometry(geo); err != nil {
		sess.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	snap := s.snapshot(sess)
	sess.Unlock()

	s.publish(sess.ID, snap)
	return snap, nil
}

// GetGameState returns the current snapshot of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return s.snapshot(sess), nil
}

// GetFlightHistory returns paginated flight history with summary statistics
func (s *gameServiceImpl) GetFlightHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	history := make([]engine.FlightRecord, len(sess.Engine.GetFlightHistory()))
	copy(history, sess.Engine.GetFlightHistory())
	sess.Unlock()

	total := len(history)

	// Set defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var flights []engine.FlightRecord
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			flights = append(flights, history[i])
		}
	} else if start < total {
		flights = history[start:end]
	}

	if flights == nil {
		flights = []engine.FlightRecord{}
	}

	return &HistoryResponse{
		Flights:      flights,
		TotalFlights: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
		Stats:        telemetry.SummarizeHistory(history),
	}, nil
}

// GetTelemetry returns the recorded frames of the current flight
func (s *gameServiceImpl) GetTelemetry(ctx context.Context, sessionID string) (*TelemetryReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	return &TelemetryReport{
		SessionID: sess.ID,
		Frames:    sess.Recorder.Frames(),
		Stats:     sess.Recorder.Summary(),
	}, nil
}

// ListConfigs returns available physics profiles
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific physics profile
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a physics profile to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// getSession looks a session up and marks it as accessed
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		slog.Warn("failed to update session access time", "session", sessionID, "error", err)
	}
	return sess, nil
}

// tick advances one tick and records telemetry. Callers hold the session lock.
func (s *gameServiceImpl) tick(sess *Session, cmds engine.Commands) engine.Touchdown {
	td := sess.Engine.Tick(cmds)
	sess.Recorder.Record(sess.Engine.GetState())

	if td.Verdict != engine.NoJudgment && s.hooks.OnFlightEnded != nil {
		if last := sess.Engine.GetLastFlight(); last != nil {
			s.hooks.OnFlightEnded(sess.ID, *last)
		}
	}
	return td
}

// snapshot builds a renderer snapshot enriched with a descent risk code.
// Callers hold the session lock.
func (s *gameServiceImpl) snapshot(sess *Session) *engine.Snapshot {
	snap := sess.Engine.Snapshot()
	if !sess.Engine.IsTerminal() {
		zone, ok := sess.Engine.LandingZone()
		snap.Risk = riskCode(engine.AnalyzeDescentRisk(sess.Engine.GetState().Ship, sess.Config.Physics, zone, ok))
	}
	return snap
}

// sessionInfo builds the session DTO. Callers hold the session lock.
func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config.Name),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		Snapshot:       s.snapshot(sess),
		Geometry:       sess.Engine.Geometry(),
		Realtime:       sess.Realtime(),
		Flights:        len(sess.Engine.GetFlightHistory()),
		GameConfig:     sess.Config,
	}
}

// flightEvent describes the landing or crash that just happened. Callers hold the session lock.
func (s *gameServiceImpl) flightEvent(sess *Session) GameEvent {
	snap := sess.Engine.Snapshot()
	return GameEvent{
		Type:      string(snap.Phase),
		Message:   snap.Message,
		Timestamp: time.Now(),
		Tick:      snap.Tick,
	}
}

func (s *gameServiceImpl) publish(sessionID string, snap *engine.Snapshot) {
	if s.hooks.OnSnapshot != nil {
		s.hooks.OnSnapshot(sessionID, snap)
	}
}

// riskCode reduces a risk description to its leading severity word
func riskCode(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "critical"):
		return "CRITICAL"
	case strings.Contains(t, "danger"):
		return "DANGER"
	case strings.Contains(t, "caution"):
		return "CAUTION"
	case strings.Contains(t, "warning"):
		return "WARNING"
	case strings.Contains(t, "safe"):
		return "SAFE"
	default:
		return "UNKNOWN"
	}
}
