// Command pilot flies a server session through step mode with the built-in
// autopilot. It reads the session's physics profile and geometry over the REST
// API, then sends one step per tick with the keys the autopilot would hold,
// retrying with a reset after each crash until it lands or runs out of attempts.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/wricardo/lunar-lander/api"
	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/game/service"
)

// maxRateLimitRetries bounds how often one request is retried after a 429
const maxRateLimitRetries = 5

// Client talks to one session of a lander server
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
	limiter   *rate.Limiter // nil sends as fast as the server answers
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetRateLimit paces requests to at most rps per second. Zero or less disables pacing.
func (c *Client) SetRateLimit(rps float64) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		status, header, data, err := c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			wait := retryAfter(header)
			slog.Debug("rate limited, retrying", "path", path, "wait", wait, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		return decodeResponse(method, path, status, data, result)
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, http.Header, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, data, nil
}

// retryAfter reads a Retry-After header in seconds, defaulting to one second
func retryAfter(header http.Header) time.Duration {
	if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

func decodeResponse(method, path string, status int, data []byte, result interface{}) error {
	if status >= 400 {
		return fmt.Errorf("%s %s failed: %d %s - %s", method, path, status, http.StatusText(status), strings.TrimSpace(string(data)))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

// CreateSession creates a session flying the given profile and targets it
func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return &info, nil
}

// GetSession fetches the targeted session
func (c *Client) GetSession(ctx context.Context) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodGet, c.sessionPath(""), nil, &info); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &info, nil
}

// Step holds keys for the given number of ticks
func (c *Client) Step(ctx context.Context, keys []string, ticks int) (*service.StepResult, error) {
	var result service.StepResult
	req := service.StepRequest{Keys: keys, Ticks: ticks}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/step"), req, &result); err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	return &result, nil
}

// Reset starts a new flight
func (c *Client) Reset(ctx context.Context) (*engine.Snapshot, error) {
	var resp struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

// History fetches the session's flight history summary
func (c *Client) History(ctx context.Context) (*service.HistoryResponse, error) {
	var history service.HistoryResponse
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/history"), nil, &history); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return &history, nil
}

// stateFromSnapshot rebuilds the simulation state a snapshot describes
func stateFromSnapshot(snap *engine.Snapshot) engine.State {
	return engine.State{
		Ship: engine.Ship{
			Position:  snap.Position,
			Velocity:  snap.Velocity,
			Angle:     snap.Angle,
			Thrusting: snap.Thrusting,
		},
		Phase: snap.Phase,
		Tick:  snap.Tick,
	}
}

// keysFor encodes commands as the keys a player would hold
func keysFor(cmds engine.Commands) []string {
	keys := []string{}
	if cmds.RotateLeft {
		keys = append(keys, "ArrowLeft")
	}
	if cmds.RotateRight {
		keys = append(keys, "ArrowRight")
	}
	if cmds.Thrust {
		keys = append(keys, "ArrowUp")
	}
	return keys
}

// Pilot flies attempts against a session
type Pilot struct {
	client    *Client
	autopilot *engine.Autopilot
	geometry  engine.StaticGeometry
	maxTicks  int
	delay     time.Duration
}

// FlightResult is the outcome of one attempt
type FlightResult struct {
	Phase     engine.Phase
	Ticks     uint64
	Requests  int
	Touchdown *engine.Touchdown
}

// NewPilot prepares an autopilot for the session's profile and geometry
func NewPilot(client *Client, info *service.SessionInfo, maxTicks int, delay time.Duration) (*Pilot, error) {
	if info.GameConfig == nil {
		return nil, errors.New("session does not report its physics profile")
	}
	return &Pilot{
		client:    client,
		autopilot: engine.NewAutopilot(info.GameConfig.Physics),
		geometry:  info.Geometry,
		maxTicks:  maxTicks,
		delay:     delay,
	}, nil
}

// Fly steps the session one tick at a time until the flight ends
func (p *Pilot) Fly(ctx context.Context, snap *engine.Snapshot) (*FlightResult, error) {
	result := &FlightResult{}
	for !snap.Phase.Terminal() && snap.Tick < uint64(p.maxTicks) {
		p.geometry.Zone = snap.LandingZone
		cmds := p.autopilot.Commands(stateFromSnapshot(snap), p.geometry)

		step, err := p.client.Step(ctx, keysFor(cmds), 1)
		if err != nil {
			return nil, err
		}
		result.Requests++
		if step.Touchdown != nil {
			result.Touchdown = step.Touchdown
		}
		snap = step.End

		if p.delay > 0 {
			time.Sleep(p.delay)
		}
	}

	result.Phase = snap.Phase
	result.Ticks = snap.Tick
	return result, nil
}

// run flies up to maxAttempts flights, returning the attempt that landed or 0
func run(ctx context.Context, client *Client, info *service.SessionInfo, maxAttempts, maxTicks int, delay time.Duration) (int, error) {
	pilot, err := NewPilot(client, info, maxTicks, delay)
	if err != nil {
		return 0, err
	}

	snap := info.Snapshot
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// A fresh flight is flown as is, anything else starts over
		if snap == nil || snap.Tick > 0 || snap.Phase != engine.Playing {
			if snap, err = client.Reset(ctx); err != nil {
				return 0, err
			}
		}

		flight, err := pilot.Fly(ctx, snap)
		if err != nil {
			return 0, err
		}

		attrs := []any{"attempt", attempt, "phase", flight.Phase, "ticks", flight.Ticks, "requests", flight.Requests}
		if td := flight.Touchdown; td != nil {
			attrs = append(attrs, "vy", td.VelocityY, "vx", td.VelocityX, "angle", td.NormalizedAngle)
		}
		slog.Info("flight finished", attrs...)

		if flight.Phase == engine.Landed {
			return attempt, nil
		}
		snap = nil
	}
	return 0, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "pilot",
		Usage: "Fly a server session with the autopilot over the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "config", Usage: "Physics profile for a new session"},
			&cli.StringFlag{Name: "continue", Usage: "Fly an existing session by ID"},
			&cli.IntFlag{Name: "max-ticks", Value: 6000, Usage: "Maximum ticks per attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 10, Usage: "Maximum attempts before giving up"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay between steps, e.g. 16ms to watch over WebSocket"},
			&cli.FloatFlag{Name: "rate", Value: api.DefaultRateLimitConfig.RequestsPerSecond, Usage: "Maximum requests per second, 0 for unlimited"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := NewClient(cmd.String("url"))
			client.SetRateLimit(cmd.Float("rate"))
			slog.Info("connecting to game server", "url", cmd.String("url"))

			var info *service.SessionInfo
			var err error
			if id := cmd.String("continue"); id != "" {
				client.sessionID = id
				info, err = client.GetSession(ctx)
			} else {
				info, err = client.CreateSession(ctx, cmd.String("config"))
			}
			if err != nil {
				return err
			}
			slog.Info("flying session", "session", client.sessionID, "config", info.ConfigName)

			attempt, err := run(ctx, client, info, int(cmd.Int("max-attempts")), int(cmd.Int("max-ticks")), cmd.Duration("delay"))
			if err != nil {
				return err
			}

			if history, err := client.History(ctx); err == nil {
				s := history.Stats
				slog.Info("session history", "flights", s.Flights, "landings", s.Landings,
					"crashes", s.Crashes, "success_rate", s.SuccessRate)
			}

			if attempt == 0 {
				return cli.Exit(fmt.Sprintf("failed to land, session %s", client.sessionID), 1)
			}
			slog.Info("landed", "attempt", attempt, "session", client.sessionID)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
