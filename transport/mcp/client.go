package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Lunar Lander",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Lunar Lander - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Land the ship on the landing zone slowly and upright. Gravity pulls the ship
down every tick; thrust pushes along the ship's nose.

AVAILABLE TOOLS:
- create_session: Create a new flight session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Current position, velocity, angle and phase
- step: Hold keys for a number of ticks - requires intent explanation
- reset_game: Start a new flight
- set_geometry: Move the viewport or landing zone
- flight_history: Past landings and crashes with statistics
- list_configs: List physics profiles
- game_instructions: Controls, physics and landing rules

NOTE: The 'intent' parameter on step serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	sessionIDProp := map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new flight session with an optional physics profile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Physics profile to fly (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active flight sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProp},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Simulation
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the ship's position, velocity, angle, phase and descent risk",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProp},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Hold a set of keys for a number of ticks. Stops early on landing or crash.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp,
				"keys": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Held keys: ArrowUp/w thrust, ArrowLeft/a rotate left, ArrowRight/d rotate right. Empty to coast.",
				},
				"ticks": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Ticks to run (default 1, max %d)", engine.MaxStepTicks),
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "What you are trying to achieve with this burn",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Start a new flight before stepping",
				},
			},
			Required: []string{"session_id", "intent"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Discard the current flight and start a new one",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProp},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_geometry",
		Description: "Set the viewport size and landing zone. Omit the zone edges to mark it unavailable.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp,
				"width":      map[string]interface{}{"type": "number", "description": "Viewport width"},
				"height":     map[string]interface{}{"type": "number", "description": "Viewport height"},
				"top":        map[string]interface{}{"type": "number", "description": "Landing zone top edge"},
				"bottom":     map[string]interface{}{"type": "number", "description": "Landing zone bottom edge"},
				"left":       map[string]interface{}{"type": "number", "description": "Landing zone left edge"},
				"right":      map[string]interface{}{"type": "number", "description": "Landing zone right edge"},
			},
			Required: []string{"session_id", "width", "height"},
		},
	}, c.handleSetGeometry)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flight_history",
		Description: "View completed flights with landing statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp,
				"page":       map[string]interface{}{"type": "integer", "description": "Page number (default 1)"},
				"limit":      map[string]interface{}{"type": "integer", "description": "Flights per page (default 20)"},
			},
			Required: []string{"session_id"},
		},
	}, c.handleFlightHistory)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available physics profiles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get controls, physics and landing rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"].(string); ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID := request.GetString("config_id", "")

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatSnapshot(session.Snapshot))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		phase := "unknown"
		if s.Snapshot != nil {
			phase = string(s.Snapshot.Phase)
		}
		fmt.Fprintf(&result, "- %s (Config: %s, Phase: %s, Flights: %d, Created: %s)\n",
			s.ID, s.ConfigName, phase, s.Flights, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = request.GetString("intent", "")

	body := service.StepRequest{
		Keys:  request.GetStringSlice("keys", nil),
		Ticks: request.GetInt("ticks", 1),
		Reset: request.GetBool("reset", false),
	}

	var result service.StepResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/step"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStepResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var response struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatSnapshot(response.State))), nil
}

func (c *Client) handleSetGeometry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	args := request.GetArguments()

	geo := engine.StaticGeometry{
		Viewport: engine.Viewport{
			Width:  request.GetFloat("width", 0),
			Height: request.GetFloat("height", 0),
		},
	}

	_, hasTop := args["top"]
	_, hasBottom := args["bottom"]
	_, hasLeft := args["left"]
	_, hasRight := args["right"]
	switch {
	case hasTop && hasBottom && hasLeft && hasRight:
		geo.Zone = &engine.LandingZone{
			Top:    request.GetFloat("top", 0),
			Bottom: request.GetFloat("bottom", 0),
			Left:   request.GetFloat("left", 0),
			Right:  request.GetFloat("right", 0),
		}
	case hasTop || hasBottom || hasLeft || hasRight:
		return mcp.NewToolResultError("landing zone needs all of top, bottom, left and right"), nil
	}

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "PUT", sessionPath(sessionID, "/geometry"), geo, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Geometry updated\n\n" + formatSnapshot(&snap)), nil
}

func (c *Client) handleFlightHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	params := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&result, "• %s (%s)\n  %s\n  Gravity: %.3f, Thrust: %.3f, Thrust/Gravity: %.2f, Rate: %d Hz\n\n",
			cfg.ConfigID, cfg.Name, cfg.Description, cfg.Gravity, cfg.ThrustPower, thrustRatio(cfg.ThrustPower, cfg.Gravity), cfg.TickRateHz)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `Lunar Lander - Complete Instructions

OBJECTIVE:
Bring the ship into contact with the landing zone slowly and upright.

CONTROLS:
• ArrowUp or w: thrust along the ship's nose
• ArrowLeft or a: rotate left (counter-clockwise)
• ArrowRight or d: rotate right (clockwise)
• r: reset (edge triggered, only acts when newly pressed)
Keys are case-insensitive; unknown keys are ignored.

PHYSICS (per tick, in this order):
1. Rotate by the rotation speed if a rotate key is held (left wins when both are held)
2. Gravity adds to the vertical speed (positive y is down)
3. Thrust adds sin(angle) horizontally and -cos(angle) vertically, scaled by thrust power
4. Position advances by the velocity
Angle 0 points straight up. There is no drag and no fuel limit.

BOUNDARIES:
• Flying past the left or right edge wraps to the other side
• Hitting the ceiling stops upward motion and bounces back at half speed

LANDING RULES:
Touching the landing zone ends the flight. It is a landing only if, at contact:
• Vertical speed is below the profile's max_landing_speed_v
• Horizontal speed is below max_landing_speed_h
• The ship is within max_landing_angle_deg of upright
Anything else is a crash. A landed or crashed ship stays frozen until reset.

STRATEGY:
• Use game_state to read the risk code: SAFE, CAUTION, DANGER, CRITICAL
• Kill horizontal drift high up with short tilted burns
• Come upright before the final approach
• Step a few ticks at a time near the pad

Good luck, and mind the gravity!`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	mode := "step"
	if session.Realtime {
		mode = "realtime"
	}
	return fmt.Sprintf("Session: %s\nConfig: %s\nMode: %s\nFlights: %d\nCreated: %s\n\n%s",
		session.ID, session.ConfigName, mode, session.Flights,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatSnapshot(session.Snapshot))
}

func formatSnapshot(snap *engine.Snapshot) string {
	if snap == nil {
		return "No game state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Tick: %d | Phase: %s\n", snap.Tick, snap.Phase)
	fmt.Fprintf(&result, "Position: (%.1f, %.1f) | Velocity: (%.3f, %.3f) | Angle: %.1f°",
		snap.Position.X, snap.Position.Y, snap.Velocity.X, snap.Velocity.Y, snap.Angle)
	if snap.Thrusting {
		result.WriteString(" | THRUST")
	}
	result.WriteString("\n")

	if z := snap.LandingZone; z != nil {
		fmt.Fprintf(&result, "Landing zone: x %.0f..%.0f, y %.0f..%.0f\n", z.Left, z.Right, z.Top, z.Bottom)
	} else {
		result.WriteString("Landing zone: unavailable\n")
	}

	if snap.Risk != "" {
		fmt.Fprintf(&result, "Descent risk: %s\n", snap.Risk)
	}

	if td := snap.Touchdown; td != nil {
		fmt.Fprintf(&result, "Touchdown: %s (vx %.3f, vy %.3f, angle %.1f°)\n",
			td.Verdict, td.VelocityX, td.VelocityY, td.NormalizedAngle)
		if len(td.Failed) > 0 {
			fmt.Fprintf(&result, "Failed: %s\n", strings.Join(td.Failed, ", "))
		}
	}

	switch snap.Phase {
	case engine.Landed:
		result.WriteString("\nLANDED!")
	case engine.Crashed:
		result.WriteString("\nCRASHED")
	}

	if snap.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", snap.Message)
	}

	return result.String()
}

func formatStepResult(result *service.StepResult) string {
	var b strings.Builder

	keys := "none"
	if c := result.Commands; c.Thrust || c.RotateLeft || c.RotateRight {
		var held []string
		if c.Thrust {
			held = append(held, "thrust")
		}
		if c.RotateLeft {
			held = append(held, "left")
		}
		if c.RotateRight {
			held = append(held, "right")
		}
		keys = strings.Join(held, "+")
	}

	fmt.Fprintf(&b, "Ticks: %d/%d with %s\n", result.TicksExecuted, result.TicksRequested, keys)
	if result.Truncated {
		fmt.Fprintf(&b, "Request truncated to %d ticks\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s (on tick %d of the request)\n", result.StoppedReason, result.StoppedOnTick)
	}
	for _, ev := range result.Events {
		fmt.Fprintf(&b, "Event: %s at tick %d\n", ev.Type, ev.Tick)
	}

	if result.Start != nil && result.End != nil {
		fmt.Fprintf(&b, "Δy: %.1f | Δvy: %.3f\n",
			result.End.Position.Y-result.Start.Position.Y,
			result.End.Velocity.Y-result.Start.Velocity.Y)
	}

	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.End))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	st := history.Stats

	fmt.Fprintf(&b, "Flights: %d | Landings: %d | Crashes: %d | Success: %.0f%%\n",
		st.Flights, st.Landings, st.Crashes, st.SuccessRate*100)
	if st.Flights > 0 {
		fmt.Fprintf(&b, "Mean touchdown vy: %.3f (σ %.3f) | Mean flight: %.0f ticks\n",
			st.MeanTouchdownVY, st.StdDevTouchdownVY, st.MeanFlightTicks)
	}
	fmt.Fprintf(&b, "Page %d of %d\n\n", history.Page, history.TotalPages)

	for _, f := range history.Flights {
		fmt.Fprintf(&b, "#%d %s after %d ticks (vy %.3f, vx %.3f, angle %.1f°)\n",
			f.Number, f.Phase, f.Ticks, f.Touchdown.VelocityY, f.Touchdown.VelocityX, f.Touchdown.NormalizedAngle)
	}
	if len(history.Flights) == 0 {
		b.WriteString("No completed flights yet\n")
	}
	return b.String()
}

func thrustRatio(thrust, gravity float64) float64 {
	if gravity == 0 {
		return 0
	}
	return thrust / gravity
}
