package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/lunar-lander/api"
	"github.com/wricardo/lunar-lander/game/config"
	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/game/service"
	"github.com/wricardo/lunar-lander/game/session"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

// newLiveClient wires an MCP client to a real API server
func newLiveClient(t *testing.T) *Client {
	t.Helper()

	configMgr, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	gameService := service.NewGameService(session.NewManager(), configMgr)

	server := httptest.NewServer(api.NewServer(gameService, nil))
	t.Cleanup(server.Close)

	return NewClient(server.URL)
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "ab12", "tick": 42})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/api/sessions/ab12", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "ab12" {
		t.Errorf("Expected id ab12, got %v", response["id"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	t.Run("plain body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error") {
			t.Errorf("Expected 'API error', got: %v", err)
		}
	})

	t.Run("json error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": "session not found", "code": 404})
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || err.Error() != "session not found" {
			t.Errorf("Expected server message, got: %v", err)
		}
	})
}

func TestClient_createSessionForwardsConfig(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(service.SessionInfo{ID: "ab12", ConfigName: "mars"})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleCreateSession(context.Background(),
		callRequest("create_session", map[string]interface{}{"config_id": "mars"}))
	if err != nil {
		t.Fatal(err)
	}

	if body["config_id"] != "mars" {
		t.Errorf("Expected config_id forwarded, got %v", body)
	}
	if text := resultText(t, result); !strings.Contains(text, "Created session: ab12") {
		t.Errorf("Unexpected result: %s", text)
	}
}

func TestFormatSnapshot(t *testing.T) {
	snap := &engine.Snapshot{
		Position:    engine.Vec2{X: 640, Y: 120.5},
		Velocity:    engine.Vec2{X: 0.5, Y: 1.25},
		Angle:       15,
		Thrusting:   true,
		Phase:       engine.Playing,
		Tick:        30,
		LandingZone: &engine.LandingZone{Top: 640, Bottom: 660, Left: 560, Right: 720},
		Risk:        "CAUTION",
	}

	text := formatSnapshot(snap)
	for _, want := range []string{"Tick: 30", "Phase: playing", "Position: (640.0, 120.5)", "THRUST", "x 560..720", "Descent risk: CAUTION"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}

	if got := formatSnapshot(nil); got != "No game state available" {
		t.Errorf("Unexpected nil formatting: %s", got)
	}
}

func TestFormatSnapshot_Crashed(t *testing.T) {
	snap := &engine.Snapshot{
		Phase: engine.Crashed,
		Touchdown: &engine.Touchdown{
			Verdict:   engine.Failure,
			VelocityY: 3.2,
			Failed:    []string{"vertical_speed"},
		},
		Message: "Crashed! Press R to try again.",
	}

	text := formatSnapshot(snap)
	for _, want := range []string{"Landing zone: unavailable", "Touchdown: failure", "vertical_speed", "CRASHED", "Message: Crashed!"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
}

func TestFormatStepResult(t *testing.T) {
	result := &service.StepResult{
		TicksRequested: 700,
		TicksExecuted:  12,
		Commands:       engine.Commands{Thrust: true, RotateLeft: true},
		Truncated:      true,
		Limit:          engine.MaxStepTicks,
		StoppedReason:  "crashed",
		StoppedOnTick:  13,
		Start:          &engine.Snapshot{Phase: engine.Playing},
		End:            &engine.Snapshot{Phase: engine.Crashed, Position: engine.Vec2{Y: 40}},
		Events:         []service.GameEvent{{Type: "crashed", Tick: 112}},
	}

	text := formatStepResult(result)
	for _, want := range []string{"Ticks: 12/700 with thrust+left", "truncated to 600", "Stopped: crashed", "Event: crashed at tick 112", "CRASHED"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callRequest("game_instructions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Lunar Lander - Complete Instructions", "CONTROLS:", "PHYSICS", "BOUNDARIES:", "LANDING RULES:"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in instructions", want)
		}
	}
}

func TestClient_SetGeometryRequiresWholeZone(t *testing.T) {
	client := NewClient("http://localhost:1")

	result, err := client.handleSetGeometry(context.Background(), callRequest("set_geometry", map[string]interface{}{
		"session_id": "ab12", "width": 800.0, "height": 600.0, "top": 500.0,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("Expected a partial zone to be rejected")
	}
}

func TestClient_Integration(t *testing.T) {
	client := newLiveClient(t)
	ctx := context.Background()

	result, _ := client.handleCreateSession(ctx, callRequest("create_session", map[string]interface{}{}))
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("create_session failed: %s", text)
	}
	id := strings.TrimSpace(strings.SplitN(strings.TrimPrefix(text, "Created session: "), "\n", 2)[0])

	// Pad far below the viewport so the ship falls freely
	result, _ = client.handleSetGeometry(ctx, callRequest("set_geometry", map[string]interface{}{
		"session_id": id, "width": 1280.0, "height": 720.0,
		"top": 5000.0, "bottom": 5020.0, "left": 0.0, "right": 1280.0,
	}))
	if result.IsError {
		t.Fatalf("set_geometry failed: %s", resultText(t, result))
	}

	result, _ = client.handleStep(ctx, callRequest("step", map[string]interface{}{
		"session_id": id, "ticks": 10.0, "keys": []interface{}{"ArrowLeft"}, "intent": "tilt",
	}))
	text = resultText(t, result)
	if result.IsError || !strings.Contains(text, "Ticks: 10/10 with left") {
		t.Errorf("Unexpected step result: %s", text)
	}

	result, _ = client.handleGameState(ctx, callRequest("game_state", map[string]interface{}{"session_id": id}))
	if text := resultText(t, result); !strings.Contains(text, "Tick: 10") || !strings.Contains(text, "Angle: -30.0") {
		t.Errorf("Unexpected state: %s", text)
	}

	result, _ = client.handleReset(ctx, callRequest("reset_game", map[string]interface{}{"session_id": id}))
	if text := resultText(t, result); !strings.Contains(text, "Tick: 0") {
		t.Errorf("Unexpected reset result: %s", text)
	}

	result, _ = client.handleFlightHistory(ctx, callRequest("flight_history", map[string]interface{}{"session_id": id}))
	if text := resultText(t, result); !strings.Contains(text, "No completed flights yet") {
		t.Errorf("Unexpected history: %s", text)
	}

	result, _ = client.handleListConfigs(ctx, callRequest("list_configs", map[string]interface{}{}))
	if text := resultText(t, result); !strings.Contains(text, "classic") {
		t.Errorf("Expected built-in classic profile: %s", text)
	}

	result, _ = client.handleGameState(ctx, callRequest("game_state", map[string]interface{}{"session_id": "zzzz"}))
	if !result.IsError {
		t.Error("Expected error for unknown session")
	}
}
