package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
	"github.com/wricardo/mcp-training/snakegame/game/service"
)

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func sampleState() *engine.GameState {
	return &engine.GameState{
		Snake:     []engine.Position{{X: 3, Y: 2}, {X: 2, Y: 2}, {X: 1, Y: 2}},
		Food:      engine.Position{X: 6, Y: 2},
		Direction: engine.Right,
		Score:     2,
		HighScore: 5,
		GridSize:  8,
		TickCount: 12,
		Message:   "Nice!",
	}
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
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "abcd", "score": 3})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/api/sessions/abcd", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "abcd" {
		t.Errorf("Expected id abcd, got %v", response["id"])
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://invalid-url-that-does-not-exist:9999")
		if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
			t.Error("Expected error for invalid URL")
		}
	})

	t.Run("plain HTTP error", func(t *testing.T) {
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

	t.Run("JSON error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || err.Error() != "session not found" {
			t.Errorf("Expected API message, got: %v", err)
		}
	})
}

func TestClient_createSession(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.SessionInfo{
			ID:         "beef",
			ConfigName: "small",
			GameState:  sampleState(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), toolRequest("create_session", map[string]interface{}{"config_id": "small"}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "beef") {
		t.Errorf("Expected session ID in result, got: %s", text)
	}
	if gotBody["config_id"] != "small" {
		t.Errorf("Expected config_id forwarded, got %v", gotBody)
	}
}

func TestClient_setDirection(t *testing.T) {
	tests := []struct {
		name     string
		response service.DirectionResult
		expected string
	}{
		{
			name:     "accepted",
			response: service.DirectionResult{Accepted: true, Requested: engine.Up, Current: engine.Right, GameState: sampleState()},
			expected: "✓ Turn queued: up",
		},
		{
			name:     "rejected",
			response: service.DirectionResult{Accepted: false, Message: "Cannot reverse from right to left", GameState: sampleState()},
			expected: "✗ Turn rejected: Cannot reverse from right to left",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/sessions/abcd/direction" {
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			result, err := client.handleSetDirection(context.Background(), toolRequest("set_direction", map[string]interface{}{
				"session_id": "abcd",
				"direction":  "up",
				"intent":     "food is above",
			}))
			if err != nil {
				t.Fatalf("handleSetDirection failed: %v", err)
			}
			if text := resultText(t, result); !strings.Contains(text, tt.expected) {
				t.Errorf("Expected %q in result, got: %s", tt.expected, text)
			}
		})
	}
}

func TestClient_tickStopsOnGameOver(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		outcome := service.TickOutcome{
			Result:    engine.TickResult{Moved: true, Direction: engine.Right, From: engine.Position{X: 1, Y: 2}, To: engine.Position{X: 2, Y: 2}},
			GameState: sampleState(),
		}
		if n == 3 {
			outcome.Result = engine.TickResult{GameOver: true, Cause: "wall", Direction: engine.Right, FinalScore: 2, FinalLength: 3}
			outcome.Recorded = &service.ScoreEntry{Score: 2}
		}
		json.NewEncoder(w).Encode(outcome)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleTick(context.Background(), toolRequest("tick", map[string]interface{}{
		"session_id": "abcd",
		"steps":      float64(10),
	}))
	if err != nil {
		t.Fatalf("handleTick failed: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected ticking to stop at game over after 3 calls, got %d", got)
	}

	text := resultText(t, result)
	for _, want := range []string{"Ran 3 of 10 steps", "game over (wall)", "recorded on the leaderboard"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_tickCapsSteps(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(service.TickOutcome{GameState: sampleState()})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.handleTick(context.Background(), toolRequest("tick", map[string]interface{}{
		"session_id": "abcd",
		"steps":      float64(1000),
	}))

	if got := atomic.LoadInt32(&calls); got != maxTickSteps {
		t.Errorf("Expected %d ticks, got %d", maxTickSteps, got)
	}
}

func TestClient_toolErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()
	args := map[string]interface{}{"session_id": "nope"}

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"game_state":  client.handleGameState,
		"get_session": client.handleGetSession,
		"tick":        client.handleTick,
		"play_pause":  client.handlePlayPause,
		"reset_game":  client.handleReset,
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := handler(ctx, toolRequest(name, args))
			if err != nil {
				t.Fatalf("Expected tool error in result, got Go error %v", err)
			}
			if !result.IsError {
				t.Error("Expected IsError result")
			}
		})
	}
}

func TestClient_topScores(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count": 1,
			"scores": []service.ScoreEntry{
				{SessionID: "abcd", ConfigName: "classic", Score: 17, Length: 18, Cause: "self", EndedAt: time.Now()},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, _ := client.handleTopScores(context.Background(), toolRequest("top_scores", map[string]interface{}{"limit": float64(3)}))

	if gotQuery != "limit=3" {
		t.Errorf("Expected limit=3, got %q", gotQuery)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "17 pts") || !strings.Contains(text, "abcd") {
		t.Errorf("Unexpected leaderboard: %s", text)
	}
}

func TestFormatGameState(t *testing.T) {
	result := formatGameState(sampleState())

	expectedFields := []string{
		"Head: (3,2)",
		"Direction: right",
		"Length: 3",
		"Score: 2",
		"High score: 5",
		"Food: (6,2)",
		"Status: paused",
		".ooH..*.",
		"Nice!",
	}
	for _, field := range expectedFields {
		if !strings.Contains(result, field) {
			t.Errorf("Expected '%s' in formatted output, got: %s", field, result)
		}
	}
	// Every row but the snake's is empty
	if got := strings.Count(result, "........\n"); got != 7 {
		t.Errorf("Expected 7 empty rows, got %d", got)
	}
}

func TestFormatGameState_GameOver(t *testing.T) {
	state := sampleState()
	state.GameOver = true
	state.LastCollision = "wall"

	result := formatGameState(state)
	if !strings.Contains(result, "💀 GAME OVER (wall collision)") {
		t.Errorf("Expected game over banner, got: %s", result)
	}
	if !strings.Contains(result, "Status: game over") {
		t.Errorf("Expected game over status, got: %s", result)
	}
}

func TestFormatGameState_LargeBoard(t *testing.T) {
	state := sampleState()
	state.GridSize = 80

	result := formatGameState(state)
	if !strings.Contains(result, "80x80 board too large to draw") {
		t.Errorf("Expected large board notice, got: %s", result)
	}
}

func TestFormatGameState_Nil(t *testing.T) {
	if got := formatGameState(nil); got != "No game state available" {
		t.Errorf("Unexpected output for nil state: %s", got)
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), toolRequest("game_instructions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	expectedContent := []string{
		"Snake Game - Complete Instructions",
		"GAME OBJECTIVE:",
		"GRID LEGEND:",
		"MOVEMENT COMMANDS:",
		"REAL-TIME PLAY:",
		"STRATEGY TIPS:",
	}
	for _, content := range expectedContent {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in instructions", content)
		}
	}
}
