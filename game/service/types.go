package service

import (
	"time"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
)

// Event types emitted by the service
const (
	EventTick      = "tick"
	EventFoodEaten = "food_eaten"
	EventGameOver  = "game_over"
	EventDirection = "direction"
	EventPlay      = "play"
	EventPause     = "pause"
	EventReset     = "reset"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// DirectionResult reports whether a requested turn was accepted
type DirectionResult struct {
	Accepted  bool              `json:"accepted"`
	Requested engine.Direction  `json:"requested"`
	Current   engine.Direction  `json:"current"`
	Pending   engine.Direction  `json:"pending"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message,omitempty"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// TickOutcome contains the result of a single simulation step
type TickOutcome struct {
	Result    engine.TickResult `json:"result"`
	GameState *engine.GameState `json:"game_state"`
	Events    []GameEvent       `json:"events"`

	// Recorded is set when the finished game was written to the leaderboard
	Recorded *ScoreEntry `json:"recorded,omitempty"`
}

// ControlResult is returned by play/pause and reset
type ControlResult struct {
	IsPlaying bool              `json:"is_playing"`
	GameState *engine.GameState `json:"game_state"`
	Events    []GameEvent       `json:"events"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "tick", "food_eaten", "game_over", "direction", "play", "pause", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename       string `json:"filename"`
	ConfigID       string `json:"config_id"` // The identifier to use for session creation
	Name           string `json:"name"`      // Display name
	Description    string `json:"description"`
	GridSize       int    `json:"grid_size"`
	TickIntervalMs int    `json:"tick_interval_ms"`
	SafeFoodSpawn  bool   `json:"safe_food_spawn"`
}

// ScoreEntry is one finished game on the leaderboard
type ScoreEntry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ConfigName string    `json:"config_name"`
	Score      int       `json:"score"`
	Length     int       `json:"length"`
	Cause      string    `json:"cause"`
	EndedAt    time.Time `json:"ended_at"`
}
