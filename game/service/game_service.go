package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SetDirection(ctx context.Context, sessionID, direction string) (*DirectionResult, error)
	Tick(ctx context.Context, sessionID string) (*TickOutcome, error)
	PlayPause(ctx context.Context, sessionID string) (*ControlResult, error)
	Reset(ctx context.Context, sessionID string) (*ControlResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Leaderboard
	TopScores(ctx context.Context, limit int) ([]*ScoreEntry, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	Touch(id string) error
	Save(id string) error
}

// Checkpointer is implemented by services that can write every live session
// to persistence while holding off ticks
type Checkpointer interface {
	Checkpoint(ctx context.Context) (int, error)
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// ScoreRecorder stores finished games
type ScoreRecorder interface {
	Record(ctx context.Context, entry *ScoreEntry) error
	Top(ctx context.Context, limit int) ([]*ScoreEntry, error)
}

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
