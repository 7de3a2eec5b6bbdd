package engine

import "fmt"

// Engine provides the main interface for game operations
type Engine interface {
	// Simulation
	Tick() TickResult
	SetDirection(d Direction) bool

	// Controls
	PlayPause() bool
	Play()
	Pause()
	Reset() *GameState

	// Game state
	GetState() *GameState
	Snapshot() *GameState
	SetState(state *GameState) error
	IsGameOver() bool
	IsPlaying() bool
	GetScore() int
	GetHighScore() int
	GetSnake() []Position
	GetFood() Position
	GetDirection() Direction

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error
}

// Option customizes a GameEngine
type Option func(*GameEngine)

// WithFoodSpawner replaces the seeded food spawner
func WithFoodSpawner(spawner *FoodSpawner) Option {
	return func(e *GameEngine) {
		e.spawner = spawner
	}
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access.
type GameEngine struct {
	state   *GameState
	config  *GameConfig
	spawner *FoodSpawner
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	cfg := config.withDefaults()
	e := &GameEngine{
		config: cfg,
		state:  InitGameStateFromConfig(cfg),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.spawner == nil {
		e.spawner = NewFoodSpawner(cfg.Seed)
	}

	return e, nil
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("engine: default config invalid: %v", err))
	}
	return e
}

// Tick advances the simulation by one step. It runs whether or not the game
// is playing; the scheduler decides when to call it.
func (e *GameEngine) Tick() TickResult {
	return e.state.Advance(e.config, e.spawner)
}

// SetDirection requests a new heading for the next tick. Reversals of the
// current heading are ignored and reported as false.
func (e *GameEngine) SetDirection(d Direction) bool {
	return e.state.QueueDirection(d)
}

// PlayPause toggles play and returns the new playing flag
func (e *GameEngine) PlayPause() bool {
	if e.state.IsPlaying {
		e.Pause()
	} else {
		e.Play()
	}
	return e.state.IsPlaying
}

// Play starts or resumes the game
func (e *GameEngine) Play() {
	if e.state.IsPlaying {
		return
	}
	e.state.IsPlaying = true
	e.state.GameOver = false
	e.state.Message = e.config.Messages.Resumed
}

// Pause stops the game without touching anything else
func (e *GameEngine) Pause() {
	if !e.state.IsPlaying {
		return
	}
	e.state.IsPlaying = false
	e.state.Message = e.config.Messages.Paused
}

// Reset stops play and puts the snake back at the origin. High score and food are kept.
func (e *GameEngine) Reset() *GameState {
	e.state.IsPlaying = false
	e.state.GameOver = false
	e.state.LastCollision = ""
	e.state.restart(e.config)
	e.state.Message = e.config.Messages.Reset
	return e.state
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a detached copy of the state that is safe to hand to
// another goroutine
func (e *GameEngine) Snapshot() *GameState {
	snap := *e.state
	snap.Snake = copyBody(e.state.Snake)
	return &snap
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if err := ValidateGameState(state, e.config); err != nil {
		return err
	}
	if state.GridSize == 0 {
		state.GridSize = e.config.GridSize
	}
	if state.PendingDirection == "" {
		state.PendingDirection = state.Direction
	}
	e.state = state
	return nil
}

// IsGameOver reports whether the last tick ended the run
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// IsPlaying returns whether the game is running
func (e *GameEngine) IsPlaying() bool {
	return e.state.IsPlaying
}

// GetScore returns the current score
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

// GetHighScore returns the best score of this session
func (e *GameEngine) GetHighScore() int {
	return e.state.HighScore
}

// GetSnake returns a copy of the snake body, head first
func (e *GameEngine) GetSnake() []Position {
	return copyBody(e.state.Snake)
}

// GetFood returns the food position
func (e *GameEngine) GetFood() Position {
	return e.state.Food
}

// GetDirection returns the heading applied on the last tick
func (e *GameEngine) GetDirection() Direction {
	return e.state.Direction
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game. The high
// score carries over.
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	highScore := e.state.HighScore
	e.config = config.withDefaults()
	e.spawner = NewFoodSpawner(e.config.Seed)
	e.state = InitGameStateFromConfig(e.config)
	e.state.HighScore = highScore
	return nil
}
