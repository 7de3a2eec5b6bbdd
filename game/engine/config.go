package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfig returns the classic 40x40 configuration
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:           "classic",
		Description:    "Classic 40x40 board, one tick every 200ms",
		GridSize:       DefaultGridSize,
		Origin:         &Position{X: 10, Y: 10},
		InitialFood:    &Position{X: 15, Y: 15},
		TickIntervalMs: DefaultTickInterval,
		Messages:       DefaultMessages(),
	}
}

// DefaultMessages returns the built-in message set
func DefaultMessages() Messages {
	return Messages{
		Welcome:       "Press play to start. Arrow keys steer the snake.",
		FoodEaten:     "Yum! Score: %d",
		WallCollision: "Crashed into the wall! Game Over!",
		SelfCollision: "Bit your own tail! Game Over!",
		Paused:        "Paused",
		Resumed:       "Go!",
		Reset:         "Game reset",
	}
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridSize)
	}

	if config.TickIntervalMs != 0 && (config.TickIntervalMs < MinTickIntervalMs || config.TickIntervalMs > MaxTickIntervalMs) {
		return fmt.Errorf("config validation: tick_interval_ms must be between %d and %d, got %d",
			MinTickIntervalMs, MaxTickIntervalMs, config.TickIntervalMs)
	}

	origin := config.OriginOrDefault()
	if !origin.InBounds(config.GridSize) {
		return fmt.Errorf("config validation: origin (%d,%d) is outside the %dx%d grid",
			origin.X, origin.Y, config.GridSize, config.GridSize)
	}

	food := config.InitialFoodOrDefault()
	if !food.InBounds(config.GridSize) {
		return fmt.Errorf("config validation: initial_food (%d,%d) is outside the %dx%d grid",
			food.X, food.Y, config.GridSize, config.GridSize)
	}
	if food == origin {
		return fmt.Errorf("config validation: initial_food must not overlap the origin (%d,%d)", origin.X, origin.Y)
	}

	if config.Messages.FoodEaten != "" && !strings.Contains(config.Messages.FoodEaten, "%d") {
		return fmt.Errorf("config validation: messages.food_eaten must contain %%d for score")
	}

	return nil
}

// OriginOrDefault returns the configured origin, falling back to (10,10) clamped into the grid
func (c *GameConfig) OriginOrDefault() Position {
	if c.Origin != nil {
		return *c.Origin
	}
	return clampToGrid(Position{X: 10, Y: 10}, c.GridSize)
}

// InitialFoodOrDefault returns the configured initial food, falling back to (15,15) clamped into the grid
func (c *GameConfig) InitialFoodOrDefault() Position {
	if c.InitialFood != nil {
		return *c.InitialFood
	}
	food := clampToGrid(Position{X: 15, Y: 15}, c.GridSize)
	if food == c.OriginOrDefault() {
		// Tiny grids collapse both defaults onto the corner
		food.X = 0
	}
	return food
}

// TickInterval returns the scheduler period for this configuration
func (c *GameConfig) TickInterval() time.Duration {
	if c.TickIntervalMs <= 0 {
		return DefaultTickInterval * time.Millisecond
	}
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// withDefaults fills empty messages so the engine never shows blank text
func (c *GameConfig) withDefaults() *GameConfig {
	cfg := *c
	def := DefaultMessages()
	if cfg.Messages.Welcome == "" {
		cfg.Messages.Welcome = def.Welcome
	}
	if cfg.Messages.FoodEaten == "" {
		cfg.Messages.FoodEaten = def.FoodEaten
	}
	if cfg.Messages.WallCollision == "" {
		cfg.Messages.WallCollision = def.WallCollision
	}
	if cfg.Messages.SelfCollision == "" {
		cfg.Messages.SelfCollision = def.SelfCollision
	}
	if cfg.Messages.Paused == "" {
		cfg.Messages.Paused = def.Paused
	}
	if cfg.Messages.Resumed == "" {
		cfg.Messages.Resumed = def.Resumed
	}
	if cfg.Messages.Reset == "" {
		cfg.Messages.Reset = def.Reset
	}
	return &cfg
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// InitGameStateFromConfig creates a new game state using the provided configuration
func InitGameStateFromConfig(config *GameConfig) *GameState {
	if config == nil {
		config = DefaultConfig()
	}

	return &GameState{
		Snake:            []Position{config.OriginOrDefault()},
		Food:             config.InitialFoodOrDefault(),
		Direction:        Right,
		PendingDirection: Right,
		Message:          config.Messages.Welcome,
		GridSize:         config.GridSize,
		ConfigName:       config.Name,
	}
}

// ValidateGameState checks a restored state against a configuration
func ValidateGameState(state *GameState, config *GameConfig) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if len(state.Snake) == 0 {
		return fmt.Errorf("state validation: snake must have at least one segment")
	}
	if config != nil && state.GridSize != 0 && state.GridSize != config.GridSize {
		return fmt.Errorf("state validation: grid_size %d does not match config grid_size %d", state.GridSize, config.GridSize)
	}
	size := state.GridSize
	if size == 0 && config != nil {
		size = config.GridSize
	}
	for i, p := range state.Snake {
		if !p.InBounds(size) {
			return fmt.Errorf("state validation: segment %d at (%d,%d) is out of bounds", i, p.X, p.Y)
		}
	}
	if HasSelfOverlap(state.Snake) {
		return fmt.Errorf("state validation: snake overlaps itself")
	}
	if state.Score < 0 || state.HighScore < 0 {
		return fmt.Errorf("state validation: scores must be non-negative")
	}
	if !state.Direction.Valid() {
		return fmt.Errorf("state validation: direction %q: %w", state.Direction, ErrInvalidDirection)
	}
	if state.PendingDirection != "" {
		if !state.PendingDirection.Valid() {
			return fmt.Errorf("state validation: pending_direction %q: %w", state.PendingDirection, ErrInvalidDirection)
		}
		if state.PendingDirection.IsReverseOf(state.Direction) {
			return fmt.Errorf("state validation: pending_direction %s reverses direction %s", state.PendingDirection, state.Direction)
		}
	}
	return nil
}

func clampToGrid(p Position, gridSize int) Position {
	if p.X >= gridSize {
		p.X = gridSize - 1
	}
	if p.Y >= gridSize {
		p.Y = gridSize - 1
	}
	return p
}
