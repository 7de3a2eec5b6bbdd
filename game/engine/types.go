package engine

import (
	"errors"
	"strings"
)

// Direction represents one of the four grid headings
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"

	// Validation constants
	MinGridSize         = 5
	MaxGridSize         = 200
	DefaultGridSize     = 40
	MinTickIntervalMs   = 20
	MaxTickIntervalMs   = 5000
	DefaultTickInterval = 200
	WebSocketBufferSize = 256
)

var (
	ErrWallCollision    = errors.New("wall collision")
	ErrSelfCollision    = errors.New("self collision")
	ErrInvalidDirection = errors.New("invalid direction")
)

// AllDirections lists directions in a stable order
var AllDirections = []Direction{Up, Down, Left, Right}

// ParseDirection accepts "up"/"UP"/"ArrowUp" style names
func ParseDirection(s string) (Direction, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "arrow")
	switch Direction(name) {
	case Up, Down, Left, Right:
		return Direction(name), nil
	}
	return "", ErrInvalidDirection
}

// Valid reports whether d is one of the four headings
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Opposite returns the reverse heading
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return ""
}

// IsReverseOf reports whether d points straight back along other
func (d Direction) IsReverseOf(other Direction) bool {
	return d != "" && d.Opposite() == other
}

// Delta returns the unit step for the direction
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the neighbouring position in direction d
func (p Position) Step(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// InBounds reports whether p lies on a square grid of the given side
func (p Position) InBounds(gridSize int) bool {
	return p.X >= 0 && p.X < gridSize && p.Y >= 0 && p.Y < gridSize
}

// Messages holds the text shown for game events. FoodEaten must contain %d for the score.
type Messages struct {
	Welcome       string `json:"welcome"`
	FoodEaten     string `json:"food_eaten"`
	WallCollision string `json:"wall_collision"`
	SelfCollision string `json:"self_collision"`
	Paused        string `json:"paused"`
	Resumed       string `json:"resumed"`
	Reset         string `json:"reset"`
}

// GameConfig represents the game configuration from JSON
type GameConfig struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	GridSize       int       `json:"grid_size"`
	Origin         *Position `json:"origin,omitempty"`
	InitialFood    *Position `json:"initial_food,omitempty"`
	TickIntervalMs int       `json:"tick_interval_ms"`

	// SafeFoodSpawn re-rolls food that lands on the snake. Off by default, which
	// keeps the classic behaviour where food may spawn under the body.
	SafeFoodSpawn bool     `json:"safe_food_spawn"`
	Seed          int64    `json:"seed,omitempty"`
	Messages      Messages `json:"messages"`
}

// GameState represents the complete game state
type GameState struct {
	Snake            []Position `json:"snake"`
	Food             Position   `json:"food"`
	Direction        Direction  `json:"direction"`
	PendingDirection Direction  `json:"pending_direction"`
	Score            int        `json:"score"`
	HighScore        int        `json:"high_score"`
	IsPlaying        bool       `json:"is_playing"`
	GameOver         bool       `json:"game_over"`
	LastCollision    string     `json:"last_collision,omitempty"`
	Message          string     `json:"message"`
	TickCount        int        `json:"tick_count"`
	GamesPlayed      int        `json:"games_played"`
	GridSize         int        `json:"grid_size"`
	ConfigName       string     `json:"config_name"`
}

// Head returns the first snake segment
func (gs *GameState) Head() Position {
	return gs.Snake[0]
}

// Length returns the number of snake segments
func (gs *GameState) Length() int {
	return len(gs.Snake)
}

// TickResult describes what a single tick did
type TickResult struct {
	Moved     bool      `json:"moved"`
	Ate       bool      `json:"ate"`
	GameOver  bool      `json:"game_over"`
	Collision error     `json:"-"`
	Cause     string    `json:"cause,omitempty"`
	From      Position  `json:"from"`
	To        Position  `json:"to"`
	Direction Direction `json:"direction"`
	Score     int       `json:"score"`

	// FinalScore and FinalLength capture the run that just ended on game-over
	FinalScore  int `json:"final_score,omitempty"`
	FinalLength int `json:"final_length,omitempty"`
}
