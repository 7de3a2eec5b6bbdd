// Package engine provides the core game logic for the snake game.
//
// The engine package implements the game mechanics including:
//   - Grid movement, one cell per tick, in the current heading
//   - Wall and self collision detection
//   - Food consumption, growth and respawn
//   - Score and per-session high score tracking
//   - Configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState holds everything a renderer needs
// (snake, food, score, high score, play flag), while GameConfig defines grid
// size, start positions and cadence loaded from JSON files.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.Play()
//	gameEngine.SetDirection(engine.Down)
//	result := gameEngine.Tick()
//	state := gameEngine.GetState()
//
// Game Rules:
//
// The snake starts as a single segment at the origin heading right. Each tick
// the head moves one cell. Leaving the grid or running into the body ends the
// run: the score is folded into the high score and the snake returns to the
// origin. Eating food adds one point and one segment. Direction requests that
// would reverse the snake onto its neck are ignored.
//
// Two classic quirks are kept on purpose. Food respawns anywhere on the grid,
// including under the body (set safe_food_spawn to avoid it). The collision
// check uses the whole body, so moving into the square the tail is about to
// leave is fatal.
package engine
