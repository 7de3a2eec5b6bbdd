package engine

import (
	"errors"
	"fmt"
)

// CanTurn reports whether d would be accepted as the next heading. A turn
// must not reverse the direction queued for the next tick, nor the heading
// the snake is moving in now.
func (gs *GameState) CanTurn(d Direction) bool {
	if !d.Valid() {
		return false
	}
	if d.IsReverseOf(gs.PendingDirection) {
		return false
	}
	return !d.IsReverseOf(gs.Direction)
}

// QueueDirection stores d in the pending slot unless it reverses the pending
// or current heading. The slot holds one value; a later valid call overwrites it.
func (gs *GameState) QueueDirection(d Direction) bool {
	if !gs.CanTurn(d) {
		return false
	}
	gs.PendingDirection = d
	return true
}

// Advance runs one simulation step: move the head, resolve collisions, eat or
// drop the tail.
func (gs *GameState) Advance(config *GameConfig, spawner *FoodSpawner) TickResult {
	if gs.PendingDirection != "" {
		gs.Direction = gs.PendingDirection
	}

	from := gs.Head()
	newHead := from.Step(gs.Direction)
	gs.TickCount++

	result := TickResult{
		From:      from,
		To:        newHead,
		Direction: gs.Direction,
	}

	if err := gs.checkCollision(newHead); err != nil {
		result.GameOver = true
		result.Collision = err
		result.Cause = CollisionCause(err)
		result.FinalScore = gs.Score
		result.FinalLength = len(gs.Snake)
		gs.endGame(err, config)
		result.Score = gs.Score
		return result
	}

	gs.Snake = append([]Position{newHead}, gs.Snake...)
	result.Moved = true

	if newHead == gs.Food {
		gs.Score++
		gs.Food = gs.spawnFood(config, spawner)
		gs.Message = fmt.Sprintf(config.Messages.FoodEaten, gs.Score)
		result.Ate = true
	} else {
		gs.Snake = gs.Snake[:len(gs.Snake)-1]
	}

	result.Score = gs.Score
	return result
}

// checkCollision tests newHead against the walls and the full pre-move body.
// The tail square counts as occupied even though a non-growing move would
// vacate it, so chasing your own tail is fatal.
func (gs *GameState) checkCollision(newHead Position) error {
	if !newHead.InBounds(gs.GridSize) {
		return ErrWallCollision
	}
	if ContainsPosition(gs.Snake, newHead) {
		return ErrSelfCollision
	}
	return nil
}

// spawnFood picks the next food cell. Without SafeFoodSpawn the pick ignores
// the body and may land on it.
func (gs *GameState) spawnFood(config *GameConfig, spawner *FoodSpawner) Position {
	if config.SafeFoodSpawn {
		return spawner.NextFree(gs.GridSize, gs.Snake)
	}
	return spawner.Next(gs.GridSize)
}

// endGame folds the score into the high score and puts the snake back at the
// origin. Food stays where it was.
func (gs *GameState) endGame(cause error, config *GameConfig) {
	gs.IsPlaying = false
	if gs.Score > gs.HighScore {
		gs.HighScore = gs.Score
	}
	gs.restart(config)
	gs.GameOver = true
	gs.LastCollision = CollisionCause(cause)
	gs.GamesPlayed++

	switch {
	case errors.Is(cause, ErrWallCollision):
		gs.Message = config.Messages.WallCollision
	case errors.Is(cause, ErrSelfCollision):
		gs.Message = config.Messages.SelfCollision
	}
}

// restart reinitializes the run. High score, food and counters are kept.
func (gs *GameState) restart(config *GameConfig) {
	gs.Score = 0
	gs.Snake = []Position{config.OriginOrDefault()}
	gs.Direction = Right
	gs.PendingDirection = Right
}

// CollisionCause returns the wire name of a collision error
func CollisionCause(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWallCollision):
		return "wall"
	case errors.Is(err, ErrSelfCollision):
		return "self"
	}
	return err.Error()
}
