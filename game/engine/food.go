package engine

import (
	"time"

	"golang.org/x/exp/rand"
)

// FoodSpawner picks food positions. It is not safe for concurrent use; each
// engine owns its own spawner.
type FoodSpawner struct {
	rng *rand.Rand
}

// NewFoodSpawner creates a spawner. A zero seed draws one from the clock.
func NewFoodSpawner(seed int64) *FoodSpawner {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &FoodSpawner{rng: rand.New(rand.NewSource(uint64(seed)))}
}

// Next returns a position chosen uniformly over the whole grid. The snake body
// is not consulted.
func (f *FoodSpawner) Next(gridSize int) Position {
	return Position{
		X: f.rng.Intn(gridSize),
		Y: f.rng.Intn(gridSize),
	}
}

// NextFree returns a uniformly chosen cell not in occupied. When every cell is
// occupied it falls back to Next.
func (f *FoodSpawner) NextFree(gridSize int, occupied []Position) Position {
	taken := make(map[Position]struct{}, len(occupied))
	for _, p := range occupied {
		taken[p] = struct{}{}
	}

	free := gridSize*gridSize - len(taken)
	if free <= 0 {
		return f.Next(gridSize)
	}

	// Pick the n-th free cell in row-major order
	n := f.rng.Intn(free)
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			p := Position{X: x, Y: y}
			if _, ok := taken[p]; ok {
				continue
			}
			if n == 0 {
				return p
			}
			n--
		}
	}
	return f.Next(gridSize)
}
