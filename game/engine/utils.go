package engine

// ContainsPosition reports whether p is one of the given positions
func ContainsPosition(body []Position, p Position) bool {
	for _, seg := range body {
		if seg == p {
			return true
		}
	}
	return false
}

// HasSelfOverlap reports whether any two segments share a cell
func HasSelfOverlap(body []Position) bool {
	seen := make(map[Position]struct{}, len(body))
	for _, seg := range body {
		if _, ok := seen[seg]; ok {
			return true
		}
		seen[seg] = struct{}{}
	}
	return false
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// copyBody returns a detached copy of the snake body
func copyBody(body []Position) []Position {
	out := make([]Position, len(body))
	copy(out, body)
	return out
}
