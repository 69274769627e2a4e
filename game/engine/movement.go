package engine

import "fmt"

// NewGame returns a fresh size×size grid holding two spawned tiles
func NewGame(size int, rng RandomSource) (Grid, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrConfiguration)
	}
	grid, err := NewGrid(size)
	if err != nil {
		return nil, err
	}
	for i := 0; i < InitialTiles; i++ {
		grid = SpawnRandomTile(grid, rng).Grid
	}
	return grid, nil
}

// Move slides every line of the grid in the given direction, merging equal neighbours.
// The input grid is never modified. When at least one cell changed, one random tile is
// spawned on the result; an unchanged move consumes no randomness.
func Move(grid Grid, direction Direction, rng RandomSource) (*MoveResult, error) {
	result, err := Slide(grid, direction)
	if err != nil {
		return nil, err
	}
	if !result.Changed {
		return result, nil
	}

	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrConfiguration)
	}
	spawn := SpawnRandomTile(result.Grid, rng)
	result.Grid = spawn.Grid
	result.Spawned = spawn.Position
	result.SpawnedValue = spawn.Value
	return result, nil
}

// Slide applies the line transform in the given direction without spawning a tile
func Slide(grid Grid, direction Direction) (*MoveResult, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	vertical, towardStart, err := axisOf(direction)
	if err != nil {
		return nil, err
	}

	size := grid.Size()
	next := grid.Clone()
	result := &MoveResult{}
	line := make([]int, size)

	for k := 0; k < size; k++ {
		for i := 0; i < size; i++ {
			r, c := cellOf(k, i, vertical)
			line[i] = grid[r][c]
		}

		transformed, gained, mergedAt := transformLine(line, towardStart)
		result.ScoreGained += gained

		for i := 0; i < size; i++ {
			r, c := cellOf(k, i, vertical)
			if grid[r][c] != transformed[i] {
				result.Changed = true
			}
			next[r][c] = transformed[i]
		}
		for _, i := range mergedAt {
			r, c := cellOf(k, i, vertical)
			result.Merged = append(result.Merged, Position{Row: r, Col: c})
		}
	}

	result.Grid = next
	return result, nil
}

// TransformLine compacts and merges a single line toward its start or end.
// It returns the new line and the score gained from merges.
func TransformLine(line []int, towardStart bool) ([]int, int) {
	out, gained, _ := transformLine(line, towardStart)
	return out, gained
}

// transformLine also reports the indices, in board orientation, holding merged tiles
func transformLine(line []int, towardStart bool) ([]int, int, []int) {
	size := len(line)
	compact := make([]int, 0, size)
	for _, v := range line {
		if v != 0 {
			compact = append(compact, v)
		}
	}
	if !towardStart {
		reverseInts(compact)
	}

	gained := 0
	var mergedAt []int
	// Each tile merges at most once: after a merge the scan moves past the new tile.
	for i := 0; i < len(compact)-1; i++ {
		if compact[i] == compact[i+1] {
			compact[i] *= 2
			gained += compact[i]
			compact = append(compact[:i+1], compact[i+2:]...)
			mergedAt = append(mergedAt, i)
		}
	}

	out := make([]int, size)
	copy(out, compact)
	if !towardStart {
		reverseInts(out)
		for j := range mergedAt {
			mergedAt[j] = size - 1 - mergedAt[j]
		}
	}
	return out, gained, mergedAt
}

// SpawnRandomTile places a 2 (90%) or a 4 (10%) on a uniformly chosen empty cell.
// A full grid is returned unchanged with a nil Position.
func SpawnRandomTile(grid Grid, rng RandomSource) SpawnResult {
	next := grid.Clone()
	empty := next.EmptyCells()
	if len(empty) == 0 || rng == nil {
		return SpawnResult{Grid: next}
	}

	pos := empty[rng.NextIndex(len(empty))]
	value := 4
	if rng.Next() < SpawnTwoProbability {
		value = 2
	}
	next[pos.Row][pos.Col] = value

	return SpawnResult{Grid: next, Position: &pos, Value: value}
}

// IsTerminal reports whether no direction can change the grid:
// no empty cell and no equal horizontal or vertical neighbours.
func IsTerminal(grid Grid) bool {
	size := len(grid)
	for i := 0; i < size; i++ {
		for j := 0; j < len(grid[i]); j++ {
			v := grid[i][j]
			if v == 0 {
				return false
			}
			if j+1 < len(grid[i]) && v == grid[i][j+1] {
				return false
			}
			if i+1 < size && j < len(grid[i+1]) && v == grid[i+1][j] {
				return false
			}
		}
	}
	return true
}

// AddScore adds a move's gain to the running score and raises the high-water mark if exceeded
func AddScore(current, high, gained int) (int, int) {
	current += gained
	if current > high {
		high = current
	}
	return current, high
}

// axisOf reports whether the direction moves along columns and whether tiles compact toward index 0
func axisOf(direction Direction) (vertical, towardStart bool, err error) {
	switch direction {
	case Up:
		return true, true, nil
	case Down:
		return true, false, nil
	case Left:
		return false, true, nil
	case Right:
		return false, false, nil
	}
	return false, false, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
}

// cellOf maps line k, index i to a grid cell
func cellOf(k, i int, vertical bool) (int, int) {
	if vertical {
		return i, k
	}
	return k, i
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
