package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// NewGrid returns an all-zero size×size grid. Any size from MinGridSize up is allowed.
func NewGrid(size int) (Grid, error) {
	if size < MinGridSize {
		return nil, fmt.Errorf("%w: grid size must be at least %d, got %d",
			ErrConfiguration, MinGridSize, size)
	}
	grid := make(Grid, size)
	for i := range grid {
		grid[i] = make([]int, size)
	}
	return grid, nil
}

// Size returns the side length of the grid
func (g Grid) Size() int {
	return len(g)
}

// Clone returns a deep copy of the grid
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Equal reports whether both grids hold the same value in every cell
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for i := range g {
		if len(g[i]) != len(other[i]) {
			return false
		}
		for j := range g[i] {
			if g[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// EmptyCells lists the empty positions in row-major order
func (g Grid) EmptyCells() []Position {
	var cells []Position
	for i, row := range g {
		for j, v := range row {
			if v == 0 {
				cells = append(cells, Position{Row: i, Col: j})
			}
		}
	}
	return cells
}

// CountTiles returns the number of non-empty cells
func (g Grid) CountTiles() int {
	count := 0
	for _, row := range g {
		for _, v := range row {
			if v != 0 {
				count++
			}
		}
	}
	return count
}

// MaxTile returns the largest tile value on the grid
func (g Grid) MaxTile() int {
	highest := 0
	for _, row := range g {
		for _, v := range row {
			if v > highest {
				highest = v
			}
		}
	}
	return highest
}

// Validate checks the grid is square and every cell is 0 or a power of two >= 2
func (g Grid) Validate() error {
	size := len(g)
	if size < MinGridSize {
		return fmt.Errorf("%w: grid must have at least %d rows, got %d",
			ErrInvariantViolation, MinGridSize, size)
	}
	for i, row := range g {
		if len(row) != size {
			return fmt.Errorf("%w: row %d has %d cells, expected %d", ErrInvariantViolation, i, len(row), size)
		}
		for j, v := range row {
			if !isTileValue(v) {
				return fmt.Errorf("%w: cell (%d,%d) holds %d, expected 0 or a power of two >= 2",
					ErrInvariantViolation, i, j, v)
			}
		}
	}
	return nil
}

// String renders the grid as right-aligned rows, "." marking empty cells
func (g Grid) String() string {
	width := len(strconv.Itoa(g.MaxTile()))
	if width < 1 {
		width = 1
	}
	var b strings.Builder
	for i, row := range g {
		for j, v := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			cell := "."
			if v != 0 {
				cell = strconv.Itoa(v)
			}
			b.WriteString(strings.Repeat(" ", width-len(cell)))
			b.WriteString(cell)
		}
		if i < len(g)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// ParseDirection maps user input to a Direction. Keyboard names and wasd are accepted.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "arrowup", "w":
		return Up, nil
	case "down", "arrowdown", "s":
		return Down, nil
	case "left", "arrowleft", "a":
		return Left, nil
	case "right", "arrowright", "d":
		return Right, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

func isTileValue(v int) bool {
	if v == 0 {
		return true
	}
	return v >= 2 && v&(v-1) == 0
}
