package engine

// TileCounts counts the tiles of each value on the grid
func TileCounts(grid Grid) map[int]int {
	counts := make(map[int]int)
	for _, row := range grid {
		for _, v := range row {
			if v != 0 {
				counts[v]++
			}
		}
	}
	return counts
}

// MergeablePairs counts adjacent equal pairs, each pair counted once
func MergeablePairs(grid Grid) int {
	pairs := 0
	size := len(grid)
	for i := 0; i < size; i++ {
		for j := 0; j < len(grid[i]); j++ {
			v := grid[i][j]
			if v == 0 {
				continue
			}
			if j+1 < len(grid[i]) && grid[i][j+1] == v {
				pairs++
			}
			if i+1 < size && j < len(grid[i+1]) && grid[i+1][j] == v {
				pairs++
			}
		}
	}
	return pairs
}

// AnalyzeBoardRisk assesses how close the grid is to a terminal state
func AnalyzeBoardRisk(grid Grid) string {
	if IsTerminal(grid) {
		return "CRITICAL: No moves left!"
	}

	empty := len(grid.EmptyCells())
	pairs := MergeablePairs(grid)

	if empty == 0 {
		return "DANGER: Board full, only merges can free space"
	} else if empty <= 2 && pairs == 0 {
		return "CAUTION: Few empty cells and nothing to merge"
	} else if empty <= len(grid) {
		return "LOW: Board filling up"
	}

	return "SAFE: Plenty of room"
}
