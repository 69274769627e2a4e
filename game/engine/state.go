package engine

import (
	"fmt"
	"time"
)

// ApplyMove folds a move result into the state: grid, score, terminal flag and history.
// The terminal check runs on the grid after the spawn that followed the move.
func (gs *GameState) ApplyMove(direction Direction, result *MoveResult, messages Messages) {
	if result.Changed {
		gs.Grid = result.Grid.Clone()
		gs.Score, gs.BestScore = AddScore(gs.Score, gs.BestScore, result.ScoreGained)
		gs.MaxTile = gs.Grid.MaxTile()
		gs.LastSpawn = result.Spawned
		gs.Message = fmt.Sprintf(messages.Moved, result.ScoreGained)
	} else {
		gs.LastSpawn = nil
		gs.Message = messages.NoMove
	}

	if IsTerminal(gs.Grid) {
		gs.GameOver = true
		gs.Message = messages.GameOver
	}
	gs.BoardRisk = AnalyzeBoardRisk(gs.Grid)

	gs.AddMoveToHistory(string(direction), result)
}

// AddMoveToHistory adds a move to the game's move history
func (gs *GameState) AddMoveToHistory(action string, result *MoveResult) {
	entry := MoveHistoryEntry{
		Action:       action,
		Changed:      result.Changed,
		ScoreGained:  result.ScoreGained,
		Score:        gs.Score,
		Spawned:      result.Spawned,
		SpawnedValue: result.SpawnedValue,
		Timestamp:    time.Now().Unix(),
		MoveNumber:   gs.TotalMoves + 1,
	}
	// MoveHistory spans resets; CurrentMoves is the running game only
	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++
	gs.CurrentMoves = append(gs.CurrentMoves, entry)
	gs.CurrentMovesCount++
}

// Clone returns a deep copy that shares nothing with gs
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.Grid = gs.Grid.Clone()
	if gs.LastSpawn != nil {
		pos := *gs.LastSpawn
		c.LastSpawn = &pos
	}
	c.MoveHistory = cloneHistory(gs.MoveHistory)
	c.CurrentMoves = cloneHistory(gs.CurrentMoves)
	return &c
}

func cloneHistory(entries []MoveHistoryEntry) []MoveHistoryEntry {
	if entries == nil {
		return nil
	}
	out := make([]MoveHistoryEntry, len(entries))
	for i, e := range entries {
		if e.Spawned != nil {
			pos := *e.Spawned
			e.Spawned = &pos
		}
		out[i] = e
	}
	return out
}
