package service

import (
	"time"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

// Event types emitted by moves
const (
	EventMove      = "move"
	EventMerge     = "merge"
	EventSpawn     = "spawn"
	EventNoMove    = "no_move"
	EventGameOver  = "game_over"
	EventHighScore = "high_score"
	EventReset     = "reset"
)

// Stop reason codes for bulk moves
const (
	StopGameOver         = "game_over"
	StopInvalidDirection = "invalid_direction"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success       bool              `json:"success"` // the grid changed
	Direction     string            `json:"direction"`
	ScoreGained   int               `json:"score_gained"`
	Spawned       *engine.Position  `json:"spawned,omitempty"`
	SpawnedValue  int               `json:"spawned_value,omitempty"`
	Merged        []engine.Position `json:"merged,omitempty"`
	GameState     *engine.GameState `json:"game_state"`
	Message       string            `json:"message"`
	Events        []GameEvent       `json:"events,omitempty"`
	PossibleMoves []string          `json:"possible_moves"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // game_over|invalid_direction
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	StartScore int `json:"start_score"`
	EndScore   int `json:"end_score"`
	ScoreDelta int `json:"score_delta"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	GameOver      bool     `json:"game_over"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves,omitempty"`
	BoardRisk     string   `json:"board_risk,omitempty"`
}

// StepInfo is a compact record for each executed move in the bulk call
type StepInfo struct {
	Idx          int              `json:"idx"`
	Dir          string           `json:"dir"`
	Changed      bool             `json:"changed"`
	ScoreGained  int              `json:"score_gained"`
	ScoreAfter   int              `json:"score_after"`
	MaxTileAfter int              `json:"max_tile_after"`
	Spawned      *engine.Position `json:"spawned,omitempty"`
	SpawnedValue int              `json:"spawned_value,omitempty"`
	Merges       int              `json:"merges,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // "move", "merge", "spawn", "no_move", "game_over", "high_score", "reset"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Position  *engine.Position `json:"position,omitempty"`
	Value     int              `json:"value,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	GridSize    int    `json:"grid_size"`
	Seeded      bool   `json:"seeded"`
}
