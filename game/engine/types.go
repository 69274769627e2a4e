package engine

import "errors"

// Direction is the axis and sense along which tiles slide
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"

	MinGridSize     = 2
	MaxGridSize     = 8 // configs only; the grid functions take any size >= MinGridSize
	DefaultGridSize = 4
	MaxBulkMoves    = 50

	// Spawn distribution: a draw below SpawnTwoProbability places a 2, anything else a 4
	SpawnTwoProbability = 0.9
	InitialTiles        = 2
)

// Directions lists every direction in a stable order
var Directions = []Direction{Up, Down, Left, Right}

var (
	ErrConfiguration      = errors.New("configuration error")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrInvalidDirection   = errors.New("invalid direction")
)

// Grid is an N×N matrix of tile values, 0 meaning empty
type Grid [][]int

// Position identifies a cell by row and column
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// MoveResult describes a single move attempt
type MoveResult struct {
	Grid         Grid       `json:"grid"`
	Changed      bool       `json:"changed"`
	ScoreGained  int        `json:"score_gained"`
	Spawned      *Position  `json:"spawned,omitempty"`
	SpawnedValue int        `json:"spawned_value,omitempty"`
	Merged       []Position `json:"merged,omitempty"`
}

// SpawnResult describes a random tile placement. Position is nil when the grid was full.
type SpawnResult struct {
	Grid     Grid      `json:"grid"`
	Position *Position `json:"position,omitempty"`
	Value    int       `json:"value,omitempty"`
}

// GameConfig represents the game configuration loaded from JSON or YAML
type GameConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	GridSize    int      `json:"grid_size" yaml:"grid_size"`
	Seed        *int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Messages    Messages `json:"messages" yaml:"messages"`
}

// Messages are the status lines shown after game events
type Messages struct {
	Welcome  string `json:"welcome" yaml:"welcome"`
	Moved    string `json:"moved" yaml:"moved"` // must contain %d for the score gained
	NoMove   string `json:"no_move" yaml:"no_move"`
	GameOver string `json:"game_over" yaml:"game_over"`
}

// GameState represents the complete state of one game session
type GameState struct {
	Grid       Grid      `json:"grid"`
	Size       int       `json:"size"`
	Score      int       `json:"score"`
	BestScore  int       `json:"best_score"`
	MaxTile    int       `json:"max_tile"`
	GameOver   bool      `json:"game_over"`
	Message    string    `json:"message"`
	ConfigName string    `json:"config_name"`
	LastSpawn  *Position `json:"last_spawn,omitempty"`

	// Computed helper views (not required for core game logic)
	BoardRisk string `json:"board_risk,omitempty"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. MoveHistory stays cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	Action       string    `json:"action"`
	Changed      bool      `json:"changed"`
	ScoreGained  int       `json:"score_gained"`
	Score        int       `json:"score"`
	Spawned      *Position `json:"spawned,omitempty"`
	SpawnedValue int       `json:"spawned_value,omitempty"`
	Timestamp    int64     `json:"timestamp"`
	MoveNumber   int       `json:"move_number"`
}
