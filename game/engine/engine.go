package engine

import "fmt"

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() (*GameState, error)
	IsGameOver() bool
	GetScore() int
	GetBestScore() int

	// Movement operations
	Move(direction string) (*MoveResult, error)
	CanMove(direction string) bool
	GetPossibleMoves() []string

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface for a single game session.
// It is not safe for concurrent use; each session owns its own engine.
type GameEngine struct {
	state  *GameState
	config *GameConfig
	rng    RandomSource
}

// NewEngine creates a new game engine. A nil rng falls back to the config seed or the clock.
func NewEngine(config *GameConfig, rng RandomSource) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = sourceFor(config)
	}

	state, err := InitGameStateFromConfig(config, rng)
	if err != nil {
		return nil, err
	}

	return &GameEngine{
		config: config,
		state:  state,
		rng:    rng,
	}, nil
}

// NewEngineWithDefaults creates a new game engine on the classic 4×4 board
func NewEngineWithDefaults(rng RandomSource) *GameEngine {
	engine, err := NewEngine(DefaultConfig(), rng)
	if err != nil {
		// DefaultConfig is always valid
		panic(err)
	}
	return engine
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := state.Grid.Validate(); err != nil {
		return err
	}
	if e.config != nil && state.Grid.Size() != e.config.GridSize {
		return fmt.Errorf("%w: state grid is %dx%d but config expects %d",
			ErrInvariantViolation, state.Grid.Size(), state.Grid.Size(), e.config.GridSize)
	}
	if state.MoveHistory == nil {
		state.MoveHistory = []MoveHistoryEntry{}
	}
	if state.CurrentMoves == nil {
		state.CurrentMoves = []MoveHistoryEntry{}
	}
	state.Size = state.Grid.Size()
	e.state = state
	return nil
}

// Reset starts a new game. Cumulative history and the best score survive.
func (e *GameEngine) Reset() (*GameState, error) {
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves
	best := e.state.BestScore

	state, err := InitGameStateFromConfig(e.config, e.rng)
	if err != nil {
		return nil, err
	}

	state.MoveHistory = prevHistory
	state.TotalMoves = prevTotal
	state.BestScore = best
	e.state = state

	return e.state, nil
}

// IsGameOver returns whether no move can change the grid
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// GetScore returns the current score
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

// GetBestScore returns the highest score reached in this session
func (e *GameEngine) GetBestScore() int {
	return e.state.BestScore
}

// Move applies a move in the given direction. After game over every move is a no-op.
func (e *GameEngine) Move(direction string) (*MoveResult, error) {
	dir, err := ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	if e.state.GameOver {
		e.state.Message = e.messages().GameOver
		return &MoveResult{Grid: e.state.Grid.Clone()}, nil
	}

	result, err := Move(e.state.Grid, dir, e.rng)
	if err != nil {
		return nil, err
	}

	e.state.ApplyMove(dir, result, e.messages())
	return result, nil
}

// CanMove reports whether a move in the given direction would change the grid
func (e *GameEngine) CanMove(direction string) bool {
	if e.state.GameOver {
		return false
	}
	dir, err := ParseDirection(direction)
	if err != nil {
		return false
	}
	result, err := Slide(e.state.Grid, dir)
	return err == nil && result.Changed
}

// GetPossibleMoves returns every direction that would change the grid
func (e *GameEngine) GetPossibleMoves() []string {
	var possible []string
	for _, dir := range Directions {
		if e.CanMove(string(dir)) {
			possible = append(possible, string(dir))
		}
	}
	return possible
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and starts a new game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	state, err := InitGameStateFromConfig(config, e.rng)
	if err != nil {
		return err
	}
	e.config = config
	e.state = state
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// BulkMove executes moves in sequence, stopping at game over or the first invalid direction
func (e *GameEngine) BulkMove(moves []string) ([]*MoveResult, error) {
	results := make([]*MoveResult, 0, len(moves))

	for _, direction := range moves {
		if e.IsGameOver() {
			break
		}

		result, err := e.Move(direction)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// messages returns the configured messages with defaults filled in
func (e *GameEngine) messages() Messages {
	m := DefaultConfig().Messages
	if e.config == nil {
		return m
	}
	if e.config.Messages.Moved != "" {
		m.Moved = e.config.Messages.Moved
	}
	if e.config.Messages.NoMove != "" {
		m.NoMove = e.config.Messages.NoMove
	}
	if e.config.Messages.GameOver != "" {
		m.GameOver = e.config.Messages.GameOver
	}
	return m
}
