package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrConfiguration)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrConfiguration)
	}
	if config.Description == "" {
		return fmt.Errorf("%w: description is required", ErrConfiguration)
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("%w: grid_size must be between %d and %d, got %d",
			ErrConfiguration, MinGridSize, MaxGridSize, config.GridSize)
	}

	if config.Messages.Moved != "" && !strings.Contains(config.Messages.Moved, "%d") {
		return fmt.Errorf("%w: messages.moved must contain %%d for the score gained", ErrConfiguration)
	}

	return nil
}

// DefaultConfig returns the classic 4×4 configuration
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:        "Classic",
		Description: "The classic 4x4 board",
		GridSize:    DefaultGridSize,
	}
	config.Messages.Welcome = "Join the tiles, get to 2048!"
	config.Messages.Moved = "+%d"
	config.Messages.NoMove = "Nothing moves that way"
	config.Messages.GameOver = "Game over! No moves left."
	return config
}

// ParseGameConfig decodes a configuration. YAML is used for .yaml/.yml names, JSON otherwise.
func ParseGameConfig(filename string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config '%s': %w", filename, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config '%s': %w", filename, err)
		}
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", filename, err)
	}
	return &config, nil
}

// LoadGameConfig loads a game configuration from a JSON or YAML file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}
	return ParseGameConfig(filename, data)
}

// InitGameStateFromConfig creates a new game state with two spawned tiles
func InitGameStateFromConfig(config *GameConfig, rng RandomSource) (*GameState, error) {
	if config == nil {
		config = DefaultConfig()
	}

	grid, err := NewGame(config.GridSize, rng)
	if err != nil {
		return nil, err
	}

	return &GameState{
		Grid:              grid,
		Size:              config.GridSize,
		MaxTile:           grid.MaxTile(),
		BoardRisk:         AnalyzeBoardRisk(grid),
		Message:           config.Messages.Welcome,
		ConfigName:        config.Name,
		MoveHistory:       []MoveHistoryEntry{},
		CurrentMoves:      []MoveHistoryEntry{},
		CurrentMovesCount: 0,
	}, nil
}

// sourceFor builds the random source a config asks for
func sourceFor(config *GameConfig) RandomSource {
	if config != nil && config.Seed != nil {
		return NewRandomSource(*config.Seed)
	}
	return NewTimeSource()
}
