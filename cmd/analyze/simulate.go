package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

// Board is a game being played, either in process or through the REST API
type Board interface {
	State() *engine.GameState
	Move(ctx context.Context, dir engine.Direction) (*engine.GameState, error)
}

// GameResult is the outcome of one game
type GameResult struct {
	Score    int
	MaxTile  int
	Moves    int
	GameOver bool
}

// Summary aggregates a batch of games
type Summary struct {
	Strategy  string
	Games     int
	MinScore  int
	MaxScore  int
	MeanScore float64
	MeanMoves float64
	// MaxTiles counts games by their largest tile
	MaxTiles map[int]int
}

// localBoard plays on an in-process engine
type localBoard struct {
	eng *engine.GameEngine
}

func (b *localBoard) State() *engine.GameState { return b.eng.GetState() }

func (b *localBoard) Move(ctx context.Context, dir engine.Direction) (*engine.GameState, error) {
	if _, err := b.eng.Move(string(dir)); err != nil {
		return nil, err
	}
	return b.eng.GetState(), nil
}

// playGame lets the strategy play until the game is over or maxMoves is reached
func playGame(ctx context.Context, board Board, strategy Strategy, maxMoves int) (GameResult, error) {
	state := board.State()
	moves := 0

	for !state.GameOver && (maxMoves <= 0 || moves < maxMoves) {
		if err := ctx.Err(); err != nil {
			return GameResult{}, err
		}

		dir, ok := strategy.Choose(state.Grid)
		if !ok {
			break
		}

		next, err := board.Move(ctx, dir)
		if err != nil {
			return GameResult{}, fmt.Errorf("move %d (%s): %w", moves+1, dir, err)
		}
		state = next
		moves++
	}

	return GameResult{
		Score:    state.Score,
		MaxTile:  state.Grid.MaxTile(),
		Moves:    moves,
		GameOver: state.GameOver,
	}, nil
}

// simulate plays games in process. Game i is seeded with seed+i so runs are reproducible.
func simulate(ctx context.Context, cfg *engine.GameConfig, strategy Strategy, games int, seed int64, maxMoves int) (Summary, error) {
	results := make([]GameResult, 0, games)
	for i := 0; i < games; i++ {
		eng, err := engine.NewEngine(cfg, engine.NewRandomSource(seed+int64(i)))
		if err != nil {
			return Summary{}, err
		}
		result, err := playGame(ctx, &localBoard{eng: eng}, strategy, maxMoves)
		if err != nil {
			return Summary{}, err
		}
		results = append(results, result)
	}
	return summarize(strategy.Name(), results), nil
}

func summarize(strategy string, results []GameResult) Summary {
	s := Summary{Strategy: strategy, Games: len(results), MaxTiles: map[int]int{}}
	if len(results) == 0 {
		return s
	}

	s.MinScore = results[0].Score
	totalScore, totalMoves := 0, 0
	for _, r := range results {
		totalScore += r.Score
		totalMoves += r.Moves
		if r.Score > s.MaxScore {
			s.MaxScore = r.Score
		}
		if r.Score < s.MinScore {
			s.MinScore = r.Score
		}
		s.MaxTiles[r.MaxTile]++
	}
	s.MeanScore = float64(totalScore) / float64(len(results))
	s.MeanMoves = float64(totalMoves) / float64(len(results))
	return s
}

// printSummary writes a human-readable report
func printSummary(w io.Writer, configName string, s Summary) {
	fmt.Fprintf(w, "\n=== %s, %s strategy, %d games ===\n", configName, s.Strategy, s.Games)
	fmt.Fprintf(w, "Score: mean %.1f, min %d, max %d\n", s.MeanScore, s.MinScore, s.MaxScore)
	fmt.Fprintf(w, "Moves: mean %.1f\n", s.MeanMoves)

	tiles := make([]int, 0, len(s.MaxTiles))
	for tile := range s.MaxTiles {
		tiles = append(tiles, tile)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(tiles)))

	fmt.Fprintln(w, "Max tile distribution:")
	for _, tile := range tiles {
		count := s.MaxTiles[tile]
		fmt.Fprintf(w, "  %5d: %3d (%.0f%%)\n", tile, count, 100*float64(count)/float64(s.Games))
	}
}
