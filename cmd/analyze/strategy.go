package main

import (
	"fmt"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

// Strategy picks the next direction for a grid. ok is false when no move changes it.
type Strategy interface {
	Name() string
	Choose(grid engine.Grid) (dir engine.Direction, ok bool)
}

// CornerStrategy tries directions in a fixed order, keeping big tiles in the bottom-left corner
type CornerStrategy struct {
	Order []engine.Direction
}

// NewCornerStrategy prefers down, then left, then right, and up only when stuck
func NewCornerStrategy() *CornerStrategy {
	return &CornerStrategy{Order: []engine.Direction{engine.Down, engine.Left, engine.Right, engine.Up}}
}

func (s *CornerStrategy) Name() string { return "corner" }

func (s *CornerStrategy) Choose(grid engine.Grid) (engine.Direction, bool) {
	for _, dir := range s.Order {
		if changes(grid, dir) {
			return dir, true
		}
	}
	return "", false
}

// RandomStrategy picks uniformly among the directions that change the grid
type RandomStrategy struct {
	rng engine.RandomSource
}

func NewRandomStrategy(seed int64) *RandomStrategy {
	return &RandomStrategy{rng: engine.NewRandomSource(seed)}
}

func (s *RandomStrategy) Name() string { return "random" }

func (s *RandomStrategy) Choose(grid engine.Grid) (engine.Direction, bool) {
	var possible []engine.Direction
	for _, dir := range engine.Directions {
		if changes(grid, dir) {
			possible = append(possible, dir)
		}
	}
	if len(possible) == 0 {
		return "", false
	}
	return possible[s.rng.NextIndex(len(possible))], true
}

// strategyByName resolves the --strategy flag
func strategyByName(name string, seed int64) (Strategy, error) {
	switch name {
	case "corner", "":
		return NewCornerStrategy(), nil
	case "random":
		return NewRandomStrategy(seed), nil
	}
	return nil, fmt.Errorf("unknown strategy %q (corner, random)", name)
}

func changes(grid engine.Grid, dir engine.Direction) bool {
	result, err := engine.Slide(grid, dir)
	return err == nil && result.Changed
}
