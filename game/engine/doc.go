// Package engine provides the core rules of the 2048 sliding-tile game.
//
// The package is split into two layers:
//   - Pure grid operations: Move, Slide, TransformLine, SpawnRandomTile,
//     IsTerminal and AddScore. They never modify their input grid and take
//     randomness through the RandomSource interface so games can be replayed.
//   - GameEngine, a stateful wrapper owning one GameState. It applies moves,
//     keeps score and best score, records history and detects game over.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config, engine.NewRandomSource(42))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameEngine.Move("left")
//	state := gameEngine.GetState()
//
// Game Rules:
//
// Every move slides all tiles as far as possible in one direction. Two equal
// tiles that meet merge into their sum, which is added to the score; a tile
// produced by a merge does not merge again in the same move. If the move
// changed the grid a new tile (2 with probability 0.9, otherwise 4) appears on
// a random empty cell. The game ends when no direction can change the grid.
package engine
