// Package config provides configuration management for the 2048 game server.
//
// Game configurations live as JSON or YAML files in a configs directory and
// are addressed by their file name without extension ("classic", "tiny").
// Each configuration defines:
//   - Board size (2 to 8)
//   - An optional seed for reproducible games
//   - Status messages shown after moves and at game over
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("tiny")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default configuration is "classic" when present, otherwise the first
// valid file in the directory, otherwise a built-in 4x4 board.
package config
