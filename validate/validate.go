// Command validate checks the game configuration files in a directory
// (../configs by default). For every .json, .yaml and .yml file it reports:
//   - parse errors and failed engine validation (name, description, grid size, messages)
//   - whether a fresh game can be started from it
//   - notes about messages that fall back to defaults and about fixed seeds
//
// Display names must be unique across the directory. The exit status is 1 when
// any file is invalid.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Errors make a file invalid, Notes are informational.
type ValidationResult struct {
	File   string
	Name   string
	Valid  bool
	Errors []string
	Notes  []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads a configuration through the engine and tries to start a game with it
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
		Notes:  []string{},
	}

	config, err := engine.LoadGameConfig(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.Name = config.Name

	rng := engine.NewRandomSource(1)
	if config.Seed != nil {
		rng = engine.NewRandomSource(*config.Seed)
		result.Notes = append(result.Notes, fmt.Sprintf("seeded with %d, every game starts the same", *config.Seed))
	}

	eng, err := engine.NewEngine(config, rng)
	if err != nil {
		result.fail("cannot start a game: %v", err)
		return result
	}
	state := eng.GetState()
	if got := state.Grid.CountTiles(); got != engine.InitialTiles {
		result.fail("new game starts with %d tiles, expected %d", got, engine.InitialTiles)
	}
	if eng.IsGameOver() {
		result.fail("new game is already over")
	}

	result.Notes = append(result.Notes, fmt.Sprintf("%dx%d board", config.GridSize, config.GridSize))
	var missing []string
	for key, msg := range map[string]string{
		"welcome":   config.Messages.Welcome,
		"moved":     config.Messages.Moved,
		"no_move":   config.Messages.NoMove,
		"game_over": config.Messages.GameOver,
	} {
		if msg == "" {
			missing = append(missing, fmt.Sprintf("messages.%s not set, default used", key))
		}
	}
	sort.Strings(missing)
	result.Notes = append(result.Notes, missing...)

	return result
}

// validateDir validates every config file in dir and checks that display names are unique
func validateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var results []ValidationResult
	seen := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		result := validateConfig(filepath.Join(dir, entry.Name()))
		if result.Valid {
			key := strings.ToLower(result.Name)
			if other, dup := seen[key]; dup {
				result.fail("name %q already used by %s", result.Name, other)
			} else {
				seen[key] = result.File
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// report prints the results and returns whether all of them are valid
func report(results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Printf("VALID (%s)\n", result.Name)
			for _, note := range result.Notes {
				fmt.Println("  - " + note)
			}
			continue
		}

		allValid = false
		fmt.Println("INVALID")
		for _, err := range result.Errors {
			fmt.Println("  x " + err)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Printf("All %d configurations are valid!\n", len(results))
	} else {
		fmt.Println("Some configurations have errors")
	}
	return allValid
}

func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate game configuration files",
		ArgsUsage: "[config-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "../configs"
			if cmd.Args().Present() {
				dir = cmd.Args().First()
			}

			results, err := validateDir(dir)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return fmt.Errorf("no config files found in %s", dir)
			}
			if !report(results) {
				return fmt.Errorf("some configurations are invalid")
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
