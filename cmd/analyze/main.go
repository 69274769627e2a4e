// Command analyze plays batches of games headlessly with a simple strategy and
// prints score and max-tile statistics per configuration. With --url it plays
// through a running server's REST API instead of an in-process engine.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/game2048/game/config"
)

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Simulate games and report score statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations"},
			&cli.StringFlag{Name: "config", Value: "all", Usage: "Config to simulate, or all"},
			&cli.IntFlag{Name: "games", Value: 20, Usage: "Games per config"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Seed of the first game; game i uses seed+i"},
			&cli.IntFlag{Name: "max-moves", Value: 10000, Usage: "Stop a game after this many moves (0 = no limit)"},
			&cli.StringFlag{Name: "strategy", Value: "corner", Usage: "corner or random"},
			&cli.StringFlag{Name: "url", Usage: "Play against a running server instead of in process"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			games := cmd.Int("games")
			if games < 1 {
				return fmt.Errorf("games must be at least 1")
			}
			seed := int64(cmd.Int("seed"))

			strategy, err := strategyByName(cmd.String("strategy"), seed)
			if err != nil {
				return err
			}

			if serverURL := cmd.String("url"); serverURL != "" {
				configID := cmd.String("config")
				if configID == "all" {
					configID = ""
				}
				summary, err := playRemote(ctx, NewClient(serverURL), configID, strategy, games, cmd.Int("max-moves"))
				if err != nil {
					return err
				}
				printSummary(out, serverURL, summary)
				return nil
			}

			return analyzeLocal(ctx, out, cmd.String("config-dir"), cmd.String("config"), strategy, games, seed, cmd.Int("max-moves"))
		},
	}
}

// analyzeLocal simulates one config, or every config in dir when name is "all"
func analyzeLocal(ctx context.Context, out io.Writer, dir, name string, strategy Strategy, games int, seed int64, maxMoves int) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	names := []string{name}
	if name == "all" {
		infos, err := manager.ListConfigs()
		if err != nil {
			return err
		}
		names = names[:0]
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}

	for _, configID := range names {
		cfg, err := manager.LoadConfig(configID)
		if err != nil {
			return err
		}

		summary, err := simulate(ctx, cfg, strategy, games, seed, maxMoves)
		if err != nil {
			return fmt.Errorf("%s: %w", configID, err)
		}
		printSummary(out, fmt.Sprintf("%s (%dx%d)", configID, cfg.GridSize, cfg.GridSize), summary)
	}
	return nil
}
