package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/game2048/api"
	"github.com/wricardo/mcp-training/game2048/game/config"
	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/scores"
	"github.com/wricardo/mcp-training/game2048/game/service"
	"github.com/wricardo/mcp-training/game2048/game/session"
)

const configDir = "../../configs"

func TestCornerStrategy(t *testing.T) {
	tests := []struct {
		name   string
		grid   engine.Grid
		want   engine.Direction
		wantOK bool
	}{
		{"down first", engine.Grid{{0, 2}, {0, 0}}, engine.Down, true},
		{"left when down is blocked", engine.Grid{{0, 2}, {0, 4}}, engine.Left, true},
		{"right when left is blocked", engine.Grid{{2, 0}, {4, 0}}, engine.Right, true},
		{"up as a last resort", engine.Grid{{0, 0}, {2, 4}}, engine.Up, true},
		{"stuck", engine.Grid{{2, 4}, {4, 2}}, "", false},
	}

	s := NewCornerStrategy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Choose(tt.grid)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Choose() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRandomStrategyOnlyPicksChangingMoves(t *testing.T) {
	s := NewRandomStrategy(7)
	for i := 0; i < 20; i++ {
		got, ok := s.Choose(engine.Grid{{0, 0}, {2, 4}})
		if !ok || got != engine.Up {
			t.Fatalf("Choose() = %q, %v; want up", got, ok)
		}
	}
	if _, ok := s.Choose(engine.Grid{{2, 4}, {4, 2}}); ok {
		t.Error("Expected no move on a terminal grid")
	}
}

func TestStrategyByName(t *testing.T) {
	for _, name := range []string{"", "corner", "random"} {
		if _, err := strategyByName(name, 1); err != nil {
			t.Errorf("strategyByName(%q) failed: %v", name, err)
		}
	}
	if _, err := strategyByName("greedy", 1); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

func loadConfig(t *testing.T, name string) *engine.GameConfig {
	t.Helper()
	manager, err := config.NewManager(configDir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	cfg, err := manager.LoadConfig(name)
	if err != nil {
		t.Fatalf("LoadConfig(%q) failed: %v", name, err)
	}
	return cfg
}

func TestPlayGame(t *testing.T) {
	eng, err := engine.NewEngine(loadConfig(t, "tiny"), engine.NewRandomSource(3))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	result, err := playGame(context.Background(), &localBoard{eng: eng}, NewCornerStrategy(), 0)
	if err != nil {
		t.Fatalf("playGame failed: %v", err)
	}
	if !result.GameOver {
		t.Error("Expected game to be played to the end")
	}
	if result.Moves == 0 || result.Score == 0 {
		t.Errorf("Expected moves and score, got %+v", result)
	}
	if result.Score != eng.GetScore() {
		t.Errorf("Expected score %d, got %d", eng.GetScore(), result.Score)
	}
}

func TestPlayGameMaxMoves(t *testing.T) {
	eng, err := engine.NewEngine(loadConfig(t, "classic"), engine.NewRandomSource(3))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	result, err := playGame(context.Background(), &localBoard{eng: eng}, NewCornerStrategy(), 5)
	if err != nil {
		t.Fatalf("playGame failed: %v", err)
	}
	if result.Moves != 5 {
		t.Errorf("Expected 5 moves, got %d", result.Moves)
	}
	if result.GameOver {
		t.Error("Five moves cannot end a 4x4 game")
	}
}

func TestPlayGameCanceled(t *testing.T) {
	eng := engine.NewEngineWithDefaults(engine.NewRandomSource(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := playGame(ctx, &localBoard{eng: eng}, NewCornerStrategy(), 0); err == nil {
		t.Error("Expected error from canceled context")
	}
}

func TestSimulateIsReproducible(t *testing.T) {
	cfg := loadConfig(t, "tiny")

	first, err := simulate(context.Background(), cfg, NewCornerStrategy(), 5, 42, 0)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	second, err := simulate(context.Background(), cfg, NewCornerStrategy(), 5, 42, 0)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	if first.Games != 5 {
		t.Errorf("Expected 5 games, got %d", first.Games)
	}
	if first.MeanScore != second.MeanScore || first.MaxScore != second.MaxScore || first.MinScore != second.MinScore {
		t.Errorf("Same seed gave different results: %+v vs %+v", first, second)
	}

	total := 0
	for _, n := range first.MaxTiles {
		total += n
	}
	if total != 5 {
		t.Errorf("Expected max tile counts to add up to 5, got %d", total)
	}
	if float64(first.MinScore) > first.MeanScore || first.MeanScore > float64(first.MaxScore) {
		t.Errorf("Mean %.1f outside [%d, %d]", first.MeanScore, first.MinScore, first.MaxScore)
	}
}

func TestSummarize(t *testing.T) {
	s := summarize("corner", []GameResult{
		{Score: 100, MaxTile: 16, Moves: 10},
		{Score: 300, MaxTile: 32, Moves: 30},
		{Score: 200, MaxTile: 16, Moves: 20},
	})

	if s.Games != 3 || s.MinScore != 100 || s.MaxScore != 300 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if s.MeanScore != 200 || s.MeanMoves != 20 {
		t.Errorf("Expected means 200 and 20, got %.1f and %.1f", s.MeanScore, s.MeanMoves)
	}
	if s.MaxTiles[16] != 2 || s.MaxTiles[32] != 1 {
		t.Errorf("Unexpected max tiles %v", s.MaxTiles)
	}

	empty := summarize("corner", nil)
	if empty.Games != 0 || empty.MaxScore != 0 {
		t.Errorf("Expected zero summary, got %+v", empty)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, "classic", Summary{
		Strategy:  "corner",
		Games:     4,
		MinScore:  100,
		MaxScore:  400,
		MeanScore: 250,
		MeanMoves: 120,
		MaxTiles:  map[int]int{64: 1, 128: 3},
	})

	out := buf.String()
	for _, want := range []string{
		"=== classic, corner strategy, 4 games ===",
		"Score: mean 250.0, min 100, max 400",
		"Moves: mean 120.0",
		"    128:   3 (75%)",
		"     64:   1 (25%)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, "128:") > strings.Index(out, "64:") {
		t.Error("Expected larger tiles first")
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "single config",
			args: []string{"--config", "tiny", "--games", "3"},
			want: []string{"tiny (3x3), corner strategy, 3 games"},
		},
		{
			name: "all configs",
			args: []string{"--games", "1", "--max-moves", "50"},
			want: []string{"classic (4x4)", "tiny (3x3)", "seeded (4x4)"},
		},
		{
			name: "random strategy",
			args: []string{"--config", "tiny", "--games", "2", "--strategy", "random"},
			want: []string{"random strategy, 2 games"},
		},
		{name: "unknown config", args: []string{"--config", "nope"}, wantErr: true},
		{name: "unknown strategy", args: []string{"--strategy", "greedy"}, wantErr: true},
		{name: "no games", args: []string{"--games", "0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			args := append([]string{"analyze", "--config-dir", configDir}, tt.args...)
			err := newCommand(&buf).Run(context.Background(), args)

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("Expected %q in output:\n%s", want, buf.String())
				}
			}
		})
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	configs, err := config.NewManager(configDir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	svc := service.NewGameService(session.NewManager(nil), configs, scores.NewMemoryStore(), nil)
	ts := httptest.NewServer(api.NewServer(svc, nil, nil))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := NewClient(ts.URL + "/")

	state, err := c.CreateSession(ctx, "tiny")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if c.SessionID() == "" {
		t.Fatal("Expected a session ID")
	}
	if state.Grid.Size() != 3 || state.Grid.CountTiles() != engine.InitialTiles {
		t.Errorf("Unexpected new game grid %v", state.Grid)
	}

	dir, _ := NewCornerStrategy().Choose(state.Grid)
	moved, err := c.Move(ctx, dir)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.CurrentMovesCount != 1 {
		t.Errorf("Expected 1 move, got %d", moved.CurrentMovesCount)
	}

	fetched, err := c.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if !fetched.Grid.Equal(moved.Grid) {
		t.Errorf("GetState grid %v differs from move result %v", fetched.Grid, moved.Grid)
	}

	bulk, err := c.BulkMove(ctx, []engine.Direction{engine.Left, engine.Right})
	if err != nil {
		t.Fatalf("BulkMove failed: %v", err)
	}
	if bulk.RequestedMoves != 2 {
		t.Errorf("Expected 2 requested moves, got %d", bulk.RequestedMoves)
	}
	if c.State() != bulk.GameState {
		t.Error("Expected client state to follow the bulk move")
	}

	reset, err := c.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if reset.Score != 0 || reset.CurrentMovesCount != 0 {
		t.Errorf("Expected fresh game after reset, got score %d moves %d", reset.Score, reset.CurrentMovesCount)
	}
}

func TestClientErrors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	c := NewClient(ts.URL)
	_, err := c.CreateSession(ctx, "nope")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 for unknown config, got %v", err)
	}

	c.sessionID = "missing"
	if _, err := c.Move(ctx, engine.Left); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 for unknown session, got %v", err)
	}

	if _, err := NewClient("http://127.0.0.1:1").CreateSession(ctx, "tiny"); err == nil {
		t.Error("Expected error for unreachable server")
	}
}

func TestPlayRemote(t *testing.T) {
	ts := newTestServer(t)

	summary, err := playRemote(context.Background(), NewClient(ts.URL), "tiny", NewCornerStrategy(), 2, 0)
	if err != nil {
		t.Fatalf("playRemote failed: %v", err)
	}
	if summary.Games != 2 || summary.MaxScore == 0 {
		t.Errorf("Unexpected summary %+v", summary)
	}

	var buf bytes.Buffer
	err = newCommand(&buf).Run(context.Background(), []string{"analyze", "--url", ts.URL, "--config", "tiny", "--games", "1"})
	if err != nil {
		t.Fatalf("remote command failed: %v", err)
	}
	if !strings.Contains(buf.String(), ts.URL+", corner strategy, 1 games") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}
