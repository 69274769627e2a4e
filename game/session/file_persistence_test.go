package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/game2048/game/config"
	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/service"
)

func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager, string) {
	t.Helper()
	tempDir := t.TempDir()

	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	persistence, err := NewFilePersistence(tempDir, configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return persistence, configManager, tempDir
}

func TestFilePersistence(t *testing.T) {
	persistence, configManager, _ := newTestPersistence(t)

	gameConfig, err := configManager.LoadConfig("tiny")
	if err != nil {
		t.Fatalf("Failed to load tiny config: %v", err)
	}
	gameEngine, err := engine.NewEngine(gameConfig, engine.NewRandomSource(5))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	session := &service.Session{
		ID:             "test1",
		ConfigID:       "tiny",
		Engine:         gameEngine,
		Config:         gameConfig,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	t.Run("Save and Load Session", func(t *testing.T) {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loadedSession.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loadedSession.ID)
		}
		if loadedSession.ConfigID != "tiny" || loadedSession.Config.GridSize != 3 {
			t.Errorf("Expected tiny 3x3 config, got %s %d", loadedSession.ConfigID, loadedSession.Config.GridSize)
		}
		if !loadedSession.Engine.GetState().Grid.Equal(session.Engine.GetState().Grid) {
			t.Error("Grid not restored")
		}
	})

	t.Run("Save State Changes", func(t *testing.T) {
		for _, dir := range []string{"left", "down", "right"} {
			session.Engine.Move(dir)
		}
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save updated session: %v", err)
		}

		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load updated session: %v", err)
		}

		got, want := loadedSession.Engine.GetState(), session.Engine.GetState()
		if !got.Grid.Equal(want.Grid) || got.Score != want.Score {
			t.Error("Game state not persisted correctly")
		}
		if len(loadedSession.Engine.GetMoveHistory()) != len(session.Engine.GetMoveHistory()) {
			t.Error("Move history not persisted correctly")
		}
	})

	t.Run("Config ID Resolved From Name", func(t *testing.T) {
		unnamed := *session
		unnamed.ID = "test2"
		unnamed.ConfigID = ""
		if err := persistence.Save(&unnamed); err != nil {
			t.Fatalf("Failed to save session without config ID: %v", err)
		}

		loaded, err := persistence.Load("test2")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.ConfigID != "tiny" {
			t.Errorf("Expected config ID 'tiny' from display name, got %q", loaded.ConfigID)
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		sessionIDs, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}

		found := make(map[string]bool)
		for _, id := range sessionIDs {
			found[id] = true
		}
		if len(sessionIDs) != 2 || !found["test1"] || !found["test2"] {
			t.Errorf("Expected test1 and test2, got %v", sessionIDs)
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := persistence.Delete("test2"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("test2") {
			t.Error("Session should not exist after delete")
		}
		if _, err := persistence.Load("test2"); err == nil {
			t.Error("Should not be able to load deleted session")
		}
	})

	t.Run("Error Cases", func(t *testing.T) {
		if _, err := persistence.Load("nonexistent"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if err := persistence.Delete("nonexistent"); err == nil {
			t.Error("Should get error when deleting non-existent session")
		}
		if err := persistence.Save(nil); err == nil {
			t.Error("Should get error when saving nil session")
		}
	})
}

func TestFilePersistence_ReloadDoesNotReplaySeed(t *testing.T) {
	persistence, configManager, _ := newTestPersistence(t)

	gameConfig, err := configManager.LoadConfig("seeded")
	if err != nil {
		t.Fatalf("Failed to load seeded config: %v", err)
	}
	if gameConfig.Seed == nil {
		t.Fatal("seeded config should carry a seed")
	}
	gameEngine, err := engine.NewEngine(gameConfig, nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	for i := 0; i < 3; i++ {
		gameEngine.Move(gameEngine.GetPossibleMoves()[0])
	}

	session := &service.Session{
		ID:             "seed1",
		ConfigID:       "seeded",
		Engine:         gameEngine,
		Config:         gameConfig,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	calls := 0
	persistence.newSource = func() engine.RandomSource {
		calls++
		return engine.NewSequenceSource([]float64{0.5}, []int{0})
	}

	loaded, err := persistence.Load("seed1")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if calls != 1 {
		t.Fatalf("Expected one fresh random source for the reload, got %d", calls)
	}

	dir := loaded.Engine.GetPossibleMoves()[0]
	parsed, _ := engine.ParseDirection(dir)
	slid, err := engine.Slide(loaded.Engine.GetState().Grid, parsed)
	if err != nil {
		t.Fatalf("Slide failed: %v", err)
	}
	want := slid.Grid.EmptyCells()[0]

	result, err := loaded.Engine.Move(dir)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if result.Spawned == nil || *result.Spawned != want || result.SpawnedValue != 2 {
		t.Errorf("Expected the reloaded engine to spawn a 2 at %+v from its own source, got %+v value %d",
			want, result.Spawned, result.SpawnedValue)
	}
}

func TestFilePersistence_RejectsCorruptFiles(t *testing.T) {
	persistence, _, dir := newTestPersistence(t)

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{"},
		{"no state", `{"id": "x", "config_name": "classic"}`},
		{"unknown config", `{"id": "x", "config_name": "missing", "game_state": {"grid": [[0,0],[0,0]]}}`},
		{"bad grid", `{"id": "x", "config_name": "classic", "game_state": {"grid": [[3,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}}`},
		{"wrong size", `{"id": "x", "config_name": "classic", "game_state": {"grid": [[0,0],[0,0]]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte(tt.content), 0644)
			if _, err := persistence.Load("corrupt"); err == nil {
				t.Error("Expected load error")
			}
		})
	}
}

func TestFilePersistenceFileStructure(t *testing.T) {
	persistence, configManager, tempDir := newTestPersistence(t)

	gameConfig := configManager.GetDefault()
	gameEngine, err := engine.NewEngine(gameConfig, engine.NewRandomSource(1))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	session := &service.Session{
		ID:             "File_Test",
		ConfigID:       "classic",
		Engine:         gameEngine,
		Config:         gameConfig,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	// file names are lower-cased
	expectedFile := filepath.Join(tempDir, "file_test.json")
	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("Failed to read session file: %v", err)
	}
	if _, err := os.Stat(expectedFile + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should be renamed away")
	}

	content := string(data)
	for _, field := range []string{`"id"`, `"config_name"`, `"created_at"`, `"game_state"`, `"grid"`} {
		if !strings.Contains(content, field) {
			t.Errorf("Session file should contain field %s", field)
		}
	}

	var decoded PersistedSessionData
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Session file is not valid JSON: %v", err)
	}
	if decoded.ConfigName != "classic" {
		t.Errorf("Expected config_name 'classic', got %q", decoded.ConfigName)
	}
}
