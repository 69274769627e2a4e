package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/service"
)

const sessionExt = ".json"

// FilePersistence stores each session as <dir>/<lower-case id>.json.
type FilePersistence struct {
	dir     string
	configs service.ConfigManager
	// newSource feeds reloaded engines. A config seed would replay spawns already made.
	newSource func() engine.RandomSource
}

// NewFilePersistence creates dir if needed. configs resolves the config each file names.
func NewFilePersistence(dir string, configs service.ConfigManager) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir, configs: configs, newSource: engine.NewTimeSource}, nil
}

func (fp *FilePersistence) path(id string) string {
	return filepath.Join(fp.dir, strings.ToLower(id)+sessionExt)
}

func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}

	configID := sess.ConfigID
	if configID == "" {
		var err error
		if configID, err = fp.configIDFor(sess.Config.Name); err != nil {
			return fmt.Errorf("failed to get config ID: %w", err)
		}
	}

	raw, err := json.MarshalIndent(PersistedSessionData{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	// write then rename so a crash never leaves a truncated session file
	target := fp.path(sess.ID)
	if err := os.WriteFile(target+".tmp", raw, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(target+".tmp", target); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Load rebuilds a playable session: the stored board is validated by SetState and the
// engine gets a new random source.
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	target := fp.path(id)
	raw, err := os.ReadFile(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session file %s has no game state", target)
	}

	cfg, err := fp.configs.LoadConfig(data.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
	}
	eng, err := engine.NewEngine(cfg, fp.newSource())
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := eng.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Engine:         eng,
		Config:         cfg,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

func (fp *FilePersistence) Delete(id string) error {
	err := os.Remove(fp.path(id))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrSessionNotFound
	case err != nil:
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the IDs of every *.json file in the directory. Leftover .tmp files are ignored.
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if id, ok := strings.CutSuffix(e.Name(), sessionExt); ok && !e.IsDir() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.path(id))
	return err == nil
}

// configIDFor maps a display name such as "Classic" back to its file ID. An unknown
// name is taken to be an ID already.
func (fp *FilePersistence) configIDFor(displayName string) (string, error) {
	infos, err := fp.configs.ListConfigs()
	if err != nil {
		return "", fmt.Errorf("failed to list configs: %w", err)
	}
	for _, info := range infos {
		if info.Name == displayName {
			return info.ConfigID, nil
		}
	}
	return displayName, nil
}
