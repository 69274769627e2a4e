package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/service"
	"github.com/wricardo/mcp-training/game2048/logging"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager keeps live 2048 sessions in memory, keyed by lower-cased ID, and mirrors
// them to an optional SessionPersistence.
type Manager struct {
	mu    sync.RWMutex
	live  map[string]*service.Session
	store SessionPersistence
	log   *zap.SugaredLogger
}

// NewManager returns a manager with no backing store. A nil logger discards output.
func NewManager(log *zap.SugaredLogger) *Manager {
	return NewManagerWithPersistence(nil, log)
}

func NewManagerWithPersistence(store SessionPersistence, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		live:  make(map[string]*service.Session),
		store: store,
		log:   log,
	}
}

func key(id string) string { return strings.ToLower(id) }

// Create starts a fresh board for config. An empty id gets a random 4-character one.
func (m *Manager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	if strings.ContainsAny(id, `/\ `) {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case id == "":
		id = m.freshID()
	case m.live[key(id)] != nil:
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(config, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.live[key(id)] = sess
	m.log.Debugw("session created", "session", id, "config", configID, "grid_size", config.GridSize)

	if m.store != nil {
		if err := m.store.Save(sess); err != nil {
			// the board is playable anyway; the save after the first move retries
			m.log.Warnw("failed to persist session", "session", id, "error", err)
		}
	}
	return sess, nil
}

// Get looks id up case-insensitively. A session missing from memory is loaded from the
// store, so boards survive a restart or an expiry sweep.
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	sess := m.live[key(id)]
	m.mu.RUnlock()
	if sess != nil {
		return sess, nil
	}

	if m.store == nil || !m.store.Exists(id) {
		return nil, ErrSessionNotFound
	}
	loaded, err := m.store.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if raced := m.live[key(id)]; raced != nil {
		return raced, nil
	}
	m.live[key(id)] = loaded
	m.log.Debugw("session loaded from storage", "session", id)
	return loaded, nil
}

func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*service.Session, 0, len(m.live))
	for _, sess := range m.live {
		out = append(out, sess)
	}
	return out
}

// Delete drops a session from memory and from the store. Only a session found in
// neither place is ErrSessionNotFound.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, wasLive := m.live[key(id)]
	delete(m.live, key(id))

	if m.store != nil && m.store.Exists(id) {
		if err := m.store.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !wasLive {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory forgets a session whose file is already gone.
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live[key(id)]; !ok {
		return ErrSessionNotFound
	}
	delete(m.live, key(id))
	return nil
}

func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.live[key(id)]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	return nil
}

// Save writes one live session to the store; a manager without a store does nothing.
func (m *Manager) Save(id string) error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	sess, ok := m.live[key(id)]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	return m.store.Save(sess)
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge and reports how
// many went. Their files stay, so Get can bring them back.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	evicted := 0
	for k, sess := range m.live {
		if sess.LastAccessedAt.Before(cutoff) {
			delete(m.live, k)
			evicted++
		}
	}

	if evicted > 0 {
		m.log.Infow("expired sessions removed from memory", "count", evicted, "max_age", maxAge)
	}
	return evicted
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// freshID picks 2 random bytes as hex until the ID is free in memory and on disk.
// Callers hold m.mu.
func (m *Manager) freshID() string {
	buf := make([]byte, 2)
	for {
		rand.Read(buf)
		id := hex.EncodeToString(buf)
		if m.live[id] != nil {
			continue
		}
		if m.store != nil && m.store.Exists(id) {
			continue
		}
		return id
	}
}

// LoadPersistedSessions warms memory with every stored session at startup. A file that
// fails to load is logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.store == nil {
		return nil
	}

	ids, err := m.store.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if m.live[key(id)] != nil {
			continue
		}
		sess, err := m.store.Load(id)
		if err != nil {
			m.log.Warnw("failed to load persisted session", "session", id, "error", err)
			continue
		}
		m.live[key(id)] = sess
		loaded++
	}

	if loaded > 0 {
		m.log.Infow("loaded persisted sessions", "count", loaded)
	}
	return nil
}

// SaveAllSessions writes every live session and joins the per-session failures.
// The service calls it under its own lock so no move is mid-flight.
func (m *Manager) SaveAllSessions() error {
	if m.store == nil {
		return nil
	}

	var errs []error
	for _, sess := range m.List() {
		if err := m.store.Save(sess); err != nil {
			m.log.Warnw("failed to save session", "session", sess.ID, "error", err)
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
		}
	}
	return errors.Join(errs...)
}
