package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/scores"
	"github.com/wricardo/mcp-training/game2048/logging"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	scores   scores.Store
	log      *zap.SugaredLogger
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance.
// A nil store disables high score tracking and a nil logger discards output.
func NewGameService(sessions SessionManager, configs ConfigManager, store scores.Store, log *zap.SugaredLogger) GameService {
	if log == nil {
		log = logging.Nop()
	}
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		scores:   store,
		log:      log,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) sessionConfigID(sess *Session) string {
	if sess.ConfigID != "" {
		return sess.ConfigID
	}
	return s.getConfigID(sess.Config.Name)
}

// sessionInfo snapshots a session. Callers hold s.mu so the state cannot change mid-copy.
func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.sessionConfigID(sess),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState().Clone(),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// carry the stored record so the session knows what counts as a new high score
	if best, ok := s.storedBest(ctx, configID); ok {
		state := session.Engine.GetState()
		if best > state.BestScore {
			state.BestScore = best
		}
	}

	s.log.Infow("session created", "session", session.ID, "config", configID)
	return s.sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}
	if reset {
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset: %w", err)
		}
		events = append(events, resetEvent())
	}

	moved, err := sess.Engine.Move(direction)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	step := stepOf(direction, moved)
	result := &MoveResult{
		Success:       moved.Changed,
		Direction:     step.Dir,
		ScoreGained:   moved.ScoreGained,
		Spawned:       moved.Spawned,
		SpawnedValue:  moved.SpawnedValue,
		Merged:        moved.Merged,
		GameState:     state.Clone(),
		Message:       state.Message,
		Events:        append(events, s.moveEvents(ctx, sess, step, moved.Merged)...),
		PossibleMoves: sess.Engine.GetPossibleMoves(),
	}

	s.save(sessionID, "move")
	return result, nil
}

// BulkMove executes multiple moves in sequence
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		if _, err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset: %w", err)
		}
		result.Events = append(result.Events, resetEvent())
	}
	result.StartScore = sess.Engine.GetScore()

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if sess.Engine.IsGameOver() {
			result.StoppedReason = fmt.Sprintf("game over before move %d", i+1)
			result.StopReasonCode = StopGameOver
			result.StoppedOnMove = i + 1
			break
		}

		moved, err := sess.Engine.Move(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d rejected: %v", i+1, err)
			result.StopReasonCode = StopInvalidDirection
			result.StoppedOnMove = i + 1
			break
		}

		result.MovesExecuted++
		step := stepOf(move, moved)
		step.Idx = i + 1
		result.Events = append(result.Events, s.moveEvents(ctx, sess, step, moved.Merged)...)

		state := sess.Engine.GetState()
		step.ScoreAfter = state.Score
		step.MaxTileAfter = state.MaxTile
		result.Steps = append(result.Steps, step)
	}

	endState := sess.Engine.GetState()
	result.GameState = endState.Clone()
	result.EndScore = endState.Score
	result.ScoreDelta = endState.Score - result.StartScore
	result.GameOver = endState.GameOver
	result.Message = endState.Message
	result.PossibleMoves = sess.Engine.GetPossibleMoves()
	result.BoardRisk = endState.BoardRisk

	if result.GameOver && result.StopReasonCode == "" {
		result.StopReasonCode = StopGameOver
	}

	s.save(sessionID, "bulk move")
	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("failed to reset: %w", err)
	}

	s.save(sessionID, "reset")
	return state.Clone(), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState().Clone(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// SaveAll persists every session while holding the lock that guards session state
func (s *gameServiceImpl) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.SaveAllSessions()
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// GetHighScores returns the stored record for one configuration, or the top records across all of them
func (s *gameServiceImpl) GetHighScores(ctx context.Context, configID string, limit int) ([]scores.Record, error) {
	if s.scores == nil {
		return []scores.Record{}, nil
	}

	if configID != "" {
		record, err := s.scores.Best(ctx, configID)
		if errors.Is(err, scores.ErrNoScore) {
			return []scores.Record{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read high score: %w", err)
		}
		return []scores.Record{record}, nil
	}

	if limit <= 0 {
		limit = 10
	}
	records, err := s.scores.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list high scores: %w", err)
	}
	return records, nil
}

// moveEvents turns one engine move into events and records a new high score when one was set
func (s *gameServiceImpl) moveEvents(ctx context.Context, sess *Session, step StepInfo, merged []engine.Position) []GameEvent {
	now := time.Now()
	state := sess.Engine.GetState()

	if !step.Changed {
		if state.GameOver {
			return []GameEvent{{Type: EventGameOver, Message: state.Message, Timestamp: now}}
		}
		return []GameEvent{{
			Type:      EventNoMove,
			Message:   fmt.Sprintf("Nothing moved %s", step.Dir),
			Timestamp: now,
		}}
	}

	events := []GameEvent{{
		Type:      EventMove,
		Message:   fmt.Sprintf("Moved %s for %d points", step.Dir, step.ScoreGained),
		Timestamp: now,
		Value:     step.ScoreGained,
	}}

	for _, pos := range merged {
		pos := pos
		events = append(events, GameEvent{
			Type:      EventMerge,
			Message:   fmt.Sprintf("Merged into %d at (%d,%d)", state.Grid[pos.Row][pos.Col], pos.Row, pos.Col),
			Timestamp: now,
			Position:  &pos,
			Value:     state.Grid[pos.Row][pos.Col],
		})
	}

	if step.Spawned != nil {
		events = append(events, GameEvent{
			Type:      EventSpawn,
			Message:   fmt.Sprintf("New %d at (%d,%d)", step.SpawnedValue, step.Spawned.Row, step.Spawned.Col),
			Timestamp: now,
			Position:  step.Spawned,
			Value:     step.SpawnedValue,
		})
	}

	if step.ScoreGained > 0 && state.Score == state.BestScore && s.recordScore(ctx, sess) {
		events = append(events, GameEvent{
			Type:      EventHighScore,
			Message:   fmt.Sprintf("New high score: %d", state.Score),
			Timestamp: now,
			Value:     state.Score,
		})
	}

	if state.GameOver {
		events = append(events, GameEvent{Type: EventGameOver, Message: state.Message, Timestamp: now, Value: state.Score})
	}

	return events
}

// recordScore submits the session's current score and reports whether it became the stored record
func (s *gameServiceImpl) recordScore(ctx context.Context, sess *Session) bool {
	if s.scores == nil {
		return false
	}

	state := sess.Engine.GetState()
	improved, err := s.scores.Submit(ctx, scores.Record{
		ConfigID:  s.sessionConfigID(sess),
		SessionID: sess.ID,
		Score:     state.Score,
		MaxTile:   state.MaxTile,
		Moves:     state.CurrentMovesCount,
	})
	if err != nil {
		s.log.Warnw("failed to record high score", "session", sess.ID, "score", state.Score, "error", err)
		return false
	}
	if improved {
		s.log.Infow("new high score", "session", sess.ID, "config", s.sessionConfigID(sess), "score", state.Score)
	}
	return improved
}

// storedBest reads the stored record for a config. Missing records and store errors both report false.
func (s *gameServiceImpl) storedBest(ctx context.Context, configID string) (int, bool) {
	if s.scores == nil {
		return 0, false
	}
	record, err := s.scores.Best(ctx, configID)
	if err != nil {
		if !errors.Is(err, scores.ErrNoScore) {
			s.log.Warnw("failed to read high score", "config", configID, "error", err)
		}
		return 0, false
	}
	return record.Score, true
}

func (s *gameServiceImpl) save(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.Warnw("failed to persist session", "session", sessionID, "after", after, "error", err)
	}
}

// stepOf summarises an engine move; Idx and the after-move fields are filled by the caller
func stepOf(direction string, moved *engine.MoveResult) StepInfo {
	dir := strings.ToLower(strings.TrimSpace(direction))
	if d, err := engine.ParseDirection(direction); err == nil {
		dir = string(d)
	}
	return StepInfo{
		Dir:          dir,
		Changed:      moved.Changed,
		ScoreGained:  moved.ScoreGained,
		Spawned:      moved.Spawned,
		SpawnedValue: moved.SpawnedValue,
		Merges:       len(moved.Merged),
	}
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      EventReset,
		Message:   "Game reset to a fresh board",
		Timestamp: time.Now(),
	}
}
