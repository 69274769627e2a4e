package api

import (
	"sync/atomic"
	"time"
)

// Metrics counts what the server has done since start, for /metrics
type Metrics struct {
	started time.Time

	Requests        int64
	SessionsCreated int64
	MovesChanged    int64
	MovesUnchanged  int64
	InvalidMoves    int64
	BulkMoves       int64
	GamesOver       int64
	HighScores      int64
	Errors          int64
}

// NewMetrics creates zeroed counters
func NewMetrics() *Metrics {
	return &Metrics{started: time.Now()}
}

func (m *Metrics) IncRequests()        { atomic.AddInt64(&m.Requests, 1) }
func (m *Metrics) IncSessionsCreated() { atomic.AddInt64(&m.SessionsCreated, 1) }
func (m *Metrics) IncInvalidMoves()    { atomic.AddInt64(&m.InvalidMoves, 1) }
func (m *Metrics) IncBulkMoves()       { atomic.AddInt64(&m.BulkMoves, 1) }
func (m *Metrics) IncGamesOver()       { atomic.AddInt64(&m.GamesOver, 1) }
func (m *Metrics) IncHighScores()      { atomic.AddInt64(&m.HighScores, 1) }
func (m *Metrics) IncErrors()          { atomic.AddInt64(&m.Errors, 1) }

// AddMove counts one applied move
func (m *Metrics) AddMove(changed bool) {
	if changed {
		atomic.AddInt64(&m.MovesChanged, 1)
	} else {
		atomic.AddInt64(&m.MovesUnchanged, 1)
	}
}

// Snapshot returns a read-only copy for JSON output
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"uptime_seconds":   int64(time.Since(m.started).Seconds()),
		"requests":         atomic.LoadInt64(&m.Requests),
		"sessions_created": atomic.LoadInt64(&m.SessionsCreated),
		"moves_changed":    atomic.LoadInt64(&m.MovesChanged),
		"moves_unchanged":  atomic.LoadInt64(&m.MovesUnchanged),
		"invalid_moves":    atomic.LoadInt64(&m.InvalidMoves),
		"bulk_moves":       atomic.LoadInt64(&m.BulkMoves),
		"games_over":       atomic.LoadInt64(&m.GamesOver),
		"high_scores":      atomic.LoadInt64(&m.HighScores),
		"errors":           atomic.LoadInt64(&m.Errors),
	}
}
