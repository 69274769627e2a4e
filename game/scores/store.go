package scores

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoScore is returned when no score has been recorded for a configuration
var ErrNoScore = errors.New("no score recorded")

// Record is the best score reached on one game configuration
type Record struct {
	ID         uuid.UUID `json:"id"`
	ConfigID   string    `json:"config_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Score      int       `json:"score"`
	MaxTile    int       `json:"max_tile"`
	Moves      int       `json:"moves"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store keeps the maximum score per configuration.
// Submit only replaces the stored record when the new score is strictly higher
// and reports whether it did.
type Store interface {
	Best(ctx context.Context, configID string) (Record, error)
	Submit(ctx context.Context, record Record) (bool, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Open picks a backend from the DSN:
//
//	""  or "memory:"             in-process map
//	"postgres://..."             PostgreSQL through pgxpool
//	"sqlite:path" or a file path SQLite file
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "" || dsn == "memory:":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite:"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	default:
		return NewSQLiteStore(ctx, dsn)
	}
}

// prepare fills the ID and timestamp of a record about to be stored
func prepare(record Record) (Record, error) {
	if record.ConfigID == "" {
		return record, fmt.Errorf("config id is required")
	}
	if record.Score < 0 {
		return record, fmt.Errorf("score cannot be negative: %d", record.Score)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	return record, nil
}

// sortRecords orders by score, highest first, then by config ID
func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].ConfigID < records[j].ConfigID
	})
}
