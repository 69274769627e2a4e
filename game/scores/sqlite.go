package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS high_scores (
	config_id   TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	session_id  TEXT NOT NULL DEFAULT '',
	score       INTEGER NOT NULL,
	max_tile    INTEGER NOT NULL,
	moves       INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);`

// SQLiteStore keeps high scores in a SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database file and its schema
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Best(ctx context.Context, configID string) (Record, error) {
	q := `
	SELECT id, config_id, session_id, score, max_tile, moves, recorded_at
	FROM high_scores WHERE config_id = ?;
	`
	record, err := scanSQLite(s.db.QueryRowContext(ctx, q, configID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoScore
	}
	return record, err
}

func (s *SQLiteStore) Submit(ctx context.Context, record Record) (bool, error) {
	record, err := prepare(record)
	if err != nil {
		return false, err
	}
	if record.Score == 0 {
		return false, nil
	}

	q := `
	INSERT INTO high_scores (config_id, id, session_id, score, max_tile, moves, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (config_id) DO UPDATE SET
		id = excluded.id, session_id = excluded.session_id, score = excluded.score,
		max_tile = excluded.max_tile, moves = excluded.moves, recorded_at = excluded.recorded_at
	WHERE excluded.score > high_scores.score;
	`
	res, err := s.db.ExecContext(ctx, q, record.ConfigID, record.ID.String(), record.SessionID,
		record.Score, record.MaxTile, record.Moves, record.RecordedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to submit score: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	q := `
	SELECT id, config_id, session_id, score, max_tile, moves, recorded_at
	FROM high_scores ORDER BY score DESC, config_id ASC
	`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		record, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (Record, error) {
	var (
		record     Record
		id         string
		recordedAt int64
	)
	err := row.Scan(&id, &record.ConfigID, &record.SessionID, &record.Score,
		&record.MaxTile, &record.Moves, &recordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to scan score: %w", err)
	}

	record.ID, err = uuid.Parse(id)
	if err != nil {
		return Record{}, fmt.Errorf("stored score has bad id %q: %w", id, err)
	}
	record.RecordedAt = time.UnixMilli(recordedAt).UTC()
	return record, nil
}
