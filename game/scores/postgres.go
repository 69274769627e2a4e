package scores

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS high_scores (
	config_id   TEXT PRIMARY KEY,
	id          UUID NOT NULL,
	session_id  TEXT NOT NULL DEFAULT '',
	score       INTEGER NOT NULL,
	max_tile    INTEGER NOT NULL,
	moves       INTEGER NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);`

// PostgresStore keeps high scores in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, checks the connection and bootstraps the schema.
// The caller is responsible for calling Close() on the store.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Best(ctx context.Context, configID string) (Record, error) {
	q := `
	SELECT id::text, config_id, session_id, score, max_tile, moves, recorded_at
	FROM high_scores WHERE config_id = $1;
	`
	record, err := scanPostgres(s.pool.QueryRow(ctx, q, configID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNoScore
	}
	return record, err
}

func (s *PostgresStore) Submit(ctx context.Context, record Record) (bool, error) {
	record, err := prepare(record)
	if err != nil {
		return false, err
	}
	if record.Score == 0 {
		return false, nil
	}

	q := `
	INSERT INTO high_scores (config_id, id, session_id, score, max_tile, moves, recorded_at)
	VALUES ($1, $2::uuid, $3, $4, $5, $6, $7)
	ON CONFLICT (config_id) DO UPDATE SET
		id = excluded.id, session_id = excluded.session_id, score = excluded.score,
		max_tile = excluded.max_tile, moves = excluded.moves, recorded_at = excluded.recorded_at
	WHERE excluded.score > high_scores.score;
	`
	tag, err := s.pool.Exec(ctx, q, record.ConfigID, record.ID.String(), record.SessionID,
		record.Score, record.MaxTile, record.Moves, record.RecordedAt)
	if err != nil {
		return false, fmt.Errorf("failed to submit score: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Record, error) {
	q := `
	SELECT id::text, config_id, session_id, score, max_tile, moves, recorded_at
	FROM high_scores ORDER BY score DESC, config_id ASC
	`
	var args []any
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		record, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgres(row pgx.Row) (Record, error) {
	var (
		record Record
		id     string
	)
	err := row.Scan(&id, &record.ConfigID, &record.SessionID, &record.Score,
		&record.MaxTile, &record.Moves, &record.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to scan score: %w", err)
	}

	record.ID, err = uuid.Parse(id)
	if err != nil {
		return Record{}, fmt.Errorf("stored score has bad id %q: %w", id, err)
	}
	return record, nil
}
