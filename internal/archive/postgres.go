// Package archive persists finished transcription results. Archiving
// is opt-in: batches run fine without a database, and a missing
// archive never affects job outcomes.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legadoives/transcritor/internal/config"
	"github.com/legadoives/transcritor/internal/media"
)

// Result is one completed job's output, ready to store.
type Result struct {
	JobID       string
	Source      string
	Meta        media.Metadata
	Transcript  string
	RefinedText string
	CreatedAt   time.Time
}

// Store writes results to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewPool connects to Postgres with the configured pool bounds.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	job_id        TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	interview_date TEXT NOT NULL DEFAULT '',
	guest         TEXT NOT NULL DEFAULT '',
	transcript    TEXT NOT NULL,
	refined_text  TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the transcriptions table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save upserts one result by job ID.
func (s *Store) Save(ctx context.Context, r Result) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transcriptions (job_id, source, title, interview_date, guest, transcript, refined_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE SET
			transcript = EXCLUDED.transcript,
			refined_text = EXCLUDED.refined_text`,
		r.JobID, r.Source, r.Meta.Title, r.Meta.Date, r.Meta.Guest, r.Transcript, r.RefinedText)
	if err != nil {
		return fmt.Errorf("save transcription %s: %w", r.JobID, err)
	}
	return nil
}

// List returns the most recent results, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT job_id, source, title, interview_date, guest, transcript, refined_text, created_at
		FROM transcriptions
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.JobID, &r.Source, &r.Meta.Title, &r.Meta.Date, &r.Meta.Guest,
			&r.Transcript, &r.RefinedText, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
