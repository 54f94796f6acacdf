package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Result is one submitted quiz attempt. Attempt counts from 1.
type Result struct {
	ID          uuid.UUID         `json:"id"`
	QuizID      string            `json:"quiz_id"`
	DocumentID  string            `json:"document_id"`
	Attempt     int               `json:"attempt"`
	Correct     int               `json:"correct"`
	Total       int               `json:"total"`
	Percentage  float64           `json:"percentage"`
	Answers     map[string]string `json:"answers"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// Results persists submitted quiz attempts.
type Results interface {
	SaveResult(ctx context.Context, r Result) error
	ListResults(ctx context.Context, quizID string) ([]Result, error)
}

// MemoryResults keeps results in process memory.
type MemoryResults struct {
	mu      sync.Mutex
	results map[string][]Result
}

func NewMemoryResults() *MemoryResults {
	return &MemoryResults{results: make(map[string][]Result)}
}

func (m *MemoryResults) SaveResult(_ context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.QuizID] = append(m.results[r.QuizID], r)
	return nil
}

func (m *MemoryResults) ListResults(_ context.Context, quizID string) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Result(nil), m.results[quizID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

const resultsSchema = `
CREATE TABLE IF NOT EXISTS quiz_results (
	id           UUID PRIMARY KEY,
	quiz_id      TEXT NOT NULL,
	document_id  TEXT NOT NULL,
	attempt      INTEGER NOT NULL,
	correct      INTEGER NOT NULL,
	total        INTEGER NOT NULL,
	percentage   DOUBLE PRECISION NOT NULL,
	answers      JSONB NOT NULL DEFAULT '{}',
	submitted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS quiz_results_quiz_id_idx ON quiz_results (quiz_id);
`

// PostgresResults stores results in Postgres.
type PostgresResults struct {
	pool *pgxpool.Pool
}

// NewPostgresResults connects, pings and creates the results table when
// missing.
func NewPostgresResults(ctx context.Context, connStr string) (*PostgresResults, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, resultsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create results schema: %w", err)
	}

	return &PostgresResults{pool: pool}, nil
}

func (p *PostgresResults) SaveResult(ctx context.Context, r Result) error {
	query := `INSERT INTO quiz_results (id, quiz_id, document_id, attempt, correct, total, percentage, answers, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`
	if r.Answers == nil {
		r.Answers = map[string]string{}
	}
	_, err := p.pool.Exec(ctx, query,
		r.ID, r.QuizID, r.DocumentID, r.Attempt, r.Correct, r.Total, r.Percentage, r.Answers, r.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", r.ID, err)
	}
	return nil
}

func (p *PostgresResults) ListResults(ctx context.Context, quizID string) ([]Result, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, quiz_id, document_id, attempt, correct, total, percentage, answers, submitted_at
		FROM quiz_results WHERE quiz_id = $1 ORDER BY submitted_at`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.ID,
			&r.QuizID,
			&r.DocumentID,
			&r.Attempt,
			&r.Correct,
			&r.Total,
			&r.Percentage,
			&r.Answers,
			&r.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (p *PostgresResults) Close() {
	p.pool.Close()
}
