// Package history persists optimization and comparison runs to SQLite
// so past work can be reviewed and re-used.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OptimizationRecord is one stored optimization run.
type OptimizationRecord struct {
	ID              string
	Provider        string
	Model           string
	Strategy        string
	OriginalPrompt  string
	OptimizedPrompt string
	Suggestions     []string
	Duration        time.Duration
	CreatedAt       time.Time
}

// ComparisonRecord is one stored original-vs-optimized comparison run.
type ComparisonRecord struct {
	ID               string
	Provider         string
	Model            string
	OriginalPrompt   string
	OptimizedPrompt  string
	TestInput        string
	OriginalOutput   string
	OptimizedOutput  string
	Analysis         string
	OriginalLatency  time.Duration
	OptimizedLatency time.Duration
	CreatedAt        time.Time
}

// Store handles persistence of optimization and comparison runs.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a history store backed by the given database.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "historyStore").Logger(),
	}
}

// SaveOptimization saves an optimization run. A missing ID or creation
// time is filled in before the insert.
func (s *Store) SaveOptimization(ctx context.Context, record *OptimizationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	suggestionsJSON, err := json.Marshal(record.Suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}

	query := sq.Insert("optimization_runs").
		Columns("id", "provider", "model", "strategy", "original_prompt", "optimized_prompt", "suggestions", "duration_ms", "created_at").
		Values(record.ID, record.Provider, record.Model, record.Strategy,
			record.OriginalPrompt, record.OptimizedPrompt, string(suggestionsJSON),
			record.Duration.Milliseconds(), record.CreatedAt.Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("insert optimization run: %w", err)
	}

	s.logger.Debug().Str("id", record.ID).Str("strategy", record.Strategy).Msg("Saved optimization run")
	return nil
}

// RecentOptimizations returns the most recent optimization runs, newest
// first. limit <= 0 means a default of 20.
func (s *Store) RecentOptimizations(ctx context.Context, limit int) ([]OptimizationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := sq.Select("id", "provider", "model", "strategy", "original_prompt", "optimized_prompt", "suggestions", "duration_ms", "created_at").
		From("optimization_runs").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)) //#nosec 115 -- limit is checked above

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query optimization runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var records []OptimizationRecord
	for rows.Next() {
		var record OptimizationRecord
		var suggestionsJSON string
		var durationMs, createdAt int64
		if err := rows.Scan(&record.ID, &record.Provider, &record.Model, &record.Strategy,
			&record.OriginalPrompt, &record.OptimizedPrompt, &suggestionsJSON,
			&durationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan optimization run: %w", err)
		}
		if err := json.Unmarshal([]byte(suggestionsJSON), &record.Suggestions); err != nil {
			return nil, fmt.Errorf("unmarshal suggestions for %s: %w", record.ID, err)
		}
		record.Duration = time.Duration(durationMs) * time.Millisecond
		record.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, record)
	}

	return records, rows.Err()
}

// SaveComparison saves a comparison run. A missing ID or creation time
// is filled in before the insert.
func (s *Store) SaveComparison(ctx context.Context, record *ComparisonRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := sq.Insert("comparison_runs").
		Columns("id", "provider", "model", "original_prompt", "optimized_prompt", "test_input",
			"original_output", "optimized_output", "analysis", "original_latency_ms", "optimized_latency_ms", "created_at").
		Values(record.ID, record.Provider, record.Model, record.OriginalPrompt, record.OptimizedPrompt,
			record.TestInput, record.OriginalOutput, record.OptimizedOutput, record.Analysis,
			record.OriginalLatency.Milliseconds(), record.OptimizedLatency.Milliseconds(), record.CreatedAt.Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("insert comparison run: %w", err)
	}

	s.logger.Debug().Str("id", record.ID).Msg("Saved comparison run")
	return nil
}

// RecentComparisons returns the most recent comparison runs, newest
// first. limit <= 0 means a default of 20.
func (s *Store) RecentComparisons(ctx context.Context, limit int) ([]ComparisonRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := sq.Select("id", "provider", "model", "original_prompt", "optimized_prompt", "test_input",
		"original_output", "optimized_output", "analysis", "original_latency_ms", "optimized_latency_ms", "created_at").
		From("comparison_runs").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)) //#nosec 115 -- limit is checked above

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query comparison runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var records []ComparisonRecord
	for rows.Next() {
		var record ComparisonRecord
		var originalMs, optimizedMs, createdAt int64
		if err := rows.Scan(&record.ID, &record.Provider, &record.Model, &record.OriginalPrompt,
			&record.OptimizedPrompt, &record.TestInput, &record.OriginalOutput, &record.OptimizedOutput,
			&record.Analysis, &originalMs, &optimizedMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comparison run: %w", err)
		}
		record.OriginalLatency = time.Duration(originalMs) * time.Millisecond
		record.OptimizedLatency = time.Duration(optimizedMs) * time.Millisecond
		record.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, record)
	}

	return records, rows.Err()
}
