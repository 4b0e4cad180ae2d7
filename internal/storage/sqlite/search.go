package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	pantry "github.com/telliott/pantry/internal"
)

// InsertSearches batch-inserts search timing records.
func (s *Store) InsertSearches(ctx context.Context, records []pantry.SearchRecord) error {
	if len(records) == 0 {
		return nil
	}

	// cols must match the number of columns in the INSERT below.
	// Single multi-row INSERT avoids N round-trips for large batches.
	const cols = 8
	placeholders := make([]string, len(records))
	args := make([]any, 0, len(records)*cols)

	for i, r := range records {
		placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			r.ID, r.CacheKey, string(r.Outcome), boolToInt(r.CacheHit),
			r.LatencyMs, r.ResultCount, r.RequestID,
			r.CreatedAt.UTC().Format(time.RFC3339),
		)
	}

	query := `INSERT INTO search_records
		(id, cache_key, outcome, cache_hit, latency_ms, result_count, request_id, created_at)
		VALUES ` + strings.Join(placeholders, ", ")

	_, err := s.write.ExecContext(ctx, query, args...)
	return err
}

// QuerySearches returns search records matching the filter, newest first.
func (s *Store) QuerySearches(ctx context.Context, f pantry.SearchFilter) ([]pantry.SearchRecord, error) {
	where, args := searchWhere(f)
	query := `SELECT id, cache_key, outcome, cache_hit, latency_ms, result_count, request_id, created_at
		FROM search_records` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pantry.SearchRecord
	for rows.Next() {
		var r pantry.SearchRecord
		var outcome string
		var cacheHit int
		var createdAt string
		err := rows.Scan(
			&r.ID, &r.CacheKey, &outcome, &cacheHit,
			&r.LatencyMs, &r.ResultCount, &r.RequestID, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		r.Outcome = pantry.OutcomeKind(outcome)
		r.CacheHit = cacheHit != 0
		// InsertSearches always writes RFC 3339; anything else is corruption.
		r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountSearches returns the count of search records matching the filter.
func (s *Store) CountSearches(ctx context.Context, f pantry.SearchFilter) (int, error) {
	where, args := searchWhere(f)
	var n int
	err := s.read.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_records`+where, args...,
	).Scan(&n)
	return n, err
}

func searchWhere(f pantry.SearchFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	if f.CacheHit != nil {
		clauses = append(clauses, "cache_hit = ?")
		args = append(args, boolToInt(*f.CacheHit))
	}
	if f.Since != "" {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since)
	}
	if f.Until != "" {
		clauses = append(clauses, "created_at < ?")
		args = append(args, f.Until)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
