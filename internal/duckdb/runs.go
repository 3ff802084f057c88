package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// FileFingerprint identifies an input file by path, size and modification
// time. Runs recorded against the same fingerprint read the same bytes.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile fingerprints the file at path. Standard input ("-") only has a
// path.
func StatFile(path string) (FileFingerprint, error) {
	if path == "-" {
		return FileFingerprint{Path: path}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, fmt.Errorf("stat input: %w", err)
	}
	return FileFingerprint{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Run describes one processed input file.
type Run struct {
	ID         string
	Command    string
	File       FileFingerprint
	StartedAt  time.Time
	FinishedAt time.Time // zero until FinishRun
	Valid      bool
	Records    int64
	Errors     int64
	Warnings   int64
}

// RunSummary is the outcome recorded by FinishRun.
type RunSummary struct {
	Valid    bool
	Records  int64
	Errors   int64
	Warnings int64
}

// NewRun registers a run of command over the file described by fp and
// returns its id.
func (s *Store) NewRun(ctx context.Context, command string, fp FileFingerprint) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, command, path, size, mod_time, started_at, valid, records, errors, warnings)
		VALUES (?, ?, ?, ?, ?, ?, false, 0, 0, 0)`,
		id, command, fp.Path, fp.Size, dbTime(fp.ModTime), dbTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id string, sum RunSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, valid = ?, records = ?, errors = ?, warnings = ? WHERE run_id = ?`,
		dbTime(time.Now()), sum.Valid, sum.Records, sum.Errors, sum.Warnings, id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `run_id, command, path, size, mod_time, started_at, finished_at, valid, records, errors, warnings`

// LookupRun returns the run with the given id.
func (s *Store) LookupRun(ctx context.Context, id string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return runs[0], nil
}

// Runs returns every run of path, most recent first. An empty path returns
// all runs.
func (s *Store) Runs(ctx context.Context, path string) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if path != "" {
		query += ` WHERE path = ?`
		args = append(args, path)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// LatestValidRun returns the most recent finished, valid run of a file with
// the same fingerprint, or nil when there is none. It lets callers skip
// files that have not changed since they last validated cleanly.
func (s *Store) LatestValidRun(ctx context.Context, fp FileFingerprint) (*Run, error) {
	runs, err := s.Runs(ctx, fp.Path)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.Valid && !r.FinishedAt.IsZero() && r.File.Size == fp.Size && r.File.ModTime.Equal(dbTime(fp.ModTime)) {
			return r, nil
		}
	}
	return nil, nil
}

// dbTime rounds t to the microsecond resolution of a DuckDB TIMESTAMP.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.Command, &r.File.Path, &r.File.Size, &r.File.ModTime,
			&r.StartedAt, &finished, &r.Valid, &r.Records, &r.Errors, &r.Warnings,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
