package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// DiagnosticRow is a stored diagnostic.
type DiagnosticRow struct {
	RunID    string
	Line     int64
	Column   int64
	Section  string
	Severity string
	Field    string
	Message  string
	Detail   string
}

// WriteDiagnostics appends the diagnostics of a run.
func (s *Store) WriteDiagnostics(ctx context.Context, runID string, ds []*vcf.Diagnostic) error {
	rows := make([][]driver.Value, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []driver.Value{
			runID, int64(d.Line), int64(d.Column),
			d.Section.String(), d.Severity.String(),
			d.Field, d.Message, d.Detail,
		})
	}
	return s.appendRows(ctx, "diagnostics", rows)
}

// LookupDiagnostics returns the diagnostics of a run in line order.
// A non-empty severity restricts the result to "error" or "warning".
func (s *Store) LookupDiagnostics(ctx context.Context, runID, severity string) ([]DiagnosticRow, error) {
	query := `SELECT run_id, line, col, section, severity, field, message, detail
		FROM diagnostics WHERE run_id = ?`
	args := []any{runID}
	if severity != "" {
		query += ` AND severity = ?`
		args = append(args, severity)
	}
	query += ` ORDER BY line, col`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []DiagnosticRow
	for rows.Next() {
		var d DiagnosticRow
		if err := rows.Scan(&d.RunID, &d.Line, &d.Column, &d.Section, &d.Severity, &d.Field, &d.Message, &d.Detail); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return out, nil
}

// MessageCount is the number of times a message was raised.
type MessageCount struct {
	Severity string
	Message  string
	Count    int64
}

// CountDiagnostics groups the diagnostics of a run by message, most
// frequent first.
func (s *Store) CountDiagnostics(ctx context.Context, runID string) ([]MessageCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT severity, message, count(*) AS n
		FROM diagnostics WHERE run_id = ?
		GROUP BY severity, message
		ORDER BY n DESC, message`, runID)
	if err != nil {
		return nil, fmt.Errorf("count diagnostics: %w", err)
	}
	defer rows.Close()

	var out []MessageCount
	for rows.Next() {
		var c MessageCount
		if err := rows.Scan(&c.Severity, &c.Message, &c.Count); err != nil {
			return nil, fmt.Errorf("scan diagnostic count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostic counts: %w", err)
	}
	return out, nil
}
