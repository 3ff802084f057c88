// Package duckdb stores validation reports in DuckDB.
// Each validate or normalize invocation is a run; its diagnostics and
// normalized variants are appended to tables keyed by the run id so that
// reports from many files can be queried together.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding validation reports.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the report database at path, creating the file, its parent
// directory and the schema as needed. An empty path gives an in-memory
// database.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	}

	connector, err := goduckdb.NewConnector(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	s := &Store{db: sql.OpenDB(connector), path: path}
	if err := s.ensureSchema(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("create report schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		command VARCHAR,
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP,
		started_at TIMESTAMP,
		finished_at TIMESTAMP,
		valid BOOLEAN,
		records BIGINT,
		errors BIGINT,
		warnings BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS diagnostics (
		run_id VARCHAR,
		line BIGINT,
		col BIGINT,
		section VARCHAR,
		severity VARCHAR,
		field VARCHAR,
		message VARCHAR,
		detail VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS normalized_variants (
		run_id VARCHAR,
		line BIGINT,
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		alignment VARCHAR
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// appendRows bulk-inserts rows into table through the Appender API.
func (s *Store) appendRows(ctx context.Context, table string, rows [][]driver.Value) error {
	if len(rows) == 0 {
		return nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, row := range rows {
		if err := appender.AppendRow(row...); err != nil {
			return fmt.Errorf("append to %s: %w", table, err)
		}
	}
	return appender.Flush()
}
