package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// WriteNormalized appends normalized cores produced by a run.
func (s *Store) WriteNormalized(ctx context.Context, runID, alignment string, cores []vcf.RecordCore) error {
	rows := make([][]driver.Value, 0, len(cores))
	for _, c := range cores {
		rows = append(rows, []driver.Value{
			runID, int64(c.Line), c.Chromosome, c.Position, c.Reference, c.Alternate, alignment,
		})
	}
	return s.appendRows(ctx, "normalized_variants", rows)
}

// LookupNormalized returns the cores stored for a run at chrom:pos, ordered
// by input line and position. A pos of 0 returns every core on chrom and an
// empty chrom returns the whole run.
func (s *Store) LookupNormalized(ctx context.Context, runID, chrom string, pos int64) ([]vcf.RecordCore, error) {
	query := `SELECT line, chrom, pos, ref, alt FROM normalized_variants WHERE run_id = ?`
	args := []any{runID}
	if chrom != "" {
		query += ` AND chrom = ?`
		args = append(args, chrom)
		if pos > 0 {
			query += ` AND pos = ?`
			args = append(args, pos)
		}
	}
	query += ` ORDER BY line, pos`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query normalized variants: %w", err)
	}
	defer rows.Close()

	var out []vcf.RecordCore
	for rows.Next() {
		var c vcf.RecordCore
		var line int64
		if err := rows.Scan(&line, &c.Chromosome, &c.Position, &c.Reference, &c.Alternate); err != nil {
			return nil, fmt.Errorf("scan normalized variant: %w", err)
		}
		c.Line = int(line)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate normalized variants: %w", err)
	}
	return out, nil
}
