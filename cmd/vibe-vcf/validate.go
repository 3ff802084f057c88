package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-vcf/internal/duckdb"
	"github.com/inodb/vibe-vcf/internal/output"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func (a *app) newValidateCmd() *cobra.Command {
	var (
		strict        bool
		skipUnchanged bool
	)

	cmd := &cobra.Command{
		Use:   "validate [flags] <input-file>...",
		Short: "Validate VCF files",
		Long: `Validate one or more VCF files (plain, gzip or BGZF; use '-' for stdin).
Every error is reported with its line and column. Exit status is 3 when
any file is invalid.`,
		Example: `  vibe-vcf validate input.vcf
  vibe-vcf validate --warnings -j 4 *.vcf.gz
  vibe-vcf validate --strict input.vcf
  vibe-vcf validate --report-db runs.duckdb --skip-unchanged input.vcf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, strict, skipUnchanged)
		},
	}

	flags := cmd.Flags()
	flags.Int("max-errors", 0, "Stop a file after this many errors (0: no limit)")
	flags.IntP("workers", "j", 0, "Files validated concurrently (0: number of CPUs)")
	flags.BoolP("warnings", "w", false, "List warnings as well as errors")
	flags.BoolVar(&strict, "strict", false, "Stop each file at its first error")
	flags.BoolVar(&skipUnchanged, "skip-unchanged", false, "Skip files recorded as valid in the report db with the same size and mtime")
	a.bindFlag(flags, "validate.max_errors", "max-errors")
	a.bindFlag(flags, "validate.workers", "workers")
	a.bindFlag(flags, "validate.show_warnings", "warnings")

	return cmd
}

// validation is the outcome of validating one file.
type validation struct {
	report      output.FileReport
	diagnostics []*vcf.Diagnostic
	file        duckdb.FileFingerprint
	skipped     bool
}

func (a *app) runValidate(ctx context.Context, stdout, stderr io.Writer, paths []string, strict, skipUnchanged bool) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if skipUnchanged && store == nil {
		return fmt.Errorf("--skip-unchanged requires --report-db")
	}

	workers := a.cfg.Validation.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]validation, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			fp, err := duckdb.StatFile(path)
			if err != nil {
				results[i] = validation{report: output.FileReport{Path: path, Err: err}}
				return nil
			}
			if skipUnchanged && path != "-" {
				run, err := store.LatestValidRun(gctx, fp)
				if err != nil {
					return err
				}
				if run != nil {
					a.logger.Info("skipping unchanged file",
						zap.String("path", path),
						zap.String("run", run.ID))
					results[i] = validation{
						report:  output.FileReport{Path: path, Valid: true, Records: int(run.Records), Warnings: int(run.Warnings)},
						file:    fp,
						skipped: true,
					}
					return nil
				}
			}
			results[i] = a.validateFile(gctx, path, strict)
			results[i].file = fp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w := output.NewValidationWriter(stdout, a.cfg.Validation.ShowWarnings)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, res := range results {
		if err := w.WriteDiagnostics(res.report, res.diagnostics); err != nil {
			return fmt.Errorf("writing diagnostics: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	w.WriteSummary(stderr)

	if store != nil {
		for _, res := range results {
			if res.skipped || res.file.Path == "" {
				continue
			}
			if err := recordValidation(ctx, store, res); err != nil {
				return err
			}
		}
	}

	files, valid := w.Summary()
	if valid < files {
		return errInvalid
	}
	return nil
}

func (a *app) validateFile(ctx context.Context, path string, strict bool) validation {
	report := vcf.NewReportPolicy(nil)
	var ep vcf.ErrorPolicy = &vcf.LimitPolicy{Next: report, Max: a.cfg.Validation.MaxErrors}
	if strict {
		ep = vcf.ErrorPolicyFunc(func(s *vcf.ParsingState, d *vcf.Diagnostic) error {
			if err := report.Handle(s, d); err != nil {
				return err
			}
			return vcf.AbortPolicy{}.Handle(s, d)
		})
	}

	var records int
	counter := vcf.NewStreamPolicy(func(*vcf.Record) error {
		records++
		return nil
	})

	res := validation{report: output.FileReport{Path: path}}
	r, err := vcf.Open(path)
	if err != nil {
		res.report.Err = err
		return res
	}
	defer r.Close()

	p := vcf.NewParser(path, counter, ep)
	p.SetLogger(a.logger.With(zap.String("path", path)))
	if _, err := p.ReadFromContext(ctx, r); err != nil {
		res.report.Err = err
	}

	res.diagnostics = report.Diagnostics()
	res.report.Errors, res.report.Warnings = report.Counts()
	res.report.Records = records
	res.report.Valid = res.report.Err == nil && p.IsFinishedAndValid()

	a.logger.Debug("validated file",
		zap.String("path", path),
		zap.Bool("valid", res.report.Valid),
		zap.Int("records", records),
		zap.Int("errors", res.report.Errors),
		zap.Int("warnings", res.report.Warnings))
	return res
}

func recordValidation(ctx context.Context, store *duckdb.Store, res validation) error {
	runID, err := store.NewRun(ctx, "validate", res.file)
	if err != nil {
		return err
	}
	if err := store.WriteDiagnostics(ctx, runID, res.diagnostics); err != nil {
		return err
	}
	return store.FinishRun(ctx, runID, duckdb.RunSummary{
		Valid:    res.report.Valid,
		Records:  int64(res.report.Records),
		Errors:   int64(res.report.Errors),
		Warnings: int64(res.report.Warnings),
	})
}
