package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/output"
	"github.com/inodb/vibe-vcf/internal/reference"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func (a *app) newCheckRefCmd() *cobra.Command {
	var refPath string

	cmd := &cobra.Command{
		Use:   "check-ref [flags] <input-file>",
		Short: "Compare reference alleles with a reference genome",
		Long: `Check that the REF column of every record matches the reference genome.
Mismatches, unknown chromosomes and positions past the end of a chromosome
are listed; exit status is 3 when any reference allele does not match.`,
		Example: `  vibe-vcf check-ref -r GRCh38.fa input.vcf
  vibe-vcf check-ref -r GRCh38.fa.gz input.vcf.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if refPath == "" {
				refPath = a.cfg.Normalize.Reference
			}
			if refPath == "" {
				return fmt.Errorf("--reference is required")
			}
			return a.runCheckRef(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], refPath)
		},
	}

	cmd.Flags().StringVarP(&refPath, "reference", "r", "", "Reference FASTA (default: normalize.reference)")

	return cmd
}

func (a *app) runCheckRef(ctx context.Context, stdout, stderr io.Writer, inputPath, refPath string) error {
	genome, err := reference.Open(refPath, a.logger)
	if err != nil {
		return fmt.Errorf("opening reference: %w", err)
	}
	defer genome.Close()

	checker := reference.NewChecker(genome)
	var (
		records  int
		findings []*vcf.Diagnostic
	)
	policy := vcf.NewStreamPolicy(func(r *vcf.Record) error {
		records++
		if d := checker.Check(r).Diagnostic(); d != nil {
			findings = append(findings, d)
		}
		return nil
	})

	report := vcf.NewReportPolicy(nil)
	p, err := vcf.ParseFile(ctx, inputPath, policy, report)
	if err != nil {
		return err
	}

	errs, _ := report.Counts()
	tally := checker.Tally()
	if errs > 0 {
		a.logger.Warn("input has syntax errors; invalid lines were not checked",
			zap.String("path", inputPath),
			zap.Int("errors", errs))
	}

	w := output.NewValidationWriter(stdout, true)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	fr := output.FileReport{
		Path:     inputPath,
		Valid:    p.IsFinishedAndValid() && tally[reference.RefMismatch] == 0,
		Records:  records,
		Errors:   errs,
		Warnings: len(findings),
	}
	if err := w.WriteDiagnostics(fr, findings); err != nil {
		return fmt.Errorf("writing diagnostics: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}

	fmt.Fprintf(stderr, "Reference check: %s\n", tally)
	if tally[reference.RefMismatch] > 0 {
		return errInvalid
	}
	return nil
}
