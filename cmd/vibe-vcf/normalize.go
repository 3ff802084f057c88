package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/duckdb"
	"github.com/inodb/vibe-vcf/internal/normalize"
	"github.com/inodb/vibe-vcf/internal/output"
	"github.com/inodb/vibe-vcf/internal/reference"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

// coreWriter is implemented by the normalized variant writers.
type coreWriter interface {
	Write(c vcf.RecordCore, r *vcf.Record) error
	Flush() error
}

type tabCoreWriter struct{ *output.TabWriter }

func (w tabCoreWriter) Write(c vcf.RecordCore, _ *vcf.Record) error { return w.TabWriter.Write(c) }

func (a *app) newNormalizeCmd() *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "normalize [flags] <input-file>",
		Short: "Split and normalize the variants of a VCF file",
		Long: `Split every record into one variant per alternate allele, trim the bases
shared by reference and alternate, and align insertions and deletions to
the left or right. With a reference genome, empty alleles are anchored on
the neighbouring base. Invalid lines are reported and skipped.`,
		Example: `  vibe-vcf normalize input.vcf
  vibe-vcf normalize --alignment right input.vcf.gz
  vibe-vcf normalize -f vcf -r GRCh38.fa -o out.vcf input.vcf
  cat input.vcf | vibe-vcf normalize -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runNormalize(cmd.Context(), cmd.OutOrStdout(), args[0], outputFormat, outputFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputFormat, "output-format", "f", "tab", "Output format: tab, vcf")
	flags.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	flags.String("alignment", "", "Indel alignment: left, right (default left)")
	flags.StringP("reference", "r", "", "Reference FASTA used to anchor empty alleles")
	flags.IntP("workers", "j", 0, "Normalization workers (0: number of CPUs)")
	a.bindFlag(flags, "normalize.alignment", "alignment")
	a.bindFlag(flags, "normalize.reference", "reference")
	a.bindFlag(flags, "normalize.workers", "workers")

	return cmd
}

// parseOutcome is what the parsing goroutine hands back once the input is
// exhausted.
type parseOutcome struct {
	parser *vcf.Parser
	err    error
}

func (a *app) runNormalize(ctx context.Context, stdout io.Writer, inputPath, outputFormat, outputFile string) error {
	cfg := a.cfg.Normalize
	mode, err := normalize.ParseMode(cfg.Alignment)
	if err != nil {
		return err
	}
	if outputFormat != "tab" && outputFormat != "vcf" {
		return fmt.Errorf("unknown output format %q (valid: tab, vcf)", outputFormat)
	}
	if outputFormat == "vcf" && cfg.Reference == "" {
		return fmt.Errorf("vcf output requires --reference to anchor empty alleles")
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}

	n := normalize.NewNormalizer(mode)
	n.SetLogger(a.logger)
	if cfg.Reference != "" {
		genome, err := reference.Open(cfg.Reference, a.logger)
		if err != nil {
			return fmt.Errorf("opening reference: %w", err)
		}
		defer genome.Close()
		n.SetReference(genome)
	}

	in, err := vcf.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out := stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var (
		writer      coreWriter
		writeHeader func(*vcf.Source) error
	)
	switch outputFormat {
	case "vcf":
		vw := output.NewVCFWriter(out, mode.String())
		writer = vw
		writeHeader = vw.WriteHeader
	default:
		tw := output.NewTabWriter(out)
		writer = tabCoreWriter{tw}
		writeHeader = func(*vcf.Source) error { return tw.WriteHeader() }
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := vcf.NewReportPolicy(a.logger)
	items := make(chan normalize.WorkItem, 64)
	done := make(chan parseOutcome, 1)
	go func() {
		defer close(items)
		seq := 0
		policy := vcf.NewStreamPolicy(func(r *vcf.Record) error {
			select {
			case items <- normalize.WorkItem{Seq: seq, Record: r}:
				seq++
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		p := vcf.NewParser(inputPath, policy, report)
		p.SetLogger(a.logger.With(zap.String("path", inputPath)))
		_, err := p.ReadFromContext(ctx, in)
		done <- parseOutcome{parser: p, err: err}
	}()

	var (
		headerDone bool
		records    int64
		skipped    int
		cores      []vcf.RecordCore
	)
	handle := func(res normalize.WorkResult) error {
		records++
		if !headerDone {
			headerDone = true
			if err := writeHeader(res.Record.Source); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}
		}
		if res.Err != nil {
			skipped++
			return nil
		}
		for _, c := range res.Cores {
			if err := writer.Write(c, res.Record); err != nil {
				return fmt.Errorf("writing variant: %w", err)
			}
		}
		if store != nil {
			cores = append(cores, res.Cores...)
		}
		return nil
	}

	results := n.ParallelNormalize(ctx, items, cfg.Workers)
	err = normalize.OrderedCollect(results, func(res normalize.WorkResult) error {
		if err := handle(res); err != nil {
			cancel()
			return err
		}
		return nil
	})
	outcome := <-done
	if err != nil {
		return err
	}
	if outcome.err != nil {
		return outcome.err
	}

	if !headerDone {
		if err := writeHeader(outcome.parser.Source()); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}

	errs, warnings := report.Counts()
	valid := outcome.parser.IsFinishedAndValid()
	if skipped > 0 {
		a.logger.Warn("skipped variants that could not be anchored", zap.Int("records", skipped))
	}
	a.logger.Info("normalized variants",
		zap.String("path", inputPath),
		zap.String("alignment", mode.String()),
		zap.Int64("records", records),
		zap.Int("errors", errs))

	if store != nil {
		fp, err := duckdb.StatFile(inputPath)
		if err != nil {
			return err
		}
		runID, err := store.NewRun(ctx, "normalize", fp)
		if err != nil {
			return err
		}
		if err := store.WriteNormalized(ctx, runID, mode.String(), cores); err != nil {
			return err
		}
		if err := store.WriteDiagnostics(ctx, runID, report.Diagnostics()); err != nil {
			return err
		}
		if err := store.FinishRun(ctx, runID, duckdb.RunSummary{
			Valid:    valid,
			Records:  records,
			Errors:   int64(errs),
			Warnings: int64(warnings),
		}); err != nil {
			return err
		}
	}

	if !valid {
		return errInvalid
	}
	return nil
}
