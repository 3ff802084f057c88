package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// ValidationWriter writes the diagnostics of one or more validated files as
// an aligned table.
type ValidationWriter struct {
	w            *tabwriter.Writer
	showWarnings bool
	files        []FileReport
}

// FileReport is the outcome of validating one file.
type FileReport struct {
	Path     string
	Valid    bool
	Records  int
	Errors   int
	Warnings int
	Err      error // I/O failure or abort, if any
}

// NewValidationWriter creates a new validation output writer. Warnings are
// listed only when showWarnings is set; they are always counted.
func NewValidationWriter(w io.Writer, showWarnings bool) *ValidationWriter {
	return &ValidationWriter{
		w:            tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		showWarnings: showWarnings,
	}
}

// WriteHeader writes the column names.
func (v *ValidationWriter) WriteHeader() error {
	_, err := fmt.Fprintln(v.w, "File\tLine\tColumn\tSection\tSeverity\tMessage\tDetail")
	return err
}

// WriteDiagnostics writes the diagnostics of path in line order and records
// the file in the summary.
func (v *ValidationWriter) WriteDiagnostics(report FileReport, ds []*vcf.Diagnostic) error {
	v.files = append(v.files, report)

	sorted := make([]*vcf.Diagnostic, len(ds))
	copy(sorted, ds)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Column < sorted[j].Column
	})

	for _, d := range sorted {
		if d.IsWarning() && !v.showWarnings {
			continue
		}
		column := "-"
		if d.Column > 0 && d.Section == vcf.SectionBody {
			column = strconv.Itoa(d.Column)
		}
		detail := d.Detail
		if detail == "" {
			detail = "-"
		}
		if _, err := fmt.Fprintf(v.w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			report.Path, d.Line, column, d.Section, d.Severity, d.Message, detail); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the writer.
func (v *ValidationWriter) Flush() error {
	return v.w.Flush()
}

// Summary returns the number of files seen and how many were valid.
func (v *ValidationWriter) Summary() (files, valid int) {
	for _, f := range v.files {
		if f.Valid {
			valid++
		}
	}
	return len(v.files), valid
}

// WriteSummary writes a per-file summary of the validation results.
func (v *ValidationWriter) WriteSummary(w io.Writer) {
	files, valid := v.Summary()
	fmt.Fprintf(w, "\nValidation Summary:\n")
	for _, f := range v.files {
		status := "valid"
		switch {
		case f.Err != nil:
			status = "failed: " + f.Err.Error()
		case !f.Valid:
			status = "invalid"
		}
		fmt.Fprintf(w, "  %s: %s (%d records, %d errors, %d warnings)\n",
			f.Path, status, f.Records, f.Errors, f.Warnings)
	}
	fmt.Fprintf(w, "  Files valid:     %d/%d\n", valid, files)
}
