// Package output provides writers for validation reports and normalized
// variants.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// TabWriter writes normalized cores in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Line",
			"Chrom",
			"Pos",
			"Ref",
			"Alt",
			"Class",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single core. Empty alleles are written as "-".
func (tw *TabWriter) Write(c vcf.RecordCore) error {
	values := []string{
		strconv.Itoa(c.Line),
		c.Chromosome,
		strconv.FormatInt(c.Position, 10),
		dash(c.Reference),
		dash(c.Alternate),
		Class(c),
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// Class names the kind of change a core describes: SNV, MNV, insertion,
// deletion, complex, or the allele kind for non-base alternates.
func Class(c vcf.RecordCore) string {
	switch vcf.AlleleKindOf(c.Alternate) {
	case vcf.AlleleSymbolic:
		return "symbolic"
	case vcf.AlleleBreakend:
		return "breakend"
	case vcf.AlleleOverlapping:
		return "overlapping"
	case vcf.AlleleMissing:
		if c.Alternate == vcf.MissingValue {
			return "no_alt"
		}
	}
	switch {
	case c.IsSNV():
		return "SNV"
	case c.Reference == "" || (c.IsInsertion() && strings.HasPrefix(c.Alternate, c.Reference)):
		return "insertion"
	case c.Alternate == "" || (c.IsDeletion() && strings.HasPrefix(c.Reference, c.Alternate)):
		return "deletion"
	case len(c.Reference) == len(c.Alternate):
		return "MNV"
	}
	return "complex"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
