package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// ErrEmptyAllele is returned when a core with an empty allele is written
// as VCF. Such cores need a reference base, see vcf.Pad.
var ErrEmptyAllele = errors.New("allele is empty and cannot be written as VCF")

// VCFWriter writes normalized cores as a sites-only VCF: the meta block of
// the input is preserved, sample columns are dropped and every alternate
// allele gets its own line.
type VCFWriter struct {
	w         *bufio.Writer
	alignment string
}

// NewVCFWriter creates a new VCF output writer. alignment is recorded in
// the meta block.
func NewVCFWriter(w io.Writer, alignment string) *VCFWriter {
	return &VCFWriter{
		w:         bufio.NewWriter(w),
		alignment: alignment,
	}
}

// WriteHeader writes the fileformat line, the meta entries of src and the
// mandatory header columns.
func (vw *VCFWriter) WriteHeader(src *vcf.Source) error {
	fileformat := src.Fileformat
	if fileformat == "" {
		fileformat = "VCFv4.3"
	}
	lines := []string{"##fileformat=" + fileformat}
	for _, e := range src.AllMetaEntries() {
		lines = append(lines, e.String())
	}
	lines = append(lines,
		"##vibe-vcf_normalize="+vw.alignment,
		strings.Join([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}, "\t"),
	)
	for _, line := range lines {
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write writes one line for core, taking ID, QUAL, FILTER and INFO from the
// record it was derived from. r may be nil.
func (vw *VCFWriter) Write(c vcf.RecordCore, r *vcf.Record) error {
	if c.Reference == "" || c.Alternate == "" {
		return fmt.Errorf("%w: %s", ErrEmptyAllele, c)
	}

	id, qual, filter, info := vcf.MissingValue, vcf.MissingValue, vcf.MissingValue, vcf.MissingValue
	if r != nil {
		if len(r.IDs) > 0 {
			id = strings.Join(r.IDs, ";")
		}
		if r.Quality != nil {
			qual = strconv.FormatFloat(*r.Quality, 'g', -1, 64)
		}
		if len(r.Filters) > 0 {
			filter = strings.Join(r.Filters, ";")
		}
		info = vcf.FormatInfo(r.Info)
	}

	values := []string{
		c.Chromosome,
		strconv.FormatInt(c.Position, 10),
		id,
		c.Reference,
		c.Alternate,
		qual,
		filter,
		info,
	}
	_, err := vw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}
