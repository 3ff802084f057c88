package reference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// Outcome is the result of comparing a record's reference allele with the
// reference genome.
type Outcome int

const (
	RefMatch Outcome = iota
	RefMismatch
	RefMissingContig
	RefOutOfRange
	RefSkipped
)

func (o Outcome) String() string {
	switch o {
	case RefMatch:
		return "match"
	case RefMismatch:
		return "mismatch"
	case RefMissingContig:
		return "missing_contig"
	case RefOutOfRange:
		return "out_of_range"
	case RefSkipped:
		return "skipped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result is the outcome of checking one record.
type Result struct {
	Record   *vcf.Record
	Outcome  Outcome
	Expected string // reference bases at the record position, if available
}

// Diagnostic converts a non-matching result into a body warning.
func (r Result) Diagnostic() *vcf.Diagnostic {
	d := &vcf.Diagnostic{
		Section:  vcf.SectionBody,
		Severity: vcf.SeverityWarning,
		Field:    "reference",
		Line:     r.Record.Line,
	}
	switch r.Outcome {
	case RefMismatch:
		d.Message = "Reference allele does not match the reference genome"
		d.Detail = fmt.Sprintf("%s:%d has %s, record has %s", r.Record.Chromosome, r.Record.Position, r.Expected, r.Record.Reference)
	case RefMissingContig:
		d.Field = "chromosome"
		d.Message = "Chromosome " + r.Record.Chromosome + " is not present in the reference genome"
	case RefOutOfRange:
		d.Field = "position"
		d.Message = "Reference allele extends past the end of the chromosome"
		d.Detail = fmt.Sprintf("%s:%d", r.Record.Chromosome, r.Record.Position)
	default:
		return nil
	}
	return d
}

// Tally counts check outcomes.
type Tally map[Outcome]int

// Checker compares reference alleles with a reference genome.
type Checker struct {
	lookup vcf.SequenceLookup
	tally  Tally
}

// NewChecker creates a checker backed by lookup.
func NewChecker(lookup vcf.SequenceLookup) *Checker {
	return &Checker{lookup: lookup, tally: make(Tally)}
}

// Check compares the reference allele of r with the genome. Comparison is
// case-insensitive and an N on either side matches any base.
func (c *Checker) Check(r *vcf.Record) Result {
	res := Result{Record: r}
	res.Outcome, res.Expected = c.check(r)
	c.tally[res.Outcome]++
	return res
}

func (c *Checker) check(r *vcf.Record) (Outcome, string) {
	if r.Reference == "" || r.Reference == vcf.MissingValue {
		return RefSkipped, ""
	}
	if !c.lookup.SequenceExists(r.Chromosome) {
		return RefMissingContig, ""
	}
	seq, err := c.lookup.Sequence(r.Chromosome, r.Position-1, int64(len(r.Reference)))
	if err != nil {
		if errors.Is(err, ErrOutOfRange) || r.Position+int64(len(r.Reference))-1 > c.lookup.SequenceLength(r.Chromosome) {
			return RefOutOfRange, ""
		}
		return RefSkipped, ""
	}
	if basesMatch(r.Reference, seq) {
		return RefMatch, seq
	}
	return RefMismatch, seq
}

func basesMatch(record, genome string) bool {
	if len(record) != len(genome) {
		return false
	}
	for i := 0; i < len(record); i++ {
		a, b := record[i]|0x20, genome[i]|0x20
		if a != b && a != 'n' && b != 'n' {
			return false
		}
	}
	return true
}

// Tally returns a copy of the outcome counts so far.
func (c *Checker) Tally() Tally {
	out := make(Tally, len(c.tally))
	for k, v := range c.tally {
		out[k] = v
	}
	return out
}

// String formats the tally as "match=N mismatch=N ...", skipping zero counts.
func (t Tally) String() string {
	var parts []string
	for o := RefMatch; o <= RefSkipped; o++ {
		if n := t[o]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", o, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
