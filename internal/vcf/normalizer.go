package vcf

import (
	"errors"
	"fmt"
)

// ErrNoAnchorBase is returned by Pad when the reference cannot supply a
// base next to an empty allele.
var ErrNoAnchorBase = errors.New("no reference base available to anchor allele")

// Normalize splits r into one RecordCore per alternate allele and trims the
// context shared by reference and alternate, suffix first. Ambiguous
// insertions and deletions end up at their leftmost position.
func Normalize(r *Record) []RecordCore {
	return normalizeRecord(r, trimSuffix, trimPrefix)
}

// NormalizeRightAlignment is like Normalize but trims the shared prefix
// first, placing ambiguous insertions and deletions at their rightmost
// position.
func NormalizeRightAlignment(r *Record) []RecordCore {
	return normalizeRecord(r, trimPrefix, trimSuffix)
}

type trimFunc func(c *RecordCore)

func normalizeRecord(r *Record, first, second trimFunc) []RecordCore {
	if len(r.Alternates) == 0 {
		return []RecordCore{newCore(r, MissingValue)}
	}
	cores := make([]RecordCore, 0, len(r.Alternates))
	for _, alt := range r.Alternates {
		c := newCore(r, alt)
		if AlleleKindOf(alt) == AlleleBases && r.Reference != MissingValue && alt != r.Reference {
			first(&c)
			second(&c)
		}
		cores = append(cores, c)
	}
	return cores
}

func newCore(r *Record, alt string) RecordCore {
	return RecordCore{
		Line:       r.Line,
		Chromosome: r.Chromosome,
		Position:   r.Position,
		Reference:  r.Reference,
		Alternate:  alt,
	}
}

func trimSuffix(c *RecordCore) {
	ref, alt := c.Reference, c.Alternate
	for len(ref) > 0 && len(alt) > 0 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref, alt = ref[:len(ref)-1], alt[:len(alt)-1]
	}
	c.Reference, c.Alternate = ref, alt
}

func trimPrefix(c *RecordCore) {
	ref, alt := c.Reference, c.Alternate
	n := 0
	for n < len(ref) && n < len(alt) && ref[n] == alt[n] {
		n++
	}
	c.Reference, c.Alternate = ref[n:], alt[n:]
	c.Position += int64(n)
}

// ToRecord builds a single-allele record from a core so that it can be
// normalized again or written out.
func ToRecord(c RecordCore, src *Source) *Record {
	r := &Record{
		Line:       c.Line,
		Chromosome: c.Chromosome,
		Position:   c.Position,
		Reference:  c.Reference,
		Source:     src,
	}
	if c.Alternate != MissingValue {
		r.Alternates = []string{c.Alternate}
	}
	return r
}

// Pad re-anchors a core with an empty allele on the reference base before
// it, as VCF requires. At the first base of a contig the following base is
// appended instead. Cores with both alleles non-empty are returned as is.
func Pad(c RecordCore, lookup SequenceLookup) (RecordCore, error) {
	if c.Reference != "" && c.Alternate != "" {
		return c, nil
	}
	if lookup == nil || !lookup.SequenceExists(c.Chromosome) {
		return c, fmt.Errorf("%w: %s", ErrNoAnchorBase, c)
	}

	if c.Position > 1 {
		base, err := lookup.Sequence(c.Chromosome, c.Position-2, 1)
		if err != nil {
			return c, fmt.Errorf("anchor %s: %w", c, err)
		}
		if len(base) != 1 {
			return c, fmt.Errorf("%w: %s", ErrNoAnchorBase, c)
		}
		c.Position--
		c.Reference = base + c.Reference
		c.Alternate = base + c.Alternate
		return c, nil
	}

	next := c.Position - 1 + int64(len(c.Reference))
	if next >= lookup.SequenceLength(c.Chromosome) {
		return c, fmt.Errorf("%w: %s", ErrNoAnchorBase, c)
	}
	base, err := lookup.Sequence(c.Chromosome, next, 1)
	if err != nil {
		return c, fmt.Errorf("anchor %s: %w", c, err)
	}
	if len(base) != 1 {
		return c, fmt.Errorf("%w: %s", ErrNoAnchorBase, c)
	}
	c.Reference += base
	c.Alternate += base
	return c, nil
}
