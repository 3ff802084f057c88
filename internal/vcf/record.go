package vcf

import (
	"strconv"
	"strings"
)

// MissingValue is the VCF placeholder for an unknown or absent value.
const MissingValue = "."

// InfoField is one entry of the INFO column. Flags have an empty Value.
type InfoField struct {
	Key   string
	Value string
	Flag  bool
}

// Record is one data line of a VCF file.
type Record struct {
	Line       int
	Chromosome string
	Position   int64 // 1-based
	IDs        []string
	Reference  string
	Alternates []string
	Quality    *float64 // nil when the column is "."
	Filters    []string
	Info       []InfoField
	Format     []string
	Samples    []string // raw sample columns
	Source     *Source
}

// InfoValue returns the value of an INFO key and whether it is present.
func (r *Record) InfoValue(key string) (string, bool) {
	for _, f := range r.Info {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Genotype returns the GT sub-field of sample i (0-based), or an empty
// string when the record carries no genotypes.
func (r *Record) Genotype(i int) string {
	if len(r.Format) == 0 || r.Format[0] != "GT" || i >= len(r.Samples) {
		return ""
	}
	gt, _, _ := strings.Cut(r.Samples[i], ":")
	return gt
}

// AlleleKind classifies an alternate allele.
type AlleleKind int

const (
	AlleleBases AlleleKind = iota
	AlleleMissing
	AlleleSymbolic
	AlleleBreakend
	AlleleOverlapping // the "*" allele
)

// AlleleKindOf classifies an alternate allele string.
func AlleleKindOf(alt string) AlleleKind {
	switch {
	case alt == MissingValue || alt == "":
		return AlleleMissing
	case alt == "*":
		return AlleleOverlapping
	case strings.HasPrefix(alt, "<"):
		return AlleleSymbolic
	case strings.ContainsAny(alt, "[]") || strings.HasPrefix(alt, ".") || strings.HasSuffix(alt, "."):
		return AlleleBreakend
	}
	return AlleleBases
}

// String formats the record as a tab-delimited data line.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.Chromosome)
	b.WriteByte('\t')
	b.WriteString(strconv.FormatInt(r.Position, 10))
	b.WriteByte('\t')
	b.WriteString(joinOrMissing(r.IDs, ";"))
	b.WriteByte('\t')
	b.WriteString(r.Reference)
	b.WriteByte('\t')
	b.WriteString(joinOrMissing(r.Alternates, ","))
	b.WriteByte('\t')
	if r.Quality != nil {
		b.WriteString(strconv.FormatFloat(*r.Quality, 'g', -1, 64))
	} else {
		b.WriteString(MissingValue)
	}
	b.WriteByte('\t')
	b.WriteString(joinOrMissing(r.Filters, ";"))
	b.WriteByte('\t')
	b.WriteString(FormatInfo(r.Info))
	if len(r.Format) > 0 {
		b.WriteByte('\t')
		b.WriteString(strings.Join(r.Format, ":"))
		for _, s := range r.Samples {
			b.WriteByte('\t')
			b.WriteString(s)
		}
	}
	return b.String()
}

// FormatInfo formats INFO fields as they appear in the INFO column.
func FormatInfo(info []InfoField) string {
	if len(info) == 0 {
		return MissingValue
	}
	var b strings.Builder
	for i, f := range info {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(f.Key)
		if !f.Flag {
			b.WriteByte('=')
			b.WriteString(f.Value)
		}
	}
	return b.String()
}

func joinOrMissing(values []string, sep string) string {
	if len(values) == 0 {
		return MissingValue
	}
	return strings.Join(values, sep)
}

// RecordCore is the reduced projection of a record with a single alternate
// allele, as produced by normalization.
type RecordCore struct {
	Line       int
	Chromosome string
	Position   int64 // 1-based
	Reference  string
	Alternate  string
}

// IsSNV returns true if the core is a single nucleotide variant.
func (c RecordCore) IsSNV() bool {
	return len(c.Reference) == 1 && len(c.Alternate) == 1
}

// IsIndel returns true if the core is an insertion or deletion.
func (c RecordCore) IsIndel() bool {
	return len(c.Reference) != len(c.Alternate)
}

// IsInsertion returns true if the core is an insertion.
func (c RecordCore) IsInsertion() bool {
	return len(c.Alternate) > len(c.Reference)
}

// IsDeletion returns true if the core is a deletion.
func (c RecordCore) IsDeletion() bool {
	return len(c.Reference) > len(c.Alternate)
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (c RecordCore) NormalizeChrom() string {
	return NormalizeChrom(c.Chromosome)
}

// String formats the core as chrom:pos ref>alt, using "-" for empty alleles.
func (c RecordCore) String() string {
	return c.Chromosome + ":" + strconv.FormatInt(c.Position, 10) + " " +
		dashIfEmpty(c.Reference) + ">" + dashIfEmpty(c.Alternate)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}
