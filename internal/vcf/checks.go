package vcf

import (
	"fmt"
	"strings"
)

func warning(section Section, field, message, detail string) *Diagnostic {
	return &Diagnostic{
		Section:  section,
		Severity: SeverityWarning,
		Message:  message,
		Detail:   detail,
		Field:    field,
	}
}

// CheckMetadata runs the file-level checks that apply once the meta block
// has ended.
func CheckMetadata(s *ParsingState) []*Diagnostic {
	if s.Source.HasMeta("reference") {
		return nil
	}
	d := warning(SectionMeta, "reference", "Metadata entry reference is recommended but missing", "")
	d.Line = s.Line
	return []*Diagnostic{d}
}

// CheckRecord runs the advisory checks on a structurally valid record and
// updates the cross-record state kept in s. It returns warnings only.
func CheckRecord(s *ParsingState, r *Record) []*Diagnostic {
	var out []*Diagnostic
	out = append(out, checkPloidy(s, r)...)
	out = append(out, checkSortOrder(s, r)...)
	out = append(out, checkContig(s, r)...)
	out = append(out, checkInfoDeclared(s, r)...)
	s.previous = r
	for _, d := range out {
		d.Line = r.Line
	}
	return out
}

func checkPloidy(s *ParsingState, r *Record) []*Diagnostic {
	var out []*Diagnostic
	for i := range r.Samples {
		gt := r.Genotype(i)
		if gt == "" || gt == MissingValue {
			continue
		}
		n := Ploidy(gt)
		if s.ploidy == 0 {
			s.ploidy = n
			continue
		}
		if n != s.ploidy {
			out = append(out, warning(SectionBody, "sample",
				fmt.Sprintf("Sample %d has %d alleles, expected ploidy is %d", i+1, n, s.ploidy), ""))
		}
	}
	return out
}

// Ploidy returns the number of alleles in a genotype string.
func Ploidy(gt string) int {
	gt = strings.TrimLeft(gt, "/|")
	return strings.Count(gt, "/") + strings.Count(gt, "|") + 1
}

func checkSortOrder(s *ParsingState, r *Record) []*Diagnostic {
	prev := s.previous
	if prev == nil || prev.Chromosome != r.Chromosome || prev.Position <= r.Position {
		return nil
	}
	return []*Diagnostic{warning(SectionBody, "position", "Records are not sorted by position",
		fmt.Sprintf("position %d follows position %d on %s", r.Position, prev.Position, r.Chromosome))}
}

func checkContig(s *ParsingState, r *Record) []*Diagnostic {
	if s.Source.HasContig(r.Chromosome) || s.undeclaredContigs[r.Chromosome] {
		return nil
	}
	s.undeclaredContigs[r.Chromosome] = true
	return []*Diagnostic{warning(SectionBody, "chromosome",
		fmt.Sprintf("Chromosome %s is not declared in a contig metadata entry", r.Chromosome), "")}
}

func checkInfoDeclared(s *ParsingState, r *Record) []*Diagnostic {
	var out []*Diagnostic
	for _, f := range r.Info {
		if s.undeclaredInfo[f.Key] || s.Source.InfoDefinition(f.Key) != nil {
			continue
		}
		s.undeclaredInfo[f.Key] = true
		out = append(out, warning(SectionBody, "info",
			fmt.Sprintf("Info key %s is not declared in an INFO metadata entry", f.Key), ""))
	}
	return out
}
