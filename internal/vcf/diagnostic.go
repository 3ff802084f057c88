package vcf

import (
	"fmt"
	"strings"
)

// Section identifies which part of a VCF file a diagnostic refers to.
type Section int

const (
	SectionFileformat Section = iota
	SectionMeta
	SectionHeader
	SectionBody
)

func (s Section) String() string {
	switch s {
	case SectionFileformat:
		return "fileformat"
	case SectionMeta:
		return "meta"
	case SectionHeader:
		return "header"
	case SectionBody:
		return "body"
	}
	return fmt.Sprintf("Section(%d)", int(s))
}

// Severity distinguishes grammar violations from advisory findings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic describes a single problem found while reading a VCF stream.
type Diagnostic struct {
	Section  Section
	Severity Severity
	Message  string
	Detail   string // more specific explanation, may be empty
	Field    string // name of the offending field, may be empty
	Line     int
	Column   int
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vcf %s %s at line %d", d.Section, d.Severity, d.Line)
	if d.Column > 0 && d.Section == SectionBody {
		fmt.Fprintf(&b, ", column %d", d.Column)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Detail != "" {
		b.WriteString(" (")
		b.WriteString(d.Detail)
		b.WriteByte(')')
	}
	return b.String()
}

// IsWarning reports whether the diagnostic is advisory.
func (d *Diagnostic) IsWarning() bool {
	return d.Severity == SeverityWarning
}

// fault is the outcome of a failed grammar rule, before line and column
// information are attached.
type fault struct {
	message string
	detail  string
	field   string
}

func newFault(field, message string) *fault {
	return &fault{message: message, field: field}
}

func (f *fault) withDetail(format string, args ...any) *fault {
	f.detail = fmt.Sprintf(format, args...)
	return f
}
