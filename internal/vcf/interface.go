// Package vcf provides streaming VCF validation and record normalization.
package vcf

// ParsePolicy receives the semantic units recognized by the Parser and turns
// them into the caller's data model.
type ParsePolicy interface {
	// HandleFileformat is called once with the value of the fileformat line.
	HandleFileformat(s *ParsingState, fileformat string)

	// HandleMetaEntry is called for every well-formed meta line.
	HandleMetaEntry(s *ParsingState, e *MetaEntry)

	// HandleHeader is called with the sample names of a well-formed header line.
	HandleHeader(s *ParsingState, samples []string)

	// HandleRecord is called for every well-formed data line. A non-nil
	// error stops the parse.
	HandleRecord(s *ParsingState, r *Record) error
}

// ErrorPolicy receives every diagnostic raised while parsing. Returning a
// non-nil error aborts the parse; otherwise parsing recovers and continues.
type ErrorPolicy interface {
	Handle(s *ParsingState, d *Diagnostic) error
}

// ErrorPolicyFunc adapts a function to the ErrorPolicy interface.
type ErrorPolicyFunc func(s *ParsingState, d *Diagnostic) error

// Handle calls f(s, d).
func (f ErrorPolicyFunc) Handle(s *ParsingState, d *Diagnostic) error {
	return f(s, d)
}

// SequenceLookup provides access to reference sequence bases.
type SequenceLookup interface {
	SequenceExists(contig string) bool
	SequenceLength(contig string) int64
	// Sequence returns length bases starting at the 0-based offset start.
	Sequence(contig string, start, length int64) (string, error)
}
