package vcf

// Accumulator collects the bytes of the token currently being read.
type Accumulator struct {
	buf   []byte
	start int
}

// Reset discards all accumulated bytes.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
	a.start = 0
}

// Begin marks the start of a new token at the current end of the buffer.
func (a *Accumulator) Begin() {
	a.start = len(a.buf)
}

// Append adds one byte to the current token.
func (a *Accumulator) Append(c byte) {
	a.buf = append(a.buf, c)
}

// End returns the bytes appended since the last Begin. The slice is only
// valid until the next call to Append or Reset.
func (a *Accumulator) End() []byte {
	return a.buf[a.start:]
}

// Len returns the length of the current token.
func (a *Accumulator) Len() int {
	return len(a.buf) - a.start
}

// ParsingState is the mutable context of a single parse. It is owned by
// one Parser and must not be shared between goroutines.
type ParsingState struct {
	Source  *Source
	Records []*Record
	Line    int
	Column  int
	Token   Accumulator

	undeclaredContigs map[string]bool
	undeclaredInfo    map[string]bool
	ploidy            int // 0 until the first genotype has been seen
	previous          *Record
}

// NewParsingState creates the state for parsing the named input.
func NewParsingState(name string) *ParsingState {
	s := &ParsingState{}
	s.reset(name)
	return s
}

func (s *ParsingState) reset(name string) {
	s.Source = NewSource(name)
	s.Records = nil
	s.Line = 1
	s.Column = 1
	s.Token.Reset()
	s.undeclaredContigs = make(map[string]bool)
	s.undeclaredInfo = make(map[string]bool)
	s.ploidy = 0
	s.previous = nil
}

// ExpectedPloidy returns the allele count established by the first genotype,
// or 0 if no genotype has been read yet.
func (s *ParsingState) ExpectedPloidy() int {
	return s.ploidy
}
