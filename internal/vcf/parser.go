package vcf

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrFinished is returned when input is fed to a parser after Finish.
var ErrFinished = errors.New("vcf parser already finished")

// DefaultProgressInterval is the number of lines between progress log entries.
const DefaultProgressInterval = 1_000_000

const fileformatPrefix = "##fileformat="

type machineState int

const (
	stFileformatKey machineState = iota
	stFileformatValue
	stMetaLineStart
	stMetaHash
	stMetaLine
	stHeaderLine
	stBodyLineStart
	stBodyField
	stSkipLine
)

func (st machineState) section() Section {
	switch st {
	case stFileformatKey, stFileformatValue:
		return SectionFileformat
	case stMetaLineStart, stMetaHash, stMetaLine:
		return SectionMeta
	case stHeaderLine:
		return SectionHeader
	}
	return SectionBody
}

// Parser is a streaming VCF validator. Input is pushed with Feed in chunks
// of any size; grammar violations go to the ErrorPolicy and completed units
// go to the ParsePolicy. A Parser must not be used from several goroutines.
type Parser struct {
	state            *ParsingState
	parse            ParsePolicy
	errs             ErrorPolicy
	logger           *zap.Logger
	progressInterval int

	st          machineState
	resume      machineState // target of stSkipLine
	section     Section
	matched     int      // bytes of fileformatPrefix matched so far
	fields      []string // completed columns of the current data line
	format      []string // FORMAT keys of the current data line
	samples     int      // sample count declared by the header, -1 if unknown
	metaDone    bool
	pendingCR   bool
	lineStarted bool
	seenInput   bool
	valid       bool
	finished    bool
	err         error
}

// NewParser creates a parser for the named input.
func NewParser(name string, pp ParsePolicy, ep ErrorPolicy) *Parser {
	p := &Parser{
		state:            NewParsingState(name),
		parse:            pp,
		errs:             ep,
		logger:           zap.NewNop(),
		progressInterval: DefaultProgressInterval,
	}
	p.Reset()
	return p
}

// SetLogger sets the logger used for progress messages.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// SetProgressInterval sets how many lines pass between progress messages.
// Zero disables progress logging.
func (p *Parser) SetProgressInterval(n int) {
	p.progressInterval = n
}

// Reset discards all parsing progress so the parser can read a new stream.
func (p *Parser) Reset() {
	p.state.reset(p.state.Source.Name)
	p.st = stFileformatKey
	p.resume = stFileformatKey
	p.section = SectionFileformat
	p.matched = 0
	p.fields = p.fields[:0]
	p.format = nil
	p.samples = -1
	p.metaDone = false
	p.pendingCR = false
	p.lineStarted = false
	p.seenInput = false
	p.valid = true
	p.finished = false
	p.err = nil
}

// State returns the parsing state.
func (p *Parser) State() *ParsingState {
	return p.state
}

// Source returns the source being built from the input.
func (p *Parser) Source() *Source {
	return p.state.Source
}

// Section returns the section the parser is currently reading.
func (p *Parser) Section() Section {
	return p.section
}

// IsValidSoFar reports whether no error has been found yet. Warnings do not
// affect the result.
func (p *Parser) IsValidSoFar() bool {
	return p.valid
}

// IsFinishedAndValid reports whether Finish has been called, the body was
// reached and no error was found.
func (p *Parser) IsFinishedAndValid() bool {
	return p.finished && p.err == nil && p.section == SectionBody && p.valid
}

// Feed pushes the next chunk of input through the state machine. It only
// returns an error when a policy aborted the parse or Finish was already
// called.
func (p *Parser) Feed(data []byte) error {
	if p.err != nil {
		return p.err
	}
	if p.finished {
		return ErrFinished
	}
	for _, c := range data {
		if err := p.feedByte(c); err != nil {
			p.err = err
			return err
		}
	}
	return nil
}

// Finish signals the end of input. A line without a trailing newline is
// processed as if it had one.
func (p *Parser) Finish() error {
	if p.err != nil {
		return p.err
	}
	if p.finished {
		return ErrFinished
	}
	err := p.finish()
	p.finished = true
	if err != nil {
		p.err = err
	}
	return err
}

func (p *Parser) finish() error {
	if p.pendingCR {
		p.pendingCR = false
		if err := p.step('\r'); err != nil {
			return err
		}
	}
	if !p.seenInput {
		return p.report(SectionFileformat, newFault("fileformat", "Fileformat declaration is missing or malformed").
			withDetail("input is empty"))
	}
	if p.lineStarted {
		if err := p.step('\n'); err != nil {
			return err
		}
	}
	if p.section == SectionBody {
		return nil
	}
	if err := p.endMeta(); err != nil {
		return err
	}
	err := p.report(SectionHeader, headerMissing("input ended before the #CHROM line"))
	p.enter(stBodyLineStart)
	return err
}

// feedByte folds CRLF line endings into a single newline.
func (p *Parser) feedByte(c byte) error {
	if p.pendingCR {
		p.pendingCR = false
		if c != '\n' {
			if err := p.step('\r'); err != nil {
				return err
			}
		}
	}
	if c == '\r' {
		p.pendingCR = true
		return nil
	}
	return p.step(c)
}

func (p *Parser) step(c byte) error {
	p.seenInput = true
	if c != '\n' {
		p.lineStarted = true
	}
	tok := &p.state.Token

	switch p.st {
	case stFileformatKey:
		if c == fileformatPrefix[p.matched] {
			p.matched++
			if p.matched == len(fileformatPrefix) {
				p.st = stFileformatValue
				tok.Reset()
			}
			return nil
		}
		return p.fail(SectionFileformat, newFault("fileformat", "Fileformat declaration is missing or malformed").
			withDetail("expected the first line to start with %s", fileformatPrefix), c, stMetaLineStart)

	case stFileformatValue:
		switch {
		case c == '\n' && tok.Len() > 0:
			p.parse.HandleFileformat(p.state, string(tok.End()))
			p.endLine()
			p.enter(stMetaLineStart)
		case isPrintable(c):
			tok.Append(c)
		case tok.Len() == 0:
			return p.fail(SectionFileformat, fileformatValueFault().withDetail("value has no valid characters"), c, stMetaLineStart)
		default:
			return p.fail(SectionFileformat, fileformatValueFault().
				withDetail("invalid character %q after %q", c, truncate(string(tok.End()))), c, stMetaLineStart)
		}

	case stMetaLineStart:
		switch c {
		case '#':
			p.st = stMetaHash
		case '\n':
			err := p.report(SectionMeta, newFault("", "Metadata line is empty"))
			p.endLine()
			return err
		default:
			if err := p.endMeta(); err != nil {
				return err
			}
			if err := p.report(SectionHeader, headerMissing("found a data line before the #CHROM line")); err != nil {
				return err
			}
			p.enter(stBodyLineStart)
			return p.step(c)
		}

	case stMetaHash:
		if c == '#' {
			p.st = stMetaLine
			tok.Reset()
			return nil
		}
		tok.Reset()
		tok.Append('#')
		p.enter(stHeaderLine)
		return p.step(c)

	case stMetaLine:
		if c != '\n' {
			tok.Append(c)
			return nil
		}
		return p.endMetaLine()

	case stHeaderLine:
		if c != '\n' {
			tok.Append(c)
			return nil
		}
		return p.endHeaderLine()

	case stBodyLineStart:
		if c == '\n' {
			err := p.report(SectionBody, newFault("", "Record is an empty line"))
			p.endLine()
			return err
		}
		p.fields = p.fields[:0]
		p.format = nil
		tok.Reset()
		p.st = stBodyField
		return p.step(c)

	case stBodyField:
		if c == '\t' || c == '\n' {
			return p.endField(c)
		}
		tok.Append(c)

	case stSkipLine:
		if c == '\n' {
			p.endLine()
			p.enter(p.resume)
		}
	}
	return nil
}

func fileformatValueFault() *fault {
	return newFault("fileformat", "Fileformat must be a sequence of alphanumeric and/or punctuation characters")
}

func (p *Parser) endMetaLine() error {
	var err error
	entry, f := parseMetaLine(string(p.state.Token.End()))
	if f != nil {
		err = p.report(SectionMeta, f)
	} else {
		p.parse.HandleMetaEntry(p.state, entry)
	}
	p.endLine()
	p.st = stMetaLineStart
	return err
}

// endHeaderLine validates the #CHROM line. Whether or not it is valid, the
// following lines are read as data lines.
func (p *Parser) endHeaderLine() error {
	if err := p.endMeta(); err != nil {
		return err
	}
	var err error
	samples, f := parseHeaderLine(string(p.state.Token.End()))
	if f != nil {
		err = p.report(SectionHeader, f)
	} else {
		p.samples = len(samples)
		p.parse.HandleHeader(p.state, samples)
	}
	p.endLine()
	p.enter(stBodyLineStart)
	return err
}

func (p *Parser) endMeta() error {
	if p.metaDone {
		return nil
	}
	p.metaDone = true
	return p.warn(CheckMetadata(p.state))
}

func (p *Parser) endField(c byte) error {
	i := len(p.fields)
	value := p.state.Token.End()

	if p.samples >= 0 && i >= colFirstSample+p.samples {
		f := newFault("", "Record has more columns than declared in the header").
			withDetail("expected at most %d columns", colFirstSample+p.samples)
		return p.fail(SectionBody, f, c, stBodyLineStart)
	}
	if f := checkBodyField(i, value, p.format); f != nil {
		return p.fail(SectionBody, f, c, stBodyLineStart)
	}

	p.fields = append(p.fields, string(value))
	if i == colFormat {
		p.format = strings.Split(p.fields[colFormat], ":")
	}
	if c == '\t' {
		p.state.Column++
		p.state.Token.Reset()
		return nil
	}
	return p.endRecord()
}

func (p *Parser) endRecord() error {
	n := len(p.fields)
	var f *fault
	switch {
	case n < colFormat:
		f = newFault("", "Record is missing mandatory columns").
			withDetail("found %d of %d columns", n, colFormat)
	case p.samples > 0 && n != colFirstSample+p.samples:
		f = newFault("", "Record does not have as many sample columns as the header").
			withDetail("expected %d, found %d", p.samples, max(n-colFirstSample, 0))
	}
	if f != nil {
		return p.fail(SectionBody, f, '\n', stBodyLineStart)
	}

	r := buildRecord(p.state.Line, p.fields, p.state.Source)
	err := p.warn(CheckRecord(p.state, r))
	if err == nil {
		err = p.parse.HandleRecord(p.state, r)
	}
	p.endLine()
	p.st = stBodyLineStart
	return err
}

// fail reports f and skips the rest of the line, resuming in state resume.
func (p *Parser) fail(section Section, f *fault, c byte, resume machineState) error {
	err := p.report(section, f)
	if c == '\n' {
		p.endLine()
		p.enter(resume)
	} else {
		p.resume = resume
		p.st = stSkipLine
		p.section = resume.section()
	}
	return err
}

func (p *Parser) report(section Section, f *fault) error {
	p.valid = false
	d := &Diagnostic{
		Section:  section,
		Severity: SeverityError,
		Message:  f.message,
		Detail:   f.detail,
		Field:    f.field,
		Line:     p.state.Line,
		Column:   p.state.Column,
	}
	if err := p.errs.Handle(p.state, d); err != nil {
		return fmt.Errorf("parse %s: %w", p.state.Source.Name, err)
	}
	return nil
}

func (p *Parser) warn(ds []*Diagnostic) error {
	for _, d := range ds {
		if d.Line == 0 {
			d.Line = p.state.Line
		}
		if err := p.errs.Handle(p.state, d); err != nil {
			return fmt.Errorf("parse %s: %w", p.state.Source.Name, err)
		}
	}
	return nil
}

func (p *Parser) enter(st machineState) {
	p.st = st
	p.section = st.section()
}

func (p *Parser) endLine() {
	p.state.Line++
	p.state.Column = 1
	p.state.Token.Reset()
	p.lineStarted = false
	if p.progressInterval > 0 && (p.state.Line-1)%p.progressInterval == 0 {
		p.logger.Debug("parsing progress",
			zap.String("source", p.state.Source.Name),
			zap.Int("lines", p.state.Line-1),
			zap.Stringer("section", p.section))
	}
}
