package vcf

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrTooManyErrors is returned by LimitPolicy once its error budget is spent.
var ErrTooManyErrors = errors.New("too many errors")

// sourceBuilder fills the Source of the parsing state.
type sourceBuilder struct{}

func (sourceBuilder) HandleFileformat(s *ParsingState, fileformat string) {
	s.Source.Fileformat = fileformat
	s.Source.Version = ParseVersion(fileformat)
}

func (sourceBuilder) HandleMetaEntry(s *ParsingState, e *MetaEntry) {
	s.Source.AddMetaEntry(e)
}

func (sourceBuilder) HandleHeader(s *ParsingState, samples []string) {
	s.Source.Samples = samples
}

// StorePolicy keeps every record in ParsingState.Records.
type StorePolicy struct {
	sourceBuilder
}

// HandleRecord appends r to the state's record list.
func (StorePolicy) HandleRecord(s *ParsingState, r *Record) error {
	s.Records = append(s.Records, r)
	return nil
}

// StreamPolicy hands every record to a callback without retaining it.
type StreamPolicy struct {
	sourceBuilder
	Fn func(*Record) error
}

// NewStreamPolicy creates a StreamPolicy calling fn for each record.
func NewStreamPolicy(fn func(*Record) error) *StreamPolicy {
	return &StreamPolicy{Fn: fn}
}

// HandleRecord forwards r to the callback.
func (p *StreamPolicy) HandleRecord(_ *ParsingState, r *Record) error {
	if p.Fn == nil {
		return nil
	}
	return p.Fn(r)
}

// ReportPolicy collects every diagnostic and logs it. It never aborts.
type ReportPolicy struct {
	mu          sync.Mutex
	diagnostics []*Diagnostic
	errors      int
	warnings    int
	logger      *zap.Logger
}

// NewReportPolicy creates a collecting policy that logs to l. A nil logger
// disables logging.
func NewReportPolicy(l *zap.Logger) *ReportPolicy {
	if l == nil {
		l = zap.NewNop()
	}
	return &ReportPolicy{logger: l}
}

// Handle records d.
func (p *ReportPolicy) Handle(s *ParsingState, d *Diagnostic) error {
	p.mu.Lock()
	p.diagnostics = append(p.diagnostics, d)
	if d.IsWarning() {
		p.warnings++
	} else {
		p.errors++
	}
	p.mu.Unlock()

	fields := []zap.Field{
		zap.String("source", s.Source.Name),
		zap.Stringer("section", d.Section),
		zap.Int("line", d.Line),
		zap.Int("column", d.Column),
	}
	if d.Field != "" {
		fields = append(fields, zap.String("field", d.Field))
	}
	if d.Detail != "" {
		fields = append(fields, zap.String("detail", d.Detail))
	}
	if d.IsWarning() {
		p.logger.Warn(d.Message, fields...)
	} else {
		p.logger.Error(d.Message, fields...)
	}
	return nil
}

// Diagnostics returns the collected diagnostics in the order they were raised.
func (p *ReportPolicy) Diagnostics() []*Diagnostic {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Diagnostic, len(p.diagnostics))
	copy(out, p.diagnostics)
	return out
}

// Counts returns the number of errors and warnings collected.
func (p *ReportPolicy) Counts() (errors, warnings int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors, p.warnings
}

// AbortPolicy stops the parse at the first error. Warnings are ignored.
type AbortPolicy struct{}

// Handle returns d itself when it is an error.
func (AbortPolicy) Handle(_ *ParsingState, d *Diagnostic) error {
	if d.IsWarning() {
		return nil
	}
	return d
}

// LimitPolicy forwards diagnostics to Next and aborts once Max errors have
// been seen. Max of zero means no limit.
type LimitPolicy struct {
	Next   ErrorPolicy
	Max    int
	errors int
}

// Handle forwards d and enforces the error budget.
func (p *LimitPolicy) Handle(s *ParsingState, d *Diagnostic) error {
	if p.Next != nil {
		if err := p.Next.Handle(s, d); err != nil {
			return err
		}
	}
	if d.IsWarning() || p.Max <= 0 {
		return nil
	}
	p.errors++
	if p.errors >= p.Max {
		return fmt.Errorf("%w: stopped after %d errors", ErrTooManyErrors, p.errors)
	}
	return nil
}
