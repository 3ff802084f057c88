// Package normalize splits VCF records into per-allele cores and aligns
// their insertions and deletions.
package normalize

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// Mode selects where ambiguous insertions and deletions are placed.
type Mode int

const (
	Left Mode = iota
	Right
)

func (m Mode) String() string {
	if m == Right {
		return "right"
	}
	return "left"
}

// ParseMode parses "left" or "right", ignoring case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "left", "":
		return Left, nil
	case "right":
		return Right, nil
	}
	return Left, fmt.Errorf("unknown alignment %q (valid: left, right)", s)
}

// Normalizer turns records into normalized cores.
type Normalizer struct {
	mode   Mode
	lookup vcf.SequenceLookup
	logger *zap.Logger
}

// NewNormalizer creates a normalizer for the given alignment.
func NewNormalizer(mode Mode) *Normalizer {
	return &Normalizer{
		mode:   mode,
		logger: zap.NewNop(),
	}
}

// SetReference makes the normalizer re-anchor cores with an empty allele on
// the neighbouring reference base.
func (n *Normalizer) SetReference(lookup vcf.SequenceLookup) {
	n.lookup = lookup
}

// SetLogger sets the logger for warning messages.
func (n *Normalizer) SetLogger(l *zap.Logger) {
	n.logger = l
}

// Mode returns the configured alignment.
func (n *Normalizer) Mode() Mode {
	return n.mode
}

// Normalize returns one core per alternate allele of r.
func (n *Normalizer) Normalize(r *vcf.Record) ([]vcf.RecordCore, error) {
	var cores []vcf.RecordCore
	if n.mode == Right {
		cores = vcf.NormalizeRightAlignment(r)
	} else {
		cores = vcf.Normalize(r)
	}
	if n.lookup == nil {
		return cores, nil
	}

	for i, c := range cores {
		padded, err := vcf.Pad(c, n.lookup)
		if err != nil {
			n.logger.Warn("cannot anchor allele",
				zap.Int("line", c.Line),
				zap.String("variant", c.String()),
				zap.Error(err))
			return nil, fmt.Errorf("normalize line %d: %w", r.Line, err)
		}
		cores[i] = padded
	}
	return cores, nil
}
