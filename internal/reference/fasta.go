// Package reference provides access to reference genome sequences.
package reference

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/fai"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// ErrUnknownContig is returned when a contig is not present in the reference.
var ErrUnknownContig = errors.New("contig not found in reference")

// ErrOutOfRange is returned when a requested range lies outside a contig.
var ErrOutOfRange = errors.New("range outside contig")

// Genome is a reference genome that can be closed.
type Genome interface {
	vcf.SequenceLookup
	io.Closer
}

// Open opens the FASTA file at path. Plain files are read through a .fai
// index, which is built in memory when none exists next to the file.
// Gzip-compressed files cannot be indexed and are loaded whole.
func Open(path string, logger *zap.Logger) (Genome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.HasSuffix(path, ".gz") {
		m, err := LoadFASTA(path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded reference into memory",
			zap.String("path", path),
			zap.Int("contigs", len(m)))
		return m, nil
	}
	return OpenIndexed(path, logger)
}

// FASTA is an indexed FASTA file.
type FASTA struct {
	path string
	file *os.File
	idx  fai.Index
	seqs *fai.File
}

// OpenIndexed opens an uncompressed FASTA file for random access.
func OpenIndexed(path string, logger *zap.Logger) (*FASTA, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}

	idx, err := readIndex(path + ".fai")
	switch {
	case err == nil:
		logger.Debug("read FASTA index", zap.String("path", path+".fai"), zap.Int("contigs", len(idx)))
	case errors.Is(err, os.ErrNotExist):
		idx, err = fai.NewIndex(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("index FASTA file: %w", err)
		}
		logger.Info("built FASTA index in memory", zap.String("path", path), zap.Int("contigs", len(idx)))
	default:
		f.Close()
		return nil, err
	}

	return &FASTA{
		path: path,
		file: f,
		idx:  idx,
		seqs: fai.NewFile(f, idx),
	}, nil
}

func readIndex(path string) (fai.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	idx, err := fai.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read FASTA index: %w", err)
	}
	return idx, nil
}

// Close closes the underlying file.
func (f *FASTA) Close() error {
	return f.file.Close()
}

// Contigs returns the number of sequences in the index.
func (f *FASTA) Contigs() int {
	return len(f.idx)
}

// resolve finds the index name of contig, accepting names that differ only
// by a "chr" prefix.
func (f *FASTA) resolve(contig string) (fai.Record, bool) {
	if rec, ok := f.idx[contig]; ok {
		return rec, true
	}
	bare := vcf.NormalizeChrom(contig)
	if rec, ok := f.idx[bare]; ok {
		return rec, true
	}
	rec, ok := f.idx["chr"+bare]
	return rec, ok
}

// SequenceExists reports whether the reference contains contig.
func (f *FASTA) SequenceExists(contig string) bool {
	_, ok := f.resolve(contig)
	return ok
}

// SequenceLength returns the length of contig, or 0 if it is unknown.
func (f *FASTA) SequenceLength(contig string) int64 {
	rec, ok := f.resolve(contig)
	if !ok {
		return 0
	}
	return int64(rec.Length)
}

// Sequence returns length bases of contig starting at the 0-based offset
// start, in upper case.
func (f *FASTA) Sequence(contig string, start, length int64) (string, error) {
	rec, ok := f.resolve(contig)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownContig, contig)
	}
	if start < 0 || length < 0 || start+length > int64(rec.Length) {
		return "", fmt.Errorf("%w: %s:%d-%d (length %d)", ErrOutOfRange, contig, start+1, start+length, rec.Length)
	}
	seq, err := f.seqs.SeqRange(rec.Name, int(start), int(start+length))
	if err != nil {
		return "", fmt.Errorf("seek %s:%d: %w", contig, start+1, err)
	}
	b, err := io.ReadAll(seq)
	if err != nil {
		return "", fmt.Errorf("read %s:%d: %w", contig, start+1, err)
	}
	return strings.ToUpper(string(b)), nil
}

// MapLookup is an in-memory reference keyed by contig name.
type MapLookup map[string]string

// LoadFASTA reads a whole FASTA file, gzip-compressed or not, into memory.
func LoadFASTA(path string) (MapLookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return ParseFASTA(reader)
}

// ParseFASTA reads FASTA records from r. The sequence name is the first
// word of each header line.
func ParseFASTA(r io.Reader) (MapLookup, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	m := make(MapLookup)
	var name string
	var seq strings.Builder
	flush := func() {
		if name != "" {
			m[name] = strings.ToUpper(seq.String())
		}
		seq.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			name = strings.TrimPrefix(line, ">")
			if i := strings.IndexAny(name, " \t"); i >= 0 {
				name = name[:i]
			}
			continue
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	flush()
	return m, nil
}

// Close is a no-op.
func (m MapLookup) Close() error { return nil }

func (m MapLookup) resolve(contig string) (string, bool) {
	if s, ok := m[contig]; ok {
		return s, true
	}
	bare := vcf.NormalizeChrom(contig)
	if s, ok := m[bare]; ok {
		return s, true
	}
	s, ok := m["chr"+bare]
	return s, ok
}

// SequenceExists reports whether contig is present.
func (m MapLookup) SequenceExists(contig string) bool {
	_, ok := m.resolve(contig)
	return ok
}

// SequenceLength returns the length of contig, or 0 if it is unknown.
func (m MapLookup) SequenceLength(contig string) int64 {
	s, _ := m.resolve(contig)
	return int64(len(s))
}

// Sequence returns length bases of contig starting at the 0-based offset start.
func (m MapLookup) Sequence(contig string, start, length int64) (string, error) {
	s, ok := m.resolve(contig)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownContig, contig)
	}
	if start < 0 || length < 0 || start+length > int64(len(s)) {
		return "", fmt.Errorf("%w: %s:%d-%d (length %d)", ErrOutOfRange, contig, start+1, start+length, len(s))
	}
	return s[start : start+length], nil
}
