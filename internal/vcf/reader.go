package vcf

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bgzf"
)

const readChunkSize = 64 * 1024

// Open opens a VCF file for reading. Plain, gzip and BGZF compressed files
// are supported; "-" reads from stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &multiCloser{Reader: r, closers: []io.Closer{r, file}}, nil
}

// NewReader wraps r, transparently decompressing gzip and BGZF input.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if len(magic) < 2 || magic[0] != 0x1f || magic[1] != 0x8b {
		return io.NopCloser(br), nil
	}

	if isBGZF(br) {
		bg, err := bgzf.NewReader(br, 0)
		if err != nil {
			return nil, fmt.Errorf("create bgzf reader: %w", err)
		}
		return bg, nil
	}
	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	return gz, nil
}

// isBGZF reports whether the gzip member at the head of br carries the
// BGZF "BC" extra subfield.
func isBGZF(br *bufio.Reader) bool {
	h, err := br.Peek(16)
	if err != nil {
		return false
	}
	const flagExtra = 0x04
	return h[3]&flagExtra != 0 && h[12] == 'B' && h[13] == 'C'
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReadFrom feeds the whole of r to the parser and finishes it.
func (p *Parser) ReadFrom(r io.Reader) (int64, error) {
	return p.ReadFromContext(context.Background(), r)
}

// ReadFromContext is like ReadFrom but stops feeding input once ctx is
// cancelled. The parser is left unfinished in that case.
func (p *Parser) ReadFromContext(ctx context.Context, r io.Reader) (int64, error) {
	buf := make([]byte, readChunkSize)
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		m, err := r.Read(buf)
		n += int64(m)
		if m > 0 {
			if ferr := p.Feed(buf[:m]); ferr != nil {
				return n, ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return n, p.Finish()
		}
		if err != nil {
			return n, fmt.Errorf("read vcf input: %w", err)
		}
	}
}

// ParseFile reads and validates the file at path with the given policies.
// The returned parser reports validity; the error is non-nil only for I/O
// failures or when a policy aborted the parse.
func ParseFile(ctx context.Context, path string, pp ParsePolicy, ep ErrorPolicy) (*Parser, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	p := NewParser(path, pp, ep)
	if _, err := p.ReadFromContext(ctx, r); err != nil {
		return p, err
	}
	return p, nil
}
