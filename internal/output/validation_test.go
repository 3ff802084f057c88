package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

func testDiagnostics() []*vcf.Diagnostic {
	return []*vcf.Diagnostic{
		{Section: vcf.SectionBody, Severity: vcf.SeverityError, Message: "Position must be a positive number",
			Detail: `found "0"`, Field: "position", Line: 14, Column: 2},
		{Section: vcf.SectionMeta, Severity: vcf.SeverityWarning, Message: "Metadata entry reference is recommended but missing",
			Field: "reference", Line: 11, Column: 1},
		{Section: vcf.SectionMeta, Severity: vcf.SeverityError, Message: "Metadata value is empty",
			Detail: "key source", Field: "source", Line: 2, Column: 1},
	}
}

func TestValidationWriter_ErrorsOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewValidationWriter(&buf, false)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteDiagnostics(FileReport{Path: "a.vcf", Records: 3, Errors: 2, Warnings: 1}, testDiagnostics()))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "File"))
	assert.Equal(t, []string{"a.vcf", "2", "-", "meta", "error", "Metadata", "value", "is", "empty", "key", "source"},
		strings.Fields(lines[1]))
	assert.Contains(t, lines[2], "Position must be a positive number")
	assert.Equal(t, "2", strings.Fields(lines[2])[2])
	assert.NotContains(t, buf.String(), "recommended")
}

func TestValidationWriter_ShowWarnings(t *testing.T) {
	var buf bytes.Buffer
	w := NewValidationWriter(&buf, true)

	require.NoError(t, w.WriteDiagnostics(FileReport{Path: "a.vcf"}, testDiagnostics()))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "recommended but missing")
	assert.Contains(t, lines[1], "warning")
}

func TestValidationWriter_Summary(t *testing.T) {
	var buf bytes.Buffer
	w := NewValidationWriter(&buf, false)

	require.NoError(t, w.WriteDiagnostics(FileReport{Path: "a.vcf", Valid: true, Records: 3}, nil))
	require.NoError(t, w.WriteDiagnostics(FileReport{Path: "b.vcf", Records: 2, Errors: 1}, testDiagnostics()[:1]))
	require.NoError(t, w.WriteDiagnostics(FileReport{Path: "c.vcf", Err: errors.New("open vcf file: no such file")}, nil))
	require.NoError(t, w.Flush())

	files, valid := w.Summary()
	assert.Equal(t, 3, files)
	assert.Equal(t, 1, valid)

	var sum bytes.Buffer
	w.WriteSummary(&sum)
	out := sum.String()
	assert.Contains(t, out, "a.vcf: valid (3 records, 0 errors, 0 warnings)")
	assert.Contains(t, out, "b.vcf: invalid (2 records, 1 errors, 0 warnings)")
	assert.Contains(t, out, "c.vcf: failed: open vcf file: no such file")
	assert.Contains(t, out, "Files valid:     1/3")
}
