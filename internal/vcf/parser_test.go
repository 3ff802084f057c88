package vcf

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	fileformatLine = "##fileformat=VCFv4.1\n"

	metaLines = "##reference=file:///data/human_g1k_v37.fasta\n" +
		"##contig=<ID=20,length=62435964,assembly=B36>\n" +
		"##INFO=<ID=NS,Number=1,Type=Integer,Description=\"Number of Samples With Data\">\n" +
		"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Total Depth\">\n" +
		"##INFO=<ID=AF,Number=A,Type=Float,Description=\"Allele Frequency\">\n" +
		"##INFO=<ID=DB,Number=0,Type=Flag,Description=\"dbSNP membership, build 129\">\n" +
		"##FILTER=<ID=q10,Description=\"Quality below 10\">\n" +
		"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n" +
		"##FORMAT=<ID=GQ,Number=1,Type=Integer,Description=\"Genotype Quality\">\n"

	headerLine = "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA00001\tNA00002\n"

	record1 = "20\t14370\trs6054257\tG\tA\t29\tPASS\tNS=3;DP=14;AF=0.5;DB\tGT:GQ\t0|0:48\t1|0:48\n"
	record2 = "20\t17330\t.\tT\tA\t3\tq10\tNS=3;DP=11;AF=0.017\tGT:GQ\t0|0:49\t0|1:3\n"
	record3 = "20\t1110696\trs6040355\tA\tG,T\t67\tPASS\tNS=2;DP=10;AF=0.333,0.667\tGT:GQ\t1|2:21\t2|1:2\n"

	validVCF = fileformatLine + metaLines + headerLine + record1 + record2 + record3
)

// parse feeds input in chunks of the given size and finishes the parser.
func parse(t *testing.T, input string, chunk int) (*Parser, *ReportPolicy) {
	t.Helper()
	report := NewReportPolicy(nil)
	p := NewParser("test.vcf", &StorePolicy{}, report)
	data := []byte(input)
	for len(data) > 0 {
		n := min(chunk, len(data))
		require.NoError(t, p.Feed(data[:n]))
		data = data[n:]
	}
	require.NoError(t, p.Finish())
	return p, report
}

func errorsOf(ds []*Diagnostic) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range ds {
		if !d.IsWarning() {
			out = append(out, d)
		}
	}
	return out
}

func warningsOf(ds []*Diagnostic) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range ds {
		if d.IsWarning() {
			out = append(out, d)
		}
	}
	return out
}

func TestParser_ValidFile(t *testing.T) {
	p, report := parse(t, validVCF, len(validVCF))

	assert.Empty(t, report.Diagnostics())
	assert.True(t, p.IsValidSoFar())
	assert.True(t, p.IsFinishedAndValid())

	src := p.Source()
	assert.Equal(t, "VCFv4.1", src.Fileformat)
	assert.Equal(t, Version41, src.Version)
	assert.Equal(t, []string{"NA00001", "NA00002"}, src.Samples)
	assert.Len(t, src.MetaEntries("INFO"), 4)
	assert.Len(t, src.AllMetaEntries(), 9)
	assert.True(t, src.HasContig("20"))
	dp := src.InfoDefinition("DP")
	require.NotNil(t, dp)
	desc, ok := dp.Field("Description")
	assert.True(t, ok)
	assert.Equal(t, "Total Depth", desc)

	recs := p.State().Records
	require.Len(t, recs, 3)

	r := recs[0]
	assert.Equal(t, 12, r.Line)
	assert.Equal(t, "20", r.Chromosome)
	assert.Equal(t, int64(14370), r.Position)
	assert.Equal(t, []string{"rs6054257"}, r.IDs)
	assert.Equal(t, "G", r.Reference)
	assert.Equal(t, []string{"A"}, r.Alternates)
	require.NotNil(t, r.Quality)
	assert.Equal(t, 29.0, *r.Quality)
	assert.Equal(t, []string{"PASS"}, r.Filters)
	assert.Equal(t, []InfoField{
		{Key: "NS", Value: "3"},
		{Key: "DP", Value: "14"},
		{Key: "AF", Value: "0.5"},
		{Key: "DB", Flag: true},
	}, r.Info)
	assert.Equal(t, []string{"GT", "GQ"}, r.Format)
	assert.Equal(t, []string{"0|0:48", "1|0:48"}, r.Samples)
	assert.Same(t, src, r.Source)

	assert.Nil(t, recs[1].IDs)
	assert.Equal(t, []string{"G", "T"}, recs[2].Alternates)
	assert.Equal(t, strings.TrimSuffix(record3, "\n"), recs[2].String())
}

func TestParser_ChunkBoundaries(t *testing.T) {
	for _, chunk := range []int{1, 2, 3, 7, 64, 4096} {
		p, report := parse(t, validVCF, chunk)
		assert.Empty(t, report.Diagnostics(), "chunk %d", chunk)
		assert.True(t, p.IsFinishedAndValid(), "chunk %d", chunk)
		assert.Len(t, p.State().Records, 3, "chunk %d", chunk)
	}
}

func TestParser_LineEndings(t *testing.T) {
	t.Run("CRLF", func(t *testing.T) {
		p, report := parse(t, strings.ReplaceAll(validVCF, "\n", "\r\n"), 5)
		assert.Empty(t, report.Diagnostics())
		require.Len(t, p.State().Records, 3)
		assert.Equal(t, []string{"1|2:21", "2|1:2"}, p.State().Records[2].Samples)
	})

	t.Run("no trailing newline", func(t *testing.T) {
		p, report := parse(t, strings.TrimSuffix(validVCF, "\n"), 100)
		assert.Empty(t, report.Diagnostics())
		assert.Len(t, p.State().Records, 3)
		assert.True(t, p.IsFinishedAndValid())
	})

	t.Run("stray carriage return", func(t *testing.T) {
		input := fileformatLine + metaLines + headerLine + strings.Replace(record1, "PASS", "PA\rSS", 1)
		_, report := parse(t, input, 100)
		errs := errorsOf(report.Diagnostics())
		require.Len(t, errs, 1)
		assert.Equal(t, "filter", errs[0].Field)
	})
}

func TestParser_FileformatErrors(t *testing.T) {
	rest := metaLines + headerLine + record1 + record2 + record3

	tests := []struct {
		name    string
		first   string
		message string
		detail  string
	}{
		{"wrong key", "##fileformatVCFv4.1\n", "Fileformat declaration is missing or malformed", "expected the first line to start with ##fileformat="},
		{"empty value", "##fileformat=\n", "Fileformat must be a sequence of alphanumeric and/or punctuation characters", "value has no valid characters"},
		{"space first", "##fileformat= VCFv4.1\n", "Fileformat must be a sequence of alphanumeric and/or punctuation characters", "value has no valid characters"},
		{"invalid after prefix", "##fileformat=VCF v4.1\n", "Fileformat must be a sequence of alphanumeric and/or punctuation characters", `invalid character ' ' after "VCF"`},
		{"missing line", "", "Fileformat declaration is missing or malformed", "expected the first line to start with ##fileformat="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, report := parse(t, tt.first+rest, 16)

			errs := errorsOf(report.Diagnostics())
			require.Len(t, errs, 1, "diagnostics: %v", errs)
			assert.Equal(t, SectionFileformat, errs[0].Section)
			assert.Equal(t, tt.message, errs[0].Message)
			assert.Equal(t, tt.detail, errs[0].Detail)
			assert.Equal(t, 1, errs[0].Line)

			assert.False(t, p.IsValidSoFar())
			assert.False(t, p.IsFinishedAndValid())
			assert.Len(t, p.State().Records, 3)
		})
	}
}

func TestParser_EmptyInput(t *testing.T) {
	p, report := parse(t, "", 1)

	ds := report.Diagnostics()
	require.Len(t, ds, 1)
	assert.Equal(t, SectionFileformat, ds[0].Section)
	assert.Equal(t, "input is empty", ds[0].Detail)
	assert.False(t, p.IsFinishedAndValid())
}

func TestParser_MetaErrors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		message string
		field   string
	}{
		{"INFO bad Number", `##INFO=<ID=XX,Number=X,Type=Integer,Description="x">`, "INFO metadata Number is not a number, A, R, G or dot", "Number"},
		{"INFO bad Type", `##INFO=<ID=XX,Number=1,Type=Bool,Description="x">`, "INFO metadata Type is not Integer, Float, Flag, Character or String", "Type"},
		{"INFO missing Description", `##INFO=<ID=XX,Number=1,Type=Integer>`, "INFO metadata Description is missing", "Description"},
		{"INFO empty Description", `##INFO=<ID=XX,Number=1,Type=Integer,Description="">`, "INFO metadata Description is missing", "Description"},
		{"INFO bad ID", `##INFO=<ID=X X,Number=1,Type=Integer,Description="x">`, "INFO metadata ID is not alphanumeric", "ID"},
		{"INFO missing ID", `##INFO=<Number=1,Type=Integer,Description="x">`, "INFO metadata ID is missing", "ID"},
		{"INFO flag with Number", `##INFO=<ID=XX,Number=1,Type=Flag,Description="x">`, "INFO metadata Number must be 0 for Flag type", "Number"},
		{"INFO not enclosed", `##INFO=ID=XX`, "INFO metadata is not enclosed in angle brackets", "INFO"},
		{"FORMAT flag type", `##FORMAT=<ID=XX,Number=1,Type=Flag,Description="x">`, "FORMAT metadata Type is not Integer, Float, Character or String", "Type"},
		{"FILTER unterminated quote", `##FILTER=<ID=q20,Description="Quality below 20>`, "FILTER metadata Description is not a properly quoted string", "Description"},
		{"ALT bad ID", `##ALT=<ID=DEL ME,Description="Deletion">`, "ALT metadata ID is not a colon-separated list of alphanumeric strings", "ID"},
		{"contig bad length", `##contig=<ID=21,length=abc>`, "contig metadata length is not a non-negative number", "length"},
		{"contig bad URL", `##contig=<ID=21,URL=notaurl>`, "contig metadata URL is not a valid URL", "URL"},
		{"SAMPLE missing ID", `##SAMPLE=<Genomes=Germline>`, "SAMPLE metadata ID is missing", "ID"},
		{"structured trailing comma", `##PEDIGREE=<Derived=ID2,>`, "PEDIGREE metadata is not a comma-separated list of key=value pairs", ""},
		{"structured without pairs", `##PEDIGREE=<>`, "PEDIGREE metadata is not a comma-separated list of key=value pairs", ""},
		{"pedigreeDB not enclosed", `##pedigreeDB=http://example.org/pedigree`, "pedigreeDB metadata is not a URL enclosed in angle brackets", "pedigreeDB"},
		{"assembly with spaces", `##assembly=my assembly`, "assembly metadata is not a URL or file name", "assembly"},
		{"no equals sign", `##novalue`, "Metadata line is not a key=value pair", ""},
		{"empty key", `##=value`, "Metadata line is not a key=value pair", ""},
		{"empty value", `##source=`, "Metadata value is empty", "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := fileformatLine + tt.line + "\n" + metaLines + headerLine + record1 + record2 + record3
			p, report := parse(t, input, 13)

			errs := errorsOf(report.Diagnostics())
			require.Len(t, errs, 1, "diagnostics: %v", errs)
			assert.Equal(t, SectionMeta, errs[0].Section)
			assert.Equal(t, tt.message, errs[0].Message)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, 2, errs[0].Line)

			assert.False(t, p.IsValidSoFar())
			assert.Len(t, p.Source().AllMetaEntries(), 9)
			assert.Len(t, p.State().Records, 3)
		})
	}
}

func TestParser_MetaAccepted(t *testing.T) {
	extra := "##source=myImputationProgramV3.1\n" +
		"##phasing=partial\n" +
		"##ALT=<ID=DEL:ME:ALU,Description=\"Deletion of ALU element\">\n" +
		"##SAMPLE=<ID=NA00001,Genomes=Germline,Mixture=1.,Description=\"Patient germline genome\">\n" +
		"##PEDIGREE=<Derived=ID2,Original=ID1>\n" +
		"##pedigreeDB=<http://example.org/pedigree>\n" +
		"##assembly=ftp://ftp.example.org/b36.fa\n" +
		"##INFO=<ID=XX,Number=.,Type=String,Description=\"Quoted \\\"text\\\", with commas\",Source=\"tool\",Version=\"1\">\n" +
		"##custom=<ID=x,Foo=\"bar, baz\",URL=https://example.org/x>\n"
	p, report := parse(t, fileformatLine+extra+metaLines+headerLine+record1, 32)

	assert.Empty(t, errorsOf(report.Diagnostics()))
	src := p.Source()

	src1 := src.MetaEntries("source")
	require.Len(t, src1, 1)
	assert.Equal(t, "myImputationProgramV3.1", src1[0].Value)
	assert.Equal(t, 0, src1[0].Seq)

	custom := src.MetaEntries("custom")
	require.Len(t, custom, 1)
	foo, ok := custom[0].Field("Foo")
	assert.True(t, ok)
	assert.Equal(t, "bar, baz", foo)

	xx := src.InfoDefinition("XX")
	require.NotNil(t, xx)
	desc, _ := xx.Field("Description")
	assert.Equal(t, `Quoted \"text\", with commas`, desc)
	assert.Equal(t, `##INFO=<ID=XX,Number=.,Type=String,Description="Quoted \"text\", with commas",Source="tool",Version="1">`, xx.String())
}

func TestParser_HeaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		message string
		detail  string
	}{
		{"missing ID column", "#CHROM\tPOS\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA00001\tNA00002",
			"Header line does not start with the mandatory columns", "missing ID"},
		{"lowercase columns", "#chrom\tpos\tid\tref\talt\tqual\tfilter\tinfo",
			"Header line does not start with the mandatory columns", "missing #CHROM, POS, ID, REF, ALT, QUAL, FILTER, INFO"},
		{"columns out of order", "#CHROM\tPOS\tREF\tID\tALT\tQUAL\tFILTER\tINFO",
			"Header line does not start with the mandatory columns", "expected #CHROM POS ID REF ALT QUAL FILTER INFO in this order"},
		{"malformed FORMAT", "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMATS\tNA00001\tNA00002",
			"Header line has a malformed FORMAT column", `found "FORMATS"`},
		{"sample with space", "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA 00001\tNA00002",
			"Header line has a malformed sample column", `sample 1 name "NA 00001" is empty or contains whitespace`},
		{"duplicated sample", "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA00001\tNA00001",
			"Header line has a malformed sample column", `sample name "NA00001" is duplicated`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := fileformatLine + metaLines + tt.header + "\n" + record1 + record2 + record3
			p, report := parse(t, input, 10)

			errs := errorsOf(report.Diagnostics())
			require.Len(t, errs, 1, "diagnostics: %v", errs)
			assert.Equal(t, SectionHeader, errs[0].Section)
			assert.Equal(t, tt.message, errs[0].Message)
			assert.Equal(t, tt.detail, errs[0].Detail)
			assert.Equal(t, 11, errs[0].Line)

			// The malformed header is discarded and every following line is
			// read as a data line.
			recs := p.State().Records
			require.Len(t, recs, 3)
			assert.Equal(t, []int{12, 13, 14}, []int{recs[0].Line, recs[1].Line, recs[2].Line})
			assert.Nil(t, p.Source().Samples)
			assert.Equal(t, SectionBody, p.Section())
			assert.False(t, p.IsFinishedAndValid())
		})
	}
}

func TestParser_HeaderMissing(t *testing.T) {
	t.Run("data line after meta block", func(t *testing.T) {
		p, report := parse(t, fileformatLine+metaLines+record1+record2, 8)

		errs := errorsOf(report.Diagnostics())
		require.Len(t, errs, 1)
		assert.Equal(t, SectionHeader, errs[0].Section)
		assert.Equal(t, "Header line is missing", errs[0].Message)
		assert.Equal(t, 11, errs[0].Line)
		assert.Len(t, p.State().Records, 2)
	})

	t.Run("input ends in meta block", func(t *testing.T) {
		p, report := parse(t, fileformatLine+metaLines, 8)

		errs := errorsOf(report.Diagnostics())
		require.Len(t, errs, 1)
		assert.Equal(t, SectionHeader, errs[0].Section)
		assert.Equal(t, "input ended before the #CHROM line", errs[0].Detail)
		assert.False(t, p.IsFinishedAndValid())
	})

	t.Run("header without samples", func(t *testing.T) {
		input := fileformatLine + metaLines + "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
			"20\t14370\trs6054257\tG\tA\t29\tPASS\tNS=3\n"
		p, report := parse(t, input, 8)
		assert.Empty(t, report.Diagnostics())
		assert.True(t, p.IsFinishedAndValid())
		assert.Nil(t, p.Source().Samples)
	})
}

func TestParser_BodyErrors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		message string
		field   string
		column  int
	}{
		{"position zero", "20\t0\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Position must be a positive number", "position", 2},
		{"position not a number", "20\t17a30\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Position must be a positive number", "position", 2},
		{"chromosome with colon", "20:1\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Chromosome is not a string without colons or whitespace", "chromosome", 1},
		{"chromosome with space", "2 0\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Chromosome is not a string without colons or whitespace", "chromosome", 1},
		{"id with space", "20\t17330\trs 1\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"ID is not a single dot or a semicolon-separated list of strings", "id", 3},
		{"reference not bases", "20\t17330\t.\tX\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Reference is not a string of bases", "reference", 4},
		{"alternate unterminated symbolic", "20\t17330\t.\tT\tA,<DEL\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Alternate is not a single dot or a comma-separated list of bases, symbolic alleles or breakends", "alternate", 5},
		{"alternate empty allele", "20\t17330\t.\tT\tA,\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Alternate is not a single dot or a comma-separated list of bases, symbolic alleles or breakends", "alternate", 5},
		{"quality negative", "20\t17330\t.\tT\tA\t-3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Quality is not a single dot or a positive number", "quality", 6},
		{"filter empty entry", "20\t17330\t.\tT\tA\t3\tq10;;PASS\tNS=3\tGT:GQ\t0|0:49\t0|1:3",
			"Filter is not a single dot or a semicolon-separated list of strings", "filter", 7},
		{"info integer", "20\t17330\t.\tT\tA\t3\tq10\tNS=3;DP=abc\tGT:GQ\t0|0:49\t0|1:3",
			"Info DP is not an integer", "info", 8},
		{"info float list", "20\t17330\t.\tT\tA\t3\tq10\tAF=0.5,x\tGT:GQ\t0|0:49\t0|1:3",
			"Info AF is not a comma-separated list of numbers", "info", 8},
		{"info flag with value", "20\t17330\t.\tT\tA\t3\tq10\tDB=1\tGT:GQ\t0|0:49\t0|1:3",
			"Info DB is a flag and must not have a value", "info", 8},
		{"info key", "20\t17330\t.\tT\tA\t3\tq10\tN S=3\tGT:GQ\t0|0:49\t0|1:3",
			"Info key is not alphanumeric", "info", 8},
		{"info empty entry", "20\t17330\t.\tT\tA\t3\tq10\tNS=3;\tGT:GQ\t0|0:49\t0|1:3",
			"Info is not a single dot or a semicolon-separated list of key=value pairs", "info", 8},
		{"format GT not first", "20\t17330\t.\tT\tA\t3\tq10\tNS=3\tGQ:GT\t49:0|0\t3:0|1",
			"Format GT must be the first field", "format", 9},
		{"format key", "20\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:G-Q\t0|0:49\t0|1:3",
			"Format is not a colon-separated list of alphanumeric strings", "format", 9},
		{"sample genotype", "20\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\tX|1:3",
			"Sample 2 does not start with a valid genotype", "sample", 11},
		{"sample too many fields", "20\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49:1\t0|1:3",
			"Sample 1 has more fields than declared in FORMAT", "sample", 10},
		{"sample empty", "20\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t\t0|1:3",
			"Sample 1 is empty", "sample", 10},
		{"too few columns", "20\t17330\t.\tT\tA",
			"Record is missing mandatory columns", "", 5},
		{"missing sample column", "20\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49",
			"Record does not have as many sample columns as the header", "", 10},
		{"extra column", "20\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3\t0|1:3",
			"Record has more columns than declared in the header", "", 12},
		{"empty line", "",
			"Record is an empty line", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := fileformatLine + metaLines + headerLine + record1 + tt.line + "\n" + record3
			p, report := parse(t, input, 9)

			errs := errorsOf(report.Diagnostics())
			require.Len(t, errs, 1, "diagnostics: %v", errs)
			assert.Equal(t, SectionBody, errs[0].Section)
			assert.Equal(t, tt.message, errs[0].Message)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, 13, errs[0].Line)
			assert.Equal(t, tt.column, errs[0].Column)

			assert.False(t, p.IsValidSoFar())
			recs := p.State().Records
			require.Len(t, recs, 2)
			assert.Equal(t, int64(14370), recs[0].Position)
			assert.Equal(t, int64(1110696), recs[1].Position)
			assert.Equal(t, 14, recs[1].Line)
		})
	}
}

func TestParser_ManyErrorsInOnePass(t *testing.T) {
	input := "##fileformat=\n" +
		"##INFO=<ID=XX,Number=1,Type=Bool,Description=\"x\">\n" +
		metaLines + headerLine +
		"20\t0\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3\n" +
		record1 +
		"20\t17330\t.\tX\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3\n" +
		record3
	p, report := parse(t, input, 11)

	errs := errorsOf(report.Diagnostics())
	require.Len(t, errs, 4)
	assert.Equal(t, []Section{SectionFileformat, SectionMeta, SectionBody, SectionBody},
		[]Section{errs[0].Section, errs[1].Section, errs[2].Section, errs[3].Section})
	assert.Equal(t, []int{1, 2, 13, 15}, []int{errs[0].Line, errs[1].Line, errs[2].Line, errs[3].Line})
	assert.Len(t, p.State().Records, 2)
}

func TestParser_AlternateForms(t *testing.T) {
	alts := []string{
		"G]17:198982]",
		"]13:123456]T",
		"C[2:321682[",
		"[17:198983[A",
		"A[<ctg1>:7[",
		".A",
		"G.",
		"<DEL>",
		"<DUP:TANDEM>",
		"A,<NON_REF>",
		"*,T",
		".",
		"acgtn",
	}

	for _, alt := range alts {
		t.Run(alt, func(t *testing.T) {
			line := "20\t17330\trs1;rs2\tT\t" + alt + "\t.\t.\t.\tGT\t0/1\t./.\n"
			p, report := parse(t, fileformatLine+metaLines+headerLine+line, 64)
			assert.Empty(t, errorsOf(report.Diagnostics()))
			require.Len(t, p.State().Records, 1)
			assert.Equal(t, []string{"rs1", "rs2"}, p.State().Records[0].IDs)
		})
	}
}

func TestParser_Warnings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		messages []string
	}{
		{
			name:     "unsorted positions",
			input:    fileformatLine + metaLines + headerLine + record2 + record1,
			messages: []string{"Records are not sorted by position"},
		},
		{
			name: "undeclared contig reported once",
			input: fileformatLine + metaLines + headerLine + record1 +
				"21\t100\t.\tA\tG\t.\tPASS\tNS=1\tGT:GQ\t0|1:1\t0|0:1\n" +
				"21\t200\t.\tA\tG\t.\tPASS\tNS=1\tGT:GQ\t0|1:1\t0|0:1\n",
			messages: []string{"Chromosome 21 is not declared in a contig metadata entry"},
		},
		{
			name: "ploidy mismatch",
			input: fileformatLine + metaLines + headerLine + record1 +
				"20\t17330\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0|1:49\t0|1:3\n",
			messages: []string{"Sample 1 has 3 alleles, expected ploidy is 2"},
		},
		{
			name:     "missing reference",
			input:    fileformatLine + strings.Replace(metaLines, "##reference=file:///data/human_g1k_v37.fasta\n", "", 1) + headerLine + record1,
			messages: []string{"Metadata entry reference is recommended but missing"},
		},
		{
			name: "undeclared info key reported once",
			input: fileformatLine + metaLines + headerLine +
				"20\t100\t.\tA\tG\t.\tPASS\tXX=1\tGT:GQ\t0|1:1\t0|0:1\n" +
				"20\t200\t.\tA\tG\t.\tPASS\tXX=2\tGT:GQ\t0|1:1\t0|0:1\n",
			messages: []string{"Info key XX is not declared in an INFO metadata entry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, report := parse(t, tt.input, 17)

			ds := report.Diagnostics()
			assert.Empty(t, errorsOf(ds))
			var got []string
			for _, d := range warningsOf(ds) {
				got = append(got, d.Message)
			}
			assert.Equal(t, tt.messages, got)
			assert.True(t, p.IsValidSoFar())
			assert.True(t, p.IsFinishedAndValid())
		})
	}
}

func TestParser_AbortPolicy(t *testing.T) {
	input := fileformatLine + metaLines + headerLine + record1 +
		"20\t0\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3\n" + record3

	p := NewParser("abort.vcf", &StorePolicy{}, AbortPolicy{})
	err := p.Feed([]byte(input))
	require.Error(t, err)

	var d *Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, 13, d.Line)
	assert.Equal(t, "Position must be a positive number", d.Message)

	assert.Len(t, p.State().Records, 1)
	assert.Equal(t, err, p.Feed([]byte(record3)))
	assert.Equal(t, err, p.Finish())
	assert.False(t, p.IsFinishedAndValid())
}

func TestParser_LimitPolicy(t *testing.T) {
	bad := "20\t0\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3\n"
	input := fileformatLine + metaLines + headerLine + bad + bad + bad + bad

	report := NewReportPolicy(nil)
	p := NewParser("limit.vcf", &StorePolicy{}, &LimitPolicy{Next: report, Max: 2})
	err := p.Feed([]byte(input))
	require.ErrorIs(t, err, ErrTooManyErrors)

	errs, _ := report.Counts()
	assert.Equal(t, 2, errs)
}

func TestParser_StreamPolicy(t *testing.T) {
	var positions []int64
	stream := NewStreamPolicy(func(r *Record) error {
		positions = append(positions, r.Position)
		return nil
	})
	p := NewParser("stream.vcf", stream, NewReportPolicy(nil))
	require.NoError(t, p.Feed([]byte(validVCF)))
	require.NoError(t, p.Finish())

	assert.Equal(t, []int64{14370, 17330, 1110696}, positions)
	assert.Empty(t, p.State().Records)
	assert.Equal(t, []string{"NA00001", "NA00002"}, p.Source().Samples)

	stop := errors.New("stop")
	p = NewParser("stream.vcf", NewStreamPolicy(func(*Record) error { return stop }), NewReportPolicy(nil))
	assert.ErrorIs(t, p.Feed([]byte(validVCF)), stop)
}

func TestParser_FinishTwice(t *testing.T) {
	p, _ := parse(t, validVCF, 100)
	assert.ErrorIs(t, p.Feed([]byte(record1)), ErrFinished)
	assert.ErrorIs(t, p.Finish(), ErrFinished)
}

func TestParser_Reset(t *testing.T) {
	p, report := parse(t, "#bad\n", 100)
	assert.False(t, p.IsValidSoFar())

	p.Reset()
	assert.True(t, p.IsValidSoFar())
	assert.Equal(t, 1, p.State().Line)
	require.NoError(t, p.Feed([]byte(validVCF)))
	require.NoError(t, p.Finish())
	assert.True(t, p.IsFinishedAndValid())
	assert.Len(t, p.State().Records, 3)
	assert.Equal(t, "test.vcf", p.Source().Name)
	assert.NotEmpty(t, report.Diagnostics())
}

func TestParser_ProgressLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewParser("progress.vcf", &StorePolicy{}, NewReportPolicy(nil))
	p.SetLogger(zap.New(core))
	p.SetProgressInterval(5)

	require.NoError(t, p.Feed([]byte(validVCF)))
	require.NoError(t, p.Finish())

	entries := logs.FilterMessage("parsing progress").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries[0].ContextMap()["lines"])
	assert.Equal(t, int64(10), entries[1].ContextMap()["lines"])
}

func TestReportPolicy_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	report := NewReportPolicy(zap.New(core))
	input := fileformatLine + metaLines + headerLine + record2 + record1 +
		"20\t0\t.\tT\tA\t3\tq10\tNS=3\tGT:GQ\t0|0:49\t0|1:3\n"

	p := NewParser("logged.vcf", &StorePolicy{}, report)
	require.NoError(t, p.Feed([]byte(input)))
	require.NoError(t, p.Finish())

	errs, warns := report.Counts()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, warns)

	require.Equal(t, 2, logs.Len())
	warn := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, warn.Level)
	assert.Equal(t, "Records are not sorted by position", warn.Message)
	assert.Equal(t, "logged.vcf", warn.ContextMap()["source"])

	failure := logs.All()[1]
	assert.Equal(t, zapcore.ErrorLevel, failure.Level)
	assert.Equal(t, "position", failure.ContextMap()["field"])
	assert.Equal(t, int64(14), failure.ContextMap()["line"])
}

func TestNewReader_Compressed(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(validVCF))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var bg bytes.Buffer
	bw := bgzf.NewWriter(&bg, 1)
	_, err = bw.Write([]byte(validVCF))
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	tests := []struct {
		name string
		data []byte
	}{
		{"plain", []byte(validVCF)},
		{"gzip", gz.Bytes()},
		{"bgzf", bg.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(bytes.NewReader(tt.data))
			require.NoError(t, err)
			defer r.Close()

			p := NewParser(tt.name, &StorePolicy{}, NewReportPolicy(nil))
			n, err := p.ReadFrom(r)
			require.NoError(t, err)
			assert.Equal(t, int64(len(validVCF)), n)
			assert.True(t, p.IsFinishedAndValid())
			assert.Len(t, p.State().Records, 3)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.vcf")
	require.NoError(t, os.WriteFile(path, []byte(validVCF), 0644))

	report := NewReportPolicy(nil)
	p, err := ParseFile(context.Background(), path, &StorePolicy{}, report)
	require.NoError(t, err)
	assert.True(t, p.IsFinishedAndValid())
	assert.Equal(t, path, p.Source().Name)
	assert.Len(t, p.State().Records, 3)

	_, err = ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.vcf"), &StorePolicy{}, report)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err = ParseFile(ctx, path, &StorePolicy{}, report)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, p.IsFinishedAndValid())
}
