package vcf

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// Body column indices.
const (
	colChromosome = iota
	colPosition
	colID
	colReference
	colAlternate
	colQuality
	colFilter
	colInfo
	colFormat
	colFirstSample
)

var cigarPattern = regexp.MustCompile(`^([0-9]+[MIDNSHPX=])+$`)

// infoRule constrains the value of a reserved INFO key.
type infoRule struct {
	flag    bool
	valid   func([]byte) bool
	message string
}

var reservedInfo = map[string]infoRule{
	"AA":        {valid: func(v []byte) bool { return allBytes(v, isPrintable) }, message: "is not a string"},
	"AC":        {valid: listOf(isInteger), message: "is not a comma-separated list of integers"},
	"AF":        {valid: listOf(isFloat), message: "is not a comma-separated list of numbers"},
	"AN":        {valid: isInteger, message: "is not an integer"},
	"BQ":        {valid: isFloat, message: "is not a number"},
	"CIGAR":     {valid: listOf(cigarPattern.Match), message: "is not a comma-separated list of CIGAR strings"},
	"DB":        {flag: true},
	"DP":        {valid: isInteger, message: "is not an integer"},
	"END":       {valid: isInteger, message: "is not an integer"},
	"H2":        {flag: true},
	"H3":        {flag: true},
	"MQ":        {valid: isFloat, message: "is not a number"},
	"MQ0":       {valid: isInteger, message: "is not an integer"},
	"NS":        {valid: isInteger, message: "is not an integer"},
	"SOMATIC":   {flag: true},
	"VALIDATED": {flag: true},
	"1000G":     {flag: true},
}

// listOf accepts comma-separated values where each is valid or missing.
func listOf(valid func([]byte) bool) func([]byte) bool {
	return func(v []byte) bool {
		return eachPart(v, ',', func(p []byte) bool {
			return isMissing(p) || valid(p)
		})
	}
}

// checkBodyField validates column i (0-based) of a data line. format holds
// the FORMAT keys of the line when i is a sample column.
func checkBodyField(i int, v []byte, format []string) *fault {
	switch i {
	case colChromosome:
		return checkChromosome(v)
	case colPosition:
		return checkPosition(v)
	case colID:
		if isMissing(v) || eachPart(v, ';', isPrintableToken) {
			return nil
		}
		return newFault("id", "ID is not a single dot or a semicolon-separated list of strings")
	case colReference:
		if isMissing(v) || isBases(v) {
			return nil
		}
		return newFault("reference", "Reference is not a string of bases")
	case colAlternate:
		return checkAlternates(v)
	case colQuality:
		if isMissing(v) || (isFloat(v) && v[0] != '-') {
			return nil
		}
		return newFault("quality", "Quality is not a single dot or a positive number")
	case colFilter:
		if isMissing(v) || eachPart(v, ';', isPrintableToken) {
			return nil
		}
		return newFault("filter", "Filter is not a single dot or a semicolon-separated list of strings")
	case colInfo:
		return checkInfo(v)
	case colFormat:
		return checkFormat(v)
	}
	return checkSample(i-colFirstSample+1, v, format)
}

func isPrintableToken(v []byte) bool {
	return allBytes(v, isPrintable)
}

func checkChromosome(v []byte) *fault {
	f := newFault("chromosome", "Chromosome is not a string without colons or whitespace")
	if len(v) == 0 {
		return f.withDetail("chromosome is empty")
	}
	if v[0] == '<' {
		if len(v) < 3 || v[len(v)-1] != '>' {
			return f.withDetail("unterminated angle brackets in %q", truncate(string(v)))
		}
		v = v[1 : len(v)-1]
	}
	if v[0] == '#' {
		return f.withDetail("chromosome starts with '#'")
	}
	for _, c := range v {
		if !isPrintable(c) || c == ':' {
			return f.withDetail("invalid character %q", c)
		}
	}
	return nil
}

func checkPosition(v []byte) *fault {
	if isUnsigned(v) {
		if pos, err := strconv.ParseInt(string(v), 10, 64); err == nil && pos > 0 {
			return nil
		}
	}
	return newFault("position", "Position must be a positive number").withDetail("found %q", truncate(string(v)))
}

func checkAlternates(v []byte) *fault {
	if isMissing(v) {
		return nil
	}
	for n, alt := range splitBytes(v, ',') {
		if !isAlternate(alt) {
			return newFault("alternate", "Alternate is not a single dot or a comma-separated list of bases, symbolic alleles or breakends").
				withDetail("allele %d is %q", n+1, truncate(string(alt)))
		}
	}
	return nil
}

// isAlternate accepts one alternate allele: bases, "*", <ID> or a breakend.
func isAlternate(a []byte) bool {
	switch {
	case len(a) == 0:
		return false
	case isBases(a):
		return true
	case len(a) == 1 && a[0] == '*':
		return true
	case a[0] == '<':
		return len(a) >= 3 && a[len(a)-1] == '>' && allBytes(a[1:len(a)-1], func(c byte) bool {
			return isPrintable(c) && c != '<' && c != '>'
		})
	}
	return isBreakend(a)
}

// isBreakend accepts t[p[, t]p], ]p]t, [p[t and the single breakends .t and t.
func isBreakend(a []byte) bool {
	if a[0] == '.' {
		return isBases(a[1:])
	}
	if a[len(a)-1] == '.' {
		return isBases(a[:len(a)-1])
	}
	if a[0] == '[' || a[0] == ']' {
		end := bytes.IndexByte(a[1:], a[0])
		if end < 0 {
			return false
		}
		return isMate(a[1:end+1]) && isBases(a[end+2:])
	}
	k := bytes.IndexAny(a, "[]")
	if k <= 0 || a[len(a)-1] != a[k] || len(a)-1 == k {
		return false
	}
	return isBases(a[:k]) && isMate(a[k+1:len(a)-1])
}

// isMate accepts the chrom:pos mate locus of a breakend.
func isMate(m []byte) bool {
	colon := bytes.LastIndexByte(m, ':')
	if colon <= 0 {
		return false
	}
	chrom, pos := m[:colon], m[colon+1:]
	if !isUnsigned(pos) {
		return false
	}
	return allBytes(chrom, func(c byte) bool {
		return isPrintable(c) && c != '[' && c != ']'
	})
}

func checkInfo(v []byte) *fault {
	if isMissing(v) {
		return nil
	}
	for _, entry := range splitBytes(v, ';') {
		if len(entry) == 0 {
			return newFault("info", "Info is not a single dot or a semicolon-separated list of key=value pairs").
				withDetail("empty entry")
		}
		key, value, hasValue := bytes.Cut(entry, []byte("="))
		if !allBytes(key, isInfoKeyChar) {
			return newFault("info", "Info key is not alphanumeric").withDetail("key %q", truncate(string(key)))
		}
		if hasValue && !allBytes(value, isInfoValueChar) {
			return newFault("info", "Info value is not a string of printable characters").
				withDetail("value of %s", key)
		}
		rule, reserved := reservedInfo[string(key)]
		if !reserved {
			continue
		}
		if rule.flag {
			if hasValue {
				return newFault("info", "Info "+string(key)+" is a flag and must not have a value")
			}
			continue
		}
		if !hasValue || !rule.valid(value) {
			return newFault("info", "Info "+string(key)+" "+rule.message).
				withDetail("found %q", truncate(string(value)))
		}
	}
	return nil
}

func isInfoKeyChar(c byte) bool {
	return isAlnum(c) || c == '_' || c == '.'
}

func isInfoValueChar(c byte) bool {
	return c == ' ' || isPrintable(c)
}

func checkFormat(v []byte) *fault {
	keys := splitBytes(v, ':')
	for n, key := range keys {
		if !allBytes(key, func(c byte) bool { return isAlnum(c) || c == '_' }) {
			return newFault("format", "Format is not a colon-separated list of alphanumeric strings").
				withDetail("key %d is %q", n+1, truncate(string(key)))
		}
		if n > 0 && string(key) == "GT" {
			return newFault("format", "Format GT must be the first field")
		}
	}
	return nil
}

func checkSample(n int, v []byte, format []string) *fault {
	if len(v) == 0 {
		return newFault("sample", "Sample "+strconv.Itoa(n)+" is empty")
	}
	subfields := splitBytes(v, ':')
	if len(subfields) > len(format) {
		return newFault("sample", "Sample "+strconv.Itoa(n)+" has more fields than declared in FORMAT").
			withDetail("%d fields, FORMAT has %d", len(subfields), len(format))
	}
	if len(format) > 0 && format[0] == "GT" && !isGenotype(subfields[0]) {
		return newFault("sample", "Sample "+strconv.Itoa(n)+" does not start with a valid genotype").
			withDetail("found %q", truncate(string(subfields[0])))
	}
	for _, sub := range subfields {
		for _, c := range sub {
			if !isPrintable(c) {
				return newFault("sample", "Sample "+strconv.Itoa(n)+" contains non-printable characters")
			}
		}
	}
	return nil
}

// isGenotype accepts allele indices or dots separated by '/' or '|', with
// an optional leading phasing marker.
func isGenotype(gt []byte) bool {
	if len(gt) > 1 && (gt[0] == '/' || gt[0] == '|') {
		gt = gt[1:]
	}
	if len(gt) == 0 {
		return false
	}
	expectAllele := true
	for i := 0; i < len(gt); i++ {
		c := gt[i]
		switch {
		case expectAllele && c == '.':
			expectAllele = false
		case expectAllele && isDigit(c):
			for i+1 < len(gt) && isDigit(gt[i+1]) {
				i++
			}
			expectAllele = false
		case !expectAllele && (c == '/' || c == '|'):
			expectAllele = true
		default:
			return false
		}
	}
	return !expectAllele
}

// buildRecord converts the validated columns of a data line into a Record.
func buildRecord(line int, fields []string, src *Source) *Record {
	r := &Record{
		Line:       line,
		Chromosome: fields[colChromosome],
		Reference:  fields[colReference],
		Source:     src,
	}
	r.Position, _ = strconv.ParseInt(fields[colPosition], 10, 64)
	r.IDs = splitUnlessMissing(fields[colID], ";")
	r.Alternates = splitUnlessMissing(fields[colAlternate], ",")
	if q := fields[colQuality]; q != MissingValue {
		if v, err := strconv.ParseFloat(q, 64); err == nil {
			r.Quality = &v
		}
	}
	r.Filters = splitUnlessMissing(fields[colFilter], ";")
	if info := fields[colInfo]; info != MissingValue {
		for _, entry := range strings.Split(info, ";") {
			key, value, hasValue := strings.Cut(entry, "=")
			r.Info = append(r.Info, InfoField{Key: key, Value: value, Flag: !hasValue})
		}
	}
	if len(fields) > colFormat {
		r.Format = strings.Split(fields[colFormat], ":")
		r.Samples = append([]string(nil), fields[colFirstSample:]...)
	}
	return r
}

func splitUnlessMissing(s, sep string) []string {
	if s == MissingValue {
		return nil
	}
	return strings.Split(s, sep)
}
