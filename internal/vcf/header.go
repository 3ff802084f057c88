package vcf

import "strings"

var mandatoryColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// parseHeaderLine validates the #CHROM line and returns its sample names.
func parseHeaderLine(line string) ([]string, *fault) {
	columns := strings.Split(line, "\t")

	if len(columns) < len(mandatoryColumns) || !hasMandatoryPrefix(columns) {
		f := newFault("", "Header line does not start with the mandatory columns")
		if missing := missingColumns(columns); len(missing) > 0 {
			return nil, f.withDetail("missing %s", strings.Join(missing, ", "))
		}
		return nil, f.withDetail("expected %s in this order", strings.Join(mandatoryColumns, " "))
	}

	extra := columns[len(mandatoryColumns):]
	if len(extra) == 0 {
		return nil, nil
	}
	if extra[0] != "FORMAT" {
		return nil, newFault("FORMAT", "Header line has a malformed FORMAT column").
			withDetail("found %q", truncate(extra[0]))
	}

	samples := extra[1:]
	seen := make(map[string]bool, len(samples))
	for i, name := range samples {
		if !allBytes([]byte(name), isPrintable) {
			return nil, newFault("sample", "Header line has a malformed sample column").
				withDetail("sample %d name %q is empty or contains whitespace", i+1, truncate(name))
		}
		if seen[name] {
			return nil, newFault("sample", "Header line has a malformed sample column").
				withDetail("sample name %q is duplicated", name)
		}
		seen[name] = true
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return samples, nil
}

func hasMandatoryPrefix(columns []string) bool {
	for i, name := range mandatoryColumns {
		if columns[i] != name {
			return false
		}
	}
	return true
}

func missingColumns(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	var missing []string
	for _, name := range mandatoryColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// headerMissing is reported when the meta block ends without a #CHROM line.
func headerMissing(reason string) *fault {
	return newFault("", "Header line is missing").withDetail(reason)
}
