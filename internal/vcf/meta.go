package vcf

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	metaKeyPattern  = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	metaIDPattern   = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	altIDPattern    = regexp.MustCompile(`^[A-Za-z0-9._-]+(:[A-Za-z0-9._-]+)*$`)
	contigIDPattern = regexp.MustCompile(`^[0-9A-Za-z!#$%&+./:;?@^_|~-][0-9A-Za-z!#$%&*+./:;=?@^_|~-]*$`)
	numberPattern   = regexp.MustCompile(`^([0-9]+|A|R|G|\.)$`)
	unsignedPattern = regexp.MustCompile(`^[0-9]+$`)
	urlPattern      = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.-]*://[^/\s]+(/\S*)?|file://(/\S*))$`)
	noSpacePattern  = regexp.MustCompile(`^\S+$`)
)

// subKeyRule constrains one sub-key of a structured meta entry.
type subKeyRule struct {
	name     string
	required bool
	rules    []validation.Rule
	message  string
}

// metaRule describes the grammar of one well-known meta key.
type metaRule struct {
	structured bool
	subKeys    []subKeyRule
	check      func(e *MetaEntry) *fault
}

func idRule(pattern *regexp.Regexp, message string) subKeyRule {
	return subKeyRule{
		name:     "ID",
		required: true,
		rules:    []validation.Rule{validation.Required, validation.Match(pattern)},
		message:  message,
	}
}

var descriptionRule = subKeyRule{
	name:     "Description",
	required: true,
	rules:    []validation.Rule{validation.Required},
}

var numberRule = subKeyRule{
	name:     "Number",
	required: true,
	rules:    []validation.Rule{validation.Required, validation.Match(numberPattern)},
	message:  "Number is not a number, A, R, G or dot",
}

var metaRules = map[string]metaRule{
	"INFO": {
		structured: true,
		subKeys: []subKeyRule{
			idRule(metaIDPattern, "ID is not alphanumeric"),
			numberRule,
			{
				name:     "Type",
				required: true,
				rules:    []validation.Rule{validation.Required, validation.In("Integer", "Float", "Flag", "Character", "String")},
				message:  "Type is not Integer, Float, Flag, Character or String",
			},
			descriptionRule,
		},
		check: func(e *MetaEntry) *fault {
			typ, _ := e.Field("Type")
			number, _ := e.Field("Number")
			if typ == "Flag" && number != "0" {
				return newFault("Number", "INFO metadata Number must be 0 for Flag type").
					withDetail("found Number=%s", number)
			}
			return nil
		},
	},
	"FORMAT": {
		structured: true,
		subKeys: []subKeyRule{
			idRule(metaIDPattern, "ID is not alphanumeric"),
			numberRule,
			{
				name:     "Type",
				required: true,
				rules:    []validation.Rule{validation.Required, validation.In("Integer", "Float", "Character", "String")},
				message:  "Type is not Integer, Float, Character or String",
			},
			descriptionRule,
		},
	},
	"FILTER": {
		structured: true,
		subKeys: []subKeyRule{
			idRule(metaIDPattern, "ID is not alphanumeric"),
			descriptionRule,
		},
	},
	"ALT": {
		structured: true,
		subKeys: []subKeyRule{
			idRule(altIDPattern, "ID is not a colon-separated list of alphanumeric strings"),
			descriptionRule,
		},
	},
	"contig": {
		structured: true,
		subKeys: []subKeyRule{
			idRule(contigIDPattern, "ID is not a valid contig name"),
			{
				name:    "length",
				rules:   []validation.Rule{validation.Match(unsignedPattern)},
				message: "length is not a non-negative number",
			},
		},
	},
	"SAMPLE": {
		structured: true,
		subKeys: []subKeyRule{
			idRule(metaIDPattern, "ID is not alphanumeric"),
		},
	},
	"PEDIGREE": {
		structured: true,
	},
	"assembly": {
		subKeys: []subKeyRule{{
			rules:   []validation.Rule{validation.Required, validation.Match(noSpacePattern)},
			message: "is not a URL or file name",
		}},
	},
}

// parseMetaLine parses the text of a meta line following the leading "##".
func parseMetaLine(line string) (*MetaEntry, *fault) {
	key, value, ok := strings.Cut(line, "=")
	if !ok || key == "" {
		return nil, newFault("", "Metadata line is not a key=value pair").
			withDetail("line %q", truncate(line))
	}
	if !metaKeyPattern.MatchString(key) {
		return nil, newFault("", "Metadata key is not alphanumeric").withDetail("key %q", key)
	}
	if value == "" {
		return nil, newFault(key, "Metadata value is empty").withDetail("key %s", key)
	}

	if key == "pedigreeDB" {
		inner, enclosed := enclosedValue(value)
		if !enclosed || !urlPattern.MatchString(inner) {
			return nil, newFault(key, "pedigreeDB metadata is not a URL enclosed in angle brackets").
				withDetail("value %q", truncate(value))
		}
		return &MetaEntry{Key: key, Value: value}, nil
	}

	rule, known := metaRules[key]
	inner, enclosed := enclosedValue(value)
	if rule.structured && !enclosed {
		return nil, newFault(key, key+" metadata is not enclosed in angle brackets")
	}

	e := &MetaEntry{Key: key}
	if enclosed {
		fields, f := parseStructuredValue(key, inner)
		if f != nil {
			return nil, f
		}
		e.Fields = fields
	} else {
		e.Value = value
	}

	if !known {
		if f := checkURLFields(e); f != nil {
			return nil, f
		}
		return e, nil
	}
	if !e.Structured() {
		for _, r := range rule.subKeys {
			if err := validation.Validate(e.Value, r.rules...); err != nil {
				return nil, newFault(key, key+" metadata "+r.message).withDetail("value %q", truncate(e.Value))
			}
		}
		return e, nil
	}
	for _, r := range rule.subKeys {
		v, present := e.Field(r.name)
		if !present {
			if r.required {
				return nil, newFault(r.name, key+" metadata "+r.name+" is missing")
			}
			continue
		}
		if err := validation.Validate(v, r.rules...); err != nil {
			msg := r.message
			if msg == "" || v == "" {
				msg = r.name + " is missing"
			}
			return nil, newFault(r.name, key+" metadata "+msg).withDetail("%s=%s", r.name, truncate(v))
		}
	}
	if f := checkURLFields(e); f != nil {
		return nil, f
	}
	if rule.check != nil {
		if f := rule.check(e); f != nil {
			return nil, f
		}
	}
	return e, nil
}

// checkURLFields validates URL sub-keys of any structured entry.
func checkURLFields(e *MetaEntry) *fault {
	for _, f := range e.Fields {
		if f.Key != "URL" && f.Key != "url" {
			continue
		}
		if err := validation.Validate(f.Value, validation.Required, validation.Match(urlPattern)); err != nil {
			return newFault(f.Key, e.Key+" metadata URL is not a valid URL").
				withDetail("expected scheme://host/path, found %q", truncate(f.Value))
		}
	}
	return nil
}

func enclosedValue(value string) (string, bool) {
	if len(value) >= 2 && value[0] == '<' && value[len(value)-1] == '>' {
		return value[1 : len(value)-1], true
	}
	return "", false
}

// parseStructuredValue splits the inside of a <...> value into key=value
// pairs. Quoted values end at the first double quote not preceded by a
// backslash; the backslash is kept as written.
func parseStructuredValue(key, s string) ([]MetaField, *fault) {
	malformed := func(format string, args ...any) *fault {
		return newFault("", key+" metadata is not a comma-separated list of key=value pairs").
			withDetail(format, args...)
	}
	if s == "" {
		return nil, malformed("no key=value pairs")
	}

	fields := make([]MetaField, 0, 4)
	i, n := 0, len(s)
	for {
		start := i
		for i < n && s[i] != '=' && s[i] != ',' {
			i++
		}
		if i >= n || s[i] != '=' || i == start {
			return nil, malformed("expected key=value at %q", truncate(s[start:]))
		}
		sub := s[start:i]
		if !metaKeyPattern.MatchString(sub) {
			return nil, malformed("key %q is not alphanumeric", sub)
		}
		i++

		var field MetaField
		field.Key = sub
		if i < n && s[i] == '"' {
			i++
			vs := i
			for i < n && !(s[i] == '"' && s[i-1] != '\\') {
				i++
			}
			if i >= n {
				return nil, newFault(sub, key+" metadata "+sub+" is not a properly quoted string").
					withDetail("missing closing quote")
			}
			field.Value = s[vs:i]
			field.Quoted = true
			i++
		} else {
			vs := i
			for i < n && s[i] != ',' {
				if s[i] == '"' {
					return nil, malformed("unexpected quote in value of %s", sub)
				}
				i++
			}
			field.Value = s[vs:i]
			if field.Value == "" {
				return nil, malformed("empty value for %s", sub)
			}
		}
		fields = append(fields, field)

		if i == n {
			return fields, nil
		}
		if s[i] != ',' {
			return nil, malformed("expected ',' after value of %s", sub)
		}
		i++
		if i == n {
			return nil, malformed("trailing comma")
		}
	}
}

func truncate(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
