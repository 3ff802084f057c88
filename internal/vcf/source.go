package vcf

import (
	"sort"
	"strings"
)

// Version is the VCF version declared by the fileformat line.
type Version int

const (
	VersionUnknown Version = iota
	Version41
	Version42
	Version43
)

func (v Version) String() string {
	switch v {
	case Version41:
		return "VCFv4.1"
	case Version42:
		return "VCFv4.2"
	case Version43:
		return "VCFv4.3"
	}
	return "unknown"
}

// ParseVersion maps a fileformat value to a Version.
func ParseVersion(fileformat string) Version {
	switch fileformat {
	case "VCFv4.1":
		return Version41
	case "VCFv4.2":
		return Version42
	case "VCFv4.3":
		return Version43
	}
	return VersionUnknown
}

// MetaField is one key=value pair inside a structured meta value.
type MetaField struct {
	Key    string
	Value  string
	Quoted bool // value was written between double quotes
}

// MetaEntry is one ##key=value line of the meta-information block.
type MetaEntry struct {
	Seq    int    // position in the meta block, starting at 0
	Key    string
	Value  string      // plain value, empty for structured entries
	Fields []MetaField // sub-fields of a <...> value, in file order
}

// Structured reports whether the entry had a <...> value.
func (e *MetaEntry) Structured() bool {
	return e.Fields != nil
}

// Field returns the value of a sub-field of a structured entry.
func (e *MetaEntry) Field(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Key == name {
			return f.Value, true
		}
	}
	return "", false
}

// ID returns the ID sub-field, or an empty string.
func (e *MetaEntry) ID() string {
	id, _ := e.Field("ID")
	return id
}

// String formats the entry as a meta line, without the trailing newline.
func (e *MetaEntry) String() string {
	var b strings.Builder
	b.WriteString("##")
	b.WriteString(e.Key)
	b.WriteByte('=')
	if !e.Structured() {
		b.WriteString(e.Value)
		return b.String()
	}
	b.WriteByte('<')
	for i, f := range e.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		if f.Quoted {
			b.WriteByte('"')
			b.WriteString(f.Value)
			b.WriteByte('"')
		} else {
			b.WriteString(f.Value)
		}
	}
	b.WriteByte('>')
	return b.String()
}

// Source is the shared context of one VCF file: its declared format, meta
// entries and sample names. It is read-only once the header has been parsed.
type Source struct {
	Name       string
	Fileformat string
	Version    Version
	Meta       map[string][]*MetaEntry
	Samples    []string

	metaCount int
}

// NewSource creates an empty source for the named input.
func NewSource(name string) *Source {
	return &Source{
		Name: name,
		Meta: make(map[string][]*MetaEntry),
	}
}

// AddMetaEntry appends an entry, assigning its sequence number.
func (s *Source) AddMetaEntry(e *MetaEntry) {
	e.Seq = s.metaCount
	s.metaCount++
	s.Meta[e.Key] = append(s.Meta[e.Key], e)
}

// MetaEntries returns the entries stored under key, in file order.
func (s *Source) MetaEntries(key string) []*MetaEntry {
	return s.Meta[key]
}

// AllMetaEntries returns every meta entry in file order.
func (s *Source) AllMetaEntries() []*MetaEntry {
	all := make([]*MetaEntry, 0, s.metaCount)
	for _, entries := range s.Meta {
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })
	return all
}

// HasMeta reports whether at least one entry exists for key.
func (s *Source) HasMeta(key string) bool {
	return len(s.Meta[key]) > 0
}

// HasContig reports whether a ##contig entry declares the given name.
func (s *Source) HasContig(name string) bool {
	return s.definition("contig", name) != nil
}

// InfoDefinition returns the ##INFO entry with the given ID, or nil.
func (s *Source) InfoDefinition(id string) *MetaEntry {
	return s.definition("INFO", id)
}

// FormatDefinition returns the ##FORMAT entry with the given ID, or nil.
func (s *Source) FormatDefinition(id string) *MetaEntry {
	return s.definition("FORMAT", id)
}

func (s *Source) definition(key, id string) *MetaEntry {
	for _, e := range s.Meta[key] {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

// HeaderLine formats the #CHROM line for this source.
func (s *Source) HeaderLine() string {
	line := strings.Join(mandatoryColumns, "\t")
	if len(s.Samples) > 0 {
		line += "\tFORMAT\t" + strings.Join(s.Samples, "\t")
	}
	return line
}
