package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Known metadata keys.
const (
	KeySourceType = "source_type"
	KeySourceFile = "source_file"
	KeyFilename   = "filename"
	KeyFileType   = "file_type"
	KeyURL        = "url"
	KeyTitle      = "title"
	KeySection    = "section"
	KeyPage       = "page"
)

// Metadata is the tagged metadata carried by a chunk. SourceType selects
// which of the typed fields are meaningful; anything else lands in Extra.
type Metadata struct {
	SourceType SourceType
	SourceFile string // Explicit grouping key, overrides the derived one
	Filename   string // file
	FileType   string // file
	Page       int    // file, 0 when unknown
	URL        string // web
	Title      string // web
	Section    string
	Extra      map[string]any
}

// SourceKey is the grouping key used by the diversity cap.
func (m Metadata) SourceKey() string {
	switch {
	case m.SourceFile != "":
		return m.SourceFile
	case m.SourceType == SourceWeb && m.URL != "":
		return m.URL
	case m.Filename != "":
		return m.Filename
	case m.URL != "":
		return m.URL
	case m.Title != "":
		return m.Title
	}
	return string(m.SourceType)
}

// Attribution renders a human readable citation.
func (m Metadata) Attribution() string {
	switch m.SourceType {
	case SourceFile:
		name := m.Filename
		if name == "" {
			name = m.SourceFile
		}
		kind := m.FileType
		if kind == "" {
			kind = "FILE"
		}
		if m.Page > 0 {
			return fmt.Sprintf("%s: %s, Page %d", strings.ToUpper(kind), name, m.Page)
		}
		return fmt.Sprintf("%s: %s", strings.ToUpper(kind), name)
	case SourceWeb:
		url := m.URL
		if url == "" {
			url = "unknown"
		}
		if m.Title == "" {
			return "WEB: " + url
		}
		return fmt.Sprintf("WEB: %s (%s)", m.Title, url)
	case SourceFallback:
		return "Built-in school facts"
	case SourceSample:
		if m.Title != "" {
			return "SAMPLE: " + m.Title
		}
		return "SAMPLE: " + m.SourceKey()
	}
	return m.SourceKey()
}

// Map flattens the metadata into the open mapping used on the wire.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.Extra)+8)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[KeySourceType] = string(m.SourceType)
	putString(out, KeySourceFile, m.SourceFile)
	putString(out, KeyFilename, m.Filename)
	putString(out, KeyFileType, m.FileType)
	putString(out, KeyURL, m.URL)
	putString(out, KeyTitle, m.Title)
	putString(out, KeySection, m.Section)
	if m.Page > 0 {
		out[KeyPage] = m.Page
	}
	return out
}

// MetadataFromMap parses an open mapping. Unknown source types are kept
// verbatim so they still group and cite sensibly.
func MetadataFromMap(in map[string]any) Metadata {
	m := Metadata{}
	for k, v := range in {
		switch k {
		case KeySourceType:
			m.SourceType = SourceType(toString(v))
		case KeySourceFile:
			m.SourceFile = toString(v)
		case KeyFilename:
			m.Filename = toString(v)
		case KeyFileType:
			m.FileType = toString(v)
		case KeyURL:
			m.URL = toString(v)
		case KeyTitle:
			m.Title = toString(v)
		case KeySection:
			m.Section = toString(v)
		case KeyPage:
			m.Page = toInt(v)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	if m.SourceType == "" {
		m.SourceType = SourceSample
	}
	return m
}

// MarshalJSON encodes Metadata as a flat object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

// UnmarshalJSON decodes a flat object into Metadata.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MetadataFromMap(raw)
	return nil
}

func putString(out map[string]any, key, value string) {
	if value != "" {
		out[key] = value
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	}
	return 0
}
