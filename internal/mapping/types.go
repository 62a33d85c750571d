package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Mapping is the root of an index mapping document.
type Mapping struct {
	Enabled            *bool          `json:"enabled,omitempty"`
	Dynamic            string         `json:"dynamic,omitempty"`
	DateDetection      *bool          `json:"date_detection,omitempty"`
	NumericDetection   *bool          `json:"numeric_detection,omitempty"`
	DynamicDateFormats []string       `json:"dynamic_date_formats,omitempty"`
	Runtime            map[string]any `json:"runtime,omitempty"`
	Properties         *Properties    `json:"properties,omitempty"`
}

// Field is one node of the mapping tree. Struct order fixes the key order of the output.
type Field struct {
	Type                       string              `json:"type,omitempty"`
	Format                     string              `json:"format,omitempty"`
	Index                      *bool               `json:"index,omitempty"`
	Store                      bool                `json:"store,omitempty"`
	Fielddata                  bool                `json:"fielddata,omitempty"`
	Analyzer                   string              `json:"analyzer,omitempty"`
	SearchAnalyzer             string              `json:"search_analyzer,omitempty"`
	Normalizer                 string              `json:"normalizer,omitempty"`
	CopyTo                     []string            `json:"copy_to,omitempty"`
	IgnoreAbove                *int                `json:"ignore_above,omitempty"`
	Orientation                string              `json:"orientation,omitempty"`
	IgnoreMalformed            bool                `json:"ignore_malformed,omitempty"`
	IgnoreZValue               *bool               `json:"ignore_z_value,omitempty"`
	Coerce                     *bool               `json:"coerce,omitempty"`
	DocValues                  *bool               `json:"doc_values,omitempty"`
	IndexOptions               string              `json:"index_options,omitempty"`
	IndexPhrases               bool                `json:"index_phrases,omitempty"`
	IndexPrefixes              *IndexPrefixes      `json:"index_prefixes,omitempty"`
	Norms                      *bool               `json:"norms,omitempty"`
	NullValue                  any                 `json:"null_value,omitempty"`
	PositionIncrementGap       *int                `json:"position_increment_gap,omitempty"`
	Similarity                 string              `json:"similarity,omitempty"`
	TermVector                 string              `json:"term_vector,omitempty"`
	ScalingFactor              *float64            `json:"scaling_factor,omitempty"`
	MaxShingleSize             *int                `json:"max_shingle_size,omitempty"`
	PositiveScoreImpact        *bool               `json:"positive_score_impact,omitempty"`
	Dims                       int                 `json:"dims,omitempty"`
	MaxInputLength             *int                `json:"max_input_length,omitempty"`
	PreserveSeparators         *bool               `json:"preserve_separators,omitempty"`
	PreservePositionIncrements *bool               `json:"preserve_position_increments,omitempty"`
	Contexts                   []CompletionContext `json:"contexts,omitempty"`
	Dynamic                    string              `json:"dynamic,omitempty"`
	Enabled                    *bool               `json:"enabled,omitempty"`
	EagerGlobalOrdinals        bool                `json:"eager_global_ordinals,omitempty"`
	Fields                     *Properties         `json:"fields,omitempty"`
	Properties                 *Properties         `json:"properties,omitempty"`
}

// IndexPrefixes is written as an object; engine defaults are left out.
type IndexPrefixes struct {
	MinChars int `json:"min_chars,omitempty"`
	MaxChars int `json:"max_chars,omitempty"`
}

// CompletionContext is a context declaration of a completion field.
type CompletionContext struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Path      string `json:"path,omitempty"`
	Precision string `json:"precision,omitempty"`
}

// Properties is a name -> field map that keeps insertion order when serialized.
type Properties struct {
	keys   []string
	fields map[string]*Field
}

// NewProperties creates an empty ordered property map.
func NewProperties() *Properties {
	return &Properties{fields: make(map[string]*Field)}
}

// Set adds or replaces a field. New names are appended.
func (p *Properties) Set(name string, f *Field) {
	if _, ok := p.fields[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.fields[name] = f
}

// Get returns a field by name.
func (p *Properties) Get(name string) (*Field, bool) {
	f, ok := p.fields[name]
	return f, ok
}

// Keys returns field names in insertion order.
func (p *Properties) Keys() []string { return p.keys }

// Len returns the number of fields.
func (p *Properties) Len() int { return len(p.keys) }

// MarshalJSON writes fields in insertion order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal property name %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(p.fields[k])
		if err != nil {
			return nil, fmt.Errorf("marshal property %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
