package entity

// IndexPrefixes configures the index_prefixes parameter. Zero values keep engine defaults.
type IndexPrefixes struct {
	MinChars int
	MaxChars int
}

// Engine defaults for index_prefixes.
const (
	DefaultPrefixMinChars = 2
	DefaultPrefixMaxChars = 5
)

// CompletionContext is a context declaration of a completion field.
type CompletionContext struct {
	Name      string
	Type      string // category or geo
	Path      string
	Precision string
}

// FieldParams are the mapping parameters declared on a field.
// Pointer fields distinguish "not declared" from an explicit value; only values
// that differ from the engine default are written into a mapping.
type FieldParams struct {
	Type FieldType

	Store               bool
	Fielddata           bool
	IgnoreMalformed     bool
	IndexPhrases        bool
	EagerGlobalOrdinals bool

	Index               *bool
	DocValues           *bool
	Norms               *bool
	Coerce              *bool
	Enabled             *bool
	PositiveScoreImpact *bool
	IgnoreZValue        *bool

	Analyzer       string
	SearchAnalyzer string
	Normalizer     string
	IndexOptions   string
	Similarity     string
	TermVector     string
	Orientation    string

	IgnoreAbove          *int
	PositionIncrementGap *int
	MaxShingleSize       *int
	ScalingFactor        *float64
	Dims                 int

	CopyTo []string
	// Formats nil means the date default; an empty non-nil slice means no built-in format.
	Formats  []string
	Patterns []string

	NullValue     string
	NullValueType NullValueType

	IndexPrefixes *IndexPrefixes

	// Dynamic applies to object and nested containers.
	Dynamic Dynamic

	MaxInputLength             *int
	PreserveSeparators         *bool
	PreservePositionIncrements *bool
	Contexts                   []CompletionContext
}

// InnerField is a named sub-field of a multi-field property.
type InnerField struct {
	Suffix string
	Params FieldParams
}

// Disabled reports whether the field carries enabled=false.
func (p FieldParams) Disabled() bool { return p.Enabled != nil && !*p.Enabled }

func ptr[T any](v T) *T { return &v }
