package entity

import "strings"

// FieldType is the engine field type written into a mapping.
type FieldType string

// Field types. Auto leaves the type to the engine and writes no type key.
const (
	Auto            FieldType = ""
	Text            FieldType = "text"
	Keyword         FieldType = "keyword"
	Long            FieldType = "long"
	Integer         FieldType = "integer"
	Short           FieldType = "short"
	Byte            FieldType = "byte"
	Double          FieldType = "double"
	Float           FieldType = "float"
	HalfFloat       FieldType = "half_float"
	ScaledFloat     FieldType = "scaled_float"
	Date            FieldType = "date"
	DateNanos       FieldType = "date_nanos"
	Boolean         FieldType = "boolean"
	Binary          FieldType = "binary"
	IntegerRange    FieldType = "integer_range"
	FloatRange      FieldType = "float_range"
	LongRange       FieldType = "long_range"
	DoubleRange     FieldType = "double_range"
	DateRange       FieldType = "date_range"
	IPRange         FieldType = "ip_range"
	Object          FieldType = "object"
	Nested          FieldType = "nested"
	IP              FieldType = "ip"
	TokenCount      FieldType = "token_count"
	Percolator      FieldType = "percolator"
	Flattened       FieldType = "flattened"
	SearchAsYouType FieldType = "search_as_you_type"
	RankFeature     FieldType = "rank_feature"
	RankFeatures    FieldType = "rank_features"
	Wildcard        FieldType = "wildcard"
	DenseVector     FieldType = "dense_vector"
	ConstantKeyword FieldType = "constant_keyword"
	GeoPointType    FieldType = "geo_point"
	GeoShapeType    FieldType = "geo_shape"
	CompletionType  FieldType = "completion"
)

var knownFieldTypes = map[FieldType]struct{}{
	Text: {}, Keyword: {}, Long: {}, Integer: {}, Short: {}, Byte: {}, Double: {}, Float: {},
	HalfFloat: {}, ScaledFloat: {}, Date: {}, DateNanos: {}, Boolean: {}, Binary: {},
	IntegerRange: {}, FloatRange: {}, LongRange: {}, DoubleRange: {}, DateRange: {}, IPRange: {},
	Object: {}, Nested: {}, IP: {}, TokenCount: {}, Percolator: {}, Flattened: {},
	SearchAsYouType: {}, RankFeature: {}, RankFeatures: {}, Wildcard: {}, DenseVector: {},
	ConstantKeyword: {}, GeoPointType: {}, GeoShapeType: {}, CompletionType: {},
}

// ParseFieldType maps a tag value to a FieldType. "auto" and "" yield Auto.
func ParseFieldType(s string) (FieldType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return Auto, true
	}
	ft := FieldType(s)
	_, ok := knownFieldTypes[ft]
	return ft, ok
}

// IsContainer reports whether the type holds sub-properties.
func (t FieldType) IsContainer() bool { return t == Object || t == Nested }

// Dynamic controls how the engine treats unmapped fields.
type Dynamic string

// Dynamic mapping modes. DynamicInherit writes nothing.
const (
	DynamicInherit Dynamic = ""
	DynamicTrue    Dynamic = "true"
	DynamicFalse   Dynamic = "false"
	DynamicStrict  Dynamic = "strict"
	DynamicRuntime Dynamic = "runtime"
)

func parseDynamic(s string) (Dynamic, bool) {
	switch d := Dynamic(strings.ToLower(s)); d {
	case DynamicInherit, DynamicTrue, DynamicFalse, DynamicStrict, DynamicRuntime:
		return d, true
	}
	if strings.EqualFold(s, "inherit") {
		return DynamicInherit, true
	}
	return "", false
}

// VersionType is the versioning scheme applied to index requests carrying a version.
type VersionType string

// Version types.
const (
	VersionInternal    VersionType = "internal"
	VersionExternal    VersionType = "external"
	VersionExternalGTE VersionType = "external_gte"
)

// TypeHint is a tri-state switch for writing the type discriminator field.
type TypeHint int

// Type hint settings. TypeHintDefault defers to the mapping context.
const (
	TypeHintDefault TypeHint = iota
	TypeHintTrue
	TypeHintFalse
)

// Resolve returns the effective setting given the context default.
func (h TypeHint) Resolve(contextDefault bool) bool {
	switch h {
	case TypeHintTrue:
		return true
	case TypeHintFalse:
		return false
	default:
		return contextDefault
	}
}

// NullValueType is the JSON type used to write a null_value parameter.
type NullValueType string

// Null value types.
const (
	NullString  NullValueType = "string"
	NullInteger NullValueType = "integer"
	NullLong    NullValueType = "long"
	NullDouble  NullValueType = "double"
)

// GeoPoint is a latitude/longitude pair. Fields of this type map to geo_point.
type GeoPoint struct {
	Lat float64 `es:"lat" json:"lat"`
	Lon float64 `es:"lon" json:"lon"`
}

// SeqNoPrimaryTerm carries the optimistic concurrency token of a stored document.
// Fields of this type are filled from hit metadata and never written to the source or the mapping.
type SeqNoPrimaryTerm struct {
	SeqNo       int64
	PrimaryTerm int64
}

// Completion is the input of a completion suggester field.
type Completion struct {
	Input    []string            `es:"input" json:"input"`
	Weight   *int                `es:"weight" json:"weight,omitempty"`
	Contexts map[string][]string `es:"contexts" json:"contexts,omitempty"`
}
