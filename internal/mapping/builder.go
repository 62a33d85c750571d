package mapping

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
)

// DefaultTypeHintField is the reserved field carrying the stored document type.
const DefaultTypeHintField = "_class"

var defaultDateFormats = []string{"date_optional_time", "epoch_millis"}

// Builder turns entity metadata into index mappings. It holds no mutable
// state and is safe for concurrent use.
type Builder struct {
	ctx            *entity.Context
	writeTypeHints bool
	typeHintField  string
	runtime        RuntimeFieldsLoader
}

// Option configures a Builder.
type Option func(*Builder)

// WithTypeHints sets the context default for writing the type hint field.
// Entities may override it through DocumentSpec.WriteTypeHint.
func WithTypeHints(enabled bool) Option {
	return func(b *Builder) { b.writeTypeHints = enabled }
}

// WithTypeHintField renames the type hint field.
func WithTypeHintField(name string) Option {
	return func(b *Builder) {
		if name != "" {
			b.typeHintField = name
		}
	}
}

// WithRuntimeFields sets the loader for runtime-field declarations.
func WithRuntimeFields(l RuntimeFieldsLoader) Option {
	return func(b *Builder) {
		if l != nil {
			b.runtime = l
		}
	}
}

// NewBuilder creates a mapping builder over the given metadata context.
func NewBuilder(ctx *entity.Context, opts ...Option) *Builder {
	b := &Builder{
		ctx:            ctx,
		writeTypeHints: true,
		typeHintField:  DefaultTypeHintField,
		runtime:        FileRuntimeFields{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// TypeHintField returns the configured type hint field name.
func (b *Builder) TypeHintField() string { return b.typeHintField }

// WritesTypeHints returns the context default for type hints.
func (b *Builder) WritesTypeHints() bool { return b.writeTypeHints }

// Build produces the mapping of t.
func (b *Builder) Build(t reflect.Type) (*Mapping, error) {
	e, err := b.ctx.Describe(t)
	if err != nil {
		return nil, fmt.Errorf("build mapping: %w", err)
	}
	return b.BuildEntity(e)
}

// BuildJSON produces the serialized mapping of t.
func (b *Builder) BuildJSON(t reflect.Type) (string, error) {
	m, err := b.Build(t)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal mapping: %w", err)
	}
	return string(data), nil
}

// BuildEntity produces the mapping of already described metadata.
func (b *Builder) BuildEntity(e *entity.Entity) (*Mapping, error) {
	spec := e.Spec()
	m := &Mapping{}
	if spec.Mapping.Enabled != nil && !*spec.Mapping.Enabled {
		m.Enabled = spec.Mapping.Enabled
		return m, nil
	}

	m.Dynamic = string(spec.Dynamic)
	m.DateDetection = spec.Mapping.DateDetection
	m.NumericDetection = spec.Mapping.NumericDetection
	m.DynamicDateFormats = spec.Mapping.DynamicDateFormats

	if path := spec.Mapping.RuntimeFieldsPath; path != "" {
		runtime, err := b.runtime.Load(path)
		if err != nil {
			return nil, domain.NewMappingError(e.Type().String(), "", err.Error())
		}
		m.Runtime = runtime
	}

	w := walk{b: b, hints: e.WriteTypeHint(b.writeTypeHints), path: []reflect.Type{e.Type()}}
	props, err := w.properties(e, nil)
	if err != nil {
		return nil, err
	}
	m.Properties = props
	return m, nil
}

// walk carries the state of one mapping traversal: the resolved type hint
// switch and the stack of types currently being expanded.
type walk struct {
	b     *Builder
	hints bool
	path  []reflect.Type
}

func (w *walk) root() bool { return len(w.path) == 1 }

func (w *walk) onPath(t reflect.Type) bool {
	for _, p := range w.path {
		if p == t {
			return true
		}
	}
	return false
}

func (w *walk) properties(e *entity.Entity, parent *entity.Property) (*Properties, error) {
	props := NewProperties()
	if w.hints {
		props.Set(w.b.typeHintField, typeHint())
	}
	for _, p := range e.Properties() {
		if parent != nil && parent.Ignores(p.FieldName) {
			continue
		}
		if p.SeqNoPrimaryTerm {
			continue
		}
		f, err := w.field(e, p)
		if err != nil {
			return nil, err
		}
		if f != nil {
			props.Set(p.FieldName, f)
		}
	}
	return props, nil
}

func (w *walk) field(e *entity.Entity, p *entity.Property) (*Field, error) {
	switch {
	case p.IsGeoPoint():
		return geoPoint(p.Params), nil
	case p.IsCompletion():
		return completion(p.Params), nil
	case !p.Annotated:
		return nil, nil
	case p.IsGeoShape():
		return geoShape(p.Params), nil
	case p.IsContainer():
		return w.container(p)
	case w.root() && p.ID && p.Params.Type == entity.Auto && !p.IsMultiField():
		return &Field{Type: string(entity.Keyword), Index: boolPtr(true)}, nil
	}

	f, err := scalar(p.Params)
	if err != nil {
		return nil, domain.NewMappingError(e.Type().String(), p.Name, err.Error())
	}
	if p.IsMultiField() {
		f.Fields = NewProperties()
		for _, inner := range p.InnerFields {
			sub, err := scalar(inner.Params)
			if err != nil {
				return nil, domain.NewMappingError(e.Type().String(), p.Name+"."+inner.Suffix, err.Error())
			}
			f.Fields.Set(inner.Suffix, sub)
		}
	}
	return f, nil
}

func (w *walk) container(p *entity.Property) (*Field, error) {
	f := &Field{Type: string(p.Params.Type), Dynamic: string(p.Params.Dynamic)}
	if p.Params.Disabled() {
		f.Enabled = boolPtr(false)
		return f, nil
	}
	if !p.IsEntity() {
		return f, nil
	}

	sub, err := w.b.ctx.Describe(p.ActualType)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", p.Name, err)
	}
	if w.onPath(sub.Type()) {
		// cycle point
		f.Properties = NewProperties()
		return f, nil
	}

	w.path = append(w.path, sub.Type())
	props, err := w.properties(sub, p)
	w.path = w.path[:len(w.path)-1]
	if err != nil {
		return nil, err
	}
	f.Properties = props
	return f, nil
}

func typeHint() *Field {
	return &Field{
		Type:      string(entity.Keyword),
		Index:     boolPtr(false),
		DocValues: boolPtr(false),
	}
}

//nolint:gocyclo,cyclop // one branch per engine parameter
func scalar(p entity.FieldParams) (*Field, error) {
	f := &Field{Type: string(p.Type)}

	if p.Type == entity.Date || p.Type == entity.DateNanos {
		f.Format = dateFormat(p)
	}
	if p.Index != nil && !*p.Index {
		f.Index = boolPtr(false)
	}
	f.Store = p.Store
	f.Fielddata = p.Fielddata
	f.Analyzer = p.Analyzer
	f.SearchAnalyzer = p.SearchAnalyzer
	f.Normalizer = p.Normalizer
	if len(p.CopyTo) > 0 {
		f.CopyTo = p.CopyTo
	}
	f.IgnoreAbove = p.IgnoreAbove
	if p.Coerce != nil && !*p.Coerce {
		f.Coerce = boolPtr(false)
	}
	if p.DocValues != nil && !*p.DocValues {
		f.DocValues = boolPtr(false)
	}
	f.IgnoreMalformed = p.IgnoreMalformed
	if p.IndexOptions != "" && p.IndexOptions != "none" {
		f.IndexOptions = p.IndexOptions
	}
	f.IndexPhrases = p.IndexPhrases
	if p.IndexPrefixes != nil {
		f.IndexPrefixes = &IndexPrefixes{}
		if p.IndexPrefixes.MinChars != 0 && p.IndexPrefixes.MinChars != entity.DefaultPrefixMinChars {
			f.IndexPrefixes.MinChars = p.IndexPrefixes.MinChars
		}
		if p.IndexPrefixes.MaxChars != 0 && p.IndexPrefixes.MaxChars != entity.DefaultPrefixMaxChars {
			f.IndexPrefixes.MaxChars = p.IndexPrefixes.MaxChars
		}
	}
	if p.Norms != nil && !*p.Norms {
		f.Norms = boolPtr(false)
	}
	if p.NullValue != "" {
		v, err := nullValue(p.NullValue, p.NullValueType)
		if err != nil {
			return nil, err
		}
		f.NullValue = v
	}
	if p.PositionIncrementGap != nil && *p.PositionIncrementGap >= 0 {
		f.PositionIncrementGap = p.PositionIncrementGap
	}
	if p.Similarity != "" && !strings.EqualFold(p.Similarity, "default") {
		f.Similarity = p.Similarity
	}
	if p.TermVector != "" && p.TermVector != "none" {
		f.TermVector = p.TermVector
	}
	if p.Type == entity.ScaledFloat {
		f.ScalingFactor = p.ScalingFactor
	}
	f.MaxShingleSize = p.MaxShingleSize
	if p.PositiveScoreImpact != nil && !*p.PositiveScoreImpact {
		f.PositiveScoreImpact = boolPtr(false)
	}
	if p.Type == entity.DenseVector {
		f.Dims = p.Dims
	}
	if p.Disabled() {
		f.Enabled = boolPtr(false)
	}
	f.EagerGlobalOrdinals = p.EagerGlobalOrdinals
	return f, nil
}

func dateFormat(p entity.FieldParams) string {
	formats := p.Formats
	if formats == nil {
		formats = defaultDateFormats
	}
	all := make([]string, 0, len(formats)+len(p.Patterns))
	all = append(all, formats...)
	all = append(all, p.Patterns...)
	return strings.Join(all, "||")
}

func nullValue(raw string, t entity.NullValueType) (any, error) {
	switch t {
	case entity.NullInteger, entity.NullLong:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("null_value %q is not an integer: %w", raw, err)
		}
		return n, nil
	case entity.NullDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("null_value %q is not a double: %w", raw, err)
		}
		return f, nil
	default:
		return raw, nil
	}
}

func geoPoint(p entity.FieldParams) *Field {
	f := &Field{Type: string(entity.GeoPointType), IgnoreMalformed: p.IgnoreMalformed}
	if p.IgnoreZValue != nil && !*p.IgnoreZValue {
		f.IgnoreZValue = boolPtr(false)
	}
	return f
}

func geoShape(p entity.FieldParams) *Field {
	f := &Field{
		Type:            string(entity.GeoShapeType),
		Orientation:     p.Orientation,
		IgnoreMalformed: p.IgnoreMalformed,
	}
	if p.IgnoreZValue != nil && !*p.IgnoreZValue {
		f.IgnoreZValue = boolPtr(false)
	}
	// coerce defaults to false on geo_shape
	if p.Coerce != nil && *p.Coerce {
		f.Coerce = boolPtr(true)
	}
	return f
}

func completion(p entity.FieldParams) *Field {
	f := &Field{
		Type:           string(entity.CompletionType),
		Analyzer:       p.Analyzer,
		SearchAnalyzer: p.SearchAnalyzer,
		MaxInputLength: p.MaxInputLength,
	}
	if p.PreserveSeparators != nil && !*p.PreserveSeparators {
		f.PreserveSeparators = boolPtr(false)
	}
	if p.PreservePositionIncrements != nil && !*p.PreservePositionIncrements {
		f.PreservePositionIncrements = boolPtr(false)
	}
	for _, c := range p.Contexts {
		f.Contexts = append(f.Contexts, CompletionContext(c))
	}
	return f
}

func boolPtr(b bool) *bool { return &b }
