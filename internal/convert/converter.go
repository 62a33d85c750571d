// Package convert turns entities into source documents and back.
package convert

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/result"
)

// DefaultTypeHintField is the source key carrying the type hint.
const DefaultTypeHintField = "_class"

// Converter writes and reads documents using entity metadata.
// It is safe for concurrent use.
type Converter struct {
	ctx            *entity.Context
	writeTypeHints bool
	typeHintField  string
}

// Option configures a Converter.
type Option func(*Converter)

// WithTypeHints sets the default for entities that do not decide themselves.
func WithTypeHints(enabled bool) Option {
	return func(c *Converter) { c.writeTypeHints = enabled }
}

// WithTypeHintField renames the type hint key.
func WithTypeHintField(name string) Option {
	return func(c *Converter) {
		if name != "" {
			c.typeHintField = name
		}
	}
}

// New creates a converter over ctx.
func New(ctx *entity.Context, opts ...Option) *Converter {
	c := &Converter{ctx: ctx, writeTypeHints: true, typeHintField: DefaultTypeHintField}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Context returns the metadata context.
func (c *Converter) Context() *entity.Context { return c.ctx }

// TypeHintField returns the type hint key.
func (c *Converter) TypeHintField() string { return c.typeHintField }

// Write converts a struct (or pointer to struct) into a source document.
func (c *Converter) Write(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("write document: nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	e, err := c.ctx.Describe(rv.Type())
	if err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}
	doc, err := c.writeEntity(e, rv)
	if err != nil {
		return nil, err
	}
	if e.WriteTypeHint(c.writeTypeHints) {
		doc[c.typeHintField] = e.TypeAlias()
	}
	return doc, nil
}

func (c *Converter) writeEntity(e *entity.Entity, rv reflect.Value) (map[string]any, error) {
	doc := make(map[string]any, len(e.Properties()))
	for _, p := range e.Properties() {
		if p.SeqNoPrimaryTerm {
			continue
		}
		fv, ok := p.Value(rv)
		if !ok {
			continue
		}
		out, ok, err := c.writeValue(p, fv)
		if err != nil {
			return nil, fmt.Errorf("write %s.%s: %w", e.Name(), p.Name, err)
		}
		if ok {
			doc[p.FieldName] = out
		}
	}
	return doc, nil
}

//nolint:gocyclo,cyclop // one case per kind
func (c *Converter) writeValue(p *entity.Property, v reflect.Value) (any, bool, error) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, false, nil
		}
		return c.writeValue(p, v.Elem())
	case reflect.Slice:
		if v.IsNil() {
			return nil, false, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface(), true, nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, 0, v.Len())
		for i := range v.Len() {
			item, ok, err := c.writeValue(p, v.Index(i))
			if err != nil {
				return nil, false, err
			}
			if ok {
				out = append(out, item)
			}
		}
		return out, true, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, false, nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			item, ok, err := c.writeValue(p, iter.Value())
			if err != nil {
				return nil, false, err
			}
			if ok {
				out[fmt.Sprint(iter.Key().Interface())] = item
			}
		}
		return out, true, nil
	case reflect.Struct:
		return c.writeStruct(p, v)
	default:
		return v.Interface(), true, nil
	}
}

func (c *Converter) writeStruct(p *entity.Property, v reflect.Value) (any, bool, error) {
	switch x := v.Interface().(type) {
	case time.Time:
		return writeTime(x, p.Params), true, nil
	case entity.GeoPoint:
		return map[string]any{"lat": x.Lat, "lon": x.Lon}, true, nil
	case entity.Completion:
		out := map[string]any{"input": x.Input}
		if x.Weight != nil {
			out["weight"] = *x.Weight
		}
		if len(x.Contexts) > 0 {
			out["contexts"] = x.Contexts
		}
		return out, true, nil
	}
	sub, err := c.ctx.Describe(v.Type())
	if err != nil {
		return nil, false, fmt.Errorf("describe %s: %w", v.Type(), err)
	}
	doc, err := c.writeEntity(sub, v)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Read decodes a source document into target, which must be a pointer to a struct.
// Date properties are parsed with their declared formats; numbers may be
// float64 or json.Number.
func (c *Converter) Read(doc map[string]any, target any) error {
	if e, err := c.ctx.DescribeValue(target); err == nil {
		doc = c.resolveDates(e, doc)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "es",
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			epochToTimeHook(),
			dateOnlyToTimeHook(),
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if err := dec.Decode(doc); err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	return nil
}

// ReadDocument decodes a hit into target and fills the identifier, version
// and seq-no properties from hit metadata.
func (c *Converter) ReadDocument(d *result.SearchDocument, target any) error {
	if err := c.Read(d.Source, target); err != nil {
		return err
	}
	e, err := c.ctx.DescribeValue(target)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if e.IDProperty() != nil && d.ID != "" {
		if err := e.SetIdentifier(target, d.ID); err != nil {
			return fmt.Errorf("read document: %w", err)
		}
	}
	if d.Version != nil {
		if err := e.SetVersion(target, *d.Version); err != nil {
			return fmt.Errorf("read document: %w", err)
		}
	}
	if d.SeqNo != nil && d.PrimaryTerm != nil {
		token := entity.SeqNoPrimaryTerm{SeqNo: *d.SeqNo, PrimaryTerm: *d.PrimaryTerm}
		if err := e.SetSeqNoPrimaryTerm(target, token); err != nil {
			return fmt.Errorf("read document: %w", err)
		}
	}
	return nil
}

// ReadType decodes d into a new value of struct type t and returns a pointer to it.
func (c *Converter) ReadType(t reflect.Type, d *result.SearchDocument) (any, error) {
	ptr := reflect.New(t)
	if err := c.ReadDocument(d, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// ReadAs decodes d into a new T.
func ReadAs[T any](c *Converter, d *result.SearchDocument) (T, error) {
	var out T
	if err := c.ReadDocument(d, &out); err != nil {
		return out, err
	}
	return out, nil
}

var timeType = reflect.TypeOf(time.Time{})

func epochToTimeHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != timeType {
			return data, nil
		}
		if n, ok := epochValue(data); ok {
			if _, isString := data.(string); !isString {
				return time.UnixMilli(n).UTC(), nil
			}
		}
		return data, nil
	}
}

func dateOnlyToTimeHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		s, ok := data.(string)
		if !ok || to != timeType || len(s) != len(time.DateOnly) {
			return data, nil
		}
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return data, nil //nolint:nilerr // left for the next hook
		}
		return t, nil
	}
}
