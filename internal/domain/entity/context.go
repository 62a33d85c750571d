package entity

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/esodm/internal/domain"
)

// Context builds and caches entity metadata. Safe for concurrent use;
// concurrent first calls for a type share a single build.
type Context struct {
	entities sync.Map // reflect.Type -> *Entity
	group    singleflight.Group
}

// NewContext creates an empty metadata context.
func NewContext() *Context { return &Context{} }

// Describe returns the metadata of T, building it on first use.
func Describe[T any](c *Context) (*Entity, error) {
	return c.Describe(reflect.TypeOf((*T)(nil)).Elem())
}

// DescribeValue returns the metadata of the dynamic type of v.
func (c *Context) DescribeValue(v any) (*Entity, error) {
	if v == nil {
		return nil, domain.IllegalArgument("describe: nil value")
	}
	return c.Describe(reflect.TypeOf(v))
}

// Describe returns the metadata of t (pointers are stripped), building it on first use.
func (c *Context) Describe(t reflect.Type) (*Entity, error) {
	if t == nil {
		return nil, domain.IllegalArgument("describe: nil type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if e, ok := c.entities.Load(t); ok {
		return e.(*Entity), nil //nolint:forcetypeassert // only *Entity is stored
	}

	v, err, _ := c.group.Do(typeKey(t), func() (any, error) {
		if e, ok := c.entities.Load(t); ok {
			return e, nil
		}
		e, err := build(t)
		if err != nil {
			return nil, err
		}
		actual, _ := c.entities.LoadOrStore(t, e)
		return actual, nil
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // already a mapping error
	}
	return v.(*Entity), nil //nolint:forcetypeassert // only *Entity is returned
}

// PropertyEntity returns the metadata of the struct held by a composite property.
func (c *Context) PropertyEntity(p *Property) (*Entity, error) {
	if !p.IsEntity() {
		return nil, fmt.Errorf("property %s is not an entity", p.Name)
	}
	return c.Describe(p.ActualType)
}

// Entities returns every entity built so far, ordered by type name.
func (c *Context) Entities() []*Entity {
	var out []*Entity
	c.entities.Range(func(_, v any) bool {
		out = append(out, v.(*Entity)) //nolint:forcetypeassert // only *Entity is stored
		return true
	})
	sort.Slice(out, func(i, j int) bool { return typeKey(out[i].typ) < typeKey(out[j].typ) })
	return out
}

// ResolveFieldName maps a dotted property path (Author.Name) to its wire path
// (author.name). Segments that cannot be resolved pass through unchanged.
func (c *Context) ResolveFieldName(e *Entity, path string) string {
	if e == nil || path == "" {
		return path
	}
	segments := strings.Split(path, ".")
	out := make([]string, len(segments))
	current := e
	for i, seg := range segments {
		if current == nil {
			out[i] = seg
			continue
		}
		p, ok := current.Property(seg)
		if !ok {
			p, ok = current.PropertyByFieldName(seg)
		}
		if !ok {
			out[i] = seg
			current = nil
			continue
		}
		out[i] = p.FieldName
		current = nil
		if p.IsEntity() && i < len(segments)-1 {
			if sub, err := c.Describe(p.ActualType); err == nil {
				current = sub
			}
		}
	}
	return strings.Join(out, ".")
}

// ResolvePropertyName maps a dotted wire path back to a property path.
func (c *Context) ResolvePropertyName(e *Entity, path string) string {
	if e == nil || path == "" {
		return path
	}
	segments := strings.Split(path, ".")
	out := make([]string, len(segments))
	current := e
	for i, seg := range segments {
		if current == nil {
			out[i] = seg
			continue
		}
		p, ok := current.PropertyByFieldName(seg)
		if !ok {
			out[i] = seg
			current = nil
			continue
		}
		out[i] = p.Name
		current = nil
		if p.IsEntity() && i < len(segments)-1 {
			if sub, err := c.Describe(p.ActualType); err == nil {
				current = sub
			}
		}
	}
	return strings.Join(out, ".")
}

// ResolvePath is ResolveFieldName that also returns the wire path of the
// innermost nested container the path crosses, or "" when it crosses none.
func (c *Context) ResolvePath(e *Entity, path string) (field, nestedPath string) {
	field = c.ResolveFieldName(e, path)
	if e == nil || path == "" {
		return field, ""
	}
	segments := strings.Split(path, ".")
	wire := strings.Split(field, ".")
	current := e
	for i, seg := range segments[:len(segments)-1] {
		p, ok := current.Property(seg)
		if !ok {
			p, ok = current.PropertyByFieldName(seg)
		}
		if !ok || !p.IsEntity() {
			break
		}
		if p.Params.Type == Nested {
			nestedPath = strings.Join(wire[:i+1], ".")
		}
		sub, err := c.Describe(p.ActualType)
		if err != nil {
			break
		}
		current = sub
	}
	return field, nestedPath
}

func typeKey(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.String()
}

func build(t reflect.Type) (*Entity, error) {
	if t.Kind() != reflect.Struct {
		return nil, domain.NewMappingError(t.String(), "", "not a struct")
	}

	e := &Entity{
		typ:     t,
		byName:  make(map[string]*Property),
		byField: make(map[string]*Property),
	}
	if s, ok := reflect.New(t).Interface().(Specifier); ok {
		e.spec = s.DocumentSpec()
	}

	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !f.IsExported() {
			continue
		}
		p, err := buildProperty(t, f)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if err := e.addProperty(p); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func buildProperty(owner reflect.Type, f reflect.StructField) (*Property, error) {
	tag, annotated := f.Tag.Lookup(tagKey)
	if tag == "-" {
		return nil, nil
	}

	p := &Property{
		Name:       f.Name,
		FieldName:  defaultFieldName(f.Name),
		Annotated:  annotated,
		Type:       f.Type,
		ActualType: actualType(f.Type),
		index:      f.Index,
	}

	if annotated {
		ft, err := parseFieldTag(tag)
		if err != nil {
			return nil, domain.NewMappingError(owner.String(), f.Name, err.Error())
		}
		if ft.name != "" {
			p.FieldName = ft.name
		}
		p.ID = ft.id
		p.Version = ft.version
		p.SeqNoPrimaryTerm = ft.seqNo
		p.Params = ft.params
		p.IgnoreFields = ft.ignoreFields
	}
	if p.ActualType == seqNoType {
		p.SeqNoPrimaryTerm = true
	}

	if inner, ok := f.Tag.Lookup(innerTagKey); ok {
		fields, err := parseInnerFields(inner)
		if err != nil {
			return nil, domain.NewMappingError(owner.String(), f.Name, err.Error())
		}
		p.InnerFields = fields
	}

	if err := validateProperty(owner, p); err != nil {
		return nil, err
	}
	return p, nil
}

func validateProperty(owner reflect.Type, p *Property) error {
	if p.Params.Enabled != nil && !p.IsContainer() {
		container := p.Params.Type == Auto && (p.IsEntity() || p.IsMap() || isInterface(p.ActualType))
		if !container {
			return domain.NewMappingError(owner.String(), p.Name,
				"enabled is only allowed on object and nested fields")
		}
	}
	if p.SeqNoPrimaryTerm && p.ActualType != seqNoType {
		return domain.NewMappingError(owner.String(), p.Name, "seqno property must be of type SeqNoPrimaryTerm")
	}
	if p.Version && !isInteger(p.ActualType) {
		return domain.NewMappingError(owner.String(), p.Name, "version property must be an integer")
	}
	if p.ID && !isInteger(p.ActualType) && p.ActualType.Kind() != reflect.String {
		return domain.NewMappingError(owner.String(), p.Name, "id property must be a string or an integer")
	}
	if p.Params.Type == ScaledFloat && p.Params.ScalingFactor == nil {
		return domain.NewMappingError(owner.String(), p.Name, "scaled_float requires scaling_factor")
	}
	if p.Params.Type == DenseVector && p.Params.Dims <= 0 {
		return domain.NewMappingError(owner.String(), p.Name, "dense_vector requires dims")
	}
	return nil
}

func (e *Entity) addProperty(p *Property) error {
	owner := e.typ.String()
	switch {
	case p.ID:
		if e.id != nil {
			return domain.NewMappingError(owner, p.Name,
				fmt.Sprintf("duplicate id property (already %s)", e.id.Name))
		}
		e.id = p
	case p.Version:
		if e.version != nil {
			return domain.NewMappingError(owner, p.Name,
				fmt.Sprintf("duplicate version property (already %s)", e.version.Name))
		}
		e.version = p
	case p.SeqNoPrimaryTerm:
		if e.seqNo != nil {
			return domain.NewMappingError(owner, p.Name,
				fmt.Sprintf("duplicate seqno property (already %s)", e.seqNo.Name))
		}
		e.seqNo = p
	}
	if other, ok := e.byField[p.FieldName]; ok {
		return domain.NewMappingError(owner, p.Name,
			fmt.Sprintf("field name %q already used by %s", p.FieldName, other.Name))
	}
	e.properties = append(e.properties, p)
	e.byName[p.Name] = p
	e.byField[p.FieldName] = p
	return nil
}

func actualType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
				return t
			}
			t = t.Elem()
		case reflect.Map:
			t = t.Elem()
		default:
			return t
		}
	}
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isInterface(t reflect.Type) bool { return t.Kind() == reflect.Interface }
