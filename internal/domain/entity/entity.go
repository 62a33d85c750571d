package entity

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// MappingSpec holds entity-level mapping switches.
type MappingSpec struct {
	// Enabled=false stores documents without indexing any field.
	Enabled            *bool
	DateDetection      *bool
	NumericDetection   *bool
	DynamicDateFormats []string
	// RuntimeFieldsPath names an external JSON or YAML declaration of runtime fields.
	RuntimeFieldsPath string
}

// DocumentSpec holds entity-level settings. A type declares them by
// implementing Specifier on its value receiver.
type DocumentSpec struct {
	IndexName     string
	VersionType   VersionType
	Dynamic       Dynamic
	WriteTypeHint TypeHint
	// TypeAlias replaces the Go type name in the type hint field.
	TypeAlias string
	// GenerateIDs assigns a UUID to an empty string identifier before indexing.
	GenerateIDs bool
	Mapping     MappingSpec
}

// Specifier is implemented by types that carry entity-level settings.
type Specifier interface {
	DocumentSpec() DocumentSpec
}

// Property describes one struct field.
type Property struct {
	// Name is the Go field name.
	Name string
	// FieldName is the name used on the wire.
	FieldName string
	Params    FieldParams
	// InnerFields are the sub-fields of a multi-field.
	InnerFields []InnerField
	// IgnoreFields lists sub-property field names skipped when the mapping recurses into this property.
	IgnoreFields []string

	// Annotated is true when the field carries an `es` tag.
	Annotated        bool
	ID               bool
	Version          bool
	SeqNoPrimaryTerm bool

	// Type is the declared Go type, ActualType its element type after
	// stripping pointers, slices, arrays and map values.
	Type       reflect.Type
	ActualType reflect.Type

	index []int
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	geoPointType   = reflect.TypeOf(GeoPoint{})
	seqNoType      = reflect.TypeOf(SeqNoPrimaryTerm{})
	completionType = reflect.TypeOf(Completion{})
)

// IsEntity reports whether the property holds a struct that is described as an entity of its own.
func (p *Property) IsEntity() bool {
	t := p.ActualType
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	switch t {
	case timeType, geoPointType, seqNoType, completionType:
		return false
	}
	return true
}

// IsMap reports whether the declared type is a map (after pointer stripping).
func (p *Property) IsMap() bool {
	t := p.Type
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Map
}

// IsContainer reports whether the property is an object or nested container.
func (p *Property) IsContainer() bool { return p.Params.Type.IsContainer() }

// IsGeoPoint reports whether the property maps to geo_point.
func (p *Property) IsGeoPoint() bool {
	return p.Params.Type == GeoPointType || (p.Params.Type == Auto && p.ActualType == geoPointType)
}

// IsCompletion reports whether the property maps to completion.
func (p *Property) IsCompletion() bool {
	return p.Params.Type == CompletionType || (p.Params.Type == Auto && p.ActualType == completionType)
}

// IsGeoShape reports whether the property maps to geo_shape.
func (p *Property) IsGeoShape() bool { return p.Params.Type == GeoShapeType }

// IsMultiField reports whether the property declares inner fields.
func (p *Property) IsMultiField() bool { return len(p.InnerFields) > 0 }

// Ignores reports whether the named sub-field is cut off when recursing through this property.
func (p *Property) Ignores(fieldName string) bool {
	for _, f := range p.IgnoreFields {
		if f == fieldName {
			return true
		}
	}
	return false
}

// Value returns the field value of the given struct value.
func (p *Property) Value(v reflect.Value) (reflect.Value, bool) {
	for i, idx := range p.index {
		if i > 0 {
			if v.Kind() == reflect.Pointer {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
		}
		v = v.Field(idx)
	}
	return v, true
}

// FieldIndex returns the reflect index path of the field.
func (p *Property) FieldIndex() []int { return p.index }

// Entity is the immutable structural description of a struct type.
type Entity struct {
	typ        reflect.Type
	spec       DocumentSpec
	properties []*Property
	byName     map[string]*Property
	byField    map[string]*Property

	id      *Property
	version *Property
	seqNo   *Property
}

// Type returns the described struct type.
func (e *Entity) Type() reflect.Type { return e.typ }

// Name returns the Go type name.
func (e *Entity) Name() string { return e.typ.Name() }

// Spec returns the entity-level settings.
func (e *Entity) Spec() DocumentSpec { return e.spec }

// IndexName returns the declared index name, empty if none.
func (e *Entity) IndexName() string { return e.spec.IndexName }

// Properties returns properties in declaration order.
func (e *Entity) Properties() []*Property { return e.properties }

// Property looks a property up by Go field name.
func (e *Entity) Property(name string) (*Property, bool) {
	p, ok := e.byName[name]
	return p, ok
}

// PropertyByFieldName looks a property up by wire field name.
func (e *Entity) PropertyByFieldName(fieldName string) (*Property, bool) {
	p, ok := e.byField[fieldName]
	return p, ok
}

// IDProperty returns the identifier property, nil if absent.
func (e *Entity) IDProperty() *Property { return e.id }

// VersionProperty returns the version property, nil if absent.
func (e *Entity) VersionProperty() *Property { return e.version }

// SeqNoPrimaryTermProperty returns the seq-no/primary-term property, nil if absent.
func (e *Entity) SeqNoPrimaryTermProperty() *Property { return e.seqNo }

// HasSeqNoPrimaryTerm reports whether responses must carry seq-no and primary term.
func (e *Entity) HasSeqNoPrimaryTerm() bool { return e.seqNo != nil }

// VersionType returns the declared version type, external when unset.
func (e *Entity) VersionType() VersionType {
	if e.spec.VersionType == "" {
		return VersionExternal
	}
	return e.spec.VersionType
}

// TypeAlias returns the value written into the type hint field.
func (e *Entity) TypeAlias() string {
	if e.spec.TypeAlias != "" {
		return e.spec.TypeAlias
	}
	if e.typ.PkgPath() == "" {
		return e.typ.String()
	}
	return e.typ.PkgPath() + "." + e.typ.Name()
}

// WriteTypeHint resolves the entity setting against the context default.
func (e *Entity) WriteTypeHint(contextDefault bool) bool {
	return e.spec.WriteTypeHint.Resolve(contextDefault)
}

// FieldName maps a property name to its wire name. Unknown names pass through.
func (e *Entity) FieldName(propertyName string) string {
	if p, ok := e.byName[propertyName]; ok {
		return p.FieldName
	}
	return propertyName
}

// PropertyName maps a wire name to its property name. Unknown names pass through.
func (e *Entity) PropertyName(fieldName string) string {
	if p, ok := e.byField[fieldName]; ok {
		return p.Name
	}
	return fieldName
}

// Identifier extracts the identifier of a value of the entity type.
func (e *Entity) Identifier(item any) (string, bool) {
	if e.id == nil {
		return "", false
	}
	v, ok := e.value(item)
	if !ok {
		return "", false
	}
	f, ok := e.id.Value(v)
	if !ok {
		return "", false
	}
	return formatScalar(f)
}

// SetIdentifier writes an identifier into a pointer to a value of the entity type.
func (e *Entity) SetIdentifier(item any, id string) error {
	if e.id == nil {
		return nil
	}
	v := reflect.ValueOf(item)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("set identifier: %T is not a non-nil pointer", item)
	}
	f, ok := e.id.Value(v.Elem())
	if !ok {
		return nil
	}
	return setScalar(f, id)
}

// Version extracts the version of a value of the entity type.
func (e *Entity) Version(item any) (int64, bool) {
	if e.version == nil {
		return 0, false
	}
	v, ok := e.value(item)
	if !ok {
		return 0, false
	}
	f, ok := e.version.Value(v)
	if !ok {
		return 0, false
	}
	for f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return 0, false
		}
		f = f.Elem()
	}
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return f.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(f.Uint()), true //nolint:gosec // versions are positive
	default:
		return 0, false
	}
}

// SeqNoPrimaryTerm extracts the concurrency token of a value of the entity type.
// A token with a zero primary term was never assigned and is not reported.
func (e *Entity) SeqNoPrimaryTerm(item any) (SeqNoPrimaryTerm, bool) {
	if e.seqNo == nil {
		return SeqNoPrimaryTerm{}, false
	}
	v, ok := e.value(item)
	if !ok {
		return SeqNoPrimaryTerm{}, false
	}
	f, ok := e.seqNo.Value(v)
	if !ok {
		return SeqNoPrimaryTerm{}, false
	}
	for f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return SeqNoPrimaryTerm{}, false
		}
		f = f.Elem()
	}
	t, ok := f.Interface().(SeqNoPrimaryTerm)
	if !ok || t.PrimaryTerm == 0 {
		return SeqNoPrimaryTerm{}, false
	}
	return t, true
}

// SetVersion writes v into the version property of a pointer to a value of the entity type.
func (e *Entity) SetVersion(item any, v int64) error {
	f, ok, err := e.settable(item, e.version)
	if !ok || err != nil {
		return err
	}
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f.SetUint(uint64(v)) //nolint:gosec // versions are positive
	}
	return nil
}

// SetSeqNoPrimaryTerm writes t into the seq-no property of a pointer to a value of the entity type.
func (e *Entity) SetSeqNoPrimaryTerm(item any, t SeqNoPrimaryTerm) error {
	f, ok, err := e.settable(item, e.seqNo)
	if !ok || err != nil {
		return err
	}
	f.Set(reflect.ValueOf(t))
	return nil
}

// settable resolves p on a pointer item, allocating a nil pointer field.
func (e *Entity) settable(item any, p *Property) (reflect.Value, bool, error) {
	if p == nil {
		return reflect.Value{}, false, nil
	}
	v := reflect.ValueOf(item)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, false, fmt.Errorf("set %s: %T is not a non-nil pointer", p.Name, item)
	}
	f, ok := p.Value(v.Elem())
	if !ok || !f.CanSet() {
		return reflect.Value{}, false, nil
	}
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			f.Set(reflect.New(f.Type().Elem()))
		}
		f = f.Elem()
	}
	return f, true, nil
}

func (e *Entity) value(item any) (reflect.Value, bool) {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Type() != e.typ {
		return reflect.Value{}, false
	}
	return v, true
}

func formatScalar(v reflect.Value) (string, bool) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), v.String() != ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	default:
		return fmt.Sprint(v.Interface()), true
	}
}

func setScalar(v reflect.Value, s string) error {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("set identifier %q: %w", s, err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("set identifier %q: %w", s, err)
		}
		v.SetUint(n)
	default:
		return fmt.Errorf("set identifier: unsupported kind %s", v.Kind())
	}
	return nil
}
