package entity

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/kailas-cloud/esodm/internal/domain"
)

type address struct {
	Street string `es:"street_name,type=text"`
	City   string `es:"city,type=keyword"`
}

type person struct {
	ID        string           `es:",id"`
	FirstName string           `es:"first_name,type=text,analyzer=standard,copy_to=full|all"`
	Email     string           `es:"email,type=keyword,ignore_above=256,doc_values=false"`
	Addresses []address        `es:"addresses,type=nested"`
	Home      *address         `es:"home,type=object"`
	Location  GeoPoint         `es:"location"`
	Version   *int64           `es:",version"`
	Token     SeqNoPrimaryTerm `es:"token"`
	Nickname  string           `es:"nickname,type=text" esfields:"raw,type=keyword;sort,type=keyword,normalizer=lower"`
	Notes     string
	Scratch   string `es:"-"`
	internal  string //nolint:unused // unexported fields are skipped
}

func (person) DocumentSpec() DocumentSpec {
	return DocumentSpec{IndexName: "people", VersionType: VersionInternal, TypeAlias: "person"}
}

func TestDescribe(t *testing.T) {
	e, err := Describe[person](NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Name() != "person" || e.IndexName() != "people" {
		t.Errorf("Name/IndexName = %q/%q", e.Name(), e.IndexName())
	}
	names := make([]string, 0, len(e.Properties()))
	for _, p := range e.Properties() {
		names = append(names, p.Name)
	}
	want := []string{"ID", "FirstName", "Email", "Addresses", "Home", "Location", "Version", "Token", "Nickname", "Notes"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("properties = %v, want %v", names, want)
	}

	if e.IDProperty() == nil || e.IDProperty().FieldName != "id" {
		t.Errorf("IDProperty = %+v", e.IDProperty())
	}
	if e.VersionProperty() == nil || e.VersionProperty().Name != "Version" {
		t.Errorf("VersionProperty = %+v", e.VersionProperty())
	}
	if !e.HasSeqNoPrimaryTerm() {
		t.Error("HasSeqNoPrimaryTerm = false")
	}
	if e.VersionType() != VersionInternal || e.TypeAlias() != "person" {
		t.Errorf("VersionType/TypeAlias = %q/%q", e.VersionType(), e.TypeAlias())
	}

	first, _ := e.Property("FirstName")
	if first.FieldName != "first_name" || first.Params.Type != Text || first.Params.Analyzer != "standard" {
		t.Errorf("FirstName = %+v", first)
	}
	if !reflect.DeepEqual(first.Params.CopyTo, []string{"full", "all"}) {
		t.Errorf("CopyTo = %v", first.Params.CopyTo)
	}
	email, _ := e.PropertyByFieldName("email")
	if email.Params.IgnoreAbove == nil || *email.Params.IgnoreAbove != 256 ||
		email.Params.DocValues == nil || *email.Params.DocValues {
		t.Errorf("Email params = %+v", email.Params)
	}
	addrs, _ := e.Property("Addresses")
	if !addrs.IsEntity() || addrs.ActualType != reflect.TypeOf(address{}) {
		t.Errorf("Addresses actual type = %v", addrs.ActualType)
	}
	loc, _ := e.Property("Location")
	if !loc.IsGeoPoint() || loc.IsEntity() {
		t.Error("Location is not a geo point")
	}
	nick, _ := e.Property("Nickname")
	if !nick.IsMultiField() || len(nick.InnerFields) != 2 || nick.InnerFields[1].Params.Normalizer != "lower" {
		t.Errorf("Nickname inner fields = %+v", nick.InnerFields)
	}
	notes, _ := e.Property("Notes")
	if notes.Annotated || notes.FieldName != "notes" {
		t.Errorf("Notes = %+v", notes)
	}
	if _, ok := e.Property("Scratch"); ok {
		t.Error("transient field described")
	}
}

func TestDescribe_Idempotent(t *testing.T) {
	ctx := NewContext()
	a, err := Describe[person](ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ctx.DescribeValue(&person{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Error("second Describe returned a different instance")
	}

	fresh, err := Describe[person](NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fresh.Properties()) != len(a.Properties()) {
		t.Fatalf("property count differs: %d vs %d", len(fresh.Properties()), len(a.Properties()))
	}
	for i, p := range a.Properties() {
		q := fresh.Properties()[i]
		if p.Name != q.Name || p.FieldName != q.FieldName || !reflect.DeepEqual(p.Params, q.Params) {
			t.Errorf("property %d differs: %+v vs %+v", i, p, q)
		}
	}
}

func TestDescribe_Concurrent(t *testing.T) {
	ctx := NewContext()
	const n = 32
	results := make([]*Entity, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := Describe[person](ctx)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = e
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d observed a different instance", i)
		}
	}
	if got := len(ctx.Entities()); got != 1 {
		t.Errorf("Entities() = %d, want 1", got)
	}
}

type twoIDs struct {
	A string `es:",id"`
	B string `es:",id"`
}

type twoVersions struct {
	A int64 `es:",version"`
	B int64 `es:",version"`
}

type twoTokens struct {
	A SeqNoPrimaryTerm
	B SeqNoPrimaryTerm
}

type disabledScalar struct {
	Name string `es:"name,type=keyword,enabled=false"`
}

type disabledObject struct {
	Meta map[string]any `es:"meta,type=object,enabled=false"`
}

type badType struct {
	Name string `es:"name,type=strng"`
}

type badIgnoreAbove struct {
	Name string `es:"name,type=keyword,ignore_above=x"`
}

type duplicateField struct {
	A string `es:"same"`
	B string `es:"same"`
}

type stringVersion struct {
	V string `es:",version"`
}

type scaledNoFactor struct {
	Price float64 `es:"price,type=scaled_float"`
}

func TestDescribe_MappingErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"duplicate id", reflect.TypeOf(twoIDs{})},
		{"duplicate version", reflect.TypeOf(twoVersions{})},
		{"duplicate seqno", reflect.TypeOf(twoTokens{})},
		{"enabled on scalar", reflect.TypeOf(disabledScalar{})},
		{"unknown type", reflect.TypeOf(badType{})},
		{"bad ignore_above", reflect.TypeOf(badIgnoreAbove{})},
		{"duplicate field name", reflect.TypeOf(duplicateField{})},
		{"string version", reflect.TypeOf(stringVersion{})},
		{"scaled float without factor", reflect.TypeOf(scaledNoFactor{})},
		{"not a struct", reflect.TypeOf(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewContext().Describe(tt.typ)
			if !errors.Is(err, domain.ErrMapping) {
				t.Fatalf("error = %v, want ErrMapping", err)
			}
			var me *domain.MappingError
			if !errors.As(err, &me) {
				t.Fatalf("error %T is not a *MappingError", err)
			}
		})
	}

	if _, err := NewContext().Describe(reflect.TypeOf(disabledObject{})); err != nil {
		t.Errorf("enabled on object: unexpected error: %v", err)
	}
	if _, err := NewContext().Describe(nil); !errors.Is(err, domain.ErrIllegalArgument) {
		t.Errorf("nil type error = %v", err)
	}
}

func TestDefaultFieldName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Name", "name"},
		{"ID", "id"},
		{"URLPath", "urlPath"},
		{"firstName", "firstName"},
		{"HTTPServerID", "httpServerID"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := defaultFieldName(tt.in); got != tt.want {
				t.Errorf("defaultFieldName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEntityValues(t *testing.T) {
	e, err := Describe[person](NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := int64(4)
	p := &person{ID: "p1", Version: &v, Token: SeqNoPrimaryTerm{SeqNo: 3, PrimaryTerm: 1}}

	if id, ok := e.Identifier(p); !ok || id != "p1" {
		t.Errorf("Identifier = %q/%v", id, ok)
	}
	if got, ok := e.Version(p); !ok || got != 4 {
		t.Errorf("Version = %d/%v", got, ok)
	}
	if tok, ok := e.SeqNoPrimaryTerm(*p); !ok || tok.SeqNo != 3 {
		t.Errorf("SeqNoPrimaryTerm = %+v/%v", tok, ok)
	}
	if _, ok := e.SeqNoPrimaryTerm(person{}); ok {
		t.Error("unassigned token reported")
	}
	if _, ok := e.Version(person{}); ok {
		t.Error("nil version reported")
	}
	if err := e.SetIdentifier(p, "p2"); err != nil || p.ID != "p2" {
		t.Errorf("SetIdentifier: err=%v id=%q", err, p.ID)
	}
	if err := e.SetIdentifier(*p, "p3"); err == nil {
		t.Error("SetIdentifier on a value: expected error")
	}
	if _, ok := e.Identifier(address{}); ok {
		t.Error("Identifier of a foreign type reported")
	}
}

func TestTypeHintResolve(t *testing.T) {
	tests := []struct {
		hint           TypeHint
		contextDefault bool
		want           bool
	}{
		{TypeHintDefault, true, true},
		{TypeHintDefault, false, false},
		{TypeHintTrue, false, true},
		{TypeHintTrue, true, true},
		{TypeHintFalse, true, false},
		{TypeHintFalse, false, false},
	}
	for _, tt := range tests {
		if got := tt.hint.Resolve(tt.contextDefault); got != tt.want {
			t.Errorf("TypeHint(%d).Resolve(%v) = %v, want %v", tt.hint, tt.contextDefault, got, tt.want)
		}
	}
}

type library struct {
	Shelves []shelf `es:"shelves,type=nested"`
}

type shelf struct {
	Label string `es:"shelf_label"`
	Books []tome `es:"books,type=nested"`
	Owner owner  `es:"owner,type=object"`
}

type tome struct {
	Title string `es:"book_title"`
}

type owner struct {
	Name string `es:"owner_name"`
}

func TestResolvePath(t *testing.T) {
	ctx := NewContext()
	e, err := Describe[library](ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		path       string
		wantField  string
		wantNested string
	}{
		{"Shelves.Label", "shelves.shelf_label", "shelves"},
		{"Shelves.Books.Title", "shelves.books.book_title", "shelves.books"},
		{"Shelves.Owner.Name", "shelves.owner.owner_name", "shelves"},
		{"shelves.books.book_title", "shelves.books.book_title", "shelves.books"},
		{"Unknown.Field", "Unknown.Field", ""},
		{"Shelves", "shelves", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			field, nested := ctx.ResolvePath(e, tt.path)
			if field != tt.wantField || nested != tt.wantNested {
				t.Errorf("ResolvePath(%q) = %q/%q, want %q/%q", tt.path, field, nested, tt.wantField, tt.wantNested)
			}
		})
	}

	if got := ctx.ResolvePropertyName(e, "shelves.books.book_title"); got != "Shelves.Books.Title" {
		t.Errorf("ResolvePropertyName = %q", got)
	}
	if got := ctx.ResolveFieldName(nil, "As.Is"); got != "As.Is" {
		t.Errorf("ResolveFieldName(nil) = %q", got)
	}
}

func TestEntitySetters(t *testing.T) {
	e, err := Describe[person](NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := &person{}
	if err := e.SetIdentifier(p, "p-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.SetVersion(p, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.SetSeqNoPrimaryTerm(p, SeqNoPrimaryTerm{SeqNo: 9, PrimaryTerm: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "p-1" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.Version == nil || *p.Version != 4 {
		t.Errorf("Version = %v, want 4", p.Version)
	}
	if tok, ok := e.SeqNoPrimaryTerm(p); !ok || tok.SeqNo != 9 || tok.PrimaryTerm != 2 {
		t.Errorf("SeqNoPrimaryTerm = %+v/%v", tok, ok)
	}

	if err := e.SetVersion(person{}, 1); err == nil {
		t.Error("SetVersion on a non-pointer: expected error")
	}

	a, err := Describe[address](NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.SetVersion(&address{}, 1); err != nil {
		t.Errorf("SetVersion without version property: unexpected error: %v", err)
	}
}
