package convert

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/result"
)

type author struct {
	Name string `es:"name,type=keyword"`
}

type book struct {
	ID        string                  `es:",id"`
	Title     string                  `es:"title,type=text"`
	Published time.Time               `es:"published,type=date,format=epoch_millis"`
	Authors   []author                `es:"authors,type=nested"`
	Location  entity.GeoPoint         `es:"location"`
	Tags      map[string]string       `es:"tags,type=object"`
	Version   int64                   `es:",version"`
	Token     entity.SeqNoPrimaryTerm `es:"token"`
	Note      *string
	Scratch   string `es:"-"`
}

type aliased struct {
	ID string `es:",id"`
}

func (aliased) DocumentSpec() entity.DocumentSpec {
	return entity.DocumentSpec{TypeAlias: "aliased-doc", WriteTypeHint: entity.TypeHintTrue}
}

func TestWrite(t *testing.T) {
	c := New(entity.NewContext())
	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc, err := c.Write(&book{
		ID:        "b1",
		Title:     "Go",
		Published: published,
		Authors:   []author{{Name: "ann"}},
		Location:  entity.GeoPoint{Lat: 1, Lon: 2},
		Tags:      map[string]string{"lang": "go"},
		Version:   3,
		Token:     entity.SeqNoPrimaryTerm{SeqNo: 1, PrimaryTerm: 1},
		Scratch:   "tmp",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc["title"] != "Go" {
		t.Errorf("title = %v", doc["title"])
	}
	if doc["published"] != published.UnixMilli() {
		t.Errorf("published = %v, want %d", doc["published"], published.UnixMilli())
	}
	authors, ok := doc["authors"].([]any)
	if !ok || len(authors) != 1 {
		t.Fatalf("authors = %#v", doc["authors"])
	}
	if a, _ := authors[0].(map[string]any); a["name"] != "ann" {
		t.Errorf("authors[0] = %#v", authors[0])
	}
	if loc, _ := doc["location"].(map[string]any); loc["lat"] != 1.0 || loc["lon"] != 2.0 {
		t.Errorf("location = %#v", doc["location"])
	}
	if _, ok := doc["token"]; ok {
		t.Error("seq-no property written")
	}
	if _, ok := doc["scratch"]; ok {
		t.Error("transient field written")
	}
	if _, ok := doc["note"]; ok {
		t.Error("nil pointer written")
	}
	if doc["_class"] == nil {
		t.Error("type hint missing")
	}
}

func TestWrite_TypeHints(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		value any
		key   string
		want  any
	}{
		{"default on", nil, &book{}, "_class", "github.com/kailas-cloud/esodm/internal/convert.book"},
		{"disabled", []Option{WithTypeHints(false)}, &book{}, "_class", nil},
		{"entity overrides", []Option{WithTypeHints(false)}, aliased{}, "_class", "aliased-doc"},
		{"renamed field", []Option{WithTypeHintField("_type")}, aliased{}, "_type", "aliased-doc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New(entity.NewContext(), tt.opts...).Write(tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc[tt.key] != tt.want {
				t.Errorf("doc[%q] = %v, want %v", tt.key, doc[tt.key], tt.want)
			}
		})
	}
}

func TestWrite_Nil(t *testing.T) {
	var b *book
	if _, err := New(entity.NewContext()).Write(b); err == nil {
		t.Error("expected error")
	}
}

func TestReadDocument(t *testing.T) {
	c := New(entity.NewContext())
	version, seqNo, term := int64(4), int64(10), int64(2)
	d := &result.SearchDocument{
		ID:          "b7",
		Version:     &version,
		SeqNo:       &seqNo,
		PrimaryTerm: &term,
		Source: map[string]any{
			"_class":    "ignored",
			"title":     "Go",
			"published": float64(1704164645000),
			"authors":   []any{map[string]any{"name": "ann"}},
			"location":  map[string]any{"lat": 1.5, "lon": 2.5},
			"tags":      map[string]any{"lang": "go"},
		},
	}

	b, err := ReadAs[book](c, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID != "b7" {
		t.Errorf("ID = %q", b.ID)
	}
	if b.Title != "Go" {
		t.Errorf("Title = %q", b.Title)
	}
	if !b.Published.Equal(time.UnixMilli(1704164645000)) {
		t.Errorf("Published = %v", b.Published)
	}
	if len(b.Authors) != 1 || b.Authors[0].Name != "ann" {
		t.Errorf("Authors = %+v", b.Authors)
	}
	if b.Location.Lat != 1.5 {
		t.Errorf("Location = %+v", b.Location)
	}
	if b.Version != 4 {
		t.Errorf("Version = %d", b.Version)
	}
	if b.Token.SeqNo != 10 || b.Token.PrimaryTerm != 2 {
		t.Errorf("Token = %+v", b.Token)
	}
}

func TestRead_Dates(t *testing.T) {
	type event struct {
		At  time.Time `es:"at"`
		Day time.Time `es:"day,format=date"`
	}
	var e event
	err := New(entity.NewContext()).Read(map[string]any{
		"at":  "2024-05-06T07:08:09.5Z",
		"day": "2024-05-06",
	}, &e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.At.Nanosecond() != 500000000 {
		t.Errorf("At = %v", e.At)
	}
	if e.Day.Day() != 6 {
		t.Errorf("Day = %v", e.Day)
	}
}

func TestDates_RoundTrip(t *testing.T) {
	type stamped struct {
		Seconds time.Time   `es:"seconds,type=date,format=epoch_second"`
		Millis  time.Time   `es:"millis,type=date,format=epoch_millis"`
		Basic   time.Time   `es:"basic,type=date,format=basic_date"`
		Custom  time.Time   `es:"custom,type=date,pattern=dd.MM.uuuu"`
		Both    time.Time   `es:"both,type=date,format=date_hour_minute_second,pattern=dd.MM.uuuu HH:mm"`
		Default time.Time   `es:"default,type=date"`
		Days    []time.Time `es:"days,type=date,format=basic_date"`
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	in := stamped{Seconds: at, Millis: at, Basic: day, Custom: day, Both: at, Default: at, Days: []time.Time{day}}

	c := New(entity.NewContext(), WithTypeHints(false))
	doc, err := c.Write(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	written := map[string]any{
		"seconds": at.Unix(),
		"millis":  at.UnixMilli(),
		"basic":   "20240501",
		"custom":  "01.05.2024",
		"both":    "2024-05-01T12:00:00",
		"default": "2024-05-01T12:00:00Z",
	}
	for key, want := range written {
		if doc[key] != want {
			t.Errorf("doc[%q] = %#v, want %#v", key, doc[key], want)
		}
	}
	if days, _ := doc["days"].([]any); len(days) != 1 || days[0] != "20240501" {
		t.Errorf("doc[days] = %#v", doc["days"])
	}

	// numbers arrive as json.Number from a search response
	doc["seconds"] = json.Number("1714564800")
	doc["millis"] = json.Number("1714564800000")
	var out stamped
	if err := c.Read(doc, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checks := []struct {
		name      string
		got, want time.Time
	}{
		{"seconds", out.Seconds, at},
		{"millis", out.Millis, at},
		{"basic", out.Basic, day},
		{"custom", out.Custom, day},
		{"both", out.Both, at},
		{"default", out.Default, at},
	}
	for _, tt := range checks {
		if !tt.got.Equal(tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if len(out.Days) != 1 || !out.Days[0].Equal(day) {
		t.Errorf("Days = %v", out.Days)
	}
}

func TestRead_DatesInNestedEntities(t *testing.T) {
	type visit struct {
		On time.Time `es:"on,type=date,format=epoch_second"`
	}
	type patient struct {
		Visits []visit `es:"visits,type=nested"`
	}
	var p patient
	err := New(entity.NewContext()).Read(map[string]any{
		"visits": []any{map[string]any{"on": json.Number("1714564800")}},
	}, &p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Visits) != 1 || p.Visits[0].On.Unix() != 1714564800 {
		t.Errorf("Visits = %+v", p.Visits)
	}
}

func TestRead_LargeIntegers(t *testing.T) {
	type counter struct {
		N int64  `es:"n,type=long"`
		U uint64 `es:"u"`
		F float64
	}
	var got counter
	err := New(entity.NewContext()).Read(map[string]any{
		"n": json.Number("9007199254740993"),
		"u": json.Number("18446744073709551615"),
		"f": json.Number("0.25"),
	}, &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.N != 9007199254740993 || got.U != 18446744073709551615 || got.F != 0.25 {
		t.Errorf("Read() = %+v", got)
	}
}

func TestGoLayout(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
		wantErr bool
	}{
		{"dd.MM.uuuu", "02.01.2006", false},
		{"yyyy-MM-dd'T'HH:mm:ss.SSSXXX", "2006-01-02T15:04:05.000Z07:00", false},
		{"d MMM yy, h:mm a", "2 Jan 06, 3:04 PM", false},
		{"'unterminated", "", true},
		{"QQQ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := goLayout(tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Fatalf("goLayout() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("goLayout() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadType(t *testing.T) {
	c := New(entity.NewContext())
	v, err := c.ReadType(reflect.TypeOf(author{}), &result.SearchDocument{Source: map[string]any{"name": "bob"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, ok := v.(*author)
	if !ok || a.Name != "bob" {
		t.Errorf("ReadType() = %#v", v)
	}
}
