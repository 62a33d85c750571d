package criteria

import (
	"testing"

	"github.com/kailas-cloud/esodm/internal/dsl"
)

func mustJSON(t *testing.T, q dsl.Query) string {
	t.Helper()
	s, err := dsl.JSON(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func eq(field, value string) string {
	return `{"query_string":{"default_operator":"and","fields":["` + field + `"],"query":"` + value + `"}}`
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		c    *Criteria
		want string
	}{
		{
			"single equals",
			Where("name").Is("go"),
			`{"bool":{"must":[` + eq("name", "go") + `]}}`,
		},
		{
			"and chain",
			Where("a").Is(1).And("b").Is(2),
			`{"bool":{"must":[` + eq("a", "1") + `,` + eq("b", "2") + `]}}`,
		},
		{
			"and binds tighter than or",
			Where("a").Is(1).And("b").Is(2).Or("c").Is(3),
			`{"bool":{"should":[{"bool":{"must":[` + eq("a", "1") + `,` + eq("b", "2") + `]}},` +
				`{"bool":{"must":[` + eq("c", "3") + `]}}]}}`,
		},
		{
			"negation",
			Where("a").Is(1).Not(),
			`{"bool":{"must_not":[` + eq("a", "1") + `]}}`,
		},
		{
			"two predicates on one property",
			Where("n").GreaterThan(1).LessThanEqual(5),
			`{"bool":{"must":[{"bool":{"must":[{"range":{"n":{"gt":1}}},{"range":{"n":{"lte":5}}}]}}]}}`,
		},
		{
			"contains escapes and wildcards",
			Where("path").Contains("a/b"),
			`{"bool":{"must":[{"query_string":{"analyze_wildcard":true,"fields":["path"],"query":"*a\\/b*"}}]}}`,
		},
		{
			"starts with",
			Where("t").StartsWith("ab"),
			`{"bool":{"must":[{"query_string":{"analyze_wildcard":true,"fields":["t"],"query":"ab*"}}]}}`,
		},
		{
			"in",
			Where("tag").In("x", "y"),
			`{"bool":{"must":[{"terms":{"tag":["x","y"]}}]}}`,
		},
		{
			"not in",
			Where("tag").NotIn("x"),
			`{"bool":{"must":[{"bool":{"must_not":[{"terms":{"tag":["x"]}}]}}]}}`,
		},
		{
			"between open upper bound",
			Where("n").Between(3, nil),
			`{"bool":{"must":[{"range":{"n":{"gte":3}}}]}}`,
		},
		{
			"exists",
			Where("n").Exists(),
			`{"bool":{"must":[{"exists":{"field":"n"}}]}}`,
		},
		{
			"matches all",
			Where("body").MatchesAll("quick fox"),
			`{"bool":{"must":[{"match":{"body":{"operator":"and","query":"quick fox"}}}]}}`,
		},
		{
			"boost",
			Where("a").Is("x").Boost(2),
			`{"bool":{"must":[{"query_string":{"boost":2,"default_operator":"and","fields":["a"],"query":"x"}}]}}`,
		},
		{
			"group",
			Where("a").Is(1).AndGroup(Where("b").Is(2).Or("c").Is(3)),
			`{"bool":{"must":[` + eq("a", "1") + `,{"bool":{"should":[{"bool":{"must":[` + eq("b", "2") +
				`]}},{"bool":{"must":[` + eq("c", "3") + `]}}]}}]}}`,
		},
		{
			"geo only yields no query",
			Where("loc").Within(dsl.GeoPoint{Lat: 1, Lon: 2}, "5km"),
			"null",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := BuildQuery(tt.c, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := mustJSON(t, q); got != tt.want {
				t.Errorf("BuildQuery() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestBuildFilter(t *testing.T) {
	c := Where("name").Is("x").And("loc").Within(dsl.GeoPoint{Lat: 1, Lon: 2}, "5km")
	f, err := BuildFilter(c, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"bool":{"must":[{"geo_distance":{"distance":"5km","loc":{"lat":1,"lon":2}}}]}}`
	if got := mustJSON(t, f); got != want {
		t.Errorf("BuildFilter() = %s, want %s", got, want)
	}

	bb := Where("loc").BoundedBy(dsl.GeoPoint{Lat: 10, Lon: 0}, dsl.GeoPoint{Lat: 0, Lon: 10})
	f, err = BuildFilter(bb, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = `{"bool":{"must":[{"geo_bounding_box":{"loc":{"bottom_right":{"lat":0,"lon":10},"top_left":{"lat":10,"lon":0}}}}]}}`
	if got := mustJSON(t, f); got != want {
		t.Errorf("BuildFilter() = %s, want %s", got, want)
	}
}

func TestBuildQuery_Resolver(t *testing.T) {
	resolve := func(p string) (string, string) {
		if p == "authors.name" {
			return "authors.full_name", "authors"
		}
		return p, ""
	}
	q, err := BuildQuery(Where("authors.name").Is("ann"), resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"bool":{"must":[{"nested":{"path":"authors","query":` + eq("authors.full_name", "ann") +
		`,"score_mode":"avg"}}]}}`
	if got := mustJSON(t, q); got != want {
		t.Errorf("BuildQuery() = %s, want %s", got, want)
	}
}

func TestBuild_ConstructionErrors(t *testing.T) {
	tests := []struct {
		name string
		c    *Criteria
	}{
		{"empty in", Where("a").In()},
		{"empty not in", Where("a").NotIn()},
		{"unbounded between", Where("a").Between(nil, nil)},
		{"negative boost", Where("a").Is(1).Boost(-1)},
		{"within without distance", Where("a").Within(dsl.GeoPoint{}, "")},
		{"error inside group", Where("a").Is(1).OrGroup(Where("b").In())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.c.Err() == nil {
				t.Fatal("Err() = nil")
			}
			if _, err := BuildQuery(tt.c, nil); err == nil {
				t.Error("BuildQuery() error = nil")
			}
		})
	}
}

func TestBuild_NilCriteria(t *testing.T) {
	q, err := BuildQuery(nil, nil)
	if err != nil || q != nil {
		t.Errorf("BuildQuery(nil) = %v, %v", q, err)
	}
	var c *Criteria
	if !c.IsEmpty() {
		t.Error("IsEmpty() = false for nil")
	}
}

func TestIsEmpty(t *testing.T) {
	if !Where("a").IsEmpty() {
		t.Error("Where without predicate is not empty")
	}
	if Where("a").Exists().IsEmpty() {
		t.Error("Where with predicate is empty")
	}
	if Where("a").AndGroup(Where("b").Is(1)).IsEmpty() {
		t.Error("group with predicate is empty")
	}
}

func TestEscape(t *testing.T) {
	tests := map[string]string{
		"plain":    "plain",
		"a+b":      `a\+b`,
		"(x)":      `\(x\)`,
		`say "hi"`: `say \"hi\"`,
		"a:b/c":    `a\:b\/c`,
	}
	for in, want := range tests {
		if got := Escape(in); got != want {
			t.Errorf("Escape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEntry(t *testing.T) {
	c := Where("a").Between(1, 2)
	e := c.parts[0].query[0]
	if e.Op() != OpBetween {
		t.Errorf("Op() = %q", e.Op())
	}
	b, ok := e.Value().(Between)
	if !ok || b.Lower != 1 || b.Upper != 2 {
		t.Errorf("Value() = %#v", e.Value())
	}
	if err := c.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestCriteria_Clone(t *testing.T) {
	c := Where("a").Is("x").AndGroup(Where("b").Is("y"))
	cp := c.Clone()
	want := mustJSON(t, mustBuild(t, Where("a").Is("x").AndGroup(Where("b").Is("y"))))

	c.And("z").Is("w")
	if got := mustJSON(t, mustBuild(t, cp)); got != want {
		t.Errorf("clone query = %s, want %s", got, want)
	}
	if props := cp.Properties(); len(props) != 2 {
		t.Errorf("clone Properties() = %v", props)
	}
	if (*Criteria)(nil).Clone() != nil {
		t.Error("Clone() of nil chain is not nil")
	}
}

func mustBuild(t *testing.T, c *Criteria) dsl.Query {
	t.Helper()
	q, err := BuildQuery(c, Identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return q
}
