package request

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/esodm/internal/convert"
	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/criteria"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/dsl"
)

type writer struct {
	Name string `es:"name,type=keyword"`
}

type article struct {
	ID      string   `es:",id"`
	Title   string   `es:"title_text,type=text"`
	Writers []writer `es:"writers,type=nested"`
	Rating  float64  `es:"rating,type=double"`
	Version int64    `es:",version"`
}

type tracked struct {
	ID    string                  `es:",id"`
	Body  string                  `es:"body,type=text"`
	Token entity.SeqNoPrimaryTerm `es:"token"`
}

func (tracked) DocumentSpec() entity.DocumentSpec {
	return entity.DocumentSpec{VersionType: entity.VersionExternalGTE}
}

// foreignQuery satisfies query.Query without being one of its variants.
type foreignQuery struct {
	query.Base
}

func newFactory(t *testing.T) (*Factory, *entity.Entity) {
	t.Helper()
	ctx := entity.NewContext()
	e, err := entity.Describe[article](ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewFactory(convert.New(ctx)), e
}

func bodyJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := marshal(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(b)
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(b)
}

func TestSearch_Body(t *testing.T) {
	f, e := newFactory(t)
	q := query.NewCriteriaQuery(nil)
	q.SetPageable(query.MustPageOf(1, 5, query.DescOn("Title").WithNullsLast()))

	r, err := f.Search(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"query":{"match_all":{}},"from":5,"size":5,"version":true,` +
		`"sort":[{"title_text":{"missing":"_last","order":"desc"}}]}`
	if got := bodyJSON(t, r.Body); got != want {
		t.Errorf("body = %s\nwant   %s", got, want)
	}
}

func TestSearch_Paging(t *testing.T) {
	f, e := newFactory(t)

	tests := []struct {
		name     string
		setup    func(q *query.CriteriaQuery)
		wantFrom int
		wantSize int
	}{
		{"default page", func(*query.CriteriaQuery) {}, 0, query.DefaultPageSize},
		{"third page", func(q *query.CriteriaQuery) { q.SetPageable(query.MustPageOf(2, 20)) }, 40, 20},
		{"unpaged", func(q *query.CriteriaQuery) { q.SetPageable(query.Unpaged()) }, 0, 10000},
		{"max results wins", func(q *query.CriteriaQuery) {
			q.SetPageable(query.MustPageOf(0, 50))
			q.SetMaxResults(3)
		}, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := query.NewCriteriaQuery(nil)
			tt.setup(q)
			r, err := f.Search(q, e, Index("articles"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *r.Body.From != tt.wantFrom || *r.Body.Size != tt.wantSize {
				t.Errorf("from/size = %d/%d, want %d/%d", *r.Body.From, *r.Body.Size, tt.wantFrom, tt.wantSize)
			}
		})
	}
}

func TestSearch_SourceFilter(t *testing.T) {
	f, e := newFactory(t)
	q := query.NewCriteriaQuery(nil)
	q.SetSourceFilter(query.SourceFilter{Includes: []string{"incl"}, Excludes: []string{"excl"}})

	r, err := f.Search(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := r.Body.Source
	if src == nil || len(src.Includes) != 1 || src.Includes[0] != "incl" ||
		len(src.Excludes) != 1 || src.Excludes[0] != "excl" {
		t.Errorf("_source = %+v", src)
	}
}

func TestSearch_SeqNoPrimaryTerm(t *testing.T) {
	ctx := entity.NewContext()
	f := NewFactory(convert.New(ctx))
	te, err := entity.Describe[tracked](ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ae, err := entity.Describe[article](ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, err := f.Search(nil, te, Index("tracked"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Body.SeqNoPrimaryTerm == nil || !*r.Body.SeqNoPrimaryTerm {
		t.Error("seq_no_primary_term not requested for entity with token")
	}

	r, err = f.Search(nil, ae, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Body.SeqNoPrimaryTerm != nil {
		t.Error("seq_no_primary_term requested for entity without token")
	}
}

func TestSearch_QueryVariants(t *testing.T) {
	f, e := newFactory(t)

	native := query.NewNativeQueryBuilder().
		WithQuery(dsl.Term("rating", 5)).
		WithFilter(dsl.Exists("title_text")).
		Build()

	tests := []struct {
		name       string
		q          query.Query
		wantQuery  string
		wantFilter string
	}{
		{"nil criteria", query.NewCriteriaQuery(nil), `{"match_all":{}}`, ""},
		{"string", query.NewStringQuery(`{"match_all":{}}`), `{"wrapper":{"query":"eyJtYXRjaF9hbGwiOnt9fQ=="}}`, ""},
		{"blank string", query.NewStringQuery("  "), `{"match_all":{}}`, ""},
		{"native", native, `{"term":{"rating":{"value":5}}}`, `{"exists":{"field":"title_text"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := f.Search(tt.q, e, Index("articles"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := bodyJSON(t, r.Body.Query); got != tt.wantQuery {
				t.Errorf("query = %s, want %s", got, tt.wantQuery)
			}
			gotFilter := ""
			if r.Body.PostFilter != nil {
				gotFilter = bodyJSON(t, r.Body.PostFilter)
			}
			if gotFilter != tt.wantFilter {
				t.Errorf("post_filter = %s, want %s", gotFilter, tt.wantFilter)
			}
		})
	}
}

func TestSearch_CriteriaResolvesFields(t *testing.T) {
	f, e := newFactory(t)
	q := query.NewCriteriaQuery(criteria.Where("Writers.Name").Is("ann").
		And("Title").Exists())

	r, err := f.Search(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := bodyJSON(t, r.Body.Query)
	for _, want := range []string{`"nested":{"path":"writers"`, `"writers.name"`, `"field":"title_text"`} {
		if !strings.Contains(got, want) {
			t.Errorf("query = %s, missing %s", got, want)
		}
	}
}

func TestSearch_UnsupportedQueryType(t *testing.T) {
	f, e := newFactory(t)
	_, err := f.Search(&foreignQuery{}, e, Index("articles"))
	if !errors.Is(err, domain.ErrUnsupportedQueryType) {
		t.Fatalf("error = %v, want ErrUnsupportedQueryType", err)
	}
}

func TestSearch_MissingCoordinates(t *testing.T) {
	f, e := newFactory(t)
	for _, idx := range []Coordinates{{}, Index(), Index(" ", "")} {
		if _, err := f.Search(nil, e, idx); !errors.Is(err, domain.ErrIllegalArgument) {
			t.Errorf("Search(%v) error = %v, want ErrIllegalArgument", idx.Names(), err)
		}
	}
}

func TestSearch_Sorts(t *testing.T) {
	f, e := newFactory(t)
	q := query.NewCriteriaQuery(nil)
	q.AddSort(query.By(
		query.AscOn("Writers.Name").WithNullsFirst(),
		query.DescOn("_score"),
		query.AscOn("raw_field"),
		query.ByDistance("location", dsl.GeoPoint{Lat: 1, Lon: 2}).WithUnit("km"),
	))

	r, err := f.Search(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `[{"writers.name":{"missing":"_first","nested":{"path":"writers"},"order":"asc"}},` +
		`{"_score":{"order":"desc"}},` +
		`{"raw_field":{"order":"asc"}},`
	if got := bodyJSON(t, r.Body.Sort); !strings.HasPrefix(got, want) || !strings.Contains(got, `"_geo_distance"`) {
		t.Errorf("sort = %s", got)
	}
}

func TestSearch_HighlightPrecedence(t *testing.T) {
	f, e := newFactory(t)
	q := query.NewNativeQueryBuilder().
		WithHighlight(dsl.Highlight{Fields: []dsl.HighlightField{{Name: "native"}}}).
		Build()

	r, err := f.Search(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Body.Highlight == nil || r.Body.Highlight.Fields[0].Name != "native" {
		t.Fatalf("highlight = %+v, want native", r.Body.Highlight)
	}

	q.SetHighlightQuery(query.HighlightQuery{Highlight: query.Highlight{
		Fields: []query.HighlightField{{Name: "Title"}},
	}})
	r, err = f.Search(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Body.Highlight == nil || r.Body.Highlight.Fields[0].Name != "title_text" {
		t.Errorf("highlight = %+v, want title_text", r.Body.Highlight)
	}
}

func TestSearch_TrackTotalHits(t *testing.T) {
	f, e := newFactory(t)

	tests := []struct {
		name  string
		setup func(q *query.CriteriaQuery)
		want  any
	}{
		{"unset", func(*query.CriteriaQuery) {}, nil},
		{"up to", func(q *query.CriteriaQuery) { q.SetTrackTotalHitsUpTo(500) }, 500},
		{"flag wins", func(q *query.CriteriaQuery) {
			q.SetTrackTotalHitsUpTo(500)
			q.SetTrackTotalHits(false)
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := query.NewCriteriaQuery(nil)
			tt.setup(q)
			r, err := f.Search(q, e, Index("articles"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Body.TrackTotalHits != tt.want {
				t.Errorf("track_total_hits = %v, want %v", r.Body.TrackTotalHits, tt.want)
			}
		})
	}
}

func TestSearch_NativeExtras(t *testing.T) {
	f, e := newFactory(t)
	script, err := dsl.InlineScript("doc['rating'].value * 2", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := query.NewNativeQueryBuilder().
		WithAggregation("by_rating", dsl.Aggregation{"terms": map[string]any{"field": "rating"}}).
		WithPipelineAggregation("max_bucket", dsl.Aggregation{"max_bucket": map[string]any{"buckets_path": "by_rating>_count"}}).
		WithScriptField(dsl.ScriptField{Name: "double", Script: script}).
		WithCollapse(dsl.Collapse{Field: "rating"}).
		WithIndexBoost("articles", 2).
		Build()

	r, err := f.Search(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := bodyJSON(t, r.Body)
	for _, want := range []string{
		`"script_fields":{"double":{"script":{"source":"doc['rating'].value * 2"}}}`,
		`"collapse":{"field":"rating"}`,
		`"indices_boost":[{"articles":2}]`,
		`"aggregations":{"by_rating":{"terms":{"field":"rating"}},"max_bucket":`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("body = %s\nmissing %s", got, want)
		}
	}
}

func TestSearch_Options(t *testing.T) {
	f, e := newFactory(t)
	q := query.NewCriteriaQuery(nil)
	q.SetIDs("1", "2")
	q.SetRouting("r1")
	q.SetPreference("_local")
	q.SetSearchType(query.DfsQueryThenFetch)
	q.SetTimeout(1500 * time.Millisecond)
	q.SetExplain(true)
	q.SetMinScore(0.5)
	q.SetRequestCache(true)
	q.SetScroll(time.Minute)
	q.SetSearchAfter("a", 1)
	q.SetIndicesOptions(query.StrictExpandOpenClosed)
	q.AddRescorer(query.RescorerQuery{
		Query:     query.NewNativeQueryBuilder().WithQuery(dsl.Term("rating", 5)).Build(),
		ScoreMode: query.ScoreMax,
	})

	r, err := f.Search(q, e, Index("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := bodyJSON(t, r.Body.Query); got != `{"bool":{"filter":[{"ids":{"values":["1","2"]}}],"must":[{"match_all":{}}]}}` {
		t.Errorf("query = %s", got)
	}
	if r.Body.Timeout != "1500ms" || r.Body.MinScore == nil || *r.Body.MinScore != 0.5 {
		t.Errorf("timeout/min_score = %q/%v", r.Body.Timeout, r.Body.MinScore)
	}
	if got := bodyJSON(t, r.Body.Rescore); got != `[{"query":{"rescore_query":{"term":{"rating":{"value":5}}},"score_mode":"max"}}]` {
		t.Errorf("rescore = %s", got)
	}

	req, err := r.ESAPI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Index) != 2 || req.Preference != "_local" || req.SearchType != "dfs_query_then_fetch" {
		t.Errorf("request = %+v", req)
	}
	if len(req.Routing) != 1 || req.Routing[0] != "r1" || req.Scroll != time.Minute {
		t.Errorf("routing/scroll = %v/%v", req.Routing, req.Scroll)
	}
	if req.ExpandWildcards != "open,closed" || *req.AllowNoIndices != true || *req.IgnoreUnavailable != false {
		t.Errorf("indices options = %q/%v/%v", req.ExpandWildcards, *req.AllowNoIndices, *req.IgnoreUnavailable)
	}
	if req.RequestCache == nil || !*req.RequestCache {
		t.Error("request cache not set")
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(readAll(t, req.Body)), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["explain"] != true {
		t.Errorf("explain = %v", body["explain"])
	}
}

func TestCount_FoldsFilter(t *testing.T) {
	f, e := newFactory(t)
	q := query.NewNativeQueryBuilder().
		WithQuery(dsl.Term("rating", 5)).
		WithFilter(dsl.Exists("title_text")).
		Build()

	r, err := f.Count(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"query":{"bool":{"filter":[{"exists":{"field":"title_text"}}],"must":[{"term":{"rating":{"value":5}}}]}}}`
	if got := readAll(t, req.Body); got != want {
		t.Errorf("body = %s\nwant   %s", got, want)
	}
}

func TestUpdateByQuery(t *testing.T) {
	f, e := newFactory(t)
	u := query.NewUpdateByQuery(query.NewCriteriaQuery(nil)).
		WithBatchSize(10).
		WithMaxDocs(12).
		WithMaxRetries(3).
		WithSlices(4).
		WithRequestsPerSecond(5.0).
		WithPipeline("pipeline").
		WithAbortOnVersionConflict(true).
		WithScript("script", "painless").
		Build()

	r, err := f.UpdateByQuery(u, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *r.BatchSize != 10 || *r.MaxDocs != 12 || *r.MaxRetries != 3 || *r.Slices != 4 || *r.RequestsPerSecond != 5.0 {
		t.Errorf("options = %d/%d/%d/%d/%f", *r.BatchSize, *r.MaxDocs, *r.MaxRetries, *r.Slices, *r.RequestsPerSecond)
	}
	if r.Pipeline != "pipeline" || r.Conflicts != query.ConflictsAbort {
		t.Errorf("pipeline/conflicts = %q/%q", r.Pipeline, r.Conflicts)
	}
	if r.Script == nil || r.Script.Source == nil || *r.Script.Source != "script" ||
		r.Script.Lang == nil || r.Script.Lang.Name != "painless" {
		t.Errorf("script = %+v", r.Script)
	}
	if got := bodyJSON(t, r.Search.Body.Query); got != `{"match_all":{}}` {
		t.Errorf("query = %s", got)
	}
	if *r.Search.Body.Size != 10 {
		t.Errorf("size = %d", *r.Search.Body.Size)
	}
	if r.Refresh {
		t.Error("refresh set without immediate policy")
	}

	req, err := r.ESAPI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *req.ScrollSize != 10 || req.Slices != 4 || *req.RequestsPerSecond != 5 || req.Conflicts != "abort" || req.Refresh != nil {
		t.Errorf("request = %+v", req)
	}
	want := `{"query":{"match_all":{}},"script":{"lang":"painless","source":"script"},"max_docs":12}`
	if got := readAll(t, req.Body); got != want {
		t.Errorf("body = %s\nwant   %s", got, want)
	}
}

func TestUpdateByQuery_Refresh(t *testing.T) {
	f, e := newFactory(t)
	tests := []struct {
		policy query.RefreshPolicy
		want   bool
	}{
		{query.RefreshNone, false},
		{query.RefreshImmediate, true},
		{query.RefreshWaitUntil, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			u := query.NewUpdateByQuery(query.NewCriteriaQuery(nil)).WithRefreshPolicy(tt.policy).Build()
			r, err := f.UpdateByQuery(u, e, Index("articles"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Refresh != tt.want {
				t.Errorf("Refresh = %v, want %v", r.Refresh, tt.want)
			}
		})
	}
}

func TestUpdateByQuery_Errors(t *testing.T) {
	f, e := newFactory(t)
	if _, err := f.UpdateByQuery(query.NewUpdate("1").Build(), e, Index("articles")); !errors.Is(err, domain.ErrIllegalArgument) {
		t.Errorf("missing query error = %v", err)
	}
	u := query.NewUpdateByQuery(query.NewCriteriaQuery(nil)).WithStoredScript("").Build()
	if _, err := f.UpdateByQuery(u, e, Index("articles")); !errors.Is(err, domain.ErrIllegalArgument) {
		t.Errorf("unnamed stored script error = %v", err)
	}
	for _, rps := range []float32{0.5, 0, -1} {
		u := query.NewUpdateByQuery(query.NewCriteriaQuery(nil)).WithRequestsPerSecond(rps).Build()
		if _, err := f.UpdateByQuery(u, e, Index("articles")); !errors.Is(err, domain.ErrIllegalArgument) {
			t.Errorf("requests per second %v error = %v, want ErrIllegalArgument", rps, err)
		}
	}
	u = query.NewUpdateByQuery(query.NewCriteriaQuery(nil)).WithRequestsPerSecond(1).Build()
	if _, err := f.UpdateByQuery(u, e, Index("articles")); err != nil {
		t.Errorf("requests per second 1 error = %v", err)
	}
}

func TestDeleteByQuery(t *testing.T) {
	f, e := newFactory(t)
	q := query.NewCriteriaQuery(criteria.Where("Rating").GreaterThan(3))
	q.SetMaxResults(50)

	r, err := f.DeleteByQuery(q, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *req.ScrollSize != 50 || req.Conflicts != "proceed" || !*req.Refresh {
		t.Errorf("request = %+v", req)
	}
	if got := readAll(t, req.Body); !strings.Contains(got, `"range":{"rating"`) {
		t.Errorf("body = %s", got)
	}
}
