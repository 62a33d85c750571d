package request

import (
	"bytes"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/dsl"
)

// SourceConfig is the _source block of a search body.
type SourceConfig struct {
	Includes []string `json:"includes,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
}

// SearchBody is the JSON body of a search.
type SearchBody struct {
	Query            dsl.Query                    `json:"query,omitempty"`
	PostFilter       dsl.Query                    `json:"post_filter,omitempty"`
	From             *int                         `json:"from,omitempty"`
	Size             *int                         `json:"size,omitempty"`
	Version          *bool                        `json:"version,omitempty"`
	SeqNoPrimaryTerm *bool                        `json:"seq_no_primary_term,omitempty"`
	TrackScores      *bool                        `json:"track_scores,omitempty"`
	Source           *SourceConfig                `json:"_source,omitempty"`
	Fields           []string                     `json:"fields,omitempty"`
	StoredFields     []string                     `json:"stored_fields,omitempty"`
	MinScore         *float64                     `json:"min_score,omitempty"`
	Sort             []dsl.Sort                   `json:"sort,omitempty"`
	Highlight        *dsl.Highlight               `json:"highlight,omitempty"`
	ScriptFields     map[string]types.ScriptField `json:"script_fields,omitempty"`
	Collapse         *dsl.Collapse                `json:"collapse,omitempty"`
	IndicesBoost     []dsl.IndexBoost             `json:"indices_boost,omitempty"`
	Aggregations     dsl.Aggregations             `json:"aggregations,omitempty"`
	TrackTotalHits   any                          `json:"track_total_hits,omitempty"`
	Timeout          string                       `json:"timeout,omitempty"`
	Explain          *bool                        `json:"explain,omitempty"`
	SearchAfter      []any                        `json:"search_after,omitempty"`
	Rescore          []dsl.Rescore                `json:"rescore,omitempty"`
	RuntimeMappings  map[string]any               `json:"runtime_mappings,omitempty"`
	Suggest          *types.Suggester             `json:"suggest,omitempty"`
}

// FilteredQuery folds the post filter into the query, for requests that
// take a single query.
func (b SearchBody) FilteredQuery() dsl.Query {
	if b.PostFilter == nil {
		return b.Query
	}
	return dsl.Bool().Must(b.Query).Filter(b.PostFilter).Query()
}

// SearchRequest is a translated search.
type SearchRequest struct {
	Indices        []string
	Body           SearchBody
	Preference     string
	Routing        []string
	SearchType     string
	RequestCache   *bool
	Scroll         time.Duration
	IndicesOptions *query.IndicesOptions
}

// Search translates q against the indices of idx. e resolves property names
// and may be nil, in which case names are used as given.
func (f *Factory) Search(q query.Query, e *entity.Entity, idx Coordinates) (*SearchRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	if q == nil {
		q = query.NewCriteriaQuery(nil)
	}
	b := q.Common()
	r := &SearchRequest{Indices: idx.Names()}
	body := &r.Body

	body.Version = boolPtr(true)
	if b.TrackScores() {
		body.TrackScores = boolPtr(true)
	}
	if b.SeqNoPrimaryTerm() || (e != nil && e.HasSeqNoPrimaryTerm()) {
		body.SeqNoPrimaryTerm = boolPtr(true)
	}

	if p := b.Pageable(); p.IsPaged() {
		body.From, body.Size = intPtr(p.Offset()), intPtr(p.PageSize())
	} else {
		body.From, body.Size = intPtr(0), intPtr(query.MaxResultWindow)
	}

	if sf := b.SourceFilter(); sf != nil {
		body.Source = &SourceConfig{Includes: sf.Includes, Excludes: sf.Excludes}
	}
	if fields := b.Fields(); len(fields) > 0 {
		body.Fields = make([]string, 0, len(fields))
		for _, name := range fields {
			body.Fields = append(body.Fields, f.fieldName(e, name))
		}
	}
	body.StoredFields = b.StoredFields()
	r.IndicesOptions = b.IndicesOptions()

	if n := b.MaxResults(); n != nil {
		body.Size = intPtr(*n)
	}
	if s := b.MinScore(); s > 0 {
		body.MinScore = &s
	}
	r.Preference = b.Preference()
	r.SearchType = string(b.SearchType())

	native, _ := q.(*query.NativeQuery)

	body.Sort = f.sorts(b.Sort(), e)
	if native != nil {
		body.Sort = append(body.Sort, native.NativeSorts()...)
	}

	if h := b.HighlightQuery(); h != nil {
		target := e
		if he, err := f.entityOf(h.Type); err == nil && he != nil {
			target = he
		}
		hl := h.Highlight.ToDSL(func(p string) string { return f.fieldName(target, p) })
		body.Highlight = &hl
	} else if native != nil && native.NativeHighlight() != nil {
		body.Highlight = native.NativeHighlight()
	}

	if native != nil {
		f.nativeExtras(body, native)
	}

	if th := b.TotalHits(); th.Track != nil {
		body.TrackTotalHits = *th.Track
	} else if th.UpTo != nil {
		body.TrackTotalHits = *th.UpTo
	}

	if routing := b.Routing(); routing != "" {
		r.Routing = []string{routing}
	}
	if d := b.Timeout(); d > 0 {
		body.Timeout = millis(d)
	}
	if b.Explain() {
		body.Explain = boolPtr(true)
	}
	body.SearchAfter = b.SearchAfter()

	for _, rq := range b.Rescorers() {
		rescore, err := f.rescore(rq, e)
		if err != nil {
			return nil, err
		}
		body.Rescore = append(body.Rescore, rescore)
	}

	r.RequestCache = b.RequestCache()
	r.Scroll = b.Scroll()

	qq, filter, err := f.queryAndFilter(q, e)
	if err != nil {
		return nil, err
	}
	if qq == nil {
		qq = dsl.MatchAll()
	}
	if ids := b.IDs(); len(ids) > 0 {
		qq = dsl.Bool().Must(qq).Filter(dsl.IDs(ids...)).Query()
	}
	body.Query = qq
	body.PostFilter = filter
	return r, nil
}

func (f *Factory) sorts(s query.Sort, e *entity.Entity) []dsl.Sort {
	if len(s) == 0 {
		return nil
	}
	out := make([]dsl.Sort, 0, len(s))
	for _, o := range s {
		order := string(o.Direction)
		if o.Property == query.ScoreProperty {
			out = append(out, dsl.ScoreSort(order))
			continue
		}
		field, nestedPath := f.resolver(e)(o.Property)
		if o.Geo != nil {
			out = append(out, dsl.GeoDistanceSort(field, o.Geo.Points, order, dsl.GeoDistanceSortOptions{
				Unit:           o.Geo.Unit,
				DistanceType:   o.Geo.DistanceType,
				Mode:           o.Mode,
				IgnoreUnmapped: o.Geo.IgnoreUnmapped,
			}))
			continue
		}
		opts := dsl.FieldSortOptions{Mode: o.Mode, UnmappedType: o.UnmappedType, NestedPath: nestedPath}
		switch o.NullHandling {
		case query.NullsFirst:
			opts.Missing = dsl.MissingFirst
		case query.NullsLast:
			opts.Missing = dsl.MissingLast
		case query.NullsNative:
		}
		out = append(out, dsl.FieldSort(field, order, opts))
	}
	return out
}

func (f *Factory) nativeExtras(body *SearchBody, q *query.NativeQuery) {
	if sf := q.ScriptFields(); len(sf) > 0 {
		body.ScriptFields = make(map[string]types.ScriptField, len(sf))
		for _, s := range sf {
			body.ScriptFields[s.Name] = s.Typed()
		}
	}
	body.Collapse = q.Collapse()
	body.IndicesBoost = q.IndicesBoost()
	if len(q.Aggregations())+len(q.PipelineAggregations()) > 0 {
		aggs := make(dsl.Aggregations, 0, len(q.Aggregations())+len(q.PipelineAggregations()))
		aggs = append(aggs, q.Aggregations()...)
		body.Aggregations = append(aggs, q.PipelineAggregations()...)
	}
	body.RuntimeMappings = q.RuntimeMappings()
}

func (f *Factory) rescore(rq query.RescorerQuery, e *entity.Entity) (dsl.Rescore, error) {
	qq, _, err := f.queryAndFilter(rq.Query, e)
	if err != nil {
		return dsl.Rescore{}, err
	}
	opts := dsl.RescoreOptions{
		WindowSize:         rq.WindowSize,
		QueryWeight:        rq.QueryWeight,
		RescoreQueryWeight: rq.RescoreQueryWeight,
	}
	if rq.ScoreMode != query.ScoreDefault {
		opts.ScoreMode = string(rq.ScoreMode)
	}
	return dsl.NewRescore(qq, opts), nil
}

// ESAPI converts the request.
func (r *SearchRequest) ESAPI() (esapi.SearchRequest, error) {
	body, err := marshal(r.Body)
	if err != nil {
		return esapi.SearchRequest{}, err
	}
	req := esapi.SearchRequest{
		Index:        r.Indices,
		Body:         bytes.NewReader(body),
		Preference:   r.Preference,
		Routing:      r.Routing,
		SearchType:   r.SearchType,
		RequestCache: r.RequestCache,
		Scroll:       r.Scroll,
	}
	if o := r.IndicesOptions; o != nil {
		req.AllowNoIndices = boolPtr(o.AllowNoIndices)
		req.IgnoreUnavailable = boolPtr(o.IgnoreUnavailable)
		req.ExpandWildcards = expandWildcards(o.ExpandWildcards)
	}
	return req, nil
}

func expandWildcards(w []query.ExpandWildcard) string {
	parts := make([]string, 0, len(w))
	for _, x := range w {
		parts = append(parts, string(x))
	}
	return strings.Join(parts, ",")
}

// CountRequest counts the documents matching a query.
type CountRequest struct {
	Indices []string
	Query   dsl.Query
	Routing []string
}

// Count translates q into a count request. Paging and sorting are ignored.
func (f *Factory) Count(q query.Query, e *entity.Entity, idx Coordinates) (*CountRequest, error) {
	s, err := f.Search(q, e, idx)
	if err != nil {
		return nil, err
	}
	return &CountRequest{Indices: s.Indices, Query: s.Body.FilteredQuery(), Routing: s.Routing}, nil
}

// ESAPI converts the request.
func (r *CountRequest) ESAPI() (esapi.CountRequest, error) {
	body, err := marshal(map[string]any{"query": r.Query})
	if err != nil {
		return esapi.CountRequest{}, err
	}
	return esapi.CountRequest{Index: r.Indices, Body: bytes.NewReader(body), Routing: r.Routing}, nil
}

// ScrollRequest continues a scrolled search.
type ScrollRequest struct {
	ScrollID string
	Scroll   time.Duration
}

// ESAPI converts the request.
func (r *ScrollRequest) ESAPI() esapi.ScrollRequest {
	return esapi.ScrollRequest{ScrollID: r.ScrollID, Scroll: r.Scroll}
}

// ClearScrollRequest releases scroll contexts.
type ClearScrollRequest struct {
	ScrollIDs []string
}

// ESAPI converts the request.
func (r *ClearScrollRequest) ESAPI() esapi.ClearScrollRequest {
	return esapi.ClearScrollRequest{ScrollID: r.ScrollIDs}
}
