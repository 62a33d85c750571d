package query

import (
	"time"

	"github.com/kailas-cloud/esodm/internal/dsl"
)

// SearchType selects how scores are computed across shards.
type SearchType string

// Search types.
const (
	QueryThenFetch    SearchType = "query_then_fetch"
	DfsQueryThenFetch SearchType = "dfs_query_then_fetch"
)

// IsValid reports whether s is a known search type. Empty means engine default.
func (s SearchType) IsValid() bool {
	switch s {
	case "", QueryThenFetch, DfsQueryThenFetch:
		return true
	default:
		return false
	}
}

// RefreshPolicy controls when writes become visible to search.
type RefreshPolicy string

// Refresh policies, valued as the engine's refresh parameter.
const (
	RefreshNone      RefreshPolicy = ""
	RefreshImmediate RefreshPolicy = "true"
	RefreshWaitUntil RefreshPolicy = "wait_for"
)

// OpType is the index operation type.
type OpType string

// Operation types.
const (
	OpIndex  OpType = "index"
	OpCreate OpType = "create"
)

// SourceFilter limits the fields of _source returned per hit.
type SourceFilter struct {
	Includes []string
	Excludes []string
}

// ExpandWildcard selects which indices wildcard expressions resolve to.
type ExpandWildcard string

// Wildcard expansion states.
const (
	ExpandOpen   ExpandWildcard = "open"
	ExpandClosed ExpandWildcard = "closed"
	ExpandHidden ExpandWildcard = "hidden"
	ExpandNone   ExpandWildcard = "none"
	ExpandAll    ExpandWildcard = "all"
)

// IndicesOptions controls how index names and wildcards resolve.
type IndicesOptions struct {
	IgnoreUnavailable bool
	AllowNoIndices    bool
	ExpandWildcards   []ExpandWildcard
}

// Presets.
var (
	StrictExpandOpen = IndicesOptions{
		AllowNoIndices: true, ExpandWildcards: []ExpandWildcard{ExpandOpen},
	}
	LenientExpandOpen = IndicesOptions{
		IgnoreUnavailable: true, AllowNoIndices: true, ExpandWildcards: []ExpandWildcard{ExpandOpen},
	}
	StrictExpandOpenClosed = IndicesOptions{
		AllowNoIndices: true, ExpandWildcards: []ExpandWildcard{ExpandOpen, ExpandClosed},
	}
)

// HighlightParameters are shared by the highlight block and its fields.
type HighlightParameters struct {
	PreTags           []string
	PostTags          []string
	FragmentSize      int
	NumberOfFragments int
	Order             string
	Encoder           string
	Type              string
	BoundaryScanner   string
	RequireFieldMatch *bool
	NoMatchSize       int
}

// HighlightField highlights one property. Name is a property name and is
// resolved to the wire name when the request is built.
type HighlightField struct {
	Name       string
	Parameters HighlightParameters
}

// Highlight is an engine-agnostic highlight request.
type Highlight struct {
	Parameters HighlightParameters
	Fields     []HighlightField
}

// HighlightQuery carries a highlight plus the entity type its field names refer to.
type HighlightQuery struct {
	Highlight Highlight
	Type      any
}

// ScoreMode combines the original and rescore scores.
type ScoreMode string

// Score modes. ScoreDefault leaves the engine default.
const (
	ScoreDefault  ScoreMode = ""
	ScoreAvg      ScoreMode = "avg"
	ScoreMax      ScoreMode = "max"
	ScoreMin      ScoreMode = "min"
	ScoreTotal    ScoreMode = "total"
	ScoreMultiply ScoreMode = "multiply"
)

// RescorerQuery rescores the top WindowSize hits with Query.
type RescorerQuery struct {
	Query              Query
	ScoreMode          ScoreMode
	WindowSize         *int
	QueryWeight        *float64
	RescoreQueryWeight *float64
}

// TotalHits configures hit counting. Track wins over UpTo when both are set.
type TotalHits struct {
	Track *bool
	UpTo  *int
}

// Base is the configuration surface shared by every query variant.
type Base struct {
	pageable         Pageable
	sort             Sort
	ids              []string
	routing          string
	preference       string
	sourceFilter     *SourceFilter
	fields           []string
	storedFields     []string
	minScore         float64
	trackScores      bool
	maxResults       *int
	highlight        *HighlightQuery
	rescorers        []RescorerQuery
	searchAfter      []any
	scroll           time.Duration
	timeout          time.Duration
	totalHits        TotalHits
	requestCache     *bool
	explain          bool
	searchType       SearchType
	indicesOptions   *IndicesOptions
	idsWithRouting   map[string]string
	seqNoPrimaryTerm bool
}

// Common returns the shared configuration.
func (b *Base) Common() *Base { return b }

func (b *Base) sealed() {}

// SetPageable sets paging and appends the page's sort to the accumulated sort.
func (b *Base) SetPageable(p Pageable) {
	b.pageable = p
	b.sort = b.sort.And(p.Sort())
}

// Pageable returns the page request.
func (b *Base) Pageable() Pageable { return b.pageable }

// AddSort appends s to the accumulated sort.
func (b *Base) AddSort(s Sort) { b.sort = b.sort.And(s) }

// Sort returns the accumulated sort.
func (b *Base) Sort() Sort { return b.sort }

// SetIDs restricts the query to the given ids.
func (b *Base) SetIDs(ids ...string) { b.ids = ids }

// IDs returns the id restriction.
func (b *Base) IDs() []string { return b.ids }

// SetIDWithRouting adds an id fetched with its own routing by multi-get.
func (b *Base) SetIDWithRouting(id, routing string) {
	if b.idsWithRouting == nil {
		b.idsWithRouting = map[string]string{}
	}
	b.idsWithRouting[id] = routing
	b.ids = append(b.ids, id)
}

// RoutingFor returns the per-id routing set by SetIDWithRouting.
func (b *Base) RoutingFor(id string) string { return b.idsWithRouting[id] }

// SetRouting sets the shard routing value.
func (b *Base) SetRouting(r string) { b.routing = r }

// Routing returns the routing value.
func (b *Base) Routing() string { return b.routing }

// SetPreference sets the shard preference.
func (b *Base) SetPreference(p string) { b.preference = p }

// Preference returns the shard preference.
func (b *Base) Preference() string { return b.preference }

// SetSourceFilter sets _source includes and excludes.
func (b *Base) SetSourceFilter(f SourceFilter) { b.sourceFilter = &f }

// SourceFilter returns the source filter or nil.
func (b *Base) SourceFilter() *SourceFilter { return b.sourceFilter }

// AddFields appends to the field projection.
func (b *Base) AddFields(fields ...string) { b.fields = append(b.fields, fields...) }

// Fields returns the field projection.
func (b *Base) Fields() []string { return b.fields }

// SetStoredFields sets the stored fields to fetch.
func (b *Base) SetStoredFields(fields ...string) { b.storedFields = fields }

// StoredFields returns the stored fields to fetch.
func (b *Base) StoredFields() []string { return b.storedFields }

// SetMinScore drops hits scoring below s.
func (b *Base) SetMinScore(s float64) { b.minScore = s }

// MinScore returns the score threshold.
func (b *Base) MinScore() float64 { return b.minScore }

// SetTrackScores computes scores even when sorting on a field.
func (b *Base) SetTrackScores(v bool) { b.trackScores = v }

// TrackScores reports whether scores are tracked.
func (b *Base) TrackScores() bool { return b.trackScores }

// SetMaxResults limits the number of hits. It overrides the page size.
func (b *Base) SetMaxResults(n int) { b.maxResults = &n }

// MaxResults returns the hit limit or nil.
func (b *Base) MaxResults() *int { return b.maxResults }

// SetHighlightQuery sets an explicit highlight. It takes precedence over a native highlight.
func (b *Base) SetHighlightQuery(h HighlightQuery) { b.highlight = &h }

// HighlightQuery returns the explicit highlight or nil.
func (b *Base) HighlightQuery() *HighlightQuery { return b.highlight }

// AddRescorer appends a rescore stage.
func (b *Base) AddRescorer(r RescorerQuery) { b.rescorers = append(b.rescorers, r) }

// Rescorers returns the rescore stages.
func (b *Base) Rescorers() []RescorerQuery { return b.rescorers }

// SetSearchAfter sets the search_after cursor.
func (b *Base) SetSearchAfter(values ...any) { b.searchAfter = values }

// SearchAfter returns the cursor.
func (b *Base) SearchAfter() []any { return b.searchAfter }

// SetScroll sets the scroll keep-alive.
func (b *Base) SetScroll(d time.Duration) { b.scroll = d }

// Scroll returns the scroll keep-alive.
func (b *Base) Scroll() time.Duration { return b.scroll }

// SetTimeout sets the search timeout.
func (b *Base) SetTimeout(d time.Duration) { b.timeout = d }

// Timeout returns the search timeout.
func (b *Base) Timeout() time.Duration { return b.timeout }

// SetTrackTotalHits enables or disables exact hit counting.
func (b *Base) SetTrackTotalHits(v bool) { b.totalHits.Track = &v }

// SetTrackTotalHitsUpTo counts hits accurately up to n.
func (b *Base) SetTrackTotalHitsUpTo(n int) { b.totalHits.UpTo = &n }

// TotalHits returns the hit counting configuration.
func (b *Base) TotalHits() TotalHits { return b.totalHits }

// SetRequestCache overrides the index request cache setting.
func (b *Base) SetRequestCache(v bool) { b.requestCache = &v }

// RequestCache returns the request cache override or nil.
func (b *Base) RequestCache() *bool { return b.requestCache }

// SetExplain asks the engine to explain each hit's score.
func (b *Base) SetExplain(v bool) { b.explain = v }

// Explain reports whether explanations are requested.
func (b *Base) Explain() bool { return b.explain }

// SetSearchType sets the search type.
func (b *Base) SetSearchType(t SearchType) { b.searchType = t }

// SearchType returns the search type.
func (b *Base) SearchType() SearchType { return b.searchType }

// SetIndicesOptions sets index resolution options.
func (b *Base) SetIndicesOptions(o IndicesOptions) { b.indicesOptions = &o }

// IndicesOptions returns the index resolution options or nil.
func (b *Base) IndicesOptions() *IndicesOptions { return b.indicesOptions }

// SetSeqNoPrimaryTerm requests seq_no and primary_term for every hit.
func (b *Base) SetSeqNoPrimaryTerm(v bool) { b.seqNoPrimaryTerm = v }

// SeqNoPrimaryTerm reports whether seq_no and primary_term are requested.
func (b *Base) SeqNoPrimaryTerm() bool { return b.seqNoPrimaryTerm }

// toDSLParameters converts parameters to wire options. Zero sizes are omitted.
func toDSLParameters(p HighlightParameters) dsl.HighlightOptions {
	o := dsl.HighlightOptions{
		PreTags:           p.PreTags,
		PostTags:          p.PostTags,
		Order:             p.Order,
		Encoder:           p.Encoder,
		Type:              p.Type,
		BoundaryScanner:   p.BoundaryScanner,
		RequireFieldMatch: p.RequireFieldMatch,
	}
	if p.FragmentSize > 0 {
		o.FragmentSize = &p.FragmentSize
	}
	if p.NumberOfFragments > 0 {
		o.NumberOfFragments = &p.NumberOfFragments
	}
	if p.NoMatchSize > 0 {
		o.NoMatchSize = &p.NoMatchSize
	}
	return o
}

// ToDSL converts h to the wire highlight, resolving field names with resolve.
func (h Highlight) ToDSL(resolve func(string) string) dsl.Highlight {
	out := dsl.Highlight{HighlightOptions: toDSLParameters(h.Parameters)}
	for _, f := range h.Fields {
		name := f.Name
		if resolve != nil {
			name = resolve(name)
		}
		out.Fields = append(out.Fields, dsl.HighlightField{
			Name:             name,
			HighlightOptions: toDSLParameters(f.Parameters),
		})
	}
	return out
}
