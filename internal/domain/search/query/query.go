package query

import (
	"github.com/kailas-cloud/esodm/internal/domain/search/criteria"
	"github.com/kailas-cloud/esodm/internal/dsl"
)

// Query is one of CriteriaQuery, StringQuery or NativeQuery.
// The set is closed: only types declared here satisfy it.
type Query interface {
	Common() *Base
	sealed()
}

// CriteriaQuery is built from a criteria chain. Scoring predicates become the
// query, geo predicates become the filter.
type CriteriaQuery struct {
	Base
	criteria *criteria.Criteria
}

// NewCriteriaQuery creates a query over c. A nil chain matches all documents.
func NewCriteriaQuery(c *criteria.Criteria) *CriteriaQuery {
	return &CriteriaQuery{criteria: c}
}

// Criteria returns the chain.
func (q *CriteriaQuery) Criteria() *criteria.Criteria { return q.criteria }

// AddCriteria joins c to the current chain with AND. Neither chain is
// modified: the query keeps its own copy.
func (q *CriteriaQuery) AddCriteria(c *criteria.Criteria) *CriteriaQuery {
	if c == nil {
		return q
	}
	if q.criteria == nil {
		q.criteria = c.Clone()
		return q
	}
	q.criteria = q.criteria.Clone().AndGroup(c.Clone())
	return q
}

// StringQuery carries a raw engine query in JSON form.
type StringQuery struct {
	Base
	source string
}

// NewStringQuery creates a query from raw engine JSON, for example `{"match_all":{}}`.
func NewStringQuery(source string) *StringQuery {
	return &StringQuery{source: source}
}

// Source returns the raw query.
func (q *StringQuery) Source() string { return q.source }

// NativeQuery carries engine-native clauses built by the caller.
type NativeQuery struct {
	Base
	query                dsl.Query
	filter               dsl.Query
	sorts                []dsl.Sort
	highlight            *dsl.Highlight
	aggregations         dsl.Aggregations
	pipelineAggregations dsl.Aggregations
	scriptFields         []dsl.ScriptField
	collapse             *dsl.Collapse
	indicesBoost         []dsl.IndexBoost
	runtimeMappings      map[string]any
}

// Query returns the native query or nil.
func (q *NativeQuery) Query() dsl.Query { return q.query }

// Filter returns the native post filter or nil.
func (q *NativeQuery) Filter() dsl.Query { return q.filter }

// NativeSorts returns sorts appended after the resolved Sort.
func (q *NativeQuery) NativeSorts() []dsl.Sort { return q.sorts }

// NativeHighlight returns the native highlight or nil.
func (q *NativeQuery) NativeHighlight() *dsl.Highlight { return q.highlight }

// Aggregations returns the aggregations in declaration order.
func (q *NativeQuery) Aggregations() dsl.Aggregations { return q.aggregations }

// PipelineAggregations returns the pipeline aggregations in declaration order.
func (q *NativeQuery) PipelineAggregations() dsl.Aggregations { return q.pipelineAggregations }

// ScriptFields returns the script fields.
func (q *NativeQuery) ScriptFields() []dsl.ScriptField { return q.scriptFields }

// Collapse returns field collapsing or nil.
func (q *NativeQuery) Collapse() *dsl.Collapse { return q.collapse }

// IndicesBoost returns the per-index boosts.
func (q *NativeQuery) IndicesBoost() []dsl.IndexBoost { return q.indicesBoost }

// RuntimeMappings returns search-time runtime fields.
func (q *NativeQuery) RuntimeMappings() map[string]any { return q.runtimeMappings }

// NativeQueryBuilder assembles a NativeQuery.
type NativeQueryBuilder struct {
	q NativeQuery
}

// NewNativeQueryBuilder starts a native query.
func NewNativeQueryBuilder() *NativeQueryBuilder { return &NativeQueryBuilder{} }

// WithQuery sets the scoring query.
func (b *NativeQueryBuilder) WithQuery(q dsl.Query) *NativeQueryBuilder {
	b.q.query = q
	return b
}

// WithFilter sets the post filter.
func (b *NativeQueryBuilder) WithFilter(f dsl.Query) *NativeQueryBuilder {
	b.q.filter = f
	return b
}

// WithSort appends native sorts.
func (b *NativeQueryBuilder) WithSort(s ...dsl.Sort) *NativeQueryBuilder {
	b.q.sorts = append(b.q.sorts, s...)
	return b
}

// WithHighlight sets the native highlight.
func (b *NativeQueryBuilder) WithHighlight(h dsl.Highlight) *NativeQueryBuilder {
	b.q.highlight = &h
	return b
}

// WithAggregation appends an aggregation.
func (b *NativeQueryBuilder) WithAggregation(name string, body dsl.Aggregation) *NativeQueryBuilder {
	b.q.aggregations = append(b.q.aggregations, dsl.NamedAggregation{Name: name, Body: body})
	return b
}

// WithPipelineAggregation appends a pipeline aggregation.
func (b *NativeQueryBuilder) WithPipelineAggregation(name string, body dsl.Aggregation) *NativeQueryBuilder {
	b.q.pipelineAggregations = append(b.q.pipelineAggregations, dsl.NamedAggregation{Name: name, Body: body})
	return b
}

// WithScriptField appends a script field.
func (b *NativeQueryBuilder) WithScriptField(f dsl.ScriptField) *NativeQueryBuilder {
	b.q.scriptFields = append(b.q.scriptFields, f)
	return b
}

// WithCollapse sets field collapsing.
func (b *NativeQueryBuilder) WithCollapse(c dsl.Collapse) *NativeQueryBuilder {
	b.q.collapse = &c
	return b
}

// WithIndexBoost appends a per-index boost.
func (b *NativeQueryBuilder) WithIndexBoost(index string, boost float64) *NativeQueryBuilder {
	b.q.indicesBoost = append(b.q.indicesBoost, dsl.IndexBoost{Index: index, Boost: boost})
	return b
}

// WithRuntimeField declares a search-time runtime field.
func (b *NativeQueryBuilder) WithRuntimeField(name string, def map[string]any) *NativeQueryBuilder {
	if b.q.runtimeMappings == nil {
		b.q.runtimeMappings = map[string]any{}
	}
	b.q.runtimeMappings[name] = def
	return b
}

// WithPageable sets paging.
func (b *NativeQueryBuilder) WithPageable(p Pageable) *NativeQueryBuilder {
	b.q.SetPageable(p)
	return b
}

// WithSourceFilter sets _source filtering.
func (b *NativeQueryBuilder) WithSourceFilter(f SourceFilter) *NativeQueryBuilder {
	b.q.SetSourceFilter(f)
	return b
}

// Build returns the query. The builder must not be reused.
func (b *NativeQueryBuilder) Build() *NativeQuery {
	q := b.q
	return &q
}
