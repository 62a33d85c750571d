// Package dsl builds engine-native query clauses, sorts, highlights and
// scripts on top of the typed request model of the go-elasticsearch client.
package dsl

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/childscoremode"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/operator"
)

// Query is an engine-native query clause. A nil Query means no clause.
type Query = *types.Query

// JSON serializes the clause.
func JSON(q Query) (string, error) {
	if q == nil {
		return "null", nil
	}
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("marshal query: %w", err)
	}
	return string(data), nil
}

// Raw decodes a JSON clause.
func Raw(source string) (Query, error) {
	q := &types.Query{}
	if err := json.Unmarshal([]byte(source), q); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	return q, nil
}

// MatchAll matches every document.
func MatchAll() Query { return &types.Query{MatchAll: &types.MatchAllQuery{}} }

// MatchNone matches no document.
func MatchNone() Query { return &types.Query{MatchNone: &types.MatchNoneQuery{}} }

// Term matches an exact value.
func Term(field string, value any) Query {
	return &types.Query{Term: map[string]types.TermQuery{field: {Value: value}}}
}

// Terms matches any of the values.
func Terms(field string, values ...any) Query {
	if values == nil {
		values = []any{}
	}
	return &types.Query{Terms: &types.TermsQuery{
		TermsQuery: map[string]types.TermsQueryField{field: values},
	}}
}

// IDs matches documents by id.
func IDs(ids ...string) Query {
	return &types.Query{Ids: &types.IdsQuery{Values: ids}}
}

// Exists matches documents with a value in field.
func Exists(field string) Query {
	return &types.Query{Exists: &types.ExistsQuery{Field: field}}
}

// Match runs a full-text match. op is "or", "and" or empty.
func Match(field string, text any, op string) Query {
	m := types.MatchQuery{Query: textOf(text)}
	if op != "" {
		m.Operator = &operator.Operator{Name: op}
	}
	return &types.Query{Match: map[string]types.MatchQuery{field: m}}
}

// Fuzzy matches terms within an edit distance.
func Fuzzy(field string, value any) Query {
	return &types.Query{Fuzzy: map[string]types.FuzzyQuery{field: {Value: textOf(value)}}}
}

// Prefix matches terms starting with value.
func Prefix(field, value string) Query {
	return &types.Query{Prefix: map[string]types.PrefixQuery{field: {Value: value}}}
}

// RangeBounds are the optional limits of a range clause.
type RangeBounds struct {
	GT  any
	GTE any
	LT  any
	LTE any
}

// Range matches values within bounds. Bounds keep their JSON form, so
// numbers, dates and strings all pass through unchanged.
func Range(field string, r RangeBounds) Query {
	return &types.Query{Range: map[string]types.RangeQuery{field: types.UntypedRangeQuery{
		Gt:  bound(r.GT),
		Gte: bound(r.GTE),
		Lt:  bound(r.LT),
		Lte: bound(r.LTE),
	}}}
}

// QueryStringOptions tune a query_string clause.
type QueryStringOptions struct {
	Fields          []string
	DefaultOperator string
	AnalyzeWildcard bool
}

// QueryString runs a Lucene query string.
func QueryString(query string, opts QueryStringOptions) Query {
	qs := &types.QueryStringQuery{Query: query, Fields: opts.Fields}
	if opts.DefaultOperator != "" {
		qs.DefaultOperator = &operator.Operator{Name: opts.DefaultOperator}
	}
	if opts.AnalyzeWildcard {
		qs.AnalyzeWildcard = &opts.AnalyzeWildcard
	}
	return &types.Query{QueryString: qs}
}

// Wrapper embeds an opaque JSON query string; the engine expects it base64 encoded.
func Wrapper(source string) Query {
	return &types.Query{Wrapper: &types.WrapperQuery{
		Query: base64.StdEncoding.EncodeToString([]byte(source)),
	}}
}

// Nested runs q against nested documents under path. A nil q matches all.
func Nested(path string, q Query, scoreMode string) Query {
	if q == nil {
		q = MatchAll()
	}
	n := &types.NestedQuery{Path: path, Query: *q}
	if scoreMode != "" {
		n.ScoreMode = &childscoremode.ChildScoreMode{Name: scoreMode}
	}
	return &types.Query{Nested: n}
}

// GeoPoint is a latitude/longitude pair on the wire.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location converts p to the client's geo location.
func (p GeoPoint) Location() types.GeoLocation {
	return types.LatLonGeoLocation{Lat: types.Float64(p.Lat), Lon: types.Float64(p.Lon)}
}

// GeoDistance matches points within distance (e.g. "10km") of center.
func GeoDistance(field string, center GeoPoint, distance string) Query {
	return &types.Query{GeoDistance: &types.GeoDistanceQuery{
		Distance:         distance,
		GeoDistanceQuery: map[string]types.GeoLocation{field: center.Location()},
	}}
}

// GeoBoundingBox matches points inside the box.
func GeoBoundingBox(field string, topLeft, bottomRight GeoPoint) Query {
	return &types.Query{GeoBoundingBox: &types.GeoBoundingBoxQuery{
		GeoBoundingBoxQuery: map[string]types.GeoBounds{field: types.TopLeftBottomRightGeoBounds{
			TopLeft:     topLeft.Location(),
			BottomRight: bottomRight.Location(),
		}},
	}}
}

// Boost sets the boost of a clause in place and returns it.
//
//nolint:gocyclo,cyclop // one case per boostable clause
func Boost(q Query, boost float64) Query {
	if q == nil {
		return q
	}
	b := float32(boost)
	switch {
	case q.Term != nil:
		for k, v := range q.Term {
			v.Boost = &b
			q.Term[k] = v
		}
	case q.Match != nil:
		for k, v := range q.Match {
			v.Boost = &b
			q.Match[k] = v
		}
	case q.Fuzzy != nil:
		for k, v := range q.Fuzzy {
			v.Boost = &b
			q.Fuzzy[k] = v
		}
	case q.Prefix != nil:
		for k, v := range q.Prefix {
			v.Boost = &b
			q.Prefix[k] = v
		}
	case q.Range != nil:
		for k, v := range q.Range {
			if r, ok := v.(types.UntypedRangeQuery); ok {
				r.Boost = &b
				q.Range[k] = r
			}
		}
	case q.QueryString != nil:
		q.QueryString.Boost = &b
	case q.Terms != nil:
		q.Terms.Boost = &b
	case q.Exists != nil:
		q.Exists.Boost = &b
	case q.Ids != nil:
		q.Ids.Boost = &b
	case q.Bool != nil:
		q.Bool.Boost = &b
	case q.Nested != nil:
		q.Nested.Boost = &b
	case q.GeoDistance != nil:
		q.GeoDistance.Boost = &b
	case q.GeoBoundingBox != nil:
		q.GeoBoundingBox.Boost = &b
	case q.MatchAll != nil:
		q.MatchAll.Boost = &b
	case q.MoreLikeThis != nil:
		q.MoreLikeThis.Boost = &b
	case q.Wrapper != nil:
		q.Wrapper.Boost = &b
	}
	return q
}

// BoolQuery assembles a bool clause.
type BoolQuery struct {
	b types.BoolQuery
}

// Bool starts an empty bool clause.
func Bool() *BoolQuery { return &BoolQuery{} }

func appendQueries(dst []types.Query, qs []Query) []types.Query {
	for _, q := range qs {
		if q != nil {
			dst = append(dst, *q)
		}
	}
	return dst
}

// Must adds scoring clauses that must match. Nil clauses are skipped.
func (b *BoolQuery) Must(q ...Query) *BoolQuery {
	b.b.Must = appendQueries(b.b.Must, q)
	return b
}

// Filter adds non-scoring clauses that must match.
func (b *BoolQuery) Filter(q ...Query) *BoolQuery {
	b.b.Filter = appendQueries(b.b.Filter, q)
	return b
}

// Should adds optional clauses.
func (b *BoolQuery) Should(q ...Query) *BoolQuery {
	b.b.Should = appendQueries(b.b.Should, q)
	return b
}

// MustNot adds excluding clauses.
func (b *BoolQuery) MustNot(q ...Query) *BoolQuery {
	b.b.MustNot = appendQueries(b.b.MustNot, q)
	return b
}

// MinimumShouldMatch sets minimum_should_match.
func (b *BoolQuery) MinimumShouldMatch(v string) *BoolQuery {
	b.b.MinimumShouldMatch = v
	return b
}

// HasClauses reports whether any clause was added.
func (b *BoolQuery) HasClauses() bool {
	return len(b.b.Must)+len(b.b.Filter)+len(b.b.Should)+len(b.b.MustNot) > 0
}

// Query renders the bool clause. Empty sections are left out.
func (b *BoolQuery) Query() Query {
	out := b.b
	return &types.Query{Bool: &out}
}

// bound encodes a range limit; values that cannot be encoded are sent as text.
func bound(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprint(v))
	}
	return data
}

// textOf renders a full-text operand. Strings pass through, other values use
// their JSON form so dates keep their wire format.
func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s
	}
	return string(data)
}
