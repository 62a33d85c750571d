package result

import "encoding/json"

// SearchHit is a typed hit. Highlight keys are property names.
type SearchHit[T any] struct {
	Index          string
	ID             string
	Score          float64
	SortValues     []any
	Highlight      map[string][]string
	InnerHits      map[string]*SearchHits[any]
	Nested         *NestedMetaData
	Explanation    json.RawMessage
	MatchedQueries []string
	Routing        string
	Version        *int64
	SeqNo          *int64
	PrimaryTerm    *int64
	Content        T
}

// SearchHits is a typed page of hits.
type SearchHits[T any] struct {
	TotalHits         int64
	TotalHitsRelation string
	MaxScore          float64
	ScrollID          string
	Hits              []SearchHit[T]
	Aggregations      json.RawMessage
}

// Contents returns the hit contents in order.
func (h *SearchHits[T]) Contents() []T {
	out := make([]T, 0, len(h.Hits))
	for _, hit := range h.Hits {
		out = append(out, hit.Content)
	}
	return out
}

// HasHits reports whether the page holds at least one hit.
func (h *SearchHits[T]) HasHits() bool { return len(h.Hits) > 0 }
