package esodm

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/search/criteria"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
)

// SearchBuilder is a fluent builder for typed criteria searches.
// The first invalid argument is kept and returned by Do and Count.
type SearchBuilder[T any] struct {
	idx *TypedIndex[T]
	q   *query.CriteriaQuery
	err error
}

// Where adds a criteria chain. Chains added by repeated calls are AND-joined.
func (b *SearchBuilder[T]) Where(c *criteria.Criteria) *SearchBuilder[T] {
	if c == nil {
		return b
	}
	b.q.AddCriteria(c)
	return b
}

// Page sets the zero-based page and its size.
func (b *SearchBuilder[T]) Page(page, size int) *SearchBuilder[T] {
	p, err := query.PageOf(page, size)
	if err != nil {
		b.fail(err)
		return b
	}
	b.q.SetPageable(p)
	return b
}

// Sort appends sort orders.
func (b *SearchBuilder[T]) Sort(orders ...query.Order) *SearchBuilder[T] {
	b.q.AddSort(query.By(orders...))
	return b
}

// Limit caps the number of hits returned.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	if n < 1 {
		b.fail(fmt.Errorf("limit must be at least 1, got %d", n))
		return b
	}
	b.q.SetMaxResults(n)
	return b
}

// Highlight requests highlighted fragments for the given properties.
func (b *SearchBuilder[T]) Highlight(properties ...string) *SearchBuilder[T] {
	fields := make([]query.HighlightField, 0, len(properties))
	for _, p := range properties {
		fields = append(fields, query.HighlightField{Name: p})
	}
	var zero T
	b.q.SetHighlightQuery(query.HighlightQuery{Highlight: query.Highlight{Fields: fields}, Type: zero})
	return b
}

// Source restricts the returned source to the given fields.
func (b *SearchBuilder[T]) Source(includes ...string) *SearchBuilder[T] {
	b.q.SetSourceFilter(query.SourceFilter{Includes: includes})
	return b
}

// Routing routes the search to the shards of the given routing value.
func (b *SearchBuilder[T]) Routing(r string) *SearchBuilder[T] {
	b.q.SetRouting(r)
	return b
}

// Build returns the assembled query.
func (b *SearchBuilder[T]) Build() (*CriteriaQuery, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.q, nil
}

// Do runs the search.
func (b *SearchBuilder[T]) Do(ctx context.Context) (*SearchHits[T], error) {
	q, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return b.idx.Search(ctx, q)
}

// Count counts the matching documents. Paging and sorting are ignored.
func (b *SearchBuilder[T]) Count(ctx context.Context) (int64, error) {
	q, err := b.Build()
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return b.idx.Count(ctx, q)
}

// First returns the top hit. No hit yields ErrNotFound.
func (b *SearchBuilder[T]) First(ctx context.Context) (T, error) {
	var zero T
	b.q.SetPageable(query.MustPageOf(0, 1))
	hits, err := b.Do(ctx)
	if err != nil {
		return zero, err
	}
	if !hits.HasHits() {
		return zero, fmt.Errorf("first: %w", domain.ErrNotFound)
	}
	return hits.Hits[0].Content, nil
}

func (b *SearchBuilder[T]) fail(err error) {
	if b.err == nil {
		b.err = domain.IllegalArgument("%v", err)
	}
}
