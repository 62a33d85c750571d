// Package hitmap assembles typed search hits from raw documents and
// their already converted contents.
package hitmap

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esodm/internal/convert"
	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/result"
)

// Mapper builds hits. Inner hits are re-converted to the entity type found at
// the bottom of their nested chain; failures there are logged, not returned.
type Mapper struct {
	conv   *convert.Converter
	logger *zap.Logger
}

// New creates a Mapper. A nil logger discards warnings.
func New(conv *convert.Converter, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{conv: conv, logger: logger}
}

// MapHit wraps content with the metadata of d. e may be nil, in which case
// highlight names are kept and inner hits stay raw.
func MapHit[T any](m *Mapper, e *entity.Entity, d *result.SearchDocument, content T) result.SearchHit[T] {
	return result.SearchHit[T]{
		Index:          d.Index,
		ID:             d.ID,
		Score:          d.Score,
		SortValues:     d.SortValues,
		Highlight:      m.highlight(e, d.Highlight),
		InnerHits:      m.innerHits(e, d.InnerHits),
		Nested:         d.Nested,
		Explanation:    d.Explanation,
		MatchedQueries: d.MatchedQueries,
		Routing:        d.Routing,
		Version:        d.Version,
		SeqNo:          d.SeqNo,
		PrimaryTerm:    d.PrimaryTerm,
		Content:        content,
	}
}

// MapHits pairs every document of resp with the content at the same index.
// The counts must match.
func MapHits[T any](
	m *Mapper, e *entity.Entity, resp *result.SearchDocumentResponse, contents []T,
) (*result.SearchHits[T], error) {
	if len(resp.Documents) != len(contents) {
		return nil, domain.IllegalArgument(
			"count of documents (%d) must match the count of entities (%d)",
			len(resp.Documents), len(contents))
	}
	out := &result.SearchHits[T]{
		TotalHits:         resp.TotalHits,
		TotalHitsRelation: resp.TotalHitsRelation,
		MaxScore:          resp.MaxScore,
		ScrollID:          resp.ScrollID,
		Aggregations:      resp.Aggregations,
		Hits:              make([]result.SearchHit[T], 0, len(contents)),
	}
	for i := range resp.Documents {
		out.Hits = append(out.Hits, MapHit(m, e, &resp.Documents[i], contents[i]))
	}
	return out, nil
}

func (m *Mapper) highlight(e *entity.Entity, h map[string][]string) map[string][]string {
	if len(h) == 0 {
		return h
	}
	out := make(map[string][]string, len(h))
	for field, fragments := range h {
		out[m.conv.Context().ResolvePropertyName(e, field)] = fragments
	}
	return out
}

func (m *Mapper) innerHits(
	e *entity.Entity, inner map[string]*result.SearchDocumentResponse,
) map[string]*result.SearchHits[any] {
	if len(inner) == 0 {
		return nil
	}
	out := make(map[string]*result.SearchHits[any], len(inner))
	for name, resp := range inner {
		out[name] = m.innerResponse(e, name, resp)
	}
	return out
}

// innerResponse converts nested inner hits to their sub-entity type. Anything
// that cannot be resolved keeps the raw documents as contents.
func (m *Mapper) innerResponse(
	e *entity.Entity, name string, resp *result.SearchDocumentResponse,
) *result.SearchHits[any] {
	raw := m.raw(resp)
	if e == nil || len(resp.Documents) == 0 || resp.Documents[0].Nested == nil {
		return raw
	}

	target, err := m.nestedType(e, resp.Documents[0].Nested)
	if err != nil {
		m.logger.Warn("could not map inner hits",
			zap.String("inner_hits", name),
			zap.String("entity", e.Name()),
			zap.Error(err))
		return raw
	}

	contents := make([]any, 0, len(resp.Documents))
	for i := range resp.Documents {
		v, err := m.conv.ReadType(target.Type(), &resp.Documents[i])
		if err != nil {
			m.logger.Warn("could not convert inner hit",
				zap.String("inner_hits", name),
				zap.String("target", target.Name()),
				zap.Error(err))
			return raw
		}
		contents = append(contents, v)
	}

	mapped, err := MapHits(m, target, resp, contents)
	if err != nil {
		m.logger.Warn("could not map inner hits", zap.String("inner_hits", name), zap.Error(err))
		return raw
	}
	for i := range mapped.Hits {
		mapped.Hits[i].Nested = m.propertyChain(e, mapped.Hits[i].Nested)
	}
	return mapped
}

// nestedType walks the field chain down from e and returns the entity at its bottom.
func (m *Mapper) nestedType(e *entity.Entity, n *result.NestedMetaData) (*entity.Entity, error) {
	current := e
	for n != nil {
		p, ok := current.PropertyByFieldName(n.Field)
		if !ok {
			return nil, fmt.Errorf("no property for field %q on %s", n.Field, current.Name())
		}
		if !p.IsEntity() {
			return nil, fmt.Errorf("property %s of %s is not an entity", p.Name, current.Name())
		}
		sub, err := m.conv.Context().PropertyEntity(p)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", p.Name, err)
		}
		current = sub
		n = n.Child
	}
	return current, nil
}

// propertyChain renames the fields of n to property names, keeping offsets.
func (m *Mapper) propertyChain(e *entity.Entity, n *result.NestedMetaData) *result.NestedMetaData {
	if n == nil {
		return nil
	}
	out := &result.NestedMetaData{Field: n.Field, Offset: n.Offset}
	p, ok := e.PropertyByFieldName(n.Field)
	if !ok {
		out.Child = n.Child
		return out
	}
	out.Field = p.Name
	if n.Child != nil {
		if sub, err := m.conv.Context().PropertyEntity(p); err == nil {
			out.Child = m.propertyChain(sub, n.Child)
		} else {
			out.Child = n.Child
		}
	}
	return out
}

func (m *Mapper) raw(resp *result.SearchDocumentResponse) *result.SearchHits[any] {
	contents := make([]any, 0, len(resp.Documents))
	for i := range resp.Documents {
		contents = append(contents, &resp.Documents[i])
	}
	hits, _ := MapHits(m, nil, resp, contents) //nolint:errcheck // counts match by construction
	return hits
}

// ContentType returns the Go type of the first hit content, or nil for an empty page.
func ContentType(h *result.SearchHits[any]) reflect.Type {
	if h == nil || len(h.Hits) == 0 {
		return nil
	}
	return reflect.TypeOf(h.Hits[0].Content)
}
