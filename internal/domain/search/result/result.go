// Package result holds raw search documents as returned by the engine and
// the typed hits assembled from them.
package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// NestedMetaData locates a nested inner hit inside its root document.
// Child is set for nested objects inside nested objects.
type NestedMetaData struct {
	Field  string
	Offset int
	Child  *NestedMetaData
}

// SearchDocument is one raw hit.
type SearchDocument struct {
	Index          string
	ID             string
	Score          float64
	SortValues     []any
	Source         map[string]any
	Fields         map[string][]any
	Highlight      map[string][]string
	InnerHits      map[string]*SearchDocumentResponse
	Nested         *NestedMetaData
	Explanation    json.RawMessage
	MatchedQueries []string
	Routing        string
	Version        *int64
	SeqNo          *int64
	PrimaryTerm    *int64
}

// SearchDocumentResponse is a raw search response.
type SearchDocumentResponse struct {
	ScrollID          string
	TotalHits         int64
	TotalHitsRelation string
	MaxScore          float64
	Documents         []SearchDocument
	Aggregations      json.RawMessage
	Suggest           []Suggestion
}

type wireNested struct {
	Field  string      `json:"field"`
	Offset int         `json:"offset"`
	Child  *wireNested `json:"_nested"`
}

func (n *wireNested) toMeta() *NestedMetaData {
	if n == nil {
		return nil
	}
	return &NestedMetaData{Field: n.Field, Offset: n.Offset, Child: n.Child.toMeta()}
}

type wireHit struct {
	Index          string                  `json:"_index"`
	ID             string                  `json:"_id"`
	Score          *float64                `json:"_score"`
	Source         map[string]any          `json:"_source"`
	Fields         map[string][]any        `json:"fields"`
	Highlight      map[string][]string     `json:"highlight"`
	Sort           []any                   `json:"sort"`
	InnerHits      map[string]wireResponse `json:"inner_hits"`
	Nested         *wireNested             `json:"_nested"`
	Explanation    json.RawMessage         `json:"_explanation"`
	MatchedQueries json.RawMessage         `json:"matched_queries"`
	Routing        string                  `json:"_routing"`
	Version        *int64                  `json:"_version"`
	SeqNo          *int64                  `json:"_seq_no"`
	PrimaryTerm    *int64                  `json:"_primary_term"`
}

type wireTotal struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

// UnmarshalJSON accepts both {"value":n,"relation":"eq"} and a bare number.
func (t *wireTotal) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		t.Value, t.Relation = n, "eq"
		return nil
	}
	type plain wireTotal
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode total: %w", err)
	}
	*t = wireTotal(p)
	return nil
}

type wireHits struct {
	Total    *wireTotal `json:"total"`
	MaxScore *float64   `json:"max_score"`
	Hits     []wireHit  `json:"hits"`
}

type wireResponse struct {
	ScrollID     string                        `json:"_scroll_id"`
	Hits         wireHits                      `json:"hits"`
	Aggregations json.RawMessage               `json:"aggregations"`
	Suggest      map[string][]wireSuggestEntry `json:"suggest"`
}

// ParseResponse decodes a search response body. Numbers in sources, fields
// and sort values are kept as json.Number.
func ParseResponse(data []byte) (*SearchDocumentResponse, error) {
	var w wireResponse
	if err := decode(data, &w); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return w.toResponse(), nil
}

// ParseDocument decodes a single hit, e.g. a get response body.
func ParseDocument(data []byte) (*SearchDocument, error) {
	var h wireHit
	if err := decode(data, &h); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	d := h.toDocument()
	return &d, nil
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func (w wireResponse) toResponse() *SearchDocumentResponse {
	r := &SearchDocumentResponse{
		ScrollID:     w.ScrollID,
		Aggregations: w.Aggregations,
		Documents:    make([]SearchDocument, 0, len(w.Hits.Hits)),
		Suggest:      suggestions(w.Suggest),
	}
	if w.Hits.Total != nil {
		r.TotalHits = w.Hits.Total.Value
		r.TotalHitsRelation = w.Hits.Total.Relation
	}
	if w.Hits.MaxScore != nil {
		r.MaxScore = *w.Hits.MaxScore
	}
	for _, h := range w.Hits.Hits {
		r.Documents = append(r.Documents, h.toDocument())
	}
	return r
}

func (h wireHit) toDocument() SearchDocument {
	d := SearchDocument{
		Index:       h.Index,
		ID:          h.ID,
		SortValues:  h.Sort,
		Source:      h.Source,
		Fields:      h.Fields,
		Highlight:   h.Highlight,
		Nested:      h.Nested.toMeta(),
		Explanation: h.Explanation,
		Routing:     h.Routing,
		Version:     h.Version,
		SeqNo:       h.SeqNo,
		PrimaryTerm: h.PrimaryTerm,
	}
	if h.Score != nil {
		d.Score = *h.Score
	}
	d.MatchedQueries = matchedQueries(h.MatchedQueries)
	if len(h.InnerHits) > 0 {
		d.InnerHits = make(map[string]*SearchDocumentResponse, len(h.InnerHits))
		for name, ih := range h.InnerHits {
			d.InnerHits[name] = ih.toResponse()
		}
	}
	return d
}

// matchedQueries reads the name list, or the name-to-score object returned
// when scores of named queries are requested.
func matchedQueries(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names
	}
	var scored map[string]float64
	if err := json.Unmarshal(raw, &scored); err != nil {
		return nil
	}
	for name := range scored {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
