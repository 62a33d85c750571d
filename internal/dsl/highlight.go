package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/boundaryscanner"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/highlighterencoder"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/highlighterorder"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/highlightertype"
)

// HighlightOptions are shared by the highlight block and its fields.
type HighlightOptions struct {
	PreTags           []string
	PostTags          []string
	FragmentSize      *int
	NumberOfFragments *int
	Order             string
	Encoder           string
	Type              string
	BoundaryScanner   string
	RequireFieldMatch *bool
	NoMatchSize       *int
	HighlightQuery    Query
}

// HighlightField highlights one field.
type HighlightField struct {
	Name string
	HighlightOptions
	MatchedFields []string
}

// Highlight is the highlight block of a search body.
type Highlight struct {
	HighlightOptions
	Fields []HighlightField
}

func (o HighlightOptions) block() types.Highlight {
	h := types.Highlight{
		PreTags:           o.PreTags,
		PostTags:          o.PostTags,
		FragmentSize:      o.FragmentSize,
		NumberOfFragments: o.NumberOfFragments,
		RequireFieldMatch: o.RequireFieldMatch,
		NoMatchSize:       o.NoMatchSize,
		HighlightQuery:    o.HighlightQuery,
	}
	if o.Order != "" {
		h.Order = &highlighterorder.HighlighterOrder{Name: o.Order}
	}
	if o.Encoder != "" {
		h.Encoder = &highlighterencoder.HighlighterEncoder{Name: o.Encoder}
	}
	if o.Type != "" {
		h.Type = &highlightertype.HighlighterType{Name: o.Type}
	}
	if o.BoundaryScanner != "" {
		h.BoundaryScanner = &boundaryscanner.BoundaryScanner{Name: o.BoundaryScanner}
	}
	return h
}

func (f HighlightField) field() types.HighlightField {
	o := f.HighlightOptions
	out := types.HighlightField{
		PreTags:           o.PreTags,
		PostTags:          o.PostTags,
		FragmentSize:      o.FragmentSize,
		NumberOfFragments: o.NumberOfFragments,
		RequireFieldMatch: o.RequireFieldMatch,
		NoMatchSize:       o.NoMatchSize,
		HighlightQuery:    o.HighlightQuery,
		MatchedFields:     f.MatchedFields,
	}
	if o.Order != "" {
		out.Order = &highlighterorder.HighlighterOrder{Name: o.Order}
	}
	if o.Type != "" {
		out.Type = &highlightertype.HighlighterType{Name: o.Type}
	}
	if o.BoundaryScanner != "" {
		out.BoundaryScanner = &boundaryscanner.BoundaryScanner{Name: o.BoundaryScanner}
	}
	return out
}

// MarshalJSON writes fields as an array of single-key objects to keep their order.
func (h Highlight) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(h.block())
	if err != nil {
		return nil, fmt.Errorf("marshal highlight: %w", err)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("marshal highlight: %w", err)
	}

	fields := make([]map[string]types.HighlightField, 0, len(h.Fields))
	for _, f := range h.Fields {
		fields = append(fields, map[string]types.HighlightField{f.Name: f.field()})
	}
	if body["fields"], err = json.Marshal(fields); err != nil {
		return nil, fmt.Errorf("marshal highlight fields: %w", err)
	}
	data, err = json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal highlight: %w", err)
	}
	return data, nil
}
