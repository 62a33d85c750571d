package dsl

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/scoremode"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/scriptlanguage"
)

// Script is an inline or stored script.
type Script = types.Script

// InlineScript builds a script from source. An empty lang leaves the engine default.
func InlineScript(source, lang string, params map[string]any) (Script, error) {
	s := Script{Source: &source}
	if lang != "" {
		s.Lang = &scriptlanguage.ScriptLanguage{Name: lang}
	}
	p, err := scriptParams(params)
	if err != nil {
		return Script{}, err
	}
	s.Params = p
	return s, nil
}

// StoredScript references a stored script by id.
func StoredScript(id string, params map[string]any) (Script, error) {
	p, err := scriptParams(params)
	if err != nil {
		return Script{}, err
	}
	return Script{Id: &id, Params: p}, nil
}

func scriptParams(params map[string]any) (map[string]json.RawMessage, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make(map[string]json.RawMessage, len(params))
	for k, v := range params {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode script param %s: %w", k, err)
		}
		out[k] = data
	}
	return out, nil
}

// ScriptField computes a field per hit.
type ScriptField struct {
	Name          string
	Script        Script
	IgnoreFailure bool
}

// Typed converts f to its wire form.
func (f ScriptField) Typed() types.ScriptField {
	out := types.ScriptField{Script: f.Script}
	if f.IgnoreFailure {
		out.IgnoreFailure = &f.IgnoreFailure
	}
	return out
}

// Collapse groups hits by a field value.
type Collapse = types.FieldCollapse

// IndexBoost multiplies scores of hits from one index.
type IndexBoost struct {
	Index string
	Boost float64
}

// MarshalJSON writes {"index": boost}.
func (b IndexBoost) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(map[string]types.Float64{b.Index: types.Float64(b.Boost)})
	if err != nil {
		return nil, fmt.Errorf("marshal index boost: %w", err)
	}
	return data, nil
}

// Aggregation is an engine-native aggregation body such as {"terms": {"field": "tag"}}.
type Aggregation map[string]any

// NamedAggregation keeps the name next to the body so requests preserve declaration order.
type NamedAggregation struct {
	Name string
	Body Aggregation
}

// Aggregations is an ordered set of named aggregations.
type Aggregations []NamedAggregation

// MarshalJSON writes {"name": body, ...} in declaration order.
func (a Aggregations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, agg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(agg.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal aggregation name: %w", err)
		}
		body, err := json.Marshal(agg.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal aggregation %s: %w", agg.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Rescore is one entry of the rescore array.
type Rescore = types.Rescore

// RescoreOptions tune a query rescorer.
type RescoreOptions struct {
	WindowSize         *int
	QueryWeight        *float64
	RescoreQueryWeight *float64
	ScoreMode          string
}

// NewRescore rescores the top hits with q. A nil q matches all.
func NewRescore(q Query, opts RescoreOptions) Rescore {
	if q == nil {
		q = MatchAll()
	}
	rq := &types.RescoreQuery{Query: *q}
	if opts.QueryWeight != nil {
		w := types.Float64(*opts.QueryWeight)
		rq.QueryWeight = &w
	}
	if opts.RescoreQueryWeight != nil {
		w := types.Float64(*opts.RescoreQueryWeight)
		rq.RescoreQueryWeight = &w
	}
	if opts.ScoreMode != "" {
		rq.ScoreMode = &scoremode.ScoreMode{Name: opts.ScoreMode}
	}
	return Rescore{WindowSize: opts.WindowSize, Query: rq}
}
