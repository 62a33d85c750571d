package request

import (
	"bytes"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/dsl"
)

// UpdateByQueryRequest is a translated update-by-query.
type UpdateByQueryRequest struct {
	// Search carries the inner query. Its size is the batch size.
	Search              *SearchRequest
	Script              *dsl.Script
	BatchSize           *int
	MaxDocs             *int
	MaxRetries          *int
	Slices              *int
	RequestsPerSecond   *float32
	Conflicts           query.Conflicts
	Pipeline            string
	Refresh             bool
	ShouldStoreResult   *bool
	Timeout             time.Duration
	WaitForActiveShards string
}

// UpdateByQuery translates u. The inner query runs through the search pipeline.
func (f *Factory) UpdateByQuery(u query.UpdateQuery, e *entity.Entity, idx Coordinates) (*UpdateByQueryRequest, error) {
	if u.Query == nil {
		return nil, domain.IllegalArgument("update by query requires a query")
	}
	if rps := u.RequestsPerSecond; rps != nil && *rps < 1 {
		return nil, domain.IllegalArgument("requests per second must be at least 1, got %v", *rps)
	}
	s, err := f.Search(u.Query, e, idx)
	if err != nil {
		return nil, err
	}
	script, err := buildScript(u)
	if err != nil {
		return nil, err
	}
	r := &UpdateByQueryRequest{
		Search:              s,
		Script:              script,
		BatchSize:           u.BatchSize,
		MaxDocs:             u.MaxDocs,
		MaxRetries:          u.MaxRetries,
		Slices:              u.Slices,
		RequestsPerSecond:   u.RequestsPerSecond,
		Pipeline:            u.Pipeline,
		Refresh:             u.Refresh == query.RefreshImmediate,
		ShouldStoreResult:   u.ShouldStoreResult,
		Timeout:             u.Timeout,
		WaitForActiveShards: u.WaitForActiveShards,
	}
	if u.BatchSize != nil {
		s.Body.Size = intPtr(*u.BatchSize)
	}
	if u.Routing != "" {
		s.Routing = []string{u.Routing}
	}
	if u.Scroll > 0 {
		s.Scroll = u.Scroll
	}
	if u.AbortOnVersionConflict != nil {
		r.Conflicts = query.ConflictsProceed
		if *u.AbortOnVersionConflict {
			r.Conflicts = query.ConflictsAbort
		}
	}
	return r, nil
}

// buildScript returns nil when u carries no script.
func buildScript(u query.UpdateQuery) (*dsl.Script, error) {
	var (
		s   dsl.Script
		err error
	)
	switch u.ScriptType {
	case query.ScriptStored:
		if u.ScriptName == "" {
			return nil, domain.IllegalArgument("stored script requires a name")
		}
		s, err = dsl.StoredScript(u.ScriptName, u.Params)
	default:
		if u.Script == "" {
			return nil, nil
		}
		s, err = dsl.InlineScript(u.Script, u.Lang, u.Params)
	}
	if err != nil {
		return nil, domain.IllegalArgument("%v", err)
	}
	return &s, nil
}

type byQueryBody struct {
	Query   dsl.Query   `json:"query,omitempty"`
	Script  *dsl.Script `json:"script,omitempty"`
	MaxDocs *int        `json:"max_docs,omitempty"`
}

// ESAPI converts the request. The engine has no parameter for MaxRetries or ShouldStoreResult.
func (r *UpdateByQueryRequest) ESAPI() (esapi.UpdateByQueryRequest, error) {
	body, err := marshal(byQueryBody{Query: r.Search.Body.FilteredQuery(), Script: r.Script, MaxDocs: r.MaxDocs})
	if err != nil {
		return esapi.UpdateByQueryRequest{}, err
	}
	req := esapi.UpdateByQueryRequest{
		Index:               r.Search.Indices,
		Body:                bytes.NewReader(body),
		Conflicts:           string(r.Conflicts),
		Pipeline:            r.Pipeline,
		Routing:             r.Search.Routing,
		Scroll:              r.Search.Scroll,
		ScrollSize:          r.BatchSize,
		Timeout:             r.Timeout,
		WaitForActiveShards: r.WaitForActiveShards,
	}
	if r.Refresh {
		req.Refresh = boolPtr(true)
	}
	if r.Slices != nil {
		req.Slices = *r.Slices
	}
	if r.RequestsPerSecond != nil {
		req.RequestsPerSecond = intPtr(int(*r.RequestsPerSecond))
	}
	return req, nil
}

// DeleteByQueryRequest is a translated delete-by-query.
type DeleteByQueryRequest struct {
	Search    *SearchRequest
	BatchSize *int
	Conflicts query.Conflicts
	Refresh   bool
}

// DeleteByQuery translates q. Conflicts proceed and the index is refreshed afterwards.
func (f *Factory) DeleteByQuery(q query.Query, e *entity.Entity, idx Coordinates) (*DeleteByQueryRequest, error) {
	s, err := f.Search(q, e, idx)
	if err != nil {
		return nil, err
	}
	r := &DeleteByQueryRequest{Search: s, Conflicts: query.ConflictsProceed, Refresh: true}
	if q != nil {
		if n := q.Common().MaxResults(); n != nil {
			r.BatchSize = intPtr(*n)
		}
	}
	return r, nil
}

// ESAPI converts the request.
func (r *DeleteByQueryRequest) ESAPI() (esapi.DeleteByQueryRequest, error) {
	body, err := marshal(byQueryBody{Query: r.Search.Body.FilteredQuery()})
	if err != nil {
		return esapi.DeleteByQueryRequest{}, err
	}
	return esapi.DeleteByQueryRequest{
		Index:      r.Search.Indices,
		Body:       bytes.NewReader(body),
		Conflicts:  string(r.Conflicts),
		Refresh:    boolPtr(r.Refresh),
		Routing:    r.Search.Routing,
		Scroll:     r.Search.Scroll,
		ScrollSize: r.BatchSize,
	}, nil
}
