package request

import (
	"bytes"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/dsl"
)

type createIndexBody struct {
	Settings map[string]any `json:"settings,omitempty"`
	Mappings any            `json:"mappings,omitempty"`
}

// CreateIndexRequest creates an index with optional settings and mapping.
type CreateIndexRequest struct {
	Index string
	Body  []byte
}

// CreateIndex translates an index creation. Empty settings and a nil mapping
// are left out of the body.
func (f *Factory) CreateIndex(settings map[string]any, mapping any, idx Coordinates) (*CreateIndexRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	body, err := marshal(createIndexBody{Settings: settings, Mappings: mapping})
	if err != nil {
		return nil, err
	}
	return &CreateIndexRequest{Index: idx.Name(), Body: body}, nil
}

// ESAPI converts the request.
func (r *CreateIndexRequest) ESAPI() esapi.IndicesCreateRequest {
	return esapi.IndicesCreateRequest{Index: r.Index, Body: bytes.NewReader(r.Body)}
}

// PutMappingRequest replaces the mapping of indices.
type PutMappingRequest struct {
	Indices []string
	Body    []byte
}

// PutMapping translates a mapping update.
func (f *Factory) PutMapping(mapping any, idx Coordinates) (*PutMappingRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, domain.IllegalArgument("mapping must not be nil")
	}
	body, err := marshal(mapping)
	if err != nil {
		return nil, err
	}
	return &PutMappingRequest{Indices: idx.Names(), Body: body}, nil
}

// ESAPI converts the request.
func (r *PutMappingRequest) ESAPI() esapi.IndicesPutMappingRequest {
	return esapi.IndicesPutMappingRequest{Index: r.Indices, Body: bytes.NewReader(r.Body)}
}

// PutSettingsRequest updates dynamic index settings.
type PutSettingsRequest struct {
	Indices []string
	Body    []byte
}

// PutSettings translates a settings update.
func (f *Factory) PutSettings(settings map[string]any, idx Coordinates) (*PutSettingsRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, domain.IllegalArgument("settings must not be nil")
	}
	body, err := marshal(map[string]any{"index": settings})
	if err != nil {
		return nil, err
	}
	return &PutSettingsRequest{Indices: idx.Names(), Body: body}, nil
}

// ESAPI converts the request.
func (r *PutSettingsRequest) ESAPI() esapi.IndicesPutSettingsRequest {
	return esapi.IndicesPutSettingsRequest{Index: r.Indices, Body: bytes.NewReader(r.Body)}
}

// IndicesRequest addresses indices by name for the body-less index operations.
type IndicesRequest struct {
	Indices         []string
	IncludeDefaults bool
}

// Indices translates a body-less index operation.
func (f *Factory) Indices(idx Coordinates) (*IndicesRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	return &IndicesRequest{Indices: idx.Names()}, nil
}

// GetMappingESAPI converts the request to a mapping lookup.
func (r *IndicesRequest) GetMappingESAPI() esapi.IndicesGetMappingRequest {
	return esapi.IndicesGetMappingRequest{Index: r.Indices}
}

// GetSettingsESAPI converts the request to a settings lookup.
func (r *IndicesRequest) GetSettingsESAPI() esapi.IndicesGetSettingsRequest {
	req := esapi.IndicesGetSettingsRequest{Index: r.Indices}
	if r.IncludeDefaults {
		req.IncludeDefaults = boolPtr(true)
	}
	return req
}

// RefreshESAPI converts the request to a refresh.
func (r *IndicesRequest) RefreshESAPI() esapi.IndicesRefreshRequest {
	return esapi.IndicesRefreshRequest{Index: r.Indices}
}

// DeleteESAPI converts the request to an index deletion.
func (r *IndicesRequest) DeleteESAPI() esapi.IndicesDeleteRequest {
	return esapi.IndicesDeleteRequest{Index: r.Indices}
}

// ExistsESAPI converts the request to an existence check.
func (r *IndicesRequest) ExistsESAPI() esapi.IndicesExistsRequest {
	return esapi.IndicesExistsRequest{Index: r.Indices}
}

// GetAliasesRequest looks aliases up by name, by index or both.
type GetAliasesRequest struct {
	Indices []string
	Aliases []string
}

// GetAliases translates an alias lookup. Either side may be empty but not both.
func (f *Factory) GetAliases(aliases []string, idx Coordinates) (*GetAliasesRequest, error) {
	if len(aliases) == 0 && idx.IsEmpty() {
		return nil, domain.IllegalArgument("alias lookup requires alias names or indices")
	}
	return &GetAliasesRequest{Indices: idx.Names(), Aliases: aliases}, nil
}

// ESAPI converts the request.
func (r *GetAliasesRequest) ESAPI() esapi.IndicesGetAliasRequest {
	return esapi.IndicesGetAliasRequest{Index: r.Indices, Name: r.Aliases}
}

// aliasBody is the shared payload of alias actions and template aliases.
type aliasBody struct {
	Indices       []string  `json:"indices,omitempty"`
	Aliases       []string  `json:"aliases,omitempty"`
	Filter        dsl.Query `json:"filter,omitempty"`
	Routing       string    `json:"routing,omitempty"`
	IndexRouting  string    `json:"index_routing,omitempty"`
	SearchRouting string    `json:"search_routing,omitempty"`
	IsHidden      *bool     `json:"is_hidden,omitempty"`
	IsWriteIndex  *bool     `json:"is_write_index,omitempty"`
}

// UpdateAliasesRequest applies alias actions atomically.
type UpdateAliasesRequest struct {
	Actions []map[query.AliasActionType]aliasBody `json:"actions"`
}

// UpdateAliases translates alias actions. The filter of an Add action is
// resolved like a search query; its filter part wins over its query part.
func (f *Factory) UpdateAliases(actions ...query.AliasAction) (*UpdateAliasesRequest, error) {
	if len(actions) == 0 {
		return nil, domain.IllegalArgument("alias update requires at least one action")
	}
	r := &UpdateAliasesRequest{Actions: make([]map[query.AliasActionType]aliasBody, 0, len(actions))}
	for i, a := range actions {
		p := a.Parameters
		if len(p.Indices) == 0 {
			return nil, domain.IllegalArgument("alias action %d has no indices", i)
		}
		body := aliasBody{Indices: p.Indices}
		switch a.Type {
		case query.AliasAdd:
			var err error
			if body, err = f.aliasParameters(p); err != nil {
				return nil, fmt.Errorf("alias action %d: %w", i, err)
			}
		case query.AliasRemove:
			body.Aliases = p.Aliases
		case query.AliasRemoveIndex:
		default:
			return nil, domain.IllegalArgument("unknown alias action %q", a.Type)
		}
		r.Actions = append(r.Actions, map[query.AliasActionType]aliasBody{a.Type: body})
	}
	return r, nil
}

func (f *Factory) aliasParameters(p query.AliasParameters) (aliasBody, error) {
	body := aliasBody{
		Indices:       p.Indices,
		Aliases:       p.Aliases,
		Routing:       p.Routing,
		IndexRouting:  p.IndexRouting,
		SearchRouting: p.SearchRouting,
		IsHidden:      p.IsHidden,
		IsWriteIndex:  p.IsWriteIndex,
	}
	if p.Filter == nil {
		return body, nil
	}
	e, err := f.entityOf(p.FilterType)
	if err != nil {
		return aliasBody{}, fmt.Errorf("alias filter type: %w", err)
	}
	qq, filter, err := f.queryAndFilter(p.Filter, e)
	if err != nil {
		return aliasBody{}, err
	}
	if filter != nil {
		body.Filter = filter
	} else {
		body.Filter = qq
	}
	return body, nil
}

// ESAPI converts the request.
func (r *UpdateAliasesRequest) ESAPI() (esapi.IndicesUpdateAliasesRequest, error) {
	body, err := marshal(r)
	if err != nil {
		return esapi.IndicesUpdateAliasesRequest{}, err
	}
	return esapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(body)}, nil
}

type templateBody struct {
	IndexPatterns []string             `json:"index_patterns"`
	Order         *int                 `json:"order,omitempty"`
	Version       *int                 `json:"version,omitempty"`
	Settings      map[string]any       `json:"settings,omitempty"`
	Mappings      any                  `json:"mappings,omitempty"`
	Aliases       map[string]aliasBody `json:"aliases,omitempty"`
}

// PutTemplateRequest stores a legacy index template.
type PutTemplateRequest struct {
	Name   string
	Body   []byte
	Create bool
	Order  *int
}

// PutTemplate translates t. Every alias of t becomes a template alias with
// its filter resolved like a search query.
func (f *Factory) PutTemplate(t query.Template) (*PutTemplateRequest, error) {
	if t.Name == "" {
		return nil, domain.IllegalArgument("template name must not be empty")
	}
	if len(t.Patterns) == 0 {
		return nil, domain.IllegalArgument("template %s has no index patterns", t.Name)
	}
	tb := templateBody{
		IndexPatterns: t.Patterns,
		Order:         t.Order,
		Version:       t.Version,
		Settings:      t.Settings,
		Mappings:      t.Mapping,
	}
	for _, a := range t.Aliases {
		ab, err := f.aliasParameters(a)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", t.Name, err)
		}
		// Template aliases are keyed by name and carry no targets.
		ab.Indices, ab.Aliases = nil, nil
		for _, name := range a.Aliases {
			if tb.Aliases == nil {
				tb.Aliases = make(map[string]aliasBody)
			}
			tb.Aliases[name] = ab
		}
	}
	body, err := marshal(tb)
	if err != nil {
		return nil, err
	}
	return &PutTemplateRequest{Name: t.Name, Body: body, Create: t.Create, Order: t.Order}, nil
}

// ESAPI converts the request.
func (r *PutTemplateRequest) ESAPI() esapi.IndicesPutTemplateRequest {
	req := esapi.IndicesPutTemplateRequest{Name: r.Name, Body: bytes.NewReader(r.Body), Order: r.Order}
	if r.Create {
		req.Create = boolPtr(true)
	}
	return req
}

// TemplateRequest addresses a template by name.
type TemplateRequest struct {
	Name string
}

// Template translates a template lookup, existence check or deletion.
func (f *Factory) Template(name string) (*TemplateRequest, error) {
	if name == "" {
		return nil, domain.IllegalArgument("template name must not be empty")
	}
	return &TemplateRequest{Name: name}, nil
}

// GetESAPI converts the request to a lookup.
func (r *TemplateRequest) GetESAPI() esapi.IndicesGetTemplateRequest {
	return esapi.IndicesGetTemplateRequest{Name: []string{r.Name}}
}

// ExistsESAPI converts the request to an existence check.
func (r *TemplateRequest) ExistsESAPI() esapi.IndicesExistsTemplateRequest {
	return esapi.IndicesExistsTemplateRequest{Name: []string{r.Name}}
}

// DeleteESAPI converts the request to a deletion.
func (r *TemplateRequest) DeleteESAPI() esapi.IndicesDeleteTemplateRequest {
	return esapi.IndicesDeleteTemplateRequest{Name: r.Name}
}
