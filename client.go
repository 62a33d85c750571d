package esodm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esodm/internal/convert"
	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/hitmap"
	"github.com/kailas-cloud/esodm/internal/mapping"
	"github.com/kailas-cloud/esodm/internal/metrics"
	"github.com/kailas-cloud/esodm/internal/request"
)

const defaultMaxRetries = 3

// Client is the esodm entry point. It is safe for concurrent use.
type Client struct {
	es       *elasticsearch.Client
	entities *entity.Context
	conv     *convert.Converter
	builder  *mapping.Builder
	factory  *request.Factory
	mapper   *hitmap.Mapper
	prefix   string
	obs      *observer
}

// New creates a Client. No engine call is made until the first operation.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		writeTypeHints: true,
		typeHintField:  mapping.DefaultTypeHintField,
		maxRetries:     defaultMaxRetries,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addresses) == 0 {
		return nil, errors.New("esodm: engine address required (use WithAddresses)")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.addresses,
		Username:   cfg.username,
		Password:   cfg.password,
		APIKey:     cfg.apiKey,
		Transport:  cfg.transport,
		MaxRetries: cfg.maxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("esodm: create engine client: %w", err)
	}

	var m *metrics.Engine
	if cfg.metricsReg != nil {
		m, err = metrics.NewEngine(cfg.metricsReg)
		if err != nil {
			return nil, fmt.Errorf("esodm: %w", err)
		}
	}

	return wireClient(es, cfg, m), nil
}

func wireClient(es *elasticsearch.Client, cfg *clientConfig, m *metrics.Engine) *Client {
	ctx := entity.NewContext()
	conv := convert.New(ctx,
		convert.WithTypeHints(cfg.writeTypeHints),
		convert.WithTypeHintField(cfg.typeHintField),
	)
	builderOpts := []mapping.Option{
		mapping.WithTypeHints(cfg.writeTypeHints),
		mapping.WithTypeHintField(cfg.typeHintField),
	}
	if cfg.runtimeFields != nil {
		builderOpts = append(builderOpts, mapping.WithRuntimeFields(cfg.runtimeFields))
	}
	obs := newObserver(cfg.logger, m)

	return &Client{
		es:       es,
		entities: ctx,
		conv:     conv,
		builder:  mapping.NewBuilder(ctx, builderOpts...),
		factory:  request.NewFactory(conv),
		mapper:   hitmap.New(conv, obs.logger),
		prefix:   cfg.indexPrefix,
		obs:      obs,
	}
}

// Ping checks engine connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.do(ctx, "info", esapi.InfoRequest{}); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Register describes the struct types of the given values up front and
// checks that their mappings build. Types are otherwise described lazily.
func (c *Client) Register(values ...any) error {
	for _, v := range values {
		e, err := c.entities.DescribeValue(v)
		if err != nil {
			return fmt.Errorf("register %T: %w", v, err)
		}
		if _, err := c.buildMapping(e); err != nil {
			return fmt.Errorf("register %T: %w", v, err)
		}
	}
	return nil
}

// Mapping returns the index mapping of v's struct type.
func (c *Client) Mapping(v any) (json.RawMessage, error) {
	e, err := c.entities.DescribeValue(v)
	if err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}
	return c.mappingJSON(e)
}

// EntityNames lists the described entity types, sorted.
func (c *Client) EntityNames() []string {
	entities := c.entities.Entities()
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// MappingByName returns the mapping of a described entity type by its Go
// type name or index name.
func (c *Client) MappingByName(name string) (json.RawMessage, error) {
	for _, e := range c.entities.Entities() {
		if e.Name() == name || (e.IndexName() != "" && e.IndexName() == name) {
			return c.mappingJSON(e)
		}
	}
	return nil, fmt.Errorf("mapping %q: %w", name, domain.ErrNotFound)
}

// PutTemplate creates or replaces an index template.
func (c *Client) PutTemplate(ctx context.Context, t query.Template) error {
	r, err := c.factory.PutTemplate(t)
	if err != nil {
		return fmt.Errorf("put template: %w", err)
	}
	_, err = c.do(ctx, "indices.put_template", r.ESAPI())
	return err
}

// TemplateExists reports whether an index template exists.
func (c *Client) TemplateExists(ctx context.Context, name string) (bool, error) {
	r, err := c.factory.Template(name)
	if err != nil {
		return false, fmt.Errorf("template exists: %w", err)
	}
	return c.exists(ctx, "indices.exists_template", r.ExistsESAPI())
}

// Template returns the raw definition of an index template.
func (c *Client) Template(ctx context.Context, name string) (json.RawMessage, error) {
	r, err := c.factory.Template(name)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	body, err := c.do(ctx, "indices.get_template", r.GetESAPI())
	if err != nil {
		return nil, err
	}
	return body, nil
}

// DeleteTemplate removes an index template.
func (c *Client) DeleteTemplate(ctx context.Context, name string) error {
	r, err := c.factory.Template(name)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	_, err = c.do(ctx, "indices.delete_template", r.DeleteESAPI())
	return err
}

// UpdateAliases applies alias actions atomically.
func (c *Client) UpdateAliases(ctx context.Context, actions ...query.AliasAction) error {
	r, err := c.factory.UpdateAliases(actions...)
	if err != nil {
		return fmt.Errorf("update aliases: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return fmt.Errorf("update aliases: %w", err)
	}
	_, err = c.do(ctx, "indices.update_aliases", req)
	return err
}

// Aliases returns the alias definitions matching the alias names or indices,
// keyed by index name.
func (c *Client) Aliases(ctx context.Context, aliases []string, indices ...string) (map[string]json.RawMessage, error) {
	r, err := c.factory.GetAliases(aliases, request.Index(indices...))
	if err != nil {
		return nil, fmt.Errorf("get aliases: %w", err)
	}
	body, err := c.do(ctx, "indices.get_alias", r.ESAPI())
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("get aliases: decode: %w", err)
	}
	return out, nil
}

func (c *Client) buildMapping(e *entity.Entity) (*mapping.Mapping, error) {
	m, err := c.builder.BuildEntity(e)
	c.obs.mappingBuilt(e.Type().String(), err)
	if err != nil {
		return nil, err //nolint:wrapcheck // already a *MappingError
	}
	return m, nil
}

func (c *Client) mappingJSON(e *entity.Entity) (json.RawMessage, error) {
	m, err := c.buildMapping(e)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal mapping: %w", err)
	}
	return data, nil
}

func (c *Client) entityOf(t reflect.Type) (*entity.Entity, error) {
	e, err := c.entities.Describe(t)
	if err != nil {
		return nil, err //nolint:wrapcheck // already a *MappingError
	}
	return e, nil
}

// do executes req and returns the response body. Engine error statuses
// become *ResponseError.
func (c *Client) do(ctx context.Context, op string, req esapi.Request) (_ []byte, err error) {
	start := time.Now()
	defer func() { c.obs.observe(op, start, err) }()

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if res.IsError() {
		return nil, newResponseError(op, res.StatusCode, body)
	}
	return body, nil
}

// exists executes a HEAD request. 404 means false, not an error.
func (c *Client) exists(ctx context.Context, op string, req esapi.Request) (_ bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe(op, start, err) }()

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.IsError():
		body, _ := io.ReadAll(res.Body)
		return false, newResponseError(op, res.StatusCode, body)
	}
	return true, nil
}
