// Package request translates queries, updates and index operations into
// engine requests. Every request type converts to its esapi counterpart.
package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kailas-cloud/esodm/internal/convert"
	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/criteria"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/dsl"
)

// Coordinates name the target indices of an operation.
type Coordinates struct {
	names []string
}

// Index creates coordinates from index names. Empty names are dropped.
func Index(names ...string) Coordinates {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return Coordinates{names: out}
}

// Names returns the index names.
func (c Coordinates) Names() []string { return c.names }

// Name returns the first index name.
func (c Coordinates) Name() string {
	if len(c.names) == 0 {
		return ""
	}
	return c.names[0]
}

// IsEmpty reports whether no index is named.
func (c Coordinates) IsEmpty() bool { return len(c.names) == 0 }

func (c Coordinates) require() error {
	if c.IsEmpty() {
		return domain.IllegalArgument("index coordinates must not be empty")
	}
	return nil
}

// Factory builds requests. It holds no mutable state and is safe for concurrent use.
type Factory struct {
	conv *convert.Converter
}

// NewFactory creates a factory that resolves names and converts entities through conv.
func NewFactory(conv *convert.Converter) *Factory {
	return &Factory{conv: conv}
}

func (f *Factory) ctx() *entity.Context { return f.conv.Context() }

// resolver maps property paths of e to wire paths and nested containers.
func (f *Factory) resolver(e *entity.Entity) criteria.Resolver {
	if e == nil {
		return criteria.Identity
	}
	return func(p string) (string, string) { return f.ctx().ResolvePath(e, p) }
}

// entityOf describes v, an entity value or its reflect.Type. A nil v yields nil.
func (f *Factory) entityOf(v any) (*entity.Entity, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case reflect.Type:
		return f.ctx().Describe(t)
	default:
		return f.ctx().DescribeValue(v)
	}
}

func (f *Factory) fieldName(e *entity.Entity, p string) string {
	return f.ctx().ResolveFieldName(e, p)
}

// queryAndFilter extracts the scoring query and the filter of q.
func (f *Factory) queryAndFilter(q query.Query, e *entity.Entity) (dsl.Query, dsl.Query, error) {
	switch v := q.(type) {
	case *query.CriteriaQuery:
		resolve := f.resolver(e)
		qq, err := criteria.BuildQuery(v.Criteria(), resolve)
		if err != nil {
			return nil, nil, fmt.Errorf("build query: %w", err)
		}
		ff, err := criteria.BuildFilter(v.Criteria(), resolve)
		if err != nil {
			return nil, nil, fmt.Errorf("build filter: %w", err)
		}
		return qq, ff, nil
	case *query.StringQuery:
		if strings.TrimSpace(v.Source()) == "" {
			return nil, nil, nil
		}
		return dsl.Wrapper(v.Source()), nil, nil
	case *query.NativeQuery:
		return v.Query(), v.Filter(), nil
	default:
		return nil, nil, domain.NewUnsupportedQuery(q)
	}
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func millis(d time.Duration) string { return fmt.Sprintf("%dms", d.Milliseconds()) }

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func int64ToInt(p *int64) *int {
	if p == nil {
		return nil
	}
	n := int(*p)
	return &n
}
