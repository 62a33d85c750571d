package esodm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/esodm/internal/convert"
	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/batch"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/domain/search/result"
	"github.com/kailas-cloud/esodm/internal/hitmap"
	"github.com/kailas-cloud/esodm/internal/request"
)

const resourceAlreadyExists = "resource_already_exists_exception"

// TypedIndex is a typed handle on one index. T must be a struct with `es`
// tags; its metadata is described once at construction.
type TypedIndex[T any] struct {
	client  *Client
	entity  *entity.Entity
	name    string
	refresh query.RefreshPolicy
}

// NewIndex creates a typed index handle. An empty name falls back to the
// entity's DocumentSpec.IndexName. The client's index prefix is prepended.
func NewIndex[T any](c *Client, name string) (*TypedIndex[T], error) {
	e, err := c.entityOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, fmt.Errorf("new index: %w", err)
	}
	if name == "" {
		name = e.IndexName()
	}
	if name == "" {
		return nil, domain.IllegalArgument("new index: no index name for %s", e.Type())
	}
	return &TypedIndex[T]{client: c, entity: e, name: c.prefix + name}, nil
}

// WithRefresh returns a handle whose writes use the given refresh policy.
func (idx *TypedIndex[T]) WithRefresh(p query.RefreshPolicy) *TypedIndex[T] {
	cp := *idx
	cp.refresh = p
	return &cp
}

// Name returns the resolved index name.
func (idx *TypedIndex[T]) Name() string { return idx.name }

func (idx *TypedIndex[T]) coords() request.Coordinates { return request.Index(idx.name) }

// Mapping returns the mapping generated for T.
func (idx *TypedIndex[T]) Mapping() (json.RawMessage, error) {
	return idx.client.mappingJSON(idx.entity)
}

// Exists reports whether the index exists.
func (idx *TypedIndex[T]) Exists(ctx context.Context) (bool, error) {
	r, err := idx.client.factory.Indices(idx.coords())
	if err != nil {
		return false, fmt.Errorf("index exists: %w", err)
	}
	return idx.client.exists(ctx, "indices.exists", r.ExistsESAPI())
}

// Create creates the index with the generated mapping and optional settings.
func (idx *TypedIndex[T]) Create(ctx context.Context, settings map[string]any) error {
	m, err := idx.client.buildMapping(idx.entity)
	if err != nil {
		return fmt.Errorf("create index %q: %w", idx.name, err)
	}
	r, err := idx.client.factory.CreateIndex(settings, m, idx.coords())
	if err != nil {
		return fmt.Errorf("create index %q: %w", idx.name, err)
	}
	_, err = idx.client.do(ctx, "indices.create", r.ESAPI())
	return err
}

// Ensure creates the index unless it exists (idempotent). A concurrent
// creation by another client counts as success.
func (idx *TypedIndex[T]) Ensure(ctx context.Context) error {
	ok, err := idx.Exists(ctx)
	if err != nil {
		return fmt.Errorf("ensure %q: %w", idx.name, err)
	}
	if ok {
		return nil
	}
	err = idx.Create(ctx, nil)
	var re *ResponseError
	if errors.As(err, &re) && re.Type == resourceAlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ensure %q: %w", idx.name, err)
	}
	return nil
}

// PutMapping writes the generated mapping to an existing index.
func (idx *TypedIndex[T]) PutMapping(ctx context.Context) error {
	m, err := idx.client.buildMapping(idx.entity)
	if err != nil {
		return fmt.Errorf("put mapping: %w", err)
	}
	r, err := idx.client.factory.PutMapping(m, idx.coords())
	if err != nil {
		return fmt.Errorf("put mapping: %w", err)
	}
	_, err = idx.client.do(ctx, "indices.put_mapping", r.ESAPI())
	return err
}

// PutSettings updates dynamic index settings.
func (idx *TypedIndex[T]) PutSettings(ctx context.Context, settings map[string]any) error {
	r, err := idx.client.factory.PutSettings(settings, idx.coords())
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	_, err = idx.client.do(ctx, "indices.put_settings", r.ESAPI())
	return err
}

// StoredMapping returns the mapping the engine holds for the index.
func (idx *TypedIndex[T]) StoredMapping(ctx context.Context) (json.RawMessage, error) {
	r, err := idx.client.factory.Indices(idx.coords())
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return idx.client.do(ctx, "indices.get_mapping", r.GetMappingESAPI())
}

// Settings returns the index settings, with engine defaults when includeDefaults is set.
func (idx *TypedIndex[T]) Settings(ctx context.Context, includeDefaults bool) (json.RawMessage, error) {
	r, err := idx.client.factory.Indices(idx.coords())
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	r.IncludeDefaults = includeDefaults
	return idx.client.do(ctx, "indices.get_settings", r.GetSettingsESAPI())
}

// Refresh makes recent writes visible to search.
func (idx *TypedIndex[T]) Refresh(ctx context.Context) error {
	r, err := idx.client.factory.Indices(idx.coords())
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	_, err = idx.client.do(ctx, "indices.refresh", r.RefreshESAPI())
	return err
}

// Drop deletes the index.
func (idx *TypedIndex[T]) Drop(ctx context.Context) error {
	r, err := idx.client.factory.Indices(idx.coords())
	if err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	_, err = idx.client.do(ctx, "indices.delete", r.DeleteESAPI())
	return err
}

// Save indexes item. The assigned id, version and seq-no token are written
// back into item.
func (idx *TypedIndex[T]) Save(ctx context.Context, item *T) error {
	if item == nil {
		return domain.IllegalArgument("save: nil item")
	}
	if err := idx.assignID(item); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	r, err := idx.client.factory.Index(query.IndexQuery{Object: item, Refresh: idx.refresh}, idx.coords())
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	body, err := idx.client.do(ctx, "index", r.ESAPI())
	if err != nil {
		return err
	}
	doc, err := result.ParseDocument(body)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return idx.writeBack(item, doc.ID, doc.Version, doc.SeqNo, doc.PrimaryTerm)
}

// SaveAll indexes items in one bulk request. Per-item failures are reported
// in the results, not as an error; see Failed.
func (idx *TypedIndex[T]) SaveAll(ctx context.Context, items []*T) ([]BulkResult, error) {
	if len(items) == 0 {
		return nil, nil
	}
	ops := make([]request.BulkOperation, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, domain.IllegalArgument("save all: nil item at %d", i)
		}
		if err := idx.assignID(item); err != nil {
			return nil, fmt.Errorf("save all: item %d: %w", i, err)
		}
		ops = append(ops, request.BulkOperation{Index: &query.IndexQuery{Object: item}})
	}
	return idx.bulk(ctx, ops, items)
}

// Bulk executes mixed index, update and delete operations.
func (idx *TypedIndex[T]) Bulk(ctx context.Context, ops []BulkOperation) ([]BulkResult, error) {
	return idx.bulk(ctx, ops, nil)
}

func (idx *TypedIndex[T]) bulk(ctx context.Context, ops []request.BulkOperation, items []*T) ([]BulkResult, error) {
	r, err := idx.client.factory.Bulk(ops, query.BulkOptions{Refresh: idx.refresh}, idx.coords())
	if err != nil {
		return nil, fmt.Errorf("bulk: %w", err)
	}
	body, err := idx.client.do(ctx, "bulk", r.ESAPI())
	if err != nil {
		return nil, err
	}
	results, err := batch.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("bulk: %w", err)
	}
	if len(items) == len(results) {
		for i, res := range results {
			if res.Err() != nil {
				continue
			}
			seq, term := res.SeqNo(), res.PrimaryTerm()
			ver := res.Version()
			if err := idx.writeBack(items[i], res.ID(), &ver, &seq, &term); err != nil {
				return results, fmt.Errorf("bulk: item %d: %w", i, err)
			}
		}
	}
	return results, nil
}

// Get fetches a document by id. A missing document yields ErrNotFound.
func (idx *TypedIndex[T]) Get(ctx context.Context, id string) (T, error) {
	return idx.GetWithOptions(ctx, id, query.GetOptions{})
}

// GetWithOptions fetches a document by id with routing and a source filter.
func (idx *TypedIndex[T]) GetWithOptions(ctx context.Context, id string, opts query.GetOptions) (T, error) {
	var zero T
	r, err := idx.client.factory.Document(id, opts, idx.coords())
	if err != nil {
		return zero, fmt.Errorf("get: %w", err)
	}
	body, err := idx.client.do(ctx, "get", r.GetESAPI())
	if err != nil {
		return zero, err
	}
	doc, err := result.ParseDocument(body)
	if err != nil {
		return zero, fmt.Errorf("get: %w", err)
	}
	item, err := convert.ReadAs[T](idx.client.conv, doc)
	if err != nil {
		return zero, fmt.Errorf("get %q: %w", id, err)
	}
	return item, nil
}

// DocumentExists reports whether a document with the id exists.
func (idx *TypedIndex[T]) DocumentExists(ctx context.Context, id string) (bool, error) {
	r, err := idx.client.factory.Document(id, query.GetOptions{}, idx.coords())
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return idx.client.exists(ctx, "exists", r.ExistsESAPI())
}

// Delete removes a document by id. A missing document yields ErrNotFound.
func (idx *TypedIndex[T]) Delete(ctx context.Context, id string) error {
	r, err := idx.client.factory.Document(id, query.GetOptions{Refresh: idx.refresh}, idx.coords())
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	_, err = idx.client.do(ctx, "delete", r.DeleteESAPI())
	return err
}

// MultiGet fetches documents by id. Missing ids are skipped.
func (idx *TypedIndex[T]) MultiGet(ctx context.Context, ids ...string) ([]T, error) {
	q := query.NewCriteriaQuery(nil)
	q.SetIDs(ids...)
	return idx.MultiGetQuery(ctx, q)
}

// MultiGetQuery fetches the ids of q, honoring its per-id routing and source filter.
func (idx *TypedIndex[T]) MultiGetQuery(ctx context.Context, q query.Query) ([]T, error) {
	r, err := idx.client.factory.MultiGet(q, idx.coords())
	if err != nil {
		return nil, fmt.Errorf("multi get: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return nil, fmt.Errorf("multi get: %w", err)
	}
	body, err := idx.client.do(ctx, "mget", req)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Docs []json.RawMessage `json:"docs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("multi get: decode: %w", err)
	}
	out := make([]T, 0, len(resp.Docs))
	for _, raw := range resp.Docs {
		var found struct {
			Found bool `json:"found"`
		}
		if err := json.Unmarshal(raw, &found); err != nil || !found.Found {
			continue
		}
		doc, err := result.ParseDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("multi get: %w", err)
		}
		item, err := convert.ReadAs[T](idx.client.conv, doc)
		if err != nil {
			return nil, fmt.Errorf("multi get %q: %w", doc.ID, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Update applies a partial update by id.
func (idx *TypedIndex[T]) Update(ctx context.Context, u query.UpdateQuery) error {
	if u.Refresh == query.RefreshNone {
		u.Refresh = idx.refresh
	}
	r, err := idx.client.factory.Update(u, idx.coords())
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	_, err = idx.client.do(ctx, "update", req)
	return err
}

// Search runs q and maps every hit into T.
func (idx *TypedIndex[T]) Search(ctx context.Context, q query.Query) (*SearchHits[T], error) {
	body, err := idx.search(ctx, q)
	if err != nil {
		return nil, err
	}
	return idx.hits(body)
}

func (idx *TypedIndex[T]) search(ctx context.Context, q query.Query) ([]byte, error) {
	r, err := idx.client.factory.Search(q, idx.entity, idx.coords())
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return idx.client.do(ctx, "search", req)
}

func (idx *TypedIndex[T]) hits(body []byte) (*SearchHits[T], error) {
	resp, err := result.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	contents := make([]T, 0, len(resp.Documents))
	for i := range resp.Documents {
		item, err := convert.ReadAs[T](idx.client.conv, &resp.Documents[i])
		if err != nil {
			return nil, fmt.Errorf("search: hit %q: %w", resp.Documents[i].ID, err)
		}
		contents = append(contents, item)
	}
	out, err := hitmap.MapHits(idx.client.mapper, idx.entity, resp, contents)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return out, nil
}

// Suggest runs a suggest-only search. Option documents are converted into T.
func (idx *TypedIndex[T]) Suggest(ctx context.Context, q query.SuggestQuery) (*Suggest[T], error) {
	r, err := idx.client.factory.Suggest(q, idx.entity, idx.coords())
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	body, err := idx.client.do(ctx, "suggest", req)
	if err != nil {
		return nil, err
	}
	resp, err := result.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	out, err := result.MapSuggest(resp.Suggest, func(d *result.SearchDocument) (T, error) {
		return convert.ReadAs[T](idx.client.conv, d)
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return out, nil
}

// MoreLikeThis searches for documents similar to the stored document q.ID.
func (idx *TypedIndex[T]) MoreLikeThis(ctx context.Context, q query.MoreLikeThisQuery) (*SearchHits[T], error) {
	r, err := idx.client.factory.MoreLikeThis(q, idx.entity, idx.coords())
	if err != nil {
		return nil, fmt.Errorf("more like this: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return nil, fmt.Errorf("more like this: %w", err)
	}
	body, err := idx.client.do(ctx, "more_like_this", req)
	if err != nil {
		return nil, err
	}
	return idx.hits(body)
}

// Count returns the number of documents matching q. A nil q counts all.
func (idx *TypedIndex[T]) Count(ctx context.Context, q query.Query) (int64, error) {
	r, err := idx.client.factory.Count(q, idx.entity, idx.coords())
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	body, err := idx.client.do(ctx, "count", req)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("count: decode: %w", err)
	}
	return resp.Count, nil
}

// DeleteByQuery removes every document matching q and returns the deleted count.
func (idx *TypedIndex[T]) DeleteByQuery(ctx context.Context, q query.Query) (int64, error) {
	r, err := idx.client.factory.DeleteByQuery(q, idx.entity, idx.coords())
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	body, err := idx.client.do(ctx, "delete_by_query", req)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("delete by query: decode: %w", err)
	}
	return resp.Deleted, nil
}

// UpdateByQuery applies u to every matching document and returns the updated count.
func (idx *TypedIndex[T]) UpdateByQuery(ctx context.Context, u query.UpdateQuery) (int64, error) {
	r, err := idx.client.factory.UpdateByQuery(u, idx.entity, idx.coords())
	if err != nil {
		return 0, fmt.Errorf("update by query: %w", err)
	}
	req, err := r.ESAPI()
	if err != nil {
		return 0, fmt.Errorf("update by query: %w", err)
	}
	body, err := idx.client.do(ctx, "update_by_query", req)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("update by query: decode: %w", err)
	}
	return resp.Updated, nil
}

// Scroll walks every hit of q page by page, calling fn for each page. The
// scroll context is released when fn returns an error or the hits run out.
func (idx *TypedIndex[T]) Scroll(
	ctx context.Context, q query.Query, keepAlive time.Duration, fn func(*SearchHits[T]) error,
) (err error) {
	if q == nil {
		q = query.NewCriteriaQuery(nil)
	}
	if keepAlive <= 0 {
		return domain.IllegalArgument("scroll: keep-alive must be positive")
	}
	q.Common().SetScroll(keepAlive)

	body, err := idx.search(ctx, q)
	if err != nil {
		return err
	}
	var scrollID string
	defer func() {
		if scrollID == "" {
			return
		}
		cr := request.ClearScrollRequest{ScrollIDs: []string{scrollID}}
		// The caller's context may be done already.
		if _, cerr := idx.client.do(context.WithoutCancel(ctx), "clear_scroll", cr.ESAPI()); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		page, err := idx.hits(body)
		if err != nil {
			return err
		}
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
		if !page.HasHits() {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		next := request.ScrollRequest{ScrollID: scrollID, Scroll: keepAlive}
		if body, err = idx.client.do(ctx, "scroll", next.ESAPI()); err != nil {
			return err
		}
	}
}

// Query starts a fluent criteria search on this index.
func (idx *TypedIndex[T]) Query() *SearchBuilder[T] {
	return &SearchBuilder[T]{idx: idx, q: query.NewCriteriaQuery(nil)}
}

func (idx *TypedIndex[T]) assignID(item *T) error {
	if !idx.entity.Spec().GenerateIDs || idx.entity.IDProperty() == nil {
		return nil
	}
	if id, ok := idx.entity.Identifier(item); ok && id != "" {
		return nil
	}
	return idx.entity.SetIdentifier(item, uuid.NewString())
}

// writeBack stores engine-assigned metadata in item. Zero tokens are skipped.
func (idx *TypedIndex[T]) writeBack(item *T, id string, version, seqNo, primaryTerm *int64) error {
	if id != "" {
		if cur, ok := idx.entity.Identifier(item); !ok || cur == "" {
			if err := idx.entity.SetIdentifier(item, id); err != nil {
				return err
			}
		}
	}
	if version != nil && *version > 0 {
		if err := idx.entity.SetVersion(item, *version); err != nil {
			return err
		}
	}
	if seqNo != nil && primaryTerm != nil && *primaryTerm > 0 {
		tok := entity.SeqNoPrimaryTerm{SeqNo: *seqNo, PrimaryTerm: *primaryTerm}
		if err := idx.entity.SetSeqNoPrimaryTerm(item, tok); err != nil {
			return err
		}
	}
	return nil
}
