package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/dsl"
)

// IndexRequest writes one document.
type IndexRequest struct {
	Index         string
	ID            string
	Body          []byte
	Version       *int64
	VersionType   string
	IfSeqNo       *int64
	IfPrimaryTerm *int64
	Routing       string
	OpType        query.OpType
	Refresh       query.RefreshPolicy
	Pipeline      string
}

// Index translates q into an index request against the first index of idx.
// The id, version and concurrency token fall back to what Object carries.
func (f *Factory) Index(q query.IndexQuery, idx Coordinates) (*IndexRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	r := &IndexRequest{
		Index:         idx.Name(),
		ID:            q.ID,
		Version:       q.Version,
		IfSeqNo:       q.IfSeqNo,
		IfPrimaryTerm: q.IfPrimaryTerm,
		Routing:       q.Routing,
		OpType:        q.OpType,
		Refresh:       q.Refresh,
		Pipeline:      q.Pipeline,
	}

	switch {
	case q.Object != nil:
		if err := f.indexObject(r, q.Object); err != nil {
			return nil, err
		}
	case len(q.Source) > 0:
		r.Body = q.Source
	default:
		return nil, domain.IllegalArgument("index query requires an object or a source")
	}

	if r.Version != nil && r.VersionType == "" {
		r.VersionType = string(entity.VersionExternal)
	}
	return r, nil
}

func (f *Factory) indexObject(r *IndexRequest, obj any) error {
	e, err := f.ctx().DescribeValue(obj)
	if err != nil {
		return err
	}
	doc, err := f.conv.Write(obj)
	if err != nil {
		return err
	}
	if r.Body, err = marshal(doc); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID, _ = e.Identifier(obj)
	}

	token, hasToken := e.SeqNoPrimaryTerm(obj)
	if r.IfSeqNo == nil && r.IfPrimaryTerm == nil && hasToken {
		r.IfSeqNo, r.IfPrimaryTerm = &token.SeqNo, &token.PrimaryTerm
	}
	// A zero version marks a document that was never stored.
	if r.Version == nil {
		if v, ok := e.Version(obj); ok && v > 0 {
			r.Version = &v
		}
	}
	if r.Version != nil {
		r.VersionType = string(e.VersionType())
	}
	return nil
}

// ESAPI converts the request.
func (r *IndexRequest) ESAPI() esapi.IndexRequest {
	return esapi.IndexRequest{
		Index:         r.Index,
		DocumentID:    r.ID,
		Body:          bytes.NewReader(r.Body),
		Version:       int64ToInt(r.Version),
		VersionType:   r.VersionType,
		IfSeqNo:       int64ToInt(r.IfSeqNo),
		IfPrimaryTerm: int64ToInt(r.IfPrimaryTerm),
		Routing:       r.Routing,
		OpType:        string(r.OpType),
		Refresh:       string(r.Refresh),
		Pipeline:      r.Pipeline,
	}
}

// UpdateBody is the JSON body of an update by id.
type UpdateBody struct {
	Script         *dsl.Script    `json:"script,omitempty"`
	Doc            map[string]any `json:"doc,omitempty"`
	Upsert         map[string]any `json:"upsert,omitempty"`
	ScriptedUpsert *bool          `json:"scripted_upsert,omitempty"`
	DocAsUpsert    *bool          `json:"doc_as_upsert,omitempty"`
	Source         *bool          `json:"_source,omitempty"`
}

// UpdateRequest is a partial update by id.
type UpdateRequest struct {
	Index               string
	ID                  string
	Body                UpdateBody
	IfSeqNo             *int64
	IfPrimaryTerm       *int64
	Routing             string
	RetryOnConflict     *int
	Refresh             query.RefreshPolicy
	Timeout             time.Duration
	WaitForActiveShards string
	SourceIncludes      []string
	SourceExcludes      []string
	Lang                string
}

// Update translates u into an update by id. Script and document are passed
// through together when both are set.
func (f *Factory) Update(u query.UpdateQuery, idx Coordinates) (*UpdateRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, domain.IllegalArgument("update requires a document id")
	}
	script, err := buildScript(u)
	if err != nil {
		return nil, err
	}
	r := &UpdateRequest{
		Index: idx.Name(),
		ID:    u.ID,
		Body: UpdateBody{
			Doc:            u.Document,
			Upsert:         u.Upsert,
			ScriptedUpsert: u.ScriptedUpsert,
			DocAsUpsert:    u.DocAsUpsert,
			Source:         u.FetchSource,
		},
		IfSeqNo:             u.IfSeqNo,
		IfPrimaryTerm:       u.IfPrimaryTerm,
		Routing:             u.Routing,
		RetryOnConflict:     u.RetryOnConflict,
		Refresh:             u.Refresh,
		Timeout:             u.Timeout,
		WaitForActiveShards: u.WaitForActiveShards,
		SourceIncludes:      u.FetchIncludes,
		SourceExcludes:      u.FetchExcludes,
		Lang:                u.Lang,
	}
	r.Body.Script = script
	return r, nil
}

// ESAPI converts the request.
func (r *UpdateRequest) ESAPI() (esapi.UpdateRequest, error) {
	body, err := marshal(r.Body)
	if err != nil {
		return esapi.UpdateRequest{}, err
	}
	return esapi.UpdateRequest{
		Index:               r.Index,
		DocumentID:          r.ID,
		Body:                bytes.NewReader(body),
		IfSeqNo:             int64ToInt(r.IfSeqNo),
		IfPrimaryTerm:       int64ToInt(r.IfPrimaryTerm),
		Routing:             r.Routing,
		RetryOnConflict:     r.RetryOnConflict,
		Refresh:             string(r.Refresh),
		Timeout:             r.Timeout,
		WaitForActiveShards: r.WaitForActiveShards,
		SourceIncludes:      r.SourceIncludes,
		SourceExcludes:      r.SourceExcludes,
		Lang:                r.Lang,
	}, nil
}

// DocumentRequest addresses one document by id for get, exists and delete.
type DocumentRequest struct {
	Index   string
	ID      string
	Options query.GetOptions
}

// Document translates a single-document lookup.
func (f *Factory) Document(id string, opts query.GetOptions, idx Coordinates) (*DocumentRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.IllegalArgument("document id must not be empty")
	}
	return &DocumentRequest{Index: idx.Name(), ID: id, Options: opts}, nil
}

// GetESAPI converts the request to a get.
func (r *DocumentRequest) GetESAPI() esapi.GetRequest {
	req := esapi.GetRequest{Index: r.Index, DocumentID: r.ID, Routing: r.Options.Routing}
	if sf := r.Options.SourceFilter; sf != nil {
		req.SourceIncludes, req.SourceExcludes = sf.Includes, sf.Excludes
	}
	return req
}

// ExistsESAPI converts the request to an existence check.
func (r *DocumentRequest) ExistsESAPI() esapi.ExistsRequest {
	return esapi.ExistsRequest{Index: r.Index, DocumentID: r.ID, Routing: r.Options.Routing}
}

// DeleteESAPI converts the request to a delete.
func (r *DocumentRequest) DeleteESAPI() esapi.DeleteRequest {
	return esapi.DeleteRequest{
		Index:      r.Index,
		DocumentID: r.ID,
		Routing:    r.Options.Routing,
		Refresh:    string(r.Options.Refresh),
	}
}

type mgetDoc struct {
	Index   string        `json:"_index"`
	ID      string        `json:"_id"`
	Routing string        `json:"routing,omitempty"`
	Source  *SourceConfig `json:"_source,omitempty"`
}

// MultiGetRequest fetches several documents by id.
type MultiGetRequest struct {
	Docs []mgetDoc `json:"docs"`
}

// MultiGet translates q into a multi-get. Only the ids, per-id routing and
// the source filter of q are used.
func (f *Factory) MultiGet(q query.Query, idx Coordinates) (*MultiGetRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	b := q.Common()
	ids := b.IDs()
	if len(ids) == 0 {
		return nil, domain.IllegalArgument("multi get requires ids")
	}
	var source *SourceConfig
	if sf := b.SourceFilter(); sf != nil {
		source = &SourceConfig{Includes: sf.Includes, Excludes: sf.Excludes}
	}
	r := &MultiGetRequest{Docs: make([]mgetDoc, 0, len(ids)*len(idx.Names()))}
	for _, index := range idx.Names() {
		for _, id := range ids {
			routing := b.RoutingFor(id)
			if routing == "" {
				routing = b.Routing()
			}
			r.Docs = append(r.Docs, mgetDoc{Index: index, ID: id, Routing: routing, Source: source})
		}
	}
	return r, nil
}

// ESAPI converts the request.
func (r *MultiGetRequest) ESAPI() (esapi.MgetRequest, error) {
	body, err := marshal(r)
	if err != nil {
		return esapi.MgetRequest{}, err
	}
	return esapi.MgetRequest{Body: bytes.NewReader(body)}, nil
}

// BulkOperation is one line pair of a bulk request. Exactly one field is set.
type BulkOperation struct {
	Index    *query.IndexQuery
	Update   *query.UpdateQuery
	DeleteID string
}

type bulkMeta struct {
	Index           string `json:"_index"`
	ID              string `json:"_id,omitempty"`
	Routing         string `json:"routing,omitempty"`
	Version         *int64 `json:"version,omitempty"`
	VersionType     string `json:"version_type,omitempty"`
	IfSeqNo         *int64 `json:"if_seq_no,omitempty"`
	IfPrimaryTerm   *int64 `json:"if_primary_term,omitempty"`
	Pipeline        string `json:"pipeline,omitempty"`
	RetryOnConflict *int   `json:"retry_on_conflict,omitempty"`
}

// BulkRequest is a newline delimited batch of writes.
type BulkRequest struct {
	Index   string
	Body    []byte
	Options query.BulkOptions
	// Count is the number of operations in Body.
	Count int
}

// Bulk translates ops into a single bulk request.
func (f *Factory) Bulk(ops []BulkOperation, opts query.BulkOptions, idx Coordinates) (*BulkRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, domain.IllegalArgument("bulk requires at least one operation")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, op := range ops {
		if err := f.bulkLine(enc, &buf, op, idx); err != nil {
			return nil, fmt.Errorf("bulk operation %d: %w", i, err)
		}
	}
	return &BulkRequest{Index: idx.Name(), Body: buf.Bytes(), Options: opts, Count: len(ops)}, nil
}

func (f *Factory) bulkLine(enc *json.Encoder, buf *bytes.Buffer, op BulkOperation, idx Coordinates) error {
	switch {
	case op.Index != nil:
		r, err := f.Index(*op.Index, idx)
		if err != nil {
			return err
		}
		action := "index"
		if r.OpType == query.OpCreate {
			action = "create"
		}
		meta := bulkMeta{
			Index: r.Index, ID: r.ID, Routing: r.Routing,
			Version: r.Version, VersionType: r.VersionType,
			IfSeqNo: r.IfSeqNo, IfPrimaryTerm: r.IfPrimaryTerm,
			Pipeline: r.Pipeline,
		}
		if err := enc.Encode(map[string]bulkMeta{action: meta}); err != nil {
			return err
		}
		// a source line must stay on one line of the NDJSON body
		if err := json.Compact(buf, r.Body); err != nil {
			return domain.IllegalArgument("document %q is not valid JSON: %v", r.ID, err)
		}
		buf.WriteByte('\n')
		return nil
	case op.Update != nil:
		r, err := f.Update(*op.Update, idx)
		if err != nil {
			return err
		}
		meta := bulkMeta{
			Index: r.Index, ID: r.ID, Routing: r.Routing,
			IfSeqNo: r.IfSeqNo, IfPrimaryTerm: r.IfPrimaryTerm,
			RetryOnConflict: r.RetryOnConflict,
		}
		if err := enc.Encode(map[string]bulkMeta{"update": meta}); err != nil {
			return err
		}
		return enc.Encode(r.Body)
	case op.DeleteID != "":
		return enc.Encode(map[string]bulkMeta{"delete": {Index: idx.Name(), ID: op.DeleteID}})
	default:
		return domain.IllegalArgument("empty bulk operation")
	}
}

// ESAPI converts the request.
func (r *BulkRequest) ESAPI() esapi.BulkRequest {
	return esapi.BulkRequest{
		Index:               r.Index,
		Body:                bytes.NewReader(r.Body),
		Pipeline:            r.Options.Pipeline,
		Refresh:             string(r.Options.Refresh),
		Routing:             r.Options.Routing,
		Timeout:             r.Options.Timeout,
		WaitForActiveShards: r.Options.WaitForActiveShards,
	}
}
