package query

import (
	"time"
)

// ScriptType tells inline scripts from stored ones.
type ScriptType int

// Script types.
const (
	ScriptInline ScriptType = iota
	ScriptStored
)

// Conflicts is the by-query version conflict behavior.
type Conflicts string

// Conflict behaviors.
const (
	ConflictsAbort   Conflicts = "abort"
	ConflictsProceed Conflicts = "proceed"
)

// UpdateQuery describes a partial update by id or an update-by-query.
//
// Script and Document may both be set. They are passed through as given and
// the engine decides; callers pick one.
type UpdateQuery struct {
	ID string

	Script     string
	ScriptName string
	ScriptType ScriptType
	Lang       string
	Params     map[string]any

	Document       map[string]any
	Upsert         map[string]any
	ScriptedUpsert *bool
	DocAsUpsert    *bool
	FetchSource    *bool
	FetchIncludes  []string
	FetchExcludes  []string

	IfSeqNo       *int64
	IfPrimaryTerm *int64

	Routing             string
	RetryOnConflict     *int
	Refresh             RefreshPolicy
	Timeout             time.Duration
	WaitForActiveShards string

	// By-query only.
	Query                  Query
	BatchSize              *int
	MaxDocs                *int
	MaxRetries             *int
	Slices                 *int
	RequestsPerSecond      *float32
	AbortOnVersionConflict *bool
	Pipeline               string
	ShouldStoreResult      *bool
	Scroll                 time.Duration
}

// UpdateBuilder assembles an UpdateQuery.
type UpdateBuilder struct {
	u UpdateQuery
}

// NewUpdate starts an update of the document with the given id.
func NewUpdate(id string) *UpdateBuilder { return &UpdateBuilder{u: UpdateQuery{ID: id}} }

// NewUpdateByQuery starts an update of every document matching q.
func NewUpdateByQuery(q Query) *UpdateBuilder { return &UpdateBuilder{u: UpdateQuery{Query: q}} }

// WithScript sets an inline script.
func (b *UpdateBuilder) WithScript(source, lang string) *UpdateBuilder {
	b.u.Script, b.u.Lang, b.u.ScriptType = source, lang, ScriptInline
	return b
}

// WithStoredScript references a stored script by name.
func (b *UpdateBuilder) WithStoredScript(name string) *UpdateBuilder {
	b.u.ScriptName, b.u.ScriptType = name, ScriptStored
	return b
}

// WithParams sets script parameters.
func (b *UpdateBuilder) WithParams(p map[string]any) *UpdateBuilder {
	b.u.Params = p
	return b
}

// WithDocument sets the partial document.
func (b *UpdateBuilder) WithDocument(doc map[string]any) *UpdateBuilder {
	b.u.Document = doc
	return b
}

// WithUpsert sets the document inserted when the target is missing.
func (b *UpdateBuilder) WithUpsert(doc map[string]any) *UpdateBuilder {
	b.u.Upsert = doc
	return b
}

// WithScriptedUpsert runs the script for inserts too.
func (b *UpdateBuilder) WithScriptedUpsert(v bool) *UpdateBuilder {
	b.u.ScriptedUpsert = &v
	return b
}

// WithDocAsUpsert inserts the partial document when the target is missing.
func (b *UpdateBuilder) WithDocAsUpsert(v bool) *UpdateBuilder {
	b.u.DocAsUpsert = &v
	return b
}

// WithFetchSource returns _source in the response.
func (b *UpdateBuilder) WithFetchSource(v bool) *UpdateBuilder {
	b.u.FetchSource = &v
	return b
}

// WithFetchSourceFilter limits the returned _source.
func (b *UpdateBuilder) WithFetchSourceFilter(includes, excludes []string) *UpdateBuilder {
	b.u.FetchIncludes, b.u.FetchExcludes = includes, excludes
	return b
}

// WithIfSeqNo sets the expected sequence number.
func (b *UpdateBuilder) WithIfSeqNo(n int64) *UpdateBuilder {
	b.u.IfSeqNo = &n
	return b
}

// WithIfPrimaryTerm sets the expected primary term.
func (b *UpdateBuilder) WithIfPrimaryTerm(n int64) *UpdateBuilder {
	b.u.IfPrimaryTerm = &n
	return b
}

// WithRouting sets routing.
func (b *UpdateBuilder) WithRouting(r string) *UpdateBuilder {
	b.u.Routing = r
	return b
}

// WithRetryOnConflict sets how often a conflicting update is retried.
func (b *UpdateBuilder) WithRetryOnConflict(n int) *UpdateBuilder {
	b.u.RetryOnConflict = &n
	return b
}

// WithRefreshPolicy sets the refresh policy.
func (b *UpdateBuilder) WithRefreshPolicy(p RefreshPolicy) *UpdateBuilder {
	b.u.Refresh = p
	return b
}

// WithTimeout sets the operation timeout.
func (b *UpdateBuilder) WithTimeout(d time.Duration) *UpdateBuilder {
	b.u.Timeout = d
	return b
}

// WithWaitForActiveShards sets the active shard count, e.g. "all".
func (b *UpdateBuilder) WithWaitForActiveShards(s string) *UpdateBuilder {
	b.u.WaitForActiveShards = s
	return b
}

// WithBatchSize sets the scroll batch size of a by-query update.
func (b *UpdateBuilder) WithBatchSize(n int) *UpdateBuilder {
	b.u.BatchSize = &n
	return b
}

// WithMaxDocs limits the number of documents processed.
func (b *UpdateBuilder) WithMaxDocs(n int) *UpdateBuilder {
	b.u.MaxDocs = &n
	return b
}

// WithMaxRetries sets the number of retries on bulk rejections.
func (b *UpdateBuilder) WithMaxRetries(n int) *UpdateBuilder {
	b.u.MaxRetries = &n
	return b
}

// WithSlices splits the work into n slices.
func (b *UpdateBuilder) WithSlices(n int) *UpdateBuilder {
	b.u.Slices = &n
	return b
}

// WithRequestsPerSecond throttles the operation. The engine takes whole
// requests per second: fractions are truncated and values below 1 are rejected.
func (b *UpdateBuilder) WithRequestsPerSecond(n float32) *UpdateBuilder {
	b.u.RequestsPerSecond = &n
	return b
}

// WithAbortOnVersionConflict aborts on the first version conflict when v is true.
func (b *UpdateBuilder) WithAbortOnVersionConflict(v bool) *UpdateBuilder {
	b.u.AbortOnVersionConflict = &v
	return b
}

// WithPipeline sets the ingest pipeline.
func (b *UpdateBuilder) WithPipeline(p string) *UpdateBuilder {
	b.u.Pipeline = p
	return b
}

// WithShouldStoreResult stores the task result.
func (b *UpdateBuilder) WithShouldStoreResult(v bool) *UpdateBuilder {
	b.u.ShouldStoreResult = &v
	return b
}

// WithScroll sets the scroll keep-alive of a by-query update.
func (b *UpdateBuilder) WithScroll(d time.Duration) *UpdateBuilder {
	b.u.Scroll = d
	return b
}

// Build returns the update.
func (b *UpdateBuilder) Build() UpdateQuery { return b.u }
