package query

import "time"

// IndexQuery writes one document. Object is a struct converted through entity
// metadata and wins over Source. Source is a pre-serialized document used
// when no Object is given.
type IndexQuery struct {
	ID            string
	Object        any
	Source        []byte
	Version       *int64
	Routing       string
	OpType        OpType
	Refresh       RefreshPolicy
	Pipeline      string
	IfSeqNo       *int64
	IfPrimaryTerm *int64
}

// BulkOptions apply to a whole bulk request.
type BulkOptions struct {
	Timeout             time.Duration
	Refresh             RefreshPolicy
	WaitForActiveShards string
	Pipeline            string
	Routing             string
}

// GetOptions apply to get, exists and delete by id.
type GetOptions struct {
	Routing      string
	SourceFilter *SourceFilter
	Refresh      RefreshPolicy
}
