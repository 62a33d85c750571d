// Package batch holds per-item outcomes of bulk writes.
package batch

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/esodm/internal/domain"
)

// ItemStatus is the processing outcome of a single bulk item.
type ItemStatus string

// Bulk item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of one bulk item.
type Result struct {
	id          string
	index       string
	action      string
	status      ItemStatus
	version     int64
	seqNo       int64
	primaryTerm int64
	err         error
}

// NewOK creates a successful result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the document id.
func (r Result) ID() string { return r.id }

// Index returns the index the item was written to.
func (r Result) Index() string { return r.index }

// Action returns the bulk action: index, create, update or delete.
func (r Result) Action() string { return r.action }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Version returns the document version after the write.
func (r Result) Version() int64 { return r.version }

// SeqNo returns the sequence number after the write.
func (r Result) SeqNo() int64 { return r.seqNo }

// PrimaryTerm returns the primary term after the write.
func (r Result) PrimaryTerm() int64 { return r.primaryTerm }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// ItemError is the engine's reason for a failed item.
type ItemError struct {
	Status int
	Type   string
	Reason string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Type, e.Reason, e.Status)
}

// Unwrap maps conflict and missing-document failures to domain sentinels.
func (e *ItemError) Unwrap() error {
	switch {
	case e.Status == http.StatusConflict || e.Type == "version_conflict_engine_exception":
		return domain.ErrVersionConflict
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	}
	return nil
}

type wireItem struct {
	Index       string `json:"_index"`
	ID          string `json:"_id"`
	Version     int64  `json:"_version"`
	SeqNo       int64  `json:"_seq_no"`
	PrimaryTerm int64  `json:"_primary_term"`
	Status      int    `json:"status"`
	Error       *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type wireResponse struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]wireItem `json:"items"`
}

// Parse decodes a bulk response body into one result per item, in request order.
func Parse(data []byte) ([]Result, error) {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	out := make([]Result, 0, len(w.Items))
	for i, item := range w.Items {
		if len(item) != 1 {
			return nil, fmt.Errorf("decode bulk response: item %d has %d actions", i, len(item))
		}
		for action, it := range item {
			r := Result{
				id:          it.ID,
				index:       it.Index,
				action:      action,
				status:      StatusOK,
				version:     it.Version,
				seqNo:       it.SeqNo,
				primaryTerm: it.PrimaryTerm,
			}
			if it.Error != nil {
				r.status = StatusError
				r.err = &ItemError{Status: it.Status, Type: it.Error.Type, Reason: it.Error.Reason}
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// Failed returns the failed results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.status == StatusError {
			out = append(out, r)
		}
	}
	return out
}
