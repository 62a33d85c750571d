package esodm

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/esodm/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrMapping              = domain.ErrMapping
	ErrUnsupportedQueryType = domain.ErrUnsupportedQueryType
	ErrIllegalArgument      = domain.ErrIllegalArgument
	ErrNotFound             = domain.ErrNotFound
	ErrVersionConflict      = domain.ErrVersionConflict
)

// MappingError reports invalid entity metadata. It unwraps to ErrMapping.
type MappingError = domain.MappingError

// ResponseError is a failed engine call.
// 404 unwraps to ErrNotFound, 409 to ErrVersionConflict.
type ResponseError struct {
	Op     string
	Status int
	Type   string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s: status %d: %s: %s", e.Op, e.Status, e.Type, e.Reason)
}

func (e *ResponseError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrVersionConflict
	}
	return nil
}

// newResponseError reads the engine error body. The error field is either an
// object with type and reason or a plain string; get-by-id misses carry none.
func newResponseError(op string, status int, body []byte) *ResponseError {
	e := &ResponseError{Op: op, Status: status, Reason: http.StatusText(status)}
	var w struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &w); err != nil || len(w.Error) == 0 {
		return e
	}
	var detail struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(w.Error, &detail); err == nil {
		e.Type = detail.Type
		if detail.Reason != "" {
			e.Reason = detail.Reason
		}
		return e
	}
	var msg string
	if err := json.Unmarshal(w.Error, &msg); err == nil && msg != "" {
		e.Reason = msg
	}
	return e
}
