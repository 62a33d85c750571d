package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMapping signals invalid or contradictory entity metadata.
	ErrMapping = errors.New("mapping error")
	// ErrUnsupportedQueryType signals a query variant the request factory cannot translate.
	ErrUnsupportedQueryType = errors.New("unsupported query type")
	// ErrIllegalArgument signals a missing or malformed required input.
	ErrIllegalArgument = errors.New("illegal argument")
	// ErrNotFound signals a missing document or index.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict signals an optimistic locking conflict reported by the engine.
	ErrVersionConflict = errors.New("version conflict")
)

// MappingError wraps ErrMapping with the offending type and field.
type MappingError struct {
	Type   string
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s: %s", ErrMapping.Error(), e.Type, e.Reason)
	}
	return fmt.Sprintf("%s: %s.%s: %s", ErrMapping.Error(), e.Type, e.Field, e.Reason)
}

func (e *MappingError) Unwrap() error { return ErrMapping }

// NewMappingError creates a mapping error for a field of the given type.
func NewMappingError(typeName, field, reason string) error {
	return &MappingError{Type: typeName, Field: field, Reason: reason}
}

// UnsupportedQueryError wraps ErrUnsupportedQueryType with the offending Go type.
type UnsupportedQueryError struct {
	Type string
}

func (e *UnsupportedQueryError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedQueryType.Error(), e.Type)
}

func (e *UnsupportedQueryError) Unwrap() error { return ErrUnsupportedQueryType }

// NewUnsupportedQuery creates an unsupported query error for the value's dynamic type.
func NewUnsupportedQuery(q any) error {
	return &UnsupportedQueryError{Type: fmt.Sprintf("%T", q)}
}

// IllegalArgument wraps ErrIllegalArgument with a message.
func IllegalArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalArgument, fmt.Sprintf(format, args...))
}
