// internal/content/errors.go
package content

import (
	"errors"
	"fmt"
	"strings"
)

// Validation failure kinds. FieldError unwraps to one of these.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrInvalidDateFormat    = errors.New("invalid date format")
)

// Loader errors
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrDuplicateSlug     = errors.New("duplicate slug")
)

// FieldError describes a single field that failed validation.
type FieldError struct {
	Field string
	Kind  error
	Value any
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %v", e.Field, e.Kind)
	}
	return fmt.Sprintf("%s: %v (got %T %v)", e.Field, e.Kind, e.Value, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// ValidationError collects every field failure of one entry.
type ValidationError struct {
	Fields []*FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the field errors so errors.Is can match a kind.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// EntryError ties a load failure to the file that caused it.
type EntryError struct {
	Collection Collection
	Path       string
	Err        error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s entry %s: %v", e.Collection, e.Path, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
