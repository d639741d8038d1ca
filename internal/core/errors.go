package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")

	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("category does not exist")
	ErrIDMismatch      = errors.New("id in path does not match id in body")
	ErrEmptyBatch      = errors.New("no expenses provided")
)

// ValidationError carries a message per offending field, keyed by the
// field's JSON name. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// WithCause attaches a sentinel so callers can tell validation failures apart.
func (e *ValidationError) WithCause(err error) *ValidationError {
	e.cause = err
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.cause != nil {
			return e.cause.Error()
		}
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Prefix returns a copy whose field names are nested under prefix,
// e.g. "description" becomes "items[2].description".
func (e *ValidationError) Prefix(prefix string) *ValidationError {
	fields := make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		fields[prefix+"."+k] = v
	}
	return &ValidationError{Fields: fields, cause: e.cause}
}

// InvalidCategoryError reports a categoryId that names no stored category.
func InvalidCategoryError() error {
	return NewValidationError("categoryId", "category does not exist").WithCause(ErrInvalidCategory)
}
