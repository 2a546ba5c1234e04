package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrShapeNotFound = errors.New("shape not found")
	ErrGroupNotFound = errors.New("pipe group not found")
	ErrDuplicateID   = errors.New("duplicate shape id")
)

// IndexError provides structured error information for index lookups.
type IndexError struct {
	Op     string // operation that failed (e.g. "get", "group")
	Entity string // "shape" or "pipe group"
	ID     int64
	HasID  bool
	Cause  error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	if e.HasID {
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building IndexErrors.
type ErrorBuilder struct {
	err IndexError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: IndexError{Op: op}}
}

// Shape sets the entity to "shape" with the given id.
func (b *ErrorBuilder) Shape(id int64) *ErrorBuilder {
	b.err.Entity = "shape"
	b.err.ID = id
	b.err.HasID = true
	return b
}

// Group sets the entity to "pipe group" with the given id.
func (b *ErrorBuilder) Group(id int64) *ErrorBuilder {
	b.err.Entity = "pipe group"
	b.err.ID = id
	b.err.HasID = true
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	e := b.err
	return &e
}

// ShapeNotFoundError creates a shape not found error.
func ShapeNotFoundError(id int64) error {
	return NewError("get").Shape(id).Cause(ErrShapeNotFound).Err()
}

// GroupNotFoundError creates a pipe group not found error.
func GroupNotFoundError(id int64) error {
	return NewError("group").Group(id).Cause(ErrGroupNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShapeNotFound) || errors.Is(err, ErrGroupNotFound)
}
