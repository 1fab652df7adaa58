package core

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrInvalidParent = errors.New("invalid parent")
	ErrStorage       = errors.New("storage failure")
)

// ValidationError reports a missing or malformed field on construction or write.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Entity, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an identity based operation on a missing record.
type NotFoundError struct {
	Entity string
	PK     int64
}

func (e *NotFoundError) Error() string {
	if e.PK == 0 {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.PK)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidParentError reports a parent name that does not resolve or would
// introduce a cycle.
type InvalidParentError struct {
	Name   string
	Reason string
}

func (e *InvalidParentError) Error() string {
	return fmt.Sprintf("invalid parent %q: %s", e.Name, e.Reason)
}

func (e *InvalidParentError) Is(target error) bool { return target == ErrInvalidParent }

// StorageError wraps an underlying driver or I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
