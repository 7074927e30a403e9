package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a malformed or missing request field.
	// The request is rejected before any side effect occurs.
	ErrValidation = errors.New("validation failed")

	// ErrCapacity indicates the concurrent-creation ceiling was reached.
	// The request is rejected before any side effect occurs.
	ErrCapacity = errors.New("concurrent creation capacity reached")

	// ErrCreation indicates the physical-resource DDL failed.
	// No definition record is persisted when this is returned.
	ErrCreation = errors.New("resource creation failed")

	// ErrNotFound indicates an operation referenced a resource name with
	// no matching definition record.
	ErrNotFound = errors.New("resource definition not found")

	// ErrObjectAbsent indicates a DDL statement targeted an object that
	// does not exist (e.g. dropping an already-dropped table). Callers
	// tolerate this during retirement.
	ErrObjectAbsent = errors.New("database object does not exist")
)

// ValidationError builds an error wrapping ErrValidation with a field-level detail.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// CreationError builds an error wrapping ErrCreation around an underlying cause.
func CreationError(stage string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrCreation, stage, cause)
}

// NotFoundError builds an error wrapping ErrNotFound for a physical name.
func NotFoundError(physicalName string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, physicalName)
}
