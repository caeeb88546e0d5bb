package application

import (
	"errors"
	"fmt"

	"marginalia/internal/domain"
)

// Sentinel errors for common conditions
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidName  = errors.New("invalid name")
	ErrPathConflict = errors.New("path already claimed by another entry")
	ErrNotPending   = errors.New("change is not pending")
	ErrEmptyBatch   = errors.New("no content IDs given")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError names the entry already holding a path
type ConflictError struct {
	Path     string
	Holder   domain.ContentID
	Incoming domain.ContentID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot place %s at %s: held by %s", e.Incoming.Short(), e.Path, e.Holder.Short())
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrPathConflict
}

// ReconcileError represents a change that could not be applied to the filesystem
type ReconcileError struct {
	Kind   domain.FailureKind
	Task   domain.RenameTask
	Reason string
	Err    error
}

func (e *ReconcileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Task, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Task, e.Kind, e.Reason)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}
