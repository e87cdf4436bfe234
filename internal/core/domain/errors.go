package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Error Taxonomy
// ============================================================================

var (
	ErrUnauthorizedAccess = errors.New("unauthorized access")
	ErrObjectNotFound     = errors.New("object not found")
	ErrFrozen             = errors.New("object is frozen")
	ErrValidation         = errors.New("validation failure")
)

// Request errors
var (
	ErrMissingUserID      = errors.New("user ID is required (X-User-ID header)")
	ErrEntityCodeConflict = errors.New("entity with this code already exists")
	ErrArchiveDisabled    = errors.New("manifest archive is not configured")
)

// ============================================================================
// Typed Errors
// ============================================================================

// UnauthorizedAccessError reports that the caller lacks the role required for an entity.
type UnauthorizedAccessError struct {
	EntityID string
}

func (e *UnauthorizedAccessError) Error() string {
	return fmt.Sprintf("unauthorized access to object %s", e.EntityID)
}

func (e *UnauthorizedAccessError) Unwrap() error { return ErrUnauthorizedAccess }

// ObjectNotFoundError reports an absent entity, deletion set or content copy.
type ObjectNotFoundError struct {
	Kind string
	ID   string
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *ObjectNotFoundError) Unwrap() error { return ErrObjectNotFound }

// FrozenError reports a mutation rejected by the freeze policy.
type FrozenError struct {
	EntityID    string
	EntityKind  EntityKind
	EntityCode  string
	Operation   Operation
	SubjectKind EntityKind
	SubjectCode string
}

func (e *FrozenError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "operation %s is not allowed because %s %s is frozen", e.Operation, e.EntityKind.Label(), e.EntityCode)
	if e.SubjectKind != "" {
		fmt.Fprintf(&b, " for %s %s", e.SubjectKind.Label(), e.SubjectCode)
	}
	return b.String()
}

func (e *FrozenError) Unwrap() error { return ErrFrozen }

// ValidationError reports a malformed request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// EntityNotFound returns the not-found error for an entity id.
func EntityNotFound(id string) error {
	return &ObjectNotFoundError{Kind: "entity", ID: id}
}

// DeletionNotFound returns the not-found error for a deletion set id.
func DeletionNotFound(id string) error {
	return &ObjectNotFoundError{Kind: "deletion", ID: id}
}

// ManifestNotFound returns the not-found error for an archive key.
func ManifestNotFound(key string) error {
	return &ObjectNotFoundError{Kind: "manifest", ID: key}
}
