/*
errors.go - Centralized error types for the write path

ERROR CATEGORIES:
  1. Resolution errors - unknown resource names
  2. Validation errors - missing id on update, missing/invalid workflow fields
  3. Conflict errors - caller-supplied id already taken on create
  4. Store errors - missing documents, transport and commit failures

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, document.ErrIdentifierConflict) {
        // pick another id
    }

    var verr *document.ValidationError
    if errors.As(err, &verr) {
        log.Printf("bad field %s", verr.Field)
    }

SEE ALSO:
  - store.go: Stores return ErrNotFound, ErrDocumentExists, *StorageError
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package document

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrResourceNotFound is returned when a resource name maps to no collection.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrIdentifierConflict is returned when a caller-supplied id is taken.
	ErrIdentifierConflict = errors.New("identifier already exists")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned by stores when an updated document is missing.
	ErrNotFound = errors.New("document not found")

	// ErrDocumentExists is returned by stores for a create-only write on an
	// existing key.
	ErrDocumentExists = errors.New("document already exists")

	// ErrStorage marks failures of the underlying database call.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ResourceNotFoundError names the unknown resource.
type ResourceNotFoundError struct {
	Resource string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource %q not found", e.Resource)
}

func (e *ResourceNotFoundError) Unwrap() error { return ErrResourceNotFound }

// IdentifierConflictError is returned by Create when the caller picked an id
// that already exists.
type IdentifierConflictError struct {
	Resource string
	ID       string
}

func (e *IdentifierConflictError) Error() string {
	return fmt.Sprintf("the id:%q already exists in %s, please use a unique string if overriding the 'id' field",
		e.ID, e.Resource)
}

func (e *IdentifierConflictError) Unwrap() error { return ErrIdentifierConflict }

// ValidationError points at the offending field, when there is one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a driver failure. errors.Is matches both ErrStorage
// and the wrapped cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing resource or document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is an identifier collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrIdentifierConflict) ||
		errors.Is(err, ErrDocumentExists)
}
