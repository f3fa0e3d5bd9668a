package board

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrContentNotFound indicates no active content matched
	ErrContentNotFound = errors.New("content not found")

	// ErrUserNotFound indicates no active user matched
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the uid or email is already registered
	ErrUserExists = errors.New("user already exists")

	// ErrAllocationFailed indicates a sequence value could not be allocated
	ErrAllocationFailed = errors.New("sequence allocation failed")

	// ErrInvalidSequenceName indicates an empty sequence name
	ErrInvalidSequenceName = errors.New("invalid sequence name")

	// ErrSequenceConflict indicates a counter transaction lost a race and may be retried
	ErrSequenceConflict = errors.New("sequence transaction conflict")

	// ErrTransient indicates a store failure that may succeed on retry
	ErrTransient = errors.New("transient store failure")

	// ErrValidation indicates a request failed schema validation
	ErrValidation = errors.New("validation failed")

	// ErrUpstream indicates an external collaborator failed
	ErrUpstream = errors.New("upstream service failed")
)

// AllocationError reports a failed sequence allocation.
type AllocationError struct {
	Sequence string
	Attempts int
	Err      error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation for sequence %q failed after %d attempt(s): %v", e.Sequence, e.Attempts, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocationFailed
}

// ContentError represents an error related to content operations
type ContentError struct {
	PostNumber int64
	Op         string
	Err        error
}

func (e *ContentError) Error() string {
	if e.PostNumber == 0 {
		return fmt.Sprintf("content operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("content operation %s failed for post %d: %v", e.Op, e.PostNumber, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// FieldError describes one violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level validation failures.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError with a single field failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UpstreamError wraps a failure of an external collaborator such as the
// object store or the identity service.
type UpstreamError struct {
	Service string
	Op      string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// IsRetriable reports whether a sequence store error may succeed on retry.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrSequenceConflict) || errors.Is(err, ErrTransient)
}
