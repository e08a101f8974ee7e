package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a subsystem error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "OG-MEM-5070")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	switch {
	case e.Details != "" && e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %s: %v", e.Code, e.Message, e.Details, e.Cause)
	case e.Details != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support: two DomainErrors match on their code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// ErrorCode extracts the error code from an error if it is a DomainError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Key and codec errors (KEY)
// ============================================================================

var (
	// ErrNullKey indicates a nil key was passed to a map operation.
	ErrNullKey = NewDomainError("OG-KEY-4000", "null key")

	// ErrUninitializedCodec indicates the entry codec is not usable.
	ErrUninitializedCodec = NewDomainError("OG-KEY-4001", "uninitialized codec")
)

// ============================================================================
// Iterator and lock errors (ITER / LOCK)
// ============================================================================

var (
	// ErrInvalidIterator indicates an iterator was used after invalidation.
	ErrInvalidIterator = NewDomainError("OG-ITER-4090", "invalid iterator")

	// ErrLockHandleReleased indicates a lock handle was used after release.
	ErrLockHandleReleased = NewDomainError("OG-LOCK-4091", "lock handle already released")
)

// ============================================================================
// Memory errors (MEM)
// ============================================================================

var (
	// ErrMemoryLimitExceeded indicates a write could not be admitted even
	// after bounded eviction.
	ErrMemoryLimitExceeded = NewDomainError("OG-MEM-5070", "memory limit exceeded")

	// ErrAllocationFailure indicates the container refused an allocation.
	ErrAllocationFailure = NewDomainError("OG-MEM-5071", "allocation failure")
)

// ============================================================================
// Transfer errors (XFER)
// ============================================================================

var (
	// ErrDataIntegrity indicates a checksum mismatch on a framed payload.
	ErrDataIntegrity = NewDomainError("OG-XFER-4220", "data integrity check failed")

	// ErrOperationTimedOut indicates a transfer attempt exceeded its timeout.
	ErrOperationTimedOut = NewDomainError("OG-XFER-4080", "operation timed out")

	// ErrRetryExhausted indicates the retry budget was spent without success.
	ErrRetryExhausted = NewDomainError("OG-XFER-4290", "retry budget exhausted")

	// ErrTransferIO indicates an I/O failure during transfer.
	ErrTransferIO = NewDomainError("OG-XFER-5020", "transfer io failure")
)
