package transfer

import (
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/yndnr/ordguard-go/internal/core/domain"
)

// IOError tags a transport failure with its retry classification.
type IOError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *IOError) Error() string {
	if e.Err == nil {
		return "transfer: " + e.Op + " failed"
	}
	return "transfer: " + e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps a transport failure with its classification.
func NewIOError(op string, retryable bool, err error) *IOError {
	return &IOError{Op: op, Retryable: retryable, Err: err}
}

// Classifier decides whether a failed attempt is worth retrying.
type Classifier func(error) bool

// DefaultClassifier retries the transient transport failures: connection
// resets and aborts, interrupted and would-block syscalls, and every form
// of timeout. Anything else is fatal.
func DefaultClassifier(err error) bool {
	if err == nil {
		return false
	}

	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return ioErr.Retryable
	}

	if errors.Is(err, domain.ErrOperationTimedOut) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNRESET,
		syscall.ECONNABORTED,
		syscall.EINTR,
		syscall.EAGAIN,
		syscall.ETIMEDOUT,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
