package lockpolicy

import (
	"sync/atomic"

	"github.com/yndnr/ordguard-go/internal/core/domain"
)

// Handle represents one held lock. Release returns the lock exactly once;
// a released handle reports an error on any further use.
type Handle struct {
	release  func()
	released atomic.Bool
}

func newHandle(release func()) *Handle {
	return &Handle{release: release}
}

// Release returns the underlying lock. Releasing twice is an error, not a
// panic.
func (h *Handle) Release() error {
	if h == nil {
		return domain.ErrLockHandleReleased
	}
	if !h.released.CompareAndSwap(false, true) {
		return domain.ErrLockHandleReleased
	}
	if h.release != nil {
		h.release()
	}
	return nil
}

// Held reports whether the handle still holds its lock.
func (h *Handle) Held() bool {
	return h != nil && !h.released.Load()
}

// Verify returns an error when the handle no longer holds its lock. Code
// that performs work under a long-lived handle checks this before touching
// guarded state.
func (h *Handle) Verify() error {
	if !h.Held() {
		return domain.ErrLockHandleReleased
	}
	return nil
}
