package lockpolicy

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Kind selects a locking strategy.
type Kind string

const (
	// KindSharedExclusive allows concurrent readers and exclusive writers.
	KindSharedExclusive Kind = "shared-exclusive"

	// KindExclusive serializes readers and writers alike.
	KindExclusive Kind = "exclusive"

	// KindNoop performs no synchronization.
	KindNoop Kind = "none"
)

// KindFromString parses a config value into a Kind.
func KindFromString(s string) (Kind, error) {
	switch Kind(s) {
	case KindSharedExclusive, KindExclusive, KindNoop:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("lockpolicy: unknown policy %q", s)
	}
}

// Policy is a pluggable synchronization strategy. Acquire methods block
// until the lock is held and return a handle that must be released. Try
// variants return a nil handle and false without blocking when the lock
// is contended.
//
// ID is a process-unique ordering key. Callers locking two policies at
// once must acquire in ascending ID order.
type Policy interface {
	AcquireRead() *Handle
	AcquireWrite() *Handle
	TryAcquireRead() (*Handle, bool)
	TryAcquireWrite() (*Handle, bool)
	ID() uint64
}

var policyIDs atomic.Uint64

func nextPolicyID() uint64 {
	return policyIDs.Add(1)
}

// New constructs a policy of the given kind.
func New(kind Kind) (Policy, error) {
	switch kind {
	case KindSharedExclusive:
		return NewSharedExclusive(), nil
	case KindExclusive:
		return NewExclusive(), nil
	case KindNoop:
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("lockpolicy: unknown policy %q", kind)
	}
}

// SharedExclusive is a reader-writer policy backed by sync.RWMutex.
type SharedExclusive struct {
	mu sync.RWMutex
	id uint64
}

// NewSharedExclusive creates a reader-writer policy.
func NewSharedExclusive() *SharedExclusive {
	return &SharedExclusive{id: nextPolicyID()}
}

func (p *SharedExclusive) AcquireRead() *Handle {
	p.mu.RLock()
	return newHandle(p.mu.RUnlock)
}

func (p *SharedExclusive) AcquireWrite() *Handle {
	p.mu.Lock()
	return newHandle(p.mu.Unlock)
}

func (p *SharedExclusive) TryAcquireRead() (*Handle, bool) {
	if !p.mu.TryRLock() {
		return nil, false
	}
	return newHandle(p.mu.RUnlock), true
}

func (p *SharedExclusive) TryAcquireWrite() (*Handle, bool) {
	if !p.mu.TryLock() {
		return nil, false
	}
	return newHandle(p.mu.Unlock), true
}

func (p *SharedExclusive) ID() uint64 { return p.id }

// Exclusive serializes all access behind a single mutex. Read acquisition
// is as exclusive as write acquisition.
type Exclusive struct {
	mu sync.Mutex
	id uint64
}

// NewExclusive creates a mutual-exclusion policy.
func NewExclusive() *Exclusive {
	return &Exclusive{id: nextPolicyID()}
}

func (p *Exclusive) AcquireRead() *Handle {
	p.mu.Lock()
	return newHandle(p.mu.Unlock)
}

func (p *Exclusive) AcquireWrite() *Handle {
	p.mu.Lock()
	return newHandle(p.mu.Unlock)
}

func (p *Exclusive) TryAcquireRead() (*Handle, bool) {
	if !p.mu.TryLock() {
		return nil, false
	}
	return newHandle(p.mu.Unlock), true
}

func (p *Exclusive) TryAcquireWrite() (*Handle, bool) {
	if !p.mu.TryLock() {
		return nil, false
	}
	return newHandle(p.mu.Unlock), true
}

func (p *Exclusive) ID() uint64 { return p.id }

// Noop grants every acquisition immediately without synchronizing.
// Handles still track release state so misuse surfaces the same way as
// with real policies.
type Noop struct {
	id uint64
}

// NewNoop creates a no-op policy.
func NewNoop() *Noop {
	return &Noop{id: nextPolicyID()}
}

func (p *Noop) AcquireRead() *Handle  { return newHandle(nil) }
func (p *Noop) AcquireWrite() *Handle { return newHandle(nil) }

func (p *Noop) TryAcquireRead() (*Handle, bool)  { return newHandle(nil), true }
func (p *Noop) TryAcquireWrite() (*Handle, bool) { return newHandle(nil), true }

func (p *Noop) ID() uint64 { return p.id }
