// Package lockpolicy provides pluggable synchronization strategies for
// guarded containers.
//
// A Policy hands out Handles rather than exposing raw mutexes. A handle
// releases exactly once; further use returns an error instead of
// corrupting lock state. The no-op policy keeps the same surface for
// single-goroutine use at zero synchronization cost.
package lockpolicy
