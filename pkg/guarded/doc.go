// Package guarded wraps the insertion-ordered map with lock-policy
// synchronization, memory-budgeted admission with LRU eviction,
// fragmentation monitoring, and resilient snapshot transfer.
//
// All public operations acquire the configured lock policy. Iterators
// hold a read lock for their whole lifetime and invalidate on release
// or on structural mutation.
package guarded
