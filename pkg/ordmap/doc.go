// Package ordmap provides a generic associative container that preserves
// insertion order.
//
// Entries are stored in a dense slice in insertion order with a key index
// for O(1) lookup. The map exposes an allocation-interception hook so an
// outer layer can meter byte usage without owning the allocation path, and
// a mutation version counter that defines the iterator-invalidation
// contract: any structural mutation (insert, erase, clear, reserve, swap)
// increments the version and invalidates outstanding iterators.
//
// The map itself is not safe for concurrent use; callers guard it.
package ordmap
