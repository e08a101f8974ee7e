// Package resource provides memory accounting for guarded maps.
//
// It composes three trackers behind one Manager facade: a byte budget
// metered against a configurable ceiling, a most-recently-used ordering
// over live keys for eviction candidate selection, and a fragmentation
// monitor that samples allocation volume and raises a defragmentation
// signal.
package resource
