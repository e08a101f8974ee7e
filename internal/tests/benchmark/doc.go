// Package benchmark contains performance benchmarks for the guarded
// map and the snapshot transfer path.
//
// Run with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/
package benchmark
