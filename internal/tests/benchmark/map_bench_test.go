package benchmark

import (
	"fmt"
	"testing"

	"github.com/yndnr/ordguard-go/pkg/lockpolicy"
)

func BenchmarkSet_SharedExclusive(b *testing.B) {
	m := newBenchMap(lockpolicy.NewSharedExclusive(), 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Set(fmt.Sprintf("key-%06d", i), "benchmark payload value")
	}
}

func BenchmarkSet_Exclusive(b *testing.B) {
	m := newBenchMap(lockpolicy.NewExclusive(), 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Set(fmt.Sprintf("key-%06d", i), "benchmark payload value")
	}
}

func BenchmarkSet_Noop(b *testing.B) {
	m := newBenchMap(lockpolicy.NewNoop(), 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Set(fmt.Sprintf("key-%06d", i), "benchmark payload value")
	}
}

func BenchmarkSet_WithEviction(b *testing.B) {
	// Ceiling sized so steady state keeps about a thousand entries and
	// every insert evicts.
	m := newBenchMap(lockpolicy.NewSharedExclusive(), 32<<10)
	seedMap(m, 2000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Set(fmt.Sprintf("hot-%06d", i), "benchmark payload value")
	}
}

func BenchmarkGet(b *testing.B) {
	m := newBenchMap(lockpolicy.NewSharedExclusive(), 0)
	seedMap(m, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Get(fmt.Sprintf("key-%06d", i%10000))
	}
}

func BenchmarkGet_Parallel(b *testing.B) {
	m := newBenchMap(lockpolicy.NewSharedExclusive(), 0)
	seedMap(m, 10000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Get(fmt.Sprintf("key-%06d", i%10000))
			i++
		}
	})
}

func BenchmarkIterate(b *testing.B) {
	m := newBenchMap(lockpolicy.NewSharedExclusive(), 0)
	seedMap(m, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it := m.Iter()
		for {
			ok, err := it.Next()
			if err != nil || !ok {
				break
			}
		}
		it.Close()
	}
}
