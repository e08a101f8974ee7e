package guarded

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yndnr/ordguard-go/internal/core/domain"
	"github.com/yndnr/ordguard-go/pkg/resource"
	"github.com/yndnr/ordguard-go/pkg/lockpolicy"
	"github.com/yndnr/ordguard-go/pkg/ordmap"
)

func payloadSized(bytes int) ordmap.Sizer[string, []byte] {
	return func(_ string, v []byte) int { return len(v) }
}

func newBudgeted(t *testing.T, ceiling int64) *Map[string, []byte] {
	t.Helper()
	return New[string, []byte](
		WithResourceConfig[string, []byte](resource.Config{CeilingBytes: ceiling}),
		WithSizer[string, []byte](payloadSized(0)),
	)
}

func TestEvictionKeepsMapWithinBudget(t *testing.T) {
	m := newBudgeted(t, 10240)
	payload := make([]byte, 1024)

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key-%02d", i)
		if err := m.Set(key, payload); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	if got := m.Len(); got != 10 {
		t.Errorf("Len() = %d, want 10", got)
	}
	if got := m.Used(); got != 10240 {
		t.Errorf("Used() = %d, want 10240", got)
	}

	// The oldest ten were evicted; the newest ten remain in insertion order.
	keys := m.Keys()
	for i, key := range keys {
		want := fmt.Sprintf("key-%02d", i+10)
		if key != want {
			t.Errorf("Keys()[%d] = %q, want %q", i, key, want)
		}
	}
	for i := 0; i < 10; i++ {
		if m.Has(fmt.Sprintf("key-%02d", i)) {
			t.Errorf("key-%02d survived eviction", i)
		}
	}
}

func TestGetRefreshesEvictionOrder(t *testing.T) {
	m := newBudgeted(t, 3)
	for _, key := range []string{"a", "b", "c"} {
		if err := m.Set(key, []byte{0}); err != nil {
			t.Fatal(err)
		}
	}

	// Touch "a" so "b" becomes the eviction victim.
	if _, ok := m.Get("a"); !ok {
		t.Fatal("Get(a) missed")
	}
	if err := m.Set("d", []byte{0}); err != nil {
		t.Fatal(err)
	}

	if m.Has("b") {
		t.Error("b survived although it was least recently used")
	}
	if !m.Has("a") {
		t.Error("a evicted despite recent access")
	}
}

func TestOversizeWriteFailsAtomically(t *testing.T) {
	m := newBudgeted(t, 1000)
	if err := m.Set("small", make([]byte, 600)); err != nil {
		t.Fatal(err)
	}
	usedBefore := m.Used()

	err := m.Set("huge", make([]byte, 2000))
	if !errors.Is(err, domain.ErrMemoryLimitExceeded) {
		t.Fatalf("Set(huge) = %v, want ErrMemoryLimitExceeded", err)
	}

	if m.Used() != usedBefore {
		t.Errorf("Used() = %d after failed write, want %d", m.Used(), usedBefore)
	}
	if m.Len() != 1 || !m.Has("small") {
		t.Error("failed write disturbed existing entries")
	}
	if m.Has("huge") {
		t.Error("rejected entry present in map")
	}
}

func TestOversizeWriteFailsOnEmptyMap(t *testing.T) {
	m := newBudgeted(t, 100)
	err := m.Set("k", make([]byte, 101))
	if !errors.Is(err, domain.ErrMemoryLimitExceeded) {
		t.Fatalf("Set = %v, want ErrMemoryLimitExceeded", err)
	}
	if m.Len() != 0 || m.Used() != 0 {
		t.Error("failed write left residue on empty map")
	}
}

func TestZeroSizeEntriesAdmitTrivially(t *testing.T) {
	m := newBudgeted(t, 1)
	for i := 0; i < 100; i++ {
		if err := m.Set(fmt.Sprintf("k%d", i), nil); err != nil {
			t.Fatalf("Set(k%d): %v", i, err)
		}
	}
	if m.Len() != 100 {
		t.Errorf("Len() = %d, want 100", m.Len())
	}
}

func TestUpdateAccountsSizeDelta(t *testing.T) {
	m := newBudgeted(t, 1000)
	if err := m.Set("k", make([]byte, 400)); err != nil {
		t.Fatal(err)
	}
	if err := m.Set("k", make([]byte, 700)); err != nil {
		t.Fatalf("grow update: %v", err)
	}
	if got := m.Used(); got != 700 {
		t.Errorf("Used() = %d after grow, want 700", got)
	}

	if err := m.Set("k", make([]byte, 100)); err != nil {
		t.Fatalf("shrink update: %v", err)
	}
	if got := m.Used(); got != 100 {
		t.Errorf("Used() = %d after shrink, want 100", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestUpdateDoesNotEvictItself(t *testing.T) {
	m := newBudgeted(t, 1000)
	if err := m.Set("old", make([]byte, 500)); err != nil {
		t.Fatal(err)
	}
	if err := m.Set("grow", make([]byte, 400)); err != nil {
		t.Fatal(err)
	}

	// Growing "grow" needs an eviction. The LRU list offers both keys;
	// the key being written is exempt, so "old" is the only legal victim.
	if err := m.Set("grow", make([]byte, 600)); err != nil {
		t.Fatalf("grow update: %v", err)
	}
	if !m.Has("grow") {
		t.Error("updated key evicted by its own write")
	}
	if m.Has("old") {
		t.Error("victim survived an eviction that was required")
	}
	if m.Used() != 600 {
		t.Errorf("Used() = %d, want 600", m.Used())
	}
}

func TestNilPointerKeyRejected(t *testing.T) {
	m := New[*string, int]()
	if err := m.Set(nil, 1); !errors.Is(err, domain.ErrNullKey) {
		t.Errorf("Set(nil) = %v, want ErrNullKey", err)
	}

	key := "k"
	if err := m.Set(&key, 1); err != nil {
		t.Errorf("Set(&key) = %v", err)
	}
}

func TestDeleteReleasesBudget(t *testing.T) {
	m := newBudgeted(t, 1000)
	if err := m.Set("k", make([]byte, 800)); err != nil {
		t.Fatal(err)
	}
	if !m.Delete("k") {
		t.Fatal("Delete(k) = false")
	}
	if m.Used() != 0 {
		t.Errorf("Used() = %d after delete, want 0", m.Used())
	}
	if err := m.Set("other", make([]byte, 900)); err != nil {
		t.Errorf("Set after delete: %v", err)
	}
}

func TestClearResetsAccounting(t *testing.T) {
	m := newBudgeted(t, 1000)
	for i := 0; i < 5; i++ {
		if err := m.Set(fmt.Sprintf("k%d", i), make([]byte, 100)); err != nil {
			t.Fatal(err)
		}
	}
	m.Clear()

	if m.Len() != 0 || m.Used() != 0 {
		t.Errorf("Len() = %d, Used() = %d after Clear", m.Len(), m.Used())
	}
	if err := m.Set("fresh", make([]byte, 1000)); err != nil {
		t.Errorf("Set after Clear: %v", err)
	}
}

func TestDefragmentClearsSignal(t *testing.T) {
	m := New[string, []byte](
		WithResourceConfig[string, []byte](resource.Config{
			CeilingBytes:         1 << 20,
			FragThresholdPct:     10,
			FragCheckIntervalOps: 1,
		}),
		WithSizer[string, []byte](payloadSized(0)),
	)

	// Churn entries until the sampled fragmentation rate trips the flag.
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("churn-%d", i)
		if err := m.Set(key, make([]byte, 100)); err != nil {
			t.Fatal(err)
		}
		m.Delete(key)
	}
	if err := m.Set("live", make([]byte, 100)); err != nil {
		t.Fatal(err)
	}
	if !m.NeedsDefragmentation() {
		t.Fatalf("fragmentation flag not set after churn (rate %.1f)", m.FragmentationRate())
	}

	m.Defragment()
	if m.NeedsDefragmentation() {
		t.Error("fragmentation flag still set after Defragment")
	}
	if v, ok := m.Get("live"); !ok || len(v) != 100 {
		t.Error("Defragment lost live entries")
	}
}

func TestSwapExchangesContentsAndBudgets(t *testing.T) {
	a := newBudgeted(t, 1000)
	b := newBudgeted(t, 2000)
	if err := a.Set("from-a", make([]byte, 100)); err != nil {
		t.Fatal(err)
	}
	if err := b.Set("from-b", make([]byte, 200)); err != nil {
		t.Fatal(err)
	}

	a.Swap(b)

	if !a.Has("from-b") || !b.Has("from-a") {
		t.Error("Swap did not exchange entries")
	}
	if a.Used() != 200 || b.Used() != 100 {
		t.Errorf("Used() after swap = (%d, %d), want (200, 100)", a.Used(), b.Used())
	}

	// Self-swap is a no-op.
	a.Swap(a)
	if !a.Has("from-b") || a.Used() != 200 {
		t.Error("self-swap disturbed the map")
	}
}

func TestConcurrentOppositeSwapsTerminate(t *testing.T) {
	a := newBudgeted(t, 1000)
	b := newBudgeted(t, 1000)
	a.Set("a", []byte{1})
	b.Set("b", []byte{2})

	done := make(chan struct{}, 2)
	go func() {
		for i := 0; i < 500; i++ {
			a.Swap(b)
		}
		done <- struct{}{}
	}()
	go func() {
		for i := 0; i < 500; i++ {
			b.Swap(a)
		}
		done <- struct{}{}
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("opposite swaps deadlocked")
		}
	}
	if total := a.Len() + b.Len(); total != 2 {
		t.Errorf("entries lost during swaps: total = %d, want 2", total)
	}
}

func TestSwapWithSharedPolicyInstance(t *testing.T) {
	p := lockpolicy.NewExclusive()
	a := New[string, int](WithPolicy[string, int](p))
	b := New[string, int](WithPolicy[string, int](p))
	a.Set("x", 1)

	// Same policy object must be acquired once, not deadlock on itself.
	donech := make(chan struct{})
	go func() {
		a.Swap(b)
		close(donech)
	}()
	select {
	case <-donech:
	case <-time.After(5 * time.Second):
		t.Fatal("swap with shared policy deadlocked")
	}
	if !b.Has("x") {
		t.Error("swap with shared policy did not move entries")
	}
}

func TestNoopPolicySingleGoroutine(t *testing.T) {
	m := New[string, int](WithPolicy[string, int](lockpolicy.NewNoop()))
	for i := 0; i < 10; i++ {
		if err := m.Set(fmt.Sprintf("k%d", i), i); err != nil {
			t.Fatal(err)
		}
	}
	if m.Len() != 10 {
		t.Errorf("Len() = %d, want 10", m.Len())
	}
}

func TestSnapshotOrderMatchesInsertion(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 5; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}
	m.Delete("k2")
	m.Set("k2", 22) // re-insert appends at the end

	entries := m.Snapshot()
	wantKeys := []string{"k0", "k1", "k3", "k4", "k2"}
	if len(entries) != len(wantKeys) {
		t.Fatalf("Snapshot() has %d entries, want %d", len(entries), len(wantKeys))
	}
	for i, want := range wantKeys {
		if entries[i].Key != want {
			t.Errorf("Snapshot()[%d].Key = %q, want %q", i, entries[i].Key, want)
		}
	}
	if entries[4].Value != 22 {
		t.Errorf("re-inserted value = %d, want 22", entries[4].Value)
	}
}
