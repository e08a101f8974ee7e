package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yndnr/ordguard-go/internal/core/domain"
	"github.com/yndnr/ordguard-go/pkg/crypto/aead"
)

// memSource is an insertion-ordered fixture for snapshot tests.
type memSource struct {
	keys   []string
	values []int
	cap    int64
	bucket int
}

func (s *memSource) Len() int         { return len(s.keys) }
func (s *memSource) Capacity() int64  { return s.cap }
func (s *memSource) BucketCount() int { return s.bucket }

func (s *memSource) Range(fn func(string, int) bool) {
	for i := range s.keys {
		if !fn(s.keys[i], s.values[i]) {
			return
		}
	}
}

type memSink struct {
	keys     []string
	values   []int
	reserved int
	cleared  int
	putErr   error
}

func (s *memSink) Clear() {
	s.cleared++
	s.keys = nil
	s.values = nil
}

func (s *memSink) Reserve(n int) { s.reserved = n }

func (s *memSink) Put(key string, value int) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.keys = append(s.keys, key)
	s.values = append(s.values, value)
	return nil
}

func testSource(n int) *memSource {
	src := &memSource{cap: 1 << 20, bucket: 64}
	for i := 0; i < n; i++ {
		src.keys = append(src.keys, fmt.Sprintf("key-%03d", i))
		src.values = append(src.values, i*i)
	}
	return src
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := NewChannel()
	codec := JSONCodec[string, int]{}
	src := testSource(10)

	var buf bytes.Buffer
	if err := Serialize[string, int](c, &buf, src, codec); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	sink := &memSink{}
	count, capacity, err := Deserialize[string, int](c, &buf, sink, codec)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
	if capacity != src.cap {
		t.Errorf("capacity = %d, want %d", capacity, src.cap)
	}
	if sink.cleared != 1 {
		t.Errorf("sink cleared %d times, want 1", sink.cleared)
	}
	if sink.reserved != src.bucket {
		t.Errorf("sink reserved %d, want %d", sink.reserved, src.bucket)
	}
	for i := range src.keys {
		if sink.keys[i] != src.keys[i] || sink.values[i] != src.values[i] {
			t.Fatalf("element %d = (%q, %d), want (%q, %d)",
				i, sink.keys[i], sink.values[i], src.keys[i], src.values[i])
		}
	}
}

func TestSnapshotRoundTripEmpty(t *testing.T) {
	c := NewChannel()
	codec := JSONCodec[string, int]{}

	var buf bytes.Buffer
	if err := Serialize[string, int](c, &buf, testSource(0), codec); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	sink := &memSink{}
	count, _, err := Deserialize[string, int](c, &buf, sink, codec)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if count != 0 || len(sink.keys) != 0 {
		t.Errorf("restored %d elements, want 0", count)
	}
}

func TestSnapshotEncryptedRoundTrip(t *testing.T) {
	sealer, err := aead.New([]byte("transfer key"))
	if err != nil {
		t.Fatal(err)
	}
	c := NewChannel(WithEncryption(sealer))
	codec := JSONCodec[string, int]{}
	src := testSource(5)

	var buf bytes.Buffer
	if err := Serialize[string, int](c, &buf, src, codec); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("key-000")) {
		t.Error("encrypted stream leaks plaintext keys")
	}

	sink := &memSink{}
	if _, _, err := Deserialize[string, int](c, &buf, sink, codec); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(sink.keys) != 5 || sink.keys[0] != "key-000" {
		t.Errorf("restored keys = %v", sink.keys)
	}
}

func TestSnapshotCorruptionRejectedWholesale(t *testing.T) {
	c := NewChannel()
	codec := JSONCodec[string, int]{}

	var buf bytes.Buffer
	if err := Serialize[string, int](c, &buf, testSource(8), codec); err != nil {
		t.Fatal(err)
	}
	stream := buf.Bytes()

	// Corrupt one payload byte past the header frames.
	corrupted := bytes.Clone(stream)
	corrupted[len(corrupted)/2] ^= 0x01

	sink := &memSink{}
	_, _, err := Deserialize[string, int](c, bytes.NewReader(corrupted), sink, codec)
	if err == nil {
		t.Fatal("Deserialize accepted a corrupted stream")
	}
	if sink.cleared != 0 {
		t.Error("sink mutated despite rejected stream")
	}
}

func TestSnapshotSingleByteCorruptionIsIntegrityError(t *testing.T) {
	c := NewChannel()
	codec := JSONCodec[string, int]{}

	var buf bytes.Buffer
	if err := Serialize[string, int](c, &buf, testSource(3), codec); err != nil {
		t.Fatal(err)
	}
	stream := buf.Bytes()

	// Byte 8 is inside the first frame's payload (after length and crc).
	corrupted := bytes.Clone(stream)
	corrupted[8] ^= 0x01

	sink := &memSink{}
	_, _, err := Deserialize[string, int](c, bytes.NewReader(corrupted), sink, codec)
	if !errors.Is(err, domain.ErrDataIntegrity) {
		t.Errorf("Deserialize = %v, want ErrDataIntegrity", err)
	}
	if sink.cleared != 0 {
		t.Error("sink cleared despite failed header integrity")
	}
}

func TestSnapshotNilCodec(t *testing.T) {
	c := NewChannel()
	var buf bytes.Buffer

	if err := Serialize[string, int](c, &buf, testSource(1), nil); !errors.Is(err, domain.ErrUninitializedCodec) {
		t.Errorf("Serialize(nil codec) = %v, want ErrUninitializedCodec", err)
	}
	if _, _, err := Deserialize[string, int](c, &buf, &memSink{}, nil); !errors.Is(err, domain.ErrUninitializedCodec) {
		t.Errorf("Deserialize(nil codec) = %v, want ErrUninitializedCodec", err)
	}
}

func TestSnapshotTruncatedStream(t *testing.T) {
	c := NewChannel()
	codec := JSONCodec[string, int]{}

	var buf bytes.Buffer
	if err := Serialize[string, int](c, &buf, testSource(4), codec); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-20]

	if _, _, err := Deserialize[string, int](c, bytes.NewReader(truncated), &memSink{}, codec); err == nil {
		t.Error("Deserialize accepted a truncated stream")
	}
}

func TestChannelDoObservesRetries(t *testing.T) {
	obs := &recordingObserver{}
	c := NewChannel(
		WithObserver(obs),
		WithRetryPolicy(RetryPolicy{
			MaxRetries:   3,
			InitialDelay: time.Nanosecond,
		}),
	)

	attempts := 0
	err := c.Do("push", func() error {
		attempts++
		if attempts < 3 {
			return NewIOError("push", true, errors.New("flaky link"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do = %v", err)
	}
	if obs.retries != 2 {
		t.Errorf("observed %d retries, want 2", obs.retries)
	}
}

type recordingObserver struct {
	retries   int
	timeouts  int
	integrity int
	bytes     int
}

func (o *recordingObserver) RetryScheduled(string, int, time.Duration) { o.retries++ }
func (o *recordingObserver) TimedOut(string)                           { o.timeouts++ }
func (o *recordingObserver) IntegrityFailure(string)                   { o.integrity++ }
func (o *recordingObserver) SnapshotBytes(n int)                       { o.bytes += n }
