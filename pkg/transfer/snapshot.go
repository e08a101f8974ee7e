package transfer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/ordguard-go/internal/core/domain"
)

// Source is the read side of a snapshot: an insertion-ordered container
// exposing its sizing header and element stream.
type Source[K comparable, V any] interface {
	// Len returns the element count.
	Len() int
	// Capacity returns the memory ceiling in bytes, or 0 when unlimited.
	Capacity() int64
	// BucketCount returns the backing storage size hint.
	BucketCount() int
	// Range visits elements in insertion order until fn returns false.
	Range(fn func(key K, value V) bool)
}

// Sink is the write side of a snapshot.
type Sink[K comparable, V any] interface {
	// Clear removes all elements before restore.
	Clear()
	// Reserve sizes the backing storage for the incoming element count.
	Reserve(n int)
	// Put appends one restored element.
	Put(key K, value V) error
}

// Snapshot wire layout, every field in its own frame:
//
//	[size][capacity][bucketCount]([key][value])*[digest]
//
// The header fields are 8-byte big-endian integers. The digest is the
// 128-bit murmur3 hash of all preceding payloads in stream order, so a
// frame that passes its own checksum but was reordered or dropped still
// fails the restore.

// Serialize writes a snapshot of src to w under the channel's timeout
// and retry policy. The caller must hold the source's read lock for the
// whole call.
func Serialize[K comparable, V any](c *Channel, w io.Writer, src Source[K, V], codec Codec[K, V]) error {
	if codec == nil {
		return domain.ErrUninitializedCodec
	}

	var buf bytes.Buffer
	digest := murmur3.New128()

	writeField := func(payload []byte) error {
		digest.Write(payload)
		return c.WriteEnvelope(&buf, payload)
	}
	writeInt := func(v uint64) error {
		var field [8]byte
		binary.BigEndian.PutUint64(field[:], v)
		return writeField(field[:])
	}

	if err := writeInt(uint64(src.Len())); err != nil {
		return err
	}
	if err := writeInt(uint64(src.Capacity())); err != nil {
		return err
	}
	if err := writeInt(uint64(src.BucketCount())); err != nil {
		return err
	}

	var rangeErr error
	src.Range(func(key K, value V) bool {
		keyData, err := codec.EncodeKey(key)
		if err != nil {
			rangeErr = err
			return false
		}
		if rangeErr = writeField(keyData); rangeErr != nil {
			return false
		}
		valueData, err := codec.EncodeValue(value)
		if err != nil {
			rangeErr = err
			return false
		}
		rangeErr = writeField(valueData)
		return rangeErr == nil
	})
	if rangeErr != nil {
		return rangeErr
	}

	hi, lo := digest.Sum128()
	var trailer [16]byte
	binary.BigEndian.PutUint64(trailer[:8], hi)
	binary.BigEndian.PutUint64(trailer[8:], lo)
	if err := c.WriteEnvelope(&buf, trailer[:]); err != nil {
		return err
	}

	stream := buf.Bytes()
	return c.Do("serialize", func() error {
		if _, err := w.Write(stream); err != nil {
			return NewIOError("write snapshot", true, err)
		}
		return nil
	})
}

// Deserialize restores a snapshot from r into dst. Every envelope is
// verified before any element reaches the sink; the target is cleared
// and resized only after the header decodes. The caller must hold the
// sink's write lock for the whole call. Returns the restored element
// count and the capacity recorded in the snapshot.
func Deserialize[K comparable, V any](c *Channel, r io.Reader, dst Sink[K, V], codec Codec[K, V]) (int, int64, error) {
	if codec == nil {
		return 0, 0, domain.ErrUninitializedCodec
	}

	var count int
	var capacity int64

	err := c.Do("deserialize", func() error {
		digest := murmur3.New128()

		readField := func() ([]byte, error) {
			payload, err := c.ReadEnvelope(r)
			if err != nil {
				return nil, err
			}
			digest.Write(payload)
			return payload, nil
		}
		readInt := func() (uint64, error) {
			payload, err := readField()
			if err != nil {
				return 0, err
			}
			if len(payload) != 8 {
				return 0, domain.ErrDataIntegrity.WithDetails("malformed header field")
			}
			return binary.BigEndian.Uint64(payload), nil
		}

		size, err := readInt()
		if err != nil {
			return err
		}
		capField, err := readInt()
		if err != nil {
			return err
		}
		bucketCount, err := readInt()
		if err != nil {
			return err
		}

		type element struct {
			key   K
			value V
		}
		elements := make([]element, 0, size)
		for i := uint64(0); i < size; i++ {
			keyData, err := readField()
			if err != nil {
				return err
			}
			key, err := codec.DecodeKey(keyData)
			if err != nil {
				return err
			}
			valueData, err := readField()
			if err != nil {
				return err
			}
			value, err := codec.DecodeValue(valueData)
			if err != nil {
				return err
			}
			elements = append(elements, element{key: key, value: value})
		}

		hi, lo := digest.Sum128()
		trailer, err := c.ReadEnvelope(r)
		if err != nil {
			return err
		}
		if len(trailer) != 16 ||
			binary.BigEndian.Uint64(trailer[:8]) != hi ||
			binary.BigEndian.Uint64(trailer[8:]) != lo {
			return domain.ErrDataIntegrity.WithDetails("stream digest mismatch")
		}

		dst.Clear()
		dst.Reserve(int(bucketCount))
		for _, e := range elements {
			if err := dst.Put(e.key, e.value); err != nil {
				return fmt.Errorf("transfer: restore element: %w", err)
			}
		}
		count = len(elements)
		capacity = int64(capField)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return count, capacity, nil
}
