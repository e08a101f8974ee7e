package transfer

import (
	"encoding/json"
	"fmt"
)

// Codec converts keys and values to and from wire payloads. Snapshot
// streams carry every key and value in its own envelope, so the codec
// never sees framing or checksums.
type Codec[K comparable, V any] interface {
	EncodeKey(key K) ([]byte, error)
	DecodeKey(data []byte) (K, error)
	EncodeValue(value V) ([]byte, error)
	DecodeValue(data []byte) (V, error)
}

// JSONCodec encodes keys and values as JSON.
type JSONCodec[K comparable, V any] struct{}

func (JSONCodec[K, V]) EncodeKey(key K) ([]byte, error) {
	data, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("transfer: encode key: %w", err)
	}
	return data, nil
}

func (JSONCodec[K, V]) DecodeKey(data []byte) (K, error) {
	var key K
	if err := json.Unmarshal(data, &key); err != nil {
		return key, fmt.Errorf("transfer: decode key: %w", err)
	}
	return key, nil
}

func (JSONCodec[K, V]) EncodeValue(value V) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("transfer: encode value: %w", err)
	}
	return data, nil
}

func (JSONCodec[K, V]) DecodeValue(data []byte) (V, error) {
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("transfer: decode value: %w", err)
	}
	return value, nil
}
