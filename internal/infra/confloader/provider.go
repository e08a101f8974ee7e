package confloader

import "errors"

// ErrReadBytesNotSupported is returned when koanf asks a map provider
// for raw bytes.
var ErrReadBytesNotSupported = errors.New("confloader: map provider has no byte form")

// mapProvider feeds an in-memory map into koanf. koanf probes Read()
// when ReadBytes() is unsupported.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
