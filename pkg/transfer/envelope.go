package transfer

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/yndnr/ordguard-go/internal/core/domain"
)

// MaxFrameSize bounds a single framed payload. A frame this large is a
// corrupted length prefix, not a legitimate snapshot field.
const MaxFrameSize = 1 << 30

// Seal wraps a payload in an integrity envelope:
//
//	[crc32(IEEE, big-endian):4][payload...]
func Seal(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[:4], crc32.ChecksumIEEE(payload))
	copy(out[4:], payload)
	return out
}

// Open verifies an envelope and returns its payload. The payload is
// rejected wholesale on checksum mismatch.
func Open(envelope []byte) ([]byte, error) {
	if len(envelope) < 4 {
		return nil, domain.ErrDataIntegrity.WithDetails("envelope shorter than checksum")
	}
	want := binary.BigEndian.Uint32(envelope[:4])
	payload := envelope[4:]
	if got := crc32.ChecksumIEEE(payload); got != want {
		return nil, domain.ErrDataIntegrity.WithDetails(
			fmt.Sprintf("checksum mismatch: want %08x, got %08x", want, got))
	}
	return payload, nil
}

// WriteFramed writes one length-prefixed envelope:
//
//	[length:4][crc32:4][payload...]
//
// where length covers the checksum and the payload.
func WriteFramed(w io.Writer, payload []byte) error {
	envelope := Seal(payload)
	if len(envelope) > MaxFrameSize {
		return domain.ErrTransferIO.WithDetails("frame exceeds maximum size")
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(envelope)))
	if _, err := w.Write(header[:]); err != nil {
		return domain.ErrTransferIO.WithCause(err)
	}
	if _, err := w.Write(envelope); err != nil {
		return domain.ErrTransferIO.WithCause(err)
	}
	return nil
}

// ReadFramed reads one frame and returns its verified payload.
func ReadFramed(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, domain.ErrTransferIO.WithCause(err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length < 4 || length > MaxFrameSize {
		return nil, domain.ErrDataIntegrity.WithDetails("invalid frame length")
	}
	envelope := make([]byte, length)
	if _, err := io.ReadFull(r, envelope); err != nil {
		return nil, domain.ErrTransferIO.WithCause(err)
	}
	return Open(envelope)
}
