package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Algorithm identifies the AEAD construction.
type Algorithm string

const (
	AlgorithmAESGCM   Algorithm = "aes-gcm"
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

const keySize = 32

var (
	ErrEmptyKey         = errors.New("aead: empty key")
	ErrSealedTooShort   = errors.New("aead: sealed payload shorter than nonce")
	ErrOpenFailed       = errors.New("aead: authentication failed")
	errUnknownAlgorithm = errors.New("aead: unknown algorithm")
)

// Sealer performs authenticated encryption with a random per-payload
// nonce prepended to the output.
type Sealer struct {
	aead cipher.AEAD
	algo Algorithm
}

// New creates a sealer with the architecture-preferred algorithm.
func New(key []byte) (*Sealer, error) {
	return NewWithAlgorithm(key, preferredAlgorithm())
}

// NewWithAlgorithm creates a sealer with an explicit algorithm. The key
// may be any non-empty length; it is stretched to 32 bytes with
// HKDF-SHA256.
func NewWithAlgorithm(key []byte, algo Algorithm) (*Sealer, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	stretched, err := stretchKey(key, string(algo))
	if err != nil {
		return nil, err
	}

	var aead cipher.AEAD
	switch algo {
	case AlgorithmAESGCM:
		block, err := aes.NewCipher(stretched)
		if err != nil {
			return nil, fmt.Errorf("aead: %w", err)
		}
		aead, err = cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("aead: %w", err)
		}
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(stretched)
		if err != nil {
			return nil, fmt.Errorf("aead: %w", err)
		}
	default:
		return nil, errUnknownAlgorithm
	}
	return &Sealer{aead: aead, algo: algo}, nil
}

// Algorithm returns the construction in use.
func (s *Sealer) Algorithm() Algorithm { return s.algo }

// Seal encrypts plaintext and returns nonce||ciphertext.
func (s *Sealer) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("aead: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Open authenticates and decrypts a sealed payload.
func (s *Sealer) Open(sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrSealedTooShort
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plain, nil
}

// Overhead returns the per-payload size cost of sealing.
func (s *Sealer) Overhead() int {
	return s.aead.NonceSize() + s.aead.Overhead()
}

func preferredAlgorithm() Algorithm {
	// Go's crypto/aes is hardware-backed on these architectures.
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return AlgorithmAESGCM
	default:
		return AlgorithmChaCha20
	}
}

func stretchKey(key []byte, info string) ([]byte, error) {
	out := make([]byte, keySize)
	r := hkdf.New(sha256.New, key, nil, []byte("ordguard/"+info))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("aead: derive key: %w", err)
	}
	return out, nil
}
