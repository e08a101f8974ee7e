// Package aead provides authenticated encryption for snapshot payloads.
//
// The cipher is chosen per architecture: AES-GCM where Go uses hardware
// AES, ChaCha20-Poly1305 everywhere else. Keys of arbitrary length are
// stretched to cipher size with HKDF.
package aead
