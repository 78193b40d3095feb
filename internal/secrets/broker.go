// Package secrets encrypts sensitive material before it is persisted.
// The core only ever encrypts; nothing in the service path decrypts.
package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrEncryption indicates the broker could not produce a ciphertext.
// A payment must not proceed when token material cannot be protected.
var ErrEncryption = errors.New("secret encryption failed")

// Broker encrypts plaintext secret material. Implementations must never
// return the plaintext on error paths.
type Broker interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
}

// AESBroker is an AES-256-GCM Broker keyed from configuration
type AESBroker struct {
	aead cipher.AEAD
}

// NewAESBroker creates a broker from a hex-encoded 256-bit key
func NewAESBroker(hexKey string) (*AESBroker, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: expected 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &AESBroker{aead: aead}, nil
}

// Encrypt seals the plaintext with a fresh nonce. The nonce is prepended
// to the returned ciphertext.
func (b *AESBroker) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}
