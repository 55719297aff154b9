//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Supported encryption algorithms.
const (
	AlgorithmAESGCM           = "aes-gcm"
	AlgorithmChaCha20Poly1305 = "chacha20-poly1305"
)

// DefaultKeyBits is used when EncryptionSettings.PreferredKeyBits is zero.
const DefaultKeyBits = 256

// EncryptionSettings describe how the storage was encrypted when it was
// written.
type EncryptionSettings struct {
	Key              []byte
	Algorithm        string
	EncryptIndexes   bool
	PreferredKeyBits int
}

// Validate checks that the key matches the algorithm and key size.
func (s EncryptionSettings) Validate() error {
	if len(s.Key) == 0 {
		return fmt.Errorf("encryption key is empty")
	}
	bits := s.PreferredKeyBits
	if bits == 0 {
		bits = DefaultKeyBits
	}
	switch s.algorithm() {
	case AlgorithmAESGCM:
		if bits != 128 && bits != 192 && bits != 256 {
			return fmt.Errorf("aes key size must be 128, 192 or 256 bits, got %d", bits)
		}
		if len(s.Key)*8 != bits {
			return fmt.Errorf("encryption key has %d bits, expected %d", len(s.Key)*8, bits)
		}
	case AlgorithmChaCha20Poly1305:
		if len(s.Key) != chacha20poly1305.KeySize {
			return fmt.Errorf("chacha20-poly1305 needs a %d byte key, got %d", chacha20poly1305.KeySize, len(s.Key))
		}
	default:
		return fmt.Errorf("unsupported encryption algorithm %q", s.Algorithm)
	}
	return nil
}

func (s EncryptionSettings) algorithm() string {
	if s.Algorithm == "" {
		return AlgorithmAESGCM
	}
	return strings.ToLower(s.Algorithm)
}

// Encryption is an AEAD codec. Encoded values are laid out as
//
//	| nonce | ciphertext | tag |
//
// and authenticated against the storage key.
type Encryption struct {
	name string
	aead cipher.AEAD
}

func NewEncryption(s EncryptionSettings) (*Encryption, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch s.algorithm() {
	case AlgorithmAESGCM:
		var block cipher.Block
		if block, err = aes.NewCipher(s.Key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20Poly1305:
		aead, err = chacha20poly1305.New(s.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", s.algorithm(), err)
	}

	return &Encryption{name: s.algorithm(), aead: aead}, nil
}

func (e *Encryption) Name() string {
	return e.name
}

func (e *Encryption) Encode(key, value []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(value)+e.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, value, key), nil
}

func (e *Encryption) Decode(key, value []byte) ([]byte, error) {
	ns := e.aead.NonceSize()
	if len(value) < ns+e.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short (%d bytes)", ErrCorrupt, len(value))
	}
	plain, err := e.aead.Open(nil, value[:ns], value[ns:], key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return plain, nil
}
