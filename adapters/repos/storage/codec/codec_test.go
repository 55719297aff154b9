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
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(bits int) []byte {
	return bytes.Repeat([]byte{0x42}, bits/8)
}

func TestEncryptionSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings EncryptionSettings
		wantErr  bool
	}{
		{"aes default size", EncryptionSettings{Key: testKey(256)}, false},
		{"aes 128", EncryptionSettings{Key: testKey(128), PreferredKeyBits: 128}, false},
		{"aes 192", EncryptionSettings{Key: testKey(192), Algorithm: "AES-GCM", PreferredKeyBits: 192}, false},
		{"aes size mismatch", EncryptionSettings{Key: testKey(128), PreferredKeyBits: 256}, true},
		{"aes odd size", EncryptionSettings{Key: testKey(160), PreferredKeyBits: 160}, true},
		{"chacha", EncryptionSettings{Key: testKey(256), Algorithm: AlgorithmChaCha20Poly1305}, false},
		{"chacha short key", EncryptionSettings{Key: testKey(128), Algorithm: AlgorithmChaCha20Poly1305}, true},
		{"empty key", EncryptionSettings{}, true},
		{"unknown algorithm", EncryptionSettings{Key: testKey(256), Algorithm: "rot13"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEncryption(t *testing.T) {
	for _, algo := range []string{AlgorithmAESGCM, AlgorithmChaCha20Poly1305} {
		t.Run(algo, func(t *testing.T) {
			enc, err := NewEncryption(EncryptionSettings{Key: testKey(256), Algorithm: algo})
			require.NoError(t, err)
			assert.Equal(t, algo, enc.Name())

			plain := []byte(`{"Name":"Oren"}`)
			sealed, err := enc.Encode([]byte("k1"), plain)
			require.NoError(t, err)
			assert.NotContains(t, string(sealed), "Oren")

			opened, err := enc.Decode([]byte("k1"), sealed)
			require.NoError(t, err)
			assert.Equal(t, plain, opened)

			_, err = enc.Decode([]byte("k2"), sealed)
			assert.True(t, errors.Is(err, ErrCorrupt), "value is bound to its key")

			_, err = enc.Decode([]byte("k1"), sealed[:4])
			assert.True(t, errors.Is(err, ErrCorrupt))
		})
	}

	t.Run("wrong key fails", func(t *testing.T) {
		a, err := NewEncryption(EncryptionSettings{Key: testKey(256)})
		require.NoError(t, err)
		b, err := NewEncryption(EncryptionSettings{Key: bytes.Repeat([]byte{7}, 32)})
		require.NoError(t, err)

		sealed, err := a.Encode(nil, []byte("secret"))
		require.NoError(t, err)
		_, err = b.Decode(nil, sealed)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestCompression(t *testing.T) {
	c := NewCompression()

	t.Run("compressible value", func(t *testing.T) {
		value := bytes.Repeat([]byte(`{"a":"aaaaaaaa"},`), 200)
		enc, err := c.Encode(nil, value)
		require.NoError(t, err)
		assert.Equal(t, blockLZ4, enc[0])
		assert.Less(t, len(enc), len(value))

		dec, err := c.Decode(nil, enc)
		require.NoError(t, err)
		assert.Equal(t, value, dec)
	})

	t.Run("incompressible value is stored raw", func(t *testing.T) {
		value := []byte{1, 2, 3}
		enc, err := c.Encode(nil, value)
		require.NoError(t, err)
		assert.Equal(t, blockRaw, enc[0])

		dec, err := c.Decode(nil, enc)
		require.NoError(t, err)
		assert.Equal(t, value, dec)
	})

	t.Run("corrupt values", func(t *testing.T) {
		for _, v := range [][]byte{nil, {blockLZ4}, {9, 3, 1, 2, 3}, {blockRaw, 10, 1}, {blockLZ4, 50, 0xff, 0xff}} {
			_, err := c.Decode(nil, v)
			assert.ErrorIs(t, err, ErrCorrupt, "value %v", v)
		}
	})
}

func TestChainOrder(t *testing.T) {
	enc, err := NewEncryption(EncryptionSettings{Key: testKey(256)})
	require.NoError(t, err)
	chain := NewChain(enc, NewCompression())
	assert.Equal(t, "aes-gcm+lz4", chain.Name())
	assert.Equal(t, 2, chain.Len())

	value := bytes.Repeat([]byte("raven "), 100)
	stored, err := chain.Encode([]byte("doc"), value)
	require.NoError(t, err)

	// the outermost layer is encryption: decrypting alone must yield a
	// compressed block, not the plain value
	inner, err := enc.Decode([]byte("doc"), stored)
	require.NoError(t, err)
	assert.Equal(t, blockLZ4, inner[0])

	back, err := chain.Decode([]byte("doc"), stored)
	require.NoError(t, err)
	assert.Equal(t, value, back)
}

func TestIdentityChain(t *testing.T) {
	var nilChain *Chain
	for _, c := range []*Chain{NewChain(), NewChain(nil, nil), nilChain} {
		out, err := c.Decode(nil, []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), out)
		assert.Equal(t, "identity", c.Name())
	}
}

func TestFromSettings(t *testing.T) {
	chain, enc, err := FromSettings(nil, false)
	require.NoError(t, err)
	assert.Nil(t, enc)
	assert.Equal(t, 0, chain.Len())

	chain, enc, err = FromSettings(&EncryptionSettings{Key: testKey(256)}, true)
	require.NoError(t, err)
	assert.NotNil(t, enc)
	assert.Equal(t, "aes-gcm+lz4", chain.Name())

	_, _, err = FromSettings(&EncryptionSettings{Key: testKey(8)}, true)
	assert.Error(t, err)
}

func TestDecodeKey(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0x01}
	k, err := DecodeKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, k)

	k, err = DecodeKey(base64.URLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, k)

	_, err = DecodeKey("***")
	assert.Error(t, err)
}
