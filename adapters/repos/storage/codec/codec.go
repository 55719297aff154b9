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

// Package codec contains the value transforms a storage engine may apply to
// stored documents: encryption and compression. Writers layer them
// compression first, then encryption, so encryption is always the outermost
// layer. Readers undo them in the opposite order.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Codec transforms a single stored value. key is the storage key of the
// value and may be used as associated data.
type Codec interface {
	Name() string
	Encode(key, value []byte) ([]byte, error)
	Decode(key, value []byte) ([]byte, error)
}

// ErrCorrupt is returned when a value cannot be decoded.
var ErrCorrupt = errors.New("corrupt value")

// Chain composes codecs. The first layer is the outermost one.
type Chain struct {
	layers []Codec
}

// NewChain builds a chain from outermost to innermost layer. nil layers are
// skipped, so NewChain(nil, nil) is the identity transform.
func NewChain(layers ...Codec) *Chain {
	c := &Chain{}
	for _, l := range layers {
		if l != nil {
			c.layers = append(c.layers, l)
		}
	}
	return c
}

func (c *Chain) Name() string {
	if c == nil || len(c.layers) == 0 {
		return "identity"
	}
	name := ""
	for i, l := range c.layers {
		if i > 0 {
			name += "+"
		}
		name += l.Name()
	}
	return name
}

// Len returns the number of layers.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.layers)
}

// Encode applies the innermost layer first.
func (c *Chain) Encode(key, value []byte) ([]byte, error) {
	if c == nil {
		return value, nil
	}
	var err error
	for i := len(c.layers) - 1; i >= 0; i-- {
		if value, err = c.layers[i].Encode(key, value); err != nil {
			return nil, fmt.Errorf("%s encode: %w", c.layers[i].Name(), err)
		}
	}
	return value, nil
}

// Decode applies the outermost layer first.
func (c *Chain) Decode(key, value []byte) ([]byte, error) {
	if c == nil {
		return value, nil
	}
	var err error
	for _, l := range c.layers {
		if value, err = l.Decode(key, value); err != nil {
			return nil, fmt.Errorf("%s decode: %w", l.Name(), err)
		}
	}
	return value, nil
}

// FromSettings builds the chain an engine reads with, and returns the
// encryption layer on its own for callers that decrypt non-document data.
// enc may be nil.
func FromSettings(enc *EncryptionSettings, compression bool) (*Chain, Codec, error) {
	var encryption, compressor Codec
	if enc != nil {
		e, err := NewEncryption(*enc)
		if err != nil {
			return nil, nil, err
		}
		encryption = e
	}
	if compression {
		compressor = NewCompression()
	}
	return NewChain(encryption, compressor), encryption, nil
}

// DecodeKey reads base64 key material, accepting both the standard and the
// URL alphabet.
func DecodeKey(s string) ([]byte, error) {
	if key, err := base64.StdEncoding.DecodeString(s); err == nil {
		return key, nil
	}
	key, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	return key, nil
}
