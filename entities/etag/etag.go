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

// Package etag implements the change token that the storage engines assign
// to every document write. Tokens are totally ordered and can be used as a
// resumable scan cursor.
package etag

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"
)

// Size is the length of the binary form of an Etag.
const Size = 16

// Etag is a 128 bit change token: the first half counts storage restarts,
// the second half counts changes within a restart. The binary form is
// big-endian so that byte order equals numeric order.
type Etag struct {
	Restarts uint64
	Changes  uint64
}

// Empty is the minimum token. A scan that starts at Empty reads every
// document.
var Empty = Etag{}

// New builds a token from its two halves.
func New(restarts, changes uint64) Etag {
	return Etag{Restarts: restarts, Changes: changes}
}

// Parse reads the canonical text form
// ("xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"). Dashes are optional, an empty
// string yields Empty.
func Parse(s string) (Etag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Empty, nil
	}
	raw := strings.ReplaceAll(s, "-", "")
	if len(raw) != 2*Size {
		return Empty, fmt.Errorf("parse etag %q: want %d hex digits, got %d", s, 2*Size, len(raw))
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Empty, fmt.Errorf("parse etag %q: %w", s, err)
	}
	return FromBytes(b)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Etag {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// FromBytes decodes the 16 byte binary form.
func FromBytes(b []byte) (Etag, error) {
	if len(b) != Size {
		return Empty, fmt.Errorf("etag must be %d bytes, got %d", Size, len(b))
	}
	return Etag{
		Restarts: binary.BigEndian.Uint64(b[:8]),
		Changes:  binary.BigEndian.Uint64(b[8:]),
	}, nil
}

// Bytes returns the binary form used as storage key.
func (e Etag) Bytes() []byte {
	b := make([]byte, Size)
	binary.BigEndian.PutUint64(b[:8], e.Restarts)
	binary.BigEndian.PutUint64(b[8:], e.Changes)
	return b
}

func (e Etag) String() string {
	h := hex.EncodeToString(e.Bytes())
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}

// IsEmpty reports whether e is the Empty sentinel.
func (e Etag) IsEmpty() bool {
	return e == Empty
}

// Compare returns -1, 0 or 1.
func (e Etag) Compare(other Etag) int {
	return bytes.Compare(e.Bytes(), other.Bytes())
}

// IncrementBy adds n, carrying into Restarts. Overflow saturates at the
// maximum token.
func (e Etag) IncrementBy(n uint64) Etag {
	changes, carry := bits.Add64(e.Changes, n, 0)
	restarts, overflow := bits.Add64(e.Restarts, 0, carry)
	if overflow != 0 {
		return Etag{Restarts: ^uint64(0), Changes: ^uint64(0)}
	}
	return Etag{Restarts: restarts, Changes: changes}
}

// DecrementBy subtracts n, borrowing from Restarts. Going below zero clamps
// to Empty.
func (e Etag) DecrementBy(n uint64) Etag {
	changes, borrow := bits.Sub64(e.Changes, n, 0)
	restarts, underflow := bits.Sub64(e.Restarts, 0, borrow)
	if underflow != 0 {
		return Empty
	}
	return Etag{Restarts: restarts, Changes: changes}
}

// MarshalText implements encoding.TextMarshaler so tokens show up in their
// canonical form in JSON and YAML.
func (e Etag) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Etag) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
