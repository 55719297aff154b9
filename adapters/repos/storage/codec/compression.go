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
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

const (
	blockRaw byte = 0
	blockLZ4 byte = 1
)

// maxDecodedSize bounds the length prefix so a corrupt header cannot make
// us allocate an arbitrary amount of memory.
const maxDecodedSize = 256 << 20

// Compression stores values as LZ4 blocks:
//
//	| kind (1B) | uvarint decoded length | payload |
//
// Values LZ4 cannot shrink are kept raw.
type Compression struct{}

func NewCompression() *Compression {
	return &Compression{}
}

func (c *Compression) Name() string {
	return "lz4"
}

func (c *Compression) Encode(_, value []byte) ([]byte, error) {
	header := make([]byte, 1+binary.MaxVarintLen64)
	n := binary.PutUvarint(header[1:], uint64(len(value)))
	header = header[:1+n]

	dst := make([]byte, lz4.CompressBlockBound(len(value)))
	written, err := lz4.CompressBlock(value, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(value) {
		header[0] = blockRaw
		return append(header, value...), nil
	}
	header[0] = blockLZ4
	return append(header, dst[:written]...), nil
}

func (c *Compression) Decode(_, value []byte) ([]byte, error) {
	if len(value) < 2 {
		return nil, fmt.Errorf("%w: compressed value too short", ErrCorrupt)
	}
	size, n := binary.Uvarint(value[1:])
	if n <= 0 || size > maxDecodedSize {
		return nil, fmt.Errorf("%w: bad length prefix", ErrCorrupt)
	}
	payload := value[1+n:]

	switch value[0] {
	case blockRaw:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("%w: raw block has %d bytes, header says %d", ErrCorrupt, len(payload), size)
		}
		return payload, nil
	case blockLZ4:
		out := make([]byte, size)
		read, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint64(read) != size {
			return nil, fmt.Errorf("%w: decoded %d bytes, header says %d", ErrCorrupt, read, size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown block kind %d", ErrCorrupt, value[0])
	}
}
