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

package storage

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

// storedDocument is the msgpack layout of a document value, shared by all
// engines. The etag is the storage key and is not repeated in the value.
type storedDocument struct {
	Key          string    `msgpack:"k"`
	LastModified time.Time `msgpack:"m"`
	Metadata     []byte    `msgpack:"md"`
	Data         []byte    `msgpack:"d"`
}

// EncodeDocument produces the stored value of doc, passed through chain.
func EncodeDocument(chain *codec.Chain, doc *documents.Document) ([]byte, error) {
	raw, err := msgpack.Marshal(&storedDocument{
		Key:          doc.Key,
		LastModified: doc.LastModified.UTC(),
		Metadata:     doc.Metadata,
		Data:         doc.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal document %q: %w", doc.Key, err)
	}
	return chain.Encode(doc.Etag.Bytes(), raw)
}

// RecordError reports a single stored document that cannot be read. Etag
// is empty when the key itself is damaged.
type RecordError struct {
	Etag etag.Etag
	Err  error
}

func (e *RecordError) Error() string {
	if e.Etag.IsEmpty() {
		return fmt.Sprintf("document: %v", e.Err)
	}
	return fmt.Sprintf("document %s: %v", e.Etag, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// DecodeDocument reverses EncodeDocument for the value stored under key.
// Failures are returned as *RecordError.
func DecodeDocument(chain *codec.Chain, key, value []byte) (*documents.Document, error) {
	e, err := etag.FromBytes(key)
	if err != nil {
		return nil, &RecordError{Err: fmt.Errorf("%w: document key: %v", codec.ErrCorrupt, err)}
	}
	raw, err := chain.Decode(key, value)
	if err != nil {
		return nil, &RecordError{Etag: e, Err: err}
	}
	var sd storedDocument
	if err := msgpack.Unmarshal(raw, &sd); err != nil {
		return nil, &RecordError{Etag: e, Err: fmt.Errorf("%w: %v", codec.ErrCorrupt, err)}
	}
	return &documents.Document{
		Key:          sd.Key,
		Etag:         e,
		LastModified: sd.LastModified,
		Metadata:     sd.Metadata,
		Data:         sd.Data,
	}, nil
}
