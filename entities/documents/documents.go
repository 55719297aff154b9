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

// Package documents holds the records the exporter reads from storage and
// writes into the archive.
package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/buger/jsonparser"

	"github.com/weaviate/storage-exporter/entities/etag"
)

// Metadata keys added to every exported document.
const (
	MetadataKey          = "@metadata"
	MetadataID           = "@id"
	MetadataEtag         = "@etag"
	MetadataLastModified = "Last-Modified"
)

// Document is one stored document. Keys are unique case-insensitively.
type Document struct {
	Key          string
	Etag         etag.Etag
	LastModified time.Time
	Metadata     json.RawMessage
	Data         json.RawMessage
}

// NormalizeKey returns the form used to enforce case-insensitive key
// uniqueness.
func NormalizeKey(key string) string {
	return strings.ToLower(key)
}

// ToJSON renders the document the way it appears in the Docs section: the
// data object with an "@metadata" property holding the stored metadata plus
// the document id, etag and last modification time.
func (d *Document) ToJSON() ([]byte, error) {
	data, err := jsonObject(d.Data, "data")
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", d.Key, err)
	}
	meta, err := jsonObject(d.Metadata, "metadata")
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", d.Key, err)
	}

	if !d.LastModified.IsZero() {
		meta, err = setKey(meta, quote(d.LastModified.UTC().Format(time.RFC3339Nano)), MetadataLastModified)
		if err != nil {
			return nil, fmt.Errorf("document %q: set last modified: %w", d.Key, err)
		}
	}
	if meta, err = setKey(meta, quote(d.Etag.String()), MetadataEtag); err != nil {
		return nil, fmt.Errorf("document %q: set etag: %w", d.Key, err)
	}
	if meta, err = setKey(meta, quote(d.Key), MetadataID); err != nil {
		return nil, fmt.Errorf("document %q: set id: %w", d.Key, err)
	}

	out, err := setKey(data, meta, MetadataKey)
	if err != nil {
		return nil, fmt.Errorf("document %q: set metadata: %w", d.Key, err)
	}
	return out, nil
}

// Identity is a named auto-increment counter.
type Identity struct {
	Key   string `json:"Key"`
	Value int64  `json:"Value"`
}

// Definition is an index or transformer definition read from disk. The
// definition body is kept verbatim.
type Definition struct {
	Name       string          `json:"name"`
	Definition json.RawMessage `json:"definition"`
}

// jsonObject validates raw as a JSON object, treating an empty value as {}.
func jsonObject(raw json.RawMessage, what string) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []byte("{}"), nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%s is not a valid json object", what)
	}
	return trimmed, nil
}

// setKey sets a top level key. jsonparser.Set appends into the slice it is
// given, so the capacity is capped to force a copy.
func setKey(data, value []byte, key string) ([]byte, error) {
	return jsonparser.Set(data[:len(data):len(data)], value, key)
}

func quote(s string) []byte {
	// marshalling a string cannot fail
	b, _ := json.Marshal(s)
	return b
}
