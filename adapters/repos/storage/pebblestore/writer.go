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

package pebblestore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

type marker struct {
	Engine  string `json:"engine"`
	Version int    `json:"version"`
}

// Writer creates and fills a pebble storage.
type Writer struct {
	db    *pebble.DB
	codec *codec.Chain
	last  etag.Etag
}

// Create opens (or creates) the storage in dir for writing and writes the
// marker file. Like the bolt engine, each writer session starts a new
// restart generation of etags.
func Create(dir string, chain *codec.Chain) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", dir, err)
	}

	restarts, err := lastRestart(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	m, _ := json.Marshal(marker{Engine: engineName, Version: 1})
	if err := os.WriteFile(filepath.Join(dir, Marker), m, 0o600); err != nil {
		db.Close()
		return nil, fmt.Errorf("write marker: %w", err)
	}

	return &Writer{db: db, codec: chain, last: etag.New(restarts+1, 0)}, nil
}

func lastRestart(db *pebble.DB) (uint64, error) {
	it, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefixDocument,
		UpperBound: prefixEnd(prefixDocument),
	})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	if !it.Last() {
		return 0, it.Error()
	}
	last, err := etag.FromBytes(it.Key()[len(prefixDocument):])
	if err != nil {
		return 0, err
	}
	return last.Restarts, nil
}

// PutDocument stores doc under a freshly assigned etag, replacing any
// document with the same key regardless of case.
func (w *Writer) PutDocument(doc *documents.Document) (etag.Etag, error) {
	next := w.last.IncrementBy(1)
	doc.Etag = next
	if doc.LastModified.IsZero() {
		doc.LastModified = time.Now().UTC()
	}

	value, err := storage.EncodeDocument(w.codec, doc)
	if err != nil {
		return etag.Empty, err
	}
	if err := w.putDocument(next, doc.Key, value); err != nil {
		return etag.Empty, fmt.Errorf("put document %q: %w", doc.Key, err)
	}
	w.last = next
	return next, nil
}

// PutRaw stores value under e and key without encoding, to simulate
// damaged records.
func (w *Writer) PutRaw(e etag.Etag, key string, value []byte) error {
	return w.putDocument(e, key, value)
}

func (w *Writer) putDocument(e etag.Etag, key string, value []byte) error {
	b := w.db.NewBatch()
	defer b.Close()

	old, closer, err := w.db.Get(keyIndexKey(key))
	switch {
	case err == nil:
		oldKey := append(append([]byte{}, prefixDocument...), old...)
		closer.Close()
		if err := b.Delete(oldKey, nil); err != nil {
			return err
		}
	case !errors.Is(err, pebble.ErrNotFound):
		return err
	}

	if err := b.Set(documentKey(e), value, nil); err != nil {
		return err
	}
	if err := b.Set(keyIndexKey(key), e.Bytes(), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// DeleteDocument removes a document by key. Missing keys are ignored.
func (w *Writer) DeleteDocument(key string) error {
	old, closer, err := w.db.Get(keyIndexKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	oldKey := append(append([]byte{}, prefixDocument...), old...)
	closer.Close()

	b := w.db.NewBatch()
	defer b.Close()
	if err := b.Delete(oldKey, nil); err != nil {
		return err
	}
	if err := b.Delete(keyIndexKey(key), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// PutIdentity sets an identity counter.
func (w *Writer) PutIdentity(name string, value int64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	return w.db.Set(identityKey(name), buf, pebble.Sync)
}

func (w *Writer) Close() error {
	return w.db.Close()
}
