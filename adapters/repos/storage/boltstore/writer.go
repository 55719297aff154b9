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

package boltstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

// Writer creates and fills a bolt storage. It is what the server side
// uses to persist documents and is handy for building fixtures.
type Writer struct {
	db       *bolt.DB
	codec    *codec.Chain
	restarts uint64
	last     etag.Etag
}

// Create opens (or creates) the storage in dir for writing. Every writer
// session counts as a restart, so etags assigned by it sort after all
// existing ones.
func Create(dir string, chain *codec.Chain) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	db, err := bolt.Open(filepath.Join(dir, Marker), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", dir, err)
	}

	w := &Writer{db: db, codec: chain}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketDocuments, bucketKeys, bucketIdentities} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		if k, _ := tx.Bucket(bucketDocuments).Cursor().Last(); k != nil {
			last, err := etag.FromBytes(k)
			if err != nil {
				return err
			}
			w.restarts = last.Restarts + 1
		} else {
			w.restarts = 1
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	w.last = etag.New(w.restarts, 0)
	return w, nil
}

// PutDocument stores doc under a freshly assigned etag, replacing any
// document with the same key regardless of case. The assigned etag is
// written back to doc.
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

	err = w.db.Update(func(tx *bolt.Tx) error {
		return putDocument(tx, next, doc.Key, value)
	})
	if err != nil {
		return etag.Empty, fmt.Errorf("put document %q: %w", doc.Key, err)
	}
	w.last = next
	return next, nil
}

// PutRaw stores value under e and key without encoding. It exists to
// simulate damaged records.
func (w *Writer) PutRaw(e etag.Etag, key string, value []byte) error {
	return w.db.Update(func(tx *bolt.Tx) error {
		return putDocument(tx, e, key, value)
	})
}

func putDocument(tx *bolt.Tx, e etag.Etag, key string, value []byte) error {
	docs, keys := tx.Bucket(bucketDocuments), tx.Bucket(bucketKeys)
	normalized := []byte(documents.NormalizeKey(key))
	if old := keys.Get(normalized); old != nil {
		if err := docs.Delete(old); err != nil {
			return err
		}
	}
	if err := docs.Put(e.Bytes(), value); err != nil {
		return err
	}
	return keys.Put(normalized, e.Bytes())
}

// DeleteDocument removes a document by key. Missing keys are ignored.
func (w *Writer) DeleteDocument(key string) error {
	return w.db.Update(func(tx *bolt.Tx) error {
		keys := tx.Bucket(bucketKeys)
		normalized := []byte(documents.NormalizeKey(key))
		old := keys.Get(normalized)
		if old == nil {
			return nil
		}
		if err := tx.Bucket(bucketDocuments).Delete(old); err != nil {
			return err
		}
		return keys.Delete(normalized)
	})
}

// PutIdentity sets an identity counter.
func (w *Writer) PutIdentity(name string, value int64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	return w.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIdentities).Put([]byte(name), buf)
	})
}

func (w *Writer) Close() error {
	return w.db.Close()
}
