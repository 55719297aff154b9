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

// Package boltstore is the single-file storage engine. All data lives in
// one bbolt file named Data.bolt:
//
//   - documents: etag (16 bytes) -> encoded document
//   - keys: lower-cased document key -> etag
//   - identities: identity name -> 8 byte big-endian counter
package boltstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

// Marker is the data file name that identifies this engine.
const Marker = "Data.bolt"

const engineName = "bolt"

var (
	bucketDocuments  = []byte("documents")
	bucketKeys       = []byte("keys")
	bucketIdentities = []byte("identities")
)

// lockTimeout is how long a single open attempt waits for the file lock.
// Retrying is left to storage.Open.
const lockTimeout = 50 * time.Millisecond

func init() {
	storage.Register(storage.Engine{
		Name:     engineName,
		Marker:   Marker,
		Priority: 0,
		Open:     Open,
	})
}

type store struct {
	path  string
	db    *bolt.DB
	codec *codec.Chain
	log   logrus.FieldLogger
}

// Open opens the Data.bolt file in dir read-only.
func Open(dir string, opts storage.Options) (storage.Storage, error) {
	file := filepath.Join(dir, Marker)
	db, err := bolt.Open(file, 0o600, &bolt.Options{ReadOnly: true, Timeout: lockTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("open %q: %w", file, storage.ErrLocked)
		}
		if errors.Is(err, bolt.ErrInvalid) || errors.Is(err, bolt.ErrChecksum) || errors.Is(err, bolt.ErrVersionMismatch) {
			return nil, fmt.Errorf("open %q: %w: %v", file, storage.ErrLockedOrCorrupt, err)
		}
		return nil, fmt.Errorf("open %q: %w", file, err)
	}

	err = db.View(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketDocuments, bucketKeys, bucketIdentities} {
			if tx.Bucket(name) == nil {
				return fmt.Errorf("%w: missing bucket %q", storage.ErrLockedOrCorrupt, name)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &store{
		path:  dir,
		db:    db,
		codec: opts.Codec,
		log:   logger.WithField("engine", engineName),
	}, nil
}

func (s *store) Path() string   { return s.path }
func (s *store) Engine() string { return engineName }

func (s *store) Close() error {
	s.log.WithField("action", "storage_close").WithField("path", s.path).Debug("closing storage")
	return s.db.Close()
}

func (s *store) Batch(ctx context.Context, fn func(storage.Accessor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&accessor{tx: tx, codec: s.codec})
	})
}

type accessor struct {
	tx    *bolt.Tx
	codec *codec.Chain
}

func (a *accessor) DocumentCount() (int64, error) {
	return int64(a.tx.Bucket(bucketDocuments).Stats().KeyN), nil
}

func (a *accessor) DocumentsByPosition(start, take int) ([]*documents.Document, error) {
	if start < 0 || take <= 0 {
		return nil, nil
	}
	c := a.tx.Bucket(bucketDocuments).Cursor()
	k, v := c.First()
	for skipped := 0; k != nil && skipped < start; skipped++ {
		k, v = c.Next()
	}
	return a.collect(context.Background(), c, k, v, take)
}

func (a *accessor) DocumentsAfter(ctx context.Context, after etag.Etag, take int) ([]*documents.Document, error) {
	if take <= 0 {
		return nil, nil
	}
	c := a.tx.Bucket(bucketDocuments).Cursor()
	k, v := c.Seek(after.Bytes())
	if k != nil && etagEquals(k, after) {
		k, v = c.Next()
	}
	return a.collect(ctx, c, k, v, take)
}

func (a *accessor) collect(ctx context.Context, c *bolt.Cursor, k, v []byte, take int) ([]*documents.Document, error) {
	docs := make([]*documents.Document, 0, take)
	for ; k != nil && len(docs) < take; k, v = c.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := storage.DecodeDocument(a.codec, k, v)
		if err != nil {
			// the documents read so far stay usable
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (a *accessor) Identities(start, take int) ([]documents.Identity, int64, error) {
	b := a.tx.Bucket(bucketIdentities)
	total := int64(b.Stats().KeyN)
	if start < 0 || take <= 0 {
		return nil, total, nil
	}

	out := make([]documents.Identity, 0, take)
	c := b.Cursor()
	k, v := c.First()
	for skipped := 0; k != nil && skipped < start; skipped++ {
		k, v = c.Next()
	}
	for ; k != nil && len(out) < take; k, v = c.Next() {
		if len(v) != 8 {
			return nil, total, fmt.Errorf("identity %q: %w: value has %d bytes", k, codec.ErrCorrupt, len(v))
		}
		out = append(out, documents.Identity{
			Key:   string(k),
			Value: int64(binary.BigEndian.Uint64(v)),
		})
	}
	return out, total, nil
}

func etagEquals(key []byte, e etag.Etag) bool {
	other, err := etag.FromBytes(key)
	return err == nil && other == e
}
