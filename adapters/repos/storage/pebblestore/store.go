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

// Package pebblestore is the LSM storage engine, backed by pebble. The
// pebble files live directly in the data directory next to a small marker
// file (Data.lsm) that identifies the engine. Keys are prefixed by kind:
//
//	d\x00<etag>        encoded document
//	k\x00<lower(key)>  etag of the document with that key
//	i\x00<name>        8 byte big-endian identity counter
package pebblestore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"syscall"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

// Marker is the file that identifies this engine.
const Marker = "Data.lsm"

const engineName = "pebble"

var (
	prefixDocument = []byte("d\x00")
	prefixKey      = []byte("k\x00")
	prefixIdentity = []byte("i\x00")
)

func init() {
	storage.Register(storage.Engine{
		Name:     engineName,
		Marker:   Marker,
		Priority: 1,
		Open:     Open,
	})
}

type store struct {
	path  string
	db    *pebble.DB
	codec *codec.Chain
	log   logrus.FieldLogger
}

// Open opens the pebble files in dir read-only.
func Open(dir string, opts storage.Options) (storage.Storage, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("engine", engineName)

	db, err := pebble.Open(dir, &pebble.Options{
		ReadOnly:         true,
		ErrorIfNotExists: true,
		Logger:           pebbleLogger{logger},
	})
	if err != nil {
		return nil, classifyOpenErr(dir, err)
	}

	return &store{path: dir, db: db, codec: opts.Codec, log: logger}, nil
}

func classifyOpenErr(dir string, err error) error {
	switch {
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EWOULDBLOCK):
		return fmt.Errorf("open %q: %w: %v", dir, storage.ErrLocked, err)
	case errors.Is(err, pebble.ErrCorruption):
		return fmt.Errorf("open %q: %w: %v", dir, storage.ErrLockedOrCorrupt, err)
	default:
		return fmt.Errorf("open %q: %w", dir, err)
	}
}

func (s *store) Path() string   { return s.path }
func (s *store) Engine() string { return engineName }

func (s *store) Close() error {
	s.log.WithField("action", "storage_close").WithField("path", s.path).Debug("closing storage")
	return s.db.Close()
}

// Batch runs fn against a snapshot, which gives every call inside fn the
// same view of the data.
func (s *store) Batch(ctx context.Context, fn func(storage.Accessor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.db.NewSnapshot()
	defer snap.Close()
	return fn(&accessor{snap: snap, codec: s.codec})
}

type accessor struct {
	snap  *pebble.Snapshot
	codec *codec.Chain
}

func (a *accessor) iter(prefix []byte) (*pebble.Iterator, error) {
	return a.snap.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
}

func (a *accessor) count(prefix []byte) (int64, error) {
	it, err := a.iter(prefix)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var n int64
	for valid := it.First(); valid; valid = it.Next() {
		n++
	}
	return n, it.Error()
}

func (a *accessor) DocumentCount() (int64, error) {
	return a.count(prefixDocument)
}

func (a *accessor) DocumentsByPosition(start, take int) ([]*documents.Document, error) {
	if start < 0 || take <= 0 {
		return nil, nil
	}
	it, err := a.iter(prefixDocument)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	valid := it.First()
	for skipped := 0; valid && skipped < start; skipped++ {
		valid = it.Next()
	}
	return a.collect(context.Background(), it, valid, take)
}

func (a *accessor) DocumentsAfter(ctx context.Context, after etag.Etag, take int) ([]*documents.Document, error) {
	if take <= 0 {
		return nil, nil
	}
	it, err := a.iter(prefixDocument)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	// the immediate successor of after is the smallest key strictly
	// greater than it
	valid := it.SeekGE(append(documentKey(after), 0))
	return a.collect(ctx, it, valid, take)
}

func (a *accessor) collect(ctx context.Context, it *pebble.Iterator, valid bool, take int) ([]*documents.Document, error) {
	docs := make([]*documents.Document, 0, take)
	for ; valid && len(docs) < take; valid = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := it.Key()[len(prefixDocument):]
		doc, err := storage.DecodeDocument(a.codec, key, it.Value())
		if err != nil {
			// the documents read so far stay usable
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, it.Error()
}

func (a *accessor) Identities(start, take int) ([]documents.Identity, int64, error) {
	total, err := a.count(prefixIdentity)
	if err != nil {
		return nil, 0, err
	}
	if start < 0 || take <= 0 {
		return nil, total, nil
	}

	it, err := a.iter(prefixIdentity)
	if err != nil {
		return nil, total, err
	}
	defer it.Close()

	valid := it.First()
	for skipped := 0; valid && skipped < start; skipped++ {
		valid = it.Next()
	}
	out := make([]documents.Identity, 0, take)
	for ; valid && len(out) < take; valid = it.Next() {
		name := string(it.Key()[len(prefixIdentity):])
		v := it.Value()
		if len(v) != 8 {
			return nil, total, fmt.Errorf("identity %q: %w: value has %d bytes", name, codec.ErrCorrupt, len(v))
		}
		out = append(out, documents.Identity{Key: name, Value: int64(binary.BigEndian.Uint64(v))})
	}
	return out, total, it.Error()
}

func documentKey(e etag.Etag) []byte {
	return append(bytes.Clone(prefixDocument), e.Bytes()...)
}

func keyIndexKey(key string) []byte {
	return append(bytes.Clone(prefixKey), documents.NormalizeKey(key)...)
}

func identityKey(name string) []byte {
	return append(bytes.Clone(prefixIdentity), name...)
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix. Prefixes used here never end in 0xff.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	end[len(end)-1]++
	return end
}

// pebbleLogger routes pebble's own logging into logrus.
type pebbleLogger struct {
	log logrus.FieldLogger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.log.Fatalf(format, args...)
}
