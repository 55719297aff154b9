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

// Package storage opens a database's on-disk document storage directly,
// without the server process, and exposes batch scoped read access to it.
//
// Two engines exist. The engine is chosen from the marker file found in the
// data directory; engines register themselves with Register from their
// package init, so callers import the engine packages they want to support:
//
//	import (
//		_ "github.com/weaviate/storage-exporter/adapters/repos/storage/boltstore"
//		_ "github.com/weaviate/storage-exporter/adapters/repos/storage/pebblestore"
//	)
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

var (
	// ErrNotFound means the directory does not exist or holds no
	// recognized storage.
	ErrNotFound = errors.New("storage not found")
	// ErrLockedOrCorrupt means the storage is held by another process,
	// usually a running server, or its files failed validation.
	ErrLockedOrCorrupt = errors.New("storage is locked by another process or corrupt")
	// ErrInitialization covers every other failure while opening.
	ErrInitialization = errors.New("storage initialization failed")
	// ErrLocked is returned by engines when the file lock is held. Open
	// retries it before reporting ErrLockedOrCorrupt.
	ErrLocked = errors.New("storage file lock is held")
)

// Storage is an opened storage engine. It is owned by a single caller and
// must be closed to release file locks.
type Storage interface {
	// Batch runs fn inside one read transaction. The Accessor is only valid
	// for the duration of fn.
	Batch(ctx context.Context, fn func(Accessor) error) error
	// Path is the data directory.
	Path() string
	// Engine names the engine implementation.
	Engine() string
	Close() error
}

// Accessor reads from one consistent view of the storage.
//
// When a stored document cannot be decoded, the document reads return the
// documents in front of it together with a *RecordError naming it.
type Accessor interface {
	// DocumentCount is the number of stored documents.
	DocumentCount() (int64, error)
	// DocumentsByPosition returns up to take documents in etag order,
	// skipping the first start.
	DocumentsByPosition(start, take int) ([]*documents.Document, error)
	// DocumentsAfter returns up to take documents with an etag strictly
	// greater than after, in etag order.
	DocumentsAfter(ctx context.Context, after etag.Etag, take int) ([]*documents.Document, error)
	// Identities returns up to take identities in name order, skipping the
	// first start, together with the current number of identities.
	Identities(start, take int) ([]documents.Identity, int64, error)
}

// Options configure how a storage is opened.
type Options struct {
	// Codec decodes stored document values. nil means values are stored
	// as is.
	Codec *codec.Chain
	// LockRetries is how many times opening is retried while the file lock
	// is held.
	LockRetries int
	// LockRetryInterval is the pause between retries.
	LockRetryInterval time.Duration
	Logger            logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}
