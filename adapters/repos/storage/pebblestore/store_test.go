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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

func seed(t *testing.T, dir string, chain *codec.Chain, n int) []etag.Etag {
	t.Helper()
	w, err := Create(dir, chain)
	require.NoError(t, err)
	defer w.Close()

	etags := make([]etag.Etag, 0, n)
	for i := 0; i < n; i++ {
		e, err := w.PutDocument(&documents.Document{
			Key:  fmt.Sprintf("orders/%d", i),
			Data: json.RawMessage(fmt.Sprintf(`{"Total":%d}`, i*10)),
		})
		require.NoError(t, err)
		etags = append(etags, e)
	}
	require.NoError(t, w.PutIdentity("orders", int64(n)))
	require.NoError(t, w.PutIdentity("IndexId", 4))
	require.NoError(t, w.PutIdentity("Raven/Subscriptions/1", 1))
	return etags
}

func openStore(t *testing.T, dir string, chain *codec.Chain) storage.Storage {
	t.Helper()
	logger, _ := test.NewNullLogger()
	st, err := Open(dir, storage.Options{Codec: chain, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPebbleStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	chain := codec.NewChain(nil, codec.NewCompression())
	etags := seed(t, dir, chain, 12)
	st := openStore(t, dir, chain)

	assert.Equal(t, "pebble", st.Engine())

	err := st.Batch(ctx, func(a storage.Accessor) error {
		n, err := a.DocumentCount()
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)

		docs, err := a.DocumentsByPosition(10, 5)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "orders/10", docs[0].Key)
		assert.JSONEq(t, `{"Total":110}`, string(docs[1].Data))

		docs, err = a.DocumentsAfter(ctx, etags[2], 3)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, etags[3], docs[0].Etag)
		assert.Equal(t, etags[5], docs[2].Etag)

		docs, err = a.DocumentsAfter(ctx, etags[11], 3)
		require.NoError(t, err)
		assert.Empty(t, docs)

		ids, total, err := a.Identities(0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []documents.Identity{
			{Key: "IndexId", Value: 4},
			{Key: "Raven/Subscriptions/1", Value: 1},
			{Key: "orders", Value: 12},
		}, ids)
		return nil
	})
	require.NoError(t, err)
}

func TestPebbleWriterSessions(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(dir, nil)
	require.NoError(t, err)
	first, err := w.PutDocument(&documents.Document{Key: "Items/1", Data: json.RawMessage(`{"v":1}`)})
	require.NoError(t, err)
	_, err = w.PutDocument(&documents.Document{Key: "items/2", Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, w.DeleteDocument("ITEMS/2"))
	require.NoError(t, w.Close())

	w, err = Create(dir, nil)
	require.NoError(t, err)
	second, err := w.PutDocument(&documents.Document{Key: "ITEMS/1", Data: json.RawMessage(`{"v":2}`)})
	require.NoError(t, err)
	assert.Equal(t, first.Restarts+1, second.Restarts)
	require.NoError(t, w.Close())

	st := openStore(t, dir, nil)
	err = st.Batch(context.Background(), func(a storage.Accessor) error {
		docs, err := a.DocumentsByPosition(0, 10)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, second, docs[0].Etag)
		assert.JSONEq(t, `{"v":2}`, string(docs[0].Data))
		return nil
	})
	require.NoError(t, err)
}

func TestPebbleDamagedRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	etags := seed(t, dir, nil, 3)

	w, err := Create(dir, nil)
	require.NoError(t, err)
	require.NoError(t, w.PutRaw(etags[1], "orders/1", []byte{0xc1}))
	require.NoError(t, w.Close())

	st := openStore(t, dir, nil)
	err = st.Batch(ctx, func(a storage.Accessor) error {
		docs, err := a.DocumentsAfter(ctx, etag.Empty, 3)
		require.Len(t, docs, 1)
		assert.Equal(t, etags[0], docs[0].Etag)
		var recErr *storage.RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, etags[1], recErr.Etag)

		docs, err = a.DocumentsAfter(ctx, etags[1], 3)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, etags[2], docs[0].Etag)

		_, err = a.DocumentsByPosition(0, 3)
		return err
	})
	assert.ErrorIs(t, err, codec.ErrCorrupt)
}

func TestClassifyOpenErr(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    error
		notWant []error
	}{
		{
			name: "lock held by another process",
			err:  fmt.Errorf("lock: %w", &os.PathError{Op: "fcntl", Path: "LOCK", Err: syscall.EAGAIN}),
			want: storage.ErrLocked,
		},
		{
			name:    "corrupt manifest",
			err:     fmt.Errorf("reading manifest: %w", pebble.ErrCorruption),
			want:    storage.ErrLockedOrCorrupt,
			notWant: []error{storage.ErrLocked},
		},
		{
			name:    "message mentions a block",
			err:     errors.New("unknown block format"),
			notWant: []error{storage.ErrLocked, storage.ErrLockedOrCorrupt},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyOpenErr("/data", tt.err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			for _, other := range tt.notWant {
				assert.NotErrorIs(t, err, other)
			}
		})
	}
}

func TestPebbleOpenMissing(t *testing.T) {
	_, err := Open(t.TempDir(), storage.Options{})
	assert.Error(t, err)
}
