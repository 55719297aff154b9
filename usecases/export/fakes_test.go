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

package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

var errInjected = errors.New("injected read fault")

// fakeStorage keeps documents sorted by etag in memory. Document fetches can
// be made to fail by call number.
type fakeStorage struct {
	sync.Mutex
	path       string
	docs       []*documents.Document
	identities []documents.Identity
	// failFetch holds the zero-based numbers of document fetches that fail
	failFetch map[int]bool
	fetches   int
	// totalBias is added to the reported document count
	totalBias int64
}

func newFakeStorage(path string, n int) *fakeStorage {
	s := &fakeStorage{path: path, failFetch: map[int]bool{}}
	for i := 0; i < n; i++ {
		s.docs = append(s.docs, &documents.Document{
			Key:      fmt.Sprintf("docs/%d", i),
			Etag:     etag.New(1, uint64(i+1)),
			Metadata: json.RawMessage(`{"Raven-Entity-Name":"Docs"}`),
			Data:     json.RawMessage(fmt.Sprintf(`{"N":%d}`, i)),
		})
	}
	return s
}

// spreadEtags moves every document into its own restart generation, so no
// two etags are adjacent.
func (s *fakeStorage) spreadEtags() {
	for i, doc := range s.docs {
		doc.Etag = etag.New(uint64(i+1), 7)
	}
}

func (s *fakeStorage) Batch(ctx context.Context, fn func(storage.Accessor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	return fn(&fakeAccessor{s: s})
}

func (s *fakeStorage) Path() string   { return s.path }
func (s *fakeStorage) Engine() string { return "fake" }
func (s *fakeStorage) Close() error   { return nil }

type fakeAccessor struct {
	s *fakeStorage
}

func (a *fakeAccessor) DocumentCount() (int64, error) {
	return int64(len(a.s.docs)) + a.s.totalBias, nil
}

func (a *fakeAccessor) fetch() error {
	n := a.s.fetches
	a.s.fetches++
	if a.s.failFetch[n] {
		return errInjected
	}
	return nil
}

func (a *fakeAccessor) DocumentsByPosition(start, take int) ([]*documents.Document, error) {
	if err := a.fetch(); err != nil {
		return nil, err
	}
	if start >= len(a.s.docs) {
		return nil, nil
	}
	end := start + take
	if end > len(a.s.docs) {
		end = len(a.s.docs)
	}
	return a.s.docs[start:end], nil
}

func (a *fakeAccessor) DocumentsAfter(ctx context.Context, after etag.Etag, take int) ([]*documents.Document, error) {
	if err := a.fetch(); err != nil {
		return nil, err
	}
	i := sort.Search(len(a.s.docs), func(i int) bool {
		return a.s.docs[i].Etag.Compare(after) > 0
	})
	var out []*documents.Document
	for ; i < len(a.s.docs) && len(out) < take; i++ {
		out = append(out, a.s.docs[i])
	}
	return out, nil
}

func (a *fakeAccessor) Identities(start, take int) ([]documents.Identity, int64, error) {
	ids := append([]documents.Identity(nil), a.s.identities...)
	sort.Slice(ids, func(i, j int) bool { return strings.Compare(ids[i].Key, ids[j].Key) < 0 })
	total := int64(len(ids))
	if start >= len(ids) {
		return nil, total, nil
	}
	end := start + take
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end], total, nil
}

type corruption struct {
	stage    Stage
	ordinal  int64
	lastGood etag.Etag
}

// recordingReporter keeps every event.
type recordingReporter struct {
	progress    []int64
	completed   map[Stage]int64
	corruptions []corruption
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{completed: map[Stage]int64{}}
}

func (r *recordingReporter) Progress(stage Stage, done, total int64) {
	if stage == StageDocuments {
		r.progress = append(r.progress, done)
	}
}

func (r *recordingReporter) Completed(stage Stage, done, total int64) {
	r.completed[stage] = done
}

func (r *recordingReporter) Corruption(stage Stage, ordinal int64, lastGood etag.Etag, err error) {
	r.corruptions = append(r.corruptions, corruption{stage: stage, ordinal: ordinal, lastGood: lastGood})
}
