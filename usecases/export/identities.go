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
	"strings"
	"time"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/entities/documents"
)

const (
	identityEtag             = "Raven/Etag"
	identityIndexID          = "IndexId"
	identitySubscriptionsPfx = "Raven/Subscriptions/"
)

// IncludeIdentity reports whether an identity counter belongs in the
// archive. The storage's own etag and index id counters and subscription
// counters are internal and left out.
func IncludeIdentity(name string) bool {
	switch {
	case strings.EqualFold(name, identityEtag):
		return false
	case strings.EqualFold(name, identityIndexID):
		return false
	case strings.HasPrefix(name, identitySubscriptionsPfx):
		return false
	default:
		return true
	}
}

// exportIdentities writes the Identities section page by page. The table
// reports its size with every page; the pass ends once that many entries
// were scanned or a page comes back empty.
func (e *Exporter) exportIdentities(ctx context.Context, archive *ArchiveWriter) (int64, error) {
	if err := archive.BeginSection(SectionIdentities); err != nil {
		return 0, err
	}

	var scanned, written, total int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		var page []documents.Identity
		started := time.Now()
		err := e.store.Batch(ctx, func(a storage.Accessor) error {
			var err error
			page, total, err = a.Identities(int(scanned), e.config.BatchSize)
			return err
		})
		e.metrics.ObserveBatch(string(StageIdentities), time.Since(started).Seconds())
		if err != nil {
			return written, err
		}
		if len(page) == 0 {
			break
		}

		scanned += int64(len(page))
		for _, id := range page {
			if !IncludeIdentity(id.Key) {
				continue
			}
			if err := archive.WriteValue(id); err != nil {
				return written, err
			}
			written++
			e.metrics.IdentitiesWritten(1)
		}
		e.reporter.Progress(StageIdentities, scanned, total)

		if scanned >= total {
			break
		}
	}

	if err := archive.EndSection(); err != nil {
		return written, err
	}
	e.reporter.Completed(StageIdentities, written, total)
	return written, nil
}
