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
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/entities/documents"
	"github.com/weaviate/storage-exporter/entities/etag"
)

// batchOutcome is one read batch, serialized. When fault is set, records
// holds the documents in front of the failing one.
type batchOutcome struct {
	records [][]byte
	last    etag.Etag
	fault   *storage.RecordError
}

type documentFetch func(storage.Accessor) ([]*documents.Document, error)

// documentScan tracks one pass over the documents.
type documentScan struct {
	total    int64
	count    int64 // exported plus skipped; the positional offset
	written  int64
	skipped  int64
	lastGood etag.Etag
}

// exportDocuments writes the Docs section. Without a start etag documents
// are read by position, otherwise by etag starting at (and including) the
// start etag. A document that cannot be read or serialized is skipped on
// its own. A batch that fails as a whole is counted as one lost record and
// the cursor moves one record forward.
func (e *Exporter) exportDocuments(ctx context.Context, archive *ArchiveWriter) (*documentScan, error) {
	total, err := e.documentCount(ctx)
	if err != nil {
		return nil, err
	}
	scan := &documentScan{total: total}

	if err := archive.BeginSection(SectionDocs); err != nil {
		return nil, err
	}
	if e.config.DocumentsStartEtag.IsEmpty() {
		err = e.scanByPosition(ctx, archive, scan)
	} else {
		err = e.scanByEtag(ctx, archive, scan)
	}
	if err != nil {
		return nil, err
	}
	if err := archive.EndSection(); err != nil {
		return nil, err
	}

	e.reporter.Completed(StageDocuments, scan.written, scan.total)
	return scan, nil
}

func (e *Exporter) documentCount(ctx context.Context) (int64, error) {
	var total int64
	err := e.store.Batch(ctx, func(a storage.Accessor) error {
		var err error
		total, err = a.DocumentCount()
		return err
	})
	return total, err
}

func (e *Exporter) scanByPosition(ctx context.Context, archive *ArchiveWriter, scan *documentScan) error {
	batchSize := e.config.BatchSize
	for scan.count < scan.total {
		if err := ctx.Err(); err != nil {
			return err
		}
		offset := int(scan.count)
		out, err := e.fetchDocuments(ctx, func(a storage.Accessor) ([]*documents.Document, error) {
			return a.DocumentsByPosition(offset, batchSize)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			e.skipOne(scan, err)
			continue
		}
		if len(out.records) == 0 && out.fault == nil {
			// the store holds fewer documents than it reported
			break
		}
		if err := e.writeBatch(archive, scan, out); err != nil {
			return err
		}
		if out.fault != nil {
			// the next offset is the record after the failing one
			e.skipOne(scan, out.fault)
		}
	}
	return nil
}

func (e *Exporter) scanByEtag(ctx context.Context, archive *ArchiveWriter, scan *documentScan) error {
	batchSize := e.config.BatchSize
	bound := e.config.DocumentsStartEtag.DecrementBy(1)
	scan.lastGood = bound
	for scan.count < scan.total {
		if err := ctx.Err(); err != nil {
			return err
		}
		after := bound
		out, err := e.fetchDocuments(ctx, func(a storage.Accessor) ([]*documents.Document, error) {
			return a.DocumentsAfter(ctx, after, batchSize)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			e.skipOne(scan, err)
			bound = bound.IncrementBy(1)
			continue
		}
		if len(out.records) == 0 && out.fault == nil {
			break
		}
		if err := e.writeBatch(archive, scan, out); err != nil {
			return err
		}
		if len(out.records) > 0 {
			bound = out.last
		}
		if out.fault != nil {
			e.skipOne(scan, out.fault)
			if out.fault.Etag.IsEmpty() {
				bound = bound.IncrementBy(1)
			} else {
				bound = out.fault.Etag
			}
		}
	}
	return nil
}

// fetchDocuments reads and serializes one batch. A document that fails to
// decode or serialize ends the batch and is returned as the fault; any other
// error fails the whole batch.
func (e *Exporter) fetchDocuments(ctx context.Context, fetch documentFetch) (batchOutcome, error) {
	var out batchOutcome
	started := time.Now()
	err := e.store.Batch(ctx, func(a storage.Accessor) error {
		docs, err := fetch(a)
		if err != nil && !errors.As(err, &out.fault) {
			return err
		}
		out.records = make([][]byte, 0, len(docs))
		for _, doc := range docs {
			raw, err := doc.ToJSON()
			if err != nil {
				out.fault = &storage.RecordError{Etag: doc.Etag, Err: err}
				break
			}
			out.records = append(out.records, raw)
			out.last = doc.Etag
		}
		return nil
	})
	e.metrics.ObserveBatch(string(StageDocuments), time.Since(started).Seconds())
	if err != nil {
		return batchOutcome{}, err
	}
	return out, nil
}

func (e *Exporter) writeBatch(archive *ArchiveWriter, scan *documentScan, out batchOutcome) error {
	if len(out.records) == 0 {
		return nil
	}
	for _, raw := range out.records {
		if err := archive.WriteRecord(raw); err != nil {
			return err
		}
	}
	n := int64(len(out.records))
	before := scan.count
	scan.count += n
	scan.written += n
	scan.lastGood = out.last
	e.metrics.DocumentsWritten(len(out.records))
	e.reportProgress(scan, before)

	e.logger.WithFields(logrus.Fields{
		"action":    "export_documents_batch",
		"documents": n,
		"last_etag": out.last.String(),
	}).Debug("wrote document batch")
	return nil
}

func (e *Exporter) skipOne(scan *documentScan, err error) {
	before := scan.count
	scan.count++
	scan.skipped++
	e.metrics.DocumentSkipped()
	e.reporter.Corruption(StageDocuments, scan.count, scan.lastGood, err)
	e.reportProgress(scan, before)
}

// reportProgress reports when the count crossed a batch size boundary
// since before.
func (e *Exporter) reportProgress(scan *documentScan, before int64) {
	size := int64(e.config.BatchSize)
	if scan.count/size > before/size {
		e.reporter.Progress(StageDocuments, scan.count, scan.total)
	}
}
