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

// Package export writes a complete logical snapshot of a storage into one
// gzip compressed JSON archive. Documents that cannot be read are skipped
// and reported instead of failing the export.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/etag"
	"github.com/weaviate/storage-exporter/usecases/monitoring"
)

// DefaultBatchSize is the number of records read per storage batch.
const DefaultBatchSize = 1024

// Config configures a single export.
type Config struct {
	OutputPath string
	BatchSize  int
	// DocumentsStartEtag is the first etag to export. Empty exports all
	// documents.
	DocumentsStartEtag etag.Etag
	// GzipLevel is the archive compression level, -1 for the default.
	GzipLevel int
	// DefinitionsCodec decodes index and transformer definition files. It
	// is set when the storage encrypts its indexes.
	DefinitionsCodec codec.Codec
}

func (c Config) Validate() error {
	if c.OutputPath == "" {
		return errors.New("output path is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if _, err := archiveLevel(c.GzipLevel); err != nil {
		return err
	}
	return nil
}

// Result summarizes a finished export.
type Result struct {
	ID               string
	Path             string
	Indexes          int64
	Documents        int64
	TotalDocuments   int64
	SkippedDocuments int64
	Transformers     int64
	Identities       int64
	BytesWritten     int64
	Duration         time.Duration
}

// Exporter runs one export session over an opened storage. It holds all
// state of the session; the storage stays owned by the caller.
type Exporter struct {
	config   Config
	store    storage.Storage
	reporter Reporter
	metrics  *monitoring.ExportMetrics
	logger   logrus.FieldLogger
}

// NewExporter creates an exporter. reporter and metrics may be nil.
func NewExporter(
	config Config,
	store storage.Storage,
	reporter Reporter,
	metrics *monitoring.ExportMetrics,
	logger logrus.FieldLogger,
) *Exporter {
	if reporter == nil {
		reporter = NoopReporter{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Exporter{
		config:   config,
		store:    store,
		reporter: reporter,
		metrics:  metrics,
		logger:   logger,
	}
}

// Export writes the archive. The sections are written in order: indexes,
// documents, transformers and identities. The archive file is closed on
// every path; on error it is left truncated.
func (e *Exporter) Export(ctx context.Context) (res *Result, err error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export config: %w", err)
	}

	res = &Result{ID: uuid.NewString(), Path: e.config.OutputPath}
	logger := e.logger.WithFields(logrus.Fields{
		"action":    "export",
		"export_id": res.ID,
		"source":    e.store.Path(),
		"engine":    e.store.Engine(),
		"output":    e.config.OutputPath,
	})
	logger.WithField("start_etag", e.config.DocumentsStartEtag.String()).Info("starting export")
	started := time.Now()

	archive, err := NewArchiveWriter(e.config.OutputPath, e.config.GzipLevel, e.metrics.ArchiveCounter())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := archive.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close archive: %w", cerr)).ErrorOrNil()
		}
		if err != nil {
			logger.WithError(err).Error("export failed")
			res = nil
			return
		}
		res.BytesWritten = archive.Written()
		res.Duration = time.Since(started)
		logger.WithFields(logrus.Fields{
			"documents": res.Documents,
			"skipped":   res.SkippedDocuments,
			"bytes":     res.BytesWritten,
			"took":      res.Duration,
		}).Info("export completed successfully")
	}()

	if res.Indexes, err = e.exportDefinitions(ctx, archive, indexDefinitions); err != nil {
		return nil, fmt.Errorf("export indexes: %w", err)
	}

	scan, err := e.exportDocuments(ctx, archive)
	if err != nil {
		return nil, fmt.Errorf("export documents: %w", err)
	}
	res.Documents = scan.written
	res.TotalDocuments = scan.total
	res.SkippedDocuments = scan.skipped

	if res.Transformers, err = e.exportDefinitions(ctx, archive, transformerDefinitions); err != nil {
		return nil, fmt.Errorf("export transformers: %w", err)
	}
	if res.Identities, err = e.exportIdentities(ctx, archive); err != nil {
		return nil, fmt.Errorf("export identities: %w", err)
	}

	if err := archive.Finish(); err != nil {
		return nil, err
	}
	return res, nil
}
