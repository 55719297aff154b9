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

package monitoring

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storage_export"

// ExportMetrics are collected during one export run. All methods are safe to
// call on a nil receiver.
type ExportMetrics struct {
	DocumentsExported prometheus.Counter
	DocumentsSkipped  prometheus.Counter
	Identities        prometheus.Counter
	Definitions       *prometheus.CounterVec
	ArchiveBytes      prometheus.Counter
	BatchDuration     *prometheus.HistogramVec
}

// NewExportMetrics registers the export metrics with reg. A nil reg gives
// the metrics a registry of their own that nothing gathers.
func NewExportMetrics(reg prometheus.Registerer) *ExportMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &ExportMetrics{
		DocumentsExported: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_exported_total",
			Help:      "Number of documents written to the archive",
		}),
		DocumentsSkipped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_skipped_total",
			Help:      "Number of documents skipped because they could not be read",
		}),
		Identities: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identities_exported_total",
			Help:      "Number of identities written to the archive",
		}),
		Definitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "definitions_exported_total",
			Help:      "Number of index and transformer definitions written to the archive",
		}, []string{"kind"}), // kind: index/transformer
		ArchiveBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_bytes_total",
			Help:      "Compressed bytes written to the archive file",
		}),
		BatchDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of one storage batch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}

func (m *ExportMetrics) DocumentsWritten(n int) {
	if m == nil {
		return
	}
	m.DocumentsExported.Add(float64(n))
}

func (m *ExportMetrics) DocumentSkipped() {
	if m == nil {
		return
	}
	m.DocumentsSkipped.Inc()
}

func (m *ExportMetrics) IdentitiesWritten(n int) {
	if m == nil {
		return
	}
	m.Identities.Add(float64(n))
}

func (m *ExportMetrics) DefinitionWritten(kind string) {
	if m == nil {
		return
	}
	m.Definitions.WithLabelValues(kind).Inc()
}

func (m *ExportMetrics) ObserveBatch(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.BatchDuration.WithLabelValues(stage).Observe(seconds)
}

// ArchiveCounter returns the counter for archive bytes, or nil.
func (m *ExportMetrics) ArchiveCounter() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.ArchiveBytes
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics to %q: %w", path, err)
	}
	return nil
}
