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
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/storage-exporter/entities/etag"
)

// Stage names an export pass in progress and diagnostic messages.
type Stage string

const (
	StageIndexes      Stage = "indexes"
	StageDocuments    Stage = "documents"
	StageTransformers Stage = "transformers"
	StageIdentities   Stage = "identities"
)

// Reporter receives progress and corruption events from the export passes.
type Reporter interface {
	// Progress is reported while a stage is running.
	Progress(stage Stage, done, total int64)
	// Completed is reported once when a stage ends.
	Completed(stage Stage, done, total int64)
	// Corruption is reported for every batch that could not be read.
	// lastGood is the last etag written before the fault, or empty.
	Corruption(stage Stage, ordinal int64, lastGood etag.Etag, err error)
}

// NoopReporter discards every event.
type NoopReporter struct{}

func (NoopReporter) Progress(Stage, int64, int64)              {}
func (NoopReporter) Completed(Stage, int64, int64)             {}
func (NoopReporter) Corruption(Stage, int64, etag.Etag, error) {}

// ConsoleReporter prints one line per event for the operator and mirrors
// every event into the log.
type ConsoleReporter struct {
	out      io.Writer
	logger   logrus.FieldLogger
	progress *color.Color
	done     *color.Color
	warn     *color.Color
}

// NewConsoleReporter writes to out. Colors are only used when colored is
// set.
func NewConsoleReporter(out io.Writer, logger logrus.FieldLogger, colored bool) *ConsoleReporter {
	r := &ConsoleReporter{
		out:      out,
		logger:   logger,
		progress: color.New(color.Reset),
		done:     color.New(color.FgGreen),
		warn:     color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{r.progress, r.done, r.warn} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *ConsoleReporter) Progress(stage Stage, done, total int64) {
	r.progress.Fprintf(r.out, "%s: exported %d of %d\n", stage, done, total)
	r.logger.WithFields(logrus.Fields{
		"action": "export_progress",
		"stage":  stage,
		"done":   done,
		"total":  total,
	}).Debug("export progress")
}

func (r *ConsoleReporter) Completed(stage Stage, done, total int64) {
	r.done.Fprintf(r.out, "%s: done, exported %d of %d\n", stage, done, total)
	r.logger.WithFields(logrus.Fields{
		"action": "export_stage_done",
		"stage":  stage,
		"done":   done,
		"total":  total,
	}).Info("export stage completed")
}

func (r *ConsoleReporter) Corruption(stage Stage, ordinal int64, lastGood etag.Etag, err error) {
	msg := fmt.Sprintf("%s: failed to export record near #%d", stage, ordinal)
	if !lastGood.IsEmpty() {
		msg += fmt.Sprintf(", last good etag %s", lastGood)
	}
	r.warn.Fprintf(r.out, "%s: %v\n", msg, err)

	fields := logrus.Fields{
		"action":  "export_corruption",
		"stage":   stage,
		"ordinal": ordinal,
	}
	if !lastGood.IsEmpty() {
		fields["last_good_etag"] = lastGood.String()
	}
	r.logger.WithFields(fields).WithError(err).Warn("skipping corrupted records")
}
