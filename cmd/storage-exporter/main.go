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

// storage-exporter writes an offline snapshot of a stopped database's
// storage into a gzip compressed JSON archive.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/storage-exporter/adapters/repos/storage"
	_ "github.com/weaviate/storage-exporter/adapters/repos/storage/boltstore"
	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	_ "github.com/weaviate/storage-exporter/adapters/repos/storage/pebblestore"
	"github.com/weaviate/storage-exporter/usecases/config"
	"github.com/weaviate/storage-exporter/usecases/export"
	"github.com/weaviate/storage-exporter/usecases/monitoring"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, !color.NoColor)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, colored bool) int {
	var opts config.Flags
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "storage-exporter"
	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			io.WriteString(stdout, err.Error()+"\n")
			return 0
		}
		fail(stderr, colored, err)
		return 1
	}

	logger := logrus.New()
	logger.SetOutput(stderr)

	var cfg config.ExporterConfig
	if err := cfg.LoadConfig(&opts, logger); err != nil {
		fail(stderr, colored, err)
		return 1
	}
	if err := cfg.Config.Logging.Apply(logger); err != nil {
		fail(stderr, colored, err)
		return 1
	}

	res, err := runExport(ctx, cfg.Config, stdout, logger, colored)
	if err != nil {
		fail(stderr, colored, err)
		return 1
	}

	summary(stdout, colored, res)
	return 0
}

func runExport(ctx context.Context, c config.Config, stdout io.Writer, logger *logrus.Logger, colored bool) (*export.Result, error) {
	encryption, err := c.EncryptionSettings()
	if err != nil {
		return nil, err
	}
	chain, decrypt, err := codec.FromSettings(encryption, c.Compression)
	if err != nil {
		return nil, err
	}
	start, err := c.DocumentsStartEtag()
	if err != nil {
		return nil, err
	}

	st, err := storage.Open(ctx, c.DataDir, storage.Options{
		Codec:             chain,
		LockRetries:       c.LockRetries,
		LockRetryInterval: c.LockRetryInterval,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.WithField("action", "storage_close").WithError(err).Warn("failed to close storage")
		}
	}()

	var definitions codec.Codec
	if encryption != nil && encryption.EncryptIndexes {
		definitions = decrypt
	}

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewExportMetrics(reg)
	exporter := export.NewExporter(export.Config{
		OutputPath:         c.Output,
		BatchSize:          c.BatchSize,
		DocumentsStartEtag: start,
		GzipLevel:          c.GzipLevel,
		DefinitionsCodec:   definitions,
	}, st, export.NewConsoleReporter(stdout, logger, colored), metrics, logger)

	res, err := exporter.Export(ctx)
	if err != nil {
		return nil, err
	}

	if c.MetricsTextfile != "" {
		if err := monitoring.WriteTextfile(c.MetricsTextfile, reg); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func summary(w io.Writer, colored bool, res *export.Result) {
	paint(colored, color.Bold).Fprintf(w, "exported %s documents, %s indexes, %s transformers and %s identities to %s (%s) in %s\n",
		humanize.Comma(res.Documents),
		humanize.Comma(res.Indexes),
		humanize.Comma(res.Transformers),
		humanize.Comma(res.Identities),
		res.Path,
		humanize.Bytes(uint64(res.BytesWritten)),
		res.Duration.Round(time.Millisecond),
	)
	if res.SkippedDocuments > 0 {
		paint(colored, color.FgYellow).Fprintf(w, "skipped %s unreadable documents, see the warnings above\n",
			humanize.Comma(res.SkippedDocuments))
	}
}

func fail(w io.Writer, colored bool, err error) {
	c := paint(colored, color.FgRed)
	c.Fprintf(w, "export failed: %v\n", err)

	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.Fprintln(w, "the data directory does not contain a supported storage")
	case errors.Is(err, storage.ErrLockedOrCorrupt):
		c.Fprintln(w, "stop the server using this storage and try again")
	}
}

func paint(colored bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
