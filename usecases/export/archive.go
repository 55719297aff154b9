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
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/weaviate/storage-exporter/usecases/monitoring"
)

// Section is a top level array of the archive.
type Section string

const (
	SectionIndexes      Section = "Indexes"
	SectionDocs         Section = "Docs"
	SectionTransformers Section = "Transformers"
	SectionIdentities   Section = "Identities"
)

// Sections lists the archive sections in the order they are written.
var Sections = []Section{SectionIndexes, SectionDocs, SectionTransformers, SectionIdentities}

const archiveBufferSize = 64 * 1024

// ArchiveWriter streams the export archive: a gzip compressed JSON object
// with one array per section. Records are written as they arrive and the
// writer never seeks back. If the export fails half way the file is left
// truncated.
type ArchiveWriter struct {
	path    string
	file    *os.File
	counter *monitoring.CountingWriter
	gzw     *gzip.Writer
	w       *bufio.Writer

	next      int // index into Sections of the next section to begin
	inSection bool
	records   int
	finished  bool
	closed    bool
}

// NewArchiveWriter creates the file at path, truncating an existing one.
// level is a gzip level between -2 (huffman only) and 9; -1 selects the
// default. bytes is optional and counts the compressed output.
func NewArchiveWriter(path string, level int, bytes prometheus.Counter) (*ArchiveWriter, error) {
	gzipLevel, err := archiveLevel(level)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	counter := monitoring.NewCountingWriter(f, bytes)
	gzw, err := gzip.NewWriterLevel(counter, gzipLevel)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip writer: %w", err)
	}

	a := &ArchiveWriter{
		path:    path,
		file:    f,
		counter: counter,
		gzw:     gzw,
		w:       bufio.NewWriterSize(gzw, archiveBufferSize),
	}
	if err := a.write([]byte("{")); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func archiveLevel(level int) (int, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return 0, fmt.Errorf("gzip level %d out of range [%d, %d]", level, gzip.HuffmanOnly, gzip.BestCompression)
	}
	return level, nil
}

// Path is the archive file path.
func (a *ArchiveWriter) Path() string {
	return a.path
}

// BeginSection opens the array of the given section. Sections must be begun
// in the order of Sections.
func (a *ArchiveWriter) BeginSection(s Section) error {
	switch {
	case a.closed || a.finished:
		return fmt.Errorf("begin section %s: archive already finished", s)
	case a.inSection:
		return fmt.Errorf("begin section %s: section %s still open", s, Sections[a.next-1])
	case a.next >= len(Sections) || Sections[a.next] != s:
		return fmt.Errorf("begin section %s: out of order", s)
	}

	prefix := ""
	if a.next > 0 {
		prefix = ","
	}
	if err := a.write([]byte(fmt.Sprintf("%s%q:[", prefix, string(s)))); err != nil {
		return err
	}
	a.next++
	a.inSection = true
	a.records = 0
	return nil
}

// WriteRecord appends one already serialized JSON value to the open section.
func (a *ArchiveWriter) WriteRecord(raw []byte) error {
	if !a.inSection {
		return fmt.Errorf("write record: no open section")
	}
	if a.records > 0 {
		if err := a.w.WriteByte(','); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
	}
	if err := a.write(raw); err != nil {
		return err
	}
	a.records++
	return nil
}

// WriteValue serializes v and appends it to the open section.
func (a *ArchiveWriter) WriteValue(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return a.WriteRecord(raw)
}

// EndSection closes the array of the open section.
func (a *ArchiveWriter) EndSection() error {
	if !a.inSection {
		return fmt.Errorf("end section: no open section")
	}
	if err := a.write([]byte("]")); err != nil {
		return err
	}
	a.inSection = false
	return nil
}

// Finish closes the top level object. All sections must have been written.
func (a *ArchiveWriter) Finish() error {
	if a.inSection || a.next != len(Sections) {
		return fmt.Errorf("finish archive: %d of %d sections written", a.next, len(Sections))
	}
	if a.finished {
		return nil
	}
	if err := a.write([]byte("}")); err != nil {
		return err
	}
	a.finished = true
	return nil
}

func (a *ArchiveWriter) write(p []byte) error {
	if _, err := a.w.Write(p); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// Close flushes the buffer, closes the compressor and then the file. It is
// safe to call more than once.
func (a *ArchiveWriter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var result *multierror.Error
	if err := a.w.Flush(); err != nil {
		result = multierror.Append(result, fmt.Errorf("flush: %w", err))
	}
	if err := a.gzw.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("gzip: %w", err))
	}
	if err := a.file.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("file: %w", err))
	}
	return result.ErrorOrNil()
}

// Written is the number of compressed bytes that reached the file so far.
func (a *ArchiveWriter) Written() int64 {
	return a.counter.Written()
}
