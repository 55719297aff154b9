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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar"
	"github.com/buger/jsonparser"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/storage-exporter/entities/documents"
)

// DefinitionsDir is the directory below the storage root holding index and
// transformer definition files.
const DefinitionsDir = "IndexDefinitions"

type definitionKind struct {
	name    string
	stage   Stage
	section Section
	pattern string
}

var (
	indexDefinitions = definitionKind{
		name:    "index",
		stage:   StageIndexes,
		section: SectionIndexes,
		pattern: "*.index",
	}
	transformerDefinitions = definitionKind{
		name:    "transformer",
		stage:   StageTransformers,
		section: SectionTransformers,
		pattern: "*.transform",
	}
)

// exportDefinitions writes one section of definition files. Unlike
// documents, a definition file that cannot be read or parsed fails the
// export.
func (e *Exporter) exportDefinitions(ctx context.Context, archive *ArchiveWriter, kind definitionKind) (int64, error) {
	dir := filepath.Join(e.store.Path(), DefinitionsDir)
	files, err := listDefinitions(dir, kind.pattern)
	if err != nil {
		return 0, err
	}
	total := int64(len(files))

	if err := archive.BeginSection(kind.section); err != nil {
		return 0, err
	}
	var written int64
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		def, err := e.readDefinition(file)
		if err != nil {
			return written, err
		}
		if err := archive.WriteRecord(definitionRecord(def)); err != nil {
			return written, err
		}
		written++
		e.metrics.DefinitionWritten(kind.name)
		e.reporter.Progress(kind.stage, written, total)
	}
	if err := archive.EndSection(); err != nil {
		return written, err
	}

	e.logger.WithFields(logrus.Fields{
		"action": "export_definitions",
		"kind":   kind.name,
		"count":  written,
	}).Debug("exported definitions")
	e.reporter.Completed(kind.stage, written, total)
	return written, nil
}

// listDefinitions returns the files in dir matching pattern, sorted by
// name. A missing directory holds no definitions.
func listDefinitions(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ok, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("match definitions: %w", err)
		}
		if ok {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (e *Exporter) readDefinition(path string) (documents.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return documents.Definition{}, fmt.Errorf("read definition: %w", err)
	}
	if e.config.DefinitionsCodec != nil {
		raw, err = e.config.DefinitionsCodec.Decode([]byte(filepath.Base(path)), raw)
		if err != nil {
			return documents.Definition{}, fmt.Errorf("decrypt definition %q: %w", path, err)
		}
	}

	body := bytes.TrimSpace(raw)
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		return documents.Definition{}, fmt.Errorf("definition %q is not a valid json object", path)
	}
	name, err := jsonparser.GetString(body, "Name")
	if err != nil {
		return documents.Definition{}, fmt.Errorf("definition %q: read Name: %w", path, err)
	}
	return documents.Definition{Name: name, Definition: body}, nil
}

// definitionRecord renders def by hand: json.Marshal would compact the
// definition body, which is kept byte for byte.
func definitionRecord(def documents.Definition) []byte {
	name, _ := json.Marshal(def.Name)
	var buf bytes.Buffer
	buf.Grow(len(name) + len(def.Definition) + 24)
	buf.WriteString(`{"name":`)
	buf.Write(name)
	buf.WriteString(`,"definition":`)
	buf.Write(def.Definition)
	buf.WriteString(`}`)
	return buf.Bytes()
}
