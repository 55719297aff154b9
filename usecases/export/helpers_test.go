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
	"compress/gzip"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// archive is the parsed content of an export archive.
type archive struct {
	order        []string
	Indexes      []json.RawMessage
	Docs         []json.RawMessage
	Transformers []json.RawMessage
	Identities   []json.RawMessage
}

// readArchive decodes the archive at path as a stream, the way an importer
// would, and records the order of the top level properties.
func readArchive(t *testing.T, path string) archive {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	dec := json.NewDecoder(gz)
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var out archive
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		name, ok := tok.(string)
		require.True(t, ok, "expected property name, got %v", tok)
		out.order = append(out.order, name)

		tok, err = dec.Token()
		require.NoError(t, err)
		require.Equal(t, json.Delim('['), tok)

		var records []json.RawMessage
		for dec.More() {
			var raw json.RawMessage
			require.NoError(t, dec.Decode(&raw))
			records = append(records, raw)
		}
		tok, err = dec.Token()
		require.NoError(t, err)
		require.Equal(t, json.Delim(']'), tok)

		switch name {
		case "Indexes":
			out.Indexes = records
		case "Docs":
			out.Docs = records
		case "Transformers":
			out.Transformers = records
		case "Identities":
			out.Identities = records
		default:
			t.Fatalf("unexpected section %q", name)
		}
	}
	tok, err = dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('}'), tok)
	return out
}

type exportedDoc struct {
	N        int `json:"N"`
	Metadata struct {
		ID   string `json:"@id"`
		Etag string `json:"@etag"`
	} `json:"@metadata"`
}

func decodeDocs(t *testing.T, raws []json.RawMessage) []exportedDoc {
	t.Helper()
	out := make([]exportedDoc, 0, len(raws))
	for _, raw := range raws {
		var d exportedDoc
		require.NoError(t, json.Unmarshal(raw, &d))
		out = append(out, d)
	}
	return out
}
