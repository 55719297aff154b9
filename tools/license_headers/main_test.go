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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "// Copyright\n//"

func TestWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "no header",
			content:  "package a\n",
			expected: "// Copyright\n//\n\npackage a\n",
		},
		{
			name:     "package doc comment is kept",
			content:  "// Package a does things.\npackage a\n",
			expected: "// Copyright\n//\n\n// Package a does things.\npackage a\n",
		},
		{
			name:     "old header is replaced",
			content:  "// Copyright 2019\n\npackage a\n",
			expected: "// Copyright\n//\n\npackage a\n",
		},
		{
			name:     "current header is kept",
			content:  "// Copyright\n//\n\npackage a\n",
			expected: "// Copyright\n//\n\npackage a\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(withHeader([]byte(tt.content), []byte(testHeader))))
		})
	}
}

func TestHeaderNeedsUpdate(t *testing.T) {
	assert.False(t, headerNeedsUpdate([]byte("// Copyright\n//\n\npackage a\n"), []byte(testHeader)))
	assert.True(t, headerNeedsUpdate([]byte("package a\n"), []byte(testHeader)))
	assert.True(t, headerNeedsUpdate([]byte("// Copyright 2019\n\npackage a\n"), []byte(testHeader)))
}

func TestProcessSingleFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "a.go")
	require.NoError(t, os.WriteFile(name, []byte("package a\n"), 0o644))

	updated, err := processSingleFile(name, []byte(testHeader), true)
	require.NoError(t, err)
	assert.True(t, updated)
	content, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "package a\n", string(content), "check mode must not write")

	updated, err = processSingleFile(name, []byte(testHeader), false)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = processSingleFile(name, []byte(testHeader), false)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestSkip(t *testing.T) {
	assert.True(t, skip("_examples/repo/main.go"))
	assert.True(t, skip("vendor/github.com/x/y.go"))
	assert.True(t, skip("adapters/testdata/x.go"))
	assert.False(t, skip("usecases/export/archive.go"))
}
