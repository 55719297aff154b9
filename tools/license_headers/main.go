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

// license_headers keeps the license header of every Go file in the repository
// up to date. With -check it only reports outdated files and fails.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar"
)

var headerSectionRe = regexp.MustCompile(`^(//.*\n)*\n`)

// skipped holds path prefixes that are not ours to rewrite.
var skipped = []string{"_examples/", "vendor/", "testdata/"}

func main() {
	check := flag.Bool("check", false, "only report files with an outdated header")
	headerFile := flag.String("header", "tools/license_headers/header.txt", "file holding the header")
	flag.Parse()

	h, err := os.ReadFile(*headerFile)
	fatal(err)
	header := bytes.TrimSpace(h)

	fileNames, err := doublestar.Glob("**/*.go")
	fatal(err)

	outdated := 0
	for _, fname := range fileNames {
		if skip(fname) {
			continue
		}
		updated, err := processSingleFile(fname, header, *check)
		fatal(err)
		if updated {
			outdated++
		}
	}

	if *check && outdated > 0 {
		log.Fatalf("%d files have an outdated license header", outdated)
	}
}

func skip(name string) bool {
	name = filepath.ToSlash(name)
	for _, prefix := range skipped {
		if strings.HasPrefix(name, prefix) || strings.Contains(name, "/"+prefix) {
			return true
		}
	}
	return false
}

// processSingleFile reports whether the header of name was (or, with check,
// would be) updated.
func processSingleFile(name string, header []byte, check bool) (bool, error) {
	content, err := os.ReadFile(name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}

	if !headerNeedsUpdate(content, header) {
		return false, nil
	}
	if check {
		fmt.Printf("outdated header: %s\n", name)
		return true, nil
	}
	if err := os.WriteFile(name, withHeader(content, header), 0o644); err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	fmt.Printf("updated: %s\n", name)
	return true, nil
}

func headerNeedsUpdate(content, header []byte) bool {
	current := headerSectionRe.Find(content)
	return !bytes.Equal(bytes.TrimSpace(current), header)
}

// withHeader replaces the leading comment section, which must be followed by
// an empty line, with header. Files without such a section get the header
// prepended. Package doc comments directly above the package clause are
// kept.
func withHeader(content, header []byte) []byte {
	target := make([]byte, 0, len(header)+2)
	target = append(target, header...)
	target = append(target, '\n', '\n')

	if loc := headerSectionRe.FindIndex(content); loc != nil {
		return append(target, content[loc[1]:]...)
	}
	return append(target, content...)
}

func fatal(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
