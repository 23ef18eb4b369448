// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runlog extracts measurements from the text reports written
// while building and querying an index: resource usage reports of
// GNU time -v, internal timing files, perf stat energy reports,
// mapper logs and bin size counts.
//
// Most of these reports have a fixed layout where a value is found
// by line position rather than by searching. Such layouts are
// described as data by a Schema, so that a change in the producing
// tool's format is a change to one table.
package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// A TokenPos selects a space-separated token of a report line.
type TokenPos int

const (
	// LastToken selects the last token, as in "Label: value".
	LastToken TokenPos = iota
	// FirstToken selects the first token, as in "value unit label".
	FirstToken
)

// A LineField locates one value in a fixed-layout report.
type LineField struct {
	Name  string   // key of the value in the extracted map
	Line  int      // 0-based index of the line holding the value
	Token TokenPos // which token of the trimmed line is the value
	Label string   // expected line layout, for error messages
}

// A Schema is the line→field mapping of a fixed-layout report.
type Schema []LineField

// maxLineLen bounds the length of a single report line.
const maxLineLen = 1 << 20

// Extract reads r up to the last line named by s and returns the raw
// token found for each field.
//
// Fields that could not be extracted are absent from the map and are
// reported in the returned error, which joins one *ReportError per
// missing field. The map is valid even if err is non-nil, so callers
// can use the fields that were found.
func (s Schema) Extract(r io.Reader, path string) (map[string]string, error) {
	byLine := make(map[int][]int)
	last := -1
	for i, f := range s {
		byLine[f.Line] = append(byLine[f.Line], i)
		if f.Line > last {
			last = f.Line
		}
	}

	vals := make(map[string]string, len(s))
	seen := make([]bool, len(s))
	var errs []error

	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineLen)
	for n := 0; n <= last && sc.Scan(); n++ {
		fields, ok := byLine[n]
		if !ok {
			continue
		}
		line := sc.Text()
		for _, i := range fields {
			f := s[i]
			seen[i] = true
			tok := token(line, f.Token)
			if tok == "" {
				errs = append(errs, &ReportError{path, n + 1, f.Name, f.Label, line, ErrMalformed})
				continue
			}
			vals[f.Name] = tok
		}
	}
	if err := sc.Err(); err != nil {
		return vals, fmt.Errorf("%s: %w", path, err)
	}
	for i, f := range s {
		if !seen[i] {
			errs = append(errs, &ReportError{path, f.Line + 1, f.Name, f.Label, "", ErrTruncated})
		}
	}
	return vals, errors.Join(errs...)
}

func token(line string, pos TokenPos) string {
	line = strings.TrimSpace(line)
	switch pos {
	case FirstToken:
		if i := strings.IndexByte(line, ' '); i >= 0 {
			return line[:i]
		}
	default:
		if i := strings.LastIndexByte(line, ' '); i >= 0 {
			return line[i+1:]
		}
	}
	return line
}
