// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// InternalTiming is the time breakdown a search tool reports about
// itself. The values are kept exactly as written by the tool.
type InternalTiming struct {
	IndexIO string // time to load the index
	ReadsIO string // time to read the queries
	Compute string // time spent querying
}

const internalTimingLayout = `"<index I/O>\t<reads I/O>\t<compute>"`

// ParseInternalTiming parses a two-line internal timing report. The
// first line is a header and is ignored.
func ParseInternalTiming(r io.Reader, path string) (InternalTiming, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineLen)
	var line string
	n := 0
	for n < 2 && sc.Scan() {
		line = sc.Text()
		n++
	}
	if err := sc.Err(); err != nil {
		return InternalTiming{}, fmt.Errorf("%s: %w", path, err)
	}
	if n < 2 {
		return InternalTiming{}, &ReportError{path, 2, "timing", internalTimingLayout, "", ErrTruncated}
	}
	f := strings.Split(strings.TrimSpace(line), "\t")
	if len(f) != 3 {
		return InternalTiming{}, &ReportError{path, 2, "timing", internalTimingLayout, line, ErrMalformed}
	}
	return InternalTiming{f[0], f[1], f[2]}, nil
}
