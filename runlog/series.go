// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseSeries parses the second column of a tab-separated listing,
// such as a minimiser count histogram or a threshold table, and
// returns its values as integers, truncated toward zero. If header is
// set, the first line is skipped. Blank lines are ignored.
func ParseSeries(r io.Reader, path string, header bool) ([]string, error) {
	const want = `"<key>\t<value>[\t...]"`
	var vals []string
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineLen)
	n := 0
	for sc.Scan() {
		n++
		if n == 1 && header {
			continue
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) < 2 {
			return vals, &ReportError{path, n, "values", want, line, ErrMalformed}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(f[1]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return vals, &ReportError{path, n, "values", want, line, ErrMalformed}
		}
		vals = append(vals, strconv.FormatInt(int64(v), 10))
	}
	if err := sc.Err(); err != nil {
		return vals, fmt.Errorf("%s: %w", path, err)
	}
	return vals, nil
}
