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

	"github.com/aclements/go-moremath/stats"
)

// BinCounts summarizes the per-bin sizes of a partitioned data set.
type BinCounts struct {
	TextSize int64 // total size of the input text
	Max      int64 // largest bin
	Avg      int64 // mean bin size, rounded up
	Sum      int64 // sum of all bins
}

// ParseCounts parses a counts file: the total text size on the first
// line followed by one bin size per line.
func ParseCounts(r io.Reader, path string) (BinCounts, error) {
	var c BinCounts
	var sizes []float64
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineLen)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			want := `"<bin size>"`
			if n == 1 {
				want = `"<text size>"`
			}
			return BinCounts{}, &ReportError{path, n, "counts", want, sc.Text(), ErrMalformed}
		}
		if n == 1 {
			c.TextSize = v
			continue
		}
		sizes = append(sizes, float64(v))
		c.Sum += v
	}
	if err := sc.Err(); err != nil {
		return BinCounts{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(sizes) == 0 {
		return BinCounts{}, &ReportError{path, n + 1, "counts", `"<bin size>"`, "", ErrTruncated}
	}
	_, max := stats.Bounds(sizes)
	c.Max = int64(max)
	c.Avg = int64(math.Ceil(stats.Mean(sizes)))
	return c, nil
}
