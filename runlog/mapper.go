// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A keyedField locates a value in a line identified by its prefix
// rather than its position.
type keyedField struct {
	name   string
	prefix string
	column int // tab-separated column holding the value
}

// mapperFields is the layout of a DREAM-Yara mapper log.
var mapperFields = []keyedField{
	{"load", "Filter loading time", 2},
	{"filter", "Reads filtering time", 2},
	{"total", "Total reads", 3},
	{"mapped", "Mapped reads", 3},
	{"perbin", "Avg reads per bin", 2},
}

// MapperStats is the summary a distributed read mapper writes after
// filtering reads through the index.
type MapperStats struct {
	// LoadTime and FilterTime are seconds rounded to a tenth.
	LoadTime, FilterTime string
	// Unmapped is the number of reads that were not mapped.
	Unmapped int64
	// PerBin is the average number of reads processed per bin.
	PerBin int64

	HasLoad, HasFilter, HasUnmapped, HasPerBin bool
}

// ParseMapperLog parses a mapper log. Lines not describing one of the
// summary values are skipped. Values that were found are returned
// along with an error describing the others.
func ParseMapperLog(r io.Reader, path string) (MapperStats, error) {
	type pos struct {
		val  string
		line int
		text string
	}
	found := make(map[string]pos)

	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineLen)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		for _, f := range mapperFields {
			if !strings.HasPrefix(line, f.prefix) {
				continue
			}
			cols := strings.Split(line, "\t")
			val := ""
			if f.column < len(cols) {
				val = strings.TrimSpace(cols[f.column])
			}
			found[f.name] = pos{val, n, line}
		}
	}
	if err := sc.Err(); err != nil {
		return MapperStats{}, fmt.Errorf("%s: %w", path, err)
	}

	var errs []error
	num := func(name string) (float64, bool) {
		var f keyedField
		for _, f = range mapperFields {
			if f.name == name {
				break
			}
		}
		want := fmt.Sprintf("%q with a number in tab column %d", f.prefix+"…", f.column+1)
		p, ok := found[name]
		if !ok {
			errs = append(errs, &ReportError{path, 0, name, want, "", ErrTruncated})
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimRight(p.val, " sec"), 64)
		if err != nil {
			errs = append(errs, &ReportError{path, p.line, name, want, p.text, ErrMalformed})
			return 0, false
		}
		return v, true
	}

	var s MapperStats
	if v, ok := num("load"); ok {
		s.LoadTime, s.HasLoad = strconv.FormatFloat(v, 'f', 1, 64), true
	}
	if v, ok := num("filter"); ok {
		s.FilterTime, s.HasFilter = strconv.FormatFloat(v, 'f', 1, 64), true
	}
	total, ok1 := num("total")
	mapped, ok2 := num("mapped")
	if ok1 && ok2 {
		s.Unmapped, s.HasUnmapped = int64(total)-int64(mapped), true
	}
	if v, ok := num("perbin"); ok {
		s.PerBin, s.HasPerBin = int64(v), true
	}
	return s, errors.Join(errs...)
}
