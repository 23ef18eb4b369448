// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlog

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ResourceUsageSchema is the layout of a GNU time -v report.
var ResourceUsageSchema = Schema{
	{Name: "elapsed", Line: 4, Token: LastToken, Label: `"Elapsed (wall clock) time (h:mm:ss or m:ss): <time>"`},
	{Name: "maxrss", Line: 9, Token: LastToken, Label: `"Maximum resident set size (kbytes): <kbytes>"`},
}

// A Clock selects how elapsed times of an hour or more are written.
type Clock int

const (
	// MinutesClock folds hours into minutes: 1:02:03 becomes 62:03.
	MinutesClock Clock = iota
	// HoursClock keeps hours: 1:02:03 stays 1:2:03.
	HoursClock
)

// A Rounding selects how peak memory is converted from KiB to MiB.
type Rounding int

const (
	// RoundHalfEven rounds to the nearest MiB, ties to even.
	RoundHalfEven Rounding = iota
	// Truncate discards the fractional MiB.
	Truncate
)

// ParseRounding parses the name of a Rounding, "even" or "trunc".
func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(s) {
	case "", "even", "round":
		return RoundHalfEven, nil
	case "trunc", "truncate", "floor":
		return Truncate, nil
	}
	return 0, fmt.Errorf("unknown rounding %q (want even or trunc)", s)
}

func (r Rounding) String() string {
	if r == Truncate {
		return "trunc"
	}
	return "even"
}

// Options configure ParseResourceUsage.
type Options struct {
	Clock    Clock
	Rounding Rounding
}

// ResourceUsage is the wall clock time and peak memory of one process.
type ResourceUsage struct {
	// Elapsed is the normalized wall clock time, see NormalizeElapsed.
	Elapsed string
	// PeakMiB is the maximum resident set size in MiB.
	PeakMiB int64

	// HasElapsed and HasPeak report which fields were extracted.
	HasElapsed, HasPeak bool
}

// ParseResourceUsage parses a GNU time -v report read from r. path
// is used in error messages.
//
// If only some fields can be parsed, those are filled in and the
// error describes the others.
func ParseResourceUsage(r io.Reader, path string, opts Options) (ResourceUsage, error) {
	var u ResourceUsage
	raw, err := ResourceUsageSchema.Extract(r, path)
	errs := []error{err}

	if v, ok := raw["elapsed"]; ok {
		t, err := NormalizeElapsed(v, opts.Clock)
		if err != nil {
			errs = append(errs, &ReportError{path, 5, "elapsed", ResourceUsageSchema[0].Label, v, ErrMalformed})
		} else {
			u.Elapsed, u.HasElapsed = t, true
		}
	}
	if v, ok := raw["maxrss"]; ok {
		kb, err := strconv.ParseInt(v, 10, 64)
		if err != nil || kb < 0 {
			errs = append(errs, &ReportError{path, 10, "maxrss", ResourceUsageSchema[1].Label, v, ErrMalformed})
		} else {
			u.PeakMiB, u.HasPeak = KiBToMiB(kb, opts.Rounding), true
		}
	}
	return u, errors.Join(errs...)
}

// KiBToMiB converts kb kilobytes to mebibytes using rounding r.
func KiBToMiB(kb int64, r Rounding) int64 {
	if r == Truncate {
		return kb / 1024
	}
	return int64(math.RoundToEven(float64(kb) / 1024))
}

// NormalizeElapsed rewrites an elapsed time as printed by GNU time.
//
// "H:MM:SS" becomes "<H*60+MM>:SS" (or stays "H:M:SS" with
// HoursClock). "0:SS.ss" is kept as is. "M:SS.ss" with M > 0 has
// its seconds rounded to two integer digits, "M:SS".
func NormalizeElapsed(s string, clock Clock) (string, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 3:
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		sec, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return "", err
		}
		if clock == HoursClock {
			return fmt.Sprintf("%d:%d:%02d", h, m, sec), nil
		}
		return fmt.Sprintf("%d:%02d", h*60+m, sec), nil
	case 2:
		m, err := strconv.Atoi(parts[0])
		if err != nil {
			return "", err
		}
		sec, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return "", err
		}
		if m == 0 {
			return parts[0] + ":" + parts[1], nil
		}
		return fmt.Sprintf("%s:%02d", parts[0], int64(math.RoundToEven(sec))), nil
	}
	return "", fmt.Errorf("want 2 or 3 colon-separated fields, got %d", len(parts))
}
