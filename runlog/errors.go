// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports a field count or number that does not
	// match the layout expected at a position of a report.
	ErrMalformed = errors.New("malformed report")

	// ErrTruncated reports a report that ends before the line
	// holding an expected field.
	ErrTruncated = errors.New("truncated input")

	// ErrUnmappedBin reports a classification record whose bin has
	// no entry in the user bin mapping.
	ErrUnmappedBin = errors.New("unmapped bin")
)

// A ReportError describes a field that could not be extracted from a
// report. It unwraps to one of ErrMalformed, ErrTruncated or
// ErrUnmappedBin.
type ReportError struct {
	Path  string // file name, for diagnostics only
	Line  int    // 1-based line number
	Field string // name of the field being extracted

	// Want describes the expected layout of the line and Got is the
	// line as found. Got is empty if the line does not exist.
	Want, Got string

	Err error
}

func (e *ReportError) Error() string {
	pos := e.Path
	if pos == "" {
		pos = "<unknown>"
	}
	if e.Line > 0 {
		pos = fmt.Sprintf("%s:%d", pos, e.Line)
	}
	msg := e.Err.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Want == "" {
		return pos + ": " + msg
	}
	if e.Got == "" {
		return fmt.Sprintf("%s: %s: want %s, found no line", pos, msg, e.Want)
	}
	return fmt.Sprintf("%s: %s: want %s, found %q", pos, msg, e.Want, e.Got)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// Fields returns the names of the fields reported missing by err,
// which is typically an error returned by one of the Parse functions.
func Fields(err error) []string {
	var names []string
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *ReportError:
			names = append(names, e.Field)
		case interface{ Unwrap() []error }:
			for _, err := range e.Unwrap() {
				walk(err)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return names
}
