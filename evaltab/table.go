// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package evaltab assembles benchmark run records into a comparison
// table and writes it in several formats.
//
// A Table has one row per benchmark run and a fixed list of columns,
// each named by a phase (such as "Construct" or "Search") and a
// metric within that phase (such as "RAM [MiB]"). Runs are identified
// by a label derived from their sweep parameters.
package evaltab

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// A Column is one metric of the table.
type Column struct {
	Phase  string // may be empty if the table has no phases
	Metric string

	// Sentinel is the value placed in cells of this column whose
	// metric could not be determined.
	Sentinel string
}

func (c Column) String() string {
	if c.Phase == "" {
		return c.Metric
	}
	return c.Phase + "/" + c.Metric
}

// A Row is the record of one benchmark run.
type Row struct {
	Label string
	Cells []string // one per column of the Table

	// Warnings describes the cells that hold a sentinel because
	// their metric could not be determined.
	Warnings []string
}

// A Table is an ordered list of rows over a fixed set of columns.
type Table struct {
	// IndexName describes the row labels, such as "(w; k; size)".
	IndexName string
	Columns   []Column
	Rows      []Row
}

// HasPhases reports whether any column of t belongs to a phase.
func (t *Table) HasPhases() bool {
	for _, c := range t.Columns {
		if c.Phase != "" {
			return true
		}
	}
	return false
}

// Lookup returns the index of the column named name, which is either
// "phase/metric" or a metric that is unique in t.
func (t *Table) Lookup(name string) (int, error) {
	found := -1
	for i, c := range t.Columns {
		if c.String() == name {
			return i, nil
		}
		if c.Metric == name {
			if found >= 0 {
				return -1, fmt.Errorf("column %q is ambiguous: %s and %s", name, t.Columns[found], c)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, fmt.Errorf("no column %q", name)
	}
	return found, nil
}

// Append adds a row to t. The row must have one cell per column.
func (t *Table) Append(r Row) error {
	if len(r.Cells) != len(t.Columns) {
		return fmt.Errorf("row %s has %d cells, want %d", r.Label, len(r.Cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// ToCSV writes t to w as comma-separated values.
//
// If t has phases, the header has two rows: the first lists the phase
// of each column and the second the index name followed by the
// metrics. Otherwise the single header row lists the metrics.
func (t *Table) ToCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	rec := make([]string, 1+len(t.Columns))
	if t.HasPhases() {
		rec[0] = ""
		for i, c := range t.Columns {
			rec[1+i] = c.Phase
		}
		cw.Write(rec)
	}
	rec[0] = t.IndexName
	for i, c := range t.Columns {
		rec[1+i] = c.Metric
	}
	cw.Write(rec)
	for _, r := range t.Rows {
		rec[0] = r.Label
		copy(rec[1:], r.Cells)
		cw.Write(rec)
	}
	cw.Flush()
	return cw.Error()
}

// Warnings returns the warnings of all rows, each prefixed by its
// row's label.
func (t *Table) Warnings() []string {
	var out []string
	for _, r := range t.Rows {
		for _, w := range r.Warnings {
			out = append(out, r.Label+": "+w)
		}
	}
	return out
}

// SanitizeLabel makes s safe to use as a single comma-separated field
// by replacing commas with semicolons and removing quotes.
func SanitizeLabel(s string) string {
	return labelReplacer.Replace(s)
}

var labelReplacer = strings.NewReplacer(",", ";", "'", "", `"`, "")
