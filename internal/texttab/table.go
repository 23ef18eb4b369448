// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package texttab lays out fixed-width text tables with cells that
// can span several columns.
package texttab

import (
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

// Align is the horizontal alignment of a cell within its width.
type Align int

const (
	Left Align = iota
	Center
	Right
)

func (a Align) pad(s string, w int) string {
	n := w - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	switch a {
	case Center:
		l := n / 2
		return strings.Repeat(" ", l) + s + strings.Repeat(" ", n-l)
	case Right:
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

type cell struct {
	row, col, span int
	text           string
	align          Align
	rule           bool
}

// A Table accumulates rows of cells and lays them out with Write.
//
// Adding methods return the Table so that rows can be built with
// chained calls:
//
//	tab.Row().Cell("k", texttab.Left).Cell("19", texttab.Right)
type Table struct {
	// Sep separates adjacent columns. If empty, a single space is
	// used.
	Sep string

	cells    []cell
	ncol     int
	row, col int
	started  bool
}

// Row starts a new row.
func (t *Table) Row() *Table {
	if t.started {
		t.row++
	}
	t.started = true
	t.col = 0
	return t
}

// Skip leaves n columns of the current row empty.
func (t *Table) Skip(n int) *Table {
	t.col += n
	if t.col > t.ncol {
		t.ncol = t.col
	}
	return t
}

// Cell adds a one-column cell to the current row.
func (t *Table) Cell(text string, a Align) *Table {
	return t.Span(1, text, a)
}

// Span adds a cell covering n columns to the current row.
func (t *Table) Span(n int, text string, a Align) *Table {
	if n < 1 {
		n = 1
	}
	if !t.started {
		t.started = true
	}
	t.cells = append(t.cells, cell{row: t.row, col: t.col, span: n, text: text, align: a})
	return t.Skip(n)
}

// Rule adds a row holding a horizontal line across the table.
func (t *Table) Rule() *Table {
	t.Row()
	t.cells = append(t.cells, cell{row: t.row, rule: true})
	return t
}

func (t *Table) sep() string {
	if t.Sep == "" {
		return " "
	}
	return t.Sep
}

// widths computes the width of each column. Spanning cells widen the
// columns they cover evenly when those are too narrow.
func (t *Table) widths() []int {
	ws := make([]int, t.ncol)
	sepw := utf8.RuneCountInString(t.sep())
	spans := make([]cell, 0, len(t.cells))
	for _, c := range t.cells {
		switch {
		case c.rule:
		case c.span == 1:
			if n := utf8.RuneCountInString(c.text); n > ws[c.col] {
				ws[c.col] = n
			}
		default:
			spans = append(spans, c)
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].span < spans[j].span })
	for _, c := range spans {
		have := sepw * (c.span - 1)
		for i := c.col; i < c.col+c.span; i++ {
			have += ws[i]
		}
		need := utf8.RuneCountInString(c.text) - have
		for i := 0; need > 0; i++ {
			// Spread the shortfall, giving leftover space to
			// the leftmost columns.
			add := (need + c.span - 1 - i) / (c.span - i)
			ws[c.col+i] += add
			need -= add
		}
	}
	return ws
}

// Write lays out the table and writes it to w. Trailing spaces are
// removed from every line.
func (t *Table) Write(w io.Writer) error {
	if len(t.cells) == 0 {
		return nil
	}
	ws := t.widths()
	sep := t.sep()
	total := utf8.RuneCountInString(sep) * (len(ws) - 1)
	for _, w := range ws {
		total += w
	}

	cells := append([]cell(nil), t.cells...)
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].row != cells[j].row {
			return cells[i].row < cells[j].row
		}
		return cells[i].col < cells[j].col
	})

	var buf, line strings.Builder
	flush := func() {
		buf.WriteString(strings.TrimRight(line.String(), " "))
		buf.WriteByte('\n')
		line.Reset()
	}
	row, col := 0, 0
	for _, c := range cells {
		for row < c.row {
			flush()
			row++
			col = 0
		}
		if c.rule {
			line.WriteString(strings.Repeat("─", total))
			continue
		}
		for ; col < c.col; col++ {
			if col > 0 {
				line.WriteString(sep)
			}
			line.WriteString(strings.Repeat(" ", ws[col]))
		}
		if col > 0 {
			line.WriteString(sep)
		}
		width := utf8.RuneCountInString(sep) * (c.span - 1)
		for i := c.col; i < c.col+c.span; i++ {
			width += ws[i]
		}
		line.WriteString(c.align.pad(c.text, width))
		col += c.span
	}
	flush()
	_, err := io.WriteString(w, buf.String())
	return err
}
