// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaltab

import (
	"fmt"
	"io"

	"github.com/aclements/go-gg/table"
	"github.com/seqan/raptor/internal/texttab"
)

// ToText writes t to w as an aligned text table. Phases span their
// metrics in a header row. Rows with warnings are marked with a
// footnote number and the warnings are listed after the table.
func (t *Table) ToText(w io.Writer) error {
	tab := texttab.Table{Sep: "  "}

	if t.HasPhases() {
		tab.Row().Skip(1)
		for i := 0; i < len(t.Columns); {
			j := i + 1
			for j < len(t.Columns) && t.Columns[j].Phase == t.Columns[i].Phase {
				j++
			}
			tab.Span(j-i, t.Columns[i].Phase, texttab.Center)
			i = j
		}
	}
	tab.Row().Cell(t.IndexName, texttab.Left)
	for _, c := range t.Columns {
		tab.Cell(c.Metric, texttab.Right)
	}
	tab.Rule()

	n := 0
	for _, r := range t.Rows {
		label := r.Label
		if len(r.Warnings) > 0 {
			n++
			label += fmt.Sprintf(" [%d]", n)
		}
		tab.Row().Cell(label, texttab.Left)
		for _, v := range r.Cells {
			tab.Cell(v, texttab.Right)
		}
	}
	if err := tab.Write(w); err != nil {
		return err
	}

	n = 0
	for _, r := range t.Rows {
		if len(r.Warnings) == 0 {
			continue
		}
		n++
		for _, msg := range r.Warnings {
			if _, err := fmt.Fprintf(w, "[%d] %s\n", n, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// A record is one cell of a Table in long form.
type record struct {
	Label  string
	Phase  string
	Metric string
	Value  string
}

// ToLong writes t to w in long form, with one line per cell giving
// its row label, phase, metric and value.
func (t *Table) ToLong(w io.Writer) error {
	var recs []record
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			recs = append(recs, record{r.Label, c.Phase, c.Metric, r.Cells[i]})
		}
	}
	if len(recs) == 0 {
		return nil
	}
	return table.Fprint(w, table.TableFromStructs(recs))
}
