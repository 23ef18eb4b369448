// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaltab

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// CellValue converts a cell to a number. Durations of the form
// "M:SS", "M:SS.ss" or "H:M:SS" are converted to seconds and
// thousands separators are ignored. It reports false if v is not a
// number.
func CellValue(v string) (float64, bool) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0, false
	}
	secs := 0.0
	parts := strings.Split(v, ":")
	if len(parts) > 3 {
		return 0, false
	}
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		secs = secs*60 + f
	}
	return secs, true
}

// Chart writes a bar chart of column col across all rows of t to w in
// the given image format ("png", "svg", "pdf" or "eps"). Cells
// holding the column's sentinel, or no number, are left out.
func (t *Table) Chart(w io.Writer, col int, format string) error {
	if col < 0 || col >= len(t.Columns) {
		return fmt.Errorf("column %d out of range", col)
	}
	c := t.Columns[col]

	var vals plotter.Values
	var names []string
	timed := false
	for _, r := range t.Rows {
		cell := r.Cells[col]
		if c.Sentinel != "" && cell == c.Sentinel {
			continue
		}
		v, ok := CellValue(cell)
		if !ok {
			continue
		}
		timed = timed || strings.Contains(cell, ":")
		vals = append(vals, v)
		names = append(names, r.Label)
	}
	if len(vals) == 0 {
		return fmt.Errorf("column %s has no values to chart", c)
	}

	pl := plot.New()
	pl.Title.Text = c.String()
	pl.Y.Label.Text = c.Metric
	if timed {
		pl.Y.Label.Text = "seconds"
	}
	pl.X.Label.Text = t.IndexName

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	pl.Add(grid)

	bars, err := plotter.NewBarChart(vals, vg.Points(16))
	if err != nil {
		return err
	}
	bars.Color = color.NRGBA{0x33, 0x66, 0x99, 0xff}
	bars.LineStyle.Width = vg.Length(0)
	pl.Add(bars)
	pl.NominalX(names...)

	pl.X.Tick.Label.Rotation = -math.Pi / 8
	pl.X.Tick.Label.YAlign = draw.YTop
	pl.X.Tick.Label.XAlign = draw.XLeft

	width := 1.5 * float64(2+len(vals))
	if width < 12 {
		width = 12
	}
	wt, err := pl.WriterTo(vg.Length(width)*vg.Centimeter, 10*vg.Centimeter, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
