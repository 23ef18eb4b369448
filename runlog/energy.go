// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlog

import "io"

// EnergySchema is the layout of a perf stat report recording the
// power/energy-pkg and power/energy-ram events, in that order.
var EnergySchema = Schema{
	{Name: "pkg", Line: 5, Token: FirstToken, Label: `"<joules> Joules power/energy-pkg/"`},
	{Name: "ram", Line: 6, Token: FirstToken, Label: `"<joules> Joules power/energy-ram/"`},
}

// Energy is the energy consumed by one process, in Joules, as
// written by perf.
type Energy struct {
	Pkg, RAM string

	HasPkg, HasRAM bool
}

// ParseEnergy parses a perf stat energy report. As with
// ParseResourceUsage, fields that were found are returned along with
// an error describing the others.
func ParseEnergy(r io.Reader, path string) (Energy, error) {
	raw, err := EnergySchema.Extract(r, path)
	var e Energy
	e.Pkg, e.HasPkg = raw["pkg"]
	e.RAM, e.HasRAM = raw["ram"]
	return e, err
}
