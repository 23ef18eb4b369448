// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

// Built-in variants, one per benchmark suite.
var presets = map[string]*Variant{
	"raptor":         raptorVariant,
	"hibf":           hibfVariant,
	"yara":           yaraVariant(false),
	"yara-minimiser": yaraVariant(true),
	"counts":         countsVariant,
	"frequencies":    frequenciesVariant,
	"thresholds":     thresholdsVariant,
}

// raptorVariant evaluates a sweep over window, k-mer and index size
// of a single interleaved Bloom filter.
var raptorVariant = &Variant{
	Name:      "raptor",
	Pattern:   `^(\d+)_(\d+)_(\d+\w)\.out$`,
	Fields:    []string{"w", "k", "size"},
	Order:     []string{"size@num"},
	IndexName: "(w; k; size)",
	Output:    "table.csv",
	Sources: []Source{
		{Name: "build", Kind: ResourceUsage, Template: "{w}_{k}_{size}_build.log"},
		{Name: "build-energy", Kind: Energy, Template: "{w}_{k}_{size}_build.perf", Energy: true},
		{Name: "query", Kind: ResourceUsage, Template: "{w}_{k}_{size}_query.log"},
		{Name: "query-energy", Kind: Energy, Template: "{w}_{k}_{size}_query.perf", Energy: true},
		{Name: "timing", Kind: InternalTiming, Template: "{w}_{k}_{size}.out.time"},
		{Name: "output", Kind: Classification, Template: "{w}_{k}_{size}.out"},
	},
	Columns: []Column{
		{Phase: "Construct", Metric: "Time [MM:SS]", Source: "build", Field: "time"},
		{Phase: "Construct", Metric: "RAM [MiB]", Source: "build", Field: "ram"},
		{Phase: "Construct", Metric: "energy-pkg [J]", Source: "build-energy", Field: "pkg", Energy: true},
		{Phase: "Construct", Metric: "energy-ram [J]", Source: "build-energy", Field: "ram", Energy: true},
		{Phase: "Search", Metric: "Overall [MM:SS.ss]", Source: "query", Field: "time"},
		{Phase: "Search", Metric: "IBF I/O [SS.ss]", Source: "timing", Field: "ibf"},
		{Phase: "Search", Metric: "Reads I/O [SS.ss]", Source: "timing", Field: "reads"},
		{Phase: "Search", Metric: "Compute [SS.ss]", Source: "timing", Field: "compute"},
		{Phase: "Search", Metric: "RAM [MiB]", Source: "query", Field: "ram"},
		{Phase: "Search", Metric: "energy-pkg [J]", Source: "query-energy", Field: "pkg", Energy: true},
		{Phase: "Search", Metric: "energy-ram [J]", Source: "query-energy", Field: "ram", Energy: true},
		{Phase: "Search", Metric: "FP", Source: "output", Field: "fp"},
		{Phase: "Search", Metric: "FN", Source: "output", Field: "fn"},
	},
}

// hibfVariant evaluates a hierarchical index built from a layout,
// whose output names user bins and whose reads were queried
// repeatedly.
var hibfVariant = &Variant{
	Name:      "hibf",
	Pattern:   `^(\d+)_(\d+)_(\w+)\.out$`,
	Fields:    []string{"w", "k", "size"},
	IndexName: "(w; k; size)",
	Output:    "table.csv",
	TruthMap:  true,
	Sources: []Source{
		{Name: "build", Kind: ResourceUsage, Template: "{w}_{k}_{size}_build.time"},
		{Name: "query", Kind: ResourceUsage, Template: "{w}_{k}_{size}_query.time"},
		{Name: "timing", Kind: InternalTiming, Template: "{w}_{k}_{size}.out.time"},
		{Name: "output", Kind: Classification, Template: "{w}_{k}_{size}.out"},
	},
	Columns: []Column{
		{Phase: "Construct", Metric: "Time [MM:SS]", Source: "build", Field: "time"},
		{Phase: "Construct", Metric: "RAM [MiB]", Source: "build", Field: "ram"},
		{Phase: "Search", Metric: "Overall [MM:SS.ss]", Source: "query", Field: "time"},
		{Phase: "Search", Metric: "IBF I/O [SS.ss]", Source: "timing", Field: "ibf"},
		{Phase: "Search", Metric: "Reads I/O [SS.ss]", Source: "timing", Field: "reads"},
		{Phase: "Search", Metric: "Compute [SS.ss]", Source: "timing", Field: "compute"},
		{Phase: "Search", Metric: "RAM [MiB]", Source: "query", Field: "ram"},
		{Phase: "Search", Metric: "FP", Source: "output", Field: "fp"},
		{Phase: "Search", Metric: "FN", Source: "output", Field: "fn"},
	},
}

// yaraVariant evaluates a distributed read mapper whose filter index
// is swept over k-mer size, index size and read length. The
// minimiser version adds the window size.
func yaraVariant(minimiser bool) *Variant {
	v := &Variant{
		Name:       "yara",
		Pattern:    `^(\d+)_(\d+)G_mapper_(\d+)\.time$`,
		Fields:     []string{"k", "size", "reads"},
		Order:      []string{"k@num", "reads@num", "size@num"},
		IndexName:  "k; IBF size; read length",
		Output:     "table.csv",
		HoursClock: true,
		Sources: []Source{
			{Name: "ibf", Kind: ResourceUsage, Template: "{k}_{size}G_build_ibf.time"},
			{Name: "indexer", Kind: ResourceUsage, Template: "19_32G_build_fm.time"},
			{Name: "mapper", Kind: ResourceUsage, Template: "{k}_{size}G_mapper_{reads}.time"},
			{Name: "mapper-log", Kind: MapperLog, Template: "{k}_{size}G_mapper_{reads}.log"},
		},
		Columns: []Column{
			{Phase: "IBF", Metric: "Time", Source: "ibf", Field: "time"},
			{Phase: "IBF", Metric: "RAM", Source: "ibf", Field: "ram"},
			{Phase: "Indexer", Metric: "Time", Source: "indexer", Field: "time"},
			{Phase: "Indexer", Metric: "RAM", Source: "indexer", Field: "ram"},
			{Phase: "Mapper", Metric: "Time", Source: "mapper", Field: "time"},
			{Phase: "Mapper", Metric: "IBF Load Time", Source: "mapper-log", Field: "load"},
			{Phase: "Mapper", Metric: "IBF Filter Time", Source: "mapper-log", Field: "filter"},
			{Phase: "Mapper", Metric: "RAM", Source: "mapper", Field: "ram"},
			{Phase: "Mapper", Metric: "Unmapped Reads", Source: "mapper-log", Field: "unmapped"},
			{Phase: "Mapper", Metric: "Processed Reads per Bin", Source: "mapper-log", Field: "perbin"},
		},
	}
	if minimiser {
		v.Name = "yara-minimiser"
		v.Pattern = `^(\d+)_(\d+)_(\d+)G_mapper_(\d+)\.time$`
		v.Fields = []string{"w", "k", "size", "reads"}
		v.Order = []string{"w@num", "reads@num", "size@num"}
		v.IndexName = "w; k; IBF size; read length"
		v.Sources[0].Template = "{w}_{k}_{size}G_build_ibf.time"
		v.Sources[2].Template = "{w}_{k}_{size}G_mapper_{reads}.time"
		v.Sources[3].Template = "{w}_{k}_{size}G_mapper_{reads}.log"
	}
	return v
}

// countsVariant summarizes the bin sizes counted for each window and
// k-mer size.
var countsVariant = &Variant{
	Name:    "counts",
	Pattern: `^(\d+)_(\d+)\.counts$`,
	Fields:  []string{"w", "k"},
	Label:   "w{w} k{k}",
	Output:  "counts.csv",
	Sources: []Source{
		{Name: "counts", Kind: Counts, Template: "{w}_{k}.counts"},
	},
	Columns: []Column{
		{Metric: "text size", Source: "counts", Field: "text"},
		{Metric: "max bin", Source: "counts", Field: "max"},
		{Metric: "avg bin", Source: "counts", Field: "avg"},
		{Metric: "sum bin", Source: "counts", Field: "sum"},
	},
}

// frequenciesVariant lines up the minimiser count histograms of each
// window and k-mer size, one column per run.
var frequenciesVariant = &Variant{
	Name:      "frequencies",
	Pattern:   `^(\d+)_(\d+)_(\d+\w)\.out\.minimiser_counts$`,
	Fields:    []string{"w", "k", "size"},
	Order:     []string{"w@num", "k@num", "size@num"},
	Label:     "w{w} k{k}",
	Output:    "frequencies.csv",
	Transpose: true,
	Sources: []Source{
		{Name: "counts", Kind: Series, Template: "{w}_{k}_{size}.out.minimiser_counts", Header: true},
	},
	Columns: []Column{
		{Source: "counts", Field: "values"},
	},
}

// thresholdsVariant lines up the thresholds computed for each window
// and k-mer size, one column per run.
var thresholdsVariant = &Variant{
	Name:      "thresholds",
	Pattern:   `^text_p(\d+)_w(\d+)_k(\d+)_e(\d+)_tau0\.txt$`,
	Fields:    []string{"p", "w", "k", "e"},
	Order:     []string{"w@num", "k@num"},
	Label:     "w{w} k{k}",
	Output:    "thresholds.csv",
	Transpose: true,
	Sources: []Source{
		{Name: "thresholds", Kind: Series, Template: "text_p{p}_w{w}_k{k}_e{e}_tau0.txt"},
	},
	Columns: []Column{
		{Source: "thresholds", Field: "values"},
	},
}
