// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aggregate joins the files left by a benchmark sweep into a
// comparison table.
//
// A Variant names the files each run of a sweep produces and the
// columns of the table. For every run discovered in the input
// directory, an Aggregator parses each of the run's files once and
// assembles one row.
//
// Failures are handled according to a Policy. Under Strict, the first
// file that cannot be parsed aborts the table. Under Lenient, the
// cells that depend on it receive their column's sentinel and the
// failure is recorded as a warning on the row. Either way, a row is
// only added once all of its cells are filled.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/seqan/raptor/classify"
	"github.com/seqan/raptor/evaltab"
	"github.com/seqan/raptor/internal/outfs"
	"github.com/seqan/raptor/runlog"
	"github.com/seqan/raptor/sweep"
)

// A Policy selects how an Aggregator handles files that cannot be
// parsed.
type Policy int

const (
	// Strict aborts on the first failure.
	Strict Policy = iota
	// Lenient fills the affected cells with sentinels.
	Lenient
)

func (p Policy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

// Config is the configuration of one aggregation.
type Config struct {
	Dir       string // directory holding the runs' files
	EnergyDir string // directory holding energy reports; Dir if empty

	Bins    int64 // number of bins reads were simulated from
	Reads   int64 // number of simulated reads
	Repeats int64 // times each read was queried; 0 or 1 for once

	Energy       bool // include energy columns
	Details      bool // write misclassified lines to <run>.fp and <run>.fn
	SkipAccuracy bool // fill accuracy columns with sentinels without scoring

	Policy   Policy
	Rounding runlog.Rounding
}

// An Aggregator builds a table from the runs of one sweep.
type Aggregator struct {
	variant *Variant
	pattern *sweep.Pattern
	cfg     Config
	out     outfs.FS
	columns []Column

	// Logger receives progress and warnings. If nil,
	// slog.Default() is used.
	Logger *slog.Logger

	shared map[string]result
}

// New returns an Aggregator for variant v. Detail files are created
// in out, which may be nil if cfg.Details is false.
func New(v *Variant, cfg Config, out outfs.FS) (*Aggregator, error) {
	p, err := v.Compile()
	if err != nil {
		return nil, err
	}
	if cfg.Details && out == nil {
		return nil, errors.New("detail files requested without an output location")
	}
	a := &Aggregator{variant: v, pattern: p, cfg: cfg, out: out, shared: make(map[string]result)}
	for _, c := range v.Columns {
		if c.Energy && !cfg.Energy {
			continue
		}
		a.columns = append(a.columns, c)
	}
	if a.needsScoring() {
		if err := a.classifyConfig().Validate(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Aggregator) needsScoring() bool {
	if a.cfg.SkipAccuracy {
		return false
	}
	for _, c := range a.columns {
		if a.source(c.Source).Kind == Classification {
			return true
		}
	}
	return false
}

func (a *Aggregator) classifyConfig() *classify.Config {
	return &classify.Config{
		Bins:        a.cfg.Bins,
		Reads:       a.cfg.Reads,
		Repeats:     a.cfg.Repeats,
		UseTruthMap: a.variant.TruthMap,
	}
}

func (a *Aggregator) source(name string) *Source {
	for i := range a.variant.Sources {
		if a.variant.Sources[i].Name == name {
			return &a.variant.Sources[i]
		}
	}
	panic("unknown source " + name)
}

// Columns returns the columns of the tables built by a.
func (a *Aggregator) Columns() []evaltab.Column {
	cols := make([]evaltab.Column, len(a.columns))
	for i, c := range a.columns {
		cols[i] = evaltab.Column{Phase: c.Phase, Metric: c.Metric, Sentinel: c.sentinel()}
	}
	return cols
}

// Run discovers the runs in the input directory and returns their
// table, with rows in the variant's order.
//
// Files shared by all runs are parsed once per call.
func (a *Aggregator) Run(ctx context.Context) (*evaltab.Table, error) {
	a.shared = make(map[string]result)
	tuples, err := sweep.Discover(a.cfg.Dir, a.pattern)
	if err != nil {
		return nil, err
	}
	log := a.logger()
	log.Info("discovered runs", "variant", a.variant.Name, "dir", a.cfg.Dir, "runs", len(tuples))
	if a.variant.Transpose {
		return a.transposed(ctx, tuples)
	}

	tab := &evaltab.Table{IndexName: a.variant.IndexName, Columns: a.Columns()}
	for i, t := range tuples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := a.Row(ctx, t)
		if err != nil {
			return nil, err
		}
		log.Info("processed run", "run", i+1, "of", len(tuples), "label", row.Label, "warnings", len(row.Warnings))
		if err := tab.Append(row); err != nil {
			return nil, err
		}
	}
	return tab, nil
}

// transposed returns a table with one column per run, holding the
// run's series, and one row per position in the series. Cells past
// the end of a shorter series are empty.
func (a *Aggregator) transposed(ctx context.Context, tuples []sweep.Tuple) (*evaltab.Table, error) {
	log := a.logger()
	c := a.variant.Columns[0]
	src := a.source(c.Source)
	tab := &evaltab.Table{IndexName: a.variant.IndexName}
	var (
		series   [][]string
		warnings []string
		n        int
	)
	for i, t := range tuples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := a.Label(t)
		tab.Columns = append(tab.Columns, evaltab.Column{Phase: c.Phase, Metric: label, Sentinel: c.sentinel()})
		vals, err := a.series(src, t)
		if err != nil {
			if a.cfg.Policy == Strict {
				return nil, fmt.Errorf("run %s: %w", label, err)
			}
			vals = []string{c.sentinel()}
			warnings = append(warnings, label+": "+err.Error())
			log.Warn("using sentinel values", "label", label, "source", src.Name, "err", err)
		}
		series = append(series, vals)
		n = max(n, len(vals))
		log.Info("processed run", "run", i+1, "of", len(tuples), "label", label, "values", len(vals))
	}
	for i := 0; i < n; i++ {
		row := evaltab.Row{Label: strconv.Itoa(i), Cells: make([]string, len(series))}
		for j, vals := range series {
			if i < len(vals) {
				row.Cells[j] = vals[i]
			}
		}
		if i == 0 {
			row.Warnings = warnings
		}
		if err := tab.Append(row); err != nil {
			return nil, err
		}
	}
	return tab, nil
}

// series reads the Series source s of run t.
func (a *Aggregator) series(s *Source, t sweep.Tuple) ([]string, error) {
	name, err := t.Expand(s.Template, a.variant.Fields)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(a.cfg.Dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return runlog.ParseSeries(f, path, s.Header)
}

// Label returns the row label of run t.
func (a *Aggregator) Label(t sweep.Tuple) string {
	if a.variant.Label == "" {
		return t.Label()
	}
	l, err := t.Expand(a.variant.Label, a.variant.Fields)
	if err != nil {
		// Compile checked the template.
		panic(err)
	}
	return evaltab.SanitizeLabel(l)
}

// Row parses the files of run t and returns its row.
func (a *Aggregator) Row(ctx context.Context, t sweep.Tuple) (evaltab.Row, error) {
	row := evaltab.Row{Label: a.Label(t), Cells: make([]string, len(a.columns))}
	results := make(map[string]result)
	warned := make(map[string]bool)
	for i, c := range a.columns {
		res, ok := results[c.Source]
		if !ok {
			var err error
			res, err = a.parse(ctx, a.source(c.Source), t)
			if err != nil {
				return evaltab.Row{}, err
			}
			results[c.Source] = res
		}
		if v, ok := res.vals[c.Field]; ok {
			row.Cells[i] = v
			continue
		}
		row.Cells[i] = c.sentinel()
		if res.skipped {
			continue
		}
		if res.err == nil {
			res.err = fmt.Errorf("%s: no field %q", c.Source, c.Field)
		}
		if a.cfg.Policy == Strict {
			return evaltab.Row{}, fmt.Errorf("run %s: %w", row.Label, res.err)
		}
		if !warned[c.Source] {
			warned[c.Source] = true
			row.Warnings = append(row.Warnings, res.err.Error())
			a.logger().Warn("using sentinel values", "label", row.Label, "source", c.Source, "err", res.err)
		}
	}
	return row, nil
}

// A result holds the fields parsed from one source. Fields that
// could not be parsed are absent from vals and err says why.
type result struct {
	vals    map[string]string
	err     error
	skipped bool // not parsed on purpose
}

// parse parses source s of run t. It only returns an error for
// failures unrelated to the content of the file, such as being
// unable to create detail files.
func (a *Aggregator) parse(ctx context.Context, s *Source, t sweep.Tuple) (result, error) {
	if s.Kind == Classification && a.cfg.SkipAccuracy {
		return result{skipped: true}, nil
	}
	name, err := t.Expand(s.Template, a.variant.Fields)
	if err != nil {
		return result{}, err
	}
	dir := a.cfg.Dir
	if s.Energy && a.cfg.EnergyDir != "" {
		dir = a.cfg.EnergyDir
	}
	path := filepath.Join(dir, name)
	if s.shared() {
		if res, ok := a.shared[path]; ok {
			return res, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return result{err: err}, nil
	}
	defer f.Close()

	var res result
	switch s.Kind {
	case ResourceUsage:
		res = parseUsage(f, path, a.variant.usageOptions(a.cfg.Rounding))
	case InternalTiming:
		res = parseTiming(f, path)
	case Energy:
		res = parseEnergy(f, path)
	case MapperLog:
		res = parseMapper(f, path)
	case Counts:
		res = parseCounts(f, path)
	case Classification:
		res, err = a.score(ctx, f, path, t)
		if err != nil {
			return result{}, err
		}
	default:
		return result{}, fmt.Errorf("source %s: unknown kind %v", s.Name, s.Kind)
	}
	if s.shared() {
		a.shared[path] = res
	}
	return res, nil
}

func (a *Aggregator) score(ctx context.Context, r io.Reader, path string, t sweep.Tuple) (res result, err error) {
	cfg := a.classifyConfig()
	if a.cfg.Details {
		var fp, fn io.WriteCloser
		closeDetail := func(w io.Closer) {
			if cerr := w.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		if fp, err = a.out.Create(ctx, t.String()+".fp"); err != nil {
			return result{}, err
		}
		defer closeDetail(fp)
		if fn, err = a.out.Create(ctx, t.String()+".fn"); err != nil {
			return result{}, err
		}
		defer closeDetail(fn)
		cfg.FalsePositives, cfg.FalseNegatives = fp, fn
	}
	o, serr := classify.Score(r, path, *cfg)
	if serr != nil {
		return result{err: serr}, nil
	}
	o = o.Averaged(a.cfg.Repeats)
	return result{vals: map[string]string{
		"tp": itoa(o.TruePositives),
		"fp": itoa(o.FalsePositives),
		"fn": itoa(o.FalseNegatives),
	}}, nil
}

func parseUsage(r io.Reader, path string, opts runlog.Options) result {
	u, err := runlog.ParseResourceUsage(r, path, opts)
	res := result{vals: make(map[string]string), err: err}
	if u.HasElapsed {
		res.vals["time"] = u.Elapsed
	}
	if u.HasPeak {
		res.vals["ram"] = itoa(u.PeakMiB)
	}
	return res
}

func parseTiming(r io.Reader, path string) result {
	t, err := runlog.ParseInternalTiming(r, path)
	if err != nil {
		return result{err: err}
	}
	return result{vals: map[string]string{"ibf": t.IndexIO, "reads": t.ReadsIO, "compute": t.Compute}}
}

func parseEnergy(r io.Reader, path string) result {
	e, err := runlog.ParseEnergy(r, path)
	res := result{vals: make(map[string]string), err: err}
	if e.HasPkg {
		res.vals["pkg"] = e.Pkg
	}
	if e.HasRAM {
		res.vals["ram"] = e.RAM
	}
	return res
}

func parseMapper(r io.Reader, path string) result {
	s, err := runlog.ParseMapperLog(r, path)
	res := result{vals: make(map[string]string), err: err}
	if s.HasLoad {
		res.vals["load"] = s.LoadTime
	}
	if s.HasFilter {
		res.vals["filter"] = s.FilterTime
	}
	if s.HasUnmapped {
		res.vals["unmapped"] = itoa(s.Unmapped)
	}
	if s.HasPerBin {
		res.vals["perbin"] = itoa(s.PerBin)
	}
	return res
}

func parseCounts(r io.Reader, path string) result {
	c, err := runlog.ParseCounts(r, path)
	if err != nil {
		return result{err: err}
	}
	return result{vals: map[string]string{
		"text": itoa(c.TextSize),
		"max":  itoa(c.Max),
		"avg":  itoa(c.Avg),
		"sum":  itoa(c.Sum),
	}}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
