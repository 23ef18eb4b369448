// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seqan/raptor/runlog"
	"github.com/seqan/raptor/sweep"
)

// A SourceKind is the format of a file produced by a benchmark run.
type SourceKind int

const (
	// ResourceUsage is a GNU time -v report. Fields: time, ram.
	ResourceUsage SourceKind = iota
	// InternalTiming is a search tool's timing breakdown. Fields:
	// ibf, reads, compute.
	InternalTiming
	// Classification is a search tool's output. Fields: tp, fp, fn.
	Classification
	// Energy is a perf stat energy report. Fields: pkg, ram.
	Energy
	// MapperLog is a distributed read mapper's log. Fields: load,
	// filter, unmapped, perbin.
	MapperLog
	// Counts is a bin size listing. Fields: text, max, avg, sum.
	Counts
	// Series is a tab-separated listing whose second column becomes
	// one column of a transposed table. Field: values.
	Series
)

var kindNames = []string{"time", "timing", "output", "energy", "mapper", "counts", "series"}

var kindFields = [][]string{
	ResourceUsage:  {"time", "ram"},
	InternalTiming: {"ibf", "reads", "compute"},
	Classification: {"tp", "fp", "fn"},
	Energy:         {"pkg", "ram"},
	MapperLog:      {"load", "filter", "unmapped", "perbin"},
	Counts:         {"text", "max", "avg", "sum"},
	Series:         {"values"},
}

func (k SourceKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// ParseSourceKind parses the name of a SourceKind as returned by
// String.
func ParseSourceKind(s string) (SourceKind, error) {
	for i, name := range kindNames {
		if name == s {
			return SourceKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown source kind %q (want one of %s)", s, strings.Join(kindNames, ", "))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SourceKind) UnmarshalText(text []byte) error {
	v, err := ParseSourceKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// A Source is one file a benchmark run leaves behind.
type Source struct {
	// Name identifies the source in Columns.
	Name string     `yaml:"name"`
	Kind SourceKind `yaml:"kind"`

	// Template is the file name, with "{field}" replaced by the
	// run's value of that sweep field. A template without fields
	// names a file shared by all runs, which is parsed only once.
	Template string `yaml:"template"`

	// Energy sources are read from the energy directory.
	Energy bool `yaml:"energy,omitempty"`

	// Header skips the first line of a Series source.
	Header bool `yaml:"header,omitempty"`
}

func (s *Source) shared() bool {
	return !strings.Contains(s.Template, "{")
}

// A Column is one metric of the table, taken from a field of a source.
type Column struct {
	Phase  string `yaml:"phase"`
	Metric string `yaml:"metric"`
	Source string `yaml:"source"`
	Field  string `yaml:"field"`

	// Sentinel replaces the value if it cannot be determined. The
	// default is "-1".
	Sentinel string `yaml:"sentinel,omitempty"`

	// Energy columns are only included when energy measurements
	// are enabled.
	Energy bool `yaml:"energy,omitempty"`
}

// DefaultSentinel is the value of an undetermined cell.
const DefaultSentinel = "-1"

func (c *Column) sentinel() string {
	if c.Sentinel == "" {
		return DefaultSentinel
	}
	return c.Sentinel
}

// A Variant describes one kind of benchmark sweep: how its runs are
// named, which files each run leaves and which columns the table
// has.
type Variant struct {
	Name string `yaml:"name"`

	// Pattern matches the name of one file per run. Its capture
	// groups are the sweep fields named by Fields.
	Pattern string   `yaml:"pattern"`
	Fields  []string `yaml:"fields"`

	// Order sorts runs, as "field" or "field@num" keys. If empty,
	// runs sort by their field values as strings.
	Order []string `yaml:"order,omitempty"`

	// Label is a template for row labels. If empty, rows are
	// labeled "(v1; v2; ...)".
	Label string `yaml:"label,omitempty"`
	// IndexName describes the row labels in the table header.
	IndexName string `yaml:"index,omitempty"`

	// Output is the default file name of the table.
	Output string `yaml:"output,omitempty"`

	// HoursClock keeps hours in elapsed times instead of folding
	// them into minutes.
	HoursClock bool `yaml:"hours_clock,omitempty"`
	// TruthMap translates true bins through the user bin headers of
	// classification output.
	TruthMap bool `yaml:"truth_map,omitempty"`

	// Transpose makes each run a column instead of a row. The
	// variant then has a single Series source and a single column,
	// which supplies the sentinel, and rows are numbered from 0.
	Transpose bool `yaml:"transpose,omitempty"`

	Sources []Source `yaml:"sources"`
	Columns []Column `yaml:"columns"`
}

// Compile checks v and returns its file name pattern.
func (v *Variant) Compile() (*sweep.Pattern, error) {
	p, err := sweep.Compile(v.Pattern, v.Fields...)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", v.Name, err)
	}
	if p.Order, err = p.ParseOrder(v.Order...); err != nil {
		return nil, fmt.Errorf("variant %s: %w", v.Name, err)
	}
	zero := sweep.MakeTuple(v.Fields...)
	if v.Label != "" {
		if _, err := zero.Expand(v.Label, v.Fields); err != nil {
			return nil, fmt.Errorf("variant %s: label: %w", v.Name, err)
		}
	}
	sources := make(map[string]*Source)
	for i := range v.Sources {
		s := &v.Sources[i]
		if sources[s.Name] != nil {
			return nil, fmt.Errorf("variant %s: duplicate source %q", v.Name, s.Name)
		}
		if int(s.Kind) >= len(kindFields) || s.Kind < 0 {
			return nil, fmt.Errorf("variant %s: source %s: bad kind %d", v.Name, s.Name, s.Kind)
		}
		if _, err := zero.Expand(s.Template, v.Fields); err != nil {
			return nil, fmt.Errorf("variant %s: source %s: %w", v.Name, s.Name, err)
		}
		sources[s.Name] = s
	}
	if len(v.Columns) == 0 {
		return nil, fmt.Errorf("variant %s: no columns", v.Name)
	}
	for _, c := range v.Columns {
		s := sources[c.Source]
		if s == nil {
			return nil, fmt.Errorf("variant %s: column %s/%s: unknown source %q", v.Name, c.Phase, c.Metric, c.Source)
		}
		if !hasField(s.Kind, c.Field) {
			return nil, fmt.Errorf("variant %s: column %s/%s: %s source %s has no field %q (want one of %s)",
				v.Name, c.Phase, c.Metric, s.Kind, s.Name, c.Field, strings.Join(kindFields[s.Kind], ", "))
		}
		if (s.Kind == Series) != v.Transpose {
			return nil, fmt.Errorf("variant %s: column %s/%s: series sources need a transposed variant and nothing else does", v.Name, c.Phase, c.Metric)
		}
	}
	if v.Transpose && len(v.Columns) != 1 {
		return nil, fmt.Errorf("variant %s: transposed variant has %d columns, want 1", v.Name, len(v.Columns))
	}
	return p, nil
}

func hasField(k SourceKind, field string) bool {
	for _, f := range kindFields[k] {
		if f == field {
			return true
		}
	}
	return false
}

// Names returns the names of the built-in variants.
func Names() []string {
	var names []string
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a copy of the built-in variant called name.
func Lookup(name string) (*Variant, error) {
	v, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown variant %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	c := *v
	c.Fields = append([]string(nil), v.Fields...)
	c.Order = append([]string(nil), v.Order...)
	c.Sources = append([]Source(nil), v.Sources...)
	c.Columns = append([]Column(nil), v.Columns...)
	return &c, nil
}

// usageOptions returns the resource usage options for v.
func (v *Variant) usageOptions(r runlog.Rounding) runlog.Options {
	opts := runlog.Options{Clock: runlog.MinutesClock, Rounding: r}
	if v.HoursClock {
		opts.Clock = runlog.HoursClock
	}
	return opts
}
