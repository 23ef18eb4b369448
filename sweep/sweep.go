// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sweep discovers the parameter combinations of a benchmark
// sweep from the names of the files it left in a directory.
//
// A Pattern is a regular expression whose capture groups are the
// sweep parameters. For example, the pattern
//
//	^(\d+)_(\d+)_(\d+\w)\.out$
//
// with fields w, k and size matches "23_19_8g.out" and yields the
// Tuple (23, 19, 8g).
package sweep

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// An OrderKey is one level of the sort order of Tuples.
type OrderKey struct {
	Field int // index of the field to compare

	// Numeric compares fields by the number at their start, so
	// "8g" < "16g". Fields without a leading number sort after
	// those with one.
	Numeric bool
}

// A Pattern matches file names and extracts the parameters encoded in
// them.
type Pattern struct {
	re *regexp.Regexp

	// Fields names the capture groups of the pattern in order.
	Fields []string

	// Order is the sort order of discovered Tuples. Ties, and an
	// empty Order, are resolved by comparing all fields as strings
	// in field order.
	Order []OrderKey
}

// Compile parses a file name pattern with one capture group per field.
// The pattern must match entire names and have between 2 and
// MaxFields capture groups.
func Compile(expr string, fields ...string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	n := re.NumSubexp()
	if n < 2 || n > MaxFields {
		return nil, fmt.Errorf("pattern %q has %d capture groups, want 2 to %d", expr, n, MaxFields)
	}
	if len(fields) != n {
		return nil, fmt.Errorf("pattern %q has %d capture groups but %d field names", expr, n, len(fields))
	}
	return &Pattern{re: re, Fields: fields}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string, fields ...string) *Pattern {
	p, err := Compile(expr, fields...)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source text of the pattern.
func (p *Pattern) String() string {
	return p.re.String()
}

// Match reports whether name matches p in full and returns its Tuple.
func (p *Pattern) Match(name string) (Tuple, bool) {
	m := p.re.FindStringSubmatchIndex(name)
	if m == nil || m[0] != 0 || m[1] != len(name) {
		return Tuple{}, false
	}
	var t Tuple
	for i := 1; i <= p.re.NumSubexp(); i++ {
		if m[2*i] >= 0 {
			t.vals[t.n] = name[m[2*i]:m[2*i+1]]
		}
		t.n++
	}
	return t, true
}

// ParseOrder parses sort keys of the form "field" or "field@num"
// (compare numerically) or "field@alpha" (compare as strings) into an
// Order for p.
func (p *Pattern) ParseOrder(keys ...string) ([]OrderKey, error) {
	var order []OrderKey
	for _, key := range keys {
		name, kind, _ := strings.Cut(key, "@")
		i := indexOf(p.Fields, name)
		if i < 0 {
			return nil, fmt.Errorf("sort key %q: no field %q in %v", key, name, p.Fields)
		}
		switch kind {
		case "", "alpha":
			order = append(order, OrderKey{Field: i})
		case "num":
			order = append(order, OrderKey{Field: i, Numeric: true})
		default:
			return nil, fmt.Errorf("sort key %q: unknown order %q (want alpha or num)", key, kind)
		}
	}
	return order, nil
}

// Discover returns the distinct Tuples of all entries of dir whose
// names match p, sorted by p.Order. Entries that do not match are
// ignored.
//
// If dir does not exist or cannot be read, the error wraps
// fs.ErrNotExist or fs.ErrPermission, respectively.
func Discover(dir string, p *Pattern) ([]Tuple, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover runs: %w", err)
	}
	seen := make(map[Tuple]bool)
	var tuples []Tuple
	for _, ent := range ents {
		t, ok := p.Match(ent.Name())
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		tuples = append(tuples, t)
	}
	p.Sort(tuples)
	return tuples, nil
}

// Sort sorts tuples by p.Order.
func (p *Pattern) Sort(tuples []Tuple) {
	sort.Slice(tuples, func(i, j int) bool {
		return p.Less(tuples[i], tuples[j])
	})
}

// Less reports whether a sorts before b in p's order.
func (p *Pattern) Less(a, b Tuple) bool {
	for _, key := range p.Order {
		x, y := a.vals[key.Field], b.vals[key.Field]
		if x == y {
			continue
		}
		if key.Numeric {
			if c := compareNum(x, y); c != 0 {
				return c < 0
			}
		}
		return x < y
	}
	for i := 0; i < a.n && i < b.n; i++ {
		if a.vals[i] != b.vals[i] {
			return a.vals[i] < b.vals[i]
		}
	}
	return a.n < b.n
}

// compareNum compares the unsigned integers at the start of a and b.
func compareNum(a, b string) int {
	da, db := leadingDigits(a), leadingDigits(b)
	switch {
	case da == "" && db == "":
		return 0
	case da == "":
		return 1
	case db == "":
		return -1
	}
	da, db = strings.TrimLeft(da, "0"), strings.TrimLeft(db, "0")
	if len(da) != len(db) {
		if len(da) < len(db) {
			return -1
		}
		return 1
	}
	return strings.Compare(da, db)
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		i++
	}
	return s[:i]
}
