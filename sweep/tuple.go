// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sweep

import (
	"fmt"
	"strings"
)

// MaxFields is the largest number of fields a Tuple can hold.
const MaxFields = 4

// A Tuple is the sequence of parameter values identifying one
// benchmark run, such as window size, k-mer size and index size.
//
// Tuples are comparable with == and can be used as map keys. Two
// Tuples are equal if they have the same values in the same order.
type Tuple struct {
	n    int
	vals [MaxFields]string
}

// MakeTuple returns the Tuple of vals. It panics if more than
// MaxFields values are given.
func MakeTuple(vals ...string) Tuple {
	if len(vals) > MaxFields {
		panic(fmt.Sprintf("tuple of %d values exceeds %d fields", len(vals), MaxFields))
	}
	var t Tuple
	t.n = copy(t.vals[:], vals)
	return t
}

// Len returns the number of values in t.
func (t Tuple) Len() int {
	return t.n
}

// Get returns the i'th value of t.
func (t Tuple) Get(i int) string {
	if i < 0 || i >= t.n {
		panic(fmt.Sprintf("field %d out of range for tuple of %d", i, t.n))
	}
	return t.vals[i]
}

// Values returns a copy of the values of t.
func (t Tuple) Values() []string {
	return append([]string(nil), t.vals[:t.n]...)
}

// String returns the values of t separated by underscores, the way
// they appear in file names.
func (t Tuple) String() string {
	return strings.Join(t.vals[:t.n], "_")
}

var labelReplacer = strings.NewReplacer(",", ";", "'", "", `"`, "")

// Label returns t formatted as "(v1; v2; ...)" for use as a row
// label. Commas become semicolons and quotes are removed so that the
// label is a single safe field in comma-separated output.
func (t Tuple) Label() string {
	return labelReplacer.Replace("(" + strings.Join(t.vals[:t.n], ", ") + ")")
}

// Expand replaces each "{name}" in tmpl with the value of the field
// called name, where names gives the field names of t in order.
func (t Tuple) Expand(tmpl string, names []string) (string, error) {
	var buf strings.Builder
	for {
		i := strings.IndexByte(tmpl, '{')
		if i < 0 {
			break
		}
		j := strings.IndexByte(tmpl[i:], '}')
		if j < 0 {
			return "", fmt.Errorf("template %q: unclosed {", tmpl)
		}
		name := tmpl[i+1 : i+j]
		k := indexOf(names, name)
		if k < 0 || k >= t.n {
			return "", fmt.Errorf("template %q: unknown field {%s}", tmpl, name)
		}
		buf.WriteString(tmpl[:i])
		buf.WriteString(t.vals[k])
		tmpl = tmpl[i+j+1:]
	}
	buf.WriteString(tmpl)
	return buf.String(), nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
