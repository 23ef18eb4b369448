// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classify scores the output of a read classification run
// against the bins the reads were simulated from.
//
// A classification stream has one line per read:
//
//	<read id>\t<bin>,<bin>,...[\t<threshold>\t<count>]
//
// Reads are simulated so that the true bin of read id r is
//
//	(r mod Reads) div (Reads / Bins)
//
// Lines starting with "#" are headers. When the run was built from
// a layout, headers of the form "#<user bin>\t<path>/bin_<n>.<ext>"
// map the simulated bin n onto the user bin id reported in the output.
package classify

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/seqan/raptor/runlog"
)

// Config is the configuration of a scoring pass.
type Config struct {
	Bins  int64 // number of simulated bins
	Reads int64 // number of simulated reads

	// Repeats is the number of times each read was queried. The
	// counts of an Outcome are divided by Repeats in Averaged.
	Repeats int64

	// UseTruthMap translates true bins through the user bin map
	// built from header lines.
	UseTruthMap bool

	// If non-nil, FalsePositives receives each line that produced
	// a false positive and FalseNegatives each line that produced a
	// false negative.
	FalsePositives io.Writer
	FalseNegatives io.Writer
}

// Validate reports whether c describes a possible simulation.
func (c *Config) Validate() error {
	switch {
	case c.Bins <= 0:
		return fmt.Errorf("bin count must be positive, got %d", c.Bins)
	case c.Reads < c.Bins:
		return fmt.Errorf("read count %d is smaller than bin count %d", c.Reads, c.Bins)
	case c.Repeats < 0:
		return fmt.Errorf("repeat count must not be negative, got %d", c.Repeats)
	}
	return nil
}

// TrueBin returns the bin read id was simulated from. Ids wrap around
// modulo the read count, negative ones included.
func (c *Config) TrueBin(id int64) int64 {
	return ((id%c.Reads + c.Reads) % c.Reads) / (c.Reads / c.Bins)
}

// An Outcome counts the classification events of one stream.
type Outcome struct {
	TruePositives  int64
	FalsePositives int64
	FalseNegatives int64

	Lines    int64 // data lines, including unparsable ones
	Comments int64 // header lines
}

// Averaged returns o with each count divided by repeats, rounded
// toward zero. A repeats value below 2 returns o unchanged.
func (o Outcome) Averaged(repeats int64) Outcome {
	if repeats < 2 {
		return o
	}
	o.TruePositives /= repeats
	o.FalsePositives /= repeats
	o.FalseNegatives /= repeats
	return o
}

// A TruthMap maps simulated bin indexes to user bin ids.
type TruthMap map[int64]int64

var binFileRE = regexp.MustCompile(`^bin_(\d+)\..*$`)

// AddHeader adds the mapping in a header line of the form
// "#<user bin>\t<path>". It reports whether line was such a header;
// malformed headers are ignored.
func (m TruthMap) AddHeader(line string) bool {
	f := strings.Split(strings.TrimSpace(line), "\t")
	if len(f) != 2 || len(f[0]) < 2 {
		return false
	}
	ub, err := strconv.ParseInt(f[0][1:], 10, 64)
	if err != nil {
		return false
	}
	sm := binFileRE.FindStringSubmatch(path.Base(f[1]))
	if sm == nil {
		return false
	}
	bin, err := strconv.ParseInt(sm[1], 10, 64)
	if err != nil {
		return false
	}
	m[bin] = ub
	return true
}

// A Scorer accumulates an Outcome line by line.
type Scorer struct {
	cfg   Config
	truth TruthMap
	path  string
	line  int
	out   Outcome
	bins  []int64
}

// NewScorer returns a Scorer for cfg. Errors refer to the stream by
// path.
func NewScorer(cfg Config, path string) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scorer{cfg: cfg, path: path}
	if cfg.UseTruthMap {
		s.truth = make(TruthMap)
	}
	return s, nil
}

// Outcome returns the counts accumulated so far.
func (s *Scorer) Outcome() Outcome {
	return s.out
}

// Add scores one line of a classification stream.
func (s *Scorer) Add(line string) error {
	s.line++
	if strings.HasPrefix(line, "#") {
		s.out.Comments++
		if s.truth != nil {
			s.truth.AddHeader(line)
		}
		return nil
	}
	s.out.Lines++
	id, bins, ok := s.parse(line)
	if !ok {
		s.out.FalseNegatives++
		return s.detail(s.cfg.FalseNegatives, line)
	}

	want := s.cfg.TrueBin(id)
	if s.truth != nil {
		ub, ok := s.truth[want]
		if !ok {
			return &runlog.ReportError{
				Path:  s.path,
				Line:  s.line,
				Field: "bin",
				Want:  fmt.Sprintf("a header mapping bin %d", want),
				Got:   strings.TrimSpace(line),
				Err:   runlog.ErrUnmappedBin,
			}
		}
		want = ub
	}

	if contains(bins, want) {
		s.out.TruePositives++
		if extra := int64(len(bins)) - 1; extra > 0 {
			s.out.FalsePositives += extra
			return s.detail(s.cfg.FalsePositives, line)
		}
		return nil
	}
	s.out.FalseNegatives++
	if err := s.detail(s.cfg.FalseNegatives, line); err != nil {
		return err
	}
	if len(bins) > 0 {
		s.out.FalsePositives += int64(len(bins))
		return s.detail(s.cfg.FalsePositives, line)
	}
	return nil
}

// parse splits a data line into its read id and predicted bins.
// Empty bin tokens, as left by a trailing comma, are dropped.
func (s *Scorer) parse(line string) (int64, []int64, bool) {
	f := strings.Split(strings.TrimSpace(line), "\t")
	if len(f) < 2 {
		return 0, nil, false
	}
	id, err := strconv.ParseInt(f[0], 10, 64)
	if err != nil {
		return 0, nil, false
	}
	s.bins = s.bins[:0]
	for _, tok := range strings.Split(f[1], ",") {
		if tok == "" {
			continue
		}
		b, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return 0, nil, false
		}
		s.bins = append(s.bins, b)
	}
	return id, s.bins, true
}

func (s *Scorer) detail(w io.Writer, line string) error {
	if w == nil {
		return nil
	}
	if _, err := io.WriteString(w, strings.TrimSpace(line)+"\n"); err != nil {
		return fmt.Errorf("%s:%d: writing detail: %w", s.path, s.line, err)
	}
	return nil
}

func contains(bins []int64, b int64) bool {
	for _, x := range bins {
		if x == b {
			return true
		}
	}
	return false
}

// Score reads a classification stream from r and returns its counts.
// The counts are not averaged over repeats.
func Score(r io.Reader, path string, cfg Config) (Outcome, error) {
	s, err := NewScorer(cfg, path)
	if err != nil {
		return Outcome{}, err
	}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if aerr := s.Add(strings.TrimSuffix(line, "\n")); aerr != nil {
				return s.Outcome(), aerr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return s.Outcome(), fmt.Errorf("%s: %w", path, err)
		}
	}
	return s.Outcome(), nil
}
