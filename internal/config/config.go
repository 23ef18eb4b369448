// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the settings of an evaluation from a YAML file
// and the environment.
//
// Settings are resolved in order of increasing precedence: built-in
// defaults, the YAML file, RAPTOR_EVAL_* environment variables (which
// may come from a .env file), and finally command-line flags, which
// the command applies itself.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/seqan/raptor/aggregate"
	"github.com/seqan/raptor/runlog"
)

// EnvPrefix prefixes the names of environment variables read by
// ApplyEnv.
const EnvPrefix = "RAPTOR_EVAL_"

// Settings are the resolved settings of one evaluation.
type Settings struct {
	// Variant names a built-in variant. It is ignored if Define is
	// set.
	Variant string `yaml:"variant"`
	// Define is a variant given in full.
	Define *aggregate.Variant `yaml:"define,omitempty"`

	Dir       string `yaml:"dir"`
	EnergyDir string `yaml:"energy_dir,omitempty"`
	Out       string `yaml:"out"`
	// Output is the table's file name. If empty, the variant's
	// default is used.
	Output string `yaml:"output,omitempty"`

	Bins    int64 `yaml:"bins"`
	Reads   int64 `yaml:"reads"`
	Repeats int64 `yaml:"repeats"`

	Energy       bool `yaml:"energy"`
	Details      bool `yaml:"details"`
	SkipAccuracy bool `yaml:"skip_accuracy"`

	Policy   string `yaml:"policy"`
	Rounding string `yaml:"rounding"`
	Format   string `yaml:"format"`

	// DB is an optional "driver:dsn" to export the table to.
	DB string `yaml:"db,omitempty"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Variant:  "raptor",
		Dir:      ".",
		Out:      ".",
		Bins:     1024,
		Reads:    1048576,
		Repeats:  1,
		Policy:   aggregate.Strict.String(),
		Rounding: runlog.RoundHalfEven.String(),
		Format:   "csv",
	}
}

// Load reads the YAML file at path over s. Keys absent from the file
// keep their current values.
func (s *Settings) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return s.Parse(data)
}

// Parse decodes YAML data over s.
func (s *Settings) Parse(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config YAML: %w", err)
	}
	return nil
}

// LoadDotEnv loads environment variables from the .env file at path.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("skipping .env", "path", path)
		return nil
	}
	return err
}

// ApplyEnv overrides s with the RAPTOR_EVAL_* variables returned by
// getenv. Unset and empty variables are ignored.
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int64) error {
		v := getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	flag := func(name string, dst *bool) error {
		v := getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("VARIANT", &s.Variant)
	str("DIR", &s.Dir)
	str("ENERGY_DIR", &s.EnergyDir)
	str("OUT", &s.Out)
	str("OUTPUT", &s.Output)
	str("POLICY", &s.Policy)
	str("ROUNDING", &s.Rounding)
	str("FORMAT", &s.Format)
	str("DB", &s.DB)
	return errors.Join(
		num("BINS", &s.Bins),
		num("READS", &s.Reads),
		num("REPEATS", &s.Repeats),
		flag("ENERGY", &s.Energy),
		flag("DETAILS", &s.Details),
		flag("SKIP_ACCURACY", &s.SkipAccuracy),
	)
}

// ResolveVariant returns the variant selected by s.
func (s *Settings) ResolveVariant() (*aggregate.Variant, error) {
	if s.Define != nil {
		if s.Define.Name == "" {
			s.Define.Name = "custom"
		}
		return s.Define, nil
	}
	return aggregate.Lookup(s.Variant)
}

// Aggregate returns the aggregation configuration described by s.
func (s *Settings) Aggregate() (aggregate.Config, error) {
	policy, err := ParsePolicy(s.Policy)
	if err != nil {
		return aggregate.Config{}, err
	}
	rounding, err := runlog.ParseRounding(s.Rounding)
	if err != nil {
		return aggregate.Config{}, err
	}
	return aggregate.Config{
		Dir:          s.Dir,
		EnergyDir:    s.EnergyDir,
		Bins:         s.Bins,
		Reads:        s.Reads,
		Repeats:      s.Repeats,
		Energy:       s.Energy,
		Details:      s.Details,
		SkipAccuracy: s.SkipAccuracy,
		Policy:       policy,
		Rounding:     rounding,
	}, nil
}

// ParsePolicy parses "strict" or "lenient".
func ParsePolicy(s string) (aggregate.Policy, error) {
	switch s {
	case "", "strict":
		return aggregate.Strict, nil
	case "lenient":
		return aggregate.Lenient, nil
	}
	return 0, fmt.Errorf("unknown policy %q (want strict or lenient)", s)
}
