// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqan/raptor/aggregate"
	"github.com/seqan/raptor/runlog"
)

func TestParse(t *testing.T) {
	t.Run("overrides present keys", func(t *testing.T) {
		s := Default()
		err := s.Parse([]byte(`
variant: hibf
dir: /dev/shm/runs/1024
bins: 64
reads: 8192
repeats: 10
policy: lenient
`))
		require.NoError(t, err)
		assert.Equal(t, "hibf", s.Variant)
		assert.Equal(t, "/dev/shm/runs/1024", s.Dir)
		assert.Equal(t, int64(64), s.Bins)
		assert.Equal(t, int64(8192), s.Reads)
		assert.Equal(t, int64(10), s.Repeats)
		assert.Equal(t, ".", s.Out)
		assert.Equal(t, "csv", s.Format)
	})

	t.Run("empty document", func(t *testing.T) {
		s := Default()
		require.NoError(t, s.Parse(nil))
		assert.Equal(t, Default(), s)
	})

	t.Run("unknown key", func(t *testing.T) {
		s := Default()
		err := s.Parse([]byte("binz: 4\n"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "binz")
	})

	t.Run("inline variant", func(t *testing.T) {
		s := Default()
		err := s.Parse([]byte(`
define:
  pattern: '^(\d+)_(\d+)\.counts$'
  fields: [w, k]
  label: "w{w} k{k}"
  sources:
    - name: counts
      kind: counts
      template: "{w}_{k}.counts"
  columns:
    - metric: max bin
      source: counts
      field: max
`))
		require.NoError(t, err)
		v, err := s.ResolveVariant()
		require.NoError(t, err)
		assert.Equal(t, "custom", v.Name)
		require.Len(t, v.Sources, 1)
		assert.Equal(t, aggregate.Counts, v.Sources[0].Kind)
		_, err = v.Compile()
		assert.NoError(t, err)
	})

	t.Run("bad source kind", func(t *testing.T) {
		s := Default()
		err := s.Parse([]byte(`
define:
  sources:
    - name: x
      kind: stopwatch
`))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "stopwatch")
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte("variant: yara\nrounding: trunc\n"), 0o644))

	s := Default()
	require.NoError(t, s.Load(path))
	assert.Equal(t, "yara", s.Variant)

	cfg, err := s.Aggregate()
	require.NoError(t, err)
	assert.Equal(t, runlog.Truncate, cfg.Rounding)

	err = Default().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RAPTOR_EVAL_VARIANT":       "counts",
		"RAPTOR_EVAL_BINS":          "256",
		"RAPTOR_EVAL_ENERGY":        "true",
		"RAPTOR_EVAL_SKIP_ACCURACY": "1",
		"RAPTOR_EVAL_OUT":           "gs://runs/raptor",
		"RAPTOR_EVAL_DIR":           "",
	}
	s := Default()
	require.NoError(t, s.Parse([]byte("variant: hibf\nbins: 64\ndir: runs\n")))
	require.NoError(t, s.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "counts", s.Variant)
	assert.Equal(t, int64(256), s.Bins)
	assert.True(t, s.Energy)
	assert.True(t, s.SkipAccuracy)
	assert.False(t, s.Details)
	assert.Equal(t, "gs://runs/raptor", s.Out)
	assert.Equal(t, "runs", s.Dir, "empty variables are ignored")
}

func TestApplyEnvErrors(t *testing.T) {
	env := map[string]string{
		"RAPTOR_EVAL_READS":   "lots",
		"RAPTOR_EVAL_DETAILS": "maybe",
	}
	err := Default().ApplyEnv(func(k string) string { return env[k] })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAPTOR_EVAL_READS")
	assert.Contains(t, err.Error(), "RAPTOR_EVAL_DETAILS")
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("RAPTOR_EVAL_TEST_DOTENV=42\n"), 0o644))
		t.Setenv("RAPTOR_EVAL_TEST_DOTENV", "")
		os.Unsetenv("RAPTOR_EVAL_TEST_DOTENV")
		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "42", os.Getenv("RAPTOR_EVAL_TEST_DOTENV"))
	})
}

func TestAggregate(t *testing.T) {
	s := Default()
	s.Policy = "lenient"
	s.EnergyDir = "perf"
	cfg, err := s.Aggregate()
	require.NoError(t, err)
	assert.Equal(t, aggregate.Lenient, cfg.Policy)
	assert.Equal(t, runlog.RoundHalfEven, cfg.Rounding)
	assert.Equal(t, int64(1024), cfg.Bins)
	assert.Equal(t, int64(1048576), cfg.Reads)
	assert.Equal(t, "perf", cfg.EnergyDir)

	s.Policy = "sloppy"
	_, err = s.Aggregate()
	assert.Error(t, err)
}

func TestResolveVariant(t *testing.T) {
	s := Default()
	v, err := s.ResolveVariant()
	require.NoError(t, err)
	assert.Equal(t, "raptor", v.Name)

	s.Variant = "nope"
	_, err = s.ResolveVariant()
	assert.Error(t, err)
}
