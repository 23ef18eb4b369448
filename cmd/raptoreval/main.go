// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Raptoreval summarizes the files left by a benchmark sweep of raptor
// or a related search tool as one comparison table.
//
// Usage:
//
//	raptoreval [flags]
//
// Each run of a sweep leaves a set of files whose names encode the
// run's parameters, such as 23_19_8g_build.log for window size 23,
// k-mer size 19 and an 8 GiB index. Raptoreval finds the runs in
// -dir, parses their resource usage reports, timing breakdowns,
// energy reports and search results, and writes one row per run.
//
// The layout of a sweep is selected with -variant:
//
//	raptor          an interleaved Bloom filter swept over (w; k; size)
//	hibf            a hierarchical index, whose results name user bins
//	yara            the distributed read mapper's filter over (k; size; read length)
//	yara-minimiser  as yara, with a window size
//	counts          bin size listings per (w; k)
//	frequencies     minimiser count histograms, one column per (w; k)
//	thresholds      threshold tables, one column per (w; k)
//
// A variant can also be defined in full in the file named by
// -config, under the key "define".
//
// Settings are taken from the variant's defaults, then the -config
// YAML file, then RAPTOR_EVAL_* environment variables (also read from
// the -env file if it exists), then flags. For example,
// RAPTOR_EVAL_BINS=64 is the same as -bins 64.
//
// By default, raptoreval stops at the first file that cannot be
// parsed, naming the file and the line layout it expected. With
// -lenient, the affected cells are filled with -1 and the problem is
// reported as a warning instead.
//
// With -format csv (the default), the table is written to the file
// named by -o in -out, which may be a directory or a Cloud Storage
// location gs://bucket/prefix. The first two rows of the CSV are the
// phase and metric headers. -format text and -format long print the
// table to standard output instead.
//
// -chart draws a bar chart of one column, named by its metric or as
// phase/metric, into -chart-out in -out. -db additionally stores the
// table in a SQL database, given as sqlite3:file or mysql:dsn.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"google.golang.org/api/option"

	"github.com/seqan/raptor/aggregate"
	"github.com/seqan/raptor/evaltab"
	"github.com/seqan/raptor/internal/config"
	"github.com/seqan/raptor/internal/outfs"
	"github.com/seqan/raptor/store"
	_ "github.com/seqan/raptor/store/sqlite3"
)

func main() {
	log.SetPrefix("raptoreval: ")
	log.SetFlags(0)
	err := raptoreval(context.Background(), os.Stdout, os.Stderr, os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func raptoreval(ctx context.Context, w, wErr io.Writer, args []string, getenv func(string) string) error {
	flags := flag.NewFlagSet("raptoreval", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: raptoreval [flags]\n\n")
		flags.PrintDefaults()
	}

	// f receives flag values. Only flags that were set override the
	// settings loaded from the configuration and environment.
	f := config.Default()
	flags.StringVar(&f.Variant, "variant", f.Variant, "sweep `variant`: "+strings.Join(aggregate.Names(), ", "))
	flags.StringVar(&f.Dir, "dir", f.Dir, "read runs from `directory`")
	flags.StringVar(&f.EnergyDir, "energy-dir", "", "read energy reports from `directory` (default -dir)")
	flags.StringVar(&f.Out, "out", f.Out, "write results to `location`, a directory or gs://bucket/prefix")
	flags.StringVar(&f.Output, "o", "", "table file `name` (default from the variant)")
	flags.Int64Var(&f.Bins, "bins", f.Bins, "number of bins reads were simulated from")
	flags.Int64Var(&f.Reads, "reads", f.Reads, "number of simulated reads")
	flags.Int64Var(&f.Repeats, "repeats", f.Repeats, "average accuracy over `n` queries of each read")
	flags.BoolVar(&f.Energy, "energy", false, "include energy columns")
	flags.BoolVar(&f.Details, "details", false, "write misclassified lines to <run>.fp and <run>.fn in -out")
	flags.BoolVar(&f.SkipAccuracy, "skip-accuracy", false, "do not score search results")
	flags.StringVar(&f.Rounding, "rounding", f.Rounding, "KiB to MiB `mode`: even or trunc")
	flags.StringVar(&f.Format, "format", f.Format, "output `format`: csv, text or long")
	flags.StringVar(&f.DB, "db", "", "also store the table in `driver:dsn`")
	var (
		configPath  = flags.String("config", "", "read settings from YAML `file`")
		envPath     = flags.String("env", ".env", "load environment variables from `file` if it exists")
		lenient     = flags.Bool("lenient", false, "fill unparsable metrics with -1 instead of failing")
		chartColumn = flags.String("chart", "", "draw a bar chart of `column`")
		chartOut    = flags.String("chart-out", "chart.svg", "chart file `name` in -out; the extension selects svg, png or pdf")
		credentials = flags.String("credentials", "", "Cloud Storage credentials `file`")
		quiet       = flags.Bool("q", false, "only log warnings")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		flags.Usage()
		return fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}

	level := slog.LevelInfo
	if *quiet {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(wErr, &slog.HandlerOptions{Level: level, ReplaceAttr: dropTime}))

	s := config.Default()
	if *configPath != "" {
		if err := s.Load(*configPath); err != nil {
			return err
		}
	}
	if err := config.LoadDotEnv(*envPath); err != nil {
		return err
	}
	if err := s.ApplyEnv(getenv); err != nil {
		return err
	}
	flags.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "variant":
			s.Variant, s.Define = f.Variant, nil
		case "dir":
			s.Dir = f.Dir
		case "energy-dir":
			s.EnergyDir = f.EnergyDir
		case "out":
			s.Out = f.Out
		case "o":
			s.Output = f.Output
		case "bins":
			s.Bins = f.Bins
		case "reads":
			s.Reads = f.Reads
		case "repeats":
			s.Repeats = f.Repeats
		case "energy":
			s.Energy = f.Energy
		case "details":
			s.Details = f.Details
		case "skip-accuracy":
			s.SkipAccuracy = f.SkipAccuracy
		case "rounding":
			s.Rounding = f.Rounding
		case "format":
			s.Format = f.Format
		case "db":
			s.DB = f.DB
		case "lenient":
			s.Policy = aggregate.Strict.String()
			if *lenient {
				s.Policy = aggregate.Lenient.String()
			}
		}
	})

	switch s.Format {
	case "csv", "text", "long":
	default:
		return fmt.Errorf("unknown format %q (want csv, text or long)", s.Format)
	}
	v, err := s.ResolveVariant()
	if err != nil {
		return err
	}
	cfg, err := s.Aggregate()
	if err != nil {
		return err
	}

	var out outfs.FS
	if s.Format == "csv" || s.Details || *chartColumn != "" {
		var opts []option.ClientOption
		if *credentials != "" {
			opts = append(opts, option.WithCredentialsFile(*credentials))
		}
		if out, err = outfs.Open(ctx, s.Out, opts...); err != nil {
			return err
		}
		if c, ok := out.(io.Closer); ok {
			defer c.Close()
		}
	}

	a, err := aggregate.New(v, cfg, out)
	if err != nil {
		return err
	}
	a.Logger = logger
	tab, err := a.Run(ctx)
	if err != nil {
		return err
	}
	if len(tab.Rows) == 0 {
		logger.Warn("no runs found", "dir", s.Dir, "variant", v.Name)
	}

	switch s.Format {
	case "csv":
		name := s.Output
		if name == "" {
			name = v.Output
		}
		if name == "" {
			name = "table.csv"
		}
		if err := create(ctx, out, name, tab.ToCSV); err != nil {
			return err
		}
		logger.Info("wrote table", "location", out.Location(name))
	case "text":
		if err := tab.ToText(w); err != nil {
			return err
		}
	case "long":
		if err := tab.ToLong(w); err != nil {
			return err
		}
	}

	if *chartColumn != "" {
		col, err := tab.Lookup(*chartColumn)
		if err != nil {
			return err
		}
		format := strings.TrimPrefix(path.Ext(*chartOut), ".")
		if err := create(ctx, out, *chartOut, func(w io.Writer) error { return tab.Chart(w, col, format) }); err != nil {
			return err
		}
		logger.Info("wrote chart", "column", tab.Columns[col].String(), "location", out.Location(*chartOut))
	}

	if s.DB != "" {
		if err := export(ctx, s.DB, v.Name, s.Dir, tab); err != nil {
			return fmt.Errorf("export to database: %w", err)
		}
		logger.Info("stored table", "db", strings.SplitN(s.DB, ":", 2)[0], "rows", len(tab.Rows))
	}
	return nil
}

// create writes the file name in out with write.
func create(ctx context.Context, out outfs.FS, name string, write func(io.Writer) error) error {
	wc, err := out.Create(ctx, name)
	if err != nil {
		return err
	}
	if err := write(wc); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

func export(ctx context.Context, target, variant, dir string, tab *evaltab.Table) error {
	db, err := store.Open(target)
	if err != nil {
		return err
	}
	defer db.Close()
	sweep, err := db.NewSweep(ctx, variant, dir)
	if err != nil {
		return err
	}
	return sweep.InsertTable(ctx, tab)
}

// dropTime removes timestamps from log records.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.Attr{}
	}
	return a
}
