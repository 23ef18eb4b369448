// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/seqan/raptor/evaltab"
	"github.com/seqan/raptor/internal/outfs"
	"github.com/seqan/raptor/runlog"
)

// usage returns a GNU time -v report.
func usage(elapsed, maxrss string) string {
	return fmt.Sprintf(`	Command being timed: "raptor"
	User time (seconds): 1.00
	System time (seconds): 0.10
	Percent of CPU this job got: 99%%
	Elapsed (wall clock) time (h:mm:ss or m:ss): %s
	Average shared text size (kbytes): 0
	Average unshared data size (kbytes): 0
	Average stack size (kbytes): 0
	Average total size (kbytes): 0
	Maximum resident set size (kbytes): %s
	Average resident set size (kbytes): 0
	Exit status: 0
`, elapsed, maxrss)
}

func perf(pkg, ram string) string {
	return "# started on Mon Jan  1 00:00:00 2024\n\n\n Performance counter stats for 'system wide':\n\n" +
		"          " + pkg + " Joules power/energy-pkg/\n" +
		"          " + ram + " Joules power/energy-ram/\n\n" +
		"      1.000 seconds time elapsed\n"
}

func write(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0666); err != nil {
			t.Fatal(err)
		}
	}
}

// raptorRuns writes two runs of the raptor variant.
func raptorRuns(t *testing.T) string {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"23_19_8g_build.log":   usage("1:02:03", "1536"),
		"23_19_8g_query.log":   usage("0:05.32", "4096"),
		"23_19_8g.out.time":    "IBF I/O\tReads I/O\tCompute\n1.52\t0.33\t12.07\n",
		"23_19_8g.out":         "#QUERY_NAME\tUSER_BINS\n0\t0\n1\t5,2\n",
		"23_19_16g_build.log":  usage("0:41.27", "2048"),
		"23_19_16g_query.log":  usage("2:04.50", "3584"),
		"23_19_16g.out.time":   "IBF I/O\tReads I/O\tCompute\n0.5\t0.1\t3.0\n",
		"23_19_16g.out":        "0\t0,1,\n",
		"23_19_16g_build.perf": perf("10.5", "1.25"),
		"bins.list":            "bin_0.fa\n",
	})
	return dir
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func run(t *testing.T, name string, cfg Config, out outfs.FS) (*evaltab.Table, error) {
	t.Helper()
	v, err := Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(v, cfg, out)
	if err != nil {
		t.Fatal(err)
	}
	a.Logger = quiet
	return a.Run(context.Background())
}

func csvOf(t *testing.T, tab *evaltab.Table) string {
	t.Helper()
	var buf bytes.Buffer
	if err := tab.ToCSV(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestRaptor(t *testing.T) {
	dir := raptorRuns(t)
	tab, err := run(t, "raptor", Config{Dir: dir, Bins: 4, Reads: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := `,Construct,Construct,Search,Search,Search,Search,Search,Search,Search
(w; k; size),Time [MM:SS],RAM [MiB],Overall [MM:SS.ss],IBF I/O [SS.ss],Reads I/O [SS.ss],Compute [SS.ss],RAM [MiB],FP,FN
(23; 19; 8g),62:03,2,0:05.32,1.52,0.33,12.07,4,2,1
(23; 19; 16g),0:41.27,2,2:04,0.5,0.1,3.0,4,1,0
`
	if got := csvOf(t, tab); got != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, got)
	}

	// A second pass over the same files gives the same bytes.
	again, err := run(t, "raptor", Config{Dir: dir, Bins: 4, Reads: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if csvOf(t, again) != want {
		t.Errorf("second run differs")
	}
}

func TestRaptorTruncatedStrict(t *testing.T) {
	dir := raptorRuns(t)
	report := strings.Join(strings.SplitAfter(usage("2:04.50", "3584"), "\n")[:9], "")
	write(t, dir, map[string]string{"23_19_16g_query.log": report})

	_, err := run(t, "raptor", Config{Dir: dir, Bins: 4, Reads: 8}, nil)
	if !errors.Is(err, runlog.ErrTruncated) {
		t.Fatalf("want ErrTruncated, got %v", err)
	}
	if msg := err.Error(); !strings.Contains(msg, "23_19_16g_query.log:10") || !strings.Contains(msg, "(23; 19; 16g)") {
		t.Errorf("error does not name the run and file: %s", msg)
	}
}

func TestRaptorTruncatedLenient(t *testing.T) {
	dir := raptorRuns(t)
	report := strings.Join(strings.SplitAfter(usage("2:04.50", "3584"), "\n")[:9], "")
	write(t, dir, map[string]string{"23_19_16g_query.log": report})
	os.Remove(filepath.Join(dir, "23_19_16g.out.time"))

	tab, err := run(t, "raptor", Config{Dir: dir, Bins: 4, Reads: 8, Policy: Lenient}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(tab.Rows))
	}
	row := tab.Rows[1]
	want := []string{"0:41.27", "2", "2:04", "-1", "-1", "-1", "-1", "1", "0"}
	if !reflect.DeepEqual(row.Cells, want) {
		t.Errorf("want cells %v, got %v", want, row.Cells)
	}
	if len(row.Warnings) != 2 {
		t.Fatalf("want 2 warnings, got %q", row.Warnings)
	}
	// Warnings follow column order: the timing columns come before
	// the search memory.
	if !strings.Contains(row.Warnings[0], "23_19_16g.out.time") {
		t.Errorf("unexpected warning %q", row.Warnings[0])
	}
	if !strings.Contains(row.Warnings[1], "23_19_16g_query.log:10: maxrss") {
		t.Errorf("unexpected warning %q", row.Warnings[1])
	}
	if len(tab.Rows[0].Warnings) != 0 {
		t.Errorf("unexpected warnings on complete row: %q", tab.Rows[0].Warnings)
	}
}

func TestRaptorMissingStrict(t *testing.T) {
	dir := raptorRuns(t)
	os.Remove(filepath.Join(dir, "23_19_8g.out.time"))
	_, err := run(t, "raptor", Config{Dir: dir, Bins: 4, Reads: 8}, nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("want fs.ErrNotExist, got %v", err)
	}
}

func TestRaptorEnergy(t *testing.T) {
	dir := raptorRuns(t)
	tab, err := run(t, "raptor", Config{Dir: dir, Bins: 4, Reads: 8, Energy: true, Policy: Lenient}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Columns) != 13 {
		t.Fatalf("want 13 columns, got %d", len(tab.Columns))
	}
	if c := tab.Columns[2]; c.Phase != "Construct" || c.Metric != "energy-pkg [J]" {
		t.Errorf("unexpected column %v", c)
	}
	// Only the 16g build was measured.
	if got := tab.Rows[1].Cells[2:4]; !reflect.DeepEqual(got, []string{"10.5", "1.25"}) {
		t.Errorf("want 16g build energy, got %v", got)
	}
	if got := tab.Rows[0].Cells[2:4]; !reflect.DeepEqual(got, []string{"-1", "-1"}) {
		t.Errorf("want sentinels for 8g build energy, got %v", got)
	}
}

func TestRaptorEnergyDir(t *testing.T) {
	dir := raptorRuns(t)
	edir := t.TempDir()
	write(t, edir, map[string]string{
		"23_19_8g_build.perf":  perf("1", "2"),
		"23_19_8g_query.perf":  perf("3", "4"),
		"23_19_16g_build.perf": perf("5", "6"),
		"23_19_16g_query.perf": perf("7", "8"),
	})
	tab, err := run(t, "raptor", Config{Dir: dir, EnergyDir: edir, Bins: 4, Reads: 8, Energy: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := tab.Rows[1].Cells[9:11]; !reflect.DeepEqual(got, []string{"7", "8"}) {
		t.Errorf("want query energy 7 8, got %v", got)
	}
}

func TestSkipAccuracy(t *testing.T) {
	dir := raptorRuns(t)
	write(t, dir, map[string]string{"23_19_8g.out": "not\tscored\n"})
	// Scoring is skipped, so an impossible configuration is fine.
	tab, err := run(t, "raptor", Config{Dir: dir, SkipAccuracy: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range tab.Rows {
		if got := row.Cells[7:]; !reflect.DeepEqual(got, []string{"-1", "-1"}) || len(row.Warnings) != 0 {
			t.Errorf("%s: want silent sentinels, got %v %q", row.Label, got, row.Warnings)
		}
	}
}

func TestDetails(t *testing.T) {
	dir := raptorRuns(t)
	out := t.TempDir()
	_, err := run(t, "raptor", Config{Dir: dir, Bins: 4, Reads: 8, Details: true}, outfs.Dir(out))
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{
		"23_19_8g.fp":  "1\t5,2\n",
		"23_19_8g.fn":  "1\t5,2\n",
		"23_19_16g.fp": "0\t0,1,\n",
		"23_19_16g.fn": "",
	} {
		data, err := os.ReadFile(filepath.Join(out, name))
		if err != nil || string(data) != want {
			t.Errorf("%s: want %q, got %q (%v)", name, want, data, err)
		}
	}

	v, _ := Lookup("raptor")
	if _, err := New(v, Config{Bins: 4, Reads: 8, Details: true}, nil); err == nil {
		t.Errorf("want error for details without output")
	}
}

func TestHIBF(t *testing.T) {
	dir := t.TempDir()
	header := "#0\t/bins/bin_0.fa\n#1\t/bins/bin_1.fa\n#2\t/bins/bin_2.fa\n#3\t/bins/bin_3.fa\n"
	var out strings.Builder
	out.WriteString(header)
	for r := 0; r < 10; r++ {
		// Reads 0 through 7, queried ten times, all found.
		for id := 0; id < 8; id++ {
			fmt.Fprintf(&out, "%d\t%d\n", id, id/2)
		}
	}
	out.WriteString("5\t0\n")
	write(t, dir, map[string]string{
		"32_32_hibf.out":        out.String(),
		"32_32_hibf.out.time":   "h\n1\t2\t3\n",
		"32_32_hibf_build.time": usage("10:00:00", "10240"),
		"32_32_hibf_query.time": usage("1:00.49", "1024"),
	})
	tab, err := run(t, "hibf", Config{Dir: dir, Bins: 4, Reads: 8, Repeats: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"600:00", "10", "1:00", "1", "2", "3", "1", "0", "0"}
	if got := tab.Rows[0].Cells; !reflect.DeepEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestHIBFUnmapped(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"32_32_hibf.out":        "#0\t/bins/bin_0.fa\n7\t0\n",
		"32_32_hibf.out.time":   "h\n1\t2\t3\n",
		"32_32_hibf_build.time": usage("0:01.00", "1024"),
		"32_32_hibf_query.time": usage("0:01.00", "1024"),
	})
	_, err := run(t, "hibf", Config{Dir: dir, Bins: 4, Reads: 8}, nil)
	if !errors.Is(err, runlog.ErrUnmappedBin) {
		t.Errorf("want ErrUnmappedBin, got %v", err)
	}
}

const mapperLog = "Filter loading time:\t0.000000\t2.04 sec\n" +
	"Reads filtering time:\t0.000000\t30.98 sec\n" +
	"Total reads:\t\t0\t1000\n" +
	"Mapped reads:\t\t0\t990\n" +
	"Avg reads per bin:\t\t12.9\n"

func TestYara(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"19_32G_build_fm.time":     usage("2:03:04", "20480"),
		"19_32G_build_ibf.time":    usage("12:00.20", "4096"),
		"19_8G_build_ibf.time":     usage("3:00.00", "1024"),
		"19_32G_mapper_100.time":   usage("1:00:01", "2048"),
		"19_32G_mapper_100.log":    mapperLog,
		"19_8G_mapper_250.time":    usage("0:30.00", "2048"),
		"19_8G_mapper_250.log":     mapperLog,
		"19_32G_mapper_250.time":   usage("0:40.00", "2048"),
		"19_32G_mapper_250.log":    mapperLog,
		"19_32G_mapper_100.unused": "",
	})
	tab, err := run(t, "yara", Config{Dir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var labels []string
	for _, r := range tab.Rows {
		labels = append(labels, r.Label)
	}
	if want := []string{"(19; 32; 100)", "(19; 8; 250)", "(19; 32; 250)"}; !reflect.DeepEqual(labels, want) {
		t.Errorf("want rows %v, got %v", want, labels)
	}
	want := []string{"12:00", "4", "2:3:04", "20", "1:0:01", "2.0", "31.0", "2", "10", "12"}
	if got := tab.Rows[0].Cells; !reflect.DeepEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}
	if tab.IndexName != "k; IBF size; read length" {
		t.Errorf("unexpected index name %q", tab.IndexName)
	}
}

func TestYaraSharedReread(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"19_32G_build_fm.time":   usage("2:03:04", "20480"),
		"19_32G_build_ibf.time":  usage("12:00.20", "4096"),
		"19_32G_mapper_100.time": usage("1:00:01", "2048"),
		"19_32G_mapper_100.log":  mapperLog,
	})
	v, err := Lookup("yara")
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(v, Config{Dir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	a.Logger = quiet
	indexer := func() []string {
		t.Helper()
		tab, err := a.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return tab.Rows[0].Cells[2:4]
	}

	if got, want := indexer(), []string{"2:3:04", "20"}; !reflect.DeepEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}
	// A later run sees the rewritten indexer report.
	write(t, dir, map[string]string{"19_32G_build_fm.time": usage("1:00:00", "40960")})
	if got, want := indexer(), []string{"1:0:00", "40"}; !reflect.DeepEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestCounts(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"23_19.counts": "4000\n100\n250\n101\n",
		"19_19.counts": "10\n1\n2\n",
	})
	tab, err := run(t, "counts", Config{Dir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := ",text size,max bin,avg bin,sum bin\nw19 k19,10,2,2,3\nw23 k19,4000,250,151,451\n"
	if got := csvOf(t, tab); got != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, got)
	}
}

func TestFrequencies(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"23_19_8g.out.minimiser_counts": "minimiser\tcount\n0\t5\n1\t3\n2\t1\n",
		"19_19_8g.out.minimiser_counts": "minimiser\tcount\n0\t9\n1\t2.0\n",
		"19_19_8g.out":                  "0\t0\n",
	})
	tab, err := run(t, "frequencies", Config{Dir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := ",w19 k19,w23 k19\n0,9,5\n1,2,3\n2,,1\n"
	if got := csvOf(t, tab); got != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, got)
	}
}

// thresholdRuns writes two threshold tables, one of them unparsable.
func thresholdRuns(t *testing.T) string {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"text_p250_w23_k19_e2_tau0.txt": "0\t10\n1\t12\n",
		"text_p250_w24_k19_e2_tau0.txt": "0\tx\n",
	})
	return dir
}

func TestThresholdsStrict(t *testing.T) {
	_, err := run(t, "thresholds", Config{Dir: thresholdRuns(t)}, nil)
	if !errors.Is(err, runlog.ErrMalformed) || !strings.Contains(err.Error(), "run w24 k19") {
		t.Errorf("want malformed error for w24 k19, got %v", err)
	}
}

func TestThresholdsLenient(t *testing.T) {
	tab, err := run(t, "thresholds", Config{Dir: thresholdRuns(t), Policy: Lenient}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := ",w23 k19,w24 k19\n0,10,-1\n1,12,\n"
	if got := csvOf(t, tab); got != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, got)
	}
	if w := tab.Warnings(); len(w) != 1 || !strings.Contains(w[0], "text_p250_w24_k19_e2_tau0.txt:1") {
		t.Errorf("want one warning naming the file, got %q", w)
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := run(t, "counts", Config{Dir: filepath.Join(t.TempDir(), "missing")}, nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("want fs.ErrNotExist, got %v", err)
	}
}

func TestCompile(t *testing.T) {
	for _, name := range Names() {
		v, err := Lookup(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := v.Compile(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	v, _ := Lookup("raptor")
	v.Columns[0].Field = "elapsed"
	if _, err := v.Compile(); err == nil || !strings.Contains(err.Error(), `no field "elapsed"`) {
		t.Errorf("want bad field error, got %v", err)
	}
	v, _ = Lookup("raptor")
	v.Sources[0].Template = "{window}_build.log"
	if _, err := v.Compile(); err == nil {
		t.Errorf("want template error")
	}
	v, _ = Lookup("raptor")
	v.Columns[0].Source = "nope"
	if _, err := v.Compile(); err == nil {
		t.Errorf("want unknown source error")
	}

	v, _ = Lookup("frequencies")
	v.Transpose = false
	if _, err := v.Compile(); err == nil {
		t.Errorf("want error for series source in a row table")
	}
	v, _ = Lookup("frequencies")
	v.Columns = append(v.Columns, v.Columns[0])
	if _, err := v.Compile(); err == nil {
		t.Errorf("want error for second transposed column")
	}
	v, _ = Lookup("counts")
	v.Transpose = true
	if _, err := v.Compile(); err == nil {
		t.Errorf("want error for transposed counts")
	}

	// Lookup returns copies.
	w, _ := Lookup("raptor")
	if w.Columns[0].Field != "time" || w.Sources[0].Template != "{w}_{k}_{size}_build.log" {
		t.Errorf("Lookup returned a shared variant")
	}
	if _, err := Lookup("blast"); err == nil {
		t.Errorf("want unknown variant error")
	}
}

func TestNewValidates(t *testing.T) {
	v, _ := Lookup("raptor")
	if _, err := New(v, Config{Bins: 0, Reads: 8}, nil); err == nil {
		t.Errorf("want error for zero bins")
	}
	v, _ = Lookup("counts")
	if _, err := New(v, Config{}, nil); err != nil {
		t.Errorf("counts needs no bins: %v", err)
	}
}

func TestSourceKind(t *testing.T) {
	for i, name := range kindNames {
		k, err := ParseSourceKind(name)
		if err != nil || int(k) != i || k.String() != name {
			t.Errorf("%s: got %v %v", name, k, err)
		}
	}
	var k SourceKind
	if err := k.UnmarshalText([]byte("perf")); err == nil {
		t.Errorf("want error for unknown kind")
	}
}
