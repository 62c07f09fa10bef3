// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.27
//

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	m "github.com/tinygnss/gosnap"
	"gopkg.in/yaml.v3"
)

// Collaborator factory. The signal-processing engine (correlator, coarse-time
// solver, frequency-bias primitive, elevation model) lives outside this
// repository; a build that links one sets this from an init function. Without
// it only the inspection mode is available.
var newCollaborators func() (m.Collaborators, error)

func main() {

	// Parse command line arguments
	args, err := parseArgs()
	if err != nil {
		m.PrintE(err)
		flag.Usage()
		os.Exit(1)
	}

	// Run the main application
	if err := runApplication(args); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Main application processing
func runApplication(args cmdOpt) error {

	// Load input files
	buf, times, temps, err := loadInputFiles(args)
	if err != nil {
		return fmt.Errorf("failed to load input files: %w", err)
	}

	// Prepare output file
	out, err := prepareOutput(args)
	if err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	defer closeOutput(out)

	if args.run {
		return runPipeline(args, buf, times, temps, out)
	}
	return inspect(args, buf, times, out)
}

// Load the snapshot buffer and the timestamp file
func loadInputFiles(args cmdOpt) ([]byte, []time.Time, []float64, error) {

	buf, err := os.ReadFile(args.binFn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read snapshot buffer: %w", err)
	}

	times, temps, err := readTimestamps(args.tsFn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read timestamp file: %w", err)
	}

	return buf, times, temps, nil
}

// Prepare output file
func prepareOutput(args cmdOpt) (io.WriteCloser, error) {

	// Use stdout if no output file is specified
	if len(args.posFn) == 0 {
		return &nopCloser{os.Stdout}, nil
	}

	// Create output file
	posf, err := os.Create(args.posFn)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return posf, nil
}

// Close output file
func closeOutput(out io.WriteCloser) {
	if out != nil {
		out.Close()
	}
}

// Dataset pre-flight: validate the buffer, decode a sample snapshot, list the
// day partition and the per-day navigation data availability.
func inspect(args cmdOpt, buf []byte, times []time.Time, w io.Writer) error {

	fmt.Fprintf(w, "%% inp file  : %s\n", args.binFn)
	fmt.Fprintf(w, "%% inp file  : %s\n", args.tsFn)
	fmt.Fprintf(w, "%% nav dir   : %s\n", args.navDir)
	fmt.Fprintf(w, "%% snapshots : %d (%d bytes)\n", len(times), len(buf))

	if err := m.CheckBufferSize(len(buf), len(times)); err != nil {
		return err
	}
	if len(times) == 0 {
		return nil
	}

	// Decode one snapshot as a sanity check
	chips := m.DecodeSnapshot(buf[:m.BytesPerSnapshot])
	pos := 0
	for _, c := range chips {
		if c > 0 {
			pos++
		}
	}
	fmt.Fprintf(w, "%% chips     : %d per snapshot (%d pos, %d neg in first)\n",
		len(chips), pos, len(chips)-pos)

	segs := m.PartitionDays(times)
	fmt.Fprintf(w, "%% days      : %d\n", len(segs))
	fmt.Fprintf(w, "%%  day      count   G E C\n")
	for _, seg := range segs {
		eph, err := m.LoadEpheSet(args.navDir, seg.Day)
		if err != nil {
			return err
		}
		marks := [len(m.SysAll)]byte{}
		for i, sys := range m.SysAll {
			if eph.Table(sys) != nil {
				marks[i] = '+'
			} else {
				marks[i] = '-'
			}
		}
		fmt.Fprintf(w, "%s %6d   %c %c %c\n", seg.Day, seg.Count, marks[0], marks[1], marks[2])
	}
	return nil
}

// Full positioning run. Requires a linked engine.
func runPipeline(args cmdOpt, buf []byte, times []time.Time, temps []float64, w io.Writer) error {

	if newCollaborators == nil {
		return fmt.Errorf("no signal-processing engine is linked into this build; only inspection (-run omitted) is available")
	}
	collab, err := newCollaborators()
	if err != nil {
		return fmt.Errorf("failed to set up the engine: %w", err)
	}

	opt := m.NewRunOpt()
	opt.MaxBatchSize = args.maxBatch
	opt.MaxVel = args.maxVel
	opt.Temperature = temps
	if args.knownIF != 0 {
		iff := args.knownIF
		opt.KnownIF = &iff
	}

	out, err := m.Process(buf, times, args.navDir, args.pos.Lat, args.pos.Lon, opt, collab)
	if err != nil {
		return err
	}

	printResults(args, out, w)
	return nil
}

// Output the result table
func printResults(args cmdOpt, out *m.Output, w io.Writer) {
	if !args.noHeader {
		fmt.Fprintf(w, "%% program   : %s\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(w, "%% inp file  : %s\n", args.binFn)
		fmt.Fprintf(w, "%% inp file  : %s\n", args.tsFn)
		fmt.Fprintf(w, "%% ref pos   : %s\n", args.pos.String())
		fmt.Fprintf(w, "%% freq off  : %.1f Hz\n", out.FreqOffset)
		fmt.Fprintf(w, "%%  UTC                      latitude(deg) longitude(deg)   sigma(m)\n")
	}
	for i := range out.Lat {
		fmt.Fprintf(w, "%s %13.9f %14.9f %10.1f\n",
			out.Time[i].UTC().Format("2006/01/02 15:04:05.000"),
			out.Lat[i], out.Lon[i], out.Unc[i])
	}
}

// nopCloser - WriteCloser that ignores close operations
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Structure to hold command line argument information
type cmdOpt struct {
	binFn    string
	tsFn     string
	navDir   string
	posFn    string
	pos      m.PosLLH
	maxBatch int
	maxVel   float64
	knownIF  float64
	run      bool
	noHeader bool
}

// Run configuration file (YAML)
type runConfig struct {
	Input        string   `yaml:"input"`
	Timestamps   string   `yaml:"timestamps"`
	NavDir       string   `yaml:"navigation_data"`
	Latitude     float64  `yaml:"latitude"`
	Longitude    float64  `yaml:"longitude"`
	MaxBatchSize int      `yaml:"max_batch_size"`
	MaxVelocity  float64  `yaml:"max_velocity"`
	KnownIF      *float64 `yaml:"intermediate_frequency"`
	Output       string   `yaml:"output"`
}

// loadRunConfig reads and parses a run configuration file.
func loadRunConfig(path string) (*runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run config: %w", err)
	}
	var cfg runConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse run config: %w", err)
	}
	return &cfg, nil
}

// Parse command line arguments
func parseArgs() (a cmdOpt, err error) {
	flag.Usage = func() {
		m.PrintA(`
[Usage]
	%s [Options]       -t times.txt -n nav_dir snapshots.bin   (inspect the dataset)
	%s [Options] -run  -t times.txt -n nav_dir -l "lat lon" snapshots.bin   (full positioning run)
	%s -c run.yaml     (all inputs from a run configuration file)

[Options]
`, filepath.Base(os.Args[0]), filepath.Base(os.Args[0]), filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	var cfgFn string
	rOpt := m.NewRunOpt()
	flag.StringVar(&a.tsFn, "t", "", "Timestamp file: one UTC timestamp per snapshot, optional temperature column.")
	flag.StringVar(&a.navDir, "n", "", "Directory with pre-processed navigation data files (YYYY_DDD_S.npy).")
	flag.StringVar(&a.posFn, "o", "", "Output file path. If not specified, output to stdout.")
	flag.StringVar(&cfgFn, "c", "", "Run configuration file (YAML). Command line options take precedence.")
	flag.Var(&a.pos, "l", "Initial latitude/longitude [deg]. Enclose in quotes like -l \"51.75 -1.25\"")
	flag.IntVar(&a.maxBatch, "b", rOpt.MaxBatchSize, "Maximum acquisition batch size. 0 processes each day in one batch.")
	flag.Float64Var(&a.maxVel, "v", rOpt.MaxVel, "Maximum receiver velocity [m/s].")
	flag.Float64Var(&a.knownIF, "if", 0, "Known intermediate frequency [Hz]. 0 estimates it from the data.")
	flag.BoolVar(&a.run, "run", false, "Run the full positioning pipeline instead of inspecting the dataset.")
	flag.BoolVar(&a.noHeader, "nh", false, "Do not output the header section of the result table.")
	var dbg int
	flag.IntVar(&dbg, "x", 0, "Debug information display. 0(OFF), 1(display), 2(detailed display)")
	flag.Parse()
	m.DBG_ = dbg

	// Fill unset values from the run configuration file
	if cfgFn != "" {
		cfg, err := loadRunConfig(cfgFn)
		if err != nil {
			return a, err
		}
		applyConfig(&a, cfg)
	}

	switch flag.NArg() {
	case 0:
		if a.binFn == "" {
			return a, fmt.Errorf("no snapshot buffer file specified")
		}
	case 1:
		a.binFn = flag.Arg(0)
	default:
		return a, fmt.Errorf("too many arguments")
	}
	if a.tsFn == "" {
		return a, fmt.Errorf("no timestamp file specified (-t)")
	}
	if a.navDir == "" {
		return a, fmt.Errorf("no navigation data directory specified (-n)")
	}
	return
}

// Unset command line values fall back to the configuration file.
func applyConfig(a *cmdOpt, cfg *runConfig) {
	if a.binFn == "" {
		a.binFn = cfg.Input
	}
	if a.tsFn == "" {
		a.tsFn = cfg.Timestamps
	}
	if a.navDir == "" {
		a.navDir = cfg.NavDir
	}
	if a.posFn == "" {
		a.posFn = cfg.Output
	}
	if a.pos.Lat == 0 && a.pos.Lon == 0 {
		a.pos.Lat = cfg.Latitude
		a.pos.Lon = cfg.Longitude
	}
	if a.maxBatch == 0 {
		a.maxBatch = cfg.MaxBatchSize
	}
	if a.maxVel == m.NewRunOpt().MaxVel && cfg.MaxVelocity > 0 {
		a.maxVel = cfg.MaxVelocity
	}
	if a.knownIF == 0 && cfg.KnownIF != nil {
		a.knownIF = *cfg.KnownIF
	}
}

// Read the timestamp file: one line per snapshot, an RFC 3339 timestamp
// optionally followed by a temperature reading [degC]. Returns nil for the
// temperatures when no line carries one.
func readTimestamps(fn string) ([]time.Time, []float64, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	times := []time.Time{}
	temps := []float64{}
	haveTemp := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		t, err := parseTime(fields[0])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", len(times)+1, err)
		}
		times = append(times, t)
		if len(fields) >= 2 {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: bad temperature: %w", len(times), err)
			}
			temps = append(temps, v)
			haveTemp = true
		} else {
			temps = append(temps, math.NaN())
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if !haveTemp {
		return times, nil, nil
	}
	return times, temps, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006/01/02T15:04:05", s)
}
