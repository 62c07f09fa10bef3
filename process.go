// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.27
//

// Top-level orchestration: turns a multi-day snapshot stream into per-snapshot
// position fixes, one day at a time.

package gosnap

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RunOpt configures one processing run.
type RunOpt struct {
	MaxBatchSize int       // Max snapshots per acquisition batch; 0 means unbounded
	Temperature  []float64 // Optional per-snapshot front-end temperature [degC]
	MaxVel       float64   // Max receiver velocity [m/s]
	KnownIF      *float64  // Known intermediate frequency [Hz]; set to skip the bias estimator
}

// NewRunOpt creates a RunOpt with default values.
func NewRunOpt() *RunOpt {
	return &RunOpt{
		MaxBatchSize: 0,   // One batch per day
		Temperature:  nil, // No temperature compensation
		MaxVel:       4.0, // Walking-speed logger [m/s]
		KnownIF:      nil, // Estimate the IF from the data
	}
}

// Output holds the results of one run: one element per input snapshot plus a
// single frequency offset for the whole run.
type Output struct {
	Lat        []float64   // Estimated latitude [deg], NaN where unresolved
	Lon        []float64   // Estimated longitude [deg], NaN where unresolved
	Time       []time.Time // Corrected UTC timestamps (input timestamp where unresolved)
	Unc        []float64   // Horizontal 1-sigma uncertainty [m], +Inf where unresolved
	FreqOffset float64     // Front-end frequency offset, actual IF - nominal IF [Hz]
}

func newOutput(times []time.Time) *Output {
	n := len(times)
	out := &Output{
		Lat:  make([]float64, n),
		Lon:  make([]float64, n),
		Time: make([]time.Time, n),
		Unc:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		out.Lat[i] = math.NaN()
		out.Lon[i] = math.NaN()
		out.Unc[i] = math.Inf(1)
	}
	copy(out.Time, times)
	return out
}

// Process estimates receiver positions for a batch of GNSS signal snapshots.
//
// Parameters:
//   - buf: linear buffer with binary snapshots, BytesPerSnapshot bytes each
//   - times: UTC timestamp per snapshot; must be globally monotonic
//     (increasing or decreasing)
//   - navDir: directory with pre-processed navigation data files named
//     "YYYY_DDD_S.npy" for S in G, E, C
//   - lat, lon: initial position associated with the first snapshot [deg]
//   - opt: run options; nil selects the defaults
//   - collab: the external signal-processing primitives
//
// Returns one Output element per input snapshot. A run either completes with
// one record per snapshot (NaN/Inf where a fix could not be resolved) plus
// one frequency offset, or fails up front on a precondition violation with no
// output produced.
func Process(
	buf []byte,
	times []time.Time,
	navDir string,
	lat, lon float64,
	opt *RunOpt,
	collab Collaborators,
) (*Output, error) {

	n := len(times)
	if err := CheckBufferSize(len(buf), n); err != nil {
		return nil, err
	}
	if opt == nil {
		opt = NewRunOpt()
	}
	if opt.Temperature != nil && len(opt.Temperature) != n {
		return nil, fmt.Errorf("got %d timestamps but %d temperature readings", n, len(opt.Temperature))
	}

	// Initial height for the reference position. The first call may take a
	// while (model load).
	hei, err := collab.Elev.Elevation(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("elevation lookup failed: %w", err)
	}
	ref := PosLLH{Lat: lat, Lon: lon, Hei: hei}

	// Front-end intermediate frequency, estimated once per run unless known
	ifFreq, freqOffset, err := resolveIF(buf, times, navDir, ref, opt, collab)
	if err != nil {
		return nil, err
	}

	out := newOutput(times)
	out.FreqOffset = freqOffset

	chips := DecodeSnapshots(buf)
	posOpt := NewPosOpt()
	posOpt.MaxVel = opt.MaxVel

	// Process day by day, threading the carry-state from each day's solve
	// into the next. Days run strictly sequentially for that reason.
	state := initDayState(ref)
	cursor := 0 // Snapshots processed so far
	for _, seg := range PartitionDays(times) {
		eph, err := LoadEpheSet(navDir, seg.Day)
		if err != nil {
			return nil, err
		}
		if len(eph.Available()) == 0 {
			// Unprocessable day: the defaults stay in place and the cursor
			// still advances. The run continues with the next day.
			PrintD(1, "no navigation data for %s, skipping day\n", seg.Day)
			cursor += seg.Count
			continue
		}

		dets, err := acquireDay(
			collab.Acq,
			chips[cursor:cursor+seg.Count],
			times[cursor:cursor+seg.Count],
			ifFreq[cursor:cursor+seg.Count],
			eph,
			state.Pos,
			opt.MaxBatchSize)
		if err != nil {
			return nil, fmt.Errorf("acquisition for %s failed: %w", seg.Day, err)
		}

		// One positioning call per day. The returned carry-state becomes the
		// next day's input unchanged.
		res, next, err := collab.Pos.Position(dets, times[cursor:cursor+seg.Count], state, posOpt)
		if err != nil {
			return nil, fmt.Errorf("positioning for %s failed: %w", seg.Day, err)
		}

		copy(out.Lat[cursor:], res.Lat)
		copy(out.Lon[cursor:], res.Lon)
		copy(out.Time[cursor:], res.Time)
		copy(out.Unc[cursor:], res.Unc)

		state = next
		cursor += seg.Count
	}

	return out, nil
}

// resolveIF produces the per-snapshot intermediate frequency for the run and
// the single frequency-offset scalar. With a known IF the estimator is
// skipped entirely; otherwise the bias is estimated from the first snapshots
// and, when a temperature array is supplied and inliers exist, compensated
// per snapshot for temperature drift relative to the mean temperature of the
// inlier snapshots.
func resolveIF(
	buf []byte,
	times []time.Time,
	navDir string,
	ref PosLLH,
	opt *RunOpt,
	collab Collaborators,
) ([]float64, float64, error) {

	n := len(times)
	ifFreq := make([]float64, n)

	if opt.KnownIF != nil {
		for i := range ifFreq {
			ifFreq[i] = *opt.KnownIF
		}
		return ifFreq, *opt.KnownIF - NominalIF, nil
	}

	iff, inlierIdx, err := EstimateIF(buf, times, navDir, ref, collab.Acq, collab.FreqBias)
	if err != nil {
		return nil, 0, err
	}
	offset := iff - NominalIF
	PrintD(1, "estimated frequency offset: %.1f Hz\n", offset)

	if opt.Temperature != nil && len(inlierIdx) > 0 {
		tIn := make([]float64, len(inlierIdx))
		for i, k := range inlierIdx {
			tIn[i] = opt.Temperature[k]
		}
		refTemp := stat.Mean(tIn, nil)
		for i := range ifFreq {
			ifFreq[i] = iff + IF_TEMP_SLOPE*(opt.Temperature[i]-refTemp)
		}
	} else {
		for i := range ifFreq {
			ifFreq[i] = iff
		}
	}
	return ifFreq, offset, nil
}
