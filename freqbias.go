// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.26
//

// Estimates the additive frequency bias of the RF front-end from a few
// snapshots at the start of a recording, before any positioning is attempted.

package gosnap

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Tuning of the adaptive narrowing search
const (
	IF_MAX_SAMPLES = 100    // Hard cap on snapshots fed to the estimator, across all days
	IF_MIN_INLIERS = 5      // Early stop once this many samples agree with the running median
	IF_INLIER_BAND = 25.0   // Agreement band around the running median [Hz]
	IF_WINDOW_BASE = 1300.0 // Initial half-width of the search window [Hz]
	IF_WINDOW_STEP = 150.0  // Window shrink per inlier [Hz]
	IF_WINDOW_BINS = 53     // Grid points in the search window
	IF_PAD_WIDTH   = 5      // Zero-padding target of the low-pass smoothing step
	IF_TEMP_SLOPE  = -12.0  // Temperature drift of the front-end [Hz/degC]
)

// ifSearch is the refinement state of the adaptive narrowing search. One
// observe() per snapshot: append the sample, recompute the median, re-evaluate
// the inlier mask, update the estimate. Terminal once IF_MIN_INLIERS samples
// agree or IF_MAX_SAMPLES snapshots have been consumed.
type ifSearch struct {
	samples  []float64 // One frequency-error observation per processed snapshot [Hz]
	inliers  []bool    // Mask of samples within IF_INLIER_BAND of the current median
	nInliers int       // Count of set entries in inliers
	freqErr  float64   // Current frequency-error estimate [Hz]
	padTo    int       // Zero-padding width of the low-pass step
}

func newIFSearch(nSnapshots int) *ifSearch {
	return &ifSearch{
		padTo: min(IF_PAD_WIDTH, nSnapshots),
	}
}

// Search window for the next snapshot: centered on the current estimate,
// shrunk in proportion to the inlier count.
func (s *ifSearch) window() []float64 {
	hw := IF_WINDOW_BASE - IF_WINDOW_STEP*float64(min(s.nInliers, 4))
	return floats.Span(make([]float64, IF_WINDOW_BINS), s.freqErr-hw, s.freqErr+hw)
}

// observe folds one more frequency-error sample into the estimate. While
// fewer than padTo inliers exist, the inlier subset is left-padded with zeros
// before averaging, which damps noisy early estimates.
func (s *ifSearch) observe(sample float64) {
	s.samples = append(s.samples, sample)
	med := Median(s.samples)
	s.inliers = make([]bool, len(s.samples))
	s.nInliers = 0
	vals := []float64{}
	for i, v := range s.samples {
		if v >= med-IF_INLIER_BAND && v <= med+IF_INLIER_BAND {
			s.inliers[i] = true
			s.nInliers++
			vals = append(vals, v)
		}
	}
	if n := s.padTo - len(vals); n > 0 {
		vals = append(make([]float64, n), vals...)
	}
	s.freqErr = stat.Mean(vals, nil)
}

func (s *ifSearch) done() bool {
	return s.nInliers >= IF_MIN_INLIERS || len(s.samples) >= IF_MAX_SAMPLES
}

// Indices of the snapshots judged inliers, in processing order.
func (s *ifSearch) inlierIdx() []int {
	idx := []int{}
	for i, in := range s.inliers {
		if in {
			idx = append(idx, i)
		}
	}
	return idx
}

// EstimateIF estimates the true intermediate frequency of the front-end by
// adaptive narrowing with median consensus. Snapshots are processed earliest
// first across days; for each one, acquisition runs per available satellite
// system with the current search window and the external frequency-bias
// primitive turns the detections into one frequency-error sample, assuming
// the reference position and timestamps are correct.
//
// Returns the estimated IF (the nominal IF unchanged when no finite estimate
// exists or when the first processed day has no navigation data) and the
// indices of the snapshots judged inliers, for optional temperature
// compensation.
func EstimateIF(
	buf []byte, // Raw snapshot buffer
	times []time.Time, // UTC timestamp per snapshot
	navDir string, // Navigation data directory
	ref PosLLH, // Reference position, assumed correct
	acq Acquirer,
	fb FreqBiasEstimator,
) (float64, []int, error) {

	search := newIFSearch(len(times))
	g := 0 // Snapshot cursor across days, earliest day first
	for _, seg := range PartitionDays(times) {
		eph, err := LoadEpheSet(navDir, seg.Day)
		if err != nil {
			return 0, nil, err
		}
		avail := eph.Available()
		if len(avail) == 0 {
			// Without navigation data the search cannot continue; keep the
			// nominal IF with no correction.
			PrintD(1, "no navigation data for %s, keeping nominal IF\n", seg.Day)
			return NominalIF, []int{}, nil
		}

		for k := 0; k < seg.Count && !search.done(); k++ {
			chips := DecodeSnapshot(buf[g*BytesPerSnapshot : (g+1)*BytesPerSnapshot])
			bins := search.window()

			// One-snapshot acquisition per available system
			dets := &SysDets{}
			for _, sys := range avail {
				table := eph.Table(sys)
				res, err := acq.Acquire(
					[][]int8{chips},
					times[g:g+1],
					ref,
					table,
					sys,
					[]float64{NominalIF},
					bins)
				if err != nil {
					return 0, nil, fmt.Errorf("acquisition for %s failed: %w", sys.Name(), err)
				}
				dets.setDets(sys, &DetSet{
					SnapshotIdx: res.SnapshotIdx,
					PRN:         res.PRN,
					CodePhase:   res.CodePhase,
					SNR:         res.SNR,
					Freq:        res.Freq,
					Eph:         table.Select(res.EphIdx),
				})
			}

			sample, err := fb.EstimateBias(dets, times[g:g+1], ref)
			if err != nil {
				return 0, nil, fmt.Errorf("frequency bias estimation failed: %w", err)
			}
			if len(sample) > 0 {
				search.observe(sample[0])
			}
			g++
			PrintD(2, "%d: err %.1f Hz, inliers: %d\n", g, search.freqErr, search.nInliers)
		}
		if search.done() {
			break
		}
	}

	iff := NominalIF
	if !math.IsNaN(search.freqErr) && !math.IsInf(search.freqErr, 0) {
		iff += search.freqErr
	}
	return iff, search.inlierIdx(), nil
}

// ------------------------------------
// Alternative policy (not wired)
// ------------------------------------

// Tuning of the mode-consensus search
const (
	IF_MODE_INLIER_BAND = 51.0 // Fixed agreement band around the stage-1 mode [Hz]
	IF_MODE_MAX_INLIERS = 100  // Inlier cap per stage
)

// EstimateIFModeSearch is the alternative front-end bias estimator: a
// two-stage coarse/fine search that takes the statistical mode of the
// per-detection frequency errors reported by acquisition, with a fixed
// agreement band instead of an adaptive window. It is NOT wired into Process;
// the adaptive narrowing estimator above is the production policy. Kept
// selectable for offline experiments only.
func EstimateIFModeSearch(
	buf []byte,
	times []time.Time,
	navDir string,
	ref PosLLH,
	acq Acquirer,
) (float64, error) {

	iff := float64(NominalIF)
	var stage1Inliers []bool

	// One coarse pass over a wide window, one fine pass over a narrow window
	// centered on the coarse result.
	stages := [][]float64{
		floats.Span(make([]float64, 81), -1000, 1000),
		floats.Span(make([]float64, 31), -150, 150),
	}
	for si, bins := range stages {
		samples := []float64{} // Per-detection frequency errors, all systems
		inliers := []bool{}
		nInliers := 0
		freqErr := 0.0
		g := 0

		for _, seg := range PartitionDays(times) {
			eph, err := LoadEpheSet(navDir, seg.Day)
			if err != nil {
				return iff, err
			}
			avail := eph.Available()
			if len(avail) == 0 {
				PrintD(1, "no navigation data for %s, keeping current IF\n", seg.Day)
				return iff, nil
			}

			for k := 0; k < seg.Count && nInliers < IF_MODE_MAX_INLIERS && g < IF_MAX_SAMPLES; k++ {
				chips := DecodeSnapshot(buf[g*BytesPerSnapshot : (g+1)*BytesPerSnapshot])
				for _, sys := range avail {
					res, err := acq.Acquire(
						[][]int8{chips},
						times[g:g+1],
						ref,
						eph.Table(sys),
						sys,
						[]float64{iff},
						bins)
					if err != nil {
						return iff, fmt.Errorf("acquisition for %s failed: %w", sys.Name(), err)
					}
					samples = append(samples, res.FreqErr...)
				}
				if len(samples) > 0 {
					sorted := make([]float64, len(samples))
					copy(sorted, samples)
					sort.Float64s(sorted)
					freqErr, _ = stat.Mode(sorted, nil)
				}
				if si == 0 {
					// Stage 1: inliers close to the mode
					inliers = make([]bool, len(samples))
					nInliers = 0
					for i, v := range samples {
						if v >= freqErr-IF_MODE_INLIER_BAND && v <= freqErr+IF_MODE_INLIER_BAND {
							inliers[i] = true
							nInliers++
						}
					}
				} else {
					// Stage 2: reuse the stage-1 inlier mask
					inliers = stage1Inliers[:min(len(stage1Inliers), len(samples))]
					nInliers = 0
					for _, in := range inliers {
						if in {
							nInliers++
						}
					}
				}
				g++
				PrintD(2, "%d: err %.1f Hz, inliers: %d\n", g, freqErr, nInliers)
			}
		}

		stage1Inliers = inliers
		if !math.IsNaN(freqErr) && !math.IsInf(freqErr, 0) {
			iff += freqErr
		}
	}
	return iff, nil
}
