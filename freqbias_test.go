// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.27
//

package gosnap

import (
	"testing"
	"time"
)

func TestIFSearchWindow(t *testing.T) {
	s := newIFSearch(10)
	w := s.window()
	if len(w) != IF_WINDOW_BINS {
		t.Fatalf("window has %d bins, want %d", len(w), IF_WINDOW_BINS)
	}
	if w[0] != -IF_WINDOW_BASE || w[len(w)-1] != IF_WINDOW_BASE {
		t.Errorf("initial window spans %v..%v, want +-%v", w[0], w[len(w)-1], IF_WINDOW_BASE)
	}

	s.observe(10)
	s.observe(11)
	// Both samples agree with their median, so the estimate is the mean of the
	// inliers left-padded with zeros to width 5, and the window shrinks by two
	// steps.
	if s.nInliers != 2 {
		t.Fatalf("got %d inliers, want 2", s.nInliers)
	}
	want := (10.0 + 11.0) / 5.0
	if s.freqErr != want {
		t.Errorf("estimate = %v, want %v", s.freqErr, want)
	}
	hw := IF_WINDOW_BASE - 2*IF_WINDOW_STEP
	w = s.window()
	if w[0] != want-hw || w[len(w)-1] != want+hw {
		t.Errorf("narrowed window spans %v..%v, want %v..%v", w[0], w[len(w)-1], want-hw, want+hw)
	}
}

func TestIFSearchPadClamp(t *testing.T) {
	s := newIFSearch(3)
	if s.padTo != 3 {
		t.Errorf("padTo = %d for a 3-snapshot run, want 3", s.padTo)
	}
	s.observe(30)
	// One inlier padded with two zeros
	if want := 30.0 / 3.0; s.freqErr != want {
		t.Errorf("estimate = %v, want %v", s.freqErr, want)
	}
}

func TestEstimateIFConverges(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2023, 2, 14, 10, 0, 0, 0, time.UTC)
	writeEpheFile(t, dir, NewDay(start), SysGPS, 21, 8)

	const n = 20
	times := utcTimes(start, n, time.Minute)
	acq := &fakeAcquirer{}
	fb := &fakeFreqBias{sample: func(int) float64 { return 50 }}

	iff, idx, err := EstimateIF(makeBuf(n), times, dir, PosLLH{Lat: 51.75, Lon: -1.25}, acq, fb)
	if err != nil {
		t.Fatalf("EstimateIF: %v", err)
	}

	// Five identical samples all agree with their median: early stop after
	// exactly five snapshots with the padding fully displaced.
	if fb.calls != IF_MIN_INLIERS {
		t.Errorf("estimator consumed %d snapshots, want %d", fb.calls, IF_MIN_INLIERS)
	}
	if iff != NominalIF+50 {
		t.Errorf("estimated IF = %v, want nominal+50", iff)
	}
	if len(idx) != IF_MIN_INLIERS {
		t.Fatalf("got %d inlier indices, want %d", len(idx), IF_MIN_INLIERS)
	}
	for i, want := range []int{0, 1, 2, 3, 4} {
		if idx[i] != want {
			t.Errorf("inlier index %d = %d, want %d", i, idx[i], want)
		}
	}

	// First acquisition searches the full window at the nominal IF; the second
	// is already re-centered and narrowed.
	if len(acq.calls[0].bins) != IF_WINDOW_BINS || acq.calls[0].bins[0] != -IF_WINDOW_BASE {
		t.Errorf("first window starts at %v, want %v", acq.calls[0].bins[0], -IF_WINDOW_BASE)
	}
	if got := acq.calls[0].ifFreq; len(got) != 1 || got[0] != NominalIF {
		t.Errorf("acquisition IF = %v, want [nominal]", got)
	}
	if want := 50.0/5.0 - (IF_WINDOW_BASE - IF_WINDOW_STEP); acq.calls[1].bins[0] != want {
		t.Errorf("second window starts at %v, want %v", acq.calls[1].bins[0], want)
	}
}

func TestEstimateIFNoConsensus(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2023, 2, 14, 0, 0, 0, 0, time.UTC)
	writeEpheFile(t, dir, NewDay(start), SysGPS, 21, 8)

	const n = 120
	times := utcTimes(start, n, time.Second)
	acq := &fakeAcquirer{}
	// Samples never cluster, so the search runs to the hard cap
	fb := &fakeFreqBias{sample: func(k int) float64 { return float64(k) * 1000 }}

	iff, idx, err := EstimateIF(makeBuf(n), times, dir, PosLLH{}, acq, fb)
	if err != nil {
		t.Fatalf("EstimateIF: %v", err)
	}
	if fb.calls != IF_MAX_SAMPLES {
		t.Errorf("estimator consumed %d snapshots, want cap %d", fb.calls, IF_MAX_SAMPLES)
	}
	if iff != NominalIF {
		t.Errorf("estimated IF = %v, want nominal (no consensus)", iff)
	}
	if len(idx) != 0 {
		t.Errorf("got %d inlier indices without consensus, want 0", len(idx))
	}
}

func TestEstimateIFNoNavData(t *testing.T) {
	times := utcTimes(time.Date(2023, 2, 14, 10, 0, 0, 0, time.UTC), 3, time.Minute)
	acq := &fakeAcquirer{}
	fb := &fakeFreqBias{sample: func(int) float64 { return 50 }}

	iff, idx, err := EstimateIF(makeBuf(3), times, t.TempDir(), PosLLH{}, acq, fb)
	if err != nil {
		t.Fatalf("EstimateIF: %v", err)
	}
	if iff != NominalIF {
		t.Errorf("estimated IF = %v, want nominal", iff)
	}
	if idx == nil || len(idx) != 0 {
		t.Errorf("inlier indices = %v, want empty", idx)
	}
	if len(acq.calls) != 0 || fb.calls != 0 {
		t.Error("collaborators invoked without navigation data")
	}
}

func TestEstimateIFNonFiniteEstimate(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2023, 2, 14, 10, 0, 0, 0, time.UTC)
	writeEpheFile(t, dir, NewDay(start), SysGPS, 21, 8)

	const n = 10
	times := utcTimes(start, n, time.Minute)
	acq := &fakeAcquirer{}
	// Samples so large their mean overflows
	fb := &fakeFreqBias{sample: func(int) float64 { return 1e308 }}

	iff, _, err := EstimateIF(makeBuf(n), times, dir, PosLLH{}, acq, fb)
	if err != nil {
		t.Fatalf("EstimateIF: %v", err)
	}
	if iff != NominalIF {
		t.Errorf("estimated IF = %v, want nominal on a non-finite estimate", iff)
	}
}

func TestEstimateIFModeSearch(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2023, 2, 14, 10, 0, 0, 0, time.UTC)
	writeEpheFile(t, dir, NewDay(start), SysGPS, 21, 8)

	times := utcTimes(start, 1, time.Minute)
	call := 0
	acq := &fakeAcquirer{
		respond: func(c acqCall, chips [][]int8, tbl *EpheTable) (*AcqResult, error) {
			call++
			if call == 1 {
				// Coarse stage: mode at +100 Hz
				return &AcqResult{FreqErr: []float64{100, 100, 102}}, nil
			}
			// Fine stage: no residual error left
			return &AcqResult{FreqErr: []float64{0}}, nil
		},
	}

	iff, err := EstimateIFModeSearch(makeBuf(1), times, dir, PosLLH{}, acq)
	if err != nil {
		t.Fatalf("EstimateIFModeSearch: %v", err)
	}
	if iff != NominalIF+100 {
		t.Errorf("estimated IF = %v, want nominal+100", iff)
	}
	if len(acq.calls) != 2 {
		t.Fatalf("got %d acquisition calls, want 2 (one per stage)", len(acq.calls))
	}
	if bins := acq.calls[0].bins; len(bins) != 81 || bins[0] != -1000 || bins[80] != 1000 {
		t.Errorf("coarse stage grid = %d bins %v..%v, want 81 spanning -1000..1000",
			len(bins), bins[0], bins[len(bins)-1])
	}
	if bins := acq.calls[1].bins; len(bins) != 31 || bins[0] != -150 {
		t.Errorf("fine stage grid = %d bins starting %v, want 31 from -150", len(bins), bins[0])
	}
	// The fine stage acquires at the coarse-corrected IF
	if got := acq.calls[1].ifFreq[0]; got != NominalIF+100 {
		t.Errorf("fine stage IF = %v, want nominal+100", got)
	}
}

func TestMedianOddEven(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("Median of three = %v, want 2", got)
	}
	if got := Median([]float64{4, 1}); got != 2.5 {
		t.Errorf("Median of two = %v, want 2.5", got)
	}
	if got := Median([]float64{7}); got != 7 {
		t.Errorf("Median of one = %v, want 7", got)
	}
}
