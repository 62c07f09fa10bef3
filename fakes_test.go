// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.27
//

// Scriptable stand-ins for the external signal-processing collaborators.

package gosnap

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Elevation model
// ------------------------------------

type fakeElev struct {
	hei   float64
	calls int
	err   error
}

func (f *fakeElev) Elevation(lat, lon float64) (float64, error) {
	f.calls++
	return f.hei, f.err
}

// ------------------------------------
// Acquisition
// ------------------------------------

type acqCall struct {
	sys    SysType
	batch  int // Number of snapshots in the call
	ifFreq []float64
	bins   []float64
	ref    PosLLH
}

type fakeAcquirer struct {
	calls   []acqCall
	respond func(call acqCall, chips [][]int8, eph *EpheTable) (*AcqResult, error)
}

func (f *fakeAcquirer) Acquire(chips [][]int8, times []time.Time, ref PosLLH, eph *EpheTable, sys SysType, ifFreq []float64, bins []float64) (*AcqResult, error) {
	c := acqCall{
		sys:    sys,
		batch:  len(chips),
		ifFreq: append([]float64{}, ifFreq...),
		bins:   append([]float64{}, bins...),
		ref:    ref,
	}
	f.calls = append(f.calls, c)
	if f.respond != nil {
		return f.respond(c, chips, eph)
	}
	return &AcqResult{}, nil
}

// ------------------------------------
// Positioning
// ------------------------------------

type posCall struct {
	dets  *SysDets
	times []time.Time
	state DayState
	opt   PosOpt
}

type fakePositioner struct {
	calls   []posCall
	respond func(call posCall) (*DayResult, DayState, error)
}

func (f *fakePositioner) Position(dets *SysDets, times []time.Time, state DayState, opt *PosOpt) (*DayResult, DayState, error) {
	c := posCall{
		dets:  dets,
		times: append([]time.Time{}, times...),
		state: state,
		opt:   *opt,
	}
	f.calls = append(f.calls, c)
	if f.respond != nil {
		return f.respond(c)
	}
	return nanDayResult(times), state, nil
}

// All-unresolved day result: NaN positions, Inf uncertainty, input timestamps.
func nanDayResult(times []time.Time) *DayResult {
	n := len(times)
	res := &DayResult{
		Lat:  make([]float64, n),
		Lon:  make([]float64, n),
		Time: make([]time.Time, n),
		Unc:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		res.Lat[i] = math.NaN()
		res.Lon[i] = math.NaN()
		res.Unc[i] = math.Inf(1)
	}
	copy(res.Time, times)
	return res
}

// ------------------------------------
// Frequency bias estimation
// ------------------------------------

type fakeFreqBias struct {
	calls  int
	sample func(n int) float64 // Sample returned for the n-th call (0-based)
}

func (f *fakeFreqBias) EstimateBias(dets *SysDets, times []time.Time, ref PosLLH) ([]float64, error) {
	n := f.calls
	f.calls++
	return []float64{f.sample(n)}, nil
}

// ------------------------------------
// Fixtures
// ------------------------------------

func makeBuf(n int) []byte {
	buf := make([]byte, n*BytesPerSnapshot)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return buf
}

func utcTimes(start time.Time, n int, step time.Duration) []time.Time {
	times := make([]time.Time, n)
	for i := 0; i < n; i++ {
		times[i] = start.Add(time.Duration(i) * step)
	}
	return times
}

// writeEpheFile drops a pre-processed navigation data fixture with sequential
// values into dir, the way the RINEX preprocessor would.
func writeEpheFile(t *testing.T, dir string, day Day, sys SysType, rows, cols int) {
	t.Helper()
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(i)
	}
	fn := filepath.Join(dir, day.String()+"_"+string(sys)+".npy")
	f, err := os.Create(fn)
	if err != nil {
		t.Fatalf("create %s: %v", fn, err)
	}
	defer f.Close()
	if err := npyio.Write(f, mat.NewDense(rows, cols, data)); err != nil {
		t.Fatalf("write %s: %v", fn, err)
	}
}
