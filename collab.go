// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.24
//

// Contracts of the external signal-processing collaborators. The snapshot
// core orchestrates these; their internals (correlation math, the coarse-time
// least-squares/ML solver, terrain models) live outside this module.

package gosnap

import (
	"time"
)

// AcqResult holds the detections of one acquisition call as parallel arrays,
// one element per detection.
type AcqResult struct {
	SnapshotIdx []int     // Index of the detecting snapshot, local to the acquired batch
	PRN         []int     // Satellite identifier within the system
	CodePhase   []float64 // Sub-code-period timing offset [chips]
	SNR         []float64 // Quality of the correlation peak
	Freq        []float64 // Estimated signal frequency [Hz]
	FreqErr     []float64 // Deviation from the expected signal frequency [Hz]
	EphIdx      []int     // Columns of the passed navigation table referenced by the detections
}

// Acquirer searches a batch of snapshots for satellite signals of one system.
// It consumes the whole batch in one call so an implementation is free to
// vectorize or parallelize internally across snapshots and satellites.
type Acquirer interface {
	Acquire(
		chips [][]int8, // Chip matrix of the batch, one row per snapshot
		times []time.Time, // UTC timestamp per snapshot
		ref PosLLH, // Reference position
		eph *EpheTable, // Navigation data of the system for the day
		sys SysType, // Satellite system to search
		ifFreq []float64, // Intermediate frequency per snapshot [Hz]
		freqBins []float64, // Doppler/frequency search grid relative to ifFreq [Hz]
	) (*AcqResult, error)
}

// DetSet holds one day's merged detections of one satellite system.
type DetSet struct {
	SnapshotIdx []int     // Day-global snapshot index per detection
	PRN         []int     // Satellite identifier per detection
	CodePhase   []float64 // Code phase per detection [chips]
	SNR         []float64 // Detection quality weight; always finite and positive after the merge
	Freq        []float64 // Estimated signal frequency per detection [Hz]
	Eph         *EpheTable // Navigation data columns matched to the detected satellites
}

// SysDets carries the per-system detection sets of one day. A nil entry means
// the system produced no detections or had no navigation data.
type SysDets struct {
	GPS     *DetSet
	Galileo *DetSet
	BeiDou  *DetSet
}

func (d *SysDets) Dets(sys SysType) *DetSet {
	switch sys {
	case SysGPS:
		return d.GPS
	case SysGalileo:
		return d.Galileo
	case SysBeiDou:
		return d.BeiDou
	}
	return nil
}

func (d *SysDets) setDets(sys SysType, ds *DetSet) {
	switch sys {
	case SysGPS:
		d.GPS = ds
	case SysGalileo:
		d.Galileo = ds
	case SysBeiDou:
		d.BeiDou = ds
	}
}

// DayResult holds the per-snapshot outputs of one day's positioning solve.
type DayResult struct {
	Lat  []float64   // Estimated latitude [deg], NaN where unresolved
	Lon  []float64   // Estimated longitude [deg], NaN where unresolved
	Time []time.Time // Corrected UTC timestamps
	Unc  []float64   // Horizontal 1-sigma uncertainty [m], +Inf where unresolved
}

// Positioner is the coarse-time navigation solver. It receives one day's
// merged detections plus the carry-state from the previous day and returns
// the day's fixes together with the updated carry-state. Called exactly once
// per processable day.
type Positioner interface {
	Position(
		dets *SysDets, // Merged detections per system
		times []time.Time, // UTC timestamp per snapshot of the day
		state DayState, // Carry-state from the previous day (or the initial state)
		opt *PosOpt, // Solver configuration
	) (*DayResult, DayState, error)
}

// FreqBiasEstimator turns the detections of a snapshot into one front-end
// frequency-error sample per snapshot, assuming the supplied reference
// position and timestamps are correct.
type FreqBiasEstimator interface {
	EstimateBias(dets *SysDets, times []time.Time, ref PosLLH) ([]float64, error)
}

// ElevationModel resolves terrain height for the initial reference position.
// The first call may be slow (model load); deterministic afterwards.
type ElevationModel interface {
	Elevation(lat, lon float64) (float64, error)
}

// Collaborators bundles the external primitives a run needs.
type Collaborators struct {
	Acq      Acquirer
	Pos      Positioner
	FreqBias FreqBiasEstimator
	Elev     ElevationModel
}
