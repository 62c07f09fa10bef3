// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.25
//

// Batches one day's snapshots through the acquisition primitive and merges
// the batch-local detections into day-global detection sets.

package gosnap

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Fixed Doppler search grid for the positioning pass
const (
	ACQ_DOPPLER_SPAN = 200.0 // Half-width around the per-snapshot IF [Hz]
	ACQ_DOPPLER_BINS = 9     // Number of grid points
)

func acqFreqBins() []float64 {
	return floats.Span(make([]float64, ACQ_DOPPLER_BINS), -ACQ_DOPPLER_SPAN, ACQ_DOPPLER_SPAN)
}

// Acquisition output of one batch for one satellite system. eph holds only
// the navigation columns the batch's detections reference.
type sysBatch struct {
	res *AcqResult
	eph *EpheTable
}

// acquireDay runs acquisition over one day's snapshots in batches of at most
// maxBatch snapshots (0 means unbounded) and merges the results per system.
// Batches run strictly sequentially: the index merge depends on the
// cumulative size of the preceding batches.
func acquireDay(
	acq Acquirer,
	chips [][]int8, // Chip matrix of the day
	times []time.Time, // Timestamps of the day
	ifFreq []float64, // Per-snapshot intermediate frequency of the day [Hz]
	eph *EpheSet, // Navigation data of the day
	ref PosLLH, // Current reference position
	maxBatch int,
) (*SysDets, error) {

	nDay := len(times)
	if maxBatch <= 0 || maxBatch > nDay {
		maxBatch = nDay
	}
	bins := acqFreqBins()
	avail := eph.Available()

	// Collect batch results per system
	var batches [len(SysAll)][]sysBatch
	batchSizes := []int{}
	for done := 0; done < nDay; {
		bs := min(nDay-done, maxBatch)
		for _, sys := range avail {
			table := eph.Table(sys)
			res, err := acq.Acquire(
				chips[done:done+bs],
				times[done:done+bs],
				ref,
				table,
				sys,
				ifFreq[done:done+bs],
				bins)
			if err != nil {
				return nil, fmt.Errorf("acquisition for %s failed: %w", sys.Name(), err)
			}
			i := sysIndex(sys)
			batches[i] = append(batches[i], sysBatch{res: res, eph: table.Select(res.EphIdx)})
		}
		batchSizes = append(batchSizes, bs)
		done += bs
	}

	// Merge batches into day-global detection sets
	dets := &SysDets{}
	for _, sys := range avail {
		dets.setDets(sys, mergeSysBatches(batches[sysIndex(sys)], batchSizes))
	}
	return dets, nil
}

// mergeSysBatches concatenates one system's batch detections. Snapshot
// indices of batch i are shifted by the cumulative size of batches 0..i-1 so
// they become day-global; non-finite SNR values are clamped to the smallest
// representable positive value so downstream weighting never divides by zero
// or treats a detection as absent.
func mergeSysBatches(batches []sysBatch, batchSizes []int) *DetSet {
	ds := &DetSet{}
	offset := 0
	for i, b := range batches {
		for _, k := range b.res.SnapshotIdx {
			ds.SnapshotIdx = append(ds.SnapshotIdx, k+offset)
		}
		ds.PRN = append(ds.PRN, b.res.PRN...)
		ds.CodePhase = append(ds.CodePhase, b.res.CodePhase...)
		ds.SNR = append(ds.SNR, b.res.SNR...)
		ds.Freq = append(ds.Freq, b.res.Freq...)
		ds.Eph = AugmentTables(ds.Eph, b.eph)
		offset += batchSizes[i]
	}

	floor := math.Nextafter(0, 1)
	for i, v := range ds.SNR {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			ds.SNR[i] = floor
		}
	}
	return ds
}
