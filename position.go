// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.24
//

package gosnap

import (
	"math"
	"time"
)

// DayState is the carry vector threaded from one day's positioning solve into
// the next. The core creates the initial value, passes it to the solver once
// per day, and stores the returned value unchanged for the following day; it
// never mutates the state itself.
type DayState struct {
	TimeError        float64    // Accumulated receiver clock-time error [s]
	NFailed          int        // Consecutive failed fixes so far
	LastPlausibleUTC *time.Time // Timestamp of the last plausible fix, nil before the first
	Pos              PosLLH     // Last plausible position (initially the caller-supplied reference)
}

// Initial carry-state for the first day of a run: the first timestamp is
// assumed accurate, no fixes have failed, and no plausible fix exists yet.
func initDayState(ref PosLLH) DayState {
	return DayState{
		TimeError:        0,
		NFailed:          0,
		LastPlausibleUTC: nil,
		Pos:              ref,
	}
}

// PosOpt configures the coarse-time navigation solver.
type PosOpt struct {
	LSMode       string  // Least-squares weighting policy
	MLE          bool    // Run a maximum-likelihood refinement pass when least squares is inconclusive
	MaxSatCount  int     // Satellite-selection cap per fix
	MaxDist      float64 // Max displacement between consecutive plausible fixes [m]
	MaxTime      float64 // Max time gap between consecutive plausible fixes [s]
	MaxVel       float64 // Max receiver speed [m/s]
	MaxTimeDrift float64 // Max clock-drift rate between consecutive snapshots [s/s]
}

// NewPosOpt creates a PosOpt with the fixed defaults of the snapshot pipeline.
// 10-15 satellites is a good cap for the "snr" weighting mode; the plausibility
// gates suit a slow-moving logger.
func NewPosOpt() *PosOpt {
	return &PosOpt{
		LSMode:       "snr",       // SNR-weighted least squares
		MLE:          true,        // ML fallback recommended
		MaxSatCount:  15,          // Satellite cap
		MaxDist:      10.0e3,      // [m]
		MaxTime:      30.0,        // [s]
		MaxVel:       4.0,         // [m/s]
		MaxTimeDrift: math.Inf(1), // Unbounded by default
	}
}
