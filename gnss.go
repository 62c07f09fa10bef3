// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.18
//

package gosnap

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Satellite system identifier. The snapshot core supports a fixed, closed set:
// G(GPS), E(Galileo), C(BeiDou).
type SysType byte

const (
	SysGPS     SysType = 'G'
	SysGalileo SysType = 'E'
	SysBeiDou  SysType = 'C'
)

// All supported systems, in the order they are tried per day.
var SysAll = [3]SysType{SysGPS, SysGalileo, SysBeiDou}

func (s SysType) Name() string {
	switch s {
	case SysGPS:
		return "GPS"
	case SysGalileo:
		return "Galileo"
	case SysBeiDou:
		return "BeiDou"
	default:
		return "UNKNOWN!"
	}
}

func (s SysType) Valid() bool {
	return slices.Contains(SysAll[:], s)
}

// Index of the system within SysAll, for fixed-size per-system accumulators.
func sysIndex(s SysType) int {
	return slices.Index(SysAll[:], s)
}

// ------------------------------------
// For command argument parsing
// ------------------------------------

type SysVar []SysType

func (p *SysVar) Set(s string) error {
	*p = []SysType{}
	for _, a := range strings.Split(s, ",") {
		sys := SysType(a[0])
		if !sys.Valid() {
			return fmt.Errorf("unknown satellite system %q", a)
		}
		*p = append(*p, sys)
	}
	return nil
}

func (p *SysVar) String() string {
	*p = SysAll[:]
	return ""
}

func (p *SysVar) Contains(s SysType) bool {
	return slices.Contains(*p, s)
}
