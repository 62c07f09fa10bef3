// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.24
//

// Loads pre-processed per-day, per-system navigation data tables.

package gosnap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// EpheTable is a column-oriented table of satellite orbital and clock
// parameters for one satellite system on one day. Rows are parameters,
// columns are satellites, addressable by index. Produced by the external
// RINEX preprocessor, read-only after load.
type EpheTable struct {
	M *mat.Dense
}

// Number of satellite columns.
func (t *EpheTable) NumSats() int {
	_, c := t.M.Dims()
	return c
}

// Number of parameter rows.
func (t *EpheTable) NumParams() int {
	r, _ := t.M.Dims()
	return r
}

// Select returns a new table holding only the given columns, in the given
// order. Returns nil when idx is empty.
func (t *EpheTable) Select(idx []int) *EpheTable {
	if len(idx) == 0 {
		return nil
	}
	r := t.NumParams()
	m := mat.NewDense(r, len(idx), nil)
	col := make([]float64, r)
	for j, c := range idx {
		mat.Col(col, c, t.M)
		m.SetCol(j, col)
	}
	return &EpheTable{M: m}
}

// AugmentTables stacks two tables horizontally. Either argument may be nil.
func AugmentTables(a, b *EpheTable) *EpheTable {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	var m mat.Dense
	m.Augment(a.M, b.M)
	return &EpheTable{M: &m}
}

// LoadEpheTable reads the pre-processed navigation data table for one day and
// one satellite system from dir. Files are named "YYYY_DDD_S.npy" with S one
// of G, E, C. A missing file is not an error: the system is simply not
// available for that day and (nil, nil) is returned. Read or format errors
// are reported.
func LoadEpheTable(dir string, day Day, sys SysType) (*EpheTable, error) {
	fn := filepath.Join(dir, fmt.Sprintf("%s_%c.npy", day, sys))
	f, err := os.Open(fn)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("failed to read navigation data %s: %w", fn, err)
	}
	return &EpheTable{M: &m}, nil
}

// EpheSet holds one day's navigation data for the closed set of satellite
// systems. A nil table means the system is not available for the day.
type EpheSet struct {
	GPS     *EpheTable
	Galileo *EpheTable
	BeiDou  *EpheTable
}

// Table returns the table for the given system (possibly nil).
func (s *EpheSet) Table(sys SysType) *EpheTable {
	switch sys {
	case SysGPS:
		return s.GPS
	case SysGalileo:
		return s.Galileo
	case SysBeiDou:
		return s.BeiDou
	}
	return nil
}

func (s *EpheSet) setTable(sys SysType, t *EpheTable) {
	switch sys {
	case SysGPS:
		s.GPS = t
	case SysGalileo:
		s.Galileo = t
	case SysBeiDou:
		s.BeiDou = t
	}
}

// Available lists the systems that have navigation data, in SysAll order.
// An empty result marks the day as unprocessable.
func (s *EpheSet) Available() []SysType {
	avail := []SysType{}
	for _, sys := range SysAll {
		if s.Table(sys) != nil {
			avail = append(avail, sys)
		}
	}
	return avail
}

// LoadEpheSet loads the navigation data of all satellite systems for one day.
// Missing systems are reported at debug level and left nil; only I/O and
// format errors fail the load.
func LoadEpheSet(dir string, day Day) (*EpheSet, error) {
	set := &EpheSet{}
	for _, sys := range SysAll {
		t, err := LoadEpheTable(dir, day, sys)
		if err != nil {
			return nil, err
		}
		if t == nil {
			PrintD(1, "no pre-processed navigation data for %s on %s\n", sys.Name(), day)
			continue
		}
		set.setTable(sys, t)
	}
	return set, nil
}
