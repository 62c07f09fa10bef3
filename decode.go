// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.20
//

package gosnap

import (
	"fmt"
)

// CheckBufferSize validates the run precondition that the raw buffer holds
// exactly BytesPerSnapshot bytes per timestamp. Violations are fatal for the
// whole run; no partial output is ever produced.
func CheckBufferSize(nBytes, nSnapshots int) error {
	if nBytes != nSnapshots*BytesPerSnapshot {
		return fmt.Errorf(
			"got %d timestamps and expected a snapshot buffer with %d * %d = %d bytes, but got %d bytes",
			nSnapshots, nSnapshots, BytesPerSnapshot, nSnapshots*BytesPerSnapshot, nBytes)
	}
	return nil
}

// DecodeSnapshot unpacks one raw record into its chip sequence. Each byte
// yields 8 chips, least-significant bit first; bit 0 decodes to +1 and bit 1
// to -1 (the front-end's sign convention). rec must be BytesPerSnapshot long.
func DecodeSnapshot(rec []byte) []int8 {
	chips := make([]int8, len(rec)*8)
	for i, b := range rec {
		for k := 0; k < 8; k++ {
			chips[i*8+k] = 1 - 2*int8((b>>k)&1)
		}
	}
	return chips
}

// DecodeSnapshots unpacks a whole buffer into a chip matrix with one row per
// snapshot. The buffer length must be a multiple of BytesPerSnapshot; callers
// check this once up front with CheckBufferSize.
func DecodeSnapshots(buf []byte) [][]int8 {
	n := len(buf) / BytesPerSnapshot
	chips := make([][]int8, n)
	for i := 0; i < n; i++ {
		chips[i] = DecodeSnapshot(buf[i*BytesPerSnapshot : (i+1)*BytesPerSnapshot])
	}
	return chips
}
