// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.18
//

package gosnap

const (
	PI = 3.1415926535897932  // Pi
	Re = 6378137.0           // Earth's radius [m]
	Fe = 1.0 / 298.257223563 // Earth's flattening

	NominalIF        = 4.092e6              // Nominal intermediate frequency of the RF front-end [Hz]
	BytesPerSnapshot = 6138                 // Bytes per raw snapshot record (~12 ms sampled around 4.092 MHz, 1 bit per sample)
	ChipsPerSnapshot = BytesPerSnapshot * 8 // Chips per decoded snapshot
)
