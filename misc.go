// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.21
//

package gosnap

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ------------------------------------
// Mini functions
// ------------------------------------

func SQ(x float64) float64 {
	return x * x
}

func EucDist(a, b *PosXYZ) float64 {
	return math.Sqrt(SQ(a.X-b.X) + SQ(a.Y-b.Y) + SQ(a.Z-b.Z))
}

func ToDeg(rad float64) float64 {
	return rad / PI * 180.0
}

func ToRad(deg float64) float64 {
	return deg / 180.0 * PI
}

// Median of xs. The input is not modified.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return stat.Quantile(0.5, stat.LinInterp, s, nil)
}

// ------------------------------------
// Debug print functions
// ------------------------------------

func PrintA(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
}

func PrintAIf(cond bool, format string, a ...any) {
	if cond {
		PrintA(format, a...)
	}
}

func PrintB(t time.Time, format string, a ...any) {
	fmt.Fprintf(os.Stderr, t.UTC().Format("2006-01-02T15:04:05.000000")+"\t"+format, a...)
}

// Debug display level
var DBG_ int

// Debug display
func PrintD(v int, format string, a ...any) {
	PrintAIf(DBG_ >= v, format, a...)
}

func PrintE(err error) {
	fmt.Fprintf(os.Stderr, "err=%s\n", err.Error())
}
