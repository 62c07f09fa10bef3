// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.20
//

package gosnap

import (
	"fmt"
	"time"
)

// Calendar day in UTC, expressed as year and day-of-year. Navigation data and
// positioning runs are scoped to one Day.
type Day struct {
	Year int
	Doy  int
}

func NewDay(t time.Time) Day {
	u := t.UTC()
	return Day{
		Year: u.Year(),
		Doy:  u.YearDay(),
	}
}

// "YYYY_DDD", the key used by the navigation data directory layout.
func (d Day) String() string {
	return fmt.Sprintf("%04d_%03d", d.Year, d.Doy)
}

// Midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d.Doy-1)
}

// One contiguous run of snapshots that share a calendar day.
type DaySeg struct {
	Day   Day
	Start int // Index of the first snapshot of the day in the run
	Count int // Number of snapshots of the day
}

// PartitionDays groups the snapshot timestamps into contiguous per-day
// segments. Timestamps must be globally monotonic (increasing or decreasing);
// this is a precondition of the whole run and is not re-validated here. Days
// come out in first-appearance order, which for a reversed-chronological input
// is reverse calendar order. Every snapshot belongs to exactly one segment and
// relative order within a day is preserved.
func PartitionDays(times []time.Time) []DaySeg {
	segs := []DaySeg{}
	for i, t := range times {
		d := NewDay(t)
		if n := len(segs); n > 0 && segs[n-1].Day == d {
			segs[n-1].Count++
			continue
		}
		segs = append(segs, DaySeg{Day: d, Start: i, Count: 1})
	}
	return segs
}
