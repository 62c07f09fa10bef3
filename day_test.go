// Copyright (c) 2026 tinygnss.dev. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.27
//

package gosnap

import (
	"testing"
	"time"
)

func TestDayKey(t *testing.T) {
	d := NewDay(time.Date(2023, 2, 14, 23, 59, 59, 0, time.UTC))
	if d.Year != 2023 || d.Doy != 45 {
		t.Errorf("got %d/%d, want 2023/045", d.Year, d.Doy)
	}
	if d.String() != "2023_045" {
		t.Errorf("got %q, want \"2023_045\"", d.String())
	}
	if got := d.Time(); !got.Equal(time.Date(2023, 2, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Day.Time() = %v, want 2023-02-14 midnight UTC", got)
	}

	// A non-UTC timestamp is keyed by its UTC calendar date
	loc := time.FixedZone("UTC+9", 9*3600)
	d = NewDay(time.Date(2023, 2, 15, 3, 0, 0, 0, loc)) // 2023-02-14T18:00Z
	if d.Doy != 45 {
		t.Errorf("got doy %d, want 45 (UTC date)", d.Doy)
	}
}

func TestPartitionDaysForward(t *testing.T) {
	day1 := time.Date(2023, 2, 14, 22, 0, 0, 0, time.UTC)
	day2 := time.Date(2023, 2, 15, 1, 0, 0, 0, time.UTC)
	times := append(utcTimes(day1, 3, time.Hour/2), utcTimes(day2, 2, time.Minute)...)

	segs := PartitionDays(times)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Day.Doy != 45 || segs[0].Start != 0 || segs[0].Count != 3 {
		t.Errorf("segment 0 = %+v, want day 45 start 0 count 3", segs[0])
	}
	if segs[1].Day.Doy != 46 || segs[1].Start != 3 || segs[1].Count != 2 {
		t.Errorf("segment 1 = %+v, want day 46 start 3 count 2", segs[1])
	}

	// Proper partition: every snapshot in exactly one segment, in order
	total := 0
	for _, seg := range segs {
		if seg.Start != total {
			t.Errorf("segment start %d, want %d (contiguous)", seg.Start, total)
		}
		total += seg.Count
	}
	if total != len(times) {
		t.Errorf("segments cover %d snapshots, want %d", total, len(times))
	}
}

func TestPartitionDaysReversed(t *testing.T) {
	// Reversed-chronological input: days come out in first-appearance order,
	// which is reverse calendar order here.
	times := []time.Time{
		time.Date(2023, 2, 16, 12, 0, 0, 0, time.UTC),
		time.Date(2023, 2, 16, 8, 0, 0, 0, time.UTC),
		time.Date(2023, 2, 15, 20, 0, 0, 0, time.UTC),
	}
	segs := PartitionDays(times)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Day.Doy != 47 || segs[0].Count != 2 {
		t.Errorf("segment 0 = %+v, want day 47 count 2", segs[0])
	}
	if segs[1].Day.Doy != 46 || segs[1].Count != 1 {
		t.Errorf("segment 1 = %+v, want day 46 count 1", segs[1])
	}
}

func TestPartitionDaysEmpty(t *testing.T) {
	if segs := PartitionDays(nil); len(segs) != 0 {
		t.Errorf("got %d segments for empty input, want 0", len(segs))
	}
}
