// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetview

import (
	"math"
	"time"
)

var (
	// Excel's 1900 epoch counts 1900-01-01 as day 1, and also counts the
	// nonexistent 1900-02-29 as day 60.
	epoch1900 = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
)

const (
	secondsPerDay = 24 * 60 * 60
	// Serial 60 is 1900-02-29; every later serial is one day ahead of
	// a plain day count.
	leapBugSerial = 60
)

// SerialToTime converts an Excel date serial to a UTC time, rounded to
// the nearest second.
func SerialToTime(serial float64, date1904 bool) time.Time {
	days := math.Floor(serial)
	secs := math.Round((serial - days) * secondsPerDay)
	if secs >= secondsPerDay {
		days++
		secs -= secondsPerDay
	}
	if date1904 {
		return epoch1904.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
	}
	d := int(days)
	if d == 0 {
		d = 1
	}
	if d > leapBugSerial {
		d--
	}
	return epoch1900.AddDate(0, 0, d).Add(time.Duration(secs) * time.Second)
}

// TimeToSerial is the inverse of SerialToTime.
func TimeToSerial(t time.Time, date1904 bool) float64 {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	frac := t.Sub(midnight).Seconds() / secondsPerDay
	if date1904 {
		return float64(daysBetween(epoch1904, midnight)) + frac
	}
	d := daysBetween(epoch1900, midnight)
	if d >= leapBugSerial {
		d++
	}
	return float64(d) + frac
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
