package models

import "time"

// RateCurveSnapshot holds the named OIS tenor points quoted on one trade
// date. Any pillar may be missing; a missing pillar inside the active
// interpolation segment yields a missing interpolated rate downstream.
type RateCurveSnapshot struct {
	Date  time.Time `json:"date"`
	OIS1W *float64  `json:"ois_1w"`
	OIS1M *float64  `json:"ois_1m"`
	OIS3M *float64  `json:"ois_3m"`
	OIS6M *float64  `json:"ois_6m"`
	OIS1Y *float64  `json:"ois_1y"`
}

// RateCurve indexes curve snapshots by trade date. Contract observations
// join against it by exact date match only; there is no forward fill.
type RateCurve map[time.Time]RateCurveSnapshot

// Snapshot returns the curve snapshot quoted on the given date, if any.
func (c RateCurve) Snapshot(date time.Time) (RateCurveSnapshot, bool) {
	s, ok := c[DateKey(date)]
	return s, ok
}

// Add inserts a snapshot keyed by its normalized date. It reports false
// when a snapshot for that date is already present, which callers treat
// as a structural error.
func (c RateCurve) Add(s RateCurveSnapshot) bool {
	key := DateKey(s.Date)
	if _, dup := c[key]; dup {
		return false
	}
	s.Date = key
	c[key] = s
	return true
}
