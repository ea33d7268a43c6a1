package models

import "time"

// ContractSlot identifies which of the two simultaneously traded futures
// contracts for a tenor an observation refers to.
type ContractSlot string

const (
	// SlotNear is the nearest-to-expiry contract.
	SlotNear ContractSlot = "near"
	// SlotDeferred is the second nearest-to-expiry contract. The published
	// arbitrage signal is built from this slot only.
	SlotDeferred ContractSlot = "deferred"
)

// ContractObservation is one raw quote row keyed by trade date, tenor and
// contract slot. Rows are immutable once ingested.
type ContractObservation struct {
	Date        time.Time    `json:"date"`
	Tenor       int          `json:"tenor"`
	Slot        ContractSlot `json:"slot"`
	Label       string       `json:"contract"`
	ImpliedRepo *float64     `json:"implied_repo"`
	Volume      *float64     `json:"volume"`
	Price       *float64     `json:"price"`
}

// ContractMonth is a parsed delivery month. The zero value is the
// unparseable sentinel; it carries no partially valid fields.
type ContractMonth struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

// Valid reports whether the month was parsed successfully.
func (c ContractMonth) Valid() bool {
	return c.Year != 0
}

// MonthKey addresses one delivery month in the month-end lookup.
type MonthKey struct {
	Month time.Month
	Year  int
}

// MonthEndLookup maps a delivery (month, year) to the last trading
// day-of-month. Built once from a calendar reference table and read-only
// during spread construction.
type MonthEndLookup map[MonthKey]int

// Day returns the last trading day-of-month for the given delivery month.
func (l MonthEndLookup) Day(month time.Month, year int) (int, bool) {
	d, ok := l[MonthKey{Month: month, Year: year}]
	return d, ok
}

// Set records the last trading day for a delivery month, keeping the
// latest value on repeated inserts.
func (l MonthEndLookup) Set(month time.Month, year, day int) {
	l[MonthKey{Month: month, Year: year}] = day
}

// DateKey normalizes a timestamp to midnight UTC so trade dates compare
// and hash by calendar day regardless of source time zone.
func DateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Float returns a pointer to v. Convenience for building nullable rows.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
