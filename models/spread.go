package models

import "time"

// SlotQuote carries the per-slot values derived for one contract slot of a
// spread record. Nil fields mark values lost to upstream parse, lookup or
// interpolation failures.
type SlotQuote struct {
	Label       string     `json:"contract"`
	ImpliedRepo *float64   `json:"implied_repo"`
	Volume      *float64   `json:"volume"`
	Price       *float64   `json:"price"`
	Maturity    *time.Time `json:"maturity"`
	TTM         *int       `json:"ttm"`
	Rate        *float64   `json:"rate"`
	Spread      *float64   `json:"spread"`
}

// SpreadRecord is the derived row for one (trade date, tenor) pair. The
// published arbitrage signal is the deferred slot's spread; the near
// slot's spread is retained for auxiliary use but never exported. The
// outlier detector nulls Spread in place and leaves the flag as a
// diagnostic attribute.
type SpreadRecord struct {
	Date     time.Time `json:"date"`
	Tenor    int       `json:"tenor"`
	Near     SlotQuote `json:"near"`
	Deferred SlotQuote `json:"deferred"`
	Spread   *float64  `json:"spread"`
	Outlier  bool      `json:"outlier"`
}

// WideCell is one tenor's worth of output columns on a wide row.
// Rate and Ref are in basis points, TTM in integer days.
type WideCell struct {
	Rate *float64 `json:"rate"`
	Ref  *float64 `json:"ref"`
	TTM  *int     `json:"ttm"`
}

// WideRow is one output row: a trade date plus one cell per tenor.
type WideRow struct {
	Date  time.Time        `json:"date"`
	Cells map[int]WideCell `json:"cells"`
}

// WideTable is the terminal analysis-ready table: one row per trade date,
// one cell per configured tenor, rows sorted by date.
type WideTable struct {
	Tenors []int     `json:"tenors"`
	Rows   []WideRow `json:"rows"`
}

// LongCell is a re-melted wide cell, used when converting the wide table
// back to long format.
type LongCell struct {
	Date  time.Time `json:"date"`
	Tenor int       `json:"tenor"`
	Cell  WideCell  `json:"cell"`
}
