package processor

import (
	"fmt"
	"sort"
	"time"

	"treasuryflow/models"
)

// Pivot reshapes cleaned long-format spread records into one row per trade
// date with a cell per configured tenor. Each cell carries the deferred
// contract's implied rate and reference rate in basis points and its
// time-to-maturity in days; outlier-flagged records contribute null rate
// cells. A duplicate (date, tenor) pair or a tenor outside the configured
// set is a structural violation and fails the pivot loudly rather than
// aggregating silently.
func Pivot(records []models.SpreadRecord, tenors []int) (*models.WideTable, error) {
	if len(tenors) == 0 {
		return nil, fmt.Errorf("no tenors configured")
	}
	tenorSet := make(map[int]struct{}, len(tenors))
	for _, t := range tenors {
		tenorSet[t] = struct{}{}
	}

	rows := make(map[time.Time]*models.WideRow)
	order := make([]time.Time, 0, len(records))

	for i := range records {
		rec := &records[i]
		if _, ok := tenorSet[rec.Tenor]; !ok {
			return nil, fmt.Errorf("tenor %d for date %s is not in the configured tenor set", rec.Tenor, rec.Date.Format("2006-01-02"))
		}

		row, ok := rows[rec.Date]
		if !ok {
			row = &models.WideRow{Date: rec.Date, Cells: make(map[int]models.WideCell, len(tenors))}
			rows[rec.Date] = row
			order = append(order, rec.Date)
		}
		if _, dup := row.Cells[rec.Tenor]; dup {
			return nil, fmt.Errorf("duplicate (date, tenor) key: date %s tenor %d", rec.Date.Format("2006-01-02"), rec.Tenor)
		}
		row.Cells[rec.Tenor] = cellFromRecord(rec)
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	table := &models.WideTable{Tenors: append([]int(nil), tenors...)}
	for _, date := range order {
		table.Rows = append(table.Rows, *rows[date])
	}
	return table, nil
}

// cellFromRecord publishes the deferred slot: the implied repo rate in
// basis points (nulled when the record was flagged), the interpolated
// reference rate in basis points and the time-to-maturity in days.
func cellFromRecord(rec *models.SpreadRecord) models.WideCell {
	cell := models.WideCell{}
	if !rec.Outlier && rec.Deferred.ImpliedRepo != nil {
		cell.Rate = models.Float(*rec.Deferred.ImpliedRepo * 100)
	}
	if rec.Deferred.Rate != nil {
		cell.Ref = models.Float(*rec.Deferred.Rate * 100)
	}
	if rec.Deferred.TTM != nil {
		ttm := *rec.Deferred.TTM
		cell.TTM = &ttm
	}
	return cell
}

// Melt converts a wide table back to long format, one cell per (date,
// tenor) pair. It is the inverse of Pivot over non-null cells and exists
// mainly so downstream consumers and tests can verify cardinality.
func Melt(table *models.WideTable) []models.LongCell {
	out := make([]models.LongCell, 0, len(table.Rows)*len(table.Tenors))
	for _, row := range table.Rows {
		for _, tenor := range table.Tenors {
			cell, ok := row.Cells[tenor]
			if !ok {
				continue
			}
			out = append(out, models.LongCell{Date: row.Date, Tenor: tenor, Cell: cell})
		}
	}
	return out
}
