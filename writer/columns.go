package writer

import (
	"fmt"
	"strconv"

	"treasuryflow/models"
)

// External-facing column names for the wide table. The mapping is a
// display-layer concern: one date column, then per metric a column per
// tenor, e.g. tfut_2_rf, tfut_5_rf, ..., tfut_2_ois, ..., tfut_2_ttm.
func columnNames(tenors []int) []string {
	names := []string{"date"}
	for _, metric := range []string{"rf", "ois", "ttm"} {
		for _, t := range tenors {
			names = append(names, fmt.Sprintf("tfut_%d_%s", t, metric))
		}
	}
	return names
}

// rowValues renders one wide row in the same order as columnNames.
// Missing values render as nil, never zero.
func rowValues(row models.WideRow, tenors []int) []*string {
	values := make([]*string, 0, 1+3*len(tenors))
	date := row.Date.Format("2006-01-02")
	values = append(values, &date)

	for _, t := range tenors {
		cell := row.Cells[t]
		values = append(values, formatFloat(cell.Rate))
	}
	for _, t := range tenors {
		cell := row.Cells[t]
		values = append(values, formatFloat(cell.Ref))
	}
	for _, t := range tenors {
		cell := row.Cells[t]
		values = append(values, formatInt(cell.TTM))
	}
	return values
}

func formatFloat(v *float64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	return &s
}

func formatInt(v *int) *string {
	if v == nil {
		return nil
	}
	s := strconv.Itoa(*v)
	return &s
}
