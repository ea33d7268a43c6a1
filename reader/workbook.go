package reader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"treasuryflow/logger"
	"treasuryflow/models"
)

// Column layout of the raw quote workbook: one date column followed by a
// four-column group (implied repo, volume, contract, price) for every
// (slot, tenor) combination, near slot first, tenors in the vendor's
// export order.
var workbookTenorOrder = []int{10, 5, 2, 20, 30}

const (
	workbookHeaderRows    = 6
	workbookMetricsPerSet = 4
)

// LoadWorkbook parses the raw quote workbook sheet into long-format
// contract observations. Rows without a parseable date are skipped, as in
// the vendor export they are blank separators or footers. Cells that fail
// numeric conversion load as nulls; the contract label is kept verbatim.
func LoadWorkbook(path, sheet string) ([]models.ContractObservation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) <= workbookHeaderRows {
		return nil, fmt.Errorf("sheet %q has no data rows", sheet)
	}

	slots := []models.ContractSlot{models.SlotNear, models.SlotDeferred}
	obs := make([]models.ContractObservation, 0, (len(rows)-workbookHeaderRows)*len(slots)*len(workbookTenorOrder))

	for _, row := range rows[workbookHeaderRows:] {
		if len(row) == 0 {
			continue
		}
		date, ok := parseWorkbookDate(row[0])
		if !ok {
			continue
		}

		col := 1
		for _, slot := range slots {
			for _, tenor := range workbookTenorOrder {
				obs = append(obs, models.ContractObservation{
					Date:        date,
					Tenor:       tenor,
					Slot:        slot,
					Label:       strings.TrimSpace(cellAt(row, col+2)),
					ImpliedRepo: parseNullableFloat(cellAt(row, col)),
					Volume:      parseNullableFloat(cellAt(row, col+1)),
					Price:       parseNullableFloat(cellAt(row, col+3)),
				})
				col += workbookMetricsPerSet
			}
		}
	}

	logger.AddRowsRead(int64(len(obs)))
	return obs, nil
}

// LoadCurveWorkbook parses a curve sheet whose header row names the
// columns Date, OIS_1W, OIS_1M, OIS_3M, OIS_6M, OIS_1Y.
func LoadCurveWorkbook(path, sheet string) (models.RateCurve, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheet)
	}

	cols, err := columnIndex(rows[0], "date", "ois_1w", "ois_1m", "ois_3m", "ois_6m", "ois_1y")
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	curve := make(models.RateCurve, len(rows)-1)
	for i, row := range rows[1:] {
		date, ok := parseWorkbookDate(cellAt(row, cols["date"]))
		if !ok {
			continue
		}
		snap := models.RateCurveSnapshot{
			Date:  date,
			OIS1W: parseNullableFloat(cellAt(row, cols["ois_1w"])),
			OIS1M: parseNullableFloat(cellAt(row, cols["ois_1m"])),
			OIS3M: parseNullableFloat(cellAt(row, cols["ois_3m"])),
			OIS6M: parseNullableFloat(cellAt(row, cols["ois_6m"])),
			OIS1Y: parseNullableFloat(cellAt(row, cols["ois_1y"])),
		}
		if !curve.Add(snap) {
			return nil, fmt.Errorf("sheet %q row %d: duplicate curve snapshot for %s", sheet, i+2, date.Format("2006-01-02"))
		}
	}
	return curve, nil
}

// DeriveMonthEnds builds the month-end lookup from observed trading
// dates: the last trading day seen in each calendar month becomes that
// month's last business day.
func DeriveMonthEnds(obs []models.ContractObservation) models.MonthEndLookup {
	lookup := make(models.MonthEndLookup)
	for _, o := range obs {
		d := models.DateKey(o.Date)
		key := models.MonthKey{Month: d.Month(), Year: d.Year()}
		if cur, ok := lookup[key]; !ok || d.Day() > cur {
			lookup[key] = d.Day()
		}
	}
	return lookup
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseWorkbookDate accepts either a formatted date string or a raw Excel
// serial number.
func parseWorkbookDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateKey(t), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return models.DateKey(t), true
		}
	}
	return time.Time{}, false
}
