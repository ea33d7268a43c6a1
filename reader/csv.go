package reader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"treasuryflow/logger"
	"treasuryflow/models"
)

// dateLayouts accepted for trade and maturity dates in csv inputs.
var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "01/02/2006", time.RFC3339}

// LoadObservations reads the long-format contract observation table:
// one row per (date, tenor, slot) with columns
// date, tenor, slot, contract, implied_repo, volume, price.
// Numeric cells may be empty, which loads as an explicit null.
func LoadObservations(path string) ([]models.ContractObservation, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, "date", "tenor", "slot", "contract", "implied_repo", "volume", "price")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	obs := make([]models.ContractObservation, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		tenor, err := strconv.Atoi(strings.TrimSpace(row[cols["tenor"]]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid tenor %q", path, i+2, row[cols["tenor"]])
		}
		slot := models.ContractSlot(strings.ToLower(strings.TrimSpace(row[cols["slot"]])))
		if slot != models.SlotNear && slot != models.SlotDeferred {
			return nil, fmt.Errorf("%s row %d: invalid slot %q", path, i+2, row[cols["slot"]])
		}

		obs = append(obs, models.ContractObservation{
			Date:        date,
			Tenor:       tenor,
			Slot:        slot,
			Label:       strings.TrimSpace(row[cols["contract"]]),
			ImpliedRepo: parseNullableFloat(row[cols["implied_repo"]]),
			Volume:      parseNullableFloat(row[cols["volume"]]),
			Price:       parseNullableFloat(row[cols["price"]]),
		})
	}

	logger.AddRowsRead(int64(len(obs)))
	return obs, nil
}

// LoadMonthEnds reads the month-end lookup table with columns
// month, year, day. Duplicate (month, year) rows are a structural error.
func LoadMonthEnds(path string) (models.MonthEndLookup, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, "month", "year", "day")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	lookup := make(models.MonthEndLookup, len(rows))
	for i, row := range rows {
		month, err := strconv.Atoi(strings.TrimSpace(row[cols["month"]]))
		if err != nil || month < 1 || month > 12 {
			return nil, fmt.Errorf("%s row %d: invalid month %q", path, i+2, row[cols["month"]])
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[cols["year"]]))
		if err != nil || year < 1900 {
			return nil, fmt.Errorf("%s row %d: invalid year %q", path, i+2, row[cols["year"]])
		}
		day, err := strconv.Atoi(strings.TrimSpace(row[cols["day"]]))
		if err != nil || day < 1 || day > 31 {
			return nil, fmt.Errorf("%s row %d: invalid day %q", path, i+2, row[cols["day"]])
		}
		if _, dup := lookup.Day(time.Month(month), year); dup {
			return nil, fmt.Errorf("%s row %d: duplicate month-end entry for %d-%02d", path, i+2, year, month)
		}
		lookup.Set(time.Month(month), year, day)
	}
	return lookup, nil
}

// LoadCurve reads the rate-curve snapshot table with columns
// date, ois_1w, ois_1m, ois_3m, ois_6m, ois_1y. Rates are fractions and
// any pillar may be empty. A duplicate date is a structural error.
func LoadCurve(path string) (models.RateCurve, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, "date", "ois_1w", "ois_1m", "ois_3m", "ois_6m", "ois_1y")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	curve := make(models.RateCurve, len(rows))
	for i, row := range rows {
		date, err := parseDate(row[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		snap := models.RateCurveSnapshot{
			Date:  date,
			OIS1W: parseNullableFloat(row[cols["ois_1w"]]),
			OIS1M: parseNullableFloat(row[cols["ois_1m"]]),
			OIS3M: parseNullableFloat(row[cols["ois_3m"]]),
			OIS6M: parseNullableFloat(row[cols["ois_6m"]]),
			OIS1Y: parseNullableFloat(row[cols["ois_1y"]]),
		}
		if !curve.Add(snap) {
			return nil, fmt.Errorf("%s row %d: duplicate curve snapshot for %s", path, i+2, date.Format("2006-01-02"))
		}
	}
	return curve, nil
}

func readCSV(path string) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s header: %w", path, err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, header, nil
}

func columnIndex(header []string, names ...string) (map[string]int, error) {
	index := make(map[string]int, len(names))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range names {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return index, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateKey(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parseNullableFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
