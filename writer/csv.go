package writer

import (
	"encoding/csv"
	"fmt"
	"os"

	"treasuryflow/models"
)

// WriteWideCSV writes the wide table to path with the external column
// names. Missing values are written as empty cells.
func WriteWideCSV(path string, table *models.WideTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columnNames(table.Tenors)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, 0, 1+3*len(table.Tenors))
	for _, row := range table.Rows {
		record = record[:0]
		for _, v := range rowValues(row, table.Tenors) {
			if v == nil {
				record = append(record, "")
			} else {
				record = append(record, *v)
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Date.Format("2006-01-02"), err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}
