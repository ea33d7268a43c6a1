package writer

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"treasuryflow/models"
)

// WriteWideParquet writes the wide table to a snappy-compressed parquet
// file. The schema is built from the configured tenor set: the date as a
// UTF8 string, rates in basis points as doubles and time-to-maturity as
// int64 days. Missing values become parquet nulls.
func WriteWideParquet(path string, table *models.WideTable) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	pw, err := writer.NewCSVWriter(parquetSchema(table.Tenors), fw, 1)
	if err != nil {
		fw.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range table.Rows {
		if err := pw.WriteString(rowValues(row, table.Tenors)); err != nil {
			fw.Close()
			return fmt.Errorf("failed to write row %s: %w", row.Date.Format("2006-01-02"), err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return fw.Close()
}

// parquetSchema declares the date as a required key column and every
// value column as OPTIONAL, so nil cells land as parquet nulls instead
// of failing the write.
func parquetSchema(tenors []int) []string {
	names := columnNames(tenors)
	md := make([]string, 0, len(names))
	md = append(md, fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY", names[0]))
	for _, name := range names[1:] {
		if isTTMColumn(name) {
			md = append(md, fmt.Sprintf("name=%s, type=INT64, repetitiontype=OPTIONAL", name))
		} else {
			md = append(md, fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=OPTIONAL", name))
		}
	}
	return md
}

func isTTMColumn(name string) bool {
	return len(name) >= 4 && name[len(name)-4:] == "_ttm"
}
