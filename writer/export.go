package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	appconfig "treasuryflow/config"
	"treasuryflow/logger"
	"treasuryflow/models"
)

// Exporter is the terminal stage: it persists the wide table in the
// configured formats and optionally ships the files to S3.
type Exporter struct {
	config   *appconfig.Config
	uploader *Uploader
	log      *logger.Log
}

// NewExporter creates an exporter; when S3 storage is enabled the
// uploader is initialized eagerly so credential problems surface before
// the pipeline runs.
func NewExporter(cfg *appconfig.Config) (*Exporter, error) {
	e := &Exporter{config: cfg, log: logger.GetLogger()}
	if cfg.Storage.S3.Enabled {
		uploader, err := NewUploader(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 uploader: %w", err)
		}
		e.uploader = uploader
	}
	return e, nil
}

// Export writes the wide table and returns the paths of the files it
// produced.
func (e *Exporter) Export(ctx context.Context, table *models.WideTable, runID string) ([]string, error) {
	if err := os.MkdirAll(e.config.Writer.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	log := e.log.WithComponent("exporter").WithFields(logger.Fields{"run_id": runID})
	base := filepath.Join(e.config.Writer.OutputDir, e.config.Writer.BaseName)

	var paths []string
	if e.config.Writer.Formats.CSV {
		p := base + ".csv"
		if err := WriteWideCSV(p, table); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if e.config.Writer.Formats.Parquet {
		p := base + ".parquet"
		if err := WriteWideParquet(p, table); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	logger.AddRowsWritten(int64(len(table.Rows)))
	logger.LogDataFlowEntry(log, "wide_table", "output_files", len(table.Rows), "rows")

	if e.uploader != nil {
		for _, p := range paths {
			if err := e.uploader.Upload(ctx, p, runID); err != nil {
				return nil, err
			}
		}
	}

	log.WithFields(logger.Fields{"files": paths}).Info("export completed")
	return paths, nil
}
