package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	appconfig "treasuryflow/config"
	"treasuryflow/logger"
	"treasuryflow/models"
	"treasuryflow/processor"
	"treasuryflow/reader"
	"treasuryflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Treasuryflow.Name,
		"version": cfg.Treasuryflow.Version,
	}).Info("starting treasuryflow")

	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace, cfg.Logging.DashboardName)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	inputs, err := loadInputs(cfg)
	if err != nil {
		log.WithError(err).Error("failed to load input tables")
		os.Exit(1)
	}

	exporter, err := writer.NewExporter(cfg)
	if err != nil {
		log.WithError(err).Error("failed to create exporter")
		os.Exit(1)
	}

	pipeline := processor.NewPipeline(cfg)
	result, err := pipeline.Run(ctx, inputs)
	if err != nil {
		log.WithError(err).Error("run failed")
		os.Exit(1)
	}

	paths, err := exporter.Export(ctx, result.Wide, result.RunID)
	if err != nil {
		log.WithError(err).Error("export failed")
		os.Exit(1)
	}

	logger.ReportRun(ctx, log, logger.Fields{
		"run_id": result.RunID,
		"files":  paths,
	})
	log.Info("treasuryflow finished")
}

// loadInputs reads the three input tables from the configured source: csv
// intermediates, or the raw quote workbook with the month-end lookup
// derived from its trading dates.
func loadInputs(cfg *appconfig.Config) (processor.Inputs, error) {
	dir := cfg.Reader.DataDir

	if cfg.Reader.Source == appconfig.SourceWorkbook {
		obs, err := reader.LoadWorkbook(filepath.Join(dir, cfg.Reader.WorkbookFile), cfg.Reader.WorkbookSheet)
		if err != nil {
			return processor.Inputs{}, err
		}
		curve, err := loadCurveForWorkbook(cfg)
		if err != nil {
			return processor.Inputs{}, err
		}
		return processor.Inputs{
			Observations: obs,
			Curve:        curve,
			MonthEnds:    reader.DeriveMonthEnds(obs),
		}, nil
	}

	obs, err := reader.LoadObservations(filepath.Join(dir, cfg.Reader.ObservationsFile))
	if err != nil {
		return processor.Inputs{}, err
	}
	curve, err := reader.LoadCurve(filepath.Join(dir, cfg.Reader.CurveFile))
	if err != nil {
		return processor.Inputs{}, err
	}
	monthEnds, err := reader.LoadMonthEnds(filepath.Join(dir, cfg.Reader.MonthEndFile))
	if err != nil {
		return processor.Inputs{}, err
	}
	return processor.Inputs{Observations: obs, Curve: curve, MonthEnds: monthEnds}, nil
}

// loadCurveForWorkbook prefers a curve sheet in its own workbook when the
// curve file is an xlsx, falling back to the csv intermediate.
func loadCurveForWorkbook(cfg *appconfig.Config) (models.RateCurve, error) {
	path := filepath.Join(cfg.Reader.DataDir, cfg.Reader.CurveFile)
	if filepath.Ext(cfg.Reader.CurveFile) == ".xlsx" {
		return reader.LoadCurveWorkbook(path, cfg.Reader.CurveSheet)
	}
	return reader.LoadCurve(path)
}
