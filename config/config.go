package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Treasuryflow TreasuryflowConfig `yaml:"treasuryflow"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Reader       ReaderConfig       `yaml:"reader"`
	Processor    ProcessorConfig    `yaml:"processor"`
	Writer       WriterConfig       `yaml:"writer"`
	Storage      StorageConfig      `yaml:"storage"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type TreasuryflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// PipelineConfig carries the spread-construction parameters. The maturity
// overrides are contract labels whose expiry falls on the last calendar
// day of the delivery month rather than the last business day; they are
// data, not code, so known historical exceptions can grow without a
// resolver change.
type PipelineConfig struct {
	CutoffDate        string   `yaml:"cutoff_date"`
	Tenors            []int    `yaml:"tenors"`
	WindowDays        int      `yaml:"window_days"`
	Threshold         float64  `yaml:"threshold"`
	MaturityOverrides []string `yaml:"maturity_overrides"`

	cutoff time.Time
}

// Cutoff returns the parsed cutoff date. Observations on or before this
// date are excluded from spread construction. An empty or malformed
// CutoffDate yields the zero time, which excludes nothing; LoadConfig
// rejects malformed dates up front.
func (p *PipelineConfig) Cutoff() time.Time {
	if p.cutoff.IsZero() && p.CutoffDate != "" {
		if t, err := time.Parse("2006-01-02", p.CutoffDate); err == nil {
			p.cutoff = t
		}
	}
	return p.cutoff
}

type ReaderConfig struct {
	// Source selects between csv intermediates and the raw quote workbook.
	Source           string `yaml:"source"`
	DataDir          string `yaml:"data_dir"`
	ObservationsFile string `yaml:"observations_file"`
	CurveFile        string `yaml:"curve_file"`
	MonthEndFile     string `yaml:"month_end_file"`
	WorkbookFile     string `yaml:"workbook_file"`
	WorkbookSheet    string `yaml:"workbook_sheet"`
	CurveSheet       string `yaml:"curve_sheet"`
}

type ProcessorConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type WriterConfig struct {
	OutputDir string        `yaml:"output_dir"`
	BaseName  string        `yaml:"base_name"`
	Formats   FormatsConfig `yaml:"formats"`
}

type FormatsConfig struct {
	CSV     bool `yaml:"csv"`
	Parquet bool `yaml:"parquet"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch bool   `yaml:"cloudwatch"`
	Region     string `yaml:"region"`
	Namespace  string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	DashboardName string `yaml:"dashboard_name"`
}

const (
	SourceCSV      = "csv"
	SourceWorkbook = "workbook"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Pipeline: PipelineConfig{
			CutoffDate:        "2004-06-22",
			Tenors:            []int{2, 5, 10, 20, 30},
			WindowDays:        45,
			Threshold:         10,
			MaturityOverrides: []string{"DEC 21", "MAR 22"},
		},
		Reader: ReaderConfig{
			Source:           SourceCSV,
			ObservationsFile: "treasury_obs.csv",
			CurveFile:        "ois_curve.csv",
			MonthEndFile:     "month_end.csv",
			WorkbookSheet:    "T_SF",
			CurveSheet:       "OIS",
		},
		Processor: ProcessorConfig{MaxWorkers: 4},
		Writer: WriterConfig{
			BaseName: "treasury_sf_implied_rf",
			Formats:  FormatsConfig{CSV: true, Parquet: true},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Treasuryflow.Name == "" {
		return fmt.Errorf("treasuryflow.name is required")
	}
	if cfg.Treasuryflow.Version == "" {
		return fmt.Errorf("treasuryflow.version is required")
	}

	cutoff, err := time.Parse("2006-01-02", cfg.Pipeline.CutoffDate)
	if err != nil {
		return fmt.Errorf("pipeline.cutoff_date %q is not a valid date: %w", cfg.Pipeline.CutoffDate, err)
	}
	cfg.Pipeline.cutoff = cutoff

	if len(cfg.Pipeline.Tenors) == 0 {
		return fmt.Errorf("pipeline.tenors must not be empty")
	}
	seen := make(map[int]struct{}, len(cfg.Pipeline.Tenors))
	for _, t := range cfg.Pipeline.Tenors {
		if t <= 0 {
			return fmt.Errorf("pipeline.tenors entries must be positive, got %d", t)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("pipeline.tenors contains duplicate entry %d", t)
		}
		seen[t] = struct{}{}
	}
	if cfg.Pipeline.WindowDays <= 0 {
		return fmt.Errorf("pipeline.window_days must be greater than 0")
	}
	if cfg.Pipeline.Threshold <= 0 {
		return fmt.Errorf("pipeline.threshold must be greater than 0")
	}

	switch cfg.Reader.Source {
	case SourceCSV, SourceWorkbook:
	default:
		return fmt.Errorf("reader.source must be %q or %q", SourceCSV, SourceWorkbook)
	}
	if cfg.Reader.DataDir == "" {
		return fmt.Errorf("reader.data_dir is required")
	}
	if cfg.Reader.Source == SourceWorkbook && cfg.Reader.WorkbookFile == "" {
		return fmt.Errorf("reader.workbook_file is required when reader.source is %q", SourceWorkbook)
	}

	if cfg.Processor.MaxWorkers <= 0 {
		return fmt.Errorf("processor.max_workers must be greater than 0")
	}

	if cfg.Writer.OutputDir == "" {
		return fmt.Errorf("writer.output_dir is required")
	}
	if !cfg.Writer.Formats.CSV && !cfg.Writer.Formats.Parquet {
		return fmt.Errorf("writer.formats must enable at least one of csv or parquet")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
