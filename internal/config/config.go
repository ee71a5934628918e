// Package config defines the application configuration, its defaults and its
// validation.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/detect"
	"github.com/Veraticus/mileage-audit/internal/model"
	"github.com/Veraticus/mileage-audit/internal/pipeline"
	"github.com/Veraticus/mileage-audit/internal/schema"
	"github.com/Veraticus/mileage-audit/internal/source"
)

// Config is the full application configuration.
type Config struct {
	Columns   schema.Mapping            `mapstructure:"columns"`
	Report    ReportConfig              `mapstructure:"report"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Input     source.Options            `mapstructure:"input"`
	Filter    pipeline.FilterOptions    `mapstructure:"filter"`
	Normalize pipeline.NormalizeOptions `mapstructure:"normalize"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Features  []model.Feature           `mapstructure:"features"`
	Detector  detect.Config             `mapstructure:"detector"`
	Sanity    pipeline.SanityBounds     `mapstructure:"sanity"`
}

// ReportConfig selects the report outputs. Empty paths disable the optional
// outputs; an empty Output writes next to the input file.
type ReportConfig struct {
	Output string `mapstructure:"output"`
	XLSX   string `mapstructure:"xlsx"`
	Plot   string `mapstructure:"plot"`
	Quiet  bool   `mapstructure:"quiet"`
}

// DatabaseConfig locates the run ledger. An empty path disables it.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig locates the node exporter textfile. An empty path disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=console json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := pipeline.DefaultConfig()
	return Config{
		Columns:   p.Mapping,
		Input:     source.Options{Format: source.FormatAuto},
		Filter:    p.Filter,
		Normalize: p.Normalize,
		Sanity:    p.Sanity,
		Detector:  p.Detector,
		Features:  p.Features,
		Database:  DatabaseConfig{Path: "$HOME/.local/share/mileage/runs.db"},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// SetDefaults registers every default with v so that partial config files and
// environment variables override individual keys.
func SetDefaults(v *viper.Viper) {
	d := Default()

	for f, column := range d.Columns {
		v.SetDefault("columns."+string(f), column)
	}

	v.SetDefault("input.format", string(d.Input.Format))
	v.SetDefault("input.sheet", d.Input.Sheet)
	v.SetDefault("input.delimiter", d.Input.Delimiter)

	v.SetDefault("filter.authorised_status", d.Filter.AuthorisedStatus)
	v.SetDefault("filter.excluded_templates", d.Filter.ExcludedTemplates)

	v.SetDefault("normalize.retain", fieldNames(d.Normalize.Retain))
	v.SetDefault("normalize.dates", fieldNames(d.Normalize.Dates))
	v.SetDefault("normalize.date_layout", d.Normalize.DateLayout)
	v.SetDefault("normalize.window_months", d.Normalize.WindowMonths)

	v.SetDefault("sanity.min_paid_miles", d.Sanity.MinPaidMiles)
	v.SetDefault("sanity.max_total_miles", d.Sanity.MaxTotalMiles)
	v.SetDefault("sanity.max_commute_miles", d.Sanity.MaxCommuteMiles)

	features := make([]string, len(d.Features))
	for i, f := range d.Features {
		features[i] = string(f)
	}
	v.SetDefault("features", features)

	v.SetDefault("detector.contamination", d.Detector.Contamination)
	v.SetDefault("detector.seed", d.Detector.Seed)
	v.SetDefault("detector.trees", d.Detector.Trees)
	v.SetDefault("detector.sample_size", d.Detector.SampleSize)
	v.SetDefault("detector.extension_level", d.Detector.ExtensionLevel)

	v.SetDefault("report.output", d.Report.Output)
	v.SetDefault("report.xlsx", d.Report.XLSX)
	v.SetDefault("report.plot", d.Report.Plot)
	v.SetDefault("report.quiet", d.Report.Quiet)

	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

// Load decodes v into a Config, expands paths and validates the result.
// Callers register defaults with SetDefaults first.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Columns = schema.DefaultMapping().Merge(cfg.Columns)
	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Metrics.Textfile = ExpandPath(cfg.Metrics.Textfile)
	cfg.Logging.File = ExpandPath(cfg.Logging.File)
	cfg.Report.Output = ExpandPath(cfg.Report.Output)
	cfg.Report.XLSX = ExpandPath(cfg.Report.XLSX)
	cfg.Report.Plot = ExpandPath(cfg.Report.Plot)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Pipeline returns the stage settings.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Mapping:   c.Columns,
		Filter:    c.Filter,
		Normalize: c.Normalize,
		Sanity:    c.Sanity,
		Detector:  c.Detector,
		Features:  c.Features,
	}
}

// LogOptions converts the logging section for common.SetupLogger.
func (c *Config) LogOptions() (common.LogOptions, error) {
	level, err := common.ParseLevel(c.Logging.Level)
	if err != nil {
		return common.LogOptions{}, err
	}
	return common.LogOptions{
		Level:      level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}, nil
}

func fieldNames(fields []model.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
