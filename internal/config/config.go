package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FactorForge/internal/logger"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	Database struct {
		Driver       string `yaml:"driver"` // sqlite, postgres
		DSN          string `yaml:"dsn"`
		HistoryTable string `yaml:"history_table"`
		FactorTable  string `yaml:"factor_table"`
		DateTable    string `yaml:"date_table"`
	} `yaml:"database"`
	Source struct {
		Kind      string  `yaml:"kind"` // sql, yahoo, mock
		Proxy     string  `yaml:"proxy"`
		MockPrice float64 `yaml:"mock_price"`
	} `yaml:"source"`
	Catalog struct {
		Path    string `yaml:"path"`
		Builtin string `yaml:"builtin"`
	} `yaml:"catalog"`
	Run struct {
		Codes          []string `yaml:"codes"`
		From           string   `yaml:"from"`
		To             string   `yaml:"to"`
		WarmupDays     int      `yaml:"warmup_days"`
		DropIncomplete bool     `yaml:"drop_incomplete"`
		SkipRecorded   bool     `yaml:"skip_recorded"`
		Workers        int      `yaml:"workers"`
		DateFactors    bool     `yaml:"date_factors"`
		ReportDir      string   `yaml:"report_dir"`
	} `yaml:"run"`
	Output struct {
		Kind string `yaml:"kind"` // sql, parquet, csv, none
		Dir  string `yaml:"dir"`
	} `yaml:"output"`
	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"DATABASE_DRIVER": &c.Database.Driver,
		"DATABASE_DSN":    &c.Database.DSN,
		"SOURCE_KIND":     &c.Source.Kind,
		"HTTPS_PROXY":     &c.Source.Proxy,
		"CATALOG_PATH":    &c.Catalog.Path,
		"CATALOG_BUILTIN": &c.Catalog.Builtin,
		"RUN_FROM":        &c.Run.From,
		"RUN_TO":          &c.Run.To,
		"REPORT_DIR":      &c.Run.ReportDir,
		"OUTPUT_KIND":     &c.Output.Kind,
		"OUTPUT_DIR":      &c.Output.Dir,
		"CRON_SCHEDULE":   &c.Schedule.Cron,
		"LOG_LEVEL":       &c.Log.Level,
		"METRICS_ADDR":    &c.Metrics.Addr,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("RUN_CODES"); v != "" {
		c.Run.Codes = nil
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				c.Run.Codes = append(c.Run.Codes, code)
			}
		}
	}
	if v := os.Getenv("RUN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RUN_WORKERS: %w", err)
		}
		c.Run.Workers = n
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		c.Schedule.RunOnStart = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/factorforge.db"
	}
	if c.Database.HistoryTable == "" {
		c.Database.HistoryTable = "history"
	}
	if c.Database.FactorTable == "" {
		c.Database.FactorTable = "factor"
	}
	if c.Database.DateTable == "" {
		c.Database.DateTable = "date_factor"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = "sql"
	}
	if c.Source.MockPrice == 0 {
		c.Source.MockPrice = 100
	}
	if c.Catalog.Path == "" && c.Catalog.Builtin == "" {
		c.Catalog.Builtin = "alpha184"
	}
	if c.Run.WarmupDays == 0 {
		c.Run.WarmupDays = 90
	}
	if c.Run.Workers == 0 {
		c.Run.Workers = 1
	}
	if c.Output.Kind == "" {
		c.Output.Kind = "sql"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "data/factors"
	}

	d := logger.DefaultConfig
	if c.Log.Level == "" {
		c.Log.Level = d.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = d.Output
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = d.MaxSize
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = d.MaxAge
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = d.MaxBackups
	}
}

// NeedsDatabase reports whether the source or the output is SQL.
func (c *Config) NeedsDatabase() bool {
	return c.Source.Kind == "sql" || c.Output.Kind == "sql"
}

// Window returns the parsed run bounds. An empty bound is zero.
func (c *Config) Window() (from, to time.Time, err error) {
	if c.Run.From != "" {
		if from, err = time.Parse(dateLayout, c.Run.From); err != nil {
			return from, to, fmt.Errorf("run.from: %w", err)
		}
	}
	if c.Run.To != "" {
		if to, err = time.Parse(dateLayout, c.Run.To); err != nil {
			return from, to, fmt.Errorf("run.to: %w", err)
		}
	}
	return from, to, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.NeedsDatabase() && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Source.Kind {
	case "sql", "yahoo", "mock":
	default:
		return fmt.Errorf("source.kind %q is not supported", c.Source.Kind)
	}
	switch c.Output.Kind {
	case "sql", "parquet", "csv", "none":
	default:
		return fmt.Errorf("output.kind %q is not supported", c.Output.Kind)
	}
	if c.Catalog.Path != "" && c.Catalog.Builtin != "" {
		return fmt.Errorf("catalog.path and catalog.builtin are exclusive")
	}
	if c.Source.Kind == "yahoo" && len(c.Run.Codes) == 0 {
		return fmt.Errorf("run.codes is required for the yahoo source")
	}
	if c.Run.WarmupDays < 0 {
		return fmt.Errorf("run.warmup_days must not be negative")
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be positive")
	}
	from, to, err := c.Window()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("run.to is before run.from")
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}
	return nil
}
