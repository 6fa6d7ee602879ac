package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FactorForge/internal/calculator"
	"FactorForge/internal/catalog"
	"FactorForge/internal/collector"
	"FactorForge/internal/config"
	"FactorForge/internal/database"
	"FactorForge/internal/driver"
	"FactorForge/internal/expr"
	"FactorForge/internal/logger"
	"FactorForge/internal/metrics"
	"FactorForge/internal/recorder"
	"FactorForge/internal/scheduler"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config validation")
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("prebuild failed")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	var db *database.DB
	if cfg.NeedsDatabase() {
		var err error
		db, err = database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	fetcher, err := newFetcher(cfg, db)
	if err != nil {
		return err
	}
	log.WithField("source", fetcher.Name()).Info("data source ready")

	rec, err := newRecorder(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer rec.Close()

	lib := calculator.NewLibrary()
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	factors, err := cat.Compile(lib)
	if err != nil {
		return fmt.Errorf("compile catalog: %w", err)
	}
	log.WithField("factors", len(factors)).Info("catalog compiled")

	from, to, err := cfg.Window()
	if err != nil {
		return err
	}
	drv := driver.New(
		collector.NewCollector(fetcher, cfg.Run.WarmupDays),
		expr.NewEvaluator(lib),
		factors,
		rec,
		log,
		driver.Options{
			From:           from,
			To:             to,
			DropIncomplete: cfg.Run.DropIncomplete,
			SkipRecorded:   cfg.Run.SkipRecorded,
			Workers:        cfg.Run.Workers,
			DateFactors:    cfg.Run.DateFactors,
		},
	)

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		log.WithField("addr", cfg.Metrics.Addr).Info("metrics server started")
	}

	job := func(ctx context.Context) error {
		codes, err := universe(ctx, cfg, fetcher)
		if err != nil {
			return err
		}
		report, err := drv.Run(ctx, codes)
		if report != nil && cfg.Run.ReportDir != "" {
			path, werr := report.WriteReport(cfg.Run.ReportDir)
			if werr != nil {
				log.WithError(werr).Error("write run report")
			} else {
				log.WithField("path", path).Info("run report written")
			}
		}
		return err
	}

	if cfg.Schedule.Cron == "" {
		return job(ctx)
	}

	sched := scheduler.NewScheduler(ctx, job, log)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Schedule.RunOnStart {
		log.Info("RUN_ON_START enabled, rebuilding now")
		go sched.RunNow()
	}

	log.Info("prebuild is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping...")
	return nil
}

func newFetcher(cfg *config.Config, db *database.DB) (collector.Fetcher, error) {
	switch cfg.Source.Kind {
	case "sql":
		return collector.NewSQLFetcher(db, cfg.Database.HistoryTable), nil
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Source.Proxy), nil
	case "mock":
		return &collector.MockFetcher{Price: cfg.Source.MockPrice}, nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source.Kind)
}

func newRecorder(ctx context.Context, cfg *config.Config, db *database.DB) (recorder.Recorder, error) {
	switch cfg.Output.Kind {
	case "sql":
		return recorder.NewSQLRecorder(ctx, db, cfg.Database.FactorTable, cfg.Database.DateTable)
	case "parquet":
		return recorder.NewFileRecorder(recorder.FormatParquet, cfg.Output.Dir)
	case "csv":
		return recorder.NewFileRecorder(recorder.FormatCSV, cfg.Output.Dir)
	case "none":
		return recorder.NewNoopRecorder(), nil
	}
	return nil, fmt.Errorf("unknown output %q", cfg.Output.Kind)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return catalog.Load(cfg.Catalog.Path)
	}
	return catalog.Builtin(cfg.Catalog.Builtin)
}

// universe returns the configured codes, or every code the source knows.
func universe(ctx context.Context, cfg *config.Config, fetcher collector.Fetcher) ([]string, error) {
	if len(cfg.Run.Codes) > 0 {
		return cfg.Run.Codes, nil
	}
	u, ok := fetcher.(collector.Universe)
	if !ok {
		return nil, fmt.Errorf("source %s cannot list instruments, set run.codes", fetcher.Name())
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	codes, err := u.ListCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	return codes, nil
}
