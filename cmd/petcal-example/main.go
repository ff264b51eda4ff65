package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cyp0633/libpetcal/recurrence"
	"github.com/cyp0633/libpetcal/scheduler"
	"github.com/cyp0633/libpetcal/storage"
	"github.com/cyp0633/libpetcal/storage/postgres"
	"github.com/cyp0633/libpetcal/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/mo"
)

// Config is read from the environment
type Config struct {
	DBPath       string     `env:"PETCAL_DB_PATH" envDefault:"petcal.db"`
	PostgresDSN  string     `env:"PETCAL_POSTGRES_DSN"`
	LogLevel     slog.Level `env:"PETCAL_LOG_LEVEL" envDefault:"INFO"`
	WindowDays   int        `env:"PETCAL_WINDOW_DAYS" envDefault:"30"`
	FeedingTimes []string   `env:"PETCAL_FEEDING_TIMES" envDefault:"08:00,18:00" envSeparator:","`
	PetID        string     `env:"PETCAL_PET_ID" envDefault:"rex"`
	Birthday     string     `env:"PETCAL_PET_BIRTHDAY" envDefault:"2024-01-01"`
	ClampMonths  bool       `env:"PETCAL_CLAMP_MONTHS"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.WindowDays <= 0 {
		return Config{}, fmt.Errorf("PETCAL_WINDOW_DAYS must be positive, got %d", cfg.WindowDays)
	}
	return cfg, nil
}

func (c Config) feedingTimes() ([]recurrence.TimeOfDay, error) {
	times := make([]recurrence.TimeOfDay, 0, len(c.FeedingTimes))
	for _, s := range c.FeedingTimes {
		t, err := recurrence.ParseTimeOfDay(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("PETCAL_FEEDING_TIMES: %w", err)
		}
		times = append(times, t)
	}
	return times, nil
}

func (c Config) engineConfig(logger *slog.Logger) recurrence.EngineConfig {
	cfg := recurrence.DefaultEngineConfig
	if c.ClampMonths {
		cfg = recurrence.ClampingConfig
	}
	cfg.WindowDays = c.WindowDays
	cfg.Logger = logger
	return cfg
}

type closableStorage interface {
	storage.Storage
	Close() error
}

func openStorage(ctx context.Context, cfg Config) (closableStorage, error) {
	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx := context.Background()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}

	reg := prometheus.NewRegistry()
	err = run(ctx, cfg, store, logger, reg, os.Stdout, time.Now())
	_ = store.Close()
	if err != nil {
		logger.Error("petcal failed", "err", err)
		os.Exit(1)
	}
	logMetrics(logger, reg)
}

// run schedules feeding and the core vaccines for the configured pet and
// writes the resulting calendar to w
func run(ctx context.Context, cfg Config, store storage.Storage, logger *slog.Logger, reg prometheus.Registerer, w io.Writer, now time.Time) error {
	times, err := cfg.feedingTimes()
	if err != nil {
		return err
	}
	birth, err := recurrence.ParseDate(cfg.Birthday)
	if err != nil {
		return fmt.Errorf("PETCAL_PET_BIRTHDAY: %w", err)
	}

	svc, err := scheduler.New(store,
		scheduler.WithLogger(logger),
		scheduler.WithEngine(recurrence.NewEngineWithConfig(cfg.engineConfig(logger))),
		scheduler.WithMetrics(scheduler.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}

	today := recurrence.DateOf(now)
	if _, err := svc.EnableFeeding(ctx, cfg.PetID, times, today); err != nil {
		return err
	}

	for _, name := range []string{"DHPP", "Rabies"} {
		first, err := svc.InitialDue(birth, name)
		if err != nil {
			return err
		}
		if err := svc.AddToHistory(ctx, cfg.PetID, name, mo.Some(first)); err != nil {
			return err
		}
		if _, err := svc.PlanNextDue(ctx, cfg.PetID, name); err != nil {
			return err
		}
	}

	return svc.ExportCalendar(ctx, cfg.PetID, w, now.UTC())
}

func logMetrics(logger *slog.Logger, gatherer prometheus.Gatherer) {
	families, err := gatherer.Gather()
	if err != nil {
		logger.Warn("gather metrics", "err", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"name", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			logger.Debug("metric", attrs...)
		}
	}
}
