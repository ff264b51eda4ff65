package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/libpetcal/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, "petcal.db", cfg.DBPath)
		assert.Equal(t, 30, cfg.WindowDays)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, []string{"08:00", "18:00"}, cfg.FeedingTimes)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("PETCAL_WINDOW_DAYS", "7")
		t.Setenv("PETCAL_LOG_LEVEL", "debug")
		t.Setenv("PETCAL_FEEDING_TIMES", "07:00, 12:00,19:30")
		t.Setenv("PETCAL_CLAMP_MONTHS", "true")

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.WindowDays)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.True(t, cfg.ClampMonths)

		times, err := cfg.feedingTimes()
		require.NoError(t, err)
		require.Len(t, times, 3)
		assert.Equal(t, "12:00", times[1].String())
	})

	t.Run("bad window", func(t *testing.T) {
		t.Setenv("PETCAL_WINDOW_DAYS", "0")
		_, err := loadConfig()
		assert.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	t.Setenv("PETCAL_WINDOW_DAYS", "3")
	cfg, err := loadConfig()
	require.NoError(t, err)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "petcal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, store, logger, prometheus.NewRegistry(), &out, now))
	assert.Equal(t, 6, strings.Count(out.String(), "SUMMARY:Feeding"))
	assert.Contains(t, out.String(), "SUMMARY:Rabies Vaccination")
	assert.Contains(t, out.String(), "SUMMARY:DHPP Vaccination")

	// a second run on the same day adds nothing
	out.Reset()
	require.NoError(t, run(context.Background(), cfg, store, logger, prometheus.NewRegistry(), &out, now))
	assert.Equal(t, 6, strings.Count(out.String(), "SUMMARY:Feeding"))
	assert.Equal(t, 1, strings.Count(out.String(), "SUMMARY:Rabies Vaccination"))
}

func TestRunRejectsBadFeedingTimes(t *testing.T) {
	t.Setenv("PETCAL_FEEDING_TIMES", "08:00,noon")
	cfg, err := loadConfig()
	require.NoError(t, err)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "petcal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	err = run(context.Background(), cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)),
		prometheus.NewRegistry(), io.Discard, time.Now())
	assert.Error(t, err)
}
