package recurrence

import (
	"io"
	"log/slog"
)

// MonthOverflow decides what calendar-month arithmetic does when the target day does not exist
type MonthOverflow int

const (
	// OverflowRollover carries surplus days into the next month: Jan 31 + 1 month = Mar 2 (or Mar 3).
	OverflowRollover MonthOverflow = iota
	// OverflowClamp uses the last valid day of the target month: Jan 31 + 1 month = Feb 28 (or Feb 29).
	OverflowClamp
)

func (p MonthOverflow) String() string {
	if p == OverflowClamp {
		return "clamp"
	}
	return "rollover"
}

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// WindowDays is the feeding window Expand covers
	WindowDays int

	// MonthOverflow is the policy for month and year offsets
	MonthOverflow MonthOverflow

	// Logger receives diagnostics such as legacy reschedule units. Nil discards them.
	Logger *slog.Logger
}

// DefaultEngineConfig matches the stored data's historical behavior
var DefaultEngineConfig = EngineConfig{
	WindowDays:    30,
	MonthOverflow: OverflowRollover,
}

// ClampingConfig keeps month offsets inside the target month
var ClampingConfig = EngineConfig{
	WindowDays:    30,
	MonthOverflow: OverflowClamp,
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	if config.WindowDays <= 0 {
		config.WindowDays = DefaultEngineConfig.WindowDays
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{
		config: config,
		logger: logger,
	}
}
