package recurrence

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func times(values ...string) []TimeOfDay {
	out := make([]TimeOfDay, len(values))
	for i, v := range values {
		out[i] = MustParseTimeOfDay(v)
	}
	return out
}

func TestEngine_ExpandFeedingSchedule(t *testing.T) {
	engine := NewEngine()

	result := engine.ExpandFeedingSchedule("pet-1", nil, times("08:00", "18:00"), MustParseDate("2024-05-01"), 2)

	expected := []OccurrenceRecord{
		{PetID: "pet-1", Kind: KindFeeding, Label: "Feeding", Date: MustParseDate("2024-05-01"), Time: MustParseTimeOfDay("08:00")},
		{PetID: "pet-1", Kind: KindFeeding, Label: "Feeding", Date: MustParseDate("2024-05-01"), Time: MustParseTimeOfDay("18:00")},
		{PetID: "pet-1", Kind: KindFeeding, Label: "Feeding", Date: MustParseDate("2024-05-02"), Time: MustParseTimeOfDay("08:00")},
		{PetID: "pet-1", Kind: KindFeeding, Label: "Feeding", Date: MustParseDate("2024-05-02"), Time: MustParseTimeOfDay("18:00")},
	}
	assert.Equal(t, expected, result)
}

func TestEngine_ExpandFeedingSchedule_WindowBounds(t *testing.T) {
	engine := NewEngine()
	start := MustParseDate("2024-02-27")

	tests := []struct {
		name     string
		times    []TimeOfDay
		days     int
		expected int
	}{
		{name: "zero days", times: times("08:00", "18:00"), days: 0, expected: 0},
		{name: "negative days", times: times("08:00", "18:00"), days: -3, expected: 0},
		{name: "two per day", times: times("08:00", "18:00"), days: 30, expected: 60},
		{name: "three per day", times: times("07:00", "12:00", "19:30"), days: 30, expected: 90},
		{name: "no times", times: nil, days: 30, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ExpandFeedingSchedule("pet-1", nil, tt.times, start, tt.days)
			assert.Len(t, result, tt.expected)
		})
	}
}

func TestEngine_ExpandFeedingSchedule_CrossesLeapDay(t *testing.T) {
	engine := NewEngine()

	result := engine.ExpandFeedingSchedule("pet-1", nil, times("08:00"), MustParseDate("2024-02-28"), 3)

	require.Len(t, result, 3)
	assert.Equal(t, "2024-02-28", result[0].Date.String())
	assert.Equal(t, "2024-02-29", result[1].Date.String())
	assert.Equal(t, "2024-03-01", result[2].Date.String())
}

func TestEngine_ExpandFeedingSchedule_NoDuplicates(t *testing.T) {
	engine := NewEngine()
	start := MustParseDate("2024-05-01")

	existing := []OccurrenceRecord{
		{PetID: "pet-1", Kind: KindFeeding, Label: FeedingLabel, Date: MustParseDate("2024-05-01"), Time: MustParseTimeOfDay("08:00")},
		{PetID: "pet-1", Kind: KindFeeding, Label: FeedingLabel, Date: MustParseDate("2024-05-03"), Time: MustParseTimeOfDay("18:00")},
		// same slot but another pet or label: not a duplicate
		{PetID: "pet-2", Kind: KindFeeding, Label: FeedingLabel, Date: MustParseDate("2024-05-02"), Time: MustParseTimeOfDay("08:00")},
		{PetID: "pet-1", Kind: KindVaccinationDue, Label: "Rabies Vaccination", Date: MustParseDate("2024-05-02"), Time: MustParseTimeOfDay("18:00")},
	}

	// repeated input time must not produce a repeated key either
	result := engine.ExpandFeedingSchedule("pet-1", existing, times("08:00", "18:00", "08:00"), start, 3)

	assert.Len(t, result, 4)
	existingKeys := make(map[Key]bool)
	for _, occ := range existing {
		existingKeys[occ.Key()] = true
	}
	seen := make(map[Key]bool)
	for _, occ := range result {
		assert.False(t, existingKeys[occ.Key()], "returned existing key %s", occ.Key())
		assert.False(t, seen[occ.Key()], "returned key twice %s", occ.Key())
		seen[occ.Key()] = true
	}
}

func TestEngine_ExpandFeedingSchedule_Saturates(t *testing.T) {
	engine := NewEngine()
	start := MustParseDate("2024-12-20")
	feed := times("07:30", "19:00")

	first := engine.ExpandFeedingSchedule("pet-1", nil, feed, start, 30)
	require.Len(t, first, 60)

	second := engine.ExpandFeedingSchedule("pet-1", first, feed, start, 30)
	assert.Empty(t, second)

	// a window that slides forward one day only needs the new day
	third := engine.ExpandFeedingSchedule("pet-1", first, feed, start.AddDays(1), 30)
	require.Len(t, third, 2)
	assert.Equal(t, "2025-01-19", third[0].Date.String())
}

func TestEngine_Expand(t *testing.T) {
	engine := NewEngineWithConfig(EngineConfig{WindowDays: 7})
	start := MustParseDate("2024-05-01")

	t.Run("feeding rule uses configured window", func(t *testing.T) {
		result, err := engine.Expand(FeedingRule("pet-1", times("08:00", "18:00")...), nil, start)
		require.NoError(t, err)
		assert.Len(t, result, 14)
	})

	t.Run("default window is thirty days", func(t *testing.T) {
		result, err := NewEngine().Expand(FeedingRule("pet-1", times("08:00", "18:00")...), nil, start)
		require.NoError(t, err)
		assert.Len(t, result, 60)
		assert.Equal(t, "2024-05-30", result[len(result)-1].Date.String())
	})

	t.Run("vaccination rule is not expandable", func(t *testing.T) {
		_, err := engine.Expand(VaccinationRule("pet-1", "Rabies", UnitAnnual), nil, start)
		assert.ErrorIs(t, err, ErrUnsupportedRule)
	})

	t.Run("invalid rule", func(t *testing.T) {
		_, err := engine.Expand(FeedingRule("pet-1", times("08:00")...), nil, start)
		assert.ErrorIs(t, err, ErrInvalidRule)
	})
}

func TestEngine_ComputeNextVaccinationDate(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		latest   string
		unit     RescheduleUnit
		expected string
	}{
		{name: "annual", latest: "2024-01-31", unit: UnitAnnual, expected: "2025-01-31"},
		{name: "semi-annual", latest: "2024-01-15", unit: UnitSemiAnnual, expected: "2024-07-15"},
		{name: "semi-annual rolls over short month", latest: "2024-08-31", unit: UnitSemiAnnual, expected: "2025-03-03"},
		{name: "two-dose series", latest: "2024-06-01", unit: UnitSeriesTwoDose, expected: "2024-06-22"},
		{name: "puppy series", latest: "2024-06-01", unit: UnitSeriesPuppyKitten, expected: "2024-06-29"},
		{name: "annual from leap day rolls over", latest: "2024-02-29", unit: UnitAnnual, expected: "2025-03-01"},
		{name: "legacy falls back to annual", latest: "2024-03-10", unit: UnitLegacy, expected: "2025-03-10"},
		{name: "out of range falls back to annual", latest: "2024-03-10", unit: RescheduleUnit(42), expected: "2025-03-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ComputeNextVaccinationDate(mo.Some(MustParseDate(tt.latest)), tt.unit)
			require.True(t, result.IsPresent())
			assert.Equal(t, tt.expected, result.MustGet().String())
		})
	}
}

func TestEngine_ComputeNextVaccinationDate_Absent(t *testing.T) {
	result := NewEngine().ComputeNextVaccinationDate(mo.None[Date](), UnitSemiAnnual)
	assert.True(t, result.IsAbsent())
}

func TestEngine_ComputeNextVaccinationDate_Clamp(t *testing.T) {
	engine := NewEngineWithConfig(ClampingConfig)

	next := engine.ComputeNextVaccinationDate(mo.Some(MustParseDate("2024-08-31")), UnitSemiAnnual)
	assert.Equal(t, "2025-02-28", next.MustGet().String())

	next = engine.ComputeNextVaccinationDate(mo.Some(MustParseDate("2024-02-29")), UnitAnnual)
	assert.Equal(t, "2025-02-28", next.MustGet().String())
}

func TestEngine_ComputeNextVaccinationDate_WarnsOnLegacyUnit(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	engine := NewEngineWithConfig(EngineConfig{Logger: logger})

	engine.ComputeNextVaccinationDate(mo.Some(MustParseDate("2024-03-10")), UnitAnnual)
	assert.Empty(t, buf.String())

	engine.ComputeNextVaccinationDate(mo.Some(MustParseDate("2024-03-10")), UnitLegacy)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "unit=legacy")
}

func TestResolveLatestKnownDate(t *testing.T) {
	tests := []struct {
		name         string
		history      []RescheduleEntry
		administered mo.Option[Date]
		expected     mo.Option[Date]
	}{
		{
			name: "history supersedes administered date",
			history: []RescheduleEntry{
				{Date: MustParseDate("2024-01-10"), Time: MustParseTimeOfDay("09:00"), Sequence: 1},
				{Date: MustParseDate("2024-03-01"), Time: MustParseTimeOfDay("09:00"), Sequence: 2},
			},
			administered: mo.Some(MustParseDate("2023-12-01")),
			expected:     mo.Some(MustParseDate("2024-03-01")),
		},
		{
			name: "unordered history",
			history: []RescheduleEntry{
				{Date: MustParseDate("2024-05-01"), Time: MustParseTimeOfDay("09:00"), Sequence: 1},
				{Date: MustParseDate("2024-02-01"), Time: MustParseTimeOfDay("09:00"), Sequence: 2},
				{Date: MustParseDate("2024-05-01"), Time: MustParseTimeOfDay("17:00"), Sequence: 3},
			},
			expected: mo.Some(MustParseDate("2024-05-01")),
		},
		{
			name:         "administered date only",
			administered: mo.Some(MustParseDate("2023-12-01")),
			expected:     mo.Some(MustParseDate("2023-12-01")),
		},
		{
			name:     "nothing known",
			expected: mo.None[Date](),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveLatestKnownDate(tt.history, tt.administered))
		})
	}
}

func TestResolveLatestKnownDate_DoesNotReorderInput(t *testing.T) {
	history := []RescheduleEntry{
		{Date: MustParseDate("2024-01-10"), Time: MustParseTimeOfDay("09:00"), Sequence: 1},
		{Date: MustParseDate("2024-03-01"), Time: MustParseTimeOfDay("09:00"), Sequence: 2},
	}
	ResolveLatestKnownDate(history, mo.None[Date]())
	assert.Equal(t, 1, history[0].Sequence)
	assert.Equal(t, 2, history[1].Sequence)
}

func TestRecordReschedule(t *testing.T) {
	d := MustParseDate("2024-04-01")
	tm := MustParseTimeOfDay("10:30")

	history, seq := RecordReschedule(nil, d, tm)
	assert.Equal(t, 1, seq)
	require.Len(t, history, 1)

	updated, seq := RecordReschedule(history, d.AddDays(21), tm)
	assert.Equal(t, 2, seq)
	require.Len(t, updated, 2)
	assert.Equal(t, RescheduleEntry{Date: d.AddDays(21), Time: tm, Sequence: 2}, updated[1])
	assert.Len(t, history, 1, "input history must be left untouched")
}

func TestEngine_ProjectDue(t *testing.T) {
	engine := NewEngine()
	at := MustParseTimeOfDay("09:00")

	entry := VaccinationHistoryEntry{
		VaccineName:      "DHPP",
		AdministeredDate: mo.Some(MustParseDate("2024-06-01")),
	}
	due := engine.ProjectDue("pet-1", entry, UnitSeriesTwoDose, at)
	require.True(t, due.IsPresent())
	assert.Equal(t, OccurrenceRecord{
		PetID: "pet-1",
		Kind:  KindVaccinationDue,
		Label: "DHPP Vaccination",
		Date:  MustParseDate("2024-06-22"),
		Time:  at,
	}, due.MustGet())

	entry.Reschedule(MustParseDate("2024-07-01"), at)
	due = engine.ProjectDue("pet-1", entry, UnitSeriesTwoDose, at)
	assert.Equal(t, "2024-07-22", due.MustGet().Date.String())

	none := engine.ProjectDue("pet-1", VaccinationHistoryEntry{VaccineName: "DHPP"}, UnitAnnual, at)
	assert.True(t, none.IsAbsent())
}

func TestDueFromAge(t *testing.T) {
	birth := MustParseDate("2024-01-01")
	assert.Equal(t, "2024-02-12", DueFromAge(birth, 6).String())
	assert.Equal(t, "2024-01-01", DueFromAge(birth, 0).String())
}
