package recurrence

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

const (
	twoDoseSeriesDays     = 21
	puppyKittenSeriesDays = 28
)

// Engine expands reminder rules into occurrences and projects vaccination due dates.
// It holds no mutable state and never reads the clock; callers pass "today" in.
type Engine struct {
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates a new recurrence engine instance
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// Config returns the configuration the engine was built with
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Expand produces the occurrences a feeding rule still needs over the
// configured window starting at windowStart.
func (e *Engine) Expand(rule ReminderRule, existing []OccurrenceRecord, windowStart Date) ([]OccurrenceRecord, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	spec, ok := rule.Interval.(TimesPerDay)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, rule.Kind)
	}
	return e.ExpandFeedingSchedule(rule.PetID, existing, spec.Times, windowStart, e.config.WindowDays), nil
}

// ExpandFeedingSchedule returns one feeding occurrence per day in
// [windowStart, windowStart+windowDays) and per time in times, leaving out
// every identity key already in existing or already emitted. The result is
// ordered by day, then by the order of times.
func (e *Engine) ExpandFeedingSchedule(
	petID string,
	existing []OccurrenceRecord,
	times []TimeOfDay,
	windowStart Date,
	windowDays int,
) []OccurrenceRecord {
	if windowDays <= 0 || len(times) == 0 {
		return nil
	}

	seen := make(map[Key]struct{}, len(existing)+windowDays*len(times))
	for _, occ := range existing {
		seen[occ.Key()] = struct{}{}
	}

	var out []OccurrenceRecord
	for _, day := range e.enumerateDays(windowStart, windowDays) {
		for _, t := range times {
			candidate := OccurrenceRecord{
				PetID: petID,
				Kind:  KindFeeding,
				Label: FeedingLabel,
				Date:  day,
				Time:  t,
			}
			key := candidate.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, candidate)
		}
	}
	return out
}

// enumerateDays lists count consecutive dates from start using a daily RRULE
func (e *Engine) enumerateDays(start Date, count int) []Date {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start.Time(),
		Count:   count,
	})
	if err != nil {
		e.logger.Warn("daily rule rejected, stepping days directly", "start", start, "count", count, "error", err)
		days := make([]Date, count)
		for i := range days {
			days[i] = start.AddDays(i)
		}
		return days
	}

	occurrences := rule.All()
	days := make([]Date, len(occurrences))
	for i, t := range occurrences {
		days[i] = DateOf(t)
	}
	return days
}

// ComputeNextVaccinationDate projects the next due date from the latest known
// date. Without a latest date there is nothing to project from.
func (e *Engine) ComputeNextVaccinationDate(latest mo.Option[Date], unit RescheduleUnit) mo.Option[Date] {
	date, ok := latest.Get()
	if !ok {
		return mo.None[Date]()
	}

	switch unit {
	case UnitSemiAnnual:
		return mo.Some(date.AddMonths(6, e.config.MonthOverflow))
	case UnitSeriesTwoDose:
		return mo.Some(date.AddDays(twoDoseSeriesDays))
	case UnitSeriesPuppyKitten:
		return mo.Some(date.AddDays(puppyKittenSeriesDays))
	case UnitAnnual:
	default:
		e.logger.Warn("unrecognized reschedule unit, scheduling annually",
			"unit", unit.String(), "latest", date.String())
	}
	return mo.Some(date.AddYears(1, e.config.MonthOverflow))
}

// ProjectDue returns the next due occurrence of a vaccine at the given time of day
func (e *Engine) ProjectDue(petID string, entry VaccinationHistoryEntry, unit RescheduleUnit, at TimeOfDay) mo.Option[OccurrenceRecord] {
	next, ok := e.ComputeNextVaccinationDate(entry.Latest(), unit).Get()
	if !ok {
		return mo.None[OccurrenceRecord]()
	}
	return mo.Some(OccurrenceRecord{
		PetID: petID,
		Kind:  KindVaccinationDue,
		Label: VaccinationLabel(entry.VaccineName),
		Date:  next,
		Time:  at,
	})
}

// DueFromAge is the first due date of a vaccine required at requiredAgeWeeks
func DueFromAge(birth Date, requiredAgeWeeks int) Date {
	return birth.AddDays(7 * requiredAgeWeeks)
}

// ResolveLatestKnownDate picks the latest (date, time) from the reschedule
// history, falling back to the administered date. Entries with equal
// (date, time) keep their original order.
func ResolveLatestKnownDate(history []RescheduleEntry, administered mo.Option[Date]) mo.Option[Date] {
	if len(history) == 0 {
		return administered
	}

	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, func(a, b RescheduleEntry) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.Time.Compare(a.Time)
	})
	return mo.Some(sorted[0].Date)
}

// RecordReschedule appends a reschedule to history and returns the new
// history with the entry's sequence number. The input slice is not modified.
func RecordReschedule(history []RescheduleEntry, d Date, t TimeOfDay) ([]RescheduleEntry, int) {
	seq := len(history) + 1
	updated := make([]RescheduleEntry, len(history), len(history)+1)
	copy(updated, history)
	return append(updated, RescheduleEntry{Date: d, Time: t, Sequence: seq}), seq
}
