package recurrence

import (
	"maps"
	"slices"

	"github.com/samber/mo"
)

// RescheduleHistory maps a vaccine name to its ordered reschedule log.
// The zero value is not usable; use NewRescheduleHistory.
type RescheduleHistory map[string][]RescheduleEntry

func NewRescheduleHistory() RescheduleHistory {
	return make(RescheduleHistory)
}

// Record appends a reschedule for vaccine and returns its sequence number
func (h RescheduleHistory) Record(vaccine string, d Date, t TimeOfDay) int {
	var seq int
	h[vaccine], seq = RecordReschedule(h[vaccine], d, t)
	return seq
}

// Entries returns a copy of the log for vaccine
func (h RescheduleHistory) Entries(vaccine string) []RescheduleEntry {
	return slices.Clone(h[vaccine])
}

// Remove drops the whole log for vaccine; the next Record starts again at 1
func (h RescheduleHistory) Remove(vaccine string) {
	delete(h, vaccine)
}

// Len is the number of reschedules recorded for vaccine
func (h RescheduleHistory) Len(vaccine string) int {
	return len(h[vaccine])
}

// Vaccines lists the vaccines with a log, sorted by name
func (h RescheduleHistory) Vaccines() []string {
	return slices.Sorted(maps.Keys(h))
}

// Latest resolves the latest known date of vaccine
func (h RescheduleHistory) Latest(vaccine string, administered mo.Option[Date]) mo.Option[Date] {
	return ResolveLatestKnownDate(h[vaccine], administered)
}
