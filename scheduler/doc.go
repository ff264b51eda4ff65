/*
Package scheduler turns reminder rules into stored calendar occurrences.

# Basic Usage

The simplest setup uses the in-memory storage and the default catalog:

	store := memory.New()
	svc, err := scheduler.New(store)
	if err != nil {
		log.Fatal(err)
	}

	today := recurrence.DateOf(time.Now())
	created, err := svc.EnableFeeding(ctx, "rex",
		[]recurrence.TimeOfDay{{Hour: 8}, {Hour: 18}}, today)

EnableFeeding can be called on every startup or once a day. Occurrences
already stored are never written twice, so each call only tops up the
window.

# Vaccinations

Vaccination reminders are driven by the pet's history rather than a window:

	svc.AddToHistory(ctx, "rex", "Rabies", mo.Some(recurrence.MustParseDate("2024-01-15")))
	next, _ := svc.NextDue(ctx, "rex", "Rabies") // 2025-01-15

	seq, _ := svc.ScheduleVaccination(ctx, "rex", "Rabies", next.MustGet(), recurrence.TimeOfDay{Hour: 10})

Every ScheduleVaccination call appends to the reschedule log and returns the
1-based sequence number of the new entry. RemoveVaccine clears the log.

# Storage

Any storage.Storage works. CreateEvent must reject a second event with the
same pet, title, date and time with storage.ErrConflict; the scheduler counts
such rejections as skipped duplicates instead of failing. The memory, sqlite
and postgres packages under storage all do this.

# Time

The scheduler never reads the clock. Callers pass today's date explicitly.
*/
package scheduler
