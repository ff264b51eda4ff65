// Package storagetest runs the same behavioral checks against every storage backend.
package storagetest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/cyp0633/libpetcal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a storage.Storage implementation. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("CreateAndListEvents", func(t *testing.T) { testCreateAndListEvents(t, newStore(t)) })
	t.Run("DuplicateEventConflicts", func(t *testing.T) { testDuplicateEventConflicts(t, newStore(t)) })
	t.Run("ConcurrentDuplicateWrites", func(t *testing.T) { testConcurrentDuplicateWrites(t, newStore(t)) })
	t.Run("DeleteEvents", func(t *testing.T) { testDeleteEvents(t, newStore(t)) })
	t.Run("Vaccinations", func(t *testing.T) { testVaccinations(t, newStore(t)) })
	t.Run("RecordAdministered", func(t *testing.T) { testRecordAdministered(t, newStore(t)) })
	t.Run("AppendReschedule", func(t *testing.T) { testAppendReschedule(t, newStore(t)) })
	t.Run("ConcurrentReschedules", func(t *testing.T) { testConcurrentReschedules(t, newStore(t)) })
}

func feeding(petID, date, tm string) *storage.EventDocument {
	return &storage.EventDocument{PetID: petID, Kind: "feeding", Title: "Feeding", Date: date, Time: tm}
}

func testCreateAndListEvents(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	second := feeding("pet-1", "2024-05-01", "18:00")
	first := feeding("pet-1", "2024-05-01", "08:00")
	require.NoError(t, store.CreateEvent(ctx, second))
	require.NoError(t, store.CreateEvent(ctx, first))
	require.NoError(t, store.CreateEvent(ctx, feeding("pet-2", "2024-05-01", "08:00")))

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	events, err := store.ListEvents(ctx, "pet-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, *first, events[0])
	assert.Equal(t, *second, events[1])

	events, err = store.ListEvents(ctx, "pet-3")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func testDuplicateEventConflicts(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	require.NoError(t, store.CreateEvent(ctx, feeding("pet-1", "2024-05-01", "08:00")))
	err := store.CreateEvent(ctx, feeding("pet-1", "2024-05-01", "08:00"))
	assert.ErrorIs(t, err, storage.ErrConflict)

	// another label at the same slot is a different occurrence
	vaccination := &storage.EventDocument{PetID: "pet-1", Kind: "vaccination_due", Title: "Rabies Vaccination", Date: "2024-05-01", Time: "08:00"}
	require.NoError(t, store.CreateEvent(ctx, vaccination))

	events, err := store.ListEvents(ctx, "pet-1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func testConcurrentDuplicateWrites(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.CreateEvent(ctx, feeding("pet-1", "2024-06-01", "07:00"))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	events, err := store.ListEvents(ctx, "pet-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func testDeleteEvents(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	require.NoError(t, store.CreateEvent(ctx, feeding("pet-1", "2024-05-01", "08:00")))
	require.NoError(t, store.CreateEvent(ctx, feeding("pet-1", "2024-05-02", "08:00")))
	require.NoError(t, store.CreateEvent(ctx, &storage.EventDocument{PetID: "pet-1", Kind: "vaccination_due", Title: "Rabies Vaccination", Date: "2024-05-03", Time: "09:00"}))
	require.NoError(t, store.CreateEvent(ctx, feeding("pet-2", "2024-05-01", "08:00")))

	removed, err := store.DeleteEvents(ctx, "pet-1", "Feeding")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	events, err := store.ListEvents(ctx, "pet-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Rabies Vaccination", events[0].Title)

	// the freed slot can be taken again
	require.NoError(t, store.CreateEvent(ctx, feeding("pet-1", "2024-05-01", "08:00")))

	other, err := store.ListEvents(ctx, "pet-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func testVaccinations(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	_, err := store.GetVaccination(ctx, "pet-1", "Rabies")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rabies := &storage.VaccinationDocument{
		PetID:            "pet-1",
		VaccineName:      "Rabies",
		AdministeredDate: "2023-12-01",
		Reschedules: []storage.RescheduleDocument{
			{Date: "2024-01-10", Time: "09:00", Sequence: 1},
		},
	}
	require.NoError(t, store.PutVaccination(ctx, rabies))
	require.NoError(t, store.PutVaccination(ctx, &storage.VaccinationDocument{PetID: "pet-1", VaccineName: "DHPP"}))

	got, err := store.GetVaccination(ctx, "pet-1", "Rabies")
	require.NoError(t, err)
	assert.Equal(t, rabies, got)

	// replace appends the next reschedule
	rabies.Reschedules = append(rabies.Reschedules, storage.RescheduleDocument{Date: "2024-03-01", Time: "10:30", Sequence: 2})
	require.NoError(t, store.PutVaccination(ctx, rabies))

	got, err = store.GetVaccination(ctx, "pet-1", "Rabies")
	require.NoError(t, err)
	assert.Equal(t, rabies.Reschedules, got.Reschedules)

	list, err := store.ListVaccinations(ctx, "pet-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "DHPP", list[0].VaccineName)
	assert.Empty(t, list[0].AdministeredDate)
	assert.Empty(t, list[0].Reschedules)
	assert.Equal(t, "Rabies", list[1].VaccineName)

	require.NoError(t, store.DeleteVaccination(ctx, "pet-1", "Rabies"))
	_, err = store.GetVaccination(ctx, "pet-1", "Rabies")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteVaccination(ctx, "pet-1", "Rabies"), storage.ErrNotFound)

	assert.ErrorIs(t, store.PutVaccination(ctx, &storage.VaccinationDocument{PetID: "pet-1"}), storage.ErrInvalidInput)
}

func testRecordAdministered(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	require.NoError(t, store.RecordAdministered(ctx, "pet-1", "Rabies", ""))
	got, err := store.GetVaccination(ctx, "pet-1", "Rabies")
	require.NoError(t, err)
	assert.Empty(t, got.AdministeredDate)

	_, err = store.AppendReschedule(ctx, "pet-1", "Rabies", storage.RescheduleDocument{Date: "2024-02-01", Time: "09:00"})
	require.NoError(t, err)

	require.NoError(t, store.RecordAdministered(ctx, "pet-1", "Rabies", "2024-01-15"))
	// an empty date keeps the stored one
	require.NoError(t, store.RecordAdministered(ctx, "pet-1", "Rabies", ""))

	got, err = store.GetVaccination(ctx, "pet-1", "Rabies")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", got.AdministeredDate)
	assert.Len(t, got.Reschedules, 1)

	assert.ErrorIs(t, store.RecordAdministered(ctx, "pet-1", "", "2024-01-15"), storage.ErrInvalidInput)
}

func testAppendReschedule(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	seq, err := store.AppendReschedule(ctx, "pet-1", "Rabies", storage.RescheduleDocument{Date: "2024-03-01", Time: "10:30", Sequence: 42})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	seq, err = store.AppendReschedule(ctx, "pet-1", "Rabies", storage.RescheduleDocument{Date: "2024-02-01", Time: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, 2, seq)

	seq, err = store.AppendReschedule(ctx, "pet-1", "DHPP", storage.RescheduleDocument{Date: "2024-02-01", Time: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	got, err := store.GetVaccination(ctx, "pet-1", "Rabies")
	require.NoError(t, err)
	assert.Equal(t, []storage.RescheduleDocument{
		{Date: "2024-03-01", Time: "10:30", Sequence: 1},
		{Date: "2024-02-01", Time: "09:00", Sequence: 2},
	}, got.Reschedules)

	// removing the history restarts numbering
	require.NoError(t, store.DeleteVaccination(ctx, "pet-1", "Rabies"))
	seq, err = store.AppendReschedule(ctx, "pet-1", "Rabies", storage.RescheduleDocument{Date: "2024-04-01", Time: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	_, err = store.AppendReschedule(ctx, "", "Rabies", storage.RescheduleDocument{Date: "2024-04-01", Time: "09:00"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func testConcurrentReschedules(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	seqs := make([]int, writers)
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seqs[i], errs[i] = store.AppendReschedule(ctx, "pet-1", "Rabies", storage.RescheduleDocument{
				Date: fmt.Sprintf("2024-01-%02d", i+1),
				Time: "09:00",
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	slices.Sort(seqs)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, seqs)

	got, err := store.GetVaccination(ctx, "pet-1", "Rabies")
	require.NoError(t, err)
	assert.Len(t, got.Reschedules, writers)
}
