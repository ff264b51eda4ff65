package storage

import (
	"errors"
	"testing"

	"github.com/cyp0633/libpetcal/recurrence"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	occ, err := DecodeEvent(EventDocument{
		ID:    "evt-1",
		PetID: "pet-1",
		Kind:  "feeding",
		Title: "Feeding",
		Date:  "2024-05-01",
		Time:  "08:00",
	})
	require.NoError(t, err)
	assert.Equal(t, recurrence.OccurrenceRecord{
		PetID: "pet-1",
		Kind:  recurrence.KindFeeding,
		Label: "Feeding",
		Date:  recurrence.MustParseDate("2024-05-01"),
		Time:  recurrence.MustParseTimeOfDay("08:00"),
	}, occ)

	assert.Equal(t, EventDocument{PetID: "pet-1", Kind: "feeding", Title: "Feeding", Date: "2024-05-01", Time: "08:00"}, EncodeEvent(occ))
}

func TestDecodeEvent_ParseErrors(t *testing.T) {
	base := EventDocument{PetID: "pet-1", Kind: "feeding", Title: "Feeding", Date: "2024-05-01", Time: "08:00"}

	tests := []struct {
		name   string
		mutate func(*EventDocument)
		field  string
		value  string
	}{
		{name: "bad date", mutate: func(d *EventDocument) { d.Date = "05/01/2024" }, field: "date", value: "05/01/2024"},
		{name: "bad time", mutate: func(d *EventDocument) { d.Time = "8am" }, field: "time", value: "8am"},
		{name: "bad kind", mutate: func(d *EventDocument) { d.Kind = "walk" }, field: "kind", value: "walk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base
			tt.mutate(&doc)
			_, err := DecodeEvent(doc)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.field, perr.Field)
			assert.Equal(t, tt.value, perr.Value)
			assert.Contains(t, err.Error(), tt.value)
		})
	}
}

func TestDecodeEvents_NamesDocument(t *testing.T) {
	_, err := DecodeEvents([]EventDocument{
		{ID: "ok", PetID: "pet-1", Kind: "feeding", Title: "Feeding", Date: "2024-05-01", Time: "08:00"},
		{ID: "broken", PetID: "pet-1", Kind: "feeding", Title: "Feeding", Date: "2024-13-01", Time: "08:00"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestVaccinationCodec(t *testing.T) {
	doc := VaccinationDocument{
		PetID:            "pet-1",
		VaccineName:      "Rabies",
		AdministeredDate: "2023-12-01",
		Reschedules: []RescheduleDocument{
			{Date: "2024-01-10", Time: "09:00", Sequence: 1},
			{Date: "2024-03-01", Time: "09:00", Sequence: 2},
		},
	}

	entry, err := DecodeVaccination(doc)
	require.NoError(t, err)
	assert.Equal(t, mo.Some(recurrence.MustParseDate("2023-12-01")), entry.AdministeredDate)
	assert.Equal(t, mo.Some(recurrence.MustParseDate("2024-03-01")), entry.Latest())
	assert.Equal(t, doc, EncodeVaccination("pet-1", entry))

	entry, err = DecodeVaccination(VaccinationDocument{PetID: "pet-1", VaccineName: "FeLV"})
	require.NoError(t, err)
	assert.True(t, entry.AdministeredDate.IsAbsent())

	_, err = DecodeVaccination(VaccinationDocument{
		VaccineName: "FeLV",
		Reschedules: []RescheduleDocument{{Date: "2024-01-10", Time: "25:00", Sequence: 1}},
	})
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "reschedules[0].time", perr.Field)
}
