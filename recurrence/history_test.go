package recurrence

import (
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
)

func TestRescheduleHistory(t *testing.T) {
	h := NewRescheduleHistory()
	at := MustParseTimeOfDay("09:00")

	assert.Equal(t, 1, h.Record("Rabies", MustParseDate("2024-01-10"), at))
	assert.Equal(t, 2, h.Record("Rabies", MustParseDate("2024-03-01"), at))
	assert.Equal(t, 1, h.Record("DHPP", MustParseDate("2024-02-01"), at))

	assert.Equal(t, 2, h.Len("Rabies"))
	assert.Equal(t, []string{"DHPP", "Rabies"}, h.Vaccines())
	assert.Equal(t, mo.Some(MustParseDate("2024-03-01")), h.Latest("Rabies", mo.Some(MustParseDate("2023-12-01"))))
	assert.Equal(t, mo.Some(MustParseDate("2023-12-01")), h.Latest("FeLV", mo.Some(MustParseDate("2023-12-01"))))

	entries := h.Entries("Rabies")
	entries[0].Sequence = 99
	assert.Equal(t, 1, h.Entries("Rabies")[0].Sequence, "Entries must return a copy")

	// removing a vaccine restarts its counter
	h.Remove("Rabies")
	assert.Equal(t, 0, h.Len("Rabies"))
	assert.Equal(t, 1, h.Record("Rabies", MustParseDate("2024-05-01"), at))
}
