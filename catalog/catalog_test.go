package catalog

import (
	"testing"

	"github.com/cyp0633/libpetcal/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Units(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		expected recurrence.RescheduleUnit
	}{
		{name: "Rabies", expected: recurrence.UnitAnnual},
		{name: "DHPP", expected: recurrence.UnitSeriesPuppyKitten},
		{name: "Bordetella", expected: recurrence.UnitSemiAnnual},
		{name: "Leptospirosis", expected: recurrence.UnitSeriesTwoDose},
		{name: "Canine Influenza", expected: recurrence.UnitSeriesTwoDose},
		{name: "FVRCP", expected: recurrence.UnitSeriesPuppyKitten},
		{name: "FeLV", expected: recurrence.UnitSeriesTwoDose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := c.Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.expected, v.Unit())
		})
	}

	for _, v := range c.All() {
		assert.True(t, v.Unit().Known(), "%s has an unrecognized recommendation", v.Name)
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := Default()

	v, ok := c.Lookup("  rabies ")
	require.True(t, ok)
	assert.Equal(t, "Rabies", v.Name)

	_, ok = c.Lookup("Distemper")
	assert.False(t, ok)
}

func TestCatalog_Species(t *testing.T) {
	c := Default()

	for _, v := range c.ForSpecies(SpeciesCat) {
		assert.Equal(t, SpeciesCat, v.Species)
	}

	var required []string
	for _, v := range c.Required(SpeciesDog) {
		required = append(required, v.Name)
	}
	assert.Equal(t, []string{"DHPP", "Rabies"}, required)
}

func TestNew_DuplicateReplaces(t *testing.T) {
	c := New(
		Vaccine{Name: "Rabies", RecommendedReschedule: "Annually"},
		Vaccine{Name: "rabies", RecommendedReschedule: "Every 3 years"},
	)
	require.Len(t, c.All(), 1)
	v, _ := c.Lookup("Rabies")
	assert.Equal(t, recurrence.UnitLegacy, v.Unit())
}
