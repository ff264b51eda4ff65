// Package catalog holds the static vaccine reference data schedules are computed from.
package catalog

import (
	"slices"
	"strings"

	"github.com/cyp0633/libpetcal/recurrence"
)

// Species a vaccine applies to
type Species string

const (
	SpeciesDog Species = "dog"
	SpeciesCat Species = "cat"
)

// Vaccine is one catalog entry
type Vaccine struct {
	Name    string
	Species Species
	// RequiredAgeWeeks is the age at which the first dose is due
	RequiredAgeWeeks int
	// RecommendedReschedule is the recommendation as free text, e.g. "Annually"
	RecommendedReschedule string
	IsRequired            bool
}

// Unit decodes the recommendation text
func (v Vaccine) Unit() recurrence.RescheduleUnit {
	return recurrence.ParseRescheduleUnit(v.RecommendedReschedule)
}

// Catalog is an immutable set of vaccines keyed case-insensitively by name
type Catalog struct {
	vaccines []Vaccine
	byName   map[string]int
}

// New builds a catalog. Later entries with a duplicate name replace earlier ones.
func New(vaccines ...Vaccine) *Catalog {
	c := &Catalog{byName: make(map[string]int, len(vaccines))}
	for _, v := range vaccines {
		key := normalize(v.Name)
		if i, ok := c.byName[key]; ok {
			c.vaccines[i] = v
			continue
		}
		c.byName[key] = len(c.vaccines)
		c.vaccines = append(c.vaccines, v)
	}
	return c
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup finds a vaccine by name
func (c *Catalog) Lookup(name string) (Vaccine, bool) {
	i, ok := c.byName[normalize(name)]
	if !ok {
		return Vaccine{}, false
	}
	return c.vaccines[i], true
}

// All returns every vaccine in insertion order
func (c *Catalog) All() []Vaccine {
	return slices.Clone(c.vaccines)
}

// ForSpecies returns the vaccines applicable to species
func (c *Catalog) ForSpecies(species Species) []Vaccine {
	var out []Vaccine
	for _, v := range c.vaccines {
		if v.Species == species {
			out = append(out, v)
		}
	}
	return out
}

// Required returns the required (core) vaccines for species
func (c *Catalog) Required(species Species) []Vaccine {
	var out []Vaccine
	for _, v := range c.ForSpecies(species) {
		if v.IsRequired {
			out = append(out, v)
		}
	}
	return out
}

// Default returns the built-in catalog of common dog and cat vaccines
func Default() *Catalog {
	return New(
		Vaccine{Name: "DHPP", Species: SpeciesDog, RequiredAgeWeeks: 6, RecommendedReschedule: "Puppy series every 3-4 weeks until 16 weeks", IsRequired: true},
		Vaccine{Name: "Rabies", Species: SpeciesDog, RequiredAgeWeeks: 12, RecommendedReschedule: "Annually", IsRequired: true},
		Vaccine{Name: "Bordetella", Species: SpeciesDog, RequiredAgeWeeks: 8, RecommendedReschedule: "Every 6 months (semi-annual)", IsRequired: false},
		Vaccine{Name: "Leptospirosis", Species: SpeciesDog, RequiredAgeWeeks: 12, RecommendedReschedule: "2-dose series, 3 weeks apart, then annually", IsRequired: false},
		Vaccine{Name: "Canine Influenza", Species: SpeciesDog, RequiredAgeWeeks: 8, RecommendedReschedule: "Two-dose series then yearly", IsRequired: false},
		Vaccine{Name: "Lyme", Species: SpeciesDog, RequiredAgeWeeks: 12, RecommendedReschedule: "Annually", IsRequired: false},
		Vaccine{Name: "FVRCP", Species: SpeciesCat, RequiredAgeWeeks: 6, RecommendedReschedule: "Kitten series every 3-4 weeks until 16 weeks", IsRequired: true},
		Vaccine{Name: "Feline Rabies", Species: SpeciesCat, RequiredAgeWeeks: 12, RecommendedReschedule: "Annually", IsRequired: true},
		Vaccine{Name: "FeLV", Species: SpeciesCat, RequiredAgeWeeks: 8, RecommendedReschedule: "2-dose series, 3 weeks apart", IsRequired: false},
	)
}
