package recurrence

import "strings"

// RescheduleUnit is the catalog-defined interval class of a vaccine
type RescheduleUnit int

const (
	UnitAnnual RescheduleUnit = iota
	UnitSemiAnnual
	UnitSeriesTwoDose
	UnitSeriesPuppyKitten
	// UnitLegacy marks catalog text that matched no known unit. It is scheduled as UnitAnnual.
	UnitLegacy
)

func (u RescheduleUnit) String() string {
	switch u {
	case UnitAnnual:
		return "annual"
	case UnitSemiAnnual:
		return "semi-annual"
	case UnitSeriesTwoDose:
		return "series-two-dose"
	case UnitSeriesPuppyKitten:
		return "series-puppy-kitten"
	default:
		return "legacy"
	}
}

// Known reports whether u is one of the defined units other than UnitLegacy
func (u RescheduleUnit) Known() bool {
	return u >= UnitAnnual && u < UnitLegacy
}

// unitPatterns is checked in order; "semi-annual" must win over "annual"
var unitPatterns = []struct {
	unit    RescheduleUnit
	needles []string
}{
	{UnitSemiAnnual, []string{"semi-annual", "semiannual", "semi annual", "6 months", "six months"}},
	{UnitSeriesTwoDose, []string{"2-dose", "two-dose", "two dose", "2 dose", "3 weeks"}},
	{UnitSeriesPuppyKitten, []string{"puppy", "kitten"}},
	{UnitAnnual, []string{"annual", "yearly", "1 year", "every year"}},
}

// ParseRescheduleUnit decodes the free-text recommendation of a catalog entry.
// Canonical names produced by String are accepted as well. Text matching no
// pattern yields UnitLegacy.
func ParseRescheduleUnit(text string) RescheduleUnit {
	s := strings.ToLower(strings.TrimSpace(text))
	for u := UnitAnnual; u < UnitLegacy; u++ {
		if s == u.String() {
			return u
		}
	}
	for _, p := range unitPatterns {
		for _, needle := range p.needles {
			if strings.Contains(s, needle) {
				return p.unit
			}
		}
	}
	return UnitLegacy
}
