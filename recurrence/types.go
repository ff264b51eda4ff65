package recurrence

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/mo"
)

// FeedingLabel is the label every feeding occurrence carries
const FeedingLabel = "Feeding"

// VaccinationLabel derives the occurrence label of a vaccine
func VaccinationLabel(vaccineName string) string {
	return vaccineName + " Vaccination"
}

// ErrInvalidRule is returned when a ReminderRule is not well formed
var ErrInvalidRule = errors.New("invalid reminder rule")

// ErrUnsupportedRule is returned by Expand for rules that are not window-expanded
var ErrUnsupportedRule = errors.New("rule kind is not expandable")

// Kind identifies the obligation a reminder represents
type Kind int

const (
	KindFeeding Kind = iota
	KindVaccinationDue
)

func (k Kind) String() string {
	switch k {
	case KindFeeding:
		return "feeding"
	case KindVaccinationDue:
		return "vaccination_due"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	switch s {
	case "feeding":
		return KindFeeding, nil
	case "vaccination_due":
		return KindVaccinationDue, nil
	}
	return 0, fmt.Errorf("unknown reminder kind %q", s)
}

// IntervalSpec describes how a rule recurs. Implemented by TimesPerDay and RecommendedReschedule.
type IntervalSpec interface {
	intervalKind() Kind
}

// TimesPerDay is a feeding interval: the same times of day, every day
type TimesPerDay struct {
	Times []TimeOfDay
}

func (TimesPerDay) intervalKind() Kind { return KindFeeding }

// Count is the number of feedings per day
func (s TimesPerDay) Count() int { return len(s.Times) }

// RecommendedReschedule is a vaccination interval taken from the vaccine catalog
type RecommendedReschedule struct {
	VaccineName string
	Unit        RescheduleUnit
}

func (RecommendedReschedule) intervalKind() Kind { return KindVaccinationDue }

// ReminderRule is a recurring obligation for one pet
type ReminderRule struct {
	Kind     Kind
	PetID    string
	Interval IntervalSpec
}

// FeedingRule builds a feeding rule for the given times
func FeedingRule(petID string, times ...TimeOfDay) ReminderRule {
	return ReminderRule{Kind: KindFeeding, PetID: petID, Interval: TimesPerDay{Times: times}}
}

// VaccinationRule builds a vaccination rule
func VaccinationRule(petID, vaccineName string, unit RescheduleUnit) ReminderRule {
	return ReminderRule{
		Kind:     KindVaccinationDue,
		PetID:    petID,
		Interval: RecommendedReschedule{VaccineName: vaccineName, Unit: unit},
	}
}

// Validate checks the rule's structural invariants
func (r ReminderRule) Validate() error {
	if r.PetID == "" {
		return fmt.Errorf("%w: pet id is required", ErrInvalidRule)
	}
	if r.Interval == nil {
		return fmt.Errorf("%w: interval is required", ErrInvalidRule)
	}
	if r.Interval.intervalKind() != r.Kind {
		return fmt.Errorf("%w: %s rule with %T interval", ErrInvalidRule, r.Kind, r.Interval)
	}

	switch spec := r.Interval.(type) {
	case TimesPerDay:
		if n := spec.Count(); n < 2 || n > 3 {
			return fmt.Errorf("%w: feeding needs 2 or 3 times per day, got %d", ErrInvalidRule, n)
		}
		for i, t := range spec.Times {
			if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
				return fmt.Errorf("%w: feeding time %s out of range", ErrInvalidRule, t)
			}
			if slices.Contains(spec.Times[:i], t) {
				return fmt.Errorf("%w: feeding time %s repeated", ErrInvalidRule, t)
			}
		}
	case RecommendedReschedule:
		if spec.VaccineName == "" {
			return fmt.Errorf("%w: vaccine name is required", ErrInvalidRule)
		}
	}
	return nil
}

// Key is the identity of an occurrence. No two stored occurrences share a Key.
type Key struct {
	PetID string
	Label string
	Date  Date
	Time  TimeOfDay
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.PetID, k.Label, k.Date, k.Time)
}

// OccurrenceRecord is one concrete scheduled instance of a reminder
type OccurrenceRecord struct {
	PetID string
	Kind  Kind
	Label string
	Date  Date
	Time  TimeOfDay
}

// Key returns the identity key of the occurrence
func (o OccurrenceRecord) Key() Key {
	return Key{PetID: o.PetID, Label: o.Label, Date: o.Date, Time: o.Time}
}

// RescheduleEntry is one record of the append-only per-vaccine reschedule log
type RescheduleEntry struct {
	Date     Date
	Time     TimeOfDay
	Sequence int // 1-based count of reschedules at creation time
}

// VaccinationHistoryEntry is what is known about one vaccine for one pet
type VaccinationHistoryEntry struct {
	VaccineName      string
	AdministeredDate mo.Option[Date]
	Reschedules      []RescheduleEntry
}

// Latest returns the most recent known date for the vaccine
func (v VaccinationHistoryEntry) Latest() mo.Option[Date] {
	return ResolveLatestKnownDate(v.Reschedules, v.AdministeredDate)
}

// Reschedule appends a reschedule to the entry and returns its sequence number
func (v *VaccinationHistoryEntry) Reschedule(d Date, t TimeOfDay) int {
	var seq int
	v.Reschedules, seq = RecordReschedule(v.Reschedules, d, t)
	return seq
}
