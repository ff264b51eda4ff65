package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const (
	// PropPetID carries the owning pet of an exported occurrence
	PropPetID = "X-PETCAL-PET"
	// PropKind carries the reminder kind of an exported occurrence
	PropKind = "X-PETCAL-KIND"

	productID = "-//libpetcal//NONSGML v1.0//EN"

	floatingLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"
	dateOnlyLayout = "20060102"
)

// uidNamespace scopes the name-based UUIDs of exported occurrences
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/cyp0633/libpetcal"))

// UID returns a stable iCalendar UID for the identity key
func (k Key) UID() string {
	return uuid.NewSHA1(uidNamespace, []byte(k.String())).String()
}

// OccurrencesToCalendar builds a VCALENDAR holding one VEVENT per occurrence.
// Start times are floating local times since occurrences carry no zone.
func OccurrencesToCalendar(occurrences []OccurrenceRecord, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	for _, occ := range occurrences {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, occ.Key().UID())
		event.Props.SetText(ical.PropSummary, occ.Label)
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

		start := ical.NewProp(ical.PropDateTimeStart)
		start.Value = occ.Date.At(occ.Time).Format(floatingLayout)
		event.Props.Set(start)

		event.Props.SetText(PropPetID, occ.PetID)
		event.Props.SetText(PropKind, occ.Kind.String())

		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// OccurrencesFromCalendar reads occurrences back from VEVENTs. Events that
// carry no pet or no start are not ours and are skipped.
func OccurrencesFromCalendar(cal *ical.Calendar) ([]OccurrenceRecord, error) {
	var out []OccurrenceRecord
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		occ, ok, err := occurrenceFromComponent(comp)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, occ)
		}
	}
	return out, nil
}

func occurrenceFromComponent(comp *ical.Component) (OccurrenceRecord, bool, error) {
	petID, err := comp.Props.Text(PropPetID)
	if err != nil {
		return OccurrenceRecord{}, false, fmt.Errorf("failed to read %s: %w", PropPetID, err)
	}
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if petID == "" || startProp == nil || startProp.Value == "" {
		return OccurrenceRecord{}, false, nil
	}

	start, err := parseDateTime(startProp.Value, startProp.Params)
	if err != nil {
		return OccurrenceRecord{}, false, fmt.Errorf("failed to parse DTSTART %q: %w", startProp.Value, err)
	}

	label, err := comp.Props.Text(ical.PropSummary)
	if err != nil {
		return OccurrenceRecord{}, false, fmt.Errorf("failed to read SUMMARY: %w", err)
	}

	kind := KindVaccinationDue
	if label == FeedingLabel {
		kind = KindFeeding
	}
	kindText, err := comp.Props.Text(PropKind)
	if err != nil {
		return OccurrenceRecord{}, false, fmt.Errorf("failed to read %s: %w", PropKind, err)
	}
	if kindText != "" {
		if kind, err = ParseKind(kindText); err != nil {
			return OccurrenceRecord{}, false, err
		}
	}

	return OccurrenceRecord{
		PetID: petID,
		Kind:  kind,
		Label: label,
		Date:  DateOf(start),
		Time:  TimeOfDay{Hour: start.Hour(), Minute: start.Minute()},
	}, true, nil
}

// parseDateTime parses a DATE or DATE-TIME value. Floating and UTC forms
// keep their wall-clock fields; date-only values land at midnight.
func parseDateTime(value string, params ical.Params) (time.Time, error) {
	if valueParam := params.Get(ical.ParamValue); strings.EqualFold(valueParam, "DATE") {
		return time.Parse(dateOnlyLayout, value)
	}

	for _, layout := range []string{floatingLayout, utcLayout, dateOnlyLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %q", value)
}
