package storage

import (
	"fmt"

	"github.com/cyp0633/libpetcal/recurrence"
	"github.com/samber/mo"
)

// ParseError reports a stored field that could not be decoded
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseDate(field, value string) (recurrence.Date, error) {
	d, err := recurrence.ParseDate(value)
	if err != nil {
		return recurrence.Date{}, &ParseError{Field: field, Value: value, Err: err}
	}
	return d, nil
}

func parseTime(field, value string) (recurrence.TimeOfDay, error) {
	t, err := recurrence.ParseTimeOfDay(value)
	if err != nil {
		return recurrence.TimeOfDay{}, &ParseError{Field: field, Value: value, Err: err}
	}
	return t, nil
}

// DecodeEvent converts a stored event into an occurrence
func DecodeEvent(doc EventDocument) (recurrence.OccurrenceRecord, error) {
	kind, err := recurrence.ParseKind(doc.Kind)
	if err != nil {
		return recurrence.OccurrenceRecord{}, &ParseError{Field: "kind", Value: doc.Kind, Err: err}
	}
	date, err := parseDate("date", doc.Date)
	if err != nil {
		return recurrence.OccurrenceRecord{}, err
	}
	tm, err := parseTime("time", doc.Time)
	if err != nil {
		return recurrence.OccurrenceRecord{}, err
	}
	return recurrence.OccurrenceRecord{
		PetID: doc.PetID,
		Kind:  kind,
		Label: doc.Title,
		Date:  date,
		Time:  tm,
	}, nil
}

// DecodeEvents decodes a batch, stopping at the first malformed document
func DecodeEvents(docs []EventDocument) ([]recurrence.OccurrenceRecord, error) {
	out := make([]recurrence.OccurrenceRecord, 0, len(docs))
	for _, doc := range docs {
		occ, err := DecodeEvent(doc)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", doc.ID, err)
		}
		out = append(out, occ)
	}
	return out, nil
}

// EncodeEvent converts an occurrence into a new (ID-less) document
func EncodeEvent(occ recurrence.OccurrenceRecord) EventDocument {
	return EventDocument{
		PetID: occ.PetID,
		Kind:  occ.Kind.String(),
		Title: occ.Label,
		Date:  occ.Date.String(),
		Time:  occ.Time.String(),
	}
}

// DecodeVaccination converts a stored vaccine history
func DecodeVaccination(doc VaccinationDocument) (recurrence.VaccinationHistoryEntry, error) {
	entry := recurrence.VaccinationHistoryEntry{VaccineName: doc.VaccineName}

	if doc.AdministeredDate != "" {
		d, err := parseDate("administeredDate", doc.AdministeredDate)
		if err != nil {
			return recurrence.VaccinationHistoryEntry{}, err
		}
		entry.AdministeredDate = mo.Some(d)
	}

	for i, r := range doc.Reschedules {
		d, err := parseDate(fmt.Sprintf("reschedules[%d].date", i), r.Date)
		if err != nil {
			return recurrence.VaccinationHistoryEntry{}, err
		}
		tm, err := parseTime(fmt.Sprintf("reschedules[%d].time", i), r.Time)
		if err != nil {
			return recurrence.VaccinationHistoryEntry{}, err
		}
		entry.Reschedules = append(entry.Reschedules, recurrence.RescheduleEntry{Date: d, Time: tm, Sequence: r.Sequence})
	}
	return entry, nil
}

// EncodeVaccination converts a vaccine history for storage
func EncodeVaccination(petID string, entry recurrence.VaccinationHistoryEntry) VaccinationDocument {
	doc := VaccinationDocument{PetID: petID, VaccineName: entry.VaccineName}
	if d, ok := entry.AdministeredDate.Get(); ok {
		doc.AdministeredDate = d.String()
	}
	for _, r := range entry.Reschedules {
		doc.Reschedules = append(doc.Reschedules, RescheduleDocument{
			Date:     r.Date.String(),
			Time:     r.Time.String(),
			Sequence: r.Sequence,
		})
	}
	return doc
}
