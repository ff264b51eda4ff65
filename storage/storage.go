package storage

import (
	"context"
	"errors"
)

// Storage connects the scheduler to a document store. Documents keep the
// stored string formats; use the codec in this package to convert them.
type Storage interface {
	// ListEvents returns every calendar event of a pet.
	ListEvents(ctx context.Context, petID string) ([]EventDocument, error)
	// CreateEvent stores a new event and fills in its ID. Implementations must
	// check the identity key (pet, title, date, time) at write time and return
	// ErrConflict when it is already taken, so concurrent writers computing
	// overlapping windows cannot store the same occurrence twice.
	CreateEvent(ctx context.Context, event *EventDocument) error
	// DeleteEvents removes every event of a pet with the given title and
	// returns how many were removed.
	DeleteEvents(ctx context.Context, petID, title string) (int, error)

	// ListVaccinations returns the vaccination history of a pet, one document per vaccine.
	ListVaccinations(ctx context.Context, petID string) ([]VaccinationDocument, error)
	// GetVaccination returns one vaccine's history or ErrNotFound.
	GetVaccination(ctx context.Context, petID, vaccineName string) (*VaccinationDocument, error)
	// PutVaccination creates or replaces one vaccine's history.
	PutVaccination(ctx context.Context, doc *VaccinationDocument) error
	// RecordAdministered creates the vaccine's history if it is missing. A
	// non-empty administeredDate replaces the stored one; reschedules are kept.
	RecordAdministered(ctx context.Context, petID, vaccineName, administeredDate string) error
	// AppendReschedule appends a reschedule to the vaccine's history in one
	// atomic step, creating the history if needed, and returns the sequence
	// number it assigned. Sequences are one past the highest stored, so
	// concurrent callers never receive the same number. The Sequence field of
	// r is ignored.
	AppendReschedule(ctx context.Context, petID, vaccineName string, r RescheduleDocument) (int, error)
	// DeleteVaccination removes one vaccine's history, reschedules included.
	DeleteVaccination(ctx context.Context, petID, vaccineName string) error
}

// EventDocument is a stored calendar event
type EventDocument struct {
	ID    string
	PetID string
	Kind  string
	Title string
	Date  string // YYYY-MM-DD
	Time  string // HH:MM
}

// VaccinationDocument is the stored history of one vaccine for one pet
type VaccinationDocument struct {
	PetID       string
	VaccineName string
	// AdministeredDate is empty when the vaccine was added without a date
	AdministeredDate string
	Reschedules      []RescheduleDocument
}

// RescheduleDocument is one stored reschedule
type RescheduleDocument struct {
	Date     string
	Time     string
	Sequence int
}

var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrConflict is returned when there's a conflict with an existing resource
	ErrConflict = errors.New("resource conflict")
	// ErrStorageUnavailable is returned when the storage backend is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")
)
