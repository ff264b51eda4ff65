// memory based implementation for testing purposes
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cyp0633/libpetcal/storage"
	"github.com/google/uuid"
)

type identity struct {
	petID, title, date, time string
}

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu           sync.RWMutex
	events       map[string]*storage.EventDocument // key: event ID
	keys         map[identity]string               // identity key -> event ID
	vaccinations map[string]*storage.VaccinationDocument
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		events:       make(map[string]*storage.EventDocument),
		keys:         make(map[identity]string),
		vaccinations: make(map[string]*storage.VaccinationDocument),
	}
}

func identityOf(e *storage.EventDocument) identity {
	return identity{petID: e.PetID, title: e.Title, date: e.Date, time: e.Time}
}

func vaccinationKey(petID, vaccineName string) string {
	return fmt.Sprintf("%s/%s", petID, vaccineName)
}

// Event operations

func (s *Store) ListEvents(_ context.Context, petID string) ([]storage.EventDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []storage.EventDocument
	for _, e := range s.events {
		if e.PetID == petID {
			events = append(events, *e)
		}
	}
	slices.SortFunc(events, func(a, b storage.EventDocument) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.Time, b.Time), cmp.Compare(a.Title, b.Title))
	})
	return events, nil
}

func (s *Store) CreateEvent(_ context.Context, event *storage.EventDocument) error {
	if event == nil || event.PetID == "" {
		return fmt.Errorf("%w: event needs a pet id", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityOf(event)
	if id, exists := s.keys[key]; exists {
		return fmt.Errorf("%w: event %s already occupies %s %s %s", storage.ErrConflict, id, event.Title, event.Date, event.Time)
	}

	stored := *event
	stored.ID = uuid.NewString()
	s.events[stored.ID] = &stored
	s.keys[key] = stored.ID
	event.ID = stored.ID

	return nil
}

func (s *Store) DeleteEvents(_ context.Context, petID, title string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.events {
		if e.PetID == petID && e.Title == title {
			delete(s.keys, identityOf(e))
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}

// Vaccination operations

func (s *Store) ListVaccinations(_ context.Context, petID string) ([]storage.VaccinationDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []storage.VaccinationDocument
	for _, v := range s.vaccinations {
		if v.PetID == petID {
			docs = append(docs, cloneVaccination(v))
		}
	}
	slices.SortFunc(docs, func(a, b storage.VaccinationDocument) int {
		return cmp.Compare(a.VaccineName, b.VaccineName)
	})
	return docs, nil
}

func (s *Store) GetVaccination(_ context.Context, petID, vaccineName string) (*storage.VaccinationDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaccinations[vaccinationKey(petID, vaccineName)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	doc := cloneVaccination(v)
	return &doc, nil
}

func (s *Store) PutVaccination(_ context.Context, doc *storage.VaccinationDocument) error {
	if doc == nil || doc.PetID == "" || doc.VaccineName == "" {
		return fmt.Errorf("%w: vaccination needs a pet id and vaccine name", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneVaccination(doc)
	s.vaccinations[vaccinationKey(doc.PetID, doc.VaccineName)] = &stored
	return nil
}

func (s *Store) RecordAdministered(_ context.Context, petID, vaccineName, administeredDate string) error {
	if petID == "" || vaccineName == "" {
		return fmt.Errorf("%w: vaccination needs a pet id and vaccine name", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.vaccinationLocked(petID, vaccineName)
	if administeredDate != "" {
		v.AdministeredDate = administeredDate
	}
	return nil
}

func (s *Store) AppendReschedule(_ context.Context, petID, vaccineName string, r storage.RescheduleDocument) (int, error) {
	if petID == "" || vaccineName == "" {
		return 0, fmt.Errorf("%w: vaccination needs a pet id and vaccine name", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.vaccinationLocked(petID, vaccineName)
	seq := 1
	for _, existing := range v.Reschedules {
		seq = max(seq, existing.Sequence+1)
	}
	r.Sequence = seq
	v.Reschedules = append(v.Reschedules, r)
	return seq, nil
}

// vaccinationLocked returns the stored history, creating it if missing. s.mu must be held.
func (s *Store) vaccinationLocked(petID, vaccineName string) *storage.VaccinationDocument {
	key := vaccinationKey(petID, vaccineName)
	v, ok := s.vaccinations[key]
	if !ok {
		v = &storage.VaccinationDocument{PetID: petID, VaccineName: vaccineName}
		s.vaccinations[key] = v
	}
	return v
}

func (s *Store) DeleteVaccination(_ context.Context, petID, vaccineName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := vaccinationKey(petID, vaccineName)
	if _, exists := s.vaccinations[key]; !exists {
		return storage.ErrNotFound
	}
	delete(s.vaccinations, key)
	return nil
}

func cloneVaccination(v *storage.VaccinationDocument) storage.VaccinationDocument {
	out := *v
	out.Reschedules = slices.Clone(v.Reschedules)
	return out
}

var _ storage.Storage = (*Store)(nil)
