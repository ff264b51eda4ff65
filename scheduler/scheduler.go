package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/libpetcal/catalog"
	"github.com/cyp0633/libpetcal/recurrence"
	"github.com/cyp0633/libpetcal/storage"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// ErrUnknownVaccine is returned for vaccine names missing from the catalog
var ErrUnknownVaccine = errors.New("vaccine not in catalog")

// defaultDueTime is the time of day projected due dates are scheduled at
var defaultDueTime = recurrence.TimeOfDay{Hour: 9}

// Service persists what the recurrence engine computes
type Service struct {
	store   storage.Storage
	engine  *recurrence.Engine
	catalog *catalog.Catalog
	logger  *slog.Logger
	metrics *Metrics
	dueTime recurrence.TimeOfDay
}

// Option configures a Service
type Option func(*Service)

// WithEngine replaces the default recurrence engine
func WithEngine(engine *recurrence.Engine) Option {
	return func(s *Service) { s.engine = engine }
}

// WithCatalog replaces the default vaccine catalog
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics enables Prometheus counters
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDueTime sets the time of day used for projected due dates
func WithDueTime(t recurrence.TimeOfDay) Option {
	return func(s *Service) { s.dueTime = t }
}

// New creates a scheduler on top of store
func New(store storage.Storage, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	s := &Service{
		store:   store,
		catalog: catalog.Default(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		dueTime: defaultDueTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		cfg := recurrence.DefaultEngineConfig
		cfg.Logger = s.logger
		s.engine = recurrence.NewEngineWithConfig(cfg)
	}
	return s, nil
}

// EnableFeeding fills the feeding window starting at today and returns the
// occurrences it wrote. Running it again the same day writes nothing.
func (s *Service) EnableFeeding(ctx context.Context, petID string, times []recurrence.TimeOfDay, today recurrence.Date) ([]recurrence.OccurrenceRecord, error) {
	existing, err := s.occurrences(ctx, petID)
	if err != nil {
		return nil, err
	}

	pending, err := s.engine.Expand(recurrence.FeedingRule(petID, times...), existing, today)
	if err != nil {
		return nil, fmt.Errorf("expand feeding for %s: %w", petID, err)
	}

	created, err := s.persist(ctx, pending)
	if err != nil {
		return created, err
	}
	s.logger.Info("feeding schedule extended",
		"pet", petID, "from", today.String(), "created", len(created), "skipped", len(pending)-len(created))
	return created, nil
}

// DisableFeeding removes every feeding occurrence of the pet
func (s *Service) DisableFeeding(ctx context.Context, petID string) (int, error) {
	n, err := s.store.DeleteEvents(ctx, petID, recurrence.FeedingLabel)
	if err != nil {
		return 0, fmt.Errorf("disable feeding for %s: %w", petID, err)
	}
	s.logger.Info("feeding schedule disabled", "pet", petID, "removed", n)
	return n, nil
}

// AddToHistory records a vaccine in the pet's history, optionally with the
// date it was administered. Existing reschedules are kept.
func (s *Service) AddToHistory(ctx context.Context, petID, vaccineName string, administered mo.Option[recurrence.Date]) error {
	v, err := s.vaccine(vaccineName)
	if err != nil {
		return err
	}

	date := ""
	if d, ok := administered.Get(); ok {
		date = d.String()
	}
	if err := s.store.RecordAdministered(ctx, petID, v.Name, date); err != nil {
		return fmt.Errorf("record %s for %s: %w", v.Name, petID, err)
	}
	return nil
}

// ScheduleVaccination appends a reschedule to the vaccine's history, writes
// the matching occurrence and returns the reschedule's sequence number.
// Concurrent calls for the same vaccine each get their own sequence number.
func (s *Service) ScheduleVaccination(ctx context.Context, petID, vaccineName string, date recurrence.Date, at recurrence.TimeOfDay) (int, error) {
	v, err := s.vaccine(vaccineName)
	if err != nil {
		return 0, err
	}

	seq, err := s.store.AppendReschedule(ctx, petID, v.Name, storage.RescheduleDocument{
		Date: date.String(),
		Time: at.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("reschedule %s for %s: %w", v.Name, petID, err)
	}
	s.metrics.rescheduled()

	occ := recurrence.OccurrenceRecord{
		PetID: petID,
		Kind:  recurrence.KindVaccinationDue,
		Label: recurrence.VaccinationLabel(v.Name),
		Date:  date,
		Time:  at,
	}
	if _, err := s.persist(ctx, []recurrence.OccurrenceRecord{occ}); err != nil {
		return seq, err
	}

	s.logger.Info("vaccination scheduled",
		"pet", petID, "vaccine", v.Name, "date", date.String(), "time", at.String(), "sequence", seq)
	return seq, nil
}

// NextDue projects the next due date of a vaccine from the pet's history.
// It is absent when neither an administered date nor a reschedule is known.
func (s *Service) NextDue(ctx context.Context, petID, vaccineName string) (mo.Option[recurrence.Date], error) {
	v, err := s.vaccine(vaccineName)
	if err != nil {
		return mo.None[recurrence.Date](), err
	}
	entry, err := s.entry(ctx, petID, v.Name)
	if err != nil {
		return mo.None[recurrence.Date](), err
	}
	return s.engine.ComputeNextVaccinationDate(entry.Latest(), s.unit(v)), nil
}

// PlanNextDue writes the projected next due occurrence of a vaccine, if one can be projected
func (s *Service) PlanNextDue(ctx context.Context, petID, vaccineName string) (mo.Option[recurrence.OccurrenceRecord], error) {
	v, err := s.vaccine(vaccineName)
	if err != nil {
		return mo.None[recurrence.OccurrenceRecord](), err
	}
	entry, err := s.entry(ctx, petID, v.Name)
	if err != nil {
		return mo.None[recurrence.OccurrenceRecord](), err
	}

	due := s.engine.ProjectDue(petID, entry, s.unit(v), s.dueTime)
	occ, ok := due.Get()
	if !ok {
		s.logger.Debug("no basis to project due date", "pet", petID, "vaccine", v.Name)
		return due, nil
	}
	if _, err := s.persist(ctx, []recurrence.OccurrenceRecord{occ}); err != nil {
		return mo.None[recurrence.OccurrenceRecord](), err
	}
	return due, nil
}

// InitialDue is the first due date of a vaccine for a pet born on birth
func (s *Service) InitialDue(birth recurrence.Date, vaccineName string) (recurrence.Date, error) {
	v, err := s.vaccine(vaccineName)
	if err != nil {
		return recurrence.Date{}, err
	}
	return recurrence.DueFromAge(birth, v.RequiredAgeWeeks), nil
}

// History returns the reschedule logs of every vaccine in the pet's history
func (s *Service) History(ctx context.Context, petID string) (recurrence.RescheduleHistory, error) {
	docs, err := s.store.ListVaccinations(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("list vaccinations for %s: %w", petID, err)
	}

	history := recurrence.NewRescheduleHistory()
	for _, doc := range docs {
		entry, err := storage.DecodeVaccination(doc)
		if err != nil {
			return nil, fmt.Errorf("vaccination %s: %w", doc.VaccineName, err)
		}
		history[entry.VaccineName] = entry.Reschedules
	}
	return history, nil
}

// RemoveVaccine drops a vaccine from the pet's history together with its
// occurrences. Scheduling it again restarts the sequence at 1.
func (s *Service) RemoveVaccine(ctx context.Context, petID, vaccineName string) error {
	name := vaccineName
	if v, ok := s.catalog.Lookup(vaccineName); ok {
		name = v.Name
	}

	if err := s.store.DeleteVaccination(ctx, petID, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("remove %s for %s: %w", name, petID, err)
	}
	n, err := s.store.DeleteEvents(ctx, petID, recurrence.VaccinationLabel(name))
	if err != nil {
		return fmt.Errorf("remove %s events for %s: %w", name, petID, err)
	}
	s.logger.Info("vaccine removed", "pet", petID, "vaccine", name, "events", n)
	return nil
}

// ExportCalendar writes the pet's occurrences as an iCalendar feed
func (s *Service) ExportCalendar(ctx context.Context, petID string, w io.Writer, stamp time.Time) error {
	occurrences, err := s.occurrences(ctx, petID)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(recurrence.OccurrencesToCalendar(occurrences, stamp)); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func (s *Service) vaccine(name string) (catalog.Vaccine, error) {
	v, ok := s.catalog.Lookup(name)
	if !ok {
		return catalog.Vaccine{}, fmt.Errorf("%w: %q", ErrUnknownVaccine, name)
	}
	return v, nil
}

// unit decodes the catalog recommendation. The engine logs the annual fallback.
func (s *Service) unit(v catalog.Vaccine) recurrence.RescheduleUnit {
	u := v.Unit()
	if !u.Known() {
		s.metrics.fallback()
	}
	return u
}

func (s *Service) occurrences(ctx context.Context, petID string) ([]recurrence.OccurrenceRecord, error) {
	docs, err := s.store.ListEvents(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", petID, err)
	}
	return storage.DecodeEvents(docs)
}

func (s *Service) entry(ctx context.Context, petID, vaccineName string) (recurrence.VaccinationHistoryEntry, error) {
	doc, err := s.store.GetVaccination(ctx, petID, vaccineName)
	if errors.Is(err, storage.ErrNotFound) {
		return recurrence.VaccinationHistoryEntry{VaccineName: vaccineName}, nil
	}
	if err != nil {
		return recurrence.VaccinationHistoryEntry{}, fmt.Errorf("get %s for %s: %w", vaccineName, petID, err)
	}
	return storage.DecodeVaccination(*doc)
}

// persist writes occurrences one by one. Identity keys taken by a concurrent
// writer since the existing set was read are skipped.
func (s *Service) persist(ctx context.Context, occurrences []recurrence.OccurrenceRecord) ([]recurrence.OccurrenceRecord, error) {
	created := make([]recurrence.OccurrenceRecord, 0, len(occurrences))
	for _, occ := range occurrences {
		doc := storage.EncodeEvent(occ)
		err := s.store.CreateEvent(ctx, &doc)
		switch {
		case errors.Is(err, storage.ErrConflict):
			s.metrics.duplicate(occ.Kind.String())
			s.logger.Debug("occurrence already stored", "key", occ.Key().String())
			continue
		case err != nil:
			return created, fmt.Errorf("create %s: %w", occ.Key(), err)
		}
		s.metrics.created(occ.Kind.String())
		created = append(created, occ)
	}
	return created, nil
}
