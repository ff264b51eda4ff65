// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cyp0633/libpetcal/storage"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Store persists events and vaccination history in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single connection serializes writers, so constraint checks never race into SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ListEvents(ctx context.Context, petID string) ([]storage.EventDocument, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, pet_id, kind, title, event_date, event_time
		   FROM calendar_events
		  WHERE pet_id = ?
		  ORDER BY event_date, event_time, title`, petID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []storage.EventDocument
	for rows.Next() {
		var e storage.EventDocument
		if err := rows.Scan(&e.ID, &e.PetID, &e.Kind, &e.Title, &e.Date, &e.Time); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) CreateEvent(ctx context.Context, event *storage.EventDocument) error {
	if event == nil || strings.TrimSpace(event.PetID) == "" {
		return fmt.Errorf("%w: event needs a pet id", storage.ErrInvalidInput)
	}

	id := uuid.NewString()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO calendar_events (id, pet_id, kind, title, event_date, event_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, event.PetID, event.Kind, event.Title, event.Date, event.Time)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s %s already scheduled", storage.ErrConflict, event.Title, event.Date, event.Time)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	event.ID = id
	return nil
}

func (s *Store) DeleteEvents(ctx context.Context, petID, title string) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE pet_id = ? AND title = ?`, petID, title)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return int(n), nil
}

func (s *Store) ListVaccinations(ctx context.Context, petID string) ([]storage.VaccinationDocument, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT vaccine_name, administered_date
		   FROM vaccinations
		  WHERE pet_id = ?
		  ORDER BY vaccine_name`, petID)
	if err != nil {
		return nil, fmt.Errorf("list vaccinations: %w", err)
	}

	var docs []storage.VaccinationDocument
	for rows.Next() {
		doc := storage.VaccinationDocument{PetID: petID}
		if err := rows.Scan(&doc.VaccineName, &doc.AdministeredDate); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan vaccination: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range docs {
		if docs[i].Reschedules, err = s.reschedules(ctx, petID, docs[i].VaccineName); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *Store) GetVaccination(ctx context.Context, petID, vaccineName string) (*storage.VaccinationDocument, error) {
	doc := storage.VaccinationDocument{PetID: petID, VaccineName: vaccineName}
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT administered_date FROM vaccinations WHERE pet_id = ? AND vaccine_name = ?`,
		petID, vaccineName).Scan(&doc.AdministeredDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vaccination: %w", err)
	}

	if doc.Reschedules, err = s.reschedules(ctx, petID, vaccineName); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) reschedules(ctx context.Context, petID, vaccineName string) ([]storage.RescheduleDocument, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT due_date, due_time, sequence
		   FROM vaccination_reschedules
		  WHERE pet_id = ? AND vaccine_name = ?
		  ORDER BY idx`, petID, vaccineName)
	if err != nil {
		return nil, fmt.Errorf("list reschedules: %w", err)
	}
	defer rows.Close()

	var out []storage.RescheduleDocument
	for rows.Next() {
		var r storage.RescheduleDocument
		if err := rows.Scan(&r.Date, &r.Time, &r.Sequence); err != nil {
			return nil, fmt.Errorf("scan reschedule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) PutVaccination(ctx context.Context, doc *storage.VaccinationDocument) (err error) {
	if doc == nil || strings.TrimSpace(doc.PetID) == "" || strings.TrimSpace(doc.VaccineName) == "" {
		return fmt.Errorf("%w: vaccination needs a pet id and vaccine name", storage.ErrInvalidInput)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO vaccinations (pet_id, vaccine_name, administered_date)
		 VALUES (?, ?, ?)
		 ON CONFLICT (pet_id, vaccine_name) DO UPDATE SET administered_date = excluded.administered_date`,
		doc.PetID, doc.VaccineName, doc.AdministeredDate); err != nil {
		return fmt.Errorf("upsert vaccination: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM vaccination_reschedules WHERE pet_id = ? AND vaccine_name = ?`,
		doc.PetID, doc.VaccineName); err != nil {
		return fmt.Errorf("clear reschedules: %w", err)
	}
	for i, r := range doc.Reschedules {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO vaccination_reschedules (pet_id, vaccine_name, idx, sequence, due_date, due_time)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			doc.PetID, doc.VaccineName, i, r.Sequence, r.Date, r.Time); err != nil {
			return fmt.Errorf("insert reschedule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) RecordAdministered(ctx context.Context, petID, vaccineName, administeredDate string) error {
	if strings.TrimSpace(petID) == "" || strings.TrimSpace(vaccineName) == "" {
		return fmt.Errorf("%w: vaccination needs a pet id and vaccine name", storage.ErrInvalidInput)
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO vaccinations (pet_id, vaccine_name, administered_date)
		 VALUES (?, ?, ?)
		 ON CONFLICT (pet_id, vaccine_name) DO UPDATE SET administered_date =
		     CASE WHEN excluded.administered_date <> '' THEN excluded.administered_date
		          ELSE vaccinations.administered_date END`,
		petID, vaccineName, administeredDate); err != nil {
		return fmt.Errorf("record administered: %w", err)
	}
	return nil
}

// AppendReschedule numbers the reschedule inside one transaction. The single
// connection serializes transactions; the unique sequence index backs it up.
func (s *Store) AppendReschedule(ctx context.Context, petID, vaccineName string, r storage.RescheduleDocument) (seq int, err error) {
	if strings.TrimSpace(petID) == "" || strings.TrimSpace(vaccineName) == "" {
		return 0, fmt.Errorf("%w: vaccination needs a pet id and vaccine name", storage.ErrInvalidInput)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO vaccinations (pet_id, vaccine_name) VALUES (?, ?)
		 ON CONFLICT (pet_id, vaccine_name) DO NOTHING`,
		petID, vaccineName); err != nil {
		return 0, fmt.Errorf("ensure vaccination: %w", err)
	}

	var idx int
	if err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1, COALESCE(MAX(idx), -1) + 1
		   FROM vaccination_reschedules
		  WHERE pet_id = ? AND vaccine_name = ?`,
		petID, vaccineName).Scan(&seq, &idx); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO vaccination_reschedules (pet_id, vaccine_name, idx, sequence, due_date, due_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		petID, vaccineName, idx, seq, r.Date, r.Time); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: reschedule %d of %s already taken", storage.ErrConflict, seq, vaccineName)
		}
		return 0, fmt.Errorf("insert reschedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

func (s *Store) DeleteVaccination(ctx context.Context, petID, vaccineName string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM vaccinations WHERE pet_id = ? AND vaccine_name = ?`, petID, vaccineName)
	if err != nil {
		return fmt.Errorf("delete vaccination: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vaccination: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Storage = (*Store)(nil)
