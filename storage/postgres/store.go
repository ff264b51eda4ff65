// Package postgres provides a PostgreSQL-backed storage implementation using pgx.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/libpetcal/storage"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schema string

// Store persists events and vaccination history in PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open opens a connection pool to Postgres using pgx (database/sql) and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already opened pool. The schema must exist.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListEvents(ctx context.Context, petID string) ([]storage.EventDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pet_id, kind, title, event_date, event_time
		FROM calendar_events
		WHERE pet_id = $1
		ORDER BY event_date, event_time, title
	`, petID)
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

// CreateEvent relies on the UNIQUE constraint: a conflicting insert affects no rows.
func (s *Store) CreateEvent(ctx context.Context, event *storage.EventDocument) error {
	if event == nil || strings.TrimSpace(event.PetID) == "" {
		return fmt.Errorf("%w: event needs a pet id", storage.ErrInvalidInput)
	}

	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (id, pet_id, kind, title, event_date, event_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pet_id, title, event_date, event_time) DO NOTHING
	`, id, event.PetID, event.Kind, event.Title, event.Date, event.Time)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s %s already scheduled", storage.ErrConflict, event.Title, event.Date, event.Time)
	}
	event.ID = id
	return nil
}

func (s *Store) DeleteEvents(ctx context.Context, petID, title string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE pet_id = $1 AND title = $2`, petID, title)
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.vaccine_name, v.administered_date, r.sequence, r.due_date, r.due_time
		FROM vaccinations v
		LEFT JOIN vaccination_reschedules r
			ON r.pet_id = v.pet_id AND r.vaccine_name = v.vaccine_name
		WHERE v.pet_id = $1
		ORDER BY v.vaccine_name, r.idx
	`, petID)
	if err != nil {
		return nil, fmt.Errorf("list vaccinations: %w", err)
	}
	defer rows.Close()

	var docs []storage.VaccinationDocument
	for rows.Next() {
		var (
			name, administered string
			seq                sql.NullInt64
			dueDate, dueTime   sql.NullString
		)
		if err := rows.Scan(&name, &administered, &seq, &dueDate, &dueTime); err != nil {
			return nil, fmt.Errorf("scan vaccination: %w", err)
		}
		if len(docs) == 0 || docs[len(docs)-1].VaccineName != name {
			docs = append(docs, storage.VaccinationDocument{PetID: petID, VaccineName: name, AdministeredDate: administered})
		}
		if seq.Valid {
			last := &docs[len(docs)-1]
			last.Reschedules = append(last.Reschedules, storage.RescheduleDocument{
				Date:     dueDate.String,
				Time:     dueTime.String,
				Sequence: int(seq.Int64),
			})
		}
	}
	return docs, rows.Err()
}

func (s *Store) GetVaccination(ctx context.Context, petID, vaccineName string) (*storage.VaccinationDocument, error) {
	doc := storage.VaccinationDocument{PetID: petID, VaccineName: vaccineName}
	err := s.db.QueryRowContext(ctx, `
		SELECT administered_date FROM vaccinations WHERE pet_id = $1 AND vaccine_name = $2
	`, petID, vaccineName).Scan(&doc.AdministeredDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vaccination: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, due_date, due_time
		FROM vaccination_reschedules
		WHERE pet_id = $1 AND vaccine_name = $2
		ORDER BY idx
	`, petID, vaccineName)
	if err != nil {
		return nil, fmt.Errorf("list reschedules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r storage.RescheduleDocument
		if err := rows.Scan(&r.Sequence, &r.Date, &r.Time); err != nil {
			return nil, fmt.Errorf("scan reschedule: %w", err)
		}
		doc.Reschedules = append(doc.Reschedules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) PutVaccination(ctx context.Context, doc *storage.VaccinationDocument) (err error) {
	if doc == nil || strings.TrimSpace(doc.PetID) == "" || strings.TrimSpace(doc.VaccineName) == "" {
		return fmt.Errorf("%w: vaccination needs a pet id and vaccine name", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO vaccinations (pet_id, vaccine_name, administered_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (pet_id, vaccine_name) DO UPDATE SET administered_date = EXCLUDED.administered_date
	`, doc.PetID, doc.VaccineName, doc.AdministeredDate); err != nil {
		return fmt.Errorf("upsert vaccination: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		DELETE FROM vaccination_reschedules WHERE pet_id = $1 AND vaccine_name = $2
	`, doc.PetID, doc.VaccineName); err != nil {
		return fmt.Errorf("clear reschedules: %w", err)
	}
	for i, r := range doc.Reschedules {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO vaccination_reschedules (pet_id, vaccine_name, idx, sequence, due_date, due_time)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, doc.PetID, doc.VaccineName, i, r.Sequence, r.Date, r.Time); err != nil {
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

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO vaccinations (pet_id, vaccine_name, administered_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (pet_id, vaccine_name) DO UPDATE SET administered_date =
			CASE WHEN EXCLUDED.administered_date <> '' THEN EXCLUDED.administered_date
			     ELSE vaccinations.administered_date END
	`, petID, vaccineName, administeredDate); err != nil {
		return fmt.Errorf("record administered: %w", err)
	}
	return nil
}

// AppendReschedule locks the vaccination row before numbering, so concurrent
// appends for the same vaccine run one after another.
func (s *Store) AppendReschedule(ctx context.Context, petID, vaccineName string, r storage.RescheduleDocument) (seq int, err error) {
	if strings.TrimSpace(petID) == "" || strings.TrimSpace(vaccineName) == "" {
		return 0, fmt.Errorf("%w: vaccination needs a pet id and vaccine name", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO vaccinations (pet_id, vaccine_name) VALUES ($1, $2)
		ON CONFLICT (pet_id, vaccine_name) DO NOTHING
	`, petID, vaccineName); err != nil {
		return 0, fmt.Errorf("ensure vaccination: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		SELECT 1 FROM vaccinations WHERE pet_id = $1 AND vaccine_name = $2 FOR UPDATE
	`, petID, vaccineName); err != nil {
		return 0, fmt.Errorf("lock vaccination: %w", err)
	}

	var idx int
	if err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence), 0) + 1, COALESCE(MAX(idx), -1) + 1
		FROM vaccination_reschedules
		WHERE pet_id = $1 AND vaccine_name = $2
	`, petID, vaccineName).Scan(&seq, &idx); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO vaccination_reschedules (pet_id, vaccine_name, idx, sequence, due_date, due_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, petID, vaccineName, idx, seq, r.Date, r.Time); err != nil {
		return 0, fmt.Errorf("insert reschedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

func (s *Store) DeleteVaccination(ctx context.Context, petID, vaccineName string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM vaccinations WHERE pet_id = $1 AND vaccine_name = $2
	`, petID, vaccineName)
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

var _ storage.Storage = (*Store)(nil)
