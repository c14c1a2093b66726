package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Store implements Service using SQLite.
//
// The zero value is not usable; construct with NewStore. A Store is a
// cheap handle over the shared connection pool and is safe for
// concurrent use.
type Store struct {
	db *sql.DB

	// now is the clock used for created_at stamps. Overridden in tests.
	now func() time.Time
}

// NewStore creates a new SQLite-backed sensor store.
// The db parameter should be an open SQLite connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

// RegisterSensor records a sensor announcement.
//
// Registration is idempotent. The common case (sensor already known) is
// a single SELECT. On first contact the INSERT uses OR IGNORE so two
// concurrent registrations for the same ID cannot fail; the loser
// re-reads the winner's row, which keeps the first label.
func (s *Store) RegisterSensor(ctx context.Context, id uuid.UUID, label string) (*Sensor, error) {
	if err := validateLabel(label); err != nil {
		return nil, err
	}

	existing, err := s.FetchOne(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := s.now().Unix()
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sensor (id, label, created_at) VALUES (?, ?, ?)`,
		id.String(), label, created,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting sensor: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("inserting sensor: %w", err)
	}
	if rows == 0 {
		// Lost a registration race; the winner's row is authoritative.
		winner, err := s.FetchOne(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrNotInserted
			}
			return nil, err
		}
		return winner, nil
	}

	return &Sensor{ID: id, Label: label, CreatedAt: created}, nil
}

// SaveEntry persists a single reading for a sensor.
//
// Entry ids are UUIDv7, so ids generated within a run sort in insertion
// order. The sensor_id is stored as-is; no registration check is made.
func (s *Store) SaveEntry(ctx context.Context, sensorID uuid.UUID, value float64) (*SensorEntry, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidValue
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating entry id: %w", err)
	}

	created := s.now().Unix()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sensor_entries (id, sensor_id, value, created_at) VALUES (?, ?, ?, ?)`,
		id.String(), sensorID.String(), value, created,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting sensor entry: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("inserting sensor entry: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotInserted
	}

	return &SensorEntry{ID: id, SensorID: sensorID, Value: value, CreatedAt: created}, nil
}

// FetchOne retrieves a sensor by its unique identifier.
func (s *Store) FetchOne(ctx context.Context, id uuid.UUID) (*Sensor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, created_at FROM sensor WHERE id = ?`,
		id.String(),
	)

	sen, err := scanSensor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying sensor by id: %w", err)
	}
	return sen, nil
}

// FetchAll retrieves all registered sensors, oldest first.
func (s *Store) FetchAll(ctx context.Context) ([]Sensor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, created_at FROM sensor ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	sensors := []Sensor{}
	for rows.Next() {
		sen, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sensor: %w", err)
		}
		sensors = append(sensors, *sen)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}
	return sensors, nil
}

// FetchHistory retrieves all readings for a sensor in ascending time
// order. The secondary key is the UUIDv7 id, which breaks ties within
// the same second.
func (s *Store) FetchHistory(ctx context.Context, sensorID uuid.UUID) ([]SensorEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sensor_id, value, created_at
		FROM sensor_entries
		WHERE sensor_id = ?
		ORDER BY created_at ASC, id ASC`,
		sensorID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying sensor history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	entries := []SensorEntry{}
	for rows.Next() {
		var (
			entry         SensorEntry
			idStr, sidStr string
		)
		if err := rows.Scan(&idStr, &sidStr, &entry.Value, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning sensor entry: %w", err)
		}
		if entry.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parsing entry id: %w", err)
		}
		if entry.SensorID, err = uuid.Parse(sidStr); err != nil {
			return nil, fmt.Errorf("parsing entry sensor id: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor entries: %w", err)
	}
	return entries, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSensor scans a sensor row.
func scanSensor(row rowScanner) (*Sensor, error) {
	var (
		sen   Sensor
		idStr string
	)
	if err := row.Scan(&idStr, &sen.Label, &sen.CreatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing sensor id: %w", err)
	}
	sen.ID = id
	return &sen, nil
}
