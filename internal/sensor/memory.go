package sensor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory implements Service with in-process maps.
//
// It mirrors Store semantics (idempotent registration, orphan entries,
// ascending history) and exists so listener and API tests run without a
// database file.
type Memory struct {
	mu      sync.RWMutex
	sensors map[uuid.UUID]Sensor
	entries []SensorEntry

	// now is the clock used for created_at stamps. Overridden in tests.
	now func() time.Time
}

// NewMemory creates an empty in-memory sensor service.
func NewMemory() *Memory {
	return &Memory{
		sensors: make(map[uuid.UUID]Sensor),
		now:     time.Now,
	}
}

// RegisterSensor records a sensor announcement. The first label wins.
func (m *Memory) RegisterSensor(ctx context.Context, id uuid.UUID, label string) (*Sensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateLabel(label); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sensors[id]; ok {
		return &existing, nil
	}

	sen := Sensor{ID: id, Label: label, CreatedAt: m.now().Unix()}
	m.sensors[id] = sen
	return &sen, nil
}

// SaveEntry persists a single reading for a sensor.
func (m *Memory) SaveEntry(ctx context.Context, sensorID uuid.UUID, value float64) (*SensorEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidValue
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating entry id: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := SensorEntry{ID: id, SensorID: sensorID, Value: value, CreatedAt: m.now().Unix()}
	m.entries = append(m.entries, entry)
	return &entry, nil
}

// FetchOne retrieves a sensor by its unique identifier.
func (m *Memory) FetchOne(ctx context.Context, id uuid.UUID) (*Sensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sen, ok := m.sensors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sen, nil
}

// FetchAll retrieves all registered sensors, oldest first.
func (m *Memory) FetchAll(ctx context.Context) ([]Sensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sensors := make([]Sensor, 0, len(m.sensors))
	for _, sen := range m.sensors {
		sensors = append(sensors, sen)
	}
	sort.Slice(sensors, func(i, j int) bool {
		if sensors[i].CreatedAt != sensors[j].CreatedAt {
			return sensors[i].CreatedAt < sensors[j].CreatedAt
		}
		return sensors[i].ID.String() < sensors[j].ID.String()
	})
	return sensors, nil
}

// FetchHistory retrieves all readings for a sensor in ascending time order.
func (m *Memory) FetchHistory(ctx context.Context, sensorID uuid.UUID) ([]SensorEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	history := []SensorEntry{}
	for _, entry := range m.entries {
		if entry.SensorID == sensorID {
			history = append(history, entry)
		}
	}
	// Entries append in insertion order; stable sort by timestamp keeps
	// same-second arrivals in that order.
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt < history[j].CreatedAt
	})
	return history, nil
}
