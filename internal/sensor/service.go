package sensor

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for sensor persistence operations.
// This abstraction allows for different implementations (SQLite, memory)
// and enables unit testing without database dependencies.
type Service interface {
	// RegisterSensor records a sensor announcement.
	// Registration is idempotent: if the ID already exists the stored
	// row is returned unchanged, so the first label wins.
	RegisterSensor(ctx context.Context, id uuid.UUID, label string) (*Sensor, error)

	// SaveEntry persists a single reading for a sensor.
	// The sensor does not need to be registered first.
	SaveEntry(ctx context.Context, sensorID uuid.UUID, value float64) (*SensorEntry, error)

	// FetchOne retrieves a sensor by its unique identifier.
	// Returns ErrNotFound if the sensor does not exist.
	FetchOne(ctx context.Context, id uuid.UUID) (*Sensor, error)

	// FetchAll retrieves all registered sensors, oldest first.
	FetchAll(ctx context.Context) ([]Sensor, error)

	// FetchHistory retrieves all readings for a sensor in ascending
	// time order. An unknown sensor yields an empty slice, not an error.
	FetchHistory(ctx context.Context, sensorID uuid.UUID) ([]SensorEntry, error)
}

// validateLabel checks label constraints shared by all implementations.
func validateLabel(label string) error {
	if label == "" || len(label) > maxLabelLength {
		return ErrInvalidLabel
	}
	return nil
}
