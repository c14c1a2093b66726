package sensor

import "github.com/google/uuid"

// maxLabelLength bounds sensor labels. Labels arrive from the wire and
// a runaway payload must not become a megabyte-wide table row.
const maxLabelLength = 128

// Sensor represents a registered gas sensor.
// This matches the database schema in migrations/20260301_000000_create_sensors.up.sql.
type Sensor struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	CreatedAt int64     `json:"created_at"`
}

// SensorEntry is a single gas concentration reading.
//
// SensorID references the reporting sensor but is not enforced with a
// foreign key. Readings can arrive before registration completes.
type SensorEntry struct {
	ID        uuid.UUID `json:"id"`
	SensorID  uuid.UUID `json:"sensor_id"`
	Value     float64   `json:"value"`
	CreatedAt int64     `json:"created_at"`
}
