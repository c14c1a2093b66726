package sensor

import "errors"

// Domain errors for the sensor package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sensor.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a sensor ID does not exist.
	ErrNotFound = errors.New("sensor: not found")

	// ErrNotInserted is returned when an insert affected no rows.
	ErrNotInserted = errors.New("sensor: not inserted")

	// ErrInvalidLabel is returned when a label is empty or too long.
	ErrInvalidLabel = errors.New("sensor: invalid label")

	// ErrInvalidValue is returned when a reading is NaN or infinite.
	ErrInvalidValue = errors.New("sensor: invalid value")
)
