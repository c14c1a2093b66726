package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aeris-iot/aeris-core/internal/sensor"
)

// sensorIDFromRequest extracts and validates the sensor ID path parameter.
//
// Returns:
//   - uuid.UUID: The parsed sensor ID
//   - bool: false if the ID was invalid and an error response was written
func sensorIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid sensor id")
		return uuid.UUID{}, false
	}
	return id, true
}

// handleListSensors returns every registered sensor.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := s.service.FetchAll(r.Context())
	if err != nil {
		s.logger.Error("failed to list sensors", "error", err)
		writeInternalError(w, "failed to list sensors")
		return
	}

	// Empty list serializes as [], not null
	if sensors == nil {
		sensors = []sensor.Sensor{}
	}

	writeJSON(w, http.StatusOK, sensors)
}

// handleGetSensor returns a single sensor by ID.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorIDFromRequest(w, r)
	if !ok {
		return
	}

	sn, err := s.service.FetchOne(r.Context(), id)
	if err != nil {
		if errors.Is(err, sensor.ErrNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("failed to fetch sensor", "sensor_id", id, "error", err)
		writeInternalError(w, "failed to fetch sensor")
		return
	}

	writeJSON(w, http.StatusOK, sn)
}

// handleSensorHistory returns all stored readings for a sensor in
// chronological order, oldest first.
//
// The sensor does not have to be registered. Readings saved before
// registration are reachable here the moment they land.
func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorIDFromRequest(w, r)
	if !ok {
		return
	}

	entries, err := s.service.FetchHistory(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to fetch sensor history", "sensor_id", id, "error", err)
		writeInternalError(w, "failed to fetch sensor history")
		return
	}

	if entries == nil {
		entries = []sensor.SensorEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}
