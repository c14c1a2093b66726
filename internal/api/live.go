package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aeris-iot/aeris-core/internal/bus"
)

// handleSensorLive streams readings for one sensor as Server-Sent Events.
//
// Each matching reading arrives as a "data:" event carrying the entry as
// JSON. A comment line goes out on the ping interval so idle connections
// survive proxies that reap quiet streams. The stream ends when the client
// disconnects, the server shuts down, or the bus closes.
//
// Subscribers that fall behind the bus lose the overwritten readings and
// the stream silently resumes from the oldest retained entry.
func (s *Server) handleSensorLive(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorIDFromRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "streaming not supported")
		return
	}

	sub := s.bus.Subscribe()
	if sub == nil {
		writeInternalError(w, "broadcast bus closed")
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.Debug("SSE stream opened", "sensor_id", id)
	defer s.logger.Debug("SSE stream closed", "sensor_id", id)

	keepalive := time.NewTicker(time.Duration(s.wsCfg.PingInterval) * time.Second)
	defer keepalive.Stop()

	// The server-wide write timeout is intentionally unset, so each
	// event write carries its own deadline. A client that stops reading
	// fails the write instead of pinning the connection forever.
	rc := http.NewResponseController(w)
	writeDeadline := func() {
		if d := s.cfg.WriteTimeout(); d > 0 {
			_ = rc.SetWriteDeadline(time.Now().Add(d)) //nolint:errcheck // Unsupported writers just keep no deadline
		}
	}

	// Recv blocks, so readings drain in a goroutine and the write loop
	// multiplexes readings with keepalives. The channel closes when the
	// bus closes or the request context ends.
	entries := make(chan []byte)
	go func() {
		defer close(entries)
		for {
			entry, err := sub.Recv(r.Context())
			if err != nil {
				var lagErr *bus.LagError
				if errors.As(err, &lagErr) {
					s.logger.Warn("SSE subscriber lagged",
						"sensor_id", id,
						"skipped", lagErr.Skipped,
					)
					continue
				}
				return
			}
			if entry.SensorID != id {
				continue
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			select {
			case entries <- data:
			case <-r.Context().Done():
				return
			}
		}
	}()

	for {
		select {
		case data, open := <-entries:
			if !open {
				return
			}
			writeDeadline()
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			writeDeadline()
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
