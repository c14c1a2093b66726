package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aeris-iot/aeris-core/internal/bus"
)

// upgrader configures the WebSocket upgrade. Origin checks are skipped
// to match the open CORS policy of the rest of the API.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// handleSensorWS streams readings for one sensor over a WebSocket.
//
// Each matching reading is sent as a JSON text message. The server pings
// on the configured interval and drops the connection when a pong fails
// to return within the pong timeout. Incoming messages are read and
// discarded; the socket carries data one way.
func (s *Server) handleSensorWS(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorIDFromRequest(w, r)
	if !ok {
		return
	}

	sub := s.bus.Subscribe()
	if sub == nil {
		writeInternalError(w, "broadcast bus closed")
		return
	}
	defer sub.Unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade writes its own error response
		s.logger.Warn("WebSocket upgrade failed", "sensor_id", id, "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck // Best-effort close on teardown

	s.logger.Debug("WebSocket stream opened", "sensor_id", id)
	defer s.logger.Debug("WebSocket stream closed", "sensor_id", id)

	pingInterval := time.Duration(s.wsCfg.PingInterval) * time.Second
	pongTimeout := time.Duration(s.wsCfg.PongTimeout) * time.Second

	conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	_ = conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
	})

	// The read pump discards client messages and surfaces disconnects by
	// cancelling the request context via closing done.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	entries := make(chan []byte)
	go func() {
		defer close(entries)
		for {
			entry, err := sub.Recv(r.Context())
			if err != nil {
				var lagErr *bus.LagError
				if errors.As(err, &lagErr) {
					s.logger.Warn("WebSocket subscriber lagged",
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
			case <-done:
				return
			}
		}
	}()

	pinger := time.NewTicker(pingInterval)
	defer pinger.Stop()

	for {
		select {
		case data, open := <-entries:
			if !open {
				s.closeGracefully(conn)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(pongTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(pongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			s.closeGracefully(conn)
			return
		}
	}
}

// closeGracefully sends a close frame so well-behaved clients see a clean
// shutdown rather than an abrupt TCP reset.
func (s *Server) closeGracefully(conn *websocket.Conn) {
	deadline := time.Now().Add(time.Second)
	_ = conn.SetWriteDeadline(deadline)
	//nolint:errcheck // Best-effort close frame; the deferred Close follows
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}
