// Package api provides the HTTP surface of the Aeris ingest service.
//
// It exposes the sensor inventory and reading history over REST, and
// live readings over Server-Sent Events and WebSocket. The server
// follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// The API is read-only and unauthenticated: it is expected to sit on a
// trusted network or behind a gateway that handles access control.
// CORS is deliberately permissive for the same reason.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
