// Package influxdb provides InfluxDB connectivity for the Aeris ingest service.
//
// It wraps the official influxdb-client-go v2 library with Aeris-specific
// patterns for connection management, reading mirroring, and health monitoring.
//
// # Purpose
//
// This package mirrors gas readings into a time-series store for
// dashboarding and long-range retention. SQLite remains the system of
// record; the mirror is optional and best-effort.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "aeris",
//	    Bucket: "readings",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Mirror a gas reading
//	client.WriteReading("0198d4a2-7b3e-7cc1-9f11-2a4be8d1c001", 412.5, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
