// Aeris Core - Gas Sensor Telemetry Service
//
// This is the main entry point for the Aeris ingest service. Aeris
// collects gas concentration readings from an MQTT sensor fleet,
// persists them to SQLite, and serves them over an HTTP API with live
// streaming via SSE and WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/aeris-iot/aeris-core/migrations"

	"github.com/aeris-iot/aeris-core/internal/api"
	"github.com/aeris-iot/aeris-core/internal/bus"
	"github.com/aeris-iot/aeris-core/internal/infrastructure/config"
	"github.com/aeris-iot/aeris-core/internal/infrastructure/database"
	"github.com/aeris-iot/aeris-core/internal/infrastructure/influxdb"
	"github.com/aeris-iot/aeris-core/internal/infrastructure/logging"
	"github.com/aeris-iot/aeris-core/internal/listener"
	"github.com/aeris-iot/aeris-core/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Aeris Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	if cfg.Idle() {
		log.Warn("neither MQTT ingestion nor the HTTP API is enabled; the process will idle")
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		URL:         cfg.Database.URL,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "url", cfg.Database.URL)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Sensor store and broadcast bus
	store := sensor.NewStore(db.DB)
	broadcast := bus.New(bus.DefaultCapacity)
	defer broadcast.Close()

	// Connect to InfluxDB mirror (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB mirror connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB mirror disabled")
	}

	// Connect to MQTT and start the ingestion listener (if enabled)
	if cfg.MQTT.Enabled {
		mqttClient, connectErr := listener.ConnectBroker(ctx, cfg.MQTT, log)
		if connectErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connectErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		// Without a logger the client has nowhere to report dropped
		// payloads or recovered handler panics.
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		deps := listener.Deps{
			Broker:  mqttClient,
			Service: store,
			Bus:     broadcast,
			Logger:  log,
		}
		if influxClient != nil {
			deps.Mirror = influxClient
		}
		ingest := listener.New(deps)
		if startErr := ingest.Start(); startErr != nil {
			return fmt.Errorf("starting ingestion listener: %w", startErr)
		}
		defer func() {
			log.Info("stopping ingestion listener")
			if closeErr := ingest.Close(); closeErr != nil {
				log.Error("error closing ingestion listener", "error", closeErr)
			}
		}()

		// Verify the broker link before declaring readiness
		if healthErr := mqttClient.HealthCheck(ctx); healthErr != nil {
			return fmt.Errorf("mqtt health check: %w", healthErr)
		}
	} else {
		log.Info("MQTT ingestion disabled")
	}

	// Start HTTP API server (if enabled)
	if cfg.API.Enabled {
		apiServer, newErr := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log,
			Service: store,
			Bus:     broadcast,
			Version: version,
		})
		if newErr != nil {
			return fmt.Errorf("creating API server: %w", newErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	// Verify the database is healthy before declaring readiness
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server (drains HTTP connections)
	// 2. Ingestion listener (unsubscribes, drains in-flight saves)
	// 3. MQTT client
	// 4. InfluxDB mirror (if enabled)
	// 5. Broadcast bus (ends live streams)
	// 6. Database

	log.Info("Aeris Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AERIS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AERIS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
