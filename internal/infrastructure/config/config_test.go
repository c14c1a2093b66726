package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
database:
  url: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  enabled: true
  host: "0.0.0.0"
  port: 3000
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.URL != "/tmp/test.db" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}

	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	// A missing config file falls back to defaults plus environment overrides.
	t.Setenv("AERIS_DATABASE_URL", "/tmp/env-only.db")

	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v, want env-only operation", err)
	}

	if cfg.Database.URL != "/tmp/env-only.db" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "/tmp/env-only.db")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	// Empty database.url and no AERIS_DATABASE_URL must fail validation.
	content := `
database:
  url: ""
api:
  enabled: true
  port: 3000
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty database.url, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	ws := WebSocketConfig{MaxMessageSize: 8192, PingInterval: 15, PongTimeout: 10}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{QoS: 1, Broker: MQTTBrokerConfig{Host: "localhost"}},
				API:       APIConfig{Enabled: true, Port: 3000},
				WebSocket: ws,
			},
			wantErr: false,
		},
		{
			name: "missing database url",
			config: &Config{
				Database:  DatabaseConfig{URL: ""},
				API:       APIConfig{Enabled: true, Port: 3000},
				WebSocket: ws,
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{QoS: 3},
				API:       APIConfig{Enabled: true, Port: 3000},
				WebSocket: ws,
			},
			wantErr: true,
		},
		{
			name: "invalid port low",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{QoS: 1},
				API:       APIConfig{Enabled: true, Port: 0},
				WebSocket: ws,
			},
			wantErr: true,
		},
		{
			name: "invalid port high",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{QoS: 1},
				API:       APIConfig{Enabled: true, Port: 70000},
				WebSocket: ws,
			},
			wantErr: true,
		},
		{
			name: "port ignored when api disabled",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{QoS: 1},
				API:       APIConfig{Enabled: false, Port: 0},
				WebSocket: ws,
			},
			wantErr: false,
		},
		{
			name: "mqtt enabled without broker host",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{Enabled: true, QoS: 1},
				WebSocket: ws,
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{QoS: 1},
				InfluxDB:  InfluxDBConfig{Enabled: true},
				WebSocket: ws,
			},
			wantErr: true,
		},
		{
			name: "zero websocket ping interval",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{QoS: 1},
				WebSocket: WebSocketConfig{MaxMessageSize: 8192, PingInterval: 0, PongTimeout: 10},
			},
			wantErr: true,
		},
		{
			name: "negative websocket pong timeout",
			config: &Config{
				Database:  DatabaseConfig{URL: "/data/aeris.db"},
				MQTT:      MQTTConfig{QoS: 1},
				WebSocket: WebSocketConfig{MaxMessageSize: 8192, PingInterval: 15, PongTimeout: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Idle(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{URL: "/data/aeris.db"}}
	if !cfg.Idle() {
		t.Error("Idle() = false, want true when neither mqtt nor api enabled")
	}

	cfg.API.Enabled = true
	if cfg.Idle() {
		t.Error("Idle() = true, want false when api enabled")
	}
}

func TestAPIConfig_Timeouts(t *testing.T) {
	cfg := APIConfig{
		Timeouts: APITimeoutConfig{
			Read:  30,
			Write: 45,
			Idle:  60,
		},
	}

	if got := cfg.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("ReadTimeout() = %v, want 30", got)
	}

	if got := cfg.WriteTimeout().Seconds(); got != 45 {
		t.Errorf("WriteTimeout() = %v, want 45", got)
	}

	if got := cfg.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("IdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("AERIS_DATABASE_URL", "/custom/path.db")
	t.Setenv("AERIS_MQTT_HOST", "mqtt.example.com")
	t.Setenv("AERIS_MQTT_USERNAME", "testuser")
	t.Setenv("AERIS_MQTT_PASSWORD", "testpass")
	t.Setenv("AERIS_API_HOST", "192.168.1.1")
	t.Setenv("AERIS_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Database.URL != "/custom/path.db" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	// Setting a broker host via env implies ingestion should run.
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true after AERIS_MQTT_HOST")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if !cfg.API.Enabled {
		t.Error("API.Enabled = false, want true after AERIS_API_HOST")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestIsTruthy(t *testing.T) {
	truthy := []string{"1", "true", "TRUE", "yes", "on"}
	for _, v := range truthy {
		if !isTruthy(v) {
			t.Errorf("isTruthy(%q) = false, want true", v)
		}
	}

	falsy := []string{"0", "false", "no", "off", "banana"}
	for _, v := range falsy {
		if isTruthy(v) {
			t.Errorf("isTruthy(%q) = true, want false", v)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 3000 {
		t.Errorf("defaultConfig API.Port = %d, want 3000", cfg.API.Port)
	}

	// Both subsystems are opt-in.
	if cfg.MQTT.Enabled || cfg.API.Enabled {
		t.Error("defaultConfig should not enable mqtt or api")
	}
}
