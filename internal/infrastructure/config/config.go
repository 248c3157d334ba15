package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the command engine.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Account   AccountConfig   `yaml:"account"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	REST      RESTConfig      `yaml:"rest"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Engine    EngineConfig    `yaml:"engine"`
}

// AccountConfig identifies the cloud account this engine publishes for.
type AccountConfig struct {
	ID    string `yaml:"id"`
	Topic string `yaml:"topic"` // account-level MQTT topic, e.g. "GA/account-id"
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the cloud channel.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// RESTConfig contains REST polling channel settings.
type RESTConfig struct {
	BaseURL      string `yaml:"base_url"`
	PollInterval int    `yaml:"poll_interval"` // seconds between snapshot polls
	Timeout      int    `yaml:"timeout"`       // per-request timeout in seconds
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket event feed settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for state history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EngineConfig contains protocol engine tuning parameters.
type EngineConfig struct {
	// FrameSize is the fixed binary frame length including the checksum byte.
	FrameSize int `yaml:"frame_size"`

	// HistoryDepth is the bounded per-state undo stack capacity.
	HistoryDepth int `yaml:"history_depth"`

	// CommandTTL is how long a published command stays pending before the
	// expiry sweep removes it (seconds).
	CommandTTL int `yaml:"command_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GOVEE_SECTION_KEY
// For example: GOVEE_DATABASE_PATH, GOVEE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/govee.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     8883,
				TLS:      true,
				ClientID: "govee-engine",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		REST: RESTConfig{
			BaseURL:      "https://app2.govee.com",
			PollInterval: 30,
			Timeout:      10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Engine: EngineConfig{
			FrameSize:    20,
			HistoryDepth: 5,
			CommandTTL:   30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GOVEE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Account
	if v := os.Getenv("GOVEE_ACCOUNT_ID"); v != "" {
		cfg.Account.ID = v
	}
	if v := os.Getenv("GOVEE_ACCOUNT_TOPIC"); v != "" {
		cfg.Account.Topic = v
	}

	// Database
	if v := os.Getenv("GOVEE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GOVEE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GOVEE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GOVEE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// REST
	if v := os.Getenv("GOVEE_REST_BASE_URL"); v != "" {
		cfg.REST.BaseURL = v
	}

	// InfluxDB
	if v := os.Getenv("GOVEE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Account.Topic == "" {
		errs = append(errs, "account.topic is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.REST.PollInterval < 1 {
		errs = append(errs, "rest.poll_interval must be at least 1 second")
	}

	// The frame carries at least an opcode byte plus the checksum byte.
	const minFrameSize = 2
	if c.Engine.FrameSize < minFrameSize {
		errs = append(errs, "engine.frame_size must be at least 2")
	}
	if c.Engine.HistoryDepth < 1 {
		errs = append(errs, "engine.history_depth must be at least 1")
	}
	if c.Engine.CommandTTL < 1 {
		errs = append(errs, "engine.command_ttl must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// CommandTTL returns the pending command TTL as a Duration.
func (c *Config) CommandTTL() time.Duration {
	return time.Duration(c.Engine.CommandTTL) * time.Second
}

// PollInterval returns the REST polling interval as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.REST.PollInterval) * time.Second
}

// RESTTimeout returns the per-request REST timeout as a Duration.
func (c *Config) RESTTimeout() time.Duration {
	return time.Duration(c.REST.Timeout) * time.Second
}
