package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for hmqtt.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HomeMatic HomeMaticConfig `yaml:"homematic"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
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

// HomeMaticConfig contains CCU connection settings.
type HomeMaticConfig struct {
	// Address is the XML-RPC endpoint of the CCU interface process,
	// e.g. "http://ccu.local:2010". Required.
	Address string `yaml:"address"`

	// Listen configures the local callback server the CCU connects back to.
	Listen HomeMaticListenConfig `yaml:"listen"`

	// InterfaceID identifies this bridge towards the CCU.
	// The CCU echoes it on every callback; mismatching callbacks are dropped.
	InterfaceID string `yaml:"interface_id"`
}

// HomeMaticListenConfig contains callback server listen settings.
type HomeMaticListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BridgeConfig contains translation engine settings.
type BridgeConfig struct {
	// Namespace is the root of all state/command topics.
	Namespace string `yaml:"namespace"`

	// DiscoveryNamespace is the root of auto-discovery config topics.
	DiscoveryNamespace string `yaml:"discovery_namespace"`

	// EventQueueSize bounds the controller event queue.
	EventQueueSize int `yaml:"event_queue_size"`

	// CommandQueueSize bounds the inbound command queue.
	CommandQueueSize int `yaml:"command_queue_size"`
}

// RecorderConfig contains inventory/event recorder settings.
type RecorderConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HMQTT_SECTION_KEY
// For example: HMQTT_MQTT_HOST, HMQTT_HOMEMATIC_ADDRESS
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hmqtt",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		HomeMatic: HomeMaticConfig{
			Listen: HomeMaticListenConfig{
				Host: "0.0.0.0",
				Port: 0,
			},
			InterfaceID: "hmqtt",
		},
		Bridge: BridgeConfig{
			Namespace:          "homematic",
			DiscoveryNamespace: "homeassistant",
			EventQueueSize:     256,
			CommandQueueSize:   64,
		},
		Recorder: RecorderConfig{
			Database: DatabaseConfig{
				Path:        "./data/hmqtt.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HMQTT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("HMQTT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HMQTT_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("HMQTT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HMQTT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// HomeMatic
	if v := os.Getenv("HMQTT_HOMEMATIC_ADDRESS"); v != "" {
		cfg.HomeMatic.Address = v
	}
	if v := os.Getenv("HMQTT_HOMEMATIC_LISTEN_HOST"); v != "" {
		cfg.HomeMatic.Listen.Host = v
	}

	// Recorder
	if v := os.Getenv("HMQTT_DATABASE_PATH"); v != "" {
		cfg.Recorder.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("HMQTT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	// HomeMatic validation
	if c.HomeMatic.Address == "" {
		errs = append(errs, "homematic.address is required (set HMQTT_HOMEMATIC_ADDRESS environment variable)")
	}
	if c.HomeMatic.InterfaceID == "" {
		errs = append(errs, "homematic.interface_id is required")
	}

	// Bridge validation
	if c.Bridge.Namespace == "" {
		errs = append(errs, "bridge.namespace is required")
	}
	if strings.ContainsAny(c.Bridge.Namespace, "+#/") {
		errs = append(errs, "bridge.namespace must be a single topic level (no '/', '+' or '#')")
	}
	if c.Bridge.DiscoveryNamespace == "" {
		errs = append(errs, "bridge.discovery_namespace is required")
	}
	if c.Bridge.EventQueueSize < 1 {
		errs = append(errs, "bridge.event_queue_size must be positive")
	}
	if c.Bridge.CommandQueueSize < 1 {
		errs = append(errs, "bridge.command_queue_size must be positive")
	}

	// Recorder validation
	if c.Recorder.Enabled && c.Recorder.Database.Path == "" {
		errs = append(errs, "recorder.database.path is required when recorder is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
