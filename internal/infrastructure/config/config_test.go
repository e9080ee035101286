package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "hmqtt-test"
  qos: 1
homematic:
  address: "http://ccu.local:2010"
  listen:
    host: "0.0.0.0"
    port: 9292
bridge:
  namespace: "homematic"
  discovery_namespace: "homeassistant"
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

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}

	if cfg.HomeMatic.Address != "http://ccu.local:2010" {
		t.Errorf("HomeMatic.Address = %q, want %q", cfg.HomeMatic.Address, "http://ccu.local:2010")
	}

	if cfg.HomeMatic.Listen.Port != 9292 {
		t.Errorf("HomeMatic.Listen.Port = %d, want %d", cfg.HomeMatic.Listen.Port, 9292)
	}

	// Defaults survive partial files
	if cfg.Bridge.EventQueueSize != 256 {
		t.Errorf("Bridge.EventQueueSize = %d, want default %d", cfg.Bridge.EventQueueSize, 256)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
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
	// Missing homematic.address must fail validation
	content := `
mqtt:
  broker:
    host: "localhost"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for missing homematic.address, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
homematic:
  address: "http://ccu.local:2010"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("HMQTT_MQTT_HOST", "env-broker")
	t.Setenv("HMQTT_MQTT_PORT", "8883")
	t.Setenv("HMQTT_HOMEMATIC_ADDRESS", "http://ccu2.local:2010")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env override %q", cfg.MQTT.Broker.Host, "env-broker")
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want env override %d", cfg.MQTT.Broker.Port, 8883)
	}
	if cfg.HomeMatic.Address != "http://ccu2.local:2010" {
		t.Errorf("HomeMatic.Address = %q, want env override %q", cfg.HomeMatic.Address, "http://ccu2.local:2010")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.HomeMatic.Address = "http://ccu.local:2010"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "missing broker host",
			mutate:  func(c *Config) { c.MQTT.Broker.Host = "" },
			wantErr: true,
		},
		{
			name:    "missing homematic address",
			mutate:  func(c *Config) { c.HomeMatic.Address = "" },
			wantErr: true,
		},
		{
			name:    "namespace with slash",
			mutate:  func(c *Config) { c.Bridge.Namespace = "home/matic" },
			wantErr: true,
		},
		{
			name:    "namespace with wildcard",
			mutate:  func(c *Config) { c.Bridge.Namespace = "homematic+" },
			wantErr: true,
		},
		{
			name:    "zero event queue",
			mutate:  func(c *Config) { c.Bridge.EventQueueSize = 0 },
			wantErr: true,
		},
		{
			name: "recorder enabled without path",
			mutate: func(c *Config) {
				c.Recorder.Enabled = true
				c.Recorder.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
