package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
bridge:
  id: "test-bridge"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
gateway:
  interpreter: "python3"
  script_dir: "/opt/airlink/scripts"
devices:
  - id: "purifier-1"
    name: "Living Room"
    address: "192.168.1.50"
    transport: "coaps"
    poll_interval: 30
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

	if cfg.Bridge.ID != "test-bridge" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "test-bridge")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.Gateway.ScriptDir != "/opt/airlink/scripts" {
		t.Errorf("Gateway.ScriptDir = %q, want %q", cfg.Gateway.ScriptDir, "/opt/airlink/scripts")
	}

	// Script names come from defaults when not specified
	if cfg.Gateway.StatusScript != "get_status.py" {
		t.Errorf("Gateway.StatusScript = %q, want default %q", cfg.Gateway.StatusScript, "get_status.py")
	}

	if len(cfg.Devices) != 1 {
		t.Fatalf("len(Devices) = %d, want 1", len(cfg.Devices))
	}

	if cfg.Devices[0].Address != "192.168.1.50" {
		t.Errorf("Devices[0].Address = %q, want %q", cfg.Devices[0].Address, "192.168.1.50")
	}

	if cfg.Devices[0].Transport != "coaps" {
		t.Errorf("Devices[0].Transport = %q, want %q", cfg.Devices[0].Transport, "coaps")
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
	content := `
bridge:
  id: ""
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty bridge.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	validGateway := GatewayConfig{
		Interpreter:  "python3",
		ScriptDir:    "/opt/scripts",
		StatusScript: "get_status.py",
		SetScript:    "set_value.py",
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Bridge:   BridgeConfig{ID: "airlink-core"},
				Database: DatabaseConfig{Path: "/data/airlink.db"},
				MQTT: MQTTConfig{
					Broker: MQTTBrokerConfig{Port: 1883},
					QoS:    1,
				},
				Gateway: validGateway,
			},
			wantErr: false,
		},
		{
			name: "missing bridge ID",
			config: &Config{
				Bridge:   BridgeConfig{ID: ""},
				Database: DatabaseConfig{Path: "/data/airlink.db"},
				MQTT:     MQTTConfig{Broker: MQTTBrokerConfig{Port: 1883}, QoS: 1},
				Gateway:  validGateway,
			},
			wantErr: true,
		},
		{
			name: "missing database path",
			config: &Config{
				Bridge:   BridgeConfig{ID: "airlink-core"},
				Database: DatabaseConfig{Path: ""},
				MQTT:     MQTTConfig{Broker: MQTTBrokerConfig{Port: 1883}, QoS: 1},
				Gateway:  validGateway,
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			config: &Config{
				Bridge:   BridgeConfig{ID: "airlink-core"},
				Database: DatabaseConfig{Path: "/data/airlink.db"},
				MQTT:     MQTTConfig{Broker: MQTTBrokerConfig{Port: 1883}, QoS: 3},
				Gateway:  validGateway,
			},
			wantErr: true,
		},
		{
			name: "invalid broker port",
			config: &Config{
				Bridge:   BridgeConfig{ID: "airlink-core"},
				Database: DatabaseConfig{Path: "/data/airlink.db"},
				MQTT:     MQTTConfig{Broker: MQTTBrokerConfig{Port: 70000}, QoS: 1},
				Gateway:  validGateway,
			},
			wantErr: true,
		},
		{
			name: "missing interpreter",
			config: &Config{
				Bridge:   BridgeConfig{ID: "airlink-core"},
				Database: DatabaseConfig{Path: "/data/airlink.db"},
				MQTT:     MQTTConfig{Broker: MQTTBrokerConfig{Port: 1883}, QoS: 1},
				Gateway: GatewayConfig{
					ScriptDir:    "/opt/scripts",
					StatusScript: "get_status.py",
					SetScript:    "set_value.py",
				},
			},
			wantErr: true,
		},
		{
			name: "missing set script",
			config: &Config{
				Bridge:   BridgeConfig{ID: "airlink-core"},
				Database: DatabaseConfig{Path: "/data/airlink.db"},
				MQTT:     MQTTConfig{Broker: MQTTBrokerConfig{Port: 1883}, QoS: 1},
				Gateway: GatewayConfig{
					Interpreter:  "python3",
					ScriptDir:    "/opt/scripts",
					StatusScript: "get_status.py",
				},
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

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("AIRLINK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("AIRLINK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("AIRLINK_MQTT_USERNAME", "testuser")
	t.Setenv("AIRLINK_MQTT_PASSWORD", "testpass")
	t.Setenv("AIRLINK_GATEWAY_INTERPRETER", "/usr/local/bin/python3")
	t.Setenv("AIRLINK_GATEWAY_SCRIPT_DIR", "/custom/scripts")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.Gateway.Interpreter != "/usr/local/bin/python3" {
		t.Errorf("Gateway.Interpreter = %q, want %q", cfg.Gateway.Interpreter, "/usr/local/bin/python3")
	}

	if cfg.Gateway.ScriptDir != "/custom/scripts" {
		t.Errorf("Gateway.ScriptDir = %q, want %q", cfg.Gateway.ScriptDir, "/custom/scripts")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Bridge.ID == "" {
		t.Error("defaultConfig should have non-empty Bridge.ID")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.Gateway.Interpreter != "python3" {
		t.Errorf("defaultConfig Gateway.Interpreter = %q, want %q", cfg.Gateway.Interpreter, "python3")
	}
}
