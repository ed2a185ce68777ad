package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Airlink Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Logging  LoggingConfig  `yaml:"logging"`
	Devices  []DeviceConfig `yaml:"devices"`
}

// BridgeConfig identifies this bridge instance.
type BridgeConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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

// GatewayConfig contains settings for the external device-control process.
//
// The gateway shells out to small control scripts that speak the purifier's
// wire protocol. Airlink itself never opens a CoAP socket; every status read
// and every command goes through one bounded-lifetime script invocation.
type GatewayConfig struct {
	// Interpreter is the executable used to run the control scripts.
	// Default: "python3"
	Interpreter string `yaml:"interpreter"`

	// ScriptDir is the directory containing the control scripts.
	ScriptDir string `yaml:"script_dir"`

	// StatusScript is the script that fetches the full device status.
	// Invoked as: <interpreter> <script> <address> <transport>
	// Default: "get_status.py"
	StatusScript string `yaml:"status_script"`

	// SetScript is the script that writes a single device field.
	// Invoked as: <interpreter> <script> <address> <transport> <field> <value>
	// Default: "set_value.py"
	SetScript string `yaml:"set_script"`
}

// DeviceConfig describes one purifier to register at startup.
//
// These are plain YAML values; full validation (interval floor, transport
// selector, timeout ranges) happens at registration time in the engine, so
// an invalid device entry fails loudly instead of being silently defaulted.
type DeviceConfig struct {
	ID                    string `yaml:"id"`
	Name                  string `yaml:"name"`
	Address               string `yaml:"address"`
	Transport             string `yaml:"transport"`
	PollIntervalSeconds   int    `yaml:"poll_interval"`
	TimeoutMillis         int    `yaml:"timeout_ms"`
	MaxRetries            *int   `yaml:"max_retries"`
	DisablePollingOnError bool   `yaml:"disable_polling_on_error"`
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
// Environment variables follow the pattern: AIRLINK_SECTION_KEY
// For example: AIRLINK_DATABASE_PATH, AIRLINK_MQTT_HOST
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
		Bridge: BridgeConfig{
			ID:       "airlink-core",
			Name:     "Airlink",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/airlink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "airlink-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Gateway: GatewayConfig{
			Interpreter:  "python3",
			ScriptDir:    "./scripts",
			StatusScript: "get_status.py",
			SetScript:    "set_value.py",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AIRLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("AIRLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("AIRLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AIRLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AIRLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Gateway
	if v := os.Getenv("AIRLINK_GATEWAY_INTERPRETER"); v != "" {
		cfg.Gateway.Interpreter = v
	}
	if v := os.Getenv("AIRLINK_GATEWAY_SCRIPT_DIR"); v != "" {
		cfg.Gateway.ScriptDir = v
	}
}

// Validate checks the configuration for errors.
//
// Device entries are deliberately not validated here; the engine validates
// each one at registration so a bad device fails registration with a precise
// error instead of failing config load wholesale.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Bridge validation
	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	// Gateway validation
	if c.Gateway.Interpreter == "" {
		errs = append(errs, "gateway.interpreter is required")
	}
	if c.Gateway.ScriptDir == "" {
		errs = append(errs, "gateway.script_dir is required")
	}
	if c.Gateway.StatusScript == "" {
		errs = append(errs, "gateway.status_script is required")
	}
	if c.Gateway.SetScript == "" {
		errs = append(errs, "gateway.set_script is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetBusyTimeout returns the database busy timeout as a Duration.
func (c *Config) GetBusyTimeout() time.Duration {
	return time.Duration(c.Database.BusyTimeout) * time.Second
}
