// Airlink Core - Air Purifier Polling & Resilience Bridge
//
// This is the main entry point for the Airlink Core application.
// Airlink Core keeps a fleet of networked air purifiers observable and
// controllable over MQTT:
//   - Periodic status polling with retry and circuit breaking
//   - Safe-default presentation when a device is unreachable
//   - Command dispatch (power, mode, fan) with acknowledgments
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/airlink-home/airlink-core/migrations"

	"github.com/airlink-home/airlink-core/internal/bridge"
	"github.com/airlink-home/airlink-core/internal/gateway"
	"github.com/airlink-home/airlink-core/internal/infrastructure/config"
	"github.com/airlink-home/airlink-core/internal/infrastructure/database"
	"github.com/airlink-home/airlink-core/internal/infrastructure/logging"
	"github.com/airlink-home/airlink-core/internal/infrastructure/mqtt"
	"github.com/airlink-home/airlink-core/internal/purifier"
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
	log.Info("starting Airlink Core",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
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
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Create the script gateway
	gw, err := gateway.New(gateway.Config{
		Interpreter:  cfg.Gateway.Interpreter,
		ScriptDir:    cfg.Gateway.ScriptDir,
		StatusScript: cfg.Gateway.StatusScript,
		SetScript:    cfg.Gateway.SetScript,
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	gw.SetLogger(log)
	log.Info("script gateway ready",
		"interpreter", cfg.Gateway.Interpreter,
		"script_dir", cfg.Gateway.ScriptDir,
	)

	// Create the purifier engine
	engine := purifier.NewEngine(gw)
	engine.SetLogger(log)
	engine.SetRepository(purifier.NewSQLiteRepository(db.DB))
	defer func() {
		log.Info("stopping purifier engine")
		if closeErr := engine.Close(); closeErr != nil {
			log.Error("error closing engine", "error", closeErr)
		}
	}()

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Start the MQTT bridge
	mqttBridge, err := startBridge(ctx, cfg, engine, mqttClient, log)
	if err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		mqttBridge.Stop()
	}()

	// Register configured devices. Registration starts each device's
	// polling session, so this happens after the bridge is receiving
	// status callbacks.
	if regErr := registerDevices(ctx, cfg, engine, log); regErr != nil {
		return fmt.Errorf("registering devices: %w", regErr)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Bridge (publishes stopping status)
	// 2. MQTT
	// 3. Engine (tears down polling sessions)
	// 4. Database

	log.Info("Airlink Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AIRLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AIRLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startBridge wires the engine to the MQTT presentation surface.
func startBridge(ctx context.Context, cfg *config.Config, engine *purifier.Engine, mqttClient *mqtt.Client, log *logging.Logger) (*bridge.Bridge, error) {
	b, err := bridge.New(bridge.Options{
		BridgeID:   cfg.Bridge.ID,
		MQTTClient: mqttClient,
		Engine:     engine,
		Version:    version,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	// Every snapshot the engine produces flows to MQTT. Must be wired
	// before any device is registered.
	engine.OnStatus(b.HandleStatus)

	if err := b.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting bridge: %w", err)
	}
	log.Info("bridge started", "bridge_id", cfg.Bridge.ID)

	return b, nil
}

// registerDevices registers every device from the configuration file.
// A single bad device entry aborts startup rather than silently running
// a partial fleet.
func registerDevices(ctx context.Context, cfg *config.Config, engine *purifier.Engine, log *logging.Logger) error {
	for _, dev := range cfg.Devices {
		id, err := engine.RegisterDevice(ctx, deviceConfig(dev))
		if err != nil {
			return fmt.Errorf("device %q (%s): %w", dev.Name, dev.Address, err)
		}
		log.Info("device registered",
			"device_id", id,
			"name", dev.Name,
			"address", dev.Address,
		)
	}
	log.Info("device registration complete", "devices", len(cfg.Devices))
	return nil
}

// deviceConfig converts a YAML device entry to an engine device config.
func deviceConfig(dev config.DeviceConfig) purifier.DeviceConfig {
	return purifier.DeviceConfig{
		ID:                    dev.ID,
		Name:                  dev.Name,
		Address:               dev.Address,
		Transport:             purifier.Transport(dev.Transport),
		PollInterval:          time.Duration(dev.PollIntervalSeconds) * time.Second,
		Timeout:               time.Duration(dev.TimeoutMillis) * time.Millisecond,
		MaxRetries:            dev.MaxRetries,
		DisablePollingOnError: dev.DisablePollingOnError,
	}
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}
