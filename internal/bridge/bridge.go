package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/airlink-home/airlink-core/internal/gateway"
	"github.com/airlink-home/airlink-core/internal/infrastructure/mqtt"
	"github.com/airlink-home/airlink-core/internal/purifier"
)

// Bridge operation constants.
const (
	// commandTimeout bounds command execution, including the engine's
	// retries and the confirming refresh.
	commandTimeout = 30 * time.Second

	// commandQoS is the QoS level for command subscriptions and acks.
	commandQoS = 1
)

// Bridge exposes the purifier engine over MQTT. It handles:
//   - Receiving commands on device command topics and dispatching them
//     to the engine
//   - Publishing retained state updates when snapshots change
//   - Publishing per-device availability and periodic bridge health
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bridgeID string
	mqtt     MQTTClient
	engine   StatusEngine
	health   *HealthReporter
	topics   mqtt.Topics

	// Last published state per device, for change suppression.
	lastState  map[string]purifier.StatusSnapshot
	lastAvail  map[string]string
	suppressMu sync.Mutex

	// Shutdown coordination
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger Logger
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// StatusEngine is the bridge's view of the purifier engine.
type StatusEngine interface {
	GetSnapshot(ctx context.Context, id string, forceRefresh bool) (purifier.StatusSnapshot, error)
	Refresh(ctx context.Context, id string) (purifier.StatusSnapshot, error)
	SetPower(ctx context.Context, id string, on bool) error
	SetMode(ctx context.Context, id string, mode purifier.Mode) error
	SetFanPercent(ctx context.Context, id string, percent int) error
	Sessions() []purifier.SessionInfo
	Stats() purifier.Stats
}

// Logger defines the logging interface for the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	// BridgeID identifies this bridge instance in health messages.
	BridgeID string

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Engine is the purifier engine the bridge fronts.
	Engine StatusEngine

	// Version is the software version reported in health messages.
	Version string

	// HealthInterval is how often health is published. Default 30s.
	HealthInterval time.Duration

	// Logger is optional structured logger.
	Logger Logger
}

// New creates a bridge instance. Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, errors.New("bridge: MQTT client is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("bridge: engine is required")
	}
	if opts.BridgeID == "" {
		opts.BridgeID = "airlink"
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		bridgeID:  opts.BridgeID,
		mqtt:      opts.MQTTClient,
		engine:    opts.Engine,
		lastState: make(map[string]purifier.StatusSnapshot),
		lastAvail: make(map[string]string),
		ctx:       ctx,
		ctxCancel: cancel,
		logger:    logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.BridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Engine:    opts.Engine,
	})
	b.health.SetLogger(logger)

	return b, nil
}

// Start subscribes to command topics and begins health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	commandTopic := b.topics.AllDeviceCommands()
	if err := b.mqtt.Subscribe(commandTopic, commandQoS, b.handleCommandMessage); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", commandTopic)

	b.health.Start(ctx)

	b.logger.Info("bridge started", "bridge_id", b.bridgeID)
	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.health.Stop()
		b.logger.Info("bridge stopped")
	})
}

// HandleStatus publishes a device's new snapshot as retained state, with
// change suppression, plus availability transitions. Wire it to the
// engine's status callback.
func (b *Bridge) HandleStatus(deviceID string, snap purifier.StatusSnapshot) {
	avail := AvailabilityOnline
	if snap.Source == purifier.SourceSafeDefault {
		avail = AvailabilityOffline
	}

	b.suppressMu.Lock()
	prev, seen := b.lastState[deviceID]
	stateChanged := !seen || !statesEqual(prev, snap)
	if stateChanged {
		b.lastState[deviceID] = snap
	}
	availChanged := b.lastAvail[deviceID] != avail
	if availChanged {
		b.lastAvail[deviceID] = avail
	}
	b.suppressMu.Unlock()

	if availChanged {
		topic := b.topics.DeviceAvailability(deviceID)
		if err := b.mqtt.Publish(topic, []byte(avail), commandQoS, true); err != nil {
			b.logger.Error("publishing availability failed", "device_id", deviceID, "error", err)
		}
	}

	if !stateChanged {
		return
	}

	msg := StateMessage{
		DeviceID:  deviceID,
		Timestamp: snap.UpdatedAt,
		State:     snap,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling state failed", "device_id", deviceID, "error", err)
		return
	}

	topic := b.topics.DeviceState(deviceID)
	if err := b.mqtt.Publish(topic, payload, commandQoS, true); err != nil {
		b.logger.Error("publishing state failed", "device_id", deviceID, "error", err)
		return
	}
	b.logger.Debug("state published", "device_id", deviceID, "source", snap.Source)
}

// handleCommandMessage decodes and dispatches one command message.
func (b *Bridge) handleCommandMessage(topic string, payload []byte) error {
	deviceID := mqtt.DeviceIDFromTopic(topic)
	if deviceID == "" {
		b.logger.Warn("command on unrecognised topic", "topic", topic)
		return nil
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("malformed command payload", "topic", topic, "error", err)
		b.publishAck(deviceID, "", AckFailed, &AckError{
			Code:    ErrCodeInvalidCommand,
			Message: "payload is not valid JSON",
		})
		return nil
	}

	b.logger.Info("received command",
		"command_id", cmd.ID,
		"device_id", deviceID,
		"command", cmd.Command,
	)

	b.publishAck(deviceID, cmd.ID, AckAccepted, nil)

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := b.executeCommand(ctx, deviceID, cmd); err != nil {
		b.publishAck(deviceID, cmd.ID, AckFailed, ackError(err))
		b.logger.Warn("command failed",
			"command_id", cmd.ID,
			"device_id", deviceID,
			"command", cmd.Command,
			"error", err,
		)
		return nil
	}

	b.publishAck(deviceID, cmd.ID, AckApplied, nil)
	return nil
}

// executeCommand dispatches one command to the engine.
func (b *Bridge) executeCommand(ctx context.Context, deviceID string, cmd CommandMessage) error {
	switch cmd.Command {
	case "on":
		return b.engine.SetPower(ctx, deviceID, true)
	case "off":
		return b.engine.SetPower(ctx, deviceID, false)
	case "set_mode":
		mode, ok := cmd.Parameters["mode"].(string)
		if !ok {
			return fmt.Errorf("%s: missing 'mode' parameter", ErrCodeInvalidParameters)
		}
		return b.engine.SetMode(ctx, deviceID, purifier.Mode(mode))
	case "set_fan":
		percent, ok := cmd.Parameters["percent"].(float64)
		if !ok {
			return fmt.Errorf("%s: missing 'percent' parameter", ErrCodeInvalidParameters)
		}
		return b.engine.SetFanPercent(ctx, deviceID, int(percent))
	case "refresh":
		_, err := b.engine.Refresh(ctx, deviceID)
		return err
	default:
		return fmt.Errorf("%s: unknown command %q", ErrCodeInvalidCommand, cmd.Command)
	}
}

// publishAck sends a command acknowledgment.
func (b *Bridge) publishAck(deviceID, commandID string, status AckStatus, ackErr *AckError) {
	msg := AckMessage{
		CommandID: commandID,
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Status:    status,
		Error:     ackErr,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling ack failed", "device_id", deviceID, "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.DeviceAck(deviceID), payload, commandQoS, false); err != nil {
		b.logger.Error("publishing ack failed", "device_id", deviceID, "error", err)
	}
}

// ackError maps an engine error to an ack error payload.
func ackError(err error) *AckError {
	code := ErrCodeBridgeError
	switch {
	case errors.Is(err, purifier.ErrNotFound):
		code = ErrCodeNotConfigured
	case errors.Is(err, purifier.ErrInvalidMode),
		errors.Is(err, purifier.ErrInvalidFanPercent):
		code = ErrCodeInvalidParameters
	default:
		var fault *gateway.Fault
		if errors.As(err, &fault) {
			code = ErrCodeDeviceUnreachable
		}
	}
	return &AckError{Code: code, Message: err.Error()}
}

// statesEqual compares two snapshots ignoring the timestamp, so an
// unchanged device does not republish identical retained state every poll.
func statesEqual(a, b purifier.StatusSnapshot) bool {
	if a.Power != b.Power ||
		a.Mode != b.Mode ||
		a.FanPercent != b.FanPercent ||
		a.FilterMainPercent != b.FilterMainPercent ||
		a.FilterWickPercent != b.FilterWickPercent ||
		a.FilterChangeRequired != b.FilterChangeRequired ||
		a.Temperature != b.Temperature ||
		a.Humidity != b.Humidity ||
		a.Source != b.Source {
		return false
	}
	if (a.AirQuality == nil) != (b.AirQuality == nil) {
		return false
	}
	if a.AirQuality != nil && *a.AirQuality != *b.AirQuality {
		return false
	}
	return true
}
