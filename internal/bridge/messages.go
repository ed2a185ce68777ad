package bridge

import (
	"time"

	"github.com/airlink-home/airlink-core/internal/purifier"
)

// MQTT message types for the presentation-facing surface of the bridge.

// CommandMessage is received on a device's command topic.
// Topic: airlink/command/purifier/{device_id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acks.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Command is the command name: "on", "off", "set_mode", "set_fan",
	// "refresh".
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"mode": "sleep"} for set_mode
	//   {"percent": 67} for set_fan
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	Source string `json:"source,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was received and handed to the
	// device session.
	AckAccepted AckStatus = "accepted"

	// AckApplied indicates the device confirmed the write.
	AckApplied AckStatus = "applied"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is published on a device's ack topic in response to a command.
// Topic: airlink/ack/purifier/{device_id}
type AckMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgment was sent (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the device the command addressed.
	DeviceID string `json:"device_id"`

	// Status indicates the acknowledgment status.
	Status AckStatus `json:"status"`

	// Error contains details if status is "failed".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	// Code is the error code (e.g., "DEVICE_UNREACHABLE").
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage carries a device's normalized snapshot.
// Topic: airlink/state/purifier/{device_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// DeviceID is the device identifier.
	DeviceID string `json:"device_id"`

	// Timestamp is when the snapshot was produced (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// State is the normalized snapshot.
	State purifier.StatusSnapshot `json:"state"`
}

// Availability values for the per-device availability topic.
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// BridgeStatus represents the operational status of the bridge.
type BridgeStatus string

const (
	// StatusHealthy indicates the bridge is operating normally.
	StatusHealthy BridgeStatus = "healthy"

	// StatusDegraded indicates some device sessions are suspended.
	StatusDegraded BridgeStatus = "degraded"

	// StatusStarting indicates the bridge is starting up.
	StatusStarting BridgeStatus = "starting"

	// StatusStopping indicates the bridge is shutting down.
	StatusStopping BridgeStatus = "stopping"
)

// HealthMessage reports bridge operational status.
// Topic: airlink/health/bridge
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier.
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status BridgeStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// DevicesManaged is the number of registered devices.
	DevicesManaged int `json:"devices_managed"`

	// DevicesSuspended is the number of sessions with polling suspended.
	DevicesSuspended int `json:"devices_suspended"`

	// TotalPolls is the number of poll cycles completed since start.
	TotalPolls uint64 `json:"total_polls"`

	// TotalFailures is the number of failed poll cycles since start.
	TotalFailures uint64 `json:"total_failures"`

	// Reason explains the status (especially for degraded).
	Reason string `json:"reason,omitempty"`
}
