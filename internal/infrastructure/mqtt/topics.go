package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Airlink MQTT surface.
//
// All device topics use the flat scheme: airlink/{category}/purifier/{device_id}
// This keeps one predictable hierarchy for every subscriber.
const (
	// TopicPrefix is the base for all Airlink topics.
	TopicPrefix = "airlink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "airlink/system"

	// deviceKind is the device class segment used in device topics.
	// Airlink currently bridges a single device class.
	deviceKind = "purifier"
)

// Topics provides builders for Airlink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("living-room-purifier")
//	// Returns: "airlink/state/purifier/living-room-purifier"
type Topics struct{}

// DeviceState returns the topic for normalized device state updates.
//
// Example: airlink/state/purifier/living-room-purifier
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, deviceKind, deviceID)
}

// DeviceCommand returns the topic commands for a device arrive on.
//
// Example: airlink/command/purifier/living-room-purifier
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, deviceKind, deviceID)
}

// DeviceAck returns the topic for command acknowledgements.
//
// Example: airlink/ack/purifier/living-room-purifier
func (Topics) DeviceAck(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, deviceKind, deviceID)
}

// DeviceAvailability returns the topic carrying per-device reachability.
//
// Example: airlink/availability/purifier/living-room-purifier
func (Topics) DeviceAvailability(deviceID string) string {
	return fmt.Sprintf("%s/availability/%s/%s", TopicPrefix, deviceKind, deviceID)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: airlink/health/bridge
func (Topics) BridgeHealth() string {
	return fmt.Sprintf("%s/health/bridge", TopicPrefix)
}

// SystemStatus returns the system status topic.
// Used for online/offline announcements and the LWT message.
//
// Example: airlink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceCommands returns a wildcard matching every device command topic.
//
// Example: airlink/command/purifier/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, deviceKind)
}

// AllDeviceStates returns a wildcard matching every device state topic.
//
// Example: airlink/state/purifier/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, deviceKind)
}

// AllTopics returns a wildcard matching every Airlink topic.
// Intended for debugging and monitoring tools.
//
// Example: airlink/#
func (Topics) AllTopics() string {
	return fmt.Sprintf("%s/#", TopicPrefix)
}

// DeviceIDFromTopic extracts the device ID from a device-scoped topic.
// Returns "" if the topic does not follow the flat device scheme.
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != deviceTopicParts {
		return ""
	}
	if parts[0] != TopicPrefix || parts[2] != deviceKind {
		return ""
	}
	return parts[3]
}

// deviceTopicParts is the segment count of a flat device topic:
// airlink/{category}/purifier/{device_id}
const deviceTopicParts = 4
