package purifier

import "time"

// PowerState is the normalized power state of a purifier.
type PowerState string

const (
	PowerOn  PowerState = "on"
	PowerOff PowerState = "off"
)

// Mode is the normalized operating mode.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
	ModeSleep  Mode = "sleep"

	// ModeUnknown marks a mode letter the device sent that we do not
	// recognise. Presentation layers treat it as auto.
	ModeUnknown Mode = "unknown"
)

// Transport selects the device protocol variant.
type Transport string

const (
	// TransportCoAP is plain CoAP.
	TransportCoAP Transport = "coap"

	// TransportCoAPS is encrypted CoAP.
	TransportCoAPS Transport = "coaps"
)

// SnapshotSource records where a snapshot's values came from.
type SnapshotSource string

const (
	// SourceLive means the snapshot was normalized from a device payload.
	SourceLive SnapshotSource = "live"

	// SourceSafeDefault means the device was unreachable and the snapshot
	// carries neutral placeholder values.
	SourceSafeDefault SnapshotSource = "safe_default"
)

// StatusSnapshot is the normalized, presentation-ready view of a purifier.
// Snapshots are immutable values: a session installs a complete new
// snapshot atomically, never mutates one in place.
type StatusSnapshot struct {
	// Power is the normalized power state.
	Power PowerState `json:"power"`

	// Mode is the normalized operating mode.
	Mode Mode `json:"mode"`

	// FanPercent is the fan speed as a percentage (0 when off, 10 in
	// sleep mode, 33/67/100 for manual steps).
	FanPercent int `json:"fan_percent"`

	// AirQuality is the indoor air quality index (1 = best).
	// Nil when the device has never reported one.
	AirQuality *int `json:"air_quality,omitempty"`

	// FilterMainPercent is the remaining life of the active filter, 0-100.
	FilterMainPercent int `json:"filter_main_percent"`

	// FilterWickPercent is the remaining life of the wick filter, 0-100.
	FilterWickPercent int `json:"filter_wick_percent"`

	// FilterChangeRequired is set when the active filter's life drops
	// below the change threshold.
	FilterChangeRequired bool `json:"filter_change_required"`

	// Temperature is the ambient temperature in degrees Celsius.
	Temperature float64 `json:"temperature"`

	// Humidity is the relative humidity percentage.
	Humidity float64 `json:"humidity"`

	// Source records whether this is live device data or the safe default.
	Source SnapshotSource `json:"source"`

	// UpdatedAt is when this snapshot was produced.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns an independent copy of the snapshot.
// Pointer fields are duplicated so the copy shares nothing with the original.
func (s StatusSnapshot) Clone() StatusSnapshot {
	cpy := s
	if s.AirQuality != nil {
		v := *s.AirQuality
		cpy.AirQuality = &v
	}
	return cpy
}

// HealthStatus is the persisted reachability state of a device.
type HealthStatus string

const (
	HealthOnline  HealthStatus = "online"
	HealthOffline HealthStatus = "offline"
	HealthUnknown HealthStatus = "unknown"
)

// DeviceConfig describes one purifier to poll.
type DeviceConfig struct {
	// ID uniquely identifies the device. Generated when empty.
	ID string `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Address is the device's network address.
	Address string `json:"address"`

	// Transport is the protocol variant to use.
	Transport Transport `json:"transport"`

	// PollInterval is how often the device is polled.
	// Defaults to 30s; values below 5s fail validation.
	PollInterval time.Duration `json:"poll_interval"`

	// Timeout bounds each individual gateway call. Defaults to 30s.
	Timeout time.Duration `json:"timeout"`

	// MaxRetries is the number of extra attempts after a failed gateway
	// call. Nil takes the default of 2; 0 disables retries.
	MaxRetries *int `json:"max_retries,omitempty"`

	// DisablePollingOnError suspends polling after repeated consecutive
	// failures. Recovery is via the on-demand probe.
	DisablePollingOnError bool `json:"disable_polling_on_error"`
}

// SessionInfo is a point-in-time view of one device session's health.
type SessionInfo struct {
	DeviceID          string        `json:"device_id"`
	Name              string        `json:"name"`
	Address           string        `json:"address"`
	Transport         Transport     `json:"transport"`
	PollInterval      time.Duration `json:"poll_interval"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
	PollingSuspended  bool          `json:"polling_suspended"`
	InFlight          bool          `json:"in_flight"`
	LastSuccess       time.Time     `json:"last_success,omitzero"`
	LastError         string        `json:"last_error,omitempty"`
}

// Stats aggregates counters across all sessions.
type Stats struct {
	Devices       int    `json:"devices"`
	Suspended     int    `json:"suspended"`
	TotalPolls    uint64 `json:"total_polls"`
	TotalFailures uint64 `json:"total_failures"`
}
