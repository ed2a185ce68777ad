package gateway

import (
	"encoding/json"
	"math"
	"strconv"
)

// RawStatus is the decoded device status payload. Every field is optional:
// devices send sparse updates, and a malformed value degrades to absent
// rather than failing the whole payload.
type RawStatus struct {
	// Power is "1" (on) or "0" (off).
	Power *string

	// Mode is the operating mode letter: A (auto), M (manual), S (sleep).
	Mode *string

	// FanSpeed is the manual fan step "1".."3", or "s" in sleep mode.
	FanSpeed *string

	// AirQuality is the indoor air quality index (1 = best).
	AirQuality *int

	// FilterMain is the remaining life of the active filter, in days.
	// This counter drives the change-required indicator.
	FilterMain *int

	// FilterWick is the remaining life of the wick filter, in days.
	FilterWick *int

	// Temperature is the ambient temperature in degrees Celsius.
	Temperature *float64

	// Humidity is the relative humidity percentage.
	Humidity *float64
}

// decodeStatus parses a status payload from script stdout.
// An {"error": ...} payload becomes a DeviceReported fault. Anything that is
// not a JSON object becomes a MalformedResponse fault.
func decodeStatus(data []byte) (*RawStatus, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	return &RawStatus{
		Power:       stringField(fields, "pwr"),
		Mode:        stringField(fields, "mode"),
		FanSpeed:    stringField(fields, "om"),
		AirQuality:  intField(fields, "iaql"),
		FilterMain:  intField(fields, "fltsts0"),
		FilterWick:  intField(fields, "fltsts1"),
		Temperature: floatField(fields, "temp"),
		Humidity:    floatField(fields, "rh"),
	}, nil
}

// decodeObject unmarshals stdout into a JSON object and surfaces an
// embedded error string as a DeviceReported fault.
func decodeObject(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &Fault{
			Kind:    FaultMalformedResponse,
			Message: "stdout is not a JSON object",
			Err:     err,
		}
	}

	if msg, ok := fields["error"].(string); ok {
		return nil, &Fault{Kind: FaultDeviceReported, Message: msg}
	}

	return fields, nil
}

// stringField extracts a string-valued field, stringifying JSON numbers.
// Devices are inconsistent about quoting numeric values.
func stringField(fields map[string]any, key string) *string {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return &t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	}
	return nil
}

// intField extracts an integer field, accepting JSON numbers and numeric
// strings. Non-numeric values degrade to absent.
func intField(fields map[string]any, key string) *int {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		n := int(math.Round(t))
		return &n
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// floatField extracts a float field, accepting JSON numbers and numeric
// strings. Non-numeric values degrade to absent.
func floatField(fields map[string]any, key string) *float64 {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}
