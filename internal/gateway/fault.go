package gateway

import (
	"fmt"
	"strings"
)

// FaultKind classifies a gateway call failure.
type FaultKind string

const (
	// FaultTimeout means the per-call deadline expired before the script
	// produced a result.
	FaultTimeout FaultKind = "timeout"

	// FaultConnectionFailure means the interpreter process could not be
	// launched at all.
	FaultConnectionFailure FaultKind = "connection_failure"

	// FaultDeviceReported means the script ran but returned an
	// {"error": ...} payload from the device transport layer.
	FaultDeviceReported FaultKind = "device_reported"

	// FaultMalformedResponse means stdout was not a single parseable
	// JSON object.
	FaultMalformedResponse FaultKind = "malformed_response"
)

// transientSubstrings mark device-reported errors that originate in the
// transport rather than the device itself. These justify a retry.
var transientSubstrings = []string{
	"timeout",
	"timed out",
	"connection refused",
	"no route to host",
	"broken pipe",
	"network is unreachable",
	"connection reset",
}

// Fault is the error type for all gateway call failures.
type Fault struct {
	// Kind classifies the failure.
	Kind FaultKind

	// Message is the human-readable detail, e.g. the script's error string.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (f *Fault) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("gateway: %s: %s", f.Kind, f.Message)
	}
	if f.Err != nil {
		return fmt.Sprintf("gateway: %s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("gateway: %s", f.Kind)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Retryable reports whether retrying the call could plausibly succeed.
// Timeouts and launch failures are always worth retrying. Device-reported
// errors are retried only when the message looks like a transport failure.
// Malformed responses are never retried: the payload will not improve.
func (f *Fault) Retryable() bool {
	switch f.Kind {
	case FaultTimeout, FaultConnectionFailure:
		return true
	case FaultDeviceReported:
		msg := strings.ToLower(f.Message)
		for _, s := range transientSubstrings {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
