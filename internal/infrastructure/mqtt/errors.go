package mqtt

import "errors"

// Sentinel errors for broker operations. Callers match them with
// errors.Is; the health reporter treats ErrNotConnected as the degraded
// state rather than a fault.
var (
	// ErrNotConnected means the client has no live broker session.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed initial connect, including
	// hitting the connect timeout.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps broker-side publish failures and publish
	// acknowledgement timeouts.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps broker-side subscribe failures. The
	// subscription is not tracked for restore when this is returned.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps broker-side unsubscribe failures.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels above 2 before they reach the
	// broker.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topic strings.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
