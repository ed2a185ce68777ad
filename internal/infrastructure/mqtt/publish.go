package mqtt

import "fmt"

// maxPayloadSize caps outbound payloads at 1MB. Device snapshots are a
// few hundred bytes; anything near this limit is a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends a payload to the broker and waits for the
// acknowledgement appropriate to the QoS level.
//
// Retained publishes are how device state and availability reach late
// subscribers: the broker holds the last payload per topic, so a
// dashboard that connects an hour later still sees every purifier's
// current snapshot. Command acks are published unretained because they
// are events, not state.
//
//	topic := mqtt.Topics{}.DeviceState("bedroom")
//	err := client.Publish(topic, snapshot, 1, true)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
