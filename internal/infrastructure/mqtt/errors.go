package mqtt

import "errors"

// Sentinel errors for the rig's broker link. Callers match them with
// errors.Is; the mqttbus connector maps ErrNotConnected onto its own
// not-open state.
var (
	ErrNotConnected      = errors.New("mqtt: client not connected")
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topics before they reach paho.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
