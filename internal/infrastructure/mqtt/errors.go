package mqtt

import "errors"

// Sentinel errors for broker operations. The bridge matches these with
// errors.Is to decide between retrying and dropping: a state publication
// that hits ErrNotConnected is safe to drop because republish() restores
// retained topics on the next connect, while a failed command subscription
// at startup is fatal.
var (
	// ErrNotConnected is returned while the broker link is down. Paho
	// reconnects in the background; callers should not retry themselves.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed initial connect. Startup aborts
	// on this; auto-reconnect only covers links that were up once.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps broker-side publish rejections and timeouts.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps a rejected or timed-out subscription.
	// The failed filter is removed from the restore set.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS rejects QoS levels outside 0..2 before they reach paho.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topics.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
