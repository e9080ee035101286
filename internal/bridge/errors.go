package bridge

import "errors"

// Sentinel errors for the translation engine.
//
// Translation failures are logged and dropped by the caller, never fatal.
// Check with errors.Is():
//
//	if errors.Is(err, bridge.ErrDomainViolation) {
//	    // reject the value, keep running
//	}
var (
	// ErrUnknownChannel indicates an event or command references an
	// address+channel that is not registered.
	ErrUnknownChannel = errors.New("bridge: unknown channel")

	// ErrDomainViolation indicates a value outside the datapoint's declared
	// range or enumeration. Out-of-domain values are rejected, not coerced.
	ErrDomainViolation = errors.New("bridge: value outside datapoint domain")

	// ErrUnresolvedTopic indicates a command topic with no reverse mapping.
	ErrUnresolvedTopic = errors.New("bridge: unresolved command topic")

	// ErrControllerCall indicates a set-value call to the controller failed.
	// Surfaced to the caller, not retried automatically.
	ErrControllerCall = errors.New("bridge: controller call failed")

	// ErrTopicConflict indicates two registered datapoints derived the same
	// command topic. Registration is rejected rather than silently
	// overwriting one mapping.
	ErrTopicConflict = errors.New("bridge: command topic conflict")

	// ErrUnknownModel indicates a device model with no descriptor.
	// Unsupported devices are excluded from publication, not fatal.
	ErrUnknownModel = errors.New("bridge: unknown device model")

	// ErrEmptyInventory indicates registration was attempted with no devices.
	// Fatal at startup: a bridge with nothing to bridge is misconfigured.
	ErrEmptyInventory = errors.New("bridge: empty device inventory")
)
