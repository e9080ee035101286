package bridge

import (
	"fmt"
	"time"
)

// Raw controller parameters handled outside descriptor datapoints.
const (
	// paramUnreach is the maintenance-channel reachability flag.
	paramUnreach = "UNREACH"

	// maintenanceChannel is the channel every device reports UNREACH on.
	maintenanceChannel = 0

	// availabilityDatapoint is the reserved cache key reachability is
	// deduped under. No descriptor datapoint may use this name.
	availabilityDatapoint = "availability"
)

// Availability payloads.
const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// RawEvent is one parameter-change notification from the controller:
// address, channel, raw parameter name, new raw value, timestamp.
type RawEvent struct {
	Address   string
	Channel   int
	Parameter string
	Value     any
	Time      time.Time
}

// Publication is one outbound MQTT message produced by translation.
type Publication struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// EventTranslator converts raw parameter-change notifications into
// publishable messages, updating the state cache along the way.
//
// It is the sole writer of the state cache; Translate must only be called
// from the event loop.
type EventTranslator struct {
	registry *Registry
	cache    *StateCache
	scheme   TopicScheme
}

// NewEventTranslator creates a translator over the given registry and cache.
func NewEventTranslator(registry *Registry, cache *StateCache, scheme TopicScheme) *EventTranslator {
	return &EventTranslator{
		registry: registry,
		cache:    cache,
		scheme:   scheme,
	}
}

// Translate processes one raw event and returns the publications it yields.
//
// Events for unregistered devices or channels fail with ErrUnknownChannel.
// Values outside the datapoint's declared domain fail with
// ErrDomainViolation. Parameters no descriptor datapoint maps (duty cycle,
// config pending, ...) are dropped silently. Repeated identical values
// yield no publications.
//
// A transition on a trigger-capable datapoint additionally yields a
// non-retained trigger publication, but only between known values: the
// first observation after startup never fires one.
func (t *EventTranslator) Translate(raw RawEvent) ([]Publication, error) {
	dev, ok := t.registry.LookupDevice(raw.Address)
	if !ok {
		return nil, fmt.Errorf("%w: %s:%d", ErrUnknownChannel, raw.Address, raw.Channel)
	}

	// Reachability is a device-level concern every model shares, reported
	// on the maintenance channel outside descriptor datapoints.
	if raw.Channel == maintenanceChannel && raw.Parameter == paramUnreach {
		return t.translateAvailability(dev, raw)
	}

	ch, ok := t.registry.Lookup(raw.Address, raw.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s:%d", ErrUnknownChannel, raw.Address, raw.Channel)
	}

	dp, ok := ch.Role.DatapointByParameter(raw.Parameter)
	if !ok {
		// Parameter exists on the device but carries nothing we expose.
		return nil, nil
	}

	value, err := dp.Normalize(raw.Value)
	if err != nil {
		return nil, fmt.Errorf("%s:%d %s: %w", raw.Address, raw.Channel, raw.Parameter, err)
	}

	_, transitioned, known := t.cache.Apply(raw.Address, raw.Channel, dp.Name, value, raw.Time)
	if !transitioned {
		return nil, nil
	}

	payload := dp.Encode(value)
	pubs := []Publication{{
		Topic:    t.scheme.State(raw.Address, raw.Channel, dp.Name),
		Payload:  payload,
		Retained: true,
	}}

	if dp.Trigger && known {
		pubs = append(pubs, Publication{
			Topic:    t.scheme.Trigger(raw.Address, raw.Channel, dp.Name),
			Payload:  payload,
			Retained: false,
		})
	}

	return pubs, nil
}

// translateAvailability maps an UNREACH flag to the device's retained
// availability topic. Repeated identical flags yield nothing.
func (t *EventTranslator) translateAvailability(dev *Device, raw RawEvent) ([]Publication, error) {
	unreach, ok := rawBool(raw.Value)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects boolean, got %v (%T)", ErrDomainViolation, paramUnreach, raw.Value, raw.Value)
	}

	_, transitioned, _ := t.cache.Apply(raw.Address, maintenanceChannel, availabilityDatapoint, !unreach, raw.Time)
	if !transitioned {
		return nil, nil
	}

	payload := payloadOnline
	if unreach {
		payload = payloadOffline
	}

	return []Publication{{
		Topic:    t.scheme.Availability(dev.Address),
		Payload:  []byte(payload),
		Retained: true,
	}}, nil
}
