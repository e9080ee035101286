package bridge

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Discovery component kinds.
const (
	ComponentSensor       = "sensor"
	ComponentBinarySensor = "binary_sensor"
	ComponentCover        = "cover"
	ComponentTrigger      = "device_automation"
)

// Payload strings for boolean datapoints.
const (
	payloadOn  = "ON"
	payloadOff = "OFF"
)

// DomainKind classifies a datapoint's value domain.
type DomainKind int

const (
	// DomainBoolean accepts raw booleans, encoded as ON/OFF.
	DomainBoolean DomainKind = iota

	// DomainEnum accepts raw integer codes mapped to text labels.
	DomainEnum

	// DomainNumeric accepts raw floats on [RawMin, RawMax], scaled to a
	// bounded integer range for publication.
	DomainNumeric
)

// ValueDomain declares the set of values a datapoint may hold.
// Out-of-domain values are rejected, never coerced.
type ValueDomain struct {
	Kind DomainKind

	// Codes maps raw controller codes to normalized labels (enum only).
	Codes map[int]string

	// RawMin/RawMax bound the raw controller value (numeric only).
	RawMin, RawMax float64

	// Scale multiplies the raw value into the published range (numeric
	// only). A raw 0..1 level with Scale 100 publishes as 0–100.
	Scale float64
}

// ActionCall is the controller call an enum action label expands to.
// Action datapoints are write-only verbs (open/close/stop) whose labels
// map directly onto raw (parameter, value) pairs.
type ActionCall struct {
	Parameter string
	Value     any
}

// DatapointSpec declares one named, typed value within a channel role.
type DatapointSpec struct {
	// Name is the normalized datapoint name used in topics (e.g. "level").
	Name string

	// Parameter is the raw controller parameter it maps to (e.g. "LEVEL").
	// Empty for action datapoints, which expand per-label via Actions.
	Parameter string

	Domain ValueDomain

	// Readable datapoints publish retained state and get a discovery config.
	Readable bool

	// Writable datapoints accept commands on their /set topic.
	Writable bool

	// Trigger datapoints additionally emit a one-shot trigger publication
	// on every observed transition between known values.
	Trigger bool

	// Actions maps command payloads to controller calls (write-only verbs).
	// Non-nil Actions implies Writable and supersedes Domain for commands.
	Actions map[string]ActionCall

	// Discovery shape.
	Component   string
	DeviceClass string
	Unit        string
}

// ChannelRole is one functional sub-unit of a device model.
type ChannelRole struct {
	// Index is the controller-assigned channel number.
	Index int

	// Name describes the role (used in discovery display names).
	Name string

	Datapoints []DatapointSpec
}

// DeviceTypeDescriptor is the static definition of one device model:
// its channels, datapoints, value semantics, and discovery shape.
//
// Descriptors are pure, immutable values. Supporting a new physical model
// means adding one descriptor here, never modifying the engine's control
// flow.
type DeviceTypeDescriptor struct {
	Model    string
	Channels []ChannelRole
}

// Role returns the channel role for the given index.
func (d *DeviceTypeDescriptor) Role(index int) (*ChannelRole, bool) {
	for i := range d.Channels {
		if d.Channels[i].Index == index {
			return &d.Channels[i], true
		}
	}
	return nil, false
}

// Datapoint returns the datapoint spec with the given normalized name.
func (r *ChannelRole) Datapoint(name string) (*DatapointSpec, bool) {
	for i := range r.Datapoints {
		if r.Datapoints[i].Name == name {
			return &r.Datapoints[i], true
		}
	}
	return nil, false
}

// DatapointByParameter returns the datapoint spec mapped to the given raw
// controller parameter.
func (r *ChannelRole) DatapointByParameter(parameter string) (*DatapointSpec, bool) {
	for i := range r.Datapoints {
		if r.Datapoints[i].Parameter == parameter {
			return &r.Datapoints[i], true
		}
	}
	return nil, false
}

// Normalize validates a raw controller value against the domain and maps it
// to its normalized form: bool for boolean, text label for enum, scaled int
// for numeric.
//
// Returns ErrDomainViolation (wrapped) for values outside the domain.
func (d *DatapointSpec) Normalize(raw any) (any, error) {
	switch d.Domain.Kind {
	case DomainBoolean:
		v, ok := rawBool(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects boolean, got %v (%T)", ErrDomainViolation, d.Name, raw, raw)
		}
		return v, nil

	case DomainEnum:
		code, ok := rawInt(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects integer code, got %T", ErrDomainViolation, d.Name, raw)
		}
		label, ok := d.Domain.Codes[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no code %d", ErrDomainViolation, d.Name, code)
		}
		return label, nil

	case DomainNumeric:
		v, ok := rawFloat(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects number, got %T", ErrDomainViolation, d.Name, raw)
		}
		if v < d.Domain.RawMin || v > d.Domain.RawMax {
			return nil, fmt.Errorf("%w: %s raw value %v outside [%v, %v]",
				ErrDomainViolation, d.Name, v, d.Domain.RawMin, d.Domain.RawMax)
		}
		return int(math.Round(v * d.Domain.Scale)), nil
	}

	return nil, fmt.Errorf("%w: %s has unknown domain kind", ErrDomainViolation, d.Name)
}

// Encode renders a normalized value as an MQTT payload.
func (d *DatapointSpec) Encode(value any) []byte {
	switch v := value.(type) {
	case bool:
		if v {
			return []byte(payloadOn)
		}
		return []byte(payloadOff)
	case string:
		return []byte(v)
	case int:
		return []byte(strconv.Itoa(v))
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}

// DecodeCommand parses an inbound command payload into the raw controller
// call for this datapoint.
//
// Action datapoints match the payload against their action labels. Numeric
// datapoints parse the payload as a number in the published range and scale
// it back to the raw range. Boolean datapoints accept ON/OFF (any case).
//
// Returns ErrDomainViolation for undecodable or out-of-domain payloads.
func (d *DatapointSpec) DecodeCommand(payload []byte) (parameter string, value any, err error) {
	text := strings.TrimSpace(string(payload))

	if d.Actions != nil {
		call, ok := d.Actions[text]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q is not a valid %s action", ErrDomainViolation, text, d.Name)
		}
		return call.Parameter, call.Value, nil
	}

	switch d.Domain.Kind {
	case DomainBoolean:
		switch strings.ToUpper(text) {
		case payloadOn:
			return d.Parameter, true, nil
		case payloadOff:
			return d.Parameter, false, nil
		}
		return "", nil, fmt.Errorf("%w: %q is not a valid %s payload", ErrDomainViolation, text, d.Name)

	case DomainEnum:
		for code, label := range d.Domain.Codes {
			if label == text {
				return d.Parameter, code, nil
			}
		}
		return "", nil, fmt.Errorf("%w: %q is not a valid %s label", ErrDomainViolation, text, d.Name)

	case DomainNumeric:
		v, parseErr := strconv.ParseFloat(text, 64)
		if parseErr != nil {
			return "", nil, fmt.Errorf("%w: %q is not a number", ErrDomainViolation, text)
		}
		low := d.Domain.RawMin * d.Domain.Scale
		high := d.Domain.RawMax * d.Domain.Scale
		if v < low || v > high {
			return "", nil, fmt.Errorf("%w: %s value %v outside [%v, %v]", ErrDomainViolation, d.Name, v, low, high)
		}
		return d.Parameter, v / d.Domain.Scale, nil
	}

	return "", nil, fmt.Errorf("%w: %s has unknown domain kind", ErrDomainViolation, d.Name)
}

// rawBool accepts the boolean encodings the XML-RPC layer may deliver.
// The CCU reports some boolean parameters (ALARM among them) as integer
// status codes, so 0 and 1 decode alongside true booleans.
func rawBool(raw any) (bool, bool) {
	if v, ok := raw.(bool); ok {
		return v, true
	}
	if code, ok := rawInt(raw); ok {
		switch code {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	}
	return false, false
}

// rawInt accepts the integer encodings the XML-RPC layer may deliver.
func rawInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

// rawFloat accepts the numeric encodings the XML-RPC layer may deliver.
func rawFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Descriptors is the closed set of supported device models.
//
// Channel indices and raw parameters follow the models' controller-side
// layout: the shutter actuator is driven on its virtual receiver channel,
// the window handle and smoke alarm report on channel 1, and low-battery
// lives on the maintenance channel 0.
var Descriptors = map[string]*DeviceTypeDescriptor{
	"HmIP-BROLL": {
		Model: "HmIP-BROLL",
		Channels: []ChannelRole{
			{
				Index: 4,
				Name:  "shutter",
				Datapoints: []DatapointSpec{
					{
						Name:      "level",
						Parameter: "LEVEL",
						Domain: ValueDomain{
							Kind:   DomainNumeric,
							RawMin: 0, RawMax: 1,
							Scale: 100,
						},
						Readable:    true,
						Writable:    true,
						Component:   ComponentCover,
						DeviceClass: "shutter",
						Unit:        "%",
					},
					{
						Name:     "action",
						Writable: true,
						Actions: map[string]ActionCall{
							"open":  {Parameter: "LEVEL", Value: 1.0},
							"close": {Parameter: "LEVEL", Value: 0.0},
							"stop":  {Parameter: "STOP", Value: true},
						},
						Component: ComponentCover,
					},
				},
			},
		},
	},
	"HmIP-SRH": {
		Model: "HmIP-SRH",
		Channels: []ChannelRole{
			{
				Index: 1,
				Name:  "handle",
				Datapoints: []DatapointSpec{
					{
						Name:      "state",
						Parameter: "STATE",
						Domain: ValueDomain{
							Kind: DomainEnum,
							Codes: map[int]string{
								0: "closed",
								1: "tilted",
								2: "open",
							},
						},
						Readable:  true,
						Trigger:   true,
						Component: ComponentSensor,
					},
				},
			},
		},
	},
	"HmIP-SWSD": {
		Model: "HmIP-SWSD",
		Channels: []ChannelRole{
			{
				Index: 0,
				Name:  "maintenance",
				Datapoints: []DatapointSpec{
					{
						Name:        "low_battery",
						Parameter:   "LOW_BAT",
						Domain:      ValueDomain{Kind: DomainBoolean},
						Readable:    true,
						Component:   ComponentBinarySensor,
						DeviceClass: "battery",
					},
				},
			},
			{
				Index: 1,
				Name:  "smoke",
				Datapoints: []DatapointSpec{
					{
						Name:        "alarm",
						Parameter:   "ALARM",
						Domain:      ValueDomain{Kind: DomainBoolean},
						Readable:    true,
						Trigger:     true,
						Component:   ComponentBinarySensor,
						DeviceClass: "smoke",
					},
				},
			},
		},
	},
}

// DescriptorFor returns the descriptor for a model name.
//
// Returns ErrUnknownModel for models outside the supported set.
func DescriptorFor(model string) (*DeviceTypeDescriptor, error) {
	d, ok := Descriptors[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return d, nil
}
