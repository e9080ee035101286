package bridge

import (
	"encoding/json"
	"fmt"
	"sort"
)

// manufacturer is the vendor reported in discovery device groupings.
// All supported models are eQ-3 HomeMatic IP hardware.
const manufacturer = "eQ-3"

// DiscoveryConfig is one auto-configuration payload: the discovery topic
// and the structured payload describing a datapoint's topics and semantics.
type DiscoveryConfig struct {
	Topic   string
	Payload []byte
}

// deviceGrouping is the shared "device" object that groups all channels of
// one physical device into a single logical device at the consumer.
type deviceGrouping struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// discoveryPayload covers every component kind the engine emits. Fields are
// marshaled in struct order, so identical inputs always produce identical
// bytes. Omitted fields carry omitempty and vanish from the payload.
type discoveryPayload struct {
	AutomationType    string         `json:"automation_type,omitempty"`
	AvailabilityTopic string         `json:"availability_topic,omitempty"`
	CommandTopic      string         `json:"command_topic,omitempty"`
	Device            deviceGrouping `json:"device"`
	DeviceClass       string         `json:"device_class,omitempty"`
	Name              string         `json:"name,omitempty"`
	PayloadClose      string         `json:"payload_close,omitempty"`
	PayloadOff        string         `json:"payload_off,omitempty"`
	PayloadOn         string         `json:"payload_on,omitempty"`
	PayloadOpen       string         `json:"payload_open,omitempty"`
	PayloadStop       string         `json:"payload_stop,omitempty"`
	PositionClosed    *int           `json:"position_closed,omitempty"`
	PositionOpen      *int           `json:"position_open,omitempty"`
	PositionTopic     string         `json:"position_topic,omitempty"`
	SetPositionTopic  string         `json:"set_position_topic,omitempty"`
	StateTopic        string         `json:"state_topic,omitempty"`
	Subtype           string         `json:"subtype,omitempty"`
	Topic             string         `json:"topic,omitempty"`
	Type              string         `json:"type,omitempty"`
	UniqueID          string         `json:"unique_id,omitempty"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
}

// DiscoveryPublisher derives auto-configuration payloads from the registry.
//
// Generation is pure and deterministic: identical registry state always
// yields byte-identical configs in the same order, making republication
// after a broker restart safe and idempotent.
type DiscoveryPublisher struct {
	registry *Registry
	scheme   TopicScheme
}

// NewDiscoveryPublisher creates a publisher over the given registry.
func NewDiscoveryPublisher(registry *Registry, scheme TopicScheme) *DiscoveryPublisher {
	return &DiscoveryPublisher{registry: registry, scheme: scheme}
}

// Configs derives one DiscoveryConfig per exposed (readable) datapoint plus
// one per trigger-capable datapoint, sorted by topic.
func (p *DiscoveryPublisher) Configs() ([]DiscoveryConfig, error) {
	var out []DiscoveryConfig

	for _, ch := range p.registry.Channels() {
		grouping := groupingFor(ch.Device)

		for i := range ch.Role.Datapoints {
			dp := &ch.Role.Datapoints[i]
			if !dp.Readable {
				continue
			}

			cfg, err := p.datapointConfig(ch, dp, grouping)
			if err != nil {
				return nil, err
			}
			out = append(out, cfg)

			if dp.Trigger {
				cfg, err := p.triggerConfig(ch, dp, grouping)
				if err != nil {
					return nil, err
				}
				out = append(out, cfg)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}

// datapointConfig builds the state (and command) config for one datapoint.
func (p *DiscoveryPublisher) datapointConfig(ch *Channel, dp *DatapointSpec, grouping deviceGrouping) (DiscoveryConfig, error) {
	payload := discoveryPayload{
		AvailabilityTopic: p.scheme.Availability(ch.Address),
		Device:            grouping,
		DeviceClass:       dp.DeviceClass,
		Name:              displayName(ch, dp),
		StateTopic:        p.scheme.State(ch.Address, ch.Index, dp.Name),
		UniqueID:          p.uniqueID(ch, dp.Name),
		UnitOfMeasurement: dp.Unit,
	}

	switch dp.Component {
	case ComponentBinarySensor:
		payload.PayloadOn = payloadOn
		payload.PayloadOff = payloadOff

	case ComponentCover:
		// A cover is driven by its sibling action datapoint and positioned
		// by this one; the config stitches both together.
		closed, open := 0, 100
		payload.PayloadOpen = "open"
		payload.PayloadClose = "close"
		payload.PayloadStop = "stop"
		payload.PositionClosed = &closed
		payload.PositionOpen = &open
		payload.PositionTopic = payload.StateTopic
		payload.StateTopic = ""
		payload.SetPositionTopic = p.scheme.Command(ch.Address, ch.Index, dp.Name)
		if action, ok := ch.Role.Datapoint("action"); ok {
			payload.CommandTopic = p.scheme.Command(ch.Address, ch.Index, action.Name)
		}
	}

	if dp.Writable && dp.Component != ComponentCover {
		payload.CommandTopic = p.scheme.Command(ch.Address, ch.Index, dp.Name)
	}

	return p.marshal(dp.Component, ch, dp.Name, payload)
}

// triggerConfig builds the device-automation config for one trigger-capable
// datapoint.
func (p *DiscoveryPublisher) triggerConfig(ch *Channel, dp *DatapointSpec, grouping deviceGrouping) (DiscoveryConfig, error) {
	payload := discoveryPayload{
		AutomationType: "trigger",
		Device:         grouping,
		Subtype:        ch.Role.Name,
		Topic:          p.scheme.Trigger(ch.Address, ch.Index, dp.Name),
		Type:           fmt.Sprintf("%s_changed", dp.Name),
	}

	return p.marshal(ComponentTrigger, ch, dp.Name+"-trigger", payload)
}

func (p *DiscoveryPublisher) marshal(component string, ch *Channel, object string, payload discoveryPayload) (DiscoveryConfig, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return DiscoveryConfig{}, fmt.Errorf("marshaling discovery config for %s:%d/%s: %w", ch.Address, ch.Index, object, err)
	}

	return DiscoveryConfig{
		Topic:   p.scheme.Discovery(component, ch.Address, ch.Index, object),
		Payload: data,
	}, nil
}

func (p *DiscoveryPublisher) uniqueID(ch *Channel, datapoint string) string {
	return fmt.Sprintf("%s-%s-%d-%s", p.scheme.Namespace, ch.Address, ch.Index, datapoint)
}

func groupingFor(dev *Device) deviceGrouping {
	return deviceGrouping{
		Identifiers:  []string{dev.Address},
		Manufacturer: manufacturer,
		Model:        dev.Model,
		Name:         fmt.Sprintf("%s_%s", dev.Model, dev.Address),
		SWVersion:    dev.Firmware,
	}
}

func displayName(ch *Channel, dp *DatapointSpec) string {
	return fmt.Sprintf("%s %s:%d %s", ch.Device.Model, ch.Address, ch.Index, dp.Name)
}
