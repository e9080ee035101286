package bridge

import "fmt"

// Topic suffixes owned by the scheme.
const (
	commandSuffix = "/set"
	triggerSuffix = "/trigger"
)

// TopicScheme derives every MQTT topic the engine publishes or subscribes to.
//
// State topics follow <namespace>/<address>/<channel>/<datapoint>. Command
// topics append "/set", trigger topics append "/trigger". Discovery topics
// follow <discovery-namespace>/<component>/<address>_<channel>/<object>/config.
// Availability is per physical device: <namespace>/<address>/availability.
//
// The scheme is a pure value; two schemes with equal namespaces derive
// identical topics for identical inputs.
type TopicScheme struct {
	// Namespace is the root of all state/command topics (e.g. "homematic").
	Namespace string

	// DiscoveryNamespace is the root consumers watch for auto-configuration
	// payloads (e.g. "homeassistant").
	DiscoveryNamespace string
}

// State returns the retained state topic for a datapoint.
//
// Example: homematic/00123ABC456DEF/4/level
func (s TopicScheme) State(address string, channel int, datapoint string) string {
	return fmt.Sprintf("%s/%s/%d/%s", s.Namespace, address, channel, datapoint)
}

// Command returns the command topic for a writable datapoint.
//
// Example: homematic/00123ABC456DEF/4/level/set
func (s TopicScheme) Command(address string, channel int, datapoint string) string {
	return s.State(address, channel, datapoint) + commandSuffix
}

// Trigger returns the one-shot trigger topic for a trigger-capable datapoint.
// Trigger publications are never retained.
//
// Example: homematic/00ABCDEF123456/1/state/trigger
func (s TopicScheme) Trigger(address string, channel int, datapoint string) string {
	return s.State(address, channel, datapoint) + triggerSuffix
}

// Availability returns the retained per-device availability topic.
//
// Example: homematic/00123ABC456DEF/availability
func (s TopicScheme) Availability(address string) string {
	return fmt.Sprintf("%s/%s/availability", s.Namespace, address)
}

// Discovery returns the discovery config topic for one object of a channel.
// The object is usually a datapoint name, or "<datapoint>-trigger" for
// trigger configs.
//
// Example: homeassistant/cover/00123ABC456DEF_4/level/config
func (s TopicScheme) Discovery(component, address string, channel int, object string) string {
	return fmt.Sprintf("%s/%s/%s_%d/%s/config", s.DiscoveryNamespace, component, address, channel, object)
}

// CommandFilter returns the wildcard subscription covering every command
// topic the scheme can derive.
//
// Example: homematic/+/+/+/set
func (s TopicScheme) CommandFilter() string {
	return fmt.Sprintf("%s/+/+/+%s", s.Namespace, commandSuffix)
}
