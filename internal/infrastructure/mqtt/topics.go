package mqtt

import "fmt"

// TopicPrefixSystem is the base for the bridge's own lifecycle topics.
// Device state, command, and discovery topics are owned by the translation
// engine (internal/bridge) and configured via bridge.namespace; the system
// prefix is fixed so monitoring tooling always finds the bridge status.
const TopicPrefixSystem = "hmqtt/system"

// Topics provides builders for hmqtt's own MQTT topics.
type Topics struct{}

// SystemStatus returns the bridge status topic used for LWT and
// online/offline announcements.
//
// Example: hmqtt/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
