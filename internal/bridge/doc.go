// Package bridge implements the device-model translation engine of hmqtt.
//
// This package translates between a HomeMatic CCU's event/command protocol
// and MQTT so that auto-discovering consumers can observe device state and
// issue commands without speaking XML-RPC.
//
// # Architecture
//
// The engine sits between two collaborators it never talks to directly:
//
//	┌─────────────────┐  RawEvent / Command  ┌─────────────────┐
//	│  HomeMatic CCU  │◄────────────────────►│  Bridge Engine  │◄──► MQTT Broker
//	│  (XML-RPC)      │                      │   (this pkg)    │
//	└─────────────────┘                      └─────────────────┘
//
// # Key Responsibilities
//
//   - Classify raw parameter events by device type and channel
//   - Normalize raw values into typed domain values (reject out-of-domain)
//   - Maintain last-known state per (address, channel, datapoint)
//   - Emit one-shot trigger publications on value transitions
//   - Translate inbound command messages into controller set-value calls
//   - Generate deterministic discovery configs for auto-configuration
//
// # Device Models
//
// Supported models form a closed descriptor set: the HmIP-BROLL shutter
// actuator, the HmIP-SRH window handle, and the HmIP-SWSD smoke alarm.
// Adding a model means adding one descriptor, never changing control flow.
//
// # Topic Scheme
//
// State topics follow <namespace>/<address>/<channel>/<datapoint>; command
// topics append "/set"; trigger topics append "/trigger". Discovery configs
// go to <discovery-namespace>/<component>/<address>_<channel>/<object>/config.
//
// # Thread Safety
//
// The state cache has a single writer (the event loop). Registry and
// discovery generation are safe for concurrent readers. Bridge methods are
// safe for concurrent use.
package bridge
