package bridge

import (
	"fmt"
	"sort"
	"sync"
)

// DeviceInfo is one entry of the controller's device inventory:
// a physical device's address, model name, and optional firmware version.
type DeviceInfo struct {
	Address  string
	Model    string
	Firmware string
}

// Device is a registered physical device bound to its descriptor.
type Device struct {
	Address    string
	Model      string
	Firmware   string
	Descriptor *DeviceTypeDescriptor
}

// Channel is one functional sub-unit of a registered device.
// Immutable after registration until the device is removed.
type Channel struct {
	Address string
	Index   int
	Role    *ChannelRole
	Device  *Device
}

// Target identifies the (address, channel, datapoint) a command topic
// resolves to. The reverse index guarantees exactly one target per topic.
type Target struct {
	Address   string
	Channel   int
	Datapoint string
}

type channelKey struct {
	address string
	index   int
}

// Registry holds the set of known physical devices, built from the
// controller's inventory at startup. It feeds both translators and the
// discovery publisher.
//
// Thread Safety: safe for concurrent use. Registration replaces the whole
// membership atomically; lookups never observe a half-built index.
type Registry struct {
	scheme TopicScheme

	mu          sync.RWMutex
	devices     map[string]*Device
	channels    map[channelKey]*Channel
	reverse     map[string]Target
	unsupported map[string]string // address -> model
}

// NewRegistry creates an empty registry deriving topics from the scheme.
func NewRegistry(scheme TopicScheme) *Registry {
	return &Registry{
		scheme:      scheme,
		devices:     make(map[string]*Device),
		channels:    make(map[channelKey]*Channel),
		reverse:     make(map[string]Target),
		unsupported: make(map[string]string),
	}
}

// Register populates the registry from a device inventory, replacing any
// previous membership. The reverse lookup index is rebuilt as part of the
// same operation.
//
// Devices whose model has no descriptor are recorded as unsupported and
// excluded from publication; they are not fatal. An empty inventory returns
// ErrEmptyInventory. Two datapoints deriving the same command topic return
// ErrTopicConflict and leave the previous membership untouched.
func (r *Registry) Register(inventory []DeviceInfo) error {
	if len(inventory) == 0 {
		return ErrEmptyInventory
	}

	devices := make(map[string]*Device)
	channels := make(map[channelKey]*Channel)
	reverse := make(map[string]Target)
	unsupported := make(map[string]string)

	for _, info := range inventory {
		desc, err := DescriptorFor(info.Model)
		if err != nil {
			unsupported[info.Address] = info.Model
			continue
		}

		dev := &Device{
			Address:    info.Address,
			Model:      info.Model,
			Firmware:   info.Firmware,
			Descriptor: desc,
		}
		devices[info.Address] = dev

		for i := range desc.Channels {
			role := &desc.Channels[i]
			ch := &Channel{
				Address: info.Address,
				Index:   role.Index,
				Role:    role,
				Device:  dev,
			}
			channels[channelKey{info.Address, role.Index}] = ch

			for j := range role.Datapoints {
				dp := &role.Datapoints[j]
				if !dp.Writable {
					continue
				}
				topic := r.scheme.Command(info.Address, role.Index, dp.Name)
				if prev, exists := reverse[topic]; exists {
					return fmt.Errorf("%w: %s maps to both %s:%d/%s and %s:%d/%s",
						ErrTopicConflict, topic,
						prev.Address, prev.Channel, prev.Datapoint,
						info.Address, role.Index, dp.Name)
				}
				reverse[topic] = Target{
					Address:   info.Address,
					Channel:   role.Index,
					Datapoint: dp.Name,
				}
			}
		}
	}

	if len(devices) == 0 && len(unsupported) == len(inventory) {
		// Nothing registrable; startup should fail loudly rather than
		// bridge an empty set.
		return fmt.Errorf("%w: all %d devices unsupported", ErrEmptyInventory, len(inventory))
	}

	r.mu.Lock()
	r.devices = devices
	r.channels = channels
	r.reverse = reverse
	r.unsupported = unsupported
	r.mu.Unlock()

	return nil
}

// Lookup returns the registered channel for (address, index).
func (r *Registry) Lookup(address string, index int) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[channelKey{address, index}]
	return ch, ok
}

// LookupDevice returns the registered device for an address.
func (r *Registry) LookupDevice(address string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[address]
	return dev, ok
}

// ReverseLookup resolves a command topic to its unique target.
func (r *Registry) ReverseLookup(topic string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.reverse[topic]
	return t, ok
}

// Devices returns all registered devices sorted by address.
func (r *Registry) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Device, 0, len(r.devices))
	for _, dev := range r.devices {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Channels returns all registered channels sorted by (address, index).
func (r *Registry) Channels() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Unsupported returns address -> model for inventory entries whose model
// has no descriptor. Callers log these as warnings at registration.
func (r *Registry) Unsupported() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.unsupported))
	for k, v := range r.unsupported {
		out[k] = v
	}
	return out
}

// DeviceCount returns the number of registered (supported) devices.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
