package homematic

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceDescription is one entry of the CCU's device list, as delivered by
// listDevices and newDevices. Parent entries describe physical devices;
// child entries describe their channels.
type DeviceDescription struct {
	Address    string
	Type       string
	Parent     string
	ParentType string
	Index      int
	Firmware   string
	Children   []string
}

// descriptionFromMap converts a decoded XML-RPC struct into a description.
// Unknown members are ignored; the CCU sends many more than we consume.
func descriptionFromMap(m map[string]any) DeviceDescription {
	d := DeviceDescription{}
	if s, ok := m["ADDRESS"].(string); ok {
		d.Address = s
	}
	if s, ok := m["TYPE"].(string); ok {
		d.Type = s
	}
	if s, ok := m["PARENT"].(string); ok {
		d.Parent = s
	}
	if s, ok := m["PARENT_TYPE"].(string); ok {
		d.ParentType = s
	}
	if n, ok := m["INDEX"].(int); ok {
		d.Index = n
	}
	if s, ok := m["FIRMWARE"].(string); ok {
		d.Firmware = s
	}
	if list, ok := m["CHILDREN"].([]any); ok {
		for _, c := range list {
			if s, ok := c.(string); ok {
				d.Children = append(d.Children, s)
			}
		}
	}
	return d
}

// DeviceSummary is the inventory shape the translation engine registers:
// one physical device's address, model, and firmware.
type DeviceSummary struct {
	Address  string
	Model    string
	Firmware string
}

// Inventory extracts physical devices from a CCU device list. Parent
// entries (no PARENT member) carry the model; channel entries are implied
// by the model's descriptor and skipped here.
func Inventory(descriptions []DeviceDescription) []DeviceSummary {
	var out []DeviceSummary
	for _, d := range descriptions {
		if d.Parent != "" || d.Address == "" || d.Type == "" {
			continue
		}
		out = append(out, DeviceSummary{
			Address:  d.Address,
			Model:    d.Type,
			Firmware: d.Firmware,
		})
	}
	return out
}

// SplitAddress splits a channel address "PARENT:CH" into its parts.
// A bare device address yields channel 0.
func SplitAddress(address string) (parent string, channel int, err error) {
	head, tail, found := strings.Cut(address, ":")
	if !found {
		return address, 0, nil
	}
	channel, err = strconv.Atoi(tail)
	if err != nil {
		return "", 0, fmt.Errorf("%w: channel in %q", ErrDecode, address)
	}
	return head, channel, nil
}

// JoinAddress builds a channel address "PARENT:CH".
func JoinAddress(parent string, channel int) string {
	return fmt.Sprintf("%s:%d", parent, channel)
}
