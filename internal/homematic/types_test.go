package homematic

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		wantAddr string
		wantCh   int
		wantErr  bool
	}{
		{"channel address", "00123ABC456DEF:4", "00123ABC456DEF", 4, false},
		{"maintenance channel", "00123ABC456DEF:0", "00123ABC456DEF", 0, false},
		{"bare device", "00123ABC456DEF", "00123ABC456DEF", 0, false},
		{"bad channel", "00123ABC456DEF:x", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, ch, err := SplitAddress(tt.address)
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Fatalf("SplitAddress(%q) error = %v, want ErrDecode", tt.address, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitAddress(%q) error = %v", tt.address, err)
			}
			if addr != tt.wantAddr || ch != tt.wantCh {
				t.Errorf("SplitAddress(%q) = %s, %d; want %s, %d", tt.address, addr, ch, tt.wantAddr, tt.wantCh)
			}
		})
	}
}

func TestJoinAddress(t *testing.T) {
	if got := JoinAddress("00123ABC456DEF", 4); got != "00123ABC456DEF:4" {
		t.Errorf("JoinAddress() = %q", got)
	}
}

func TestInventory(t *testing.T) {
	descriptions := []DeviceDescription{
		{Address: "00123ABC456DEF", Type: "HmIP-BROLL", Firmware: "1.4.2", Children: []string{"00123ABC456DEF:0"}},
		{Address: "00123ABC456DEF:0", Type: "MAINTENANCE", Parent: "00123ABC456DEF", ParentType: "HmIP-BROLL"},
		{Address: "00123ABC456DEF:4", Type: "SHUTTER_VIRTUAL_RECEIVER", Parent: "00123ABC456DEF", ParentType: "HmIP-BROLL", Index: 4},
		{Address: "00ABCDEF123456", Type: "HmIP-SRH"},
		{Address: "", Type: "HmIP-SWSD"}, // malformed, skipped
	}

	got := Inventory(descriptions)
	want := []DeviceSummary{
		{Address: "00123ABC456DEF", Model: "HmIP-BROLL", Firmware: "1.4.2"},
		{Address: "00ABCDEF123456", Model: "HmIP-SRH"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Inventory() = %#v, want %#v", got, want)
	}
}

func TestDescriptionFromMap(t *testing.T) {
	m := map[string]any{
		"ADDRESS":     "00123ABC456DEF:4",
		"TYPE":        "SHUTTER_VIRTUAL_RECEIVER",
		"PARENT":      "00123ABC456DEF",
		"PARENT_TYPE": "HmIP-BROLL",
		"INDEX":       4,
		"FIRMWARE":    "1.4.2",
		"CHILDREN":    []any{"a", "b"},
		"RF_ADDRESS":  123456, // ignored
	}

	d := descriptionFromMap(m)
	if d.Address != "00123ABC456DEF:4" || d.Type != "SHUTTER_VIRTUAL_RECEIVER" {
		t.Errorf("description = %+v", d)
	}
	if d.Parent != "00123ABC456DEF" || d.ParentType != "HmIP-BROLL" || d.Index != 4 {
		t.Errorf("parent fields = %+v", d)
	}
	if d.Firmware != "1.4.2" || len(d.Children) != 2 {
		t.Errorf("firmware/children = %+v", d)
	}
}
