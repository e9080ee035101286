package bridge

import (
	"errors"
	"testing"
)

func mustDatapoint(t *testing.T, model string, channel int, name string) *DatapointSpec {
	t.Helper()

	desc, err := DescriptorFor(model)
	if err != nil {
		t.Fatalf("DescriptorFor(%s) error = %v", model, err)
	}
	role, ok := desc.Role(channel)
	if !ok {
		t.Fatalf("descriptor %s has no channel %d", model, channel)
	}
	dp, ok := role.Datapoint(name)
	if !ok {
		t.Fatalf("channel %s:%d has no datapoint %s", model, channel, name)
	}
	return dp
}

func TestDescriptorFor(t *testing.T) {
	tests := []struct {
		model   string
		wantErr bool
	}{
		{"HmIP-BROLL", false},
		{"HmIP-SRH", false},
		{"HmIP-SWSD", false},
		{"HmIP-UNKNOWN", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			_, err := DescriptorFor(tt.model)
			if (err != nil) != tt.wantErr {
				t.Errorf("DescriptorFor(%q) error = %v, wantErr %v", tt.model, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownModel) {
				t.Errorf("DescriptorFor(%q) error = %v, want ErrUnknownModel", tt.model, err)
			}
		})
	}
}

func TestNormalizeEnum(t *testing.T) {
	dp := mustDatapoint(t, "HmIP-SRH", 1, "state")

	tests := []struct {
		name    string
		raw     any
		want    string
		wantErr bool
	}{
		{"closed", 0, "closed", false},
		{"tilted", 1, "tilted", false},
		{"open", 2, "open", false},
		{"float code", float64(2), "open", false},
		{"unknown code", 3, "", true},
		{"negative code", -1, "", true},
		{"non-integer", 1.5, "", true},
		{"wrong type", "open", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dp.Normalize(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrDomainViolation) {
					t.Fatalf("Normalize(%v) error = %v, want ErrDomainViolation", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%v) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeNumeric(t *testing.T) {
	dp := mustDatapoint(t, "HmIP-BROLL", 4, "level")

	tests := []struct {
		name    string
		raw     any
		want    int
		wantErr bool
	}{
		{"closed", 0.0, 0, false},
		{"open", 1.0, 100, false},
		{"half", 0.5, 50, false},
		{"rounding", 0.755, 76, false},
		{"above range", 1.5, 0, true},
		{"below range", -0.1, 0, true},
		{"wrong type", "0.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dp.Normalize(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrDomainViolation) {
					t.Fatalf("Normalize(%v) error = %v, want ErrDomainViolation", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%v) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeBoolean(t *testing.T) {
	dp := mustDatapoint(t, "HmIP-SWSD", 1, "alarm")

	// The CCU reports some boolean parameters as integer status codes,
	// so 0/1 must decode alongside true booleans.
	tests := []struct {
		name    string
		raw     any
		want    bool
		wantErr bool
	}{
		{"bool true", true, true, false},
		{"bool false", false, false, false},
		{"int one", 1, true, false},
		{"int zero", 0, false, false},
		{"float one", float64(1), true, false},
		{"out of domain code", 2, false, true},
		{"non-integer", 0.5, false, true},
		{"wrong type", "true", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dp.Normalize(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrDomainViolation) {
					t.Fatalf("Normalize(%v) error = %v, want ErrDomainViolation", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%v) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	dp := mustDatapoint(t, "HmIP-SWSD", 1, "alarm")

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"bool true", true, "ON"},
		{"bool false", false, "OFF"},
		{"enum label", "open", "open"},
		{"numeric", 75, "75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(dp.Encode(tt.value)); got != tt.want {
				t.Errorf("Encode(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeCommandLevel(t *testing.T) {
	dp := mustDatapoint(t, "HmIP-BROLL", 4, "level")

	tests := []struct {
		name      string
		payload   string
		wantParam string
		wantValue float64
		wantErr   bool
	}{
		{"closed", "0", "LEVEL", 0.0, false},
		{"open", "100", "LEVEL", 1.0, false},
		{"half", "50", "LEVEL", 0.5, false},
		{"whitespace", " 25 ", "LEVEL", 0.25, false},
		{"above range", "150", "", 0, true},
		{"below range", "-1", "", 0, true},
		{"not a number", "up", "", 0, true},
		{"empty", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param, value, err := dp.DecodeCommand([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrDomainViolation) {
					t.Fatalf("DecodeCommand(%q) error = %v, want ErrDomainViolation", tt.payload, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCommand(%q) error = %v", tt.payload, err)
			}
			if param != tt.wantParam {
				t.Errorf("DecodeCommand(%q) parameter = %q, want %q", tt.payload, param, tt.wantParam)
			}
			if value != tt.wantValue {
				t.Errorf("DecodeCommand(%q) value = %v, want %v", tt.payload, value, tt.wantValue)
			}
		})
	}
}

func TestDecodeCommandAction(t *testing.T) {
	dp := mustDatapoint(t, "HmIP-BROLL", 4, "action")

	tests := []struct {
		name      string
		payload   string
		wantParam string
		wantValue any
		wantErr   bool
	}{
		{"open", "open", "LEVEL", 1.0, false},
		{"close", "close", "LEVEL", 0.0, false},
		{"stop", "stop", "STOP", true, false},
		{"unknown verb", "halt", "", nil, true},
		{"case sensitive", "OPEN", "", nil, true},
		{"empty", "", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param, value, err := dp.DecodeCommand([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrDomainViolation) {
					t.Fatalf("DecodeCommand(%q) error = %v, want ErrDomainViolation", tt.payload, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCommand(%q) error = %v", tt.payload, err)
			}
			if param != tt.wantParam {
				t.Errorf("DecodeCommand(%q) parameter = %q, want %q", tt.payload, param, tt.wantParam)
			}
			if value != tt.wantValue {
				t.Errorf("DecodeCommand(%q) value = %v, want %v", tt.payload, value, tt.wantValue)
			}
		})
	}
}
