package homematic

import (
	"errors"
	"reflect"
	"testing"
)

func TestMarshalCallRoundTrip(t *testing.T) {
	params := []any{
		"00123ABC456DEF:4",
		"LEVEL",
		0.75,
		42,
		true,
		[]any{"a", 1},
	}

	data, err := marshalCall("setValue", params)
	if err != nil {
		t.Fatalf("marshalCall() error = %v", err)
	}

	method, decoded, err := unmarshalCall(data)
	if err != nil {
		t.Fatalf("unmarshalCall() error = %v", err)
	}
	if method != "setValue" {
		t.Errorf("method = %q, want setValue", method)
	}
	if !reflect.DeepEqual(decoded, params) {
		t.Errorf("params = %#v, want %#v", decoded, params)
	}
}

func TestMarshalCallStruct(t *testing.T) {
	params := []any{map[string]any{"methodName": "event", "count": 3}}

	data, err := marshalCall("system.multicall", params)
	if err != nil {
		t.Fatalf("marshalCall() error = %v", err)
	}

	_, decoded, err := unmarshalCall(data)
	if err != nil {
		t.Fatalf("unmarshalCall() error = %v", err)
	}
	m, ok := decoded[0].(map[string]any)
	if !ok {
		t.Fatalf("param = %T, want map", decoded[0])
	}
	if m["methodName"] != "event" || m["count"] != 3 {
		t.Errorf("struct = %v", m)
	}
}

func TestMarshalResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"string", "ok"},
		{"empty string", ""},
		{"int", 7},
		{"bool", false},
		{"double", 0.5},
		{"array", []any{"x", true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := marshalResponse(tt.value)
			if err != nil {
				t.Fatalf("marshalResponse() error = %v", err)
			}
			decoded, err := unmarshalResponse(data)
			if err != nil {
				t.Fatalf("unmarshalResponse() error = %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.value) {
				t.Errorf("round trip = %#v, want %#v", decoded, tt.value)
			}
		})
	}
}

func TestUnmarshalResponseFault(t *testing.T) {
	data := marshalFault(-1, "unknown device")

	_, err := unmarshalResponse(data)
	if !errors.Is(err, ErrFault) {
		t.Fatalf("unmarshalResponse(fault) error = %v, want ErrFault", err)
	}
}

func TestUnmarshalResponseBareString(t *testing.T) {
	// The CCU answers some calls with untyped values; bare text inside
	// <value> is a string per the XML-RPC spec.
	data := []byte(`<?xml version="1.0"?><methodResponse><params><param><value>ok</value></param></params></methodResponse>`)

	decoded, err := unmarshalResponse(data)
	if err != nil {
		t.Fatalf("unmarshalResponse() error = %v", err)
	}
	if decoded != "ok" {
		t.Errorf("decoded = %v, want ok", decoded)
	}
}

func TestUnmarshalResponseEmpty(t *testing.T) {
	data := []byte(`<?xml version="1.0"?><methodResponse><params></params></methodResponse>`)

	decoded, err := unmarshalResponse(data)
	if err != nil {
		t.Fatalf("unmarshalResponse() error = %v", err)
	}
	if decoded != nil {
		t.Errorf("decoded = %v, want nil", decoded)
	}
}

func TestUnmarshalCallMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not xml", "hello"},
		{"missing method", `<?xml version="1.0"?><methodCall><params></params></methodCall>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := unmarshalCall([]byte(tt.data)); !errors.Is(err, ErrDecode) {
				t.Errorf("unmarshalCall() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestMarshalCallEscaping(t *testing.T) {
	data, err := marshalCall("setValue", []any{`a<b>&"c"`})
	if err != nil {
		t.Fatalf("marshalCall() error = %v", err)
	}

	_, decoded, err := unmarshalCall(data)
	if err != nil {
		t.Fatalf("unmarshalCall() error = %v", err)
	}
	if decoded[0] != `a<b>&"c"` {
		t.Errorf("decoded = %q", decoded[0])
	}
}

func TestBooleanVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"1", true},
		{"0", false},
		{"true", true},
		{"false", false},
	}

	for _, tt := range tests {
		data := []byte(`<?xml version="1.0"?><methodResponse><params><param><value><boolean>` +
			tt.raw + `</boolean></value></param></params></methodResponse>`)
		decoded, err := unmarshalResponse(data)
		if err != nil {
			t.Fatalf("unmarshalResponse(%s) error = %v", tt.raw, err)
		}
		if decoded != tt.want {
			t.Errorf("boolean %q = %v, want %v", tt.raw, decoded, tt.want)
		}
	}
}
