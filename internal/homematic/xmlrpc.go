package homematic

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// The CCU speaks XML-RPC over plain HTTP. The subset below covers every
// value kind its interfaces exchange: string, i4/int, boolean, double,
// array, and struct. Values map to Go as string, int, bool, float64,
// []any, and map[string]any.

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// xValue mirrors an XML-RPC <value> element for decoding.
type xValue struct {
	String   *string  `xml:"string"`
	I4       *int     `xml:"i4"`
	Int      *int     `xml:"int"`
	Boolean  *string  `xml:"boolean"`
	Double   *float64 `xml:"double"`
	Array    *xArray  `xml:"array"`
	Struct   *xStruct `xml:"struct"`
	Chardata string   `xml:",chardata"`
}

type xArray struct {
	Values []xValue `xml:"data>value"`
}

type xStruct struct {
	Members []xMember `xml:"member"`
}

type xMember struct {
	Name  string `xml:"name"`
	Value xValue `xml:"value"`
}

type xParam struct {
	Value xValue `xml:"value"`
}

type xMethodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     []xParam `xml:"params>param"`
}

type xMethodResponse struct {
	XMLName xml.Name `xml:"methodResponse"`
	Params  []xParam `xml:"params>param"`
	Fault   *xValue  `xml:"fault>value"`
}

// toGo converts a decoded <value> into its Go representation.
// A value with no type element is a bare string per the XML-RPC spec.
func (v *xValue) toGo() (any, error) {
	switch {
	case v.String != nil:
		return *v.String, nil
	case v.I4 != nil:
		return *v.I4, nil
	case v.Int != nil:
		return *v.Int, nil
	case v.Boolean != nil:
		switch strings.TrimSpace(*v.Boolean) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: boolean %q", ErrDecode, *v.Boolean)
	case v.Double != nil:
		return *v.Double, nil
	case v.Array != nil:
		out := make([]any, 0, len(v.Array.Values))
		for i := range v.Array.Values {
			item, err := v.Array.Values[i].toGo()
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case v.Struct != nil:
		out := make(map[string]any, len(v.Struct.Members))
		for i := range v.Struct.Members {
			m := &v.Struct.Members[i]
			item, err := m.Value.toGo()
			if err != nil {
				return nil, err
			}
			out[m.Name] = item
		}
		return out, nil
	default:
		return strings.TrimSpace(v.Chardata), nil
	}
}

// writeValue renders a Go value as an XML-RPC <value> element.
func writeValue(buf *bytes.Buffer, value any) error {
	buf.WriteString("<value>")
	switch v := value.(type) {
	case nil:
		buf.WriteString("<string></string>")
	case string:
		buf.WriteString("<string>")
		xml.EscapeText(buf, []byte(v)) //nolint:errcheck // bytes.Buffer never errors
		buf.WriteString("</string>")
	case bool:
		if v {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
	case int:
		buf.WriteString("<i4>")
		buf.WriteString(strconv.Itoa(v))
		buf.WriteString("</i4>")
	case float64:
		buf.WriteString("<double>")
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		buf.WriteString("</double>")
	case []any:
		buf.WriteString("<array><data>")
		for _, item := range v {
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	case map[string]any:
		buf.WriteString("<struct>")
		for name, item := range v {
			buf.WriteString("<member><name>")
			xml.EscapeText(buf, []byte(name)) //nolint:errcheck // bytes.Buffer never errors
			buf.WriteString("</name>")
			if err := writeValue(buf, item); err != nil {
				return err
			}
			buf.WriteString("</member>")
		}
		buf.WriteString("</struct>")
	default:
		return fmt.Errorf("%w: unsupported value type %T", ErrDecode, value)
	}
	buf.WriteString("</value>")
	return nil
}

// marshalCall renders an XML-RPC method call document.
func marshalCall(method string, params []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodCall><methodName>")
	xml.EscapeText(&buf, []byte(method)) //nolint:errcheck // bytes.Buffer never errors
	buf.WriteString("</methodName><params>")
	for _, p := range params {
		buf.WriteString("<param>")
		if err := writeValue(&buf, p); err != nil {
			return nil, err
		}
		buf.WriteString("</param>")
	}
	buf.WriteString("</params></methodCall>")
	return buf.Bytes(), nil
}

// unmarshalCall parses an inbound method call (server side).
func unmarshalCall(data []byte) (method string, params []any, err error) {
	var call xMethodCall
	if err := xml.Unmarshal(data, &call); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if call.MethodName == "" {
		return "", nil, fmt.Errorf("%w: missing method name", ErrDecode)
	}

	params = make([]any, 0, len(call.Params))
	for i := range call.Params {
		v, err := call.Params[i].Value.toGo()
		if err != nil {
			return "", nil, err
		}
		params = append(params, v)
	}
	return call.MethodName, params, nil
}

// unmarshalResponse parses an XML-RPC response document. A fault answer
// returns an error wrapping ErrFault with the CCU's code and message.
func unmarshalResponse(data []byte) (any, error) {
	var resp xMethodResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if resp.Fault != nil {
		v, err := resp.Fault.toGo()
		if err != nil {
			return nil, err
		}
		code, message := 0, ""
		if m, ok := v.(map[string]any); ok {
			if c, ok := m["faultCode"].(int); ok {
				code = c
			}
			if s, ok := m["faultString"].(string); ok {
				message = s
			}
		}
		return nil, fmt.Errorf("%w: %d %s", ErrFault, code, message)
	}

	if len(resp.Params) == 0 {
		return nil, nil
	}
	return resp.Params[0].Value.toGo()
}

// marshalResponse renders an XML-RPC response carrying one value.
func marshalResponse(value any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodResponse><params><param>")
	if err := writeValue(&buf, value); err != nil {
		return nil, err
	}
	buf.WriteString("</param></params></methodResponse>")
	return buf.Bytes(), nil
}

// marshalFault renders an XML-RPC fault response.
func marshalFault(code int, message string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodResponse><fault>")
	// The fault struct has fixed members; writeValue handles escaping.
	_ = writeValue(&buf, map[string]any{ //nolint:errcheck // fixed shape cannot fail
		"faultCode":   code,
		"faultString": message,
	})
	buf.WriteString("</fault></methodResponse>")
	return buf.Bytes()
}
