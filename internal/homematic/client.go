package homematic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client configuration constants.
const (
	// callTimeout bounds each XML-RPC call when the context has no deadline.
	callTimeout = 10 * time.Second

	// maxResponseSize caps CCU responses. A full device list of a large
	// installation stays well under this.
	maxResponseSize = 8 << 20 // 8 MB
)

// Client is the XML-RPC client side of the CCU link: it registers the
// callback URL, issues set-value calls, and fetches the device list.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	url         string
	interfaceID string
	http        *http.Client
}

// NewClient creates a client for the CCU interface at url
// (e.g. "http://ccu.local:2010"). The interfaceID tags the callback
// registration so the CCU addresses events to this bridge.
func NewClient(url, interfaceID string) *Client {
	return &Client{
		url:         url,
		interfaceID: interfaceID,
		http:        &http.Client{Timeout: callTimeout},
	}
}

// InterfaceID returns the registered interface ID.
func (c *Client) InterfaceID() string {
	return c.interfaceID
}

// Call issues one XML-RPC method call and returns the decoded result.
func (c *Client) Call(ctx context.Context, method string, params ...any) (any, error) {
	body, err := marshalCall(method, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, method, err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, method, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side only

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: unexpected status %d", ErrCallFailed, method, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, method, err)
	}

	result, err := unmarshalResponse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

// Init registers the callback URL with the CCU. The CCU will deliver
// event/newDevices callbacks to that URL tagged with the interface ID.
func (c *Client) Init(ctx context.Context, callbackURL string) error {
	_, err := c.Call(ctx, "init", callbackURL, c.interfaceID)
	return err
}

// Deinit unregisters the callback URL. Called during shutdown so the CCU
// stops delivering events to a dead endpoint.
func (c *Client) Deinit(ctx context.Context, callbackURL string) error {
	_, err := c.Call(ctx, "init", callbackURL, "")
	return err
}

// SetValue writes one datapoint value on a device channel.
func (c *Client) SetValue(ctx context.Context, address string, channel int, parameter string, value any) error {
	_, err := c.Call(ctx, "setValue", JoinAddress(address, channel), parameter, value)
	return err
}

// ListDevices fetches the CCU's full device list.
func (c *Client) ListDevices(ctx context.Context) ([]DeviceDescription, error) {
	result, err := c.Call(ctx, "listDevices")
	if err != nil {
		return nil, err
	}

	list, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: listDevices returned %T", ErrDecode, result)
	}

	out := make([]DeviceDescription, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, descriptionFromMap(m))
	}
	return out, nil
}

// Ping verifies the CCU answers calls. Some firmware versions lack a ping
// method; any well-formed answer (including a fault) proves liveness, so
// only transport errors fail the check.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, "ping", c.interfaceID)
	if err != nil && !errors.Is(err, ErrFault) {
		return err
	}
	return nil
}
