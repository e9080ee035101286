package homematic

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server configuration constants.
const (
	// maxRequestSize caps inbound callback bodies.
	maxRequestSize = 8 << 20 // 8 MB

	// readTimeout/writeTimeout bound slow CCU connections.
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second
)

// Logger is the structured logger interface for this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Server is the XML-RPC callback side of the CCU link. The CCU connects
// back to it and delivers event, newDevices, and listDevices calls, either
// directly or batched inside system.multicall.
//
// Callbacks run on HTTP handler goroutines; the handlers installed via
// SetOnEvent/SetOnNewDevices must not block (the bridge enqueues and
// returns).
type Server struct {
	interfaceID string

	httpServer *http.Server
	listener   net.Listener

	mu           sync.RWMutex
	onEvent      func(address string, channel int, parameter string, value any)
	onNewDevices func(descriptions []DeviceDescription)

	logger Logger
}

// NewServer creates a callback server expecting calls tagged with
// interfaceID. Call Start to begin listening.
func NewServer(interfaceID string, logger Logger) *Server {
	return &Server{
		interfaceID: interfaceID,
		logger:      logger,
	}
}

// SetOnEvent installs the raw event handler. The address is already split
// into device address and channel.
func (s *Server) SetOnEvent(handler func(address string, channel int, parameter string, value any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = handler
}

// SetOnNewDevices installs the device list handler.
func (s *Server) SetOnNewDevices(handler func(descriptions []DeviceDescription)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNewDevices = handler
}

// Start begins listening on host:port. Port 0 selects an ephemeral port;
// use URL() for the address to register with the CCU.
func (s *Server) Start(host string, port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("listening for CCU callbacks: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logError("callback server failed", err)
		}
	}()

	s.logInfo("callback server listening", "address", listener.Addr().String())
	return nil
}

// URL returns the callback URL to register with the CCU.
func (s *Server) URL() (string, error) {
	if s.listener == nil {
		return "", ErrNotStarted
	}
	return fmt.Sprintf("http://%s", s.listener.Addr().String()), nil
}

// Stop shuts the callback server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down callback server: %w", err)
	}
	return nil
}

// handleRequest decodes one XML-RPC call and answers it.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}

	method, params, err := unmarshalCall(body)
	if err != nil {
		s.logWarn("malformed callback", "error", err)
		s.respond(w, marshalFault(-32700, "parse error"))
		return
	}

	result, err := s.dispatch(method, params)
	if err != nil {
		s.logWarn("callback rejected", "method", method, "error", err)
		s.respond(w, marshalFault(-1, err.Error()))
		return
	}

	data, err := marshalResponse(result)
	if err != nil {
		s.respond(w, marshalFault(-2, "encode error"))
		return
	}
	s.respond(w, data)
}

func (s *Server) respond(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/xml")
	if _, err := w.Write(data); err != nil {
		s.logError("writing callback response", err)
	}
}

// dispatch routes one decoded call to its handler and returns the value to
// answer with.
func (s *Server) dispatch(method string, params []any) (any, error) {
	switch method {
	case "event":
		return s.handleEvent(params)

	case "newDevices":
		return s.handleNewDevices(params)

	case "listDevices":
		// The CCU asks which devices we already know to compute the delta
		// for newDevices. We keep no persistent membership, so an empty
		// answer makes it send everything.
		return []any{}, nil

	case "system.multicall":
		return s.handleMulticall(params)

	case "system.listMethods":
		return []any{"event", "newDevices", "listDevices", "system.multicall", "system.listMethods"}, nil

	default:
		// Unknown lifecycle calls (updateDevice, deleteDevices, ...) are
		// acknowledged so the CCU does not retry them.
		s.logDebug("unhandled callback", "method", method)
		return "", nil
	}
}

// handleEvent decodes one event callback:
// (interfaceID, "ADDRESS:CH", PARAMETER, value).
func (s *Server) handleEvent(params []any) (any, error) {
	if len(params) < 4 {
		return nil, fmt.Errorf("%w: event expects 4 params, got %d", ErrDecode, len(params))
	}

	interfaceID, _ := params[0].(string)
	if interfaceID != s.interfaceID {
		return nil, fmt.Errorf("%w: %q", ErrInterfaceMismatch, interfaceID)
	}

	combined, ok := params[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: event address %T", ErrDecode, params[1])
	}
	parameter, ok := params[2].(string)
	if !ok {
		return nil, fmt.Errorf("%w: event parameter %T", ErrDecode, params[2])
	}

	address, channel, err := SplitAddress(combined)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	handler := s.onEvent
	s.mu.RUnlock()

	if handler != nil {
		handler(address, channel, parameter, params[3])
	}
	return "", nil
}

// handleNewDevices decodes a newDevices callback:
// (interfaceID, [descriptions...]).
func (s *Server) handleNewDevices(params []any) (any, error) {
	if len(params) < 2 {
		return nil, fmt.Errorf("%w: newDevices expects 2 params, got %d", ErrDecode, len(params))
	}

	interfaceID, _ := params[0].(string)
	if interfaceID != s.interfaceID {
		return nil, fmt.Errorf("%w: %q", ErrInterfaceMismatch, interfaceID)
	}

	list, ok := params[1].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: newDevices list %T", ErrDecode, params[1])
	}

	descriptions := make([]DeviceDescription, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		descriptions = append(descriptions, descriptionFromMap(m))
	}

	s.mu.RLock()
	handler := s.onNewDevices
	s.mu.RUnlock()

	if handler != nil {
		handler(descriptions)
	}
	return "", nil
}

// handleMulticall unpacks system.multicall:
// ([{methodName, params: [...]}, ...]) and dispatches each inner call.
// Per the multicall convention each result is wrapped in a one-element
// array; failures become fault structs without aborting the batch.
func (s *Server) handleMulticall(params []any) (any, error) {
	if len(params) < 1 {
		return nil, fmt.Errorf("%w: multicall expects 1 param", ErrDecode)
	}
	calls, ok := params[0].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: multicall list %T", ErrDecode, params[0])
	}

	results := make([]any, 0, len(calls))
	for _, item := range calls {
		m, ok := item.(map[string]any)
		if !ok {
			results = append(results, faultStruct(-32600, "invalid call"))
			continue
		}
		method, _ := m["methodName"].(string)
		inner, _ := m["params"].([]any)

		result, err := s.dispatch(method, inner)
		if err != nil {
			results = append(results, faultStruct(-1, err.Error()))
			continue
		}
		results = append(results, []any{result})
	}
	return results, nil
}

func faultStruct(code int, message string) map[string]any {
	return map[string]any{"faultCode": code, "faultString": message}
}

func (s *Server) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Server) logInfo(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Server) logWarn(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}

func (s *Server) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, "error", err)
	}
}
