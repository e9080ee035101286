package homematic

import "errors"

// Sentinel errors for CCU communication.
var (
	// ErrFault indicates the CCU answered an XML-RPC call with a fault.
	ErrFault = errors.New("homematic: rpc fault")

	// ErrDecode indicates a malformed XML-RPC document.
	ErrDecode = errors.New("homematic: decode failed")

	// ErrCallFailed indicates the HTTP transport of a call failed.
	ErrCallFailed = errors.New("homematic: call failed")

	// ErrInterfaceMismatch indicates a callback carried an unexpected
	// interface ID and was ignored.
	ErrInterfaceMismatch = errors.New("homematic: interface id mismatch")

	// ErrNotStarted indicates an operation on a server that is not running.
	ErrNotStarted = errors.New("homematic: server not started")
)
