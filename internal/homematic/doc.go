// Package homematic implements the CCU collaborator of hmqtt.
//
// A HomeMatic CCU speaks XML-RPC in both directions: the bridge calls the
// CCU (init, setValue, listDevices) and the CCU calls back (event,
// newDevices, system.multicall). This package provides both halves plus an
// optional passive recorder.
//
// # Components
//
//   - Client: XML-RPC client for outbound calls
//   - Server: HTTP callback endpoint the CCU delivers events to
//   - Recorder: passive SQLite catalogue of devices and raw parameters,
//     used for authoring new descriptors offline
//
// # Wire Format
//
// Only the value kinds the CCU interfaces actually exchange are
// implemented: string, i4/int, boolean, double, array, and struct. They map
// to string, int, bool, float64, []any, and map[string]any.
//
// # Addresses
//
// The CCU addresses channels as "ADDRESS:CH" (e.g. "00123ABC456DEF:4");
// SplitAddress/JoinAddress convert between that form and the
// (address, channel) pair the translation engine uses.
//
// # References
//
//   - HomeMatic XML-RPC API: https://www.eq-3.de (HM_XmlRpc_API.pdf)
package homematic
