package influxdb

import "errors"

// Sentinel errors for the telemetry sink. Telemetry is optional: run()
// treats ErrDisabled as "skip the sink", and the event path drops points
// silently when the sink is down rather than stalling CCU event handling.
var (
	// ErrNotConnected indicates the sink has been closed or never came up.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the startup ping failed. Unlike the
	// MQTT broker, an unreachable InfluxDB does not abort startup.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when the influxdb section of
	// config.yaml has enabled: false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
