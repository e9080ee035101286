// Package influxdb provides time-series telemetry for hmqtt.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking, batched writes of datapoint values
//   - Availability transitions and bridge throughput counters
//   - Connection health monitoring
//
// Telemetry is strictly write-only and optional: the bridge never reads
// anything back, and a missing or unreachable InfluxDB only disables
// recording, never translation.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//
//	client.WriteDatapoint("00123ABC456DEF", 4, "level", 75)
package influxdb
