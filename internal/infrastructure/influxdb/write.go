package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDatapoint records a translated datapoint value from a CCU event.
//
// This is the primary telemetry method: every numeric value the bridge
// publishes can also land here as a time series. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - address: Device serial number (e.g., "00123ABC456DEF")
//   - channel: Channel number within the device
//   - datapoint: Translated datapoint name (e.g., "level", "state")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteDatapoint("00123ABC456DEF", 4, "level", 75)
func (c *Client) WriteDatapoint(address string, channel int, datapoint string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"datapoint",
		map[string]string{
			"address":   address,
			"channel":   strconv.Itoa(channel),
			"datapoint": datapoint,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAvailability records a device reachability transition.
//
// Parameters:
//   - address: Device serial number
//   - online: true when the device became reachable
func (c *Client) WriteAvailability(address string, online bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"availability",
		map[string]string{
			"address": address,
		},
		map[string]interface{}{
			"online": online,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeStats records bridge throughput counters.
//
// Used by the main loop to emit periodic health snapshots.
//
// Parameters:
//   - eventsIn: Raw events received from the CCU since start
//   - published: MQTT messages published since start
//   - commandsIn: Set-value commands received since start
//   - dropped: Events or commands dropped due to full queues
func (c *Client) WriteBridgeStats(eventsIn, published, commandsIn, dropped uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_stats",
		map[string]string{},
		map[string]interface{}{
			"events_in":   eventsIn,
			"published":   published,
			"commands_in": commandsIn,
			"dropped":     dropped,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
