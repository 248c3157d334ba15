package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Command lifecycle event names recorded by WriteCommandEvent.
const (
	EventCleared = "cleared"
	EventExpired = "expired"
)

// WriteStateValue writes a single state reading to InfluxDB.
//
// This is the primary method for recording state history.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Unique identifier for the device
//   - stateName: The state name from the catalog (e.g., "brightness", "humidity")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteStateValue("AA:BB:CC:DD", "humidity", 45.5)
//	client.WriteStateValue("AA:BB:CC:DD", "brightness", 80)
func (c *Client) WriteStateValue(deviceID string, stateName string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id": deviceID,
			"state":     stateName,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteStateSnapshot records every numeric or boolean entry of a device
// state snapshot as individual state points. Non-numeric values
// (strings, composite structures) are skipped; history queries only
// make sense over scalars.
//
// Parameters:
//   - deviceID: Device identifier
//   - snapshot: State-name to value map, as produced by report parsing
func (c *Client) WriteStateSnapshot(deviceID string, snapshot map[string]any) {
	if !c.IsConnected() {
		return
	}

	for name, raw := range snapshot {
		switch v := raw.(type) {
		case float64:
			c.WriteStateValue(deviceID, name, v)
		case int:
			c.WriteStateValue(deviceID, name, float64(v))
		case bool:
			value := 0.0
			if v {
				value = 1.0
			}
			c.WriteStateValue(deviceID, name, value)
		}
	}
}

// WriteCommandEvent records a command lifecycle transition.
//
// Used for tracking acknowledgement latency and expiry rates per state.
//
// Parameters:
//   - deviceID: Device identifier
//   - stateName: The state the command targeted
//   - commandID: Correlation id of the command
//   - event: EventCleared or EventExpired
func (c *Client) WriteCommandEvent(deviceID, stateName, commandID, event string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"command_events",
		map[string]string{
			"device_id": deviceID,
			"state":     stateName,
			"event":     event,
		},
		map[string]interface{}{
			"command_id": commandID,
			"count":      1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed reports).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
