package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteProxyStats writes aggregate proxy traffic counters for a physical
// connector.
//
// This is the primary method for recording rig traffic telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - connector: The physical connector entry name (e.g., "dut")
//   - rxFrames, txFrames: Cumulative frame counts in each direction
//   - rxBytes, txBytes: Cumulative payload bytes in each direction
//   - attached: Number of proxy channels currently attached
//
// Example:
//
//	s := owner.Stats()
//	client.WriteProxyStats("dut", s.RxFrames, s.TxFrames, s.RxBytes, s.TxBytes, s.Attached)
func (c *Client) WriteProxyStats(connector string, rxFrames, txFrames, rxBytes, txBytes uint64, attached int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"proxy_traffic",
		map[string]string{
			"connector": connector,
		},
		map[string]interface{}{
			"rx_frames": rxFrames,
			"tx_frames": txFrames,
			"rx_bytes":  rxBytes,
			"tx_bytes":  txBytes,
			"attached":  attached,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteChannelMetric writes a single per-channel measurement.
//
// Used for tracking individual proxy channel activity such as queue
// depth or delivered frame counts.
//
// Parameters:
//   - channel: Proxy channel name (e.g., "aux1")
//   - measurement: The metric name (e.g., "queue_depth", "delivered")
//   - value: The numeric value to record
func (c *Client) WriteChannelMetric(channel string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"channel_metrics",
		map[string]string{
			"channel":     channel,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
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
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "rig-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
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
