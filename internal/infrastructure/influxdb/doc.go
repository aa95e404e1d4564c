// Package influxdb provides InfluxDB connectivity for Testrig Core.
//
// It wraps the official influxdb-client-go v2 library with Testrig-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Proxy traffic counters (frames and bytes per connector)
//   - Per-channel activity metrics
//   - Rig telemetry
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "testrig",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write traffic counters
//	s := owner.Stats()
//	client.WriteProxyStats("dut", s.RxFrames, s.TxFrames, s.RxBytes, s.TxBytes, s.Attached)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
