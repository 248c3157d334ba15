// Package influxdb provides InfluxDB connectivity for the command engine.
//
// It wraps the official influxdb-client-go v2 library with the engine's
// patterns for connection management, state-history writing, and health
// monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Device state history (every parsed state transition)
//   - Sensor readings from polled and pushed reports
//   - Command lifecycle events (acknowledged, expired)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "govee",
//	    Bucket: "state_history",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write state readings
//	client.WriteStateValue("AA:BB:CC:DD", "humidity", 45.5)
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
// This reduces network overhead for high-frequency report parsing.
package influxdb
