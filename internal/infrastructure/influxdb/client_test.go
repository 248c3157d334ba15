package influxdb_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/config"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for the local dev InfluxDB.
// These values match docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "govee-dev-token",
		Org:           "govee",
		Bucket:        "state_history",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		cfg := testConfig()
		client, err := influxdb.Connect(cfg)
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

// collectWriteErrors wires an error callback and returns a getter.
func collectWriteErrors(client *influxdb.Client) func() error {
	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return writeErr
	}
}

func TestConnect(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999" // Non-existent port

	if _, err := influxdb.Connect(cfg); err == nil {
		t.Fatal("Connect() should return error for invalid URL")
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()
	cfg.BatchSize = 0     // Should use default
	cfg.FlushInterval = 0 // Should use default

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

func TestHealthCheck(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

func TestWriteStateValue(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()
	writeErr := collectWriteErrors(client)

	client.WriteStateValue("test-device-001", "humidity", 45.5)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := writeErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWriteStateSnapshot(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()
	writeErr := collectWriteErrors(client)

	// Strings and composite values are skipped; numbers and bools land.
	client.WriteStateSnapshot("test-device-002", map[string]any{
		"brightness": 80,
		"humidity":   45.5,
		"power":      true,
		"mode":       "auto_mode",
		"color":      map[string]any{"red": 255},
	})
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := writeErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWriteCommandEvent(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()
	writeErr := collectWriteErrors(client)

	client.WriteCommandEvent("test-device-003", "power", "cmd-123", influxdb.EventExpired)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := writeErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWritePoint(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()
	writeErr := collectWriteErrors(client)

	client.WritePoint(
		"custom_measurement",
		map[string]string{"source": "test"},
		map[string]interface{}{"value": 99.9, "count": 5},
	)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := writeErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWritePointWithTime(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()
	writeErr := collectWriteErrors(client)

	timestamp := time.Now().Add(-1 * time.Hour)
	client.WritePointWithTime(
		"custom_measurement",
		map[string]string{"source": "test-with-time"},
		map[string]interface{}{"value": 88.8},
		timestamp,
	)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := writeErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestClose(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteStateValue("close-test", "humidity", 1.0)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
