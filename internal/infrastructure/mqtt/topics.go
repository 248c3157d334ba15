package mqtt

import "fmt"

// Topic prefixes for the cloud channel.
//
// The account topic (carried in config) receives every report for devices
// registered to the account. Per-device command topics follow the
// GD/{sku}/{device} scheme used by the upstream service.
const (
	// TopicPrefixDevice is the base for per-device command topics.
	TopicPrefixDevice = "GD"

	// TopicPrefixEngine is the base for engine status topics.
	TopicPrefixEngine = "govee/engine"
)

// Topics provides builders for cloud-channel MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.DeviceCommand("H7141", "14:AA:C7:38:32:39:42:31")
//	// Returns: "GD/H7141/14:AA:C7:38:32:39:42:31"
type Topics struct{}

// DeviceCommand returns the command topic for a device.
//
// Example: GD/H7141/14:AA:C7:38:32:39:42:31
func (Topics) DeviceCommand(sku, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixDevice, sku, deviceID)
}

// EngineStatus returns the engine status topic.
//
// Example: govee/engine/status
func (Topics) EngineStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixEngine)
}

// AllDeviceCommands returns a pattern matching every device command topic.
//
// Pattern: GD/+/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixDevice)
}
