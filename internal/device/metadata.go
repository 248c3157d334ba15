package device

import (
	"fmt"
	"time"
)

// DefaultManufacturer is assumed when discovery metadata omits one.
const DefaultManufacturer = "Govee"

// Channel names used in discovery metadata.
const (
	ChannelIoT = "iot"
	ChannelBLE = "ble"
)

// Metadata is the normalized discovery record for one device. It is what
// the repository persists and what factories build runtime devices from.
type Metadata struct {
	DeviceID      string                    `json:"device_id"`
	Model         string                    `json:"model"`
	SKU           string                    `json:"sku"`
	Category      string                    `json:"category"`
	CategoryGroup string                    `json:"category_group"`
	Name          string                    `json:"name"`
	Manufacturer  string                    `json:"manufacturer"`
	Channels      map[string]map[string]any `json:"channels"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// MetadataFromMap normalizes a raw discovery payload. The vendor API mixes
// snake_case and camelCase spellings between endpoints, so every field
// accepts its known aliases. SKU falls back to the model and the
// manufacturer defaults to DefaultManufacturer.
//
// Returns:
//   - Metadata: The normalized record
//   - error: ErrMissingDeviceID or ErrMissingModel when required fields are absent
func MetadataFromMap(payload map[string]any) (Metadata, error) {
	deviceID := stringField(payload, "device_id", "deviceId", "device")
	if deviceID == "" {
		return Metadata{}, ErrMissingDeviceID
	}
	model := stringField(payload, "model", "deviceModel")
	if model == "" {
		return Metadata{}, fmt.Errorf("%w: device %s", ErrMissingModel, deviceID)
	}

	meta := Metadata{
		DeviceID:      deviceID,
		Model:         model,
		SKU:           stringField(payload, "sku", "deviceSku"),
		Category:      stringField(payload, "category", "categoryName"),
		CategoryGroup: stringField(payload, "category_group", "categoryGroup", "category_group_name"),
		Name:          stringField(payload, "device_name", "deviceName", "name"),
		Manufacturer:  stringField(payload, "manufacturer", "manufacturerName"),
		Channels:      channelsField(payload),
	}
	if meta.SKU == "" {
		meta.SKU = meta.Model
	}
	if meta.Name == "" {
		meta.Name = meta.Model
	}
	if meta.Manufacturer == "" {
		meta.Manufacturer = DefaultManufacturer
	}
	return meta, nil
}

// IoTTopic returns the MQTT command topic from the iot channel, or empty
// when the device has no cloud channel.
func (m Metadata) IoTTopic() string {
	channel, ok := m.Channels[ChannelIoT]
	if !ok {
		return ""
	}
	if topic, ok := channel["topic"].(string); ok {
		return topic
	}
	return ""
}

// HasChannel reports whether the device exposes the named transport.
func (m Metadata) HasChannel(name string) bool {
	_, ok := m.Channels[name]
	return ok
}

// DeepCopy creates an independent copy so cached metadata cannot be
// mutated through a returned value.
func (m Metadata) DeepCopy() Metadata {
	cpy := m
	if m.Channels != nil {
		cpy.Channels = make(map[string]map[string]any, len(m.Channels))
		for name, channel := range m.Channels {
			inner := make(map[string]any, len(channel))
			for key, value := range channel {
				inner[key] = value
			}
			cpy.Channels[name] = inner
		}
	}
	return cpy
}

func stringField(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := payload[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func channelsField(payload map[string]any) map[string]map[string]any {
	raw, ok := payload["channels"].(map[string]any)
	if !ok {
		if raw, ok = payload["deviceChannels"].(map[string]any); !ok {
			return nil
		}
	}
	channels := make(map[string]map[string]any, len(raw))
	for name, value := range raw {
		if inner, ok := value.(map[string]any); ok {
			channels[name] = inner
		}
	}
	return channels
}
