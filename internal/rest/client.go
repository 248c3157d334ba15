package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/device"
)

// DefaultBaseURL is the vendor REST endpoint used when none is configured.
const DefaultBaseURL = "https://app2.govee.com"

const deviceListPath = "/device/rest/devices/v1/list"

const defaultRequestTimeout = 10 * time.Second

// TokenSource supplies the bearer token attached to every request.
// The auth store satisfies this interface.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Snapshot is one device's worth of a polled response: normalized
// metadata plus a structured state section ready for report parsing.
type Snapshot struct {
	Metadata device.Metadata
	State    map[string]any
}

// ClientConfig holds the REST client settings.
type ClientConfig struct {
	// BaseURL overrides DefaultBaseURL. Trailing slashes are trimmed.
	BaseURL string

	// Timeout bounds each HTTP request. Defaults to 10s.
	Timeout time.Duration
}

// Client fetches device snapshots from the vendor REST API.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a REST client drawing bearer tokens from tokens.
func NewClient(cfg ClientConfig, tokens TokenSource) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// listResponse is the wire shape of the device list endpoint.
type listResponse struct {
	Status  int              `json:"status"`
	Message string           `json:"message"`
	Devices []map[string]any `json:"devices"`
}

// ListDevices fetches the account's device list and normalizes each
// entry into a Snapshot. Entries missing an identifier or model are
// skipped rather than failing the whole poll.
//
// Parameters:
//   - ctx: Context for cancellation and deadlines
//
// Returns:
//   - []Snapshot: One entry per usable device
//   - error: Token retrieval, transport, or payload decode failure
func (c *Client) ListDevices(ctx context.Context) ([]Snapshot, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+deviceListPath, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("building device list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting device list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrBadStatus, resp.StatusCode)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if payload.Status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d %s", ErrBadStatus, payload.Status, payload.Message)
	}

	snapshots := make([]Snapshot, 0, len(payload.Devices))
	for _, entry := range payload.Devices {
		snapshot, err := normalizeEntry(entry)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// normalizeEntry converts a raw device list entry into a Snapshot.
// The vendor nests transport details under deviceExt.deviceSettings and
// live readings under deviceExt.deviceData.
func normalizeEntry(entry map[string]any) (Snapshot, error) {
	ext, _ := entry["deviceExt"].(map[string]any)
	settings, _ := ext["deviceSettings"].(map[string]any)
	data, _ := ext["deviceData"].(map[string]any)

	model, _ := entry["sku"].(string)
	normalized := map[string]any{
		"device":      entry["device"],
		"model":       model,
		"sku":         model,
		"device_name": entry["deviceName"],
		"category":    entry["category"],
		"channels":    channelsFrom(entry, settings),
	}
	if group, ok := entry["categoryGroup"]; ok {
		normalized["category_group"] = group
	}

	metadata, err := device.MetadataFromMap(normalized)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	return Snapshot{Metadata: metadata, State: stateFrom(settings, data)}, nil
}

// channelsFrom assembles the channel map from transport settings. The
// value shape matches what MetadataFromMap expects under "channels".
func channelsFrom(entry map[string]any, settings map[string]any) map[string]any {
	channels := map[string]any{}
	if topic, ok := settings["topic"].(string); ok && topic != "" {
		channels[device.ChannelIoT] = map[string]any{"topic": topic}
	}
	if mac, ok := settings["address"].(string); ok && mac != "" {
		ble := map[string]any{"mac": mac}
		if name, ok := settings["bleName"].(string); ok && name != "" {
			ble["name"] = name
		}
		channels[device.ChannelBLE] = ble
	}
	if id, ok := entry["device"].(string); ok && id != "" {
		channels["rest"] = map[string]any{"device_id": id}
	}
	return channels
}

// stateFrom builds the structured state section from a device entry.
// Keys line up with the catalog's structured parse hooks; readings the
// vendor reports in hundredths are scaled down here.
func stateFrom(settings, data map[string]any) map[string]any {
	state := map[string]any{}
	if online, ok := boolish(data["online"]); ok {
		state["online"] = online
	}
	if isOn, ok := boolish(data["isOnOff"]); ok {
		if isOn {
			state["isOn"] = 1
		} else {
			state["isOn"] = 0
		}
	}
	if humidity, ok := hundredths(data["hum"]); ok {
		state["humidity"] = humidity
	}
	if temperature, ok := hundredths(data["tem"]); ok {
		state["temperature"] = temperature
	}
	if battery, ok := numeric(settings["battery"]); ok {
		state["battery"] = battery
	}
	if last, ok := numeric(data["lastTime"]); ok {
		state["lastTime"] = last
	}
	return state
}

func boolish(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	default:
		return false, false
	}
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func hundredths(value any) (float64, bool) {
	raw, ok := numeric(value)
	if !ok {
		return 0, false
	}
	return raw / 100, true
}
