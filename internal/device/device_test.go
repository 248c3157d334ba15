package device

import (
	"errors"
	"testing"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/catalog"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/state"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	return cat
}

func lightMetadata() Metadata {
	return Metadata{
		DeviceID: "AA:BB:CC:DD:EE:FF:00:11",
		Model:    "H6001",
		SKU:      "H6001",
		Name:     "Bedroom Light",
		Channels: map[string]map[string]any{
			ChannelIoT: {"topic": "GD/H6001/AA:BB:CC:DD:EE:FF:00:11"},
		},
	}
}

func humidifierMetadata() Metadata {
	return Metadata{
		DeviceID: "14:AA:C7:38:32:39:42:31",
		Model:    "H7141",
		SKU:      "H7141",
		Name:     "Office Humidifier",
	}
}

func TestDevice_ParseFansOutToStates(t *testing.T) {
	d, err := NewRGBLight(lightMetadata(), testCatalog(t))
	if err != nil {
		t.Fatalf("NewRGBLight() error = %v", err)
	}

	d.Parse(map[string]any{
		"cmd": "status",
		"state": map[string]any{
			"isOn":       1.0,
			"brightness": 75.0,
		},
	})

	snap := d.Snapshot()
	power, ok := snap["power"].(*bool)
	if !ok || power == nil || !*power {
		t.Errorf("Snapshot power = %v, want true", snap["power"])
	}
	brightness, ok := snap["brightness"].(*int)
	if !ok || brightness == nil || *brightness != 75 {
		t.Errorf("Snapshot brightness = %v, want 75", snap["brightness"])
	}
}

func TestDevice_SetStateQueuesAndAckClears(t *testing.T) {
	d, err := NewRGBLight(lightMetadata(), testCatalog(t))
	if err != nil {
		t.Fatalf("NewRGBLight() error = %v", err)
	}

	var events []state.ClearEvent
	d.OnClear(func(e state.ClearEvent) { events = append(events, e) })

	payloads, err := d.SetState("power", true)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("SetState() returned %d payloads, want 1", len(payloads))
	}
	if payloads[0].PayloadHex != "01" {
		t.Errorf("PayloadHex = %q, want %q", payloads[0].PayloadHex, "01")
	}
	if d.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", d.PendingCount())
	}

	// Acknowledgement report routed through the same fan-out path.
	d.Parse(map[string]any{
		"cmd": "status",
		"op":  map[string]any{"command": []any{[]any{170.0, 1.0, 1.0}}},
	})

	if d.PendingCount() != 0 {
		t.Errorf("PendingCount() after ack = %d, want 0", d.PendingCount())
	}
	if len(events) != 1 || events[0].CommandID != payloads[0].CommandID {
		t.Errorf("clear events = %v, want one for %q", events, payloads[0].CommandID)
	}
}

func TestDevice_SetStateErrors(t *testing.T) {
	d, err := NewRGBLight(lightMetadata(), testCatalog(t))
	if err != nil {
		t.Fatalf("NewRGBLight() error = %v", err)
	}

	tests := []struct {
		name    string
		state   string
		value   any
		wantErr error
	}{
		{name: "unknown state", state: "fan_speed", value: 1, wantErr: ErrStateNotFound},
		{name: "rejected value", state: "brightness", value: 300, wantErr: ErrValueRejected},
		{name: "uncoercible value", state: "power", value: "maybe", wantErr: ErrValueRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.SetState(tt.state, tt.value); !errors.Is(err, tt.wantErr) {
				t.Errorf("SetState(%q, %v) error = %v, want %v", tt.state, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestDevice_SetStateModeReturnsCommandsDirectly(t *testing.T) {
	d, err := NewHumidifier(humidifierMetadata(), testCatalog(t))
	if err != nil {
		t.Fatalf("NewHumidifier() error = %v", err)
	}

	payloads, err := d.SetState("humidifier_mode", "auto")
	if err != nil {
		t.Fatalf("SetState(mode) error = %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("SetState(mode) returned %d payloads, want 1", len(payloads))
	}
	if payloads[0].PayloadHex != "02" {
		t.Errorf("PayloadHex = %q, want %q", payloads[0].PayloadHex, "02")
	}

	if snap := d.Snapshot(); snap["humidifier_mode"] != nil {
		t.Errorf("mode before ack = %v, want nil", snap["humidifier_mode"])
	}

	d.Parse(map[string]any{
		"cmd": "status",
		"op":  map[string]any{"command": []any{[]any{170.0, 5.0, 2.0}}},
	})

	if snap := d.Snapshot(); snap["humidifier_mode"] != "auto_mode" {
		t.Errorf("mode after ack = %v, want auto_mode", snap["humidifier_mode"])
	}
	if d.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", d.PendingCount())
	}
}

func TestDevice_Rollback(t *testing.T) {
	d, err := NewRGBLight(lightMetadata(), testCatalog(t))
	if err != nil {
		t.Fatalf("NewRGBLight() error = %v", err)
	}

	report := func(level float64) map[string]any {
		return map[string]any{"cmd": "status", "state": map[string]any{"brightness": level}}
	}
	d.Parse(report(20))
	d.Parse(report(80))

	if err := d.Rollback("brightness", 1); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	brightness := d.Snapshot()["brightness"].(*int)
	if brightness == nil || *brightness != 20 {
		t.Errorf("brightness after rollback = %v, want 20", brightness)
	}

	if err := d.Rollback("fan_speed", 1); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("Rollback(unknown) error = %v, want ErrStateNotFound", err)
	}
}

func TestDevice_ClearCommandsFansOut(t *testing.T) {
	d, err := NewRGBLight(lightMetadata(), testCatalog(t))
	if err != nil {
		t.Fatalf("NewRGBLight() error = %v", err)
	}

	var events []state.ClearEvent
	d.OnClear(func(e state.ClearEvent) { events = append(events, e) })

	payloads, err := d.SetState("power", true)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	d.ClearCommands("unknown-id", payloads[0].CommandID)
	if d.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", d.PendingCount())
	}
	if len(events) != 1 {
		t.Errorf("clear events = %d, want 1", len(events))
	}
}

func TestDevice_AckClearsWhenReportDoesNotMatchExpectation(t *testing.T) {
	d, err := NewRGBLight(lightMetadata(), testCatalog(t))
	if err != nil {
		t.Fatalf("NewRGBLight() error = %v", err)
	}

	var events []state.ClearEvent
	d.OnClear(func(e state.ClearEvent) { events = append(events, e) })

	payloads, err := d.SetState("power", true)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	// The acknowledging report carries the flag under a key the write
	// expectation does not recognize, so structural matching leaves the
	// command pending.
	d.Parse(map[string]any{
		"cmd":   "status",
		"state": map[string]any{"isOn": true},
	})
	if d.PendingCount() != 1 {
		t.Fatalf("PendingCount() after non-matching report = %d, want 1", d.PendingCount())
	}

	// The commandId echo drives the clear instead.
	d.ClearCommands(payloads[0].CommandID)
	if d.PendingCount() != 0 {
		t.Errorf("PendingCount() after id clear = %d, want 0", d.PendingCount())
	}
	if len(events) != 1 || events[0].CommandID != payloads[0].CommandID {
		t.Fatalf("clear events = %v, want one for %q", events, payloads[0].CommandID)
	}

	// Repeating the clear must not emit a second event.
	d.ClearCommands(payloads[0].CommandID)
	if len(events) != 1 {
		t.Errorf("repeat clear produced %d events, want 1", len(events))
	}
}

func TestDevice_Commandable(t *testing.T) {
	light, err := NewRGBLight(lightMetadata(), testCatalog(t))
	if err != nil {
		t.Fatalf("NewRGBLight() error = %v", err)
	}
	want := []string{"active", "brightness", "color_rgb", "power"}
	got := light.Commandable()
	if len(got) != len(want) {
		t.Fatalf("Commandable() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Commandable()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	hygrometer, err := NewHygrometer(Metadata{DeviceID: "h5", Model: "H5179"}, testCatalog(t))
	if err != nil {
		t.Fatalf("NewHygrometer() error = %v", err)
	}
	if got := hygrometer.Commandable(); len(got) != 0 {
		t.Errorf("hygrometer Commandable() = %v, want none", got)
	}
}
