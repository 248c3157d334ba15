package catalog

import (
	"errors"
	"testing"
)

func TestLoad(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cat.Len() == 0 {
		t.Fatal("catalog is empty")
	}

	for _, required := range []string{"power", "active", "brightness", "color_rgb", "humidity", "humidifier_mode"} {
		if _, err := cat.State(required); err != nil {
			t.Errorf("State(%q) unexpected error: %v", required, err)
		}
	}
}

func TestCatalog_StateNotFound(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if _, err := cat.State("teleport"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("State() error = %v, want ErrStateNotFound", err)
	}
}

func TestStateEntry_PowerMetadata(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	power, err := cat.State("power")
	if err != nil {
		t.Fatalf("State(power) unexpected error: %v", err)
	}

	if power.OpType != "toggle" {
		t.Errorf("OpType = %q, want %q", power.OpType, "toggle")
	}

	opcode, err := power.StatusOpcode()
	if err != nil {
		t.Fatalf("StatusOpcode() unexpected error: %v", err)
	}
	if opcode != 0x01 {
		t.Errorf("StatusOpcode() = 0x%02X, want 0x01", opcode)
	}

	tmpl, err := power.Template("set_power")
	if err != nil {
		t.Fatalf("Template(set_power) unexpected error: %v", err)
	}
	if got, err := tmpl.OpcodeByte(); err != nil || got != 0x33 {
		t.Errorf("OpcodeByte() = 0x%02X, %v, want 0x33", got, err)
	}

	if got, want := power.ParseOptions.ValueMap["0101"], true; got != want {
		t.Errorf("ValueMap[0101] = %v, want %v", got, want)
	}
}

func TestStateEntry_BrightnessScaling(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	brightness, err := cat.State("brightness")
	if err != nil {
		t.Fatalf("State(brightness) unexpected error: %v", err)
	}

	scaling := brightness.ParseOptions.Scaling
	if scaling == nil {
		t.Fatal("brightness entry has no scaling bounds")
	}

	tests := []struct {
		value int
		want  bool
	}{
		{value: 0, want: true},
		{value: 50, want: true},
		{value: 100, want: true},
		{value: -1, want: false},
		{value: 101, want: false},
	}
	for _, tt := range tests {
		if got := scaling.Contains(tt.value); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestStateEntry_ColorPayloadOrder(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	rgb, err := cat.State("color_rgb")
	if err != nil {
		t.Fatalf("State(color_rgb) unexpected error: %v", err)
	}

	format := rgb.ParseOptions.PayloadFormat
	if format == nil {
		t.Fatal("color_rgb entry has no payload format")
	}

	want := []string{"red", "green", "blue"}
	if len(format.Order) != len(want) {
		t.Fatalf("Order = %v, want %v", format.Order, want)
	}
	for i, channel := range want {
		if format.Order[i] != channel {
			t.Errorf("Order[%d] = %q, want %q", i, format.Order[i], channel)
		}
	}
}

func TestStateEntry_HumidifierModes(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	mode, err := cat.State("humidifier_mode")
	if err != nil {
		t.Fatalf("State(humidifier_mode) unexpected error: %v", err)
	}

	want := map[string]int{"manual": 0, "custom": 1, "auto": 2, "program": 3}
	for label, code := range want {
		if got, ok := mode.ParseOptions.Modes[label]; !ok || got != code {
			t.Errorf("Modes[%q] = %d (present=%v), want %d", label, got, ok, code)
		}
	}
}

func TestStateEntry_TemplateNotFound(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	power, err := cat.State("power")
	if err != nil {
		t.Fatalf("State(power) unexpected error: %v", err)
	}

	if _, err := power.Template("nope"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Template() error = %v, want ErrTemplateNotFound", err)
	}
}

func TestIdentifier_Byte(t *testing.T) {
	tests := []struct {
		name    string
		opcode  string
		want    byte
		wantErr bool
	}{
		{name: "prefixed", opcode: "0x33", want: 0x33},
		{name: "bare hex", opcode: "AA", want: 0xAA},
		{name: "lowercase", opcode: "0x0f", want: 0x0F},
		{name: "empty", opcode: "", wantErr: true},
		{name: "out of range", opcode: "0x1FF", wantErr: true},
		{name: "not hex", opcode: "zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Identifier{Opcode: tt.opcode}.Byte()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Byte() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrBadIdentifier) {
					t.Errorf("error = %v, want ErrBadIdentifier", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Byte() = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}
