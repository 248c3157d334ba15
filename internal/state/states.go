package state

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/catalog"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/opcode"
)

// ReportOpcode is the opcode every inbound status frame leads with.
const ReportOpcode = 0xAA

// Color is an RGB channel triple.
type Color struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

// buildCommand renders a catalog template into a transport-ready payload.
// identifier is the frame prefix (opcode plus command identifier bytes);
// when empty, the template's opcode alone is used. The command id is
// stamped later by SetState.
func buildCommand(tmpl catalog.CommandTemplate, identifier []byte, ctx map[string]any) (CommandPayload, []byte, error) {
	payloadHex, err := tmpl.Render(ctx)
	if err != nil {
		return CommandPayload{}, nil, err
	}
	payloadBytes, err := hex.DecodeString(payloadHex)
	if err != nil {
		return CommandPayload{}, nil, fmt.Errorf("decoding rendered payload %q: %w", payloadHex, err)
	}
	if len(identifier) == 0 {
		opByte, err := tmpl.OpcodeByte()
		if err != nil {
			return CommandPayload{}, nil, err
		}
		identifier = []byte{opByte}
	}
	canonical, err := opcode.AsOpcode(tmpl.Opcode)
	if err != nil {
		return CommandPayload{}, nil, err
	}
	ble, err := opcode.BLECommandToBase64(identifier, payloadBytes, nil, 0)
	if err != nil {
		return CommandPayload{}, nil, err
	}

	return CommandPayload{
		Command:    tmpl.Name,
		Opcode:     canonical,
		PayloadHex: payloadHex,
		BLEBase64:  ble,
		IoTBase64:  opcode.IoTPayloadToBase64(payloadBytes),
	}, payloadBytes, nil
}

// commandIdentifier extracts an entry's write-frame prefix bytes, nil when
// the entry declares none.
func commandIdentifier(entry catalog.StateEntry) ([]byte, error) {
	command, ok := entry.Identifiers["command"]
	if !ok {
		return nil, nil
	}
	return command.SequenceBytes()
}

// statusExpectations pairs the two report shapes that can acknowledge a
// write: the structured state section and the opcode status frame.
func statusExpectations(stateKey string, value any, opSequence []int) []Expectation {
	return []Expectation{
		{State: map[string]any{stateKey: value}},
		{OpCommand: opSequence},
	}
}

func boolFromValue(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		if v == 1 {
			return true, true
		}
		if v == 0 {
			return false, true
		}
		return false, false
	case float64:
		return boolFromValue(int(v))
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "on":
			return true, true
		case "0", "false", "off":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

func intFromValue(value any) (int, bool) {
	return asInt(value)
}

// NewPowerState builds the boolean mains-power state from catalog
// metadata. It consumes both opcode status frames and structured reports.
func NewPowerState(cat *catalog.Catalog) (*DeviceState[*bool], error) {
	entry, err := cat.State("power")
	if err != nil {
		return nil, err
	}
	statusOp, err := entry.StatusOpcode()
	if err != nil {
		return nil, err
	}
	tmpl, err := entry.Template("set_power")
	if err != nil {
		return nil, err
	}
	writeID, err := commandIdentifier(entry)
	if err != nil {
		return nil, err
	}

	valueMap := make(map[string]bool, len(entry.ParseOptions.ValueMap))
	for key, v := range entry.ParseOptions.ValueMap {
		valueMap[strings.ToUpper(key)] = v
	}

	var s *DeviceState[*bool]
	s = New(Config[*bool]{
		Name:       "power",
		Strategy:   ParseOpCode,
		OpType:     ReportOpcode,
		Identifier: []int{int(statusOp)},
		OnState: func(report Report) {
			// Firmware revisions disagree on the flag's type; 1/0 and
			// "on"/"off" are as common as real booleans.
			for _, key := range []string{"isOn", "power", "onOff"} {
				if value, ok := lookupStateValue(report.State, key); ok {
					if flag, recognized := boolFromValue(value); recognized {
						s.Update(&flag)
						return
					}
				}
			}
		},
		OnOpCommand: func(command []int) {
			if len(command) < 3 {
				return
			}
			key := fmt.Sprintf("%02X%02X", command[1], command[2])
			if mapped, ok := valueMap[key]; ok {
				flag := mapped
				s.Update(&flag)
			}
		},
		Translate: func(next *bool) *Translation {
			if next == nil {
				return nil
			}
			command, payloadBytes, err := buildCommand(tmpl, writeID, map[string]any{"value": *next})
			if err != nil || len(payloadBytes) == 0 {
				return nil
			}
			sequence := []int{ReportOpcode, int(statusOp), int(payloadBytes[len(payloadBytes)-1])}
			return &Translation{
				Commands:     []CommandPayload{command},
				Expectations: statusExpectations("power", *next, sequence),
			}
		},
		Coerce: func(value any) (*bool, bool) {
			flag, ok := boolFromValue(value)
			if !ok {
				return nil, false
			}
			return &flag, true
		},
	})
	return s, nil
}

// NewActiveState builds the running/paused state. Same shape as power but
// reported under its own status opcode.
func NewActiveState(cat *catalog.Catalog) (*DeviceState[*bool], error) {
	entry, err := cat.State("active")
	if err != nil {
		return nil, err
	}
	statusOp, err := entry.StatusOpcode()
	if err != nil {
		return nil, err
	}
	tmpl, err := entry.Template("set_active")
	if err != nil {
		return nil, err
	}
	writeID, err := commandIdentifier(entry)
	if err != nil {
		return nil, err
	}

	var s *DeviceState[*bool]
	s = New(Config[*bool]{
		Name:       "active",
		Strategy:   ParseOpCode,
		OpType:     ReportOpcode,
		Identifier: []int{int(statusOp)},
		OnState: func(report Report) {
			for _, key := range []string{"active", "isOn"} {
				if value, ok := lookupStateValue(report.State, key); ok {
					if flag, recognized := boolFromValue(value); recognized {
						s.Update(&flag)
						return
					}
				}
			}
		},
		OnOpCommand: func(command []int) {
			if len(command) < 3 {
				return
			}
			switch command[2] {
			case 0x00:
				flag := false
				s.Update(&flag)
			case 0x01:
				flag := true
				s.Update(&flag)
			}
		},
		Translate: func(next *bool) *Translation {
			if next == nil {
				return nil
			}
			command, payloadBytes, err := buildCommand(tmpl, writeID, map[string]any{"value": *next})
			if err != nil || len(payloadBytes) == 0 {
				return nil
			}
			sequence := []int{ReportOpcode, int(statusOp), int(payloadBytes[len(payloadBytes)-1])}
			return &Translation{
				Commands:     []CommandPayload{command},
				Expectations: statusExpectations("active", *next, sequence),
			}
		},
		Coerce: func(value any) (*bool, bool) {
			flag, ok := boolFromValue(value)
			if !ok {
				return nil, false
			}
			return &flag, true
		},
	})
	return s, nil
}

// NewBrightnessState builds the brightness percentage state with the
// catalog's scaling bounds. Out-of-range writes are silent no-ops.
func NewBrightnessState(cat *catalog.Catalog) (*DeviceState[*int], error) {
	entry, err := cat.State("brightness")
	if err != nil {
		return nil, err
	}
	statusOp, err := entry.StatusOpcode()
	if err != nil {
		return nil, err
	}
	tmpl, err := entry.Template("set_brightness")
	if err != nil {
		return nil, err
	}
	writeID, err := commandIdentifier(entry)
	if err != nil {
		return nil, err
	}

	scaling := catalog.Scaling{Min: 0, Max: 100}
	if entry.ParseOptions.Scaling != nil {
		scaling = *entry.ParseOptions.Scaling
	}

	var s *DeviceState[*int]
	s = New(Config[*int]{
		Name:       "brightness",
		Strategy:   ParseOpCode,
		OpType:     ReportOpcode,
		Identifier: []int{int(statusOp)},
		OnState: func(report Report) {
			value, ok := lookupStateValue(report.State, "brightness")
			if !ok {
				return
			}
			level, ok := intFromValue(value)
			if ok && scaling.Contains(level) {
				s.Update(&level)
			}
		},
		OnOpCommand: func(command []int) {
			if len(command) < 3 {
				return
			}
			level := command[2]
			if scaling.Contains(level) {
				s.Update(&level)
			}
		},
		Translate: func(next *int) *Translation {
			if next == nil || !scaling.Contains(*next) {
				return nil
			}
			command, _, err := buildCommand(tmpl, writeID, map[string]any{"value": *next})
			if err != nil {
				return nil
			}
			sequence := []int{ReportOpcode, int(statusOp), *next}
			return &Translation{
				Commands:     []CommandPayload{command},
				Expectations: statusExpectations("brightness", *next, sequence),
			}
		},
		Coerce: func(value any) (*int, bool) {
			level, ok := intFromValue(value)
			if !ok {
				return nil, false
			}
			return &level, true
		},
	})
	return s, nil
}

// NewColorRGBState builds the RGB colour state. Channel values must each
// fall in [0, 255] or the write is rejected.
func NewColorRGBState(cat *catalog.Catalog) (*DeviceState[*Color], error) {
	entry, err := cat.State("color_rgb")
	if err != nil {
		return nil, err
	}
	statusOp, err := entry.StatusOpcode()
	if err != nil {
		return nil, err
	}
	tmpl, err := entry.Template("set_color_rgb")
	if err != nil {
		return nil, err
	}
	writeID, err := commandIdentifier(entry)
	if err != nil {
		return nil, err
	}

	var s *DeviceState[*Color]
	s = New(Config[*Color]{
		Name:       "color_rgb",
		Strategy:   ParseOpCode,
		OpType:     ReportOpcode,
		Identifier: []int{int(statusOp)},
		OnState: func(report Report) {
			value, ok := lookupStateValue(report.State, "color")
			if !ok {
				return
			}
			channels, ok := value.(map[string]any)
			if !ok {
				return
			}
			color, ok := colorFromChannels(channels)
			if ok {
				s.Update(&color)
			}
		},
		OnOpCommand: func(command []int) {
			// Augmented shape: [report, status, r, g, b].
			if len(command) < 5 {
				return
			}
			color := Color{Red: command[2], Green: command[3], Blue: command[4]}
			if validChannels(color) {
				s.Update(&color)
			}
		},
		Translate: func(next *Color) *Translation {
			if next == nil || !validChannels(*next) {
				return nil
			}
			ctx := map[string]any{"red": next.Red, "green": next.Green, "blue": next.Blue}
			command, _, err := buildCommand(tmpl, writeID, ctx)
			if err != nil {
				return nil
			}
			sequence := []int{ReportOpcode, int(statusOp), next.Red, next.Green, next.Blue}
			stateShape := map[string]any{
				"red":   next.Red,
				"green": next.Green,
				"blue":  next.Blue,
			}
			return &Translation{
				Commands:     []CommandPayload{command},
				Expectations: statusExpectations("color", stateShape, sequence),
			}
		},
		Coerce: func(value any) (*Color, bool) {
			channels, ok := value.(map[string]any)
			if !ok {
				return nil, false
			}
			color, ok := colorFromChannels(channels)
			if !ok {
				return nil, false
			}
			return &color, true
		},
	})
	return s, nil
}

// NewHumidityState builds the read-only humidity sensor state. Sensor
// reports split the measurement across several frames, so the whole
// filtered list is consumed at once.
func NewHumidityState(cat *catalog.Catalog) (*DeviceState[*int], error) {
	entry, err := cat.State("humidity")
	if err != nil {
		return nil, err
	}
	statusOp, err := entry.StatusOpcode()
	if err != nil {
		return nil, err
	}

	bounds := catalog.Range{Min: 0, Max: 100}
	if m := entry.ParseOptions.Measurement; m != nil && m.Range != nil {
		bounds = *m.Range
	}
	inRange := func(v int) bool { return v >= bounds.Min && v <= bounds.Max }

	var s *DeviceState[*int]
	s = New(Config[*int]{
		Name:       "humidity",
		Strategy:   ParseMultiOp,
		OpType:     ReportOpcode,
		Identifier: []int{int(statusOp)},
		OnState: func(report Report) {
			value, ok := lookupStateValue(report.State, "humidity")
			if !ok {
				return
			}
			reading, ok := intFromValue(value)
			if ok && inRange(reading) {
				s.Update(&reading)
			}
		},
		OnMultiOp: func(commands [][]int) {
			// The current reading rides in the first frame; later frames
			// carry calibration and min/max which this state ignores.
			if len(commands) == 0 || len(commands[0]) < 3 {
				return
			}
			reading := commands[0][2]
			if inRange(reading) {
				s.Update(&reading)
			}
		},
	})
	return s, nil
}

func colorFromChannels(channels map[string]any) (Color, bool) {
	red, okR := intFromValue(channels["red"])
	green, okG := intFromValue(channels["green"])
	blue, okB := intFromValue(channels["blue"])
	if !okR || !okG || !okB {
		return Color{}, false
	}
	color := Color{Red: red, Green: green, Blue: blue}
	return color, validChannels(color)
}

func validChannels(c Color) bool {
	for _, channel := range []int{c.Red, c.Green, c.Blue} {
		if channel < 0 || channel > 255 {
			return false
		}
	}
	return true
}

// lookupStateValue searches the state section and one nested level, since
// some firmware revisions wrap the real payload in another "state" object.
func lookupStateValue(section map[string]any, key string) (any, bool) {
	if section == nil {
		return nil, false
	}
	if value, ok := section[key]; ok {
		return value, true
	}
	if inner, ok := section["state"].(map[string]any); ok {
		if value, ok := inner[key]; ok {
			return value, true
		}
	}
	return nil, false
}
