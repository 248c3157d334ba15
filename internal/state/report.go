package state

// Report is a normalized inbound payload, after the transport layer has
// flattened any envelope nesting. It carries the structured state section
// and the opcode command list side by side; either may be absent.
type Report struct {
	// Cmd is the message verb, "status" for device reports. Non-status
	// messages are ignored by the structured parse path.
	Cmd string

	// State holds the structured (REST-style) payload section.
	State map[string]any

	// Op holds the opcode command list from `{"op":{"command":[[...]]}}`.
	Op [][]int
}

// ReportFromMap builds a Report from a decoded JSON payload. Numeric
// entries in the op command list arrive as float64 from the JSON decoder
// and are coerced to ints; malformed sections are dropped silently.
func ReportFromMap(payload map[string]any) Report {
	var report Report

	if cmd, ok := payload["cmd"].(string); ok {
		report.Cmd = cmd
	}
	if stateSection, ok := payload["state"].(map[string]any); ok {
		report.State = stateSection
	}
	if isOn, ok := payload["isOn"]; ok {
		// Some firmware revisions report power at the top level. Fold it
		// into the state section without mutating the caller's map.
		merged := make(map[string]any, len(report.State)+1)
		for k, v := range report.State {
			merged[k] = v
		}
		if _, exists := merged["isOn"]; !exists {
			merged["isOn"] = isOn
		}
		report.State = merged
	}

	opSection, ok := payload["op"].(map[string]any)
	if !ok {
		return report
	}
	commands, ok := opSection["command"].([]any)
	if !ok {
		return report
	}
	for _, raw := range commands {
		entry, ok := raw.([]any)
		if !ok {
			continue
		}
		command := make([]int, 0, len(entry))
		for _, v := range entry {
			n, ok := asInt(v)
			if !ok {
				command = nil
				break
			}
			command = append(command, n)
		}
		if command != nil {
			report.Op = append(report.Op, command)
		}
	}
	return report
}

// asInt coerces the numeric types a decoded payload may carry.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
