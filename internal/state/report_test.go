package state

import "testing"

func TestReportFromMap(t *testing.T) {
	payload := map[string]any{
		"cmd":  "status",
		"isOn": true,
		"state": map[string]any{
			"brightness": float64(75),
		},
		"op": map[string]any{
			"command": []any{
				[]any{float64(0xAA), float64(0x04), float64(75)},
				[]any{float64(0xAA), "junk"},
				"not a command",
			},
		},
	}

	report := ReportFromMap(payload)

	if report.Cmd != "status" {
		t.Errorf("Cmd = %q, want status", report.Cmd)
	}
	if got, ok := report.State["isOn"].(bool); !ok || !got {
		t.Errorf("State[isOn] = %v, want true", report.State["isOn"])
	}
	if report.State["brightness"] != float64(75) {
		t.Errorf("State[brightness] = %v, want 75", report.State["brightness"])
	}
	if len(report.Op) != 1 {
		t.Fatalf("Op holds %d commands, want 1 (malformed entries dropped)", len(report.Op))
	}
	if report.Op[0][0] != 0xAA || report.Op[0][2] != 75 {
		t.Errorf("Op[0] = %v", report.Op[0])
	}

	// The source payload's state section is left untouched.
	if _, mutated := payload["state"].(map[string]any)["isOn"]; mutated {
		t.Error("ReportFromMap mutated the input payload")
	}
}

func TestReportFromMap_EmptyAndMalformed(t *testing.T) {
	report := ReportFromMap(map[string]any{})
	if report.Cmd != "" || report.State != nil || report.Op != nil {
		t.Errorf("empty payload produced %+v", report)
	}

	report = ReportFromMap(map[string]any{"op": "bogus", "state": 7, "cmd": 1})
	if report.Cmd != "" || report.State != nil || report.Op != nil {
		t.Errorf("malformed payload produced %+v", report)
	}
}
