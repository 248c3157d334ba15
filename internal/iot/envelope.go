package iot

import (
	"fmt"
	"time"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/state"
)

// Message verbs used by the cloud service.
const (
	cmdRealTime = "ptReal"
	cmdStatus   = "status"
)

// Message is the inner section of a cloud envelope.
type Message struct {
	AccountTopic string         `json:"accountTopic"`
	Cmd          string         `json:"cmd"`
	CmdVersion   int            `json:"cmdVersion"`
	Data         map[string]any `json:"data,omitempty"`
	Transaction  string         `json:"transaction"`
	Type         int            `json:"type"`
	CommandID    string         `json:"commandId,omitempty"`
}

// Envelope is the JSON document published to a device's command topic.
//
// Example:
//
//	{
//	  "topic": "GD/H7141/14:AA:C7:38:32:39:42:31",
//	  "msg": {
//	    "accountTopic": "GA/account-id",
//	    "cmd": "ptReal",
//	    "cmdVersion": 0,
//	    "data": {"command": ["MwEBAQ=="]},
//	    "transaction": "u_1700000000123",
//	    "type": 1,
//	    "commandId": "..."
//	  }
//	}
type Envelope struct {
	Topic string  `json:"topic"`
	Msg   Message `json:"msg"`
}

// newTransaction derives the transaction identifier the service expects,
// "u_" followed by the wall-clock time in milliseconds.
func newTransaction(now time.Time) string {
	return fmt.Sprintf("u_%d", now.UnixMilli())
}

// commandEnvelope wraps an assembled command payload for the real-time
// command channel. The transport-encoded frame rides in data.command.
func commandEnvelope(topic, accountTopic, commandID string, payload state.CommandPayload, now time.Time) Envelope {
	return Envelope{
		Topic: topic,
		Msg: Message{
			AccountTopic: accountTopic,
			Cmd:          cmdRealTime,
			CmdVersion:   0,
			Data: map[string]any{
				"command": []string{payload.IoTBase64},
			},
			Transaction: newTransaction(now),
			Type:        1,
			CommandID:   commandID,
		},
	}
}

// refreshEnvelope builds the status-request document that asks a device to
// report its full state.
func refreshEnvelope(topic, accountTopic string, now time.Time) Envelope {
	return Envelope{
		Topic: topic,
		Msg: Message{
			AccountTopic: accountTopic,
			Cmd:          cmdStatus,
			CmdVersion:   0,
			Transaction:  newTransaction(now),
			Type:         0,
		},
	}
}

// Flatten normalizes a nested cloud payload into a single-level map so the
// parsing layer never sees transport envelope structure. Devices wrap the
// real payload one or more levels under "msg" and "data" keys, sometimes
// with "state" or "op" sections at different depths.
//
// The walk is breadth-first: "msg"/"data" objects are descended into,
// "state" and "op" objects encountered at any depth are merged into single
// sections, and every other key is kept with first-seen-wins precedence, so
// values nearer the envelope root shadow deeper duplicates.
func Flatten(payload map[string]any) map[string]any {
	flat := make(map[string]any, len(payload))
	stateSection := make(map[string]any)
	opSection := make(map[string]any)

	queue := []map[string]any{payload}
	for len(queue) > 0 {
		frame := queue[0]
		queue = queue[1:]
		for key, value := range frame {
			if key == "msg" || key == "data" {
				if nested, ok := value.(map[string]any); ok {
					queue = append(queue, nested)
					continue
				}
			}
			if key == "state" {
				if nested, ok := value.(map[string]any); ok {
					mergeSection(stateSection, nested)
					continue
				}
			}
			if key == "op" {
				if nested, ok := value.(map[string]any); ok {
					mergeSection(opSection, nested)
					continue
				}
			}
			if _, seen := flat[key]; !seen {
				flat[key] = value
			}
		}
	}

	if len(stateSection) > 0 {
		flat["state"] = stateSection
	}
	if len(opSection) > 0 {
		flat["op"] = opSection
	}
	return flat
}

func mergeSection(dst, src map[string]any) {
	for key, value := range src {
		if _, seen := dst[key]; !seen {
			dst[key] = value
		}
	}
}

// deviceIDFrom extracts the reporting device's identifier from a flattened
// payload. Both key spellings occur in the wild.
func deviceIDFrom(flat map[string]any) string {
	if id, ok := flat["device"].(string); ok {
		return id
	}
	if id, ok := flat["deviceId"].(string); ok {
		return id
	}
	return ""
}
