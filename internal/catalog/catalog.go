package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

//go:embed data/device_states.json
var statesFS embed.FS

// Identifier names the opcode or opcode sequence a state entry answers to.
// Status identifiers carry a single opcode; command identifiers may carry a
// multi-byte sequence for multi-step writes.
type Identifier struct {
	Opcode   string   `json:"opcode,omitempty"`
	Sequence []string `json:"sequence,omitempty"`
}

// Byte parses the identifier's opcode text as a single byte value.
//
// Returns:
//   - byte: The opcode value
//   - error: ErrBadIdentifier if the text is empty or out of byte range
func (i Identifier) Byte() (byte, error) {
	text := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(i.Opcode)), "0x")
	if text == "" {
		return 0, fmt.Errorf("%w: %q", ErrBadIdentifier, i.Opcode)
	}
	value, err := strconv.ParseUint(text, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadIdentifier, i.Opcode)
	}
	return byte(value), nil
}

// SequenceBytes parses the identifier's opcode sequence as frame prefix
// bytes. Entries use the same hex text form as single opcodes.
func (i Identifier) SequenceBytes() ([]byte, error) {
	out := make([]byte, 0, len(i.Sequence))
	for _, text := range i.Sequence {
		b, err := (Identifier{Opcode: text}).Byte()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Scaling bounds a numeric state's accepted value range.
type Scaling struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether value falls inside the bounds, inclusive.
func (s Scaling) Contains(value int) bool {
	return value >= s.Min && value <= s.Max
}

// Range bounds a measurement reading.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Measurement describes a sensor payload layout.
type Measurement struct {
	Fields      []string `json:"fields,omitempty"`
	Range       *Range   `json:"range,omitempty"`
	WarningFlag string   `json:"warning_flag,omitempty"`
}

// PayloadFormat documents the ordered channels of a multi-byte payload.
type PayloadFormat struct {
	Order []string `json:"order"`
}

// ParseOptions carries the per-state metadata the parsing layer consults:
// identifier-to-value maps for toggles, scaling bounds for levels, channel
// ordering for colours, measurement layouts for sensors, and label-to-code
// tables for composite mode states.
type ParseOptions struct {
	ValueMap      map[string]bool `json:"value_map,omitempty"`
	Scaling       *Scaling        `json:"scaling,omitempty"`
	PayloadFormat *PayloadFormat  `json:"payload_format,omitempty"`
	Measurement   *Measurement    `json:"measurement,omitempty"`
	Modes         map[string]int  `json:"modes,omitempty"`
}

// CommandTemplate describes a write command: its opcode and the template
// text that renders the payload hex from a value context.
type CommandTemplate struct {
	Name            string   `json:"name"`
	Opcode          string   `json:"opcode"`
	PayloadTemplate string   `json:"payload_template"`
	Description     string   `json:"description,omitempty"`
	MultiStep       []string `json:"multi_step,omitempty"`
}

// OpcodeByte parses the template's opcode text as a byte value.
func (t CommandTemplate) OpcodeByte() (byte, error) {
	return Identifier{Opcode: t.Opcode}.Byte()
}

// Render produces the payload hex for this template from a value context.
// Output is uppercase with whitespace stripped.
func (t CommandTemplate) Render(ctx map[string]any) (string, error) {
	return renderTemplate(t.PayloadTemplate, ctx)
}

// StateEntry is a single state definition from the dataset: which opcodes
// report it, how inbound payloads decode, and how writes are rendered.
type StateEntry struct {
	StateName        string                `json:"state_name"`
	OpType           string                `json:"op_type"`
	Identifiers      map[string]Identifier `json:"identifiers"`
	ParseOptions     ParseOptions          `json:"parse_options"`
	CommandTemplates []CommandTemplate     `json:"command_templates"`
}

// StatusOpcode returns the entry's status identifier as a byte.
func (e StateEntry) StatusOpcode() (byte, error) {
	status, ok := e.Identifiers["status"]
	if !ok {
		return 0, fmt.Errorf("%w: %q has no status identifier", ErrBadIdentifier, e.StateName)
	}
	return status.Byte()
}

// Template returns the named command template.
//
// Returns:
//   - CommandTemplate: The matching template
//   - error: ErrTemplateNotFound if no template carries that name
func (e StateEntry) Template(name string) (CommandTemplate, error) {
	for _, tmpl := range e.CommandTemplates {
		if tmpl.Name == name {
			return tmpl, nil
		}
	}
	return CommandTemplate{}, fmt.Errorf("%w: %q in state %q", ErrTemplateNotFound, name, e.StateName)
}

// Catalog holds the parsed state definitions, read-only after loading.
// A single handle is loaded at process start and passed into state
// constructors; there is no process-wide cache.
type Catalog struct {
	states map[string]StateEntry
}

// Load parses the embedded state dataset.
//
// Returns:
//   - *Catalog: Read-only catalog handle
//   - error: If the embedded data is malformed (build-time defect)
func Load() (*Catalog, error) {
	raw, err := statesFS.ReadFile("data/device_states.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded state dataset: %w", err)
	}

	var document struct {
		States []StateEntry `json:"states"`
	}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("parsing embedded state dataset: %w", err)
	}

	states := make(map[string]StateEntry, len(document.States))
	for _, entry := range document.States {
		states[entry.StateName] = entry
	}

	return &Catalog{states: states}, nil
}

// State retrieves a state entry by name.
//
// Returns:
//   - StateEntry: The matching entry
//   - error: ErrStateNotFound if the name is unknown
func (c *Catalog) State(name string) (StateEntry, error) {
	entry, ok := c.states[name]
	if !ok {
		return StateEntry{}, fmt.Errorf("%w: %q", ErrStateNotFound, name)
	}
	return entry, nil
}

// Len returns the number of state entries in the catalog.
func (c *Catalog) Len() int {
	return len(c.states)
}
