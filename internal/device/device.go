package device

import (
	"fmt"
	"sort"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/state"
)

// State is the behaviour a device needs from each of its capability
// states. *state.DeviceState[T] satisfies it for every value type, as does
// *state.ModeState through its embedded state.
type State interface {
	Name() string
	IsCommandable() bool
	AnyValue() any
	Parse(report state.Report)
	SetStateValue(value any) []string
	DrainCommands() []state.CommandPayload
	PendingCount() int
	ClearCommands(commandIDs ...string)
	PreviousState(n int) []string
	OnClear(fn func(state.ClearEvent))
}

// modeWriter is the write surface mode states expose instead of the
// queue-and-drain cycle: commands come back directly.
type modeWriter interface {
	SetState(target any) ([]state.CommandPayload, error)
	ActiveMode() state.ModeDelegate
}

// Device owns the named capability states of one physical device and
// fans inbound reports out to all of them.
//
// A Device is not safe for concurrent use; like the states it holds, it
// belongs to the engine's event loop.
type Device struct {
	metadata Metadata
	states   map[string]State
	order    []string
}

// New creates an empty device container for the given metadata.
func New(metadata Metadata) *Device {
	return &Device{
		metadata: metadata,
		states:   make(map[string]State),
	}
}

// ID returns the device identifier.
func (d *Device) ID() string { return d.metadata.DeviceID }

// Metadata returns a copy of the device's discovery metadata.
func (d *Device) Metadata() Metadata { return d.metadata.DeepCopy() }

// AddState registers a capability state. A state added under a name
// already held replaces the previous one.
func (d *Device) AddState(s State) State {
	if _, exists := d.states[s.Name()]; !exists {
		d.order = append(d.order, s.Name())
	}
	d.states[s.Name()] = s
	return s
}

// State returns the named capability state.
func (d *Device) State(name string) (State, bool) {
	s, ok := d.states[name]
	return s, ok
}

// StateNames returns the registered state names in registration order.
func (d *Device) StateNames() []string {
	return append([]string(nil), d.order...)
}

// Parse normalizes a raw payload and hands the report to every state.
// States that find nothing relevant in it ignore it.
func (d *Device) Parse(payload map[string]any) {
	d.ParseReport(state.ReportFromMap(payload))
}

// ParseReport fans an already-normalized report out to every state.
func (d *Device) ParseReport(report state.Report) {
	for _, name := range d.order {
		d.states[name].Parse(report)
	}
}

// SetState writes a desired value to the named state and returns the
// command payloads to publish. Mode states translate immediately; other
// states queue and are drained here, so the caller always receives the
// full set of payloads produced by the write.
//
// Returns:
//   - []state.CommandPayload: Commands to hand to the lifecycle coordinator
//   - error: ErrStateNotFound, ErrValueRejected, or a mode resolution failure
func (d *Device) SetState(name string, value any) ([]state.CommandPayload, error) {
	s, ok := d.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, name)
	}
	if mode, ok := s.(modeWriter); ok {
		return mode.SetState(value)
	}
	ids := s.SetStateValue(value)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s = %v", ErrValueRejected, name, value)
	}
	return s.DrainCommands(), nil
}

// Rollback rewinds the named state's history by the given number of
// entries. This is a local operation; no commands are sent.
func (d *Device) Rollback(name string, steps int) error {
	s, ok := d.states[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrStateNotFound, name)
	}
	s.PreviousState(steps)
	return nil
}

// ClearCommands drops the listed pending commands from every state. The
// expiry sweep routes through here since it does not know which state
// issued a command.
func (d *Device) ClearCommands(commandIDs ...string) {
	for _, name := range d.order {
		d.states[name].ClearCommands(commandIDs...)
	}
}

// OnClear registers a callback for clear events from every current state.
func (d *Device) OnClear(fn func(state.ClearEvent)) {
	for _, name := range d.order {
		d.states[name].OnClear(fn)
	}
}

// PendingCount returns the number of commands awaiting acknowledgement
// across all states.
func (d *Device) PendingCount() int {
	total := 0
	for _, s := range d.states {
		total += s.PendingCount()
	}
	return total
}

// Snapshot returns the current value of every state, keyed by state name.
// Mode states report their active mode's name; unresolved modes report nil.
func (d *Device) Snapshot() map[string]any {
	snap := make(map[string]any, len(d.states))
	for _, name := range d.order {
		s := d.states[name]
		if mode, ok := s.(modeWriter); ok {
			if active := mode.ActiveMode(); active != nil {
				snap[name] = active.Name()
			} else {
				snap[name] = nil
			}
			continue
		}
		snap[name] = s.AnyValue()
	}
	return snap
}

// Commandable returns the names of states that accept writes, sorted.
func (d *Device) Commandable() []string {
	var names []string
	for name, s := range d.states {
		if s.IsCommandable() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
