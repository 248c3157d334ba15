package state

import (
	"reflect"

	"github.com/google/uuid"
)

// ParseStrategy selects how a state consumes inbound reports. The op-code
// and multi-op strategies also feed the structured-state hook after the
// opcode path, since device reports routinely carry both sections.
type ParseStrategy int

const (
	// ParseNone ignores all inbound payloads.
	ParseNone ParseStrategy = iota

	// ParseStateOnly consumes only the structured state section.
	ParseStateOnly

	// ParseOpCode consumes filtered opcode commands one at a time, then
	// the structured section.
	ParseOpCode

	// ParseMultiOp consumes the whole filtered command list as one
	// aggregated payload, then the structured section.
	ParseMultiOp
)

// CommandPayload is one transport-ready command produced by a write. It is
// immutable once queued.
type CommandPayload struct {
	CommandID string `json:"commandId"`

	// Name is the capability the write targets; Command is the catalog
	// template that rendered the payload.
	Name    string `json:"name"`
	Command string `json:"command"`

	Opcode     string `json:"opcode"`
	PayloadHex string `json:"payload_hex"`
	BLEBase64  string `json:"ble_base64"`
	IoTBase64  string `json:"iot_base64"`
}

// Expectation is a partial pattern that recognizes the report acknowledging
// a pending command. A command may register several expectations; any
// single match clears the whole command.
//
// Wildcards: nil values in State subtrees, Wildcard entries in OpCommand.
type Expectation struct {
	// State matches against the structured report section.
	State map[string]any

	// OpCommand matches against entries of the opcode command list.
	OpCommand []int
}

// Matches reports whether an inbound report satisfies this expectation.
func (e Expectation) Matches(report Report) bool {
	if e.State != nil && report.State != nil {
		if DeepPartialMatch(e.State, report.State) {
			return true
		}
	}
	if e.OpCommand != nil {
		for _, command := range report.Op {
			if opCommandMatches(e.OpCommand, command) {
				return true
			}
		}
	}
	return false
}

// ClearEvent is emitted exactly once when a pending command reaches its
// terminal state via an acknowledging report.
type ClearEvent struct {
	CommandID string `json:"commandId"`
	State     string `json:"state"`
	Value     any    `json:"value"`
}

// Translation is the result of converting a desired value into transport
// commands plus the expectations that will acknowledge them.
type Translation struct {
	Commands     []CommandPayload
	Expectations []Expectation
}

// Config assembles a DeviceState. Zero-value fields fall back to sensible
// defaults: DefaultHistoryDepth for history, no opcode routing when
// Identifier is nil.
type Config[T any] struct {
	// Name is the capability name, unique per device.
	Name string

	// Initial is the starting value, recorded as the first history entry.
	Initial T

	// Strategy selects the inbound dispatch behaviour.
	Strategy ParseStrategy

	// HistoryDepth bounds the rollback stack.
	HistoryDepth int

	// OpType is the report opcode this state answers to. Ignored unless
	// Identifier is set.
	OpType int

	// Identifier routes opcode commands to this state. Wildcard entries
	// match any byte.
	Identifier []int

	// Translate converts a desired value into commands and expectations.
	// Returning nil rejects the write; absent means not commandable.
	Translate func(next T) *Translation

	// OnState consumes the structured section of an inbound report.
	OnState func(report Report)

	// OnOpCommand consumes one augmented opcode command (routing prefix
	// re-attached).
	OnOpCommand func(command []int)

	// OnMultiOp consumes the aggregated augmented command list.
	OnMultiOp func(commands [][]int)

	// Coerce converts an untyped write value (e.g. decoded JSON) into T.
	// Absent means untyped writes are rejected.
	Coerce func(value any) (T, bool)
}

// DeviceState is the typed container for one named device capability. It
// owns the current value, a bounded rollback history, the outbound command
// queue, and the pending-command expectations awaiting acknowledgement.
//
// All methods must be called from the coordinator's event loop; the type
// itself performs no locking.
type DeviceState[T any] struct {
	name     string
	value    T
	history  *BoundedStack[T]
	strategy ParseStrategy

	opType     int
	identifier []int

	translate   func(next T) *Translation
	onState     func(report Report)
	onOpCommand func(command []int)
	onMultiOp   func(commands [][]int)
	coerce      func(value any) (T, bool)

	queue          []CommandPayload
	pending        map[string][]Expectation
	clearCallbacks []func(ClearEvent)
	listeners      []func(T)
}

// New builds a DeviceState from cfg.
func New[T any](cfg Config[T]) *DeviceState[T] {
	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	history, _ := NewBoundedStack[T](depth)
	history.Push(cfg.Initial)

	opType := cfg.OpType
	if cfg.Identifier == nil {
		opType = -1
	}

	return &DeviceState[T]{
		name:        cfg.Name,
		value:       cfg.Initial,
		history:     history,
		strategy:    cfg.Strategy,
		opType:      opType,
		identifier:  cfg.Identifier,
		translate:   cfg.Translate,
		onState:     cfg.OnState,
		onOpCommand: cfg.OnOpCommand,
		onMultiOp:   cfg.OnMultiOp,
		coerce:      cfg.Coerce,
		pending:     make(map[string][]Expectation),
	}
}

// Name returns the capability name.
func (s *DeviceState[T]) Name() string { return s.name }

// Value returns the current, most recently accepted value.
func (s *DeviceState[T]) Value() T { return s.value }

// AnyValue returns the current value untyped, for callers holding states of
// mixed value types behind a common interface.
func (s *DeviceState[T]) AnyValue() any { return s.value }

// Identifier returns the opcode routing identifier, nil when unrouted.
func (s *DeviceState[T]) Identifier() []int { return s.identifier }

// IsCommandable reports whether writes translate into device commands.
func (s *DeviceState[T]) IsCommandable() bool { return s.translate != nil }

// Subscribe registers a listener invoked with the current value immediately
// and with every subsequent update. The returned function unsubscribes.
func (s *DeviceState[T]) Subscribe(fn func(T)) func() {
	s.listeners = append(s.listeners, fn)
	fn(s.value)
	idx := len(s.listeners) - 1
	return func() {
		if idx < len(s.listeners) && s.listeners[idx] != nil {
			s.listeners[idx] = nil
		}
	}
}

// OnClear registers a callback for clear events.
func (s *DeviceState[T]) OnClear(fn func(ClearEvent)) {
	s.clearCallbacks = append(s.clearCallbacks, fn)
}

// Update accepts value as the new current value, pushing the previous one
// onto history when it differs from the newest history entry.
func (s *DeviceState[T]) Update(value T) {
	if top, ok := s.history.Peek(); !ok || !reflect.DeepEqual(top, s.value) {
		s.history.Push(s.value)
	}
	s.value = value
	s.notify(value)
}

func (s *DeviceState[T]) notify(value T) {
	for _, listener := range s.listeners {
		if listener != nil {
			listener(value)
		}
	}
}

// SetState translates a desired value into transport commands.
//
// When the value is rejected by the translation (out of range, wrong shape)
// the write is a silent no-op, observable only as an empty return. On
// success one command id is generated; every resulting payload is stamped
// with it, the expectations are registered for acknowledgement matching,
// and the payloads are queued for the transport layer.
//
// Returns:
//   - []string: The generated command id, or empty when rejected
func (s *DeviceState[T]) SetState(next T) []string {
	if s.translate == nil {
		return nil
	}
	translation := s.translate(next)
	if translation == nil || len(translation.Commands) == 0 {
		return nil
	}

	commandID := uuid.NewString()
	s.pending[commandID] = translation.Expectations
	for _, command := range translation.Commands {
		command.CommandID = commandID
		command.Name = s.name
		s.queue = append(s.queue, command)
	}
	return []string{commandID}
}

// SetStateValue accepts an untyped write value, coercing it to T.
func (s *DeviceState[T]) SetStateValue(value any) []string {
	if s.coerce == nil {
		return nil
	}
	typed, ok := s.coerce(value)
	if !ok {
		return nil
	}
	return s.SetState(typed)
}

// DrainCommands removes and returns all queued command payloads, oldest
// first. The transport layer calls this to publish.
func (s *DeviceState[T]) DrainCommands() []CommandPayload {
	drained := s.queue
	s.queue = nil
	return drained
}

// PendingCount returns the number of commands awaiting acknowledgement.
func (s *DeviceState[T]) PendingCount() int { return len(s.pending) }

// ClearCommands drops the listed pending commands, emitting one ClearEvent
// per command actually held. The lifecycle coordinator calls this when its
// expiry sweep removes commands that never received a matching report. Ids
// unknown to this state are ignored.
func (s *DeviceState[T]) ClearCommands(commandIDs ...string) {
	for _, id := range commandIDs {
		s.clearPending(id)
	}
}

// PreviousState rewinds the value history by n entries and republishes the
// resulting value as current. This is a local rollback; no device commands
// are generated. Rewinding past the retained window converges on the
// oldest value still held.
func (s *DeviceState[T]) PreviousState(n int) []string {
	var (
		target T
		found  bool
	)
	for i := 0; i < n; i++ {
		value, ok := s.history.Pop()
		if !ok {
			break
		}
		target = value
		found = true
	}
	if !found {
		return nil
	}
	s.value = target
	s.notify(target)
	return []string{}
}

// Parse dispatches an inbound report according to the state's strategy.
// Malformed or absent sections are ignored without error. Matching pending
// commands are cleared, emitting one ClearEvent each.
func (s *DeviceState[T]) Parse(report Report) {
	switch s.strategy {
	case ParseNone:
		return
	case ParseOpCode:
		filtered := FilterOpCommands(report.Op, s.opType, s.identifier)
		for _, command := range filtered {
			matched := s.matchingOpCommandIDs([][]int{command})
			if s.onOpCommand != nil {
				s.onOpCommand(s.augment(command))
			}
			for _, id := range matched {
				s.clearPending(id)
			}
		}
		s.parseStructured(report)
	case ParseMultiOp:
		filtered := FilterOpCommands(report.Op, s.opType, s.identifier)
		if len(filtered) > 0 {
			matched := s.matchingOpCommandIDs(filtered)
			if s.onMultiOp != nil {
				augmented := make([][]int, len(filtered))
				for i, command := range filtered {
					augmented[i] = s.augment(command)
				}
				s.onMultiOp(augmented)
			}
			for _, id := range matched {
				s.clearPending(id)
			}
		}
		s.parseStructured(report)
	case ParseStateOnly:
		s.parseStructured(report)
	}
}

// parseStructured handles the REST-style section: find at most one pending
// command acknowledged by the report, feed the state hook, then clear.
func (s *DeviceState[T]) parseStructured(report Report) {
	if report.Cmd != "" && report.Cmd != "status" {
		return
	}
	matchedID := ""
	for id, expectations := range s.pending {
		for _, expectation := range expectations {
			if expectation.Matches(report) {
				matchedID = id
				break
			}
		}
		if matchedID != "" {
			break
		}
	}
	if s.onState != nil {
		s.onState(report)
	}
	if matchedID != "" {
		s.clearPending(matchedID)
	}
}

// augment re-attaches the routing prefix stripped by filtering, so decode
// hooks see the full command as it appeared on the wire.
func (s *DeviceState[T]) augment(command []int) []int {
	if s.opType < 0 {
		return append([]int(nil), command...)
	}
	header := append([]int{s.opType}, s.identifier...)
	return append(header, command...)
}

func (s *DeviceState[T]) matchingOpCommandIDs(commands [][]int) []string {
	var matches []string
	for id, expectations := range s.pending {
		for _, expectation := range expectations {
			if expectation.OpCommand == nil {
				continue
			}
			found := false
			for _, command := range commands {
				if opCommandMatches(expectation.OpCommand, command) {
					found = true
					break
				}
			}
			if found {
				matches = append(matches, id)
				break
			}
		}
	}
	return matches
}

// clearPending removes a pending command and emits its clear event exactly
// once. Unknown ids are ignored, which makes late or duplicate reports
// harmless.
func (s *DeviceState[T]) clearPending(commandID string) {
	if _, ok := s.pending[commandID]; !ok {
		return
	}
	delete(s.pending, commandID)
	event := ClearEvent{CommandID: commandID, State: s.name, Value: s.value}
	for _, callback := range s.clearCallbacks {
		callback(event)
	}
}
