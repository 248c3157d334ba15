package state

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/catalog"
)

// ModeDelegate is the view a composite mode state needs of its delegates:
// a name for alias resolution and an identifier for suffix matching.
type ModeDelegate interface {
	Name() string
	Identifier() []int
}

// NewModeOption builds a passive delegate representing one selectable mode.
// It carries a fixed identifier and consumes no payloads of its own.
func NewModeOption(name string, identifier []int) *DeviceState[string] {
	return New(Config[string]{
		Name:       name,
		Initial:    name,
		Strategy:   ParseNone,
		OpType:     ReportOpcode,
		Identifier: identifier,
	})
}

// ModeConfig assembles a ModeState.
type ModeConfig struct {
	// Name is the composite state's capability name.
	Name string

	// Delegates is the ordered list of selectable sub-states. Nil entries
	// are skipped.
	Delegates []ModeDelegate

	// OpType is the report opcode, ReportOpcode when zero.
	OpType int

	// Identifier routes opcode commands to this state. When nil and Entry
	// is set, the entry's status opcode is used.
	Identifier []int

	// Inline selects whether the active identifier is the entire opcode
	// payload, or nested one level under a leading 0x00 marker.
	Inline bool

	// Entry optionally supplies the label-to-code table and the command
	// template that makes the state commandable.
	Entry *catalog.StateEntry
}

// ModeState tracks which of several mutually exclusive delegates is
// active. Its value is the active delegate reference, nil when the
// observed identifier matches none of them.
type ModeState struct {
	*DeviceState[ModeDelegate]

	delegates        []ModeDelegate
	inline           bool
	activeIdentifier []int

	aliases  map[string]ModeDelegate
	codes    map[string]int
	tmpl     *catalog.CommandTemplate
	writeID  []byte
	statusOp int
}

// NewModeState builds a composite mode state from cfg.
func NewModeState(cfg ModeConfig) (*ModeState, error) {
	m := &ModeState{
		inline:   cfg.Inline,
		aliases:  make(map[string]ModeDelegate),
		codes:    make(map[string]int),
		statusOp: -1,
	}

	for _, delegate := range cfg.Delegates {
		if delegate == nil {
			continue
		}
		m.delegates = append(m.delegates, delegate)
		m.aliases[normalizeModeToken(delegate.Name())] = delegate
	}

	identifier := cfg.Identifier
	if cfg.Entry != nil {
		statusOp, err := cfg.Entry.StatusOpcode()
		if err != nil {
			return nil, err
		}
		m.statusOp = int(statusOp)
		if identifier == nil {
			identifier = []int{int(statusOp)}
		}

		for label, code := range cfg.Entry.ParseOptions.Modes {
			token := normalizeModeToken(label)
			m.codes[token] = code
			if _, known := m.aliases[token]; !known {
				if delegate := m.delegateByCode(code); delegate != nil {
					m.aliases[token] = delegate
				}
			}
		}
		if len(cfg.Entry.CommandTemplates) > 0 {
			tmpl := cfg.Entry.CommandTemplates[0]
			m.tmpl = &tmpl
			writeID, err := commandIdentifier(*cfg.Entry)
			if err != nil {
				return nil, err
			}
			m.writeID = writeID
		}
	}

	opType := cfg.OpType
	if opType == 0 {
		opType = ReportOpcode
	}

	m.DeviceState = New(Config[ModeDelegate]{
		Name:       cfg.Name,
		Strategy:   ParseOpCode,
		OpType:     opType,
		Identifier: identifier,
		OnOpCommand: func(command []int) {
			payload := command
			if len(identifier) > 0 && len(command) >= 1+len(identifier) {
				payload = command[1+len(identifier):]
			}
			m.observeIdentifier(payload)
		},
		OnState: func(report Report) {
			value, ok := lookupStateValue(report.State, "mode")
			if !ok {
				return
			}
			mode, ok := intFromValue(value)
			if !ok {
				return
			}
			m.setActiveIdentifier([]int{mode})
		},
	})
	return m, nil
}

// ActiveIdentifier returns the most recently observed identifier.
func (m *ModeState) ActiveIdentifier() []int {
	return append([]int(nil), m.activeIdentifier...)
}

// ActiveMode returns the active delegate, nil when unresolved.
func (m *ModeState) ActiveMode() ModeDelegate {
	return m.Value()
}

// IsCommandable reports whether the catalog supplied a write template.
func (m *ModeState) IsCommandable() bool { return m.tmpl != nil }

// observeIdentifier extracts the active identifier from an opcode payload.
// Inline states treat the whole payload as the identifier; otherwise the
// identifier nests one level under a leading zero marker.
func (m *ModeState) observeIdentifier(payload []int) {
	if m.inline {
		m.setActiveIdentifier(payload)
		return
	}
	if len(payload) > 1 && payload[0] == 0x00 {
		m.setActiveIdentifier(payload[1:])
	}
}

// setActiveIdentifier records the identifier and recomputes the active
// delegate: the one whose own identifier is a suffix of the observed one.
func (m *ModeState) setActiveIdentifier(identifier []int) {
	m.activeIdentifier = append([]int(nil), identifier...)

	for _, delegate := range m.delegates {
		if identifiersMatch(delegate.Identifier(), m.activeIdentifier) {
			m.Update(delegate)
			return
		}
	}
	m.Update(nil)
}

func (m *ModeState) delegateByCode(code int) ModeDelegate {
	for _, delegate := range m.delegates {
		id := delegate.Identifier()
		if len(id) > 0 && id[len(id)-1] == code {
			return delegate
		}
	}
	return nil
}

// ResolveMode maps a human-readable token to a registered delegate. The
// token is matched case- and separator-insensitively, with an optional
// "mode" suffix stripped, against delegate names and catalog labels.
//
// Returns:
//   - ModeDelegate: The resolved delegate
//   - error: ErrUnknownMode when nothing matches
func (m *ModeState) ResolveMode(token string) (ModeDelegate, error) {
	if delegate, ok := m.aliases[normalizeModeToken(token)]; ok {
		return delegate, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, token)
}

// SetState selects a mode, accepting either a delegate reference or an
// alias string. The translation is driven by the catalog template keyed by
// the resolved payload code. Commands are returned directly rather than
// queued; their acknowledgement expectations are registered as usual.
//
// Returns:
//   - []CommandPayload: Commands stamped with a fresh command id
//   - error: ErrNotCommandable without a template, ErrUnknownMode for an
//     unresolvable target
func (m *ModeState) SetState(target any) ([]CommandPayload, error) {
	if m.tmpl == nil {
		return nil, ErrNotCommandable
	}

	var delegate ModeDelegate
	switch t := target.(type) {
	case ModeDelegate:
		delegate = t
	case string:
		resolved, err := m.ResolveMode(t)
		if err != nil {
			return nil, err
		}
		delegate = resolved
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMode, target)
	}

	code, ok := m.codes[normalizeModeToken(delegate.Name())]
	if !ok {
		id := delegate.Identifier()
		if len(id) == 0 {
			return nil, fmt.Errorf("%w: %q has no payload code", ErrUnknownMode, delegate.Name())
		}
		code = id[len(id)-1]
	}

	command, payloadBytes, err := buildCommand(*m.tmpl, m.writeID, map[string]any{"mode": code})
	if err != nil {
		return nil, err
	}

	sequence := []int{ReportOpcode}
	if m.statusOp >= 0 {
		sequence = append(sequence, m.statusOp)
	}
	for _, b := range payloadTail(payloadBytes, m.statusOp) {
		sequence = append(sequence, int(b))
	}

	commandID := uuid.NewString()
	command.CommandID = commandID
	command.Name = m.Name()
	m.pending[commandID] = []Expectation{{OpCommand: sequence}}

	return []CommandPayload{command}, nil
}

// payloadTail strips the status opcode from the front of a rendered
// payload so the expectation sequence does not repeat it.
func payloadTail(payload []byte, statusOp int) []byte {
	if statusOp >= 0 && len(payload) > 0 && int(payload[0]) == statusOp {
		return payload[1:]
	}
	return payload
}

// identifiersMatch resolves a delegate against the observed identifier by
// suffix: the shorter sequence must be a suffix of the longer. A report
// may carry extra leading routing bytes, or only the trailing mode byte.
func identifiersMatch(delegate, observed []int) bool {
	return isSuffix(delegate, observed) || isSuffix(observed, delegate)
}

func isSuffix(candidate, observed []int) bool {
	if len(candidate) == 0 || len(candidate) > len(observed) {
		return false
	}
	offset := len(observed) - len(candidate)
	for i, v := range candidate {
		if observed[offset+i] != v {
			return false
		}
	}
	return true
}

// normalizeModeToken lowercases a mode name, strips separators, and drops
// an optional trailing "mode".
func normalizeModeToken(token string) string {
	text := strings.ToLower(strings.TrimSpace(token))
	for _, sep := range []string{"_", "-", " "} {
		text = strings.ReplaceAll(text, sep, "")
	}
	return strings.TrimSuffix(text, "mode")
}

// NewHumidifierModeState builds the humidifier's composite mode state with
// its four selectable delegates wired from the catalog.
func NewHumidifierModeState(cat *catalog.Catalog) (*ModeState, error) {
	entry, err := cat.State("humidifier_mode")
	if err != nil {
		return nil, err
	}

	delegates := []ModeDelegate{
		NewModeOption("manual_mode", []int{0x00}),
		NewModeOption("custom_mode", []int{0x01}),
		NewModeOption("auto_mode", []int{0x02}),
		NewModeOption("program_mode", []int{0x03}),
	}

	return NewModeState(ModeConfig{
		Name:      "humidifier_mode",
		Delegates: delegates,
		Inline:    true,
		Entry:     &entry,
	})
}
