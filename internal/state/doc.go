// Package state implements the typed device-state containers at the core
// of the command engine.
//
// A DeviceState owns one named capability of a device: its current value,
// a bounded rollback history, the outbound command queue, and the pending
// commands awaiting acknowledgement. Writing a value (SetState) translates
// it into transport payloads and registers Expectations; parsing an
// inbound report (Parse) updates the value through the state's decode
// hooks and clears any pending command the report acknowledges, emitting
// exactly one ClearEvent per command.
//
// # Parse Strategies
//
// Each state consumes reports one of four ways:
//
//   - ParseStateOnly: structured (REST-style) section only
//   - ParseOpCode: filtered opcode commands one at a time, then the
//     structured section
//   - ParseMultiOp: the whole filtered command list at once, then the
//     structured section
//   - ParseNone: ignore everything
//
// Opcode filtering selects commands whose leading byte matches the
// state's op type and whose following bytes match its identifier, with
// Wildcard entries matching anything. Malformed or absent payload
// sections are ignored silently; payload shapes vary by firmware
// revision, so availability wins over strictness.
//
// # Matching
//
// An Expectation is a partial pattern: a structural subtree that must
// appear in the report's state section, or an integer sequence that must
// prefix-match an entry of the opcode command list. nil subtree values
// and Wildcard sequence entries match anything. Any one matching
// expectation clears the whole command.
//
// # Composite Modes
//
// ModeState tracks which of several mutually exclusive delegates is
// active, resolving the observed identifier against each delegate's own
// identifier by suffix. Writes resolve a delegate or alias string through
// the catalog's label table and return the commands directly.
//
// # Concurrency
//
// Containers perform no locking. All mutation happens synchronously on
// the coordinator's event loop; transport callbacks marshal onto that
// loop before touching any state.
package state
