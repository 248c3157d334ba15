// Package catalog loads the embedded state dataset that drives every
// catalog-backed device state.
//
// Each entry names a logical state (power, brightness, colour, operating
// mode, sensor readings) and carries:
//
//   - Identifiers: which status opcode reports the state and which opcode
//     sequence writes it
//   - ParseOptions: value maps for toggles, scaling bounds for levels,
//     channel ordering for colours, measurement layouts for sensors, and
//     label-to-code tables for composite mode states
//   - CommandTemplates: payload templates rendered against a value context
//     at write time
//
// # Payload Templates
//
// Templates are literal hex interleaved with {{ expression }} blocks:
//
//	"04{{ value | int | format('02X') }}"     // brightness byte
//	"01{{ '01' if value else '00' }}"         // boolean toggle
//
// Supported filters are int (coercion) and format (width/zero-pad integer
// formatting). Expressions may also be conditionals choosing between two
// tokens. Rendered output is uppercase hex with whitespace stripped.
//
// # Lifecycle
//
// Load parses the embedded dataset once at process start. The returned
// Catalog is an explicit handle passed into state constructors, read-only
// thereafter and safe for concurrent use.
package catalog
