// Package opcode implements the binary frame codec for short-range device
// commands.
//
// Every binary command in the system shares one canonical frame shape:
//
//	┌─────────┬──────────────────────────────┬──────────┐
//	│ opcode  │ identifier + payload (padded) │ checksum │
//	│ 1 byte  │ frame_size - 2 bytes          │ 1 byte   │
//	└─────────┴──────────────────────────────┴──────────┘
//
// The frame is always exactly frame_size bytes (default 20). Content is
// zero-padded up to the checksum slot, and the final byte is the XOR of all
// preceding bytes. Content that cannot fit before the checksum is a fatal
// construction error (ErrFrameTooLarge), never silently truncated.
//
// # Transport Encodings
//
// The same logical command is encoded twice for the two outbound channels:
//
//   - BLECommandToBase64: full frame (padding + checksum), base64
//   - IoTPayloadToBase64: bare payload bytes, base64, no framing
//
// # Opcode Normalization
//
// AsOpcode accepts an integer or hex string and returns the canonical
// "0x"-prefixed, even-length, uppercase form used in queued command items.
//
// # Command Vectors
//
// The embedded catalog (data/commands.json) carries frames recorded from
// real device sessions. They pin the codec output byte-for-byte:
//
//	entry, _ := catalog.Lookup("power_on")
//	frame, _ := entry.Assemble()
//	base64.StdEncoding.EncodeToString(frame) // "MwEBAQAAAAAAAAAAAAAAAAAAADI="
//
// # Thread Safety
//
// All functions are pure. A loaded Catalog is read-only and safe for
// concurrent use.
package opcode
