package opcode

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultFrameSize is the fixed binary frame length, checksum included.
// Every short-range command observed in the wild uses 20-byte frames.
const DefaultFrameSize = 20

// normalizeHex strips whitespace and an optional 0x prefix, and left-pads
// odd-length input with a leading zero so it decodes to whole bytes.
func normalizeHex(s string) string {
	text := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.HasPrefix(strings.ToLower(text), "0x") {
		text = text[2:]
	}
	if len(text)%2 != 0 {
		text = "0" + text
	}
	return text
}

// HexToBase64 converts hexadecimal payload text to base64.
//
// The input may carry a 0x prefix, embedded spaces, or an odd digit count;
// all are normalized before decoding.
//
// Returns:
//   - string: Base64-encoded payload
//   - error: ErrInvalidHex if the text is not valid hexadecimal
func HexToBase64(hexStr string) (string, error) {
	data, err := hex.DecodeString(normalizeHex(hexStr))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidHex, hexStr)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Base64ToHex converts a base64-encoded payload back to uppercase hex text.
//
// Returns:
//   - string: Uppercase hexadecimal without prefix
//   - error: ErrInvalidBase64 if decoding fails
func Base64ToHex(b64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidBase64, b64)
	}
	return strings.ToUpper(hex.EncodeToString(data)), nil
}

// AsOpcode normalizes an opcode to its canonical string form:
// 0x-prefixed, even-length, uppercase hexadecimal.
//
// Accepts a non-negative integer or a hex string (with or without prefix).
//
// Returns:
//   - string: Canonical opcode, e.g. "0x33", "0x01AA"
//   - error: ErrInvalidOpcode for negative, empty, or non-hex input
func AsOpcode(value any) (string, error) {
	var hexPart string
	switch v := value.(type) {
	case int:
		if v < 0 {
			return "", fmt.Errorf("%w: negative value %d", ErrInvalidOpcode, v)
		}
		hexPart = fmt.Sprintf("%X", v)
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return "", fmt.Errorf("%w: empty string", ErrInvalidOpcode)
		}
		text = normalizeHex(text)
		if _, err := hex.DecodeString(text); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidOpcode, v)
		}
		hexPart = strings.ToUpper(text)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidOpcode, value)
	}

	if len(hexPart)%2 != 0 {
		hexPart = "0" + hexPart
	}
	return "0x" + hexPart, nil
}

// AssembleCommand builds a fixed-length binary command frame.
//
// The frame layout is:
//
//	identifier bytes | payload | extra payload | zero padding   (frameSize-1 bytes)
//	XOR checksum over all preceding bytes                       (1 byte)
//
// Parameters:
//   - identifier: Opcode plus identifier sequence bytes
//   - payload: Command payload bytes (may be nil)
//   - extraPayload: Optional trailing payload (may be nil)
//   - frameSize: Total frame length; 0 selects DefaultFrameSize
//
// Returns:
//   - []byte: Frame of exactly frameSize bytes
//   - error: ErrFrameTooLarge if the content cannot fit before the checksum
func AssembleCommand(identifier []byte, payload, extraPayload []byte, frameSize int) ([]byte, error) {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}

	frame := make([]byte, 0, frameSize)
	frame = append(frame, identifier...)
	frame = append(frame, payload...)
	frame = append(frame, extraPayload...)

	if len(frame) >= frameSize {
		return nil, fmt.Errorf("%w: %d bytes into %d-byte frame", ErrFrameTooLarge, len(frame), frameSize)
	}

	// Zero-pad up to the checksum slot.
	for len(frame) < frameSize-1 {
		frame = append(frame, 0x00)
	}

	var checksum byte
	for _, b := range frame {
		checksum ^= b
	}
	frame = append(frame, checksum)

	return frame, nil
}

// BLECommandToBase64 assembles a binary frame and encodes it for the
// short-range transport.
//
// Parameters mirror AssembleCommand.
func BLECommandToBase64(identifier []byte, payload, extraPayload []byte, frameSize int) (string, error) {
	frame, err := AssembleCommand(identifier, payload, extraPayload, frameSize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(frame), nil
}

// IoTPayloadToBase64 encodes raw payload bytes for the cloud transport.
// No framing or checksum is applied; the cloud channel carries the bare
// payload.
func IoTPayloadToBase64(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}
