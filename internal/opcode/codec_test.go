package opcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestHexToBase64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "plain hex",
			input: "330101",
			want:  "MwEB",
		},
		{
			name:  "0x prefix stripped",
			input: "0x330101",
			want:  "MwEB",
		},
		{
			name:  "embedded spaces stripped",
			input: "33 01 01",
			want:  "MwEB",
		},
		{
			name:  "odd length left-padded",
			input: "1FF",
			want:  "Af8=",
		},
		{
			name:  "lowercase accepted",
			input: "ff",
			want:  "/w==",
		},
		{
			name:    "non-hex rejected",
			input:   "zz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HexToBase64(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HexToBase64(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidHex) {
					t.Errorf("error = %v, want ErrInvalidHex", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("HexToBase64(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBase64ToHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "round trip is uppercase",
			input: "MwEB",
			want:  "330101",
		},
		{
			name:  "high bytes",
			input: "Af8=",
			want:  "01FF",
		},
		{
			name:    "invalid base64",
			input:   "not base64!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Base64ToHex(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Base64ToHex(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidBase64) {
					t.Errorf("error = %v, want ErrInvalidBase64", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Base64ToHex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHexBase64RoundTrip(t *testing.T) {
	inputs := []string{"33", "0102", "330101", "FFEEDDCCBBAA", "00"}

	for _, in := range inputs {
		b64, err := HexToBase64(in)
		if err != nil {
			t.Fatalf("HexToBase64(%q) unexpected error: %v", in, err)
		}
		back, err := Base64ToHex(b64)
		if err != nil {
			t.Fatalf("Base64ToHex(%q) unexpected error: %v", b64, err)
		}
		if back != in {
			t.Errorf("round trip of %q = %q", in, back)
		}
	}
}

func TestAsOpcode(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{
			name:  "small int",
			input: 0x33,
			want:  "0x33",
		},
		{
			name:  "int pads to even length",
			input: 0x1AA,
			want:  "0x01AA",
		},
		{
			name:  "zero",
			input: 0,
			want:  "0x00",
		},
		{
			name:  "lowercase hex string",
			input: "aa",
			want:  "0xAA",
		},
		{
			name:  "prefixed hex string",
			input: "0x33",
			want:  "0x33",
		},
		{
			name:  "odd-length string padded",
			input: "1ff",
			want:  "0x01FF",
		},
		{
			name:    "negative int rejected",
			input:   -1,
			wantErr: true,
		},
		{
			name:    "empty string rejected",
			input:   "",
			wantErr: true,
		},
		{
			name:    "non-hex string rejected",
			input:   "power",
			wantErr: true,
		},
		{
			name:    "unsupported type rejected",
			input:   3.14,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AsOpcode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AsOpcode(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidOpcode) {
					t.Errorf("error = %v, want ErrInvalidOpcode", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("AsOpcode(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAssembleCommand(t *testing.T) {
	tests := []struct {
		name       string
		identifier []byte
		payload    []byte
		extra      []byte
		frameSize  int
		wantErr    bool
	}{
		{
			name:       "identifier only",
			identifier: []byte{0x33, 0x01},
		},
		{
			name:       "identifier plus payload",
			identifier: []byte{0x33, 0x01, 0x01},
			payload:    []byte{0x01},
		},
		{
			name:       "extra payload appended",
			identifier: []byte{0x33, 0x04, 0x01},
			payload:    []byte{0x4B},
			extra:      []byte{0x00},
		},
		{
			name:       "exactly fills frame",
			identifier: make([]byte, 18),
			payload:    nil,
		},
		{
			// 19 content bytes leave exactly the checksum slot free.
			name:       "fills every byte before the checksum",
			identifier: make([]byte, 19),
		},
		{
			name:       "content reaches checksum slot overflows",
			identifier: make([]byte, 20),
			wantErr:    true,
		},
		{
			name:       "content exceeds frame size overflows",
			identifier: make([]byte, 10),
			payload:    make([]byte, 10),
			wantErr:    true,
		},
		{
			name:       "custom frame size",
			identifier: []byte{0x01},
			payload:    []byte{0x02},
			frameSize:  8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := AssembleCommand(tt.identifier, tt.payload, tt.extra, tt.frameSize)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AssembleCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrFrameTooLarge) {
					t.Errorf("error = %v, want ErrFrameTooLarge", err)
				}
				return
			}

			wantSize := tt.frameSize
			if wantSize == 0 {
				wantSize = DefaultFrameSize
			}
			if len(frame) != wantSize {
				t.Fatalf("frame length = %d, want %d", len(frame), wantSize)
			}

			var checksum byte
			for _, b := range frame[:len(frame)-1] {
				checksum ^= b
			}
			if frame[len(frame)-1] != checksum {
				t.Errorf("checksum byte = 0x%02X, want 0x%02X", frame[len(frame)-1], checksum)
			}
		})
	}
}

func TestAssembleCommand_PowerOnVector(t *testing.T) {
	// Recorded frame from a real device session: opcode 0x33, power
	// identifier, payload 0x01, checksum 0x32.
	frame, err := AssembleCommand([]byte{0x33, 0x01, 0x01}, []byte{0x01}, nil, 0)
	if err != nil {
		t.Fatalf("AssembleCommand() unexpected error: %v", err)
	}

	want := "MwEBAQAAAAAAAAAAAAAAAAAAADI="
	if got := base64.StdEncoding.EncodeToString(frame); got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}

func TestBLECommandToBase64(t *testing.T) {
	got, err := BLECommandToBase64([]byte{0x33, 0x01, 0x01}, []byte{0x01}, nil, 0)
	if err != nil {
		t.Fatalf("BLECommandToBase64() unexpected error: %v", err)
	}
	if want := "MwEBAQAAAAAAAAAAAAAAAAAAADI="; got != want {
		t.Errorf("BLECommandToBase64() = %q, want %q", got, want)
	}

	if _, err := BLECommandToBase64(make([]byte, 25), nil, nil, 0); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized frame error = %v, want ErrFrameTooLarge", err)
	}
}

func TestIoTPayloadToBase64(t *testing.T) {
	got := IoTPayloadToBase64([]byte{0x01, 0xFF})
	if want := "Af8="; got != want {
		t.Errorf("IoTPayloadToBase64() = %q, want %q", got, want)
	}
}

func TestAssembleCommand_DoesNotAliasInputs(t *testing.T) {
	identifier := []byte{0x33, 0x01}
	payload := []byte{0x05}

	frame, err := AssembleCommand(identifier, payload, nil, 0)
	if err != nil {
		t.Fatalf("AssembleCommand() unexpected error: %v", err)
	}

	frame[0] = 0xFF
	if !bytes.Equal(identifier, []byte{0x33, 0x01}) {
		t.Error("mutating frame modified identifier input")
	}
}
