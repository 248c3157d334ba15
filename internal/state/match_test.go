package state

import "testing"

func TestDeepPartialMatch(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{
			name:     "nil matches anything",
			expected: nil,
			actual:   map[string]any{"x": 1},
			want:     true,
		},
		{
			name:     "subset of keys matches",
			expected: map[string]any{"power": true},
			actual:   map[string]any{"power": true, "brightness": 50},
			want:     true,
		},
		{
			name:     "missing key fails",
			expected: map[string]any{"power": true},
			actual:   map[string]any{"brightness": 50},
			want:     false,
		},
		{
			name:     "nested wildcard value matches",
			expected: map[string]any{"color": nil},
			actual:   map[string]any{"color": map[string]any{"red": 255}},
			want:     true,
		},
		{
			name:     "nested mismatch fails",
			expected: map[string]any{"state": map[string]any{"mode": 2}},
			actual:   map[string]any{"state": map[string]any{"mode": 3}},
			want:     false,
		},
		{
			name:     "sequence prefix matches longer actual",
			expected: []any{1, 2},
			actual:   []any{1, 2, 3, 4},
			want:     true,
		},
		{
			name:     "sequence shorter actual fails",
			expected: []any{1, 2, 3},
			actual:   []any{1, 2},
			want:     false,
		},
		{
			name:     "int expectation matches float actual",
			expected: map[string]any{"brightness": 75},
			actual:   map[string]any{"brightness": float64(75)},
			want:     true,
		},
		{
			name:     "map expectation against scalar fails",
			expected: map[string]any{"x": 1},
			actual:   "scalar",
			want:     false,
		},
		{
			name:     "int slice expectation against any slice",
			expected: []int{170, 1},
			actual:   []any{float64(170), float64(1), float64(1)},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeepPartialMatch(tt.expected, tt.actual); got != tt.want {
				t.Errorf("DeepPartialMatch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpCommandMatches(t *testing.T) {
	tests := []struct {
		name     string
		expected []int
		actual   []int
		want     bool
	}{
		{
			name:     "exact match",
			expected: []int{0xAA, 0x01, 0x01},
			actual:   []int{0xAA, 0x01, 0x01},
			want:     true,
		},
		{
			name:     "longer actual matches",
			expected: []int{0xAA, 0x01},
			actual:   []int{0xAA, 0x01, 0x00, 0x00},
			want:     true,
		},
		{
			name:     "wildcard entry matches any byte",
			expected: []int{0xAA, Wildcard, 0x01},
			actual:   []int{0xAA, 0x7F, 0x01},
			want:     true,
		},
		{
			name:     "shorter actual fails",
			expected: []int{0xAA, 0x01, 0x01},
			actual:   []int{0xAA, 0x01},
			want:     false,
		},
		{
			name:     "mismatch fails",
			expected: []int{0xAA, 0x01, 0x01},
			actual:   []int{0xAA, 0x01, 0x00},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := opCommandMatches(tt.expected, tt.actual); got != tt.want {
				t.Errorf("opCommandMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterOpCommands(t *testing.T) {
	commands := [][]int{
		{0xAA, 0x01, 0x01},
		{0xAA, 0x04, 0x4B},
		{0x33, 0x01, 0x00},
	}

	tests := []struct {
		name       string
		opType     int
		identifier []int
		want       [][]int
	}{
		{
			name:       "matches type and identifier and strips prefix",
			opType:     0xAA,
			identifier: []int{0x01},
			want:       [][]int{{0x01}},
		},
		{
			name:       "wildcard identifier entry",
			opType:     0xAA,
			identifier: []int{Wildcard},
			want:       [][]int{{0x01}, {0x4B}},
		},
		{
			name:       "negative type passes everything unchanged",
			opType:     -1,
			identifier: nil,
			want:       commands,
		},
		{
			name:       "type with nil identifier drops everything",
			opType:     0xAA,
			identifier: nil,
			want:       nil,
		},
		{
			name:       "unmatched type drops everything",
			opType:     0x55,
			identifier: []int{0x01},
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterOpCommands(commands, tt.opType, tt.identifier)
			if len(got) != len(tt.want) {
				t.Fatalf("FilterOpCommands() returned %d commands, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if len(got[i]) != len(tt.want[i]) {
					t.Fatalf("command %d = %v, want %v", i, got[i], tt.want[i])
				}
				for j := range tt.want[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("command %d = %v, want %v", i, got[i], tt.want[i])
						break
					}
				}
			}
		})
	}
}

func TestFilterOpCommands_DoesNotAliasInput(t *testing.T) {
	commands := [][]int{{0xAA, 0x01, 0x01}}
	got := FilterOpCommands(commands, -1, nil)
	got[0][0] = 0xFF
	if commands[0][0] != 0xAA {
		t.Error("mutating filtered output modified the input command")
	}
}
