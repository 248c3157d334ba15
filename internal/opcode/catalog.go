package opcode

import (
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed data/commands.json
var commandsFS embed.FS

// CatalogEntry describes a recorded command vector: the identifier bytes,
// the payload rendered from its template, and the transport encoding
// captured from a real device session. Entries serve as regression fixtures
// for the frame codec.
type CatalogEntry struct {
	// Identifier is the opcode plus identifier sequence prefixing the frame.
	// Held as ints so the embedded JSON decodes as a plain number array.
	Identifier []int `json:"identifier"`

	// PayloadHex is the rendered payload in uppercase hex.
	PayloadHex string `json:"payload_hex"`

	// ExtraPayloadHex is an optional trailing payload in uppercase hex.
	ExtraPayloadHex string `json:"extra_payload_hex,omitempty"`

	// BLEBase64 is the recorded short-range encoding of the full frame.
	BLEBase64 string `json:"ble_base64"`
}

// Catalog holds the embedded command vectors, keyed by command name.
// It is loaded once at startup and read-only thereafter.
type Catalog struct {
	entries map[string]CatalogEntry
}

// LoadCatalog parses the embedded command vectors.
//
// Returns:
//   - *Catalog: Read-only catalog handle
//   - error: If the embedded data is malformed (build-time defect)
func LoadCatalog() (*Catalog, error) {
	raw, err := commandsFS.ReadFile("data/commands.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded command vectors: %w", err)
	}

	entries := make(map[string]CatalogEntry)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing embedded command vectors: %w", err)
	}

	return &Catalog{entries: entries}, nil
}

// Lookup returns the entry for a named command.
//
// Returns:
//   - CatalogEntry: The recorded vector
//   - error: ErrCommandNotFound if the name is unknown
func (c *Catalog) Lookup(name string) (CatalogEntry, error) {
	entry, ok := c.entries[name]
	if !ok {
		return CatalogEntry{}, fmt.Errorf("%w: %q", ErrCommandNotFound, name)
	}
	return entry, nil
}

// Names returns all command names in the catalog, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Assemble builds the binary frame for a catalog entry using the codec.
//
// Returns:
//   - []byte: Frame of DefaultFrameSize bytes
//   - error: If the entry's hex fields are malformed or the frame overflows
func (e CatalogEntry) Assemble() ([]byte, error) {
	payload, err := hex.DecodeString(normalizeHex(e.PayloadHex))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, e.PayloadHex)
	}

	var extra []byte
	if e.ExtraPayloadHex != "" {
		extra, err = hex.DecodeString(normalizeHex(e.ExtraPayloadHex))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHex, e.ExtraPayloadHex)
		}
	}

	identifier := make([]byte, len(e.Identifier))
	for i, v := range e.Identifier {
		identifier[i] = byte(v)
	}

	return AssembleCommand(identifier, payload, extra, DefaultFrameSize)
}
