package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jwebster45206/lootmap/pkg/location"
)

// Schema identifies the shape a document was decoded from.
type Schema int

const (
	// SchemaCurrent is {name: [{coords, looted}, ...]}.
	SchemaCurrent Schema = iota
	// SchemaLegacy is any pre multi-instance shape: {name: {coords, looted}}
	// or {name: [x, y, z]}.
	SchemaLegacy
)

func (s Schema) String() string {
	switch s {
	case SchemaCurrent:
		return "current"
	case SchemaLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("schema(%d)", int(s))
	}
}

// Entry is one persisted instance.
type Entry struct {
	Coords location.Coordinates `json:"coords"`
	Looted bool                 `json:"looted"`
}

// Document is the persisted mapping of normalized location name to its
// ordered instances.
type Document map[string][]Entry

// Clone returns a deep copy so callers can mutate freely.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for name, entries := range d {
		out[name] = append([]Entry(nil), entries...)
	}
	return out
}

// Encode renders the document in the current schema.
func Encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal locations: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses raw document bytes. The current schema is tried first; if
// it does not match, the legacy shapes are tried and the result is tagged
// SchemaLegacy so the caller can rewrite it deliberately.
func Decode(raw []byte) (Document, Schema, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, SchemaCurrent, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, SchemaCurrent, fmt.Errorf("document is not a JSON object: %w", err)
	}

	names := make([]string, 0, len(top))
	for name := range top {
		names = append(names, name)
	}
	sort.Strings(names)

	doc, currentErr := decodeWith(top, names, decodeCurrentEntry)
	if currentErr == nil {
		return doc, SchemaCurrent, nil
	}

	doc, legacyErr := decodeWith(top, names, decodeLegacyEntry)
	if legacyErr != nil {
		return nil, SchemaCurrent, fmt.Errorf("unrecognized document schema: %w", errors.Join(currentErr, legacyErr))
	}
	return doc, SchemaLegacy, nil
}

func decodeWith(top map[string]json.RawMessage, names []string, decode func(json.RawMessage) ([]Entry, error)) (Document, error) {
	doc := make(Document, len(top))
	for _, name := range names {
		entries, err := decode(top[name])
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", name, err)
		}
		key := location.NormalizeName(name)
		if key == "" || len(entries) == 0 {
			continue
		}
		doc[key] = append(doc[key], entries...)
	}
	return doc, nil
}

// currentEntry distinguishes a missing coords field from [0, 0, 0].
type currentEntry struct {
	Coords *location.Coordinates `json:"coords"`
	Looted bool                  `json:"looted"`
}

func (c currentEntry) entry() (Entry, error) {
	if c.Coords == nil {
		return Entry{}, errors.New("entry is missing coords")
	}
	return Entry{Coords: *c.Coords, Looted: c.Looted}, nil
}

func decodeCurrentEntry(raw json.RawMessage) ([]Entry, error) {
	var list []currentEntry
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(list))
	for _, c := range list {
		e, err := c.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// decodeLegacyEntry accepts a flat {coords, looted} object, a bare
// [x, y, z] triple, or a list mixing both.
func decodeLegacyEntry(raw json.RawMessage) ([]Entry, error) {
	if e, err := decodeLegacyItem(raw); err == nil {
		return []Entry{e}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected an object or array: %w", err)
	}
	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		e, err := decodeLegacyItem(item)
		if err != nil {
			return nil, fmt.Errorf("instance %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeLegacyItem(raw json.RawMessage) (Entry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var c currentEntry
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return Entry{}, err
		}
		return c.entry()
	}
	var coords location.Coordinates
	if err := json.Unmarshal(trimmed, &coords); err != nil {
		return Entry{}, err
	}
	return Entry{Coords: coords}, nil
}
