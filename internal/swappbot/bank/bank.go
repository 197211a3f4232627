// Package bank holds the fixed catalog of canonical-key → response-template
// entries the cascade replies from.
//
// The catalog ships embedded as an ordered YAML list and is validated twice
// at startup: structurally against a JSON schema, then semantically with Go
// checks (unique keys, canonical key form, per-kind payload shape). A catalog
// that fails either check prevents the service from starting; there is no
// partially loaded bank.
//
// The catalog is immutable after Load and safe for unsynchronized concurrent
// reads.
package bank

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed catalog.schema.json
var catalogSchema string

// Kind discriminates the response template variants.
type Kind string

const (
	KindGreeting Kind = "greeting"
	KindCoding   Kind = "coding"
	KindSteps    Kind = "steps"
	KindRaw      Kind = "raw"
)

// Entry is one catalog entry. Which payload fields are populated depends on
// Kind: greeting carries none, coding carries Title/Explanation/Example/Tips,
// steps carries Title/Steps, raw carries Text.
type Entry struct {
	Key         string   `yaml:"key" json:"key"`
	Kind        Kind     `yaml:"kind" json:"kind"`
	Title       string   `yaml:"title,omitempty" json:"title,omitempty"`
	Explanation string   `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	Example     string   `yaml:"example,omitempty" json:"example,omitempty"`
	Tips        []string `yaml:"tips,omitempty" json:"tips,omitempty"`
	Steps       []string `yaml:"steps,omitempty" json:"steps,omitempty"`
	Text        string   `yaml:"text,omitempty" json:"text,omitempty"`
}

// catalog is the root of the YAML document.
type catalog struct {
	Entries []Entry `yaml:"entries" json:"entries"`
}

// Bank is the loaded, validated catalog.
type Bank struct {
	byKey map[string]*Entry
	keys  []string
}

// Load parses and validates the embedded default catalog.
func Load() (*Bank, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a catalog YAML document, validates it, and returns the Bank.
// It is the canonical entry point for loading catalogs.
func Parse(data []byte) (*Bank, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("bank: parse catalog: %w", err)
	}
	if len(cat.Entries) == 0 {
		return nil, fmt.Errorf("bank: catalog has no entries")
	}

	b := &Bank{
		byKey: make(map[string]*Entry, len(cat.Entries)),
		keys:  make([]string, 0, len(cat.Entries)),
	}

	for i := range cat.Entries {
		e := &cat.Entries[i]
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("bank: entries[%d] (%q): %w", i, e.Key, err)
		}
		if _, dup := b.byKey[e.Key]; dup {
			return nil, fmt.Errorf("bank: entries[%d]: duplicate key %q", i, e.Key)
		}
		b.byKey[e.Key] = e
		b.keys = append(b.keys, e.Key)
	}

	return b, nil
}

// validateSchema checks the raw YAML document against the embedded JSON
// schema. The YAML is decoded generically and round-tripped through JSON so
// the schema validator sees json.Unmarshal-shaped values.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("bank: parse catalog: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("bank: convert catalog to JSON: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(raw, &jsonDoc); err != nil {
		return fmt.Errorf("bank: convert catalog to JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.schema.json", bytes.NewReader([]byte(catalogSchema))); err != nil {
		return fmt.Errorf("bank: load catalog schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.schema.json")
	if err != nil {
		return fmt.Errorf("bank: compile catalog schema: %w", err)
	}

	if err := schema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("bank: catalog failed schema validation: %w", err)
	}
	return nil
}

// validateEntry enforces the catalog invariants the schema cannot express
// cleanly: canonical key form and kind-specific payload shape.
func validateEntry(e *Entry) error {
	if strings.TrimSpace(e.Key) == "" {
		return fmt.Errorf("key must not be empty")
	}
	for _, r := range e.Key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != ' ' {
			return fmt.Errorf("key must be a plain lowercase phrase, found %q", r)
		}
	}
	if e.Key != strings.TrimSpace(e.Key) || strings.Contains(e.Key, "  ") {
		return fmt.Errorf("key must be single-spaced with no surrounding whitespace")
	}

	switch e.Kind {
	case KindGreeting:
		// No payload.
	case KindCoding:
		if e.Title == "" || e.Explanation == "" || e.Example == "" {
			return fmt.Errorf("coding entry needs title, explanation, and example")
		}
	case KindSteps:
		if e.Title == "" || len(e.Steps) == 0 {
			return fmt.Errorf("steps entry needs title and at least one step")
		}
	case KindRaw:
		if e.Text == "" {
			return fmt.Errorf("raw entry needs text")
		}
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	return nil
}

// Lookup returns the entry for an exact canonical key.
func (b *Bank) Lookup(key string) (*Entry, bool) {
	e, ok := b.byKey[key]
	return e, ok
}

// Keys returns all catalog keys in catalog file order. This order is the
// documented tie-break for the nearest-key fuzzy scan: the first key with the
// minimum edit distance wins.
func (b *Bank) Keys() []string {
	return b.keys
}

// Len returns the number of entries.
func (b *Bank) Len() int {
	return len(b.keys)
}
