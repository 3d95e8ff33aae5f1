package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// JSONSchema wraps a compiled JSON Schema document. MethodSchema.Params and
// MethodSchema.Returns carry JSONSchema rather than a raw map so the router
// can validate an inbound call's params without recompiling the schema on
// every dispatch (§4.4 notes schemas are immutable once sealed; compiling
// once at construction and reusing the compiled form is the natural
// consequence).
type JSONSchema struct {
	doc      map[string]any
	compiled *jsonschema.Schema
}

// NewJSONSchema compiles doc (a JSON Schema document expressed as a Go
// value tree, e.g. unmarshaled JSON) and returns the wrapper. The resource
// name is internal only; it never appears on the wire.
func NewJSONSchema(doc map[string]any) (*JSONSchema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("schema: add resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}
	return &JSONSchema{doc: doc, compiled: compiled}, nil
}

// Validate checks value (already unmarshaled into Go maps/slices/scalars,
// as encoding/json would produce) against the schema.
func (s *JSONSchema) Validate(value any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	return s.compiled.Validate(value)
}

// Document returns the raw JSON Schema document, for embedding in a
// PluginSchema or a Guidance item's method_schema field.
func (s *JSONSchema) Document() map[string]any {
	if s == nil {
		return nil
	}
	return s.doc
}

// Canonical returns a deterministic byte encoding of the schema document,
// used by MethodSchema.MethodHash. Go map iteration order is randomized, so
// this re-marshals through a sorted-key encoder rather than relying on
// encoding/json's (incidentally sorted, but not API-guaranteed for nested
// maps reached via any) default behavior for the top level only.
func (s *JSONSchema) Canonical() []byte {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(canonicalValue(s.doc))
	if err != nil {
		// doc was already validated as a compilable JSON Schema; a marshal
		// failure here would mean it contains a non-JSON-representable Go
		// value, which jsonschema.Compiler would itself have rejected.
		return nil
	}
	return b
}

// MarshalJSON implements json.Marshaler so JSONSchema can be embedded
// directly in MethodSchema's JSON/YAML serialization as the raw document.
func (s *JSONSchema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.doc)
}

// canonicalValue recursively sorts map keys so two documents built with
// different Go map iteration orders serialize identically.
func canonicalValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, len(keys))
		for i, k := range keys {
			out[i] = kv{k, canonicalValue(t[k])}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalValue(e)
		}
		return out
	default:
		return v
	}
}

type kv struct {
	K string
	V any
}

// orderedMap marshals as a JSON object preserving insertion order, letting
// canonicalValue produce byte-stable output for maps.
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, e := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(e.K)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(e.V)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}
