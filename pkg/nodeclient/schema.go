package nodeclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a JSON Schema document compiled lazily on first validation.
// Generated schema variables share documents by reference, so compilation
// happens at most once per schema regardless of how many stubs use it.
type Schema struct {
	name string
	doc  map[string]any

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// MustSchema wraps a schema document under a stable name.
func MustSchema(name string, doc map[string]any) *Schema {
	if name == "" {
		panic("nodeclient: schema name is empty")
	}
	return &Schema{name: name, doc: doc}
}

// Name returns the schema's name.
func (s *Schema) Name() string { return s.name }

// Doc returns the underlying schema document. The document is shared; the
// caller must not mutate it.
func (s *Schema) Doc() map[string]any { return s.doc }

func (s *Schema) compile() error {
	s.once.Do(func() {
		data, err := json.Marshal(s.doc)
		if err != nil {
			s.err = fmt.Errorf("nodeclient: marshal schema %s: %w", s.name, err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7
		url := "schema:///" + s.name + ".json"
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			s.err = fmt.Errorf("nodeclient: add schema %s: %w", s.name, err)
			return
		}
		s.compiled, s.err = compiler.Compile(url)
	})
	return s.err
}

// Validate checks a decoded JSON value against the schema.
func (s *Schema) Validate(v any) error {
	if err := s.compile(); err != nil {
		return err
	}
	return s.compiled.Validate(v)
}

// NullableObjectSchema returns an inline clone of the schema with its type
// widened to accept null. Used for optional structure-valued fields.
func NullableObjectSchema(s *Schema) map[string]any {
	doc := copyDoc(s.doc)
	doc["type"] = []string{"object", "null"}
	return doc
}

// ArraySchema wraps a schema into its array-of variant.
func ArraySchema(s *Schema) *Schema {
	return MustSchema(s.name+"[]", map[string]any{
		"type":  "array",
		"items": s.doc,
	})
}

func copyDoc(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
