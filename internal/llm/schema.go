package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildPageJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It pins the six top-level keys and their container types but
// deliberately leaves item shapes loose: item-level noise is recovered by the
// tolerant decode, not rejected wholesale.
func BuildPageJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary":      map[string]any{"type": "string"},
			"keywords":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"sections":     map[string]any{"type": "array"},
			"measurements": map[string]any{"type": "array"},
			"key_fields":   map[string]any{"type": "object"},
			"tables":       map[string]any{"type": "array"},
		},
		"required": []string{"summary", "keywords", "sections", "measurements", "key_fields", "tables"},
	}
}

// CompilePageSchema compiles the page schema once for reuse across calls.
func CompilePageSchema() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(BuildPageJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("page_record.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := c.Compile("page_record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// ValidateAgainstSchema validates a decoded JSON document against s.
func ValidateAgainstSchema(s *jsonschema.Schema, doc any) error {
	return s.Validate(doc)
}
