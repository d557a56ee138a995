// Package genai – response schema types.
//
// Schema mirrors the provider's subset of JSON Schema used for structured
// (schema-constrained) generation. Only the fields the backend needs are
// modeled.
package genai

// Schema describes the expected shape of a structured response.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	MinItems    *int64             `json:"minItems,omitempty"`
	MaxItems    *int64             `json:"maxItems,omitempty"`
}

// Int64 returns a pointer to v, for MinItems/MaxItems literals.
func Int64(v int64) *int64 { return &v }

// Object builds an object schema with the given properties, all required.
func Object(props map[string]*Schema) *Schema {
	req := make([]string, 0, len(props))
	for k := range props {
		req = append(req, k)
	}
	return &Schema{Type: "object", Properties: props, Required: req}
}

// Array builds an array schema of the given item shape.
func Array(items *Schema) *Schema { return &Schema{Type: "array", Items: items} }

// String builds a plain string schema.
func String(desc string) *Schema { return &Schema{Type: "string", Description: desc} }
