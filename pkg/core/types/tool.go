package types

// Schema is the subset of JSON Schema used to describe tool parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// ToolDefinition describes one entry in the tool catalogue submitted with
// every model request.
type ToolDefinition struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

func ObjectSchema(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

func StringProp(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

func NumberProp(description string) *Schema {
	return &Schema{Type: "number", Description: description}
}
