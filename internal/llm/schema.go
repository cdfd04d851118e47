package llm

// Schema describes the expected shape of a structured response without tying
// callers to any particular model vendor's schema type. Clients translate it
// to their provider's native format.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
	Enum        []string
}

// Schema type names.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Object is a convenience constructor for an object schema.
func Object(description string, properties map[string]*Schema, required ...string) *Schema {
	return &Schema{
		Type:        TypeObject,
		Description: description,
		Properties:  properties,
		Required:    required,
	}
}

// Array is a convenience constructor for an array schema.
func Array(description string, items *Schema) *Schema {
	return &Schema{
		Type:        TypeArray,
		Description: description,
		Items:       items,
	}
}

// String is a convenience constructor for a string schema.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// Integer is a convenience constructor for an integer schema.
func Integer(description string) *Schema {
	return &Schema{Type: TypeInteger, Description: description}
}
