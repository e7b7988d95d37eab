package tools

import (
	"sort"

	"github.com/havenai/haven/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Field describes one tool argument.
type Field struct {
	Type        string `json:"type"` // JSON Schema type: string, integer, number, boolean, object, array
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Schema maps argument names to their description.
type Schema map[string]Field

var validTypes = map[string]bool{
	"string": true, "number": true, "integer": true,
	"boolean": true, "object": true, "array": true,
}

// Required returns the required field names, sorted.
func (s Schema) Required() []string {
	var req []string
	for name, f := range s {
		if f.Required {
			req = append(req, name)
		}
	}
	sort.Strings(req)
	return req
}

// Properties returns the JSON Schema "properties" object.
func (s Schema) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(s))
	for name, f := range s {
		props[name] = map[string]interface{}{
			"type":        f.Type,
			"description": f.Description,
		}
	}
	return props
}

// JSONSchema renders the schema as a JSON Schema object, the shape every
// model provider accepts for function parameters.
func (s Schema) JSONSchema() map[string]interface{} {
	out := map[string]interface{}{
		"type":       "object",
		"properties": s.Properties(),
	}
	if req := s.Required(); len(req) > 0 {
		out["required"] = req
	}
	return out
}

func (s Schema) compile() (*gojsonschema.Schema, error) {
	for name, f := range s {
		if name == "" {
			return nil, errors.New("field name cannot be empty")
		}
		if !validTypes[f.Type] {
			return nil, errors.New("invalid type '%s' for field '%s'", f.Type, name)
		}
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.JSONSchema()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile schema")
	}
	return compiled, nil
}

func validateArgs(tool string, schema *gojsonschema.Schema, args map[string]interface{}) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return &SchemaValidationError{Tool: tool, Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	seen := map[string]bool{}
	verr := &SchemaValidationError{Tool: tool}
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if p, ok := re.Details()["property"].(string); ok {
				field = p
			}
		}
		if !seen[field] {
			seen[field] = true
			verr.Fields = append(verr.Fields, field)
		}
		verr.Problems = append(verr.Problems, re.String())
	}
	sort.Strings(verr.Fields)
	return verr
}
