package tools

import (
	"context"

	"github.com/havenai/haven/property"
)

// PropertySearchTool simulates a semantic listing search over the catalog.
type PropertySearchTool struct {
	Catalog *property.Catalog
}

func (t *PropertySearchTool) Name() string { return "property_search" }
func (t *PropertySearchTool) Description() string {
	return "Performs a semantic search for properties based on a rich, natural language description."
}

func (t *PropertySearchTool) Schema() Schema {
	return Schema{
		"query": {
			Type:        "string",
			Description: "A detailed, natural language description of the user's dream house and lifestyle.",
			Required:    true,
		},
	}
}

func (t *PropertySearchTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return t.Catalog.MatchDescription(stringArg(args, "query")), nil
}

// FindPropertiesTool lists the catalog's properties in a city.
type FindPropertiesTool struct {
	Catalog *property.Catalog
}

func (t *FindPropertiesTool) Name() string { return "find_properties" }
func (t *FindPropertiesTool) Description() string {
	return "Finds properties for sale in a location. The location must include the state, e.g. 'Aspen, CO'."
}

func (t *FindPropertiesTool) Schema() Schema {
	return Schema{
		"location": {
			Type:        "string",
			Description: "City and state, e.g. 'Aspen, CO'.",
			Required:    true,
		},
	}
}

func (t *FindPropertiesTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return t.Catalog.InLocation(stringArg(args, "location")), nil
}
