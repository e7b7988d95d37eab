package tools

import (
	"context"

	"github.com/havenai/haven/property"
)

var addressSchema = Schema{
	"address": {
		Type:        "string",
		Description: "The full property address exactly as returned by a search.",
		Required:    true,
	},
}

// MapsServiceTool reports commute time and parks near an address.
type MapsServiceTool struct {
	Catalog *property.Catalog
}

func (t *MapsServiceTool) Name() string   { return "maps_service" }
func (t *MapsServiceTool) Schema() Schema { return addressSchema }
func (t *MapsServiceTool) Description() string {
	return "Finds commute time and nearby parks for a given property address."
}

func (t *MapsServiceTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if v, ok := t.Catalog.Commute(stringArg(args, "address")); ok {
		return v, nil
	}
	return map[string]interface{}{}, nil
}

// YelpServiceTool reports cafes and local ratings near an address.
type YelpServiceTool struct {
	Catalog *property.Catalog
}

func (t *YelpServiceTool) Name() string   { return "yelp_service" }
func (t *YelpServiceTool) Schema() Schema { return addressSchema }
func (t *YelpServiceTool) Description() string {
	return "Finds nearby cafes and local ratings for a given property address."
}

func (t *YelpServiceTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if v, ok := t.Catalog.LocalScene(stringArg(args, "address")); ok {
		return v, nil
	}
	return map[string]interface{}{}, nil
}
