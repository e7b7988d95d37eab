package tools

import (
	"github.com/havenai/haven/property"
	"github.com/rs/zerolog"
)

// NewDefaultRegistry registers the property tools. The criteria search is
// only available when a provider is given.
func NewDefaultRegistry(logger zerolog.Logger, catalog *property.Catalog, provider SnapshotSearcher) (*ToolRegistry, error) {
	r := NewToolRegistry(logger)
	builtin := []Tool{
		&PropertySearchTool{Catalog: catalog},
		&FindPropertiesTool{Catalog: catalog},
		&MapsServiceTool{Catalog: catalog},
		&YelpServiceTool{Catalog: catalog},
	}
	if provider != nil {
		builtin = append(builtin, &CriteriaSearchTool{Provider: provider})
	}
	for _, t := range builtin {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
