package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/realestate"
)

const (
	maxListedAddresses = 5
	noCriteriaMatches  = "No properties were found matching the specified criteria."
)

// SnapshotSearcher is the provider call the criteria tool depends on.
type SnapshotSearcher interface {
	Snapshot(ctx context.Context, crit realestate.Criteria) ([]realestate.Listing, error)
}

// CriteriaSearchTool queries the live property-data provider. Provider
// failures are reported to the model as text so it can respond in
// conversation; Execute itself never fails.
type CriteriaSearchTool struct {
	Provider SnapshotSearcher
}

func (t *CriteriaSearchTool) Name() string { return "find-properties-with-criteria" }
func (t *CriteriaSearchTool) Description() string {
	return "Searches live listings in a location with a minimum number of bedrooms and a maximum price."
}

func (t *CriteriaSearchTool) Schema() Schema {
	return Schema{
		"location": {Type: "string", Description: "City and state, e.g. 'Austin, TX'.", Required: true},
		"min_beds": {Type: "integer", Description: "Minimum number of bedrooms.", Required: true},
		"max_price": {Type: "integer", Description: "Maximum price in US dollars.", Required: true},
	}
}

func (t *CriteriaSearchTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	listings, err := t.Provider.Snapshot(ctx, realestate.Criteria{
		Address:  stringArg(args, "location"),
		MinBeds:  intArg(args, "min_beds"),
		MaxValue: intArg(args, "max_price"),
	})
	if err != nil {
		var upstream *realestate.UpstreamHTTPError
		if errors.As(err, &upstream) {
			return fmt.Sprintf("Error: the property data service responded with status %d.", upstream.StatusCode), nil
		}
		return "Error: the property data service could not be reached.", nil
	}
	return summarizeListings(listings), nil
}

func summarizeListings(listings []realestate.Listing) string {
	var addrs []string
	for _, l := range listings {
		if len(addrs) == maxListedAddresses {
			break
		}
		if l.Address.OneLine != "" {
			addrs = append(addrs, l.Address.OneLine)
		}
	}
	if len(addrs) == 0 {
		return noCriteriaMatches
	}
	return fmt.Sprintf("Found %d properties: %s", len(addrs), strings.Join(addrs, "; "))
}
