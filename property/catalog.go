package property

import "strings"

const aspenLakeview = "12 Lakeview Dr, Aspen, CO 81611"

// Catalog is a read-only set of lookup tables. The zero value is empty;
// use DemoCatalog for the seeded data.
type Catalog struct {
	byLocation map[string][]Property
	commutes   map[string]Commute
	scenes     map[string]LocalScene
}

// DemoCatalog returns the seeded mock data used in place of live APIs.
func DemoCatalog() *Catalog {
	return &Catalog{
		byLocation: map[string][]Property{
			"aspen, co": {{
				Address:     aspenLakeview,
				Price:       1250000,
				Beds:        2,
				Baths:       2,
				Sqft:        1500,
				Description: "Stunning condo with panoramic lake and mountain views, minutes from the slopes.",
				ImageURL:    "https://images.unsplash.com/photo-1580587771525-78b9dba3b914?q=80&w=1974&auto=format&fit=crop",
			}},
		},
		commutes: map[string]Commute{
			aspenLakeview: {CommuteTimeMins: 25, NearbyParks: 3},
		},
		scenes: map[string]LocalScene{
			aspenLakeview: {NearbyCafes: 5, Rating: 4.5},
		},
	}
}

// InLocation returns the listings for a "city, state" location. The result
// is a copy; callers may keep it.
func (c *Catalog) InLocation(location string) []Property {
	found := c.byLocation[NormalizeLocation(location)]
	out := make([]Property, len(found))
	copy(out, found)
	return out
}

// MatchDescription simulates a semantic search: only a query mentioning both
// a lake and a mountain matches the seeded Aspen listing.
func (c *Catalog) MatchDescription(query string) []Property {
	q := strings.ToLower(query)
	if strings.Contains(q, "lake") && strings.Contains(q, "mountain") {
		return c.InLocation("aspen, co")
	}
	return []Property{}
}

// Commute looks up an exact address.
func (c *Catalog) Commute(address string) (Commute, bool) {
	v, ok := c.commutes[address]
	return v, ok
}

// LocalScene looks up an exact address.
func (c *Catalog) LocalScene(address string) (LocalScene, bool) {
	v, ok := c.scenes[address]
	return v, ok
}
